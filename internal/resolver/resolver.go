// Package resolver turns an ast.Module into a sem.Module.
//
// Resolution interns every type expression in a types.Table, places struct
// members with the layout engine, binds identifiers and call expressions to
// their declarations, and records the usage sites (pointer types, gated
// features) that the validator checks later. WGSL allows declarations to be
// used before they appear, so struct and alias declarations are resolved on
// demand with recursion detection.
package resolver

import (
	"fmt"
	"strings"

	"github.com/HugoDaniel/wgslcheck/internal/ast"
	"github.com/HugoDaniel/wgslcheck/internal/diagnostic"
	"github.com/HugoDaniel/wgslcheck/internal/extension"
	"github.com/HugoDaniel/wgslcheck/internal/sem"
	"github.com/HugoDaniel/wgslcheck/internal/types"
)

// Result holds the output of Resolve.
type Result struct {
	// Module is the semantic model. It is complete only when Diagnostics
	// has no errors.
	Module *sem.Module
	// Diagnostics contains resolution errors.
	Diagnostics *diagnostic.List
}

// Resolver holds the state of one resolution run.
type Resolver struct {
	mod   *ast.Module
	sem   *sem.Module
	diags *diagnostic.List

	// Module-scope declarations by name.
	decls map[string]ast.Decl

	// Struct and alias declarations by name. A nil entry records a
	// declaration that failed to resolve.
	typeDecls map[string]types.Type
	resolving map[string]bool
	stack     []string // names being resolved, outermost first

	globals map[string]*sem.Variable
	funcs   map[string]*sem.Function

	// Function currently being resolved, nil at module scope.
	fn     *sem.Function
	scopes []map[string]sem.Object

	ice *ICE
}

// Resolve resolves mod. The returned error is non-nil only for internal
// invariant violations (*ICE); user errors are reported as diagnostics.
func Resolve(mod *ast.Module) (*Result, error) {
	r := &Resolver{
		mod:       mod,
		sem:       sem.NewModule(mod),
		diags:     diagnostic.NewList(),
		decls:     make(map[string]ast.Decl),
		typeDecls: make(map[string]types.Type),
		resolving: make(map[string]bool),
		globals:   make(map[string]*sem.Variable),
		funcs:     make(map[string]*sem.Function),
	}

	// Phase 1: Collect module-scope names
	r.collectDeclarations()

	// Phase 2: Enable directives
	r.resolveEnables()

	// Phase 3: Structs and aliases
	r.resolveTypeDeclarations()

	// Phase 4: Module-scope variables
	r.resolveGlobals()

	// Phase 5: Function signatures, then bodies
	r.resolveFunctions()

	if r.ice != nil {
		return nil, r.ice
	}

	slogger().Debug("resolver: module resolved",
		"structs", len(r.sem.Structs),
		"globals", len(r.sem.Globals),
		"functions", len(r.sem.Functions),
		"types", r.sem.Types.Len(),
		"errors", r.diags.ErrorCount())

	return &Result{Module: r.sem, Diagnostics: r.diags}, nil
}

// ----------------------------------------------------------------------------
// Phase 1: Collect Declarations
// ----------------------------------------------------------------------------

func (r *Resolver) collectDeclarations() {
	for _, decl := range r.mod.Declarations {
		name := decl.DeclName()
		if prev, ok := r.decls[name]; ok {
			r.errorf(diagnostic.CodeInvalidDeclaration, decl.DeclSource(), "redeclaration of '%s'", name)
			r.diags.AddNotef(prev.DeclSource(), "'%s' previously declared here", name)
			continue
		}
		r.decls[name] = decl
	}
}

// ----------------------------------------------------------------------------
// Phase 2: Enable Directives
// ----------------------------------------------------------------------------

func (r *Resolver) resolveEnables() {
	for _, d := range r.mod.Enables {
		for _, name := range d.Features {
			ext := extension.Parse(name)
			if ext == extension.Undefined {
				r.errorf(diagnostic.CodeMissingExtension, d.Source, "unknown extension '%s'", name)
				continue
			}
			r.sem.Enables = append(r.sem.Enables, sem.Enable{Name: name, Extension: ext, Source: d.Source})
		}
	}
}

// ----------------------------------------------------------------------------
// Phase 3: Type Declarations
// ----------------------------------------------------------------------------

func (r *Resolver) resolveTypeDeclarations() {
	for _, decl := range r.mod.Declarations {
		switch d := decl.(type) {
		case *ast.StructDecl, *ast.AliasDecl:
			if r.decls[d.DeclName()] == decl {
				r.resolveTypeDecl(d)
			}
		}
	}
}

// resolveTypeDecl resolves a struct or alias declaration once.
func (r *Resolver) resolveTypeDecl(decl ast.Decl) types.Type {
	name := decl.DeclName()
	if t, ok := r.typeDecls[name]; ok {
		return t
	}
	if r.resolving[name] {
		r.errorf(diagnostic.CodeRecursiveType, decl.DeclSource(), "recursive type '%s'", name)
		r.typeDecls[name] = nil
		return nil
	}
	r.push(name)
	defer r.pop(name)

	var t types.Type
	switch d := decl.(type) {
	case *ast.StructDecl:
		if s := r.resolveStruct(d); s != nil {
			t = s
		}
	case *ast.AliasDecl:
		t = r.resolveType(d.Type)
		if t != nil {
			r.sem.Aliases[name] = t
		}
	}

	// A recursive reference may already have recorded a failure.
	if prev, ok := r.typeDecls[name]; ok && prev == nil {
		return nil
	}
	r.typeDecls[name] = t
	return t
}

// ----------------------------------------------------------------------------
// Phase 4: Module-Scope Variables
// ----------------------------------------------------------------------------

func (r *Resolver) resolveGlobals() {
	for _, decl := range r.mod.Declarations {
		if r.decls[decl.DeclName()] != decl {
			continue
		}
		switch decl.(type) {
		case *ast.VarDecl, *ast.ConstDecl, *ast.OverrideDecl:
			if v := r.global(decl); v != nil {
				r.sem.Globals = append(r.sem.Globals, v)
			}
		}
	}
}

// global resolves a module-scope variable once. Initializers may refer to
// declarations that appear later in the module, so this is also called on
// demand from identifier lookup.
func (r *Resolver) global(decl ast.Decl) *sem.Variable {
	name := decl.DeclName()
	if v, ok := r.globals[name]; ok {
		return v
	}
	if r.resolving[name] {
		r.errorf(diagnostic.CodeRecursiveType, decl.DeclSource(), "cyclic dependency found: %s", r.cycle(name))
		r.globals[name] = nil
		return nil
	}
	r.push(name)
	defer r.pop(name)

	fn, scopes := r.fn, r.scopes
	r.fn, r.scopes = nil, nil
	defer func() { r.fn, r.scopes = fn, scopes }()

	var v *sem.Variable
	switch d := decl.(type) {
	case *ast.VarDecl:
		v = r.resolveVar(d)
	case *ast.ConstDecl:
		v = r.resolveConst(d)
	case *ast.OverrideDecl:
		v = r.resolveOverride(d)
	}
	r.globals[name] = v
	return v
}

func (r *Resolver) resolveVar(d *ast.VarDecl) *sem.Variable {
	v := &sem.Variable{
		Name:         d.Name,
		Kind:         sem.VarKindVar,
		Decl:         d,
		AddressSpace: d.AddressSpace,
		Access:       d.Access,
		Attributes:   d.Attributes,
		Initializer:  d.Initializer,
		Source:       d.Source,
		Function:     r.fn,
	}
	var initType types.Type
	if d.Initializer != nil {
		initType = r.load(r.expr(d.Initializer))
	}
	if d.Type != nil {
		v.Type = r.resolveType(d.Type)
		v.TypeSource = d.Type.TypeSource()
	} else if initType != nil {
		v.Type = r.sem.Types.Materialize(initType)
	} else if d.Initializer == nil {
		r.errorf(diagnostic.CodeInvalidDeclaration, d.Source, "var declaration requires a type or initializer")
	}
	for _, a := range d.Attributes {
		switch a.Name {
		case "group":
			v.Group, v.HasGroup = a.IntArg(0)
		case "binding":
			v.Binding, v.HasBinding = a.IntArg(0)
		}
	}
	return v
}

func (r *Resolver) resolveConst(d *ast.ConstDecl) *sem.Variable {
	v := &sem.Variable{
		Name:        d.Name,
		Kind:        sem.VarKindConst,
		Decl:        d,
		Initializer: d.Initializer,
		Source:      d.Source,
		Function:    r.fn,
	}
	initType := r.load(r.expr(d.Initializer))
	if d.Type != nil {
		v.Type = r.resolveType(d.Type)
		v.TypeSource = d.Type.TypeSource()
	} else {
		v.Type = initType
	}
	return v
}

func (r *Resolver) resolveOverride(d *ast.OverrideDecl) *sem.Variable {
	v := &sem.Variable{
		Name:        d.Name,
		Kind:        sem.VarKindOverride,
		Decl:        d,
		Attributes:  d.Attributes,
		Initializer: d.Initializer,
		Source:      d.Source,
	}
	var initType types.Type
	if d.Initializer != nil {
		initType = r.load(r.expr(d.Initializer))
	}
	if d.Type != nil {
		v.Type = r.resolveType(d.Type)
		v.TypeSource = d.Type.TypeSource()
	} else if initType != nil {
		v.Type = r.sem.Types.Materialize(initType)
	}
	return v
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

func (r *Resolver) push(name string) {
	r.resolving[name] = true
	r.stack = append(r.stack, name)
}

func (r *Resolver) pop(name string) {
	delete(r.resolving, name)
	r.stack = r.stack[:len(r.stack)-1]
}

// cycle renders the resolution chain that leads back to name.
func (r *Resolver) cycle(name string) string {
	var sb strings.Builder
	start := len(r.stack)
	for i, n := range r.stack {
		if n == name {
			start = i
			break
		}
	}
	for _, n := range r.stack[start:] {
		fmt.Fprintf(&sb, "'%s' -> ", n)
	}
	fmt.Fprintf(&sb, "'%s'", name)
	return sb.String()
}

func (r *Resolver) errorf(code diagnostic.Code, src diagnostic.Source, format string, args ...any) {
	r.diags.AddErrorf(code, src, format, args...)
}

func (r *Resolver) feature(name string, ext extension.Extension, src diagnostic.Source) {
	r.sem.FeatureUses = append(r.sem.FeatureUses, &sem.FeatureUse{Name: name, Extension: ext, Source: src})
}

// internalError records the first invariant violation. Resolution keeps
// going so the caller gets a consistent failure, but the result is dropped.
func (r *Resolver) internalError(src diagnostic.Source, format string, args ...any) {
	if r.ice == nil {
		r.ice = newICE(src, format, args...)
	}
}
