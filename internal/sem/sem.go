// Package sem holds the semantic model produced by the resolver: variables,
// parameters and functions bound to interned types, resolved identifier and
// call targets, and the usage sites that address-space validation runs over.
package sem

import (
	"github.com/HugoDaniel/wgslcheck/internal/ast"
	"github.com/HugoDaniel/wgslcheck/internal/builtins"
	"github.com/HugoDaniel/wgslcheck/internal/diagnostic"
	"github.com/HugoDaniel/wgslcheck/internal/extension"
	"github.com/HugoDaniel/wgslcheck/internal/layout"
	"github.com/HugoDaniel/wgslcheck/internal/types"
)

// Object is something an identifier can resolve to: a *Variable, a
// *Parameter or a *Function.
type Object interface {
	ObjectName() string
	isObject()
}

// VarKind distinguishes the four variable-like declarations.
type VarKind uint8

const (
	VarKindVar VarKind = iota
	VarKindLet
	VarKindConst
	VarKindOverride
)

func (k VarKind) String() string {
	switch k {
	case VarKindLet:
		return "let"
	case VarKindConst:
		return "const"
	case VarKindOverride:
		return "override"
	default:
		return "var"
	}
}

// Variable is a resolved var, let, const or override declaration.
type Variable struct {
	Name string
	Kind VarKind
	Decl ast.Decl

	// Type is the store type of a var, or the value type of the others. It
	// is nil when it could not be determined.
	Type types.Type

	// AddressSpace and Access as written; AddressSpaceNone and
	// AccessUndefined when omitted.
	AddressSpace types.AddressSpace
	Access       types.Access

	Group, Binding       int
	HasGroup, HasBinding bool

	Attributes  []*ast.Attribute
	Initializer ast.Expr
	Source      diagnostic.Source
	TypeSource  diagnostic.Source // zero when the type is inferred

	// Function is the enclosing function of a local, nil at module scope.
	Function *Function
}

func (v *Variable) ObjectName() string { return v.Name }
func (*Variable) isObject()            {}

// IsGlobal reports whether the variable is declared at module scope.
func (v *Variable) IsGlobal() bool {
	return v.Function == nil
}

// EffectiveSpace returns the address space the variable lives in, applying
// the implicit rules: function for locals, handle for textures and samplers.
func (v *Variable) EffectiveSpace() types.AddressSpace {
	if v.Kind != VarKindVar {
		return types.AddressSpaceNone
	}
	if v.AddressSpace != types.AddressSpaceNone {
		return v.AddressSpace
	}
	if v.Type != nil && types.IsHandle(v.Type) {
		return types.AddressSpaceHandle
	}
	if !v.IsGlobal() {
		return types.AddressSpaceFunction
	}
	return types.AddressSpaceNone
}

// EffectiveAccess returns the written access mode or the default of the
// variable's address space.
func (v *Variable) EffectiveAccess() types.Access {
	if v.Access != types.AccessUndefined {
		return v.Access
	}
	return types.DefaultAccess(v.EffectiveSpace())
}

// IsPointer reports whether the variable holds a pointer value.
func (v *Variable) IsPointer() bool {
	_, ok := v.Type.(*types.Pointer)
	return ok
}

// UsageSource is where diagnostics about the variable's store type point:
// the type expression if written, otherwise the declaration.
func (v *Variable) UsageSource() diagnostic.Source {
	if v.TypeSource.IsValid() {
		return v.TypeSource
	}
	return v.Source
}

// Parameter is a resolved function parameter.
type Parameter struct {
	Name       string
	Index      int
	Type       types.Type
	Attributes []*ast.Attribute
	Source     diagnostic.Source
	TypeSource diagnostic.Source
	Function   *Function
}

func (p *Parameter) ObjectName() string { return p.Name }
func (*Parameter) isObject()            {}

// IsPointer reports whether the parameter is pointer-typed.
func (p *Parameter) IsPointer() bool {
	_, ok := p.Type.(*types.Pointer)
	return ok
}

// Function is a resolved user-declared function.
type Function struct {
	Name       string
	Decl       *ast.FunctionDecl
	Params     []*Parameter
	ReturnType types.Type // nil for no return type
	Stage      string     // "compute", "vertex", "fragment" or "" for helpers
	Source     diagnostic.Source

	Locals []*Variable
	// Calls lists every call made in the body, in source order.
	Calls []*Call
}

func (f *Function) ObjectName() string { return f.Name }
func (*Function) isObject()            {}

// IsEntryPoint reports whether the function is a shader entry point.
func (f *Function) IsEntryPoint() bool {
	return f.Stage != ""
}

// Call is a resolved call expression. Exactly one of Target and Builtin is
// set; type constructors are not calls.
type Call struct {
	Expr    *ast.CallExpr
	Caller  *Function
	Target  *Function
	Builtin *builtins.Builtin
}

// Name returns the called function's name.
func (c *Call) Name() string {
	if c.Target != nil {
		return c.Target.Name
	}
	return c.Builtin.Name
}

// PointerUse is a ptr<S, T, A> type expression written in the program.
type PointerUse struct {
	Type *types.Pointer
	// ExplicitAccess is true when the access mode was written.
	ExplicitAccess bool
	Source         diagnostic.Source
	StoreSource    diagnostic.Source // the store type expression
}

// FeatureUse is a construct gated behind an extension: an f16 type, or an
// attribute such as @blend_src.
type FeatureUse struct {
	// Name is "f16" for types, or "@attr" for attributes.
	Name      string
	Extension extension.Extension
	Source    diagnostic.Source
}

// Enable is one extension named by an enable directive.
type Enable struct {
	Name      string
	Extension extension.Extension
	Source    diagnostic.Source
}

// Module is the semantic model of one compilation unit.
type Module struct {
	AST     *ast.Module
	Types   *types.Table
	Layouts *layout.Engine

	// Structs in declaration order, and their declarations.
	Structs     []*types.Struct
	StructDecls map[*types.Struct]*ast.StructDecl
	Aliases     map[string]types.Type

	Globals   []*Variable
	Functions []*Function

	Enables     []Enable
	PointerUses []*PointerUse
	FeatureUses []*FeatureUse

	// Refs binds identifier expressions to what they name.
	Refs map[*ast.IdentExpr]Object
	// Calls binds call expressions to their resolved target.
	Calls map[*ast.CallExpr]*Call
	// ExprTypes records the type of every resolved expression. Expressions
	// that denote memory have a *types.Reference type.
	ExprTypes map[ast.Expr]types.Type
}

// NewModule creates an empty semantic module over mod.
func NewModule(mod *ast.Module) *Module {
	return &Module{
		AST:         mod,
		Types:       types.NewTable(),
		Layouts:     layout.NewEngine(),
		StructDecls: make(map[*types.Struct]*ast.StructDecl),
		Aliases:     make(map[string]types.Type),
		Refs:        make(map[*ast.IdentExpr]Object),
		Calls:       make(map[*ast.CallExpr]*Call),
		ExprTypes:   make(map[ast.Expr]types.Type),
	}
}

// Extensions returns the set of extensions the module enables.
func (m *Module) Extensions() extension.Set {
	set := extension.NewSet()
	for _, e := range m.Enables {
		set.Add(e.Extension)
	}
	return set
}

// Struct returns the struct with the given name, or nil.
func (m *Module) Struct(name string) *types.Struct {
	for _, s := range m.Structs {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Global returns the module-scope variable with the given name, or nil.
func (m *Module) Global(name string) *Variable {
	for _, v := range m.Globals {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// Function returns the function with the given name, or nil.
func (m *Module) Function(name string) *Function {
	for _, f := range m.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}
