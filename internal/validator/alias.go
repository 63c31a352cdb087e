package validator

import (
	"fmt"
	"strings"

	"github.com/HugoDaniel/wgslcheck/internal/ast"
	"github.com/HugoDaniel/wgslcheck/internal/builtins"
	"github.com/HugoDaniel/wgslcheck/internal/diagnostic"
	"github.com/HugoDaniel/wgslcheck/internal/sem"
	"github.com/HugoDaniel/wgslcheck/internal/types"
)

// AccessSite is where a module-scope variable was first accessed, directly
// or through a call.
type AccessSite struct {
	Source   diagnostic.Source
	Function string
}

// AliasInfo summarises the memory a function touches, including through
// the functions it calls.
type AliasInfo struct {
	ModuleScopeReads  map[*sem.Variable]AccessSite
	ModuleScopeWrites map[*sem.Variable]AccessSite
	ParameterReads    map[*sem.Parameter]bool
	ParameterWrites   map[*sem.Parameter]bool
}

func newAliasInfo() *AliasInfo {
	return &AliasInfo{
		ModuleScopeReads:  make(map[*sem.Variable]AccessSite),
		ModuleScopeWrites: make(map[*sem.Variable]AccessSite),
		ParameterReads:    make(map[*sem.Parameter]bool),
		ParameterWrites:   make(map[*sem.Parameter]bool),
	}
}

// exprKind classifies what an expression evaluates to.
type exprKind uint8

const (
	kindValue exprKind = iota
	kindRef
	kindPtr
)

// walked is the result of analysing an expression. For references and
// pointers, root is the variable or parameter the memory view derives from.
// A nil root means the origin is unknown.
type walked struct {
	kind exprKind
	root sem.Object
}

// AliasAnalyzer detects calls that pass aliasing pointer arguments where at
// least one of the aliases is written.
type AliasAnalyzer struct {
	module *sem.Module
	diags  *diagnostic.List

	infos map[*sem.Function]*AliasInfo

	// Current function context
	fn       *sem.Function
	info     *AliasInfo
	letRoots map[*sem.Variable]sem.Object
	locals   map[ast.Decl]*sem.Variable
}

// NewAliasAnalyzer creates a new alias analyzer.
func NewAliasAnalyzer(module *sem.Module, diags *diagnostic.List) *AliasAnalyzer {
	return &AliasAnalyzer{
		module: module,
		diags:  diags,
		infos:  make(map[*sem.Function]*AliasInfo),
	}
}

// Analyze visits the functions callee first, so every call sees the
// summary of its target. A cyclic call graph is reported and stops the
// analysis.
func (aa *AliasAnalyzer) Analyze() {
	order, ok := aa.callOrder()
	if !ok {
		aa.infos = make(map[*sem.Function]*AliasInfo)
		return
	}
	for _, fn := range order {
		aa.analyzeFunction(fn)
	}
}

// Infos returns the per-function summaries.
func (aa *AliasAnalyzer) Infos() map[*sem.Function]*AliasInfo {
	return aa.infos
}

type visitState uint8

const (
	unvisited visitState = iota
	visiting
	visited
)

func (aa *AliasAnalyzer) callOrder() ([]*sem.Function, bool) {
	state := make(map[*sem.Function]visitState)
	var order, stack []*sem.Function

	var visit func(fn *sem.Function) bool
	visit = func(fn *sem.Function) bool {
		if state[fn] == visited {
			return true
		}
		state[fn] = visiting
		stack = append(stack, fn)
		for _, c := range fn.Calls {
			if c.Target == nil {
				continue
			}
			if state[c.Target] == visiting {
				aa.diags.AddErrorf(diagnostic.CodeRecursiveFunction, c.Expr.Source,
					"cyclic dependency found: %s", cyclePath(stack, c.Target))
				return false
			}
			if !visit(c.Target) {
				return false
			}
		}
		stack = stack[:len(stack)-1]
		state[fn] = visited
		order = append(order, fn)
		return true
	}

	for _, fn := range aa.module.Functions {
		if !visit(fn) {
			return nil, false
		}
	}
	return order, true
}

func cyclePath(stack []*sem.Function, target *sem.Function) string {
	var sb strings.Builder
	start := 0
	for i, fn := range stack {
		if fn == target {
			start = i
			break
		}
	}
	for _, fn := range stack[start:] {
		fmt.Fprintf(&sb, "'%s' -> ", fn.Name)
	}
	fmt.Fprintf(&sb, "'%s'", target.Name)
	return sb.String()
}

func (aa *AliasAnalyzer) analyzeFunction(fn *sem.Function) {
	aa.fn = fn
	aa.info = newAliasInfo()
	aa.letRoots = make(map[*sem.Variable]sem.Object)
	aa.locals = make(map[ast.Decl]*sem.Variable, len(fn.Locals))
	for _, v := range fn.Locals {
		aa.locals[v.Decl] = v
	}

	if fn.Decl != nil && fn.Decl.Body != nil {
		aa.analyzeStmt(fn.Decl.Body)
	}

	aa.infos[fn] = aa.info
	slogger().Debug("validator: alias summary",
		"function", fn.Name,
		"reads", len(aa.info.ModuleScopeReads),
		"writes", len(aa.info.ModuleScopeWrites))

	aa.fn, aa.info = nil, nil
}

// ----------------------------------------------------------------------------
// Statements
// ----------------------------------------------------------------------------

func (aa *AliasAnalyzer) analyzeStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.CompoundStmt:
		if s == nil {
			return
		}
		for _, inner := range s.Stmts {
			aa.analyzeStmt(inner)
		}

	case *ast.ReturnStmt:
		if s.Value != nil {
			aa.value(s.Value)
		}

	case *ast.IfStmt:
		aa.value(s.Condition)
		aa.analyzeStmt(s.Body)
		if s.Else != nil {
			aa.analyzeStmt(s.Else)
		}

	case *ast.SwitchStmt:
		aa.value(s.Expr)
		for _, c := range s.Cases {
			for _, sel := range c.Selectors {
				aa.value(sel)
			}
			aa.analyzeStmt(c.Body)
		}

	case *ast.ForStmt:
		if s.Init != nil {
			aa.analyzeStmt(s.Init)
		}
		if s.Condition != nil {
			aa.value(s.Condition)
		}
		aa.analyzeStmt(s.Body)
		if s.Update != nil {
			aa.analyzeStmt(s.Update)
		}

	case *ast.WhileStmt:
		aa.value(s.Condition)
		aa.analyzeStmt(s.Body)

	case *ast.LoopStmt:
		aa.analyzeStmt(s.Body)
		if s.Continuing != nil {
			aa.analyzeStmt(s.Continuing)
		}

	case *ast.BreakIfStmt:
		aa.value(s.Condition)

	case *ast.AssignStmt:
		if s.Left == nil {
			aa.value(s.Right)
			return
		}
		lhs := aa.analyzeExpr(s.Left)
		aa.value(s.Right)
		if s.Op != ast.AssignOpSimple {
			aa.access(lhs, s.Left.ExprSource(), false)
		}
		aa.access(lhs, s.Left.ExprSource(), true)

	case *ast.IncrDecrStmt:
		w := aa.analyzeExpr(s.Expr)
		aa.access(w, s.Expr.ExprSource(), false)
		aa.access(w, s.Expr.ExprSource(), true)

	case *ast.CallStmt:
		aa.analyzeCallExpr(s.Call)

	case *ast.DeclStmt:
		aa.analyzeDecl(s.Decl)
	}
}

func (aa *AliasAnalyzer) analyzeDecl(decl ast.Decl) {
	v := aa.locals[decl]
	var init ast.Expr
	switch d := decl.(type) {
	case *ast.VarDecl:
		init = d.Initializer
	case *ast.LetDecl:
		init = d.Initializer
	case *ast.ConstDecl:
		init = d.Initializer
	}
	if init == nil {
		return
	}
	if v != nil && v.Kind == sem.VarKindLet && v.IsPointer() {
		w := aa.analyzeExpr(init)
		if w.kind == kindPtr {
			aa.letRoots[v] = w.root
		}
		return
	}
	aa.value(init)
}

// ----------------------------------------------------------------------------
// Expressions
// ----------------------------------------------------------------------------

// value analyses e as an operand that is loaded, recording the read.
func (aa *AliasAnalyzer) value(e ast.Expr) walked {
	w := aa.analyzeExpr(e)
	if w.kind == kindRef {
		aa.access(w, e.ExprSource(), false)
		return walked{kind: kindValue}
	}
	return w
}

func (aa *AliasAnalyzer) analyzeExpr(expr ast.Expr) walked {
	switch e := expr.(type) {
	case *ast.IdentExpr:
		switch obj := aa.module.Refs[e].(type) {
		case *sem.Variable:
			switch {
			case obj.Kind == sem.VarKindVar:
				return walked{kindRef, obj}
			case obj.Kind == sem.VarKindLet && obj.IsPointer():
				return walked{kindPtr, aa.letRoots[obj]}
			}
		case *sem.Parameter:
			if obj.IsPointer() {
				return walked{kindPtr, obj}
			}
		}
		return walked{kind: kindValue}

	case *ast.ParenExpr:
		return aa.analyzeExpr(e.Expr)

	case *ast.UnaryExpr:
		switch e.Op {
		case ast.UnaryOpAddr:
			w := aa.analyzeExpr(e.Operand)
			if w.kind == kindRef {
				w.kind = kindPtr
			}
			return w
		case ast.UnaryOpDeref:
			w := aa.analyzeExpr(e.Operand)
			if w.kind == kindPtr {
				w.kind = kindRef
			}
			return w
		}
		aa.value(e.Operand)
		return walked{kind: kindValue}

	case *ast.MemberExpr:
		return aa.accessor(e, e.Base)

	case *ast.IndexExpr:
		w := aa.accessor(e, e.Base)
		aa.value(e.Index)
		return w

	case *ast.BinaryExpr:
		aa.value(e.Left)
		aa.value(e.Right)
		return walked{kind: kindValue}

	case *ast.CallExpr:
		aa.analyzeCallExpr(e)
	}
	return walked{kind: kindValue}
}

// accessor handles member, swizzle and index expressions. They keep the
// root of their base; a pointer base is dereferenced implicitly. When the
// result is not a reference, the base has been loaded.
func (aa *AliasAnalyzer) accessor(e, base ast.Expr) walked {
	w := aa.analyzeExpr(base)
	if w.kind == kindPtr {
		w.kind = kindRef
	}
	if w.kind != kindRef {
		return walked{kind: kindValue}
	}
	if _, ok := aa.module.ExprTypes[e].(*types.Reference); !ok {
		aa.access(w, base.ExprSource(), false)
		return walked{kind: kindValue}
	}
	return w
}

func (aa *AliasAnalyzer) analyzeCallExpr(e *ast.CallExpr) {
	c := aa.module.Calls[e]
	switch {
	case c == nil:
		for _, arg := range e.Args {
			aa.value(arg)
		}
	case c.Builtin != nil:
		aa.analyzeBuiltinCall(e, c.Builtin)
	case c.Target != nil:
		aa.analyzeUserCall(e, c.Target)
	}
}

func (aa *AliasAnalyzer) analyzeBuiltinCall(e *ast.CallExpr, b *builtins.Builtin) {
	for i, arg := range e.Args {
		if !aa.isPointer(arg) {
			aa.value(arg)
			continue
		}
		w := aa.analyzeExpr(arg)
		if i != b.PointerArg {
			continue
		}
		switch b.Access {
		case builtins.Read:
			aa.access(w, arg.ExprSource(), false)
		case builtins.Write:
			aa.access(w, arg.ExprSource(), true)
		}
	}
}

// analyzeUserCall checks the pointer arguments of a call against each other
// and against the module-scope accesses of the callee, then folds the
// callee's accesses into the caller. At most one error is reported per call.
func (aa *AliasAnalyzer) analyzeUserCall(e *ast.CallExpr, target *sem.Function) {
	callee := aa.infos[target]
	if callee == nil {
		callee = newAliasInfo()
	}

	argReads := make(map[sem.Object]diagnostic.Source)
	argWrites := make(map[sem.Object]diagnostic.Source)
	reported := false

	report := func(src, noteSrc diagnostic.Source, format string, args ...any) {
		if reported {
			return
		}
		reported = true
		aa.diags.AddError(diagnostic.CodeAliasedPointer, src, "invalid aliased pointer argument")
		aa.diags.AddNotef(noteSrc, format, args...)
	}

	for i, arg := range e.Args {
		if !aa.isPointer(arg) {
			aa.value(arg)
			continue
		}
		w := aa.analyzeExpr(arg)
		if w.root == nil || i >= len(target.Params) {
			continue
		}
		param := target.Params[i]
		src := arg.ExprSource()
		written := callee.ParameterWrites[param]
		read := callee.ParameterReads[param]

		// Argument pairs are checked before module-scope conflicts, so the
		// reported conflict follows argument order.
		switch {
		case written:
			if prev, ok := argReads[w.root]; ok {
				report(src, prev, "aliases with another argument passed here")
			} else if prev, ok := argWrites[w.root]; ok {
				report(src, prev, "aliases with another argument passed here")
			}
		case read:
			if prev, ok := argWrites[w.root]; ok {
				report(src, prev, "aliases with another argument passed here")
			}
		}

		if g, ok := w.root.(*sem.Variable); ok && g.IsGlobal() && (written || read) {
			if site, ok := callee.ModuleScopeReads[g]; ok && written {
				report(src, site.Source, "aliases with module-scope variable read in '%s'", site.Function)
			} else if site, ok := callee.ModuleScopeWrites[g]; ok {
				report(src, site.Source, "aliases with module-scope variable write in '%s'", site.Function)
			}
		}

		switch {
		case written:
			if _, ok := argWrites[w.root]; !ok {
				argWrites[w.root] = src
			}
			aa.access(w, src, true)
		case read:
			if _, ok := argReads[w.root]; !ok {
				argReads[w.root] = src
			}
			aa.access(w, src, false)
		}
	}

	for g, site := range callee.ModuleScopeReads {
		if _, ok := aa.info.ModuleScopeReads[g]; !ok {
			aa.info.ModuleScopeReads[g] = site
		}
	}
	for g, site := range callee.ModuleScopeWrites {
		if _, ok := aa.info.ModuleScopeWrites[g]; !ok {
			aa.info.ModuleScopeWrites[g] = site
		}
	}
}

// access records a read or write of the memory behind w. Locals are not
// tracked.
func (aa *AliasAnalyzer) access(w walked, src diagnostic.Source, write bool) {
	switch root := w.root.(type) {
	case *sem.Variable:
		if !root.IsGlobal() || root.Kind != sem.VarKindVar {
			return
		}
		accesses := aa.info.ModuleScopeReads
		if write {
			accesses = aa.info.ModuleScopeWrites
		}
		if _, ok := accesses[root]; !ok {
			accesses[root] = AccessSite{Source: src, Function: aa.fn.Name}
		}
	case *sem.Parameter:
		if write {
			aa.info.ParameterWrites[root] = true
		} else {
			aa.info.ParameterReads[root] = true
		}
	}
}

func (aa *AliasAnalyzer) isPointer(e ast.Expr) bool {
	_, ok := types.UnwrapRef(aa.module.ExprTypes[e]).(*types.Pointer)
	return ok
}
