package resolver

import (
	"strings"

	"github.com/HugoDaniel/wgslcheck/internal/ast"
	"github.com/HugoDaniel/wgslcheck/internal/builtins"
	"github.com/HugoDaniel/wgslcheck/internal/diagnostic"
	"github.com/HugoDaniel/wgslcheck/internal/extension"
	"github.com/HugoDaniel/wgslcheck/internal/sem"
	"github.com/HugoDaniel/wgslcheck/internal/types"
)

// ----------------------------------------------------------------------------
// Phase 5: Functions
// ----------------------------------------------------------------------------

func (r *Resolver) resolveFunctions() {
	var decls []*ast.FunctionDecl
	for _, decl := range r.mod.Declarations {
		if d, ok := decl.(*ast.FunctionDecl); ok && r.decls[d.Name] == decl {
			decls = append(decls, d)
		}
	}

	// Signatures first so that bodies may call functions declared later.
	for _, d := range decls {
		f := r.resolveSignature(d)
		r.funcs[d.Name] = f
		r.sem.Functions = append(r.sem.Functions, f)
	}

	for _, f := range r.sem.Functions {
		r.resolveBody(f)
	}
}

func (r *Resolver) resolveSignature(d *ast.FunctionDecl) *sem.Function {
	f := &sem.Function{
		Name:   d.Name,
		Decl:   d,
		Source: d.Source,
	}
	for _, a := range d.Attributes {
		switch a.Name {
		case "compute", "vertex", "fragment":
			f.Stage = a.Name
		}
	}

	seen := make(map[string]bool, len(d.Parameters))
	for i, p := range d.Parameters {
		if seen[p.Name] {
			r.errorf(diagnostic.CodeInvalidDeclaration, p.Source, "redefinition of parameter '%s'", p.Name)
		}
		seen[p.Name] = true

		param := &sem.Parameter{
			Name:       p.Name,
			Index:      i,
			Type:       r.resolveType(p.Type),
			Attributes: p.Attributes,
			Source:     p.Source,
			Function:   f,
		}
		if p.Type != nil {
			param.TypeSource = p.Type.TypeSource()
		}
		f.Params = append(f.Params, param)
	}

	if d.ReturnType != nil {
		f.ReturnType = r.resolveType(d.ReturnType)
	}
	return f
}

func (r *Resolver) resolveBody(f *sem.Function) {
	r.fn = f
	r.scopes = nil
	defer func() { r.fn, r.scopes = nil, nil }()

	r.pushScope()
	for _, p := range f.Params {
		r.scopes[0][p.Name] = p
	}
	if f.Decl.Body != nil {
		r.stmts(f.Decl.Body.Stmts)
	}
	r.popScope()
}

func (r *Resolver) pushScope() {
	r.scopes = append(r.scopes, make(map[string]sem.Object))
}

func (r *Resolver) popScope() {
	r.scopes = r.scopes[:len(r.scopes)-1]
}

func (r *Resolver) declare(obj sem.Object, src diagnostic.Source) {
	scope := r.scopes[len(r.scopes)-1]
	if _, dup := scope[obj.ObjectName()]; dup {
		r.errorf(diagnostic.CodeInvalidDeclaration, src, "redeclaration of '%s'", obj.ObjectName())
		return
	}
	scope[obj.ObjectName()] = obj
}

// ----------------------------------------------------------------------------
// Statements
// ----------------------------------------------------------------------------

func (r *Resolver) stmts(list []ast.Stmt) {
	for _, s := range list {
		r.stmt(s)
	}
}

func (r *Resolver) block(b *ast.CompoundStmt) {
	if b == nil {
		return
	}
	r.pushScope()
	r.stmts(b.Stmts)
	r.popScope()
}

func (r *Resolver) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.CompoundStmt:
		r.block(s)

	case *ast.ReturnStmt:
		if s.Value != nil {
			r.load(r.expr(s.Value))
		}

	case *ast.IfStmt:
		r.load(r.expr(s.Condition))
		r.block(s.Body)
		if s.Else != nil {
			r.stmt(s.Else)
		}

	case *ast.SwitchStmt:
		r.load(r.expr(s.Expr))
		for _, c := range s.Cases {
			for _, sel := range c.Selectors {
				r.load(r.expr(sel))
			}
			r.block(c.Body)
		}

	case *ast.ForStmt:
		r.pushScope()
		if s.Init != nil {
			r.stmt(s.Init)
		}
		if s.Condition != nil {
			r.load(r.expr(s.Condition))
		}
		if s.Update != nil {
			r.stmt(s.Update)
		}
		r.block(s.Body)
		r.popScope()

	case *ast.WhileStmt:
		r.load(r.expr(s.Condition))
		r.block(s.Body)

	case *ast.LoopStmt:
		// The continuing block sees the declarations of the loop body.
		r.pushScope()
		if s.Body != nil {
			r.stmts(s.Body.Stmts)
		}
		r.block(s.Continuing)
		r.popScope()

	case *ast.BreakIfStmt:
		r.load(r.expr(s.Condition))

	case *ast.AssignStmt:
		if s.Left != nil {
			r.store(s.Left)
		}
		r.load(r.expr(s.Right))

	case *ast.IncrDecrStmt:
		r.store(s.Expr)

	case *ast.CallStmt:
		r.expr(s.Call)

	case *ast.DeclStmt:
		r.localDecl(s.Decl)

	case *ast.BreakStmt, *ast.ContinueStmt, *ast.DiscardStmt:
	}
}

// store resolves the left-hand side of an assignment, which must be a
// writable reference.
func (r *Resolver) store(lhs ast.Expr) {
	t := r.expr(lhs)
	if t == nil {
		return
	}
	ref, ok := t.(*types.Reference)
	if !ok {
		r.errorf(diagnostic.CodeInvalidDeclaration, lhs.ExprSource(), "cannot assign to value of type '%s'", t)
		return
	}
	if ref.Access == types.AccessRead {
		r.errorf(diagnostic.CodeInvalidAccessMode, lhs.ExprSource(), "cannot store into a read-only type '%s'", ref)
	}
}

func (r *Resolver) localDecl(decl ast.Decl) {
	var v *sem.Variable
	switch d := decl.(type) {
	case *ast.VarDecl:
		v = r.resolveVar(d)
	case *ast.LetDecl:
		v = r.resolveLet(d)
	case *ast.ConstDecl:
		v = r.resolveConst(d)
	default:
		r.errorf(diagnostic.CodeInvalidDeclaration, decl.DeclSource(), "'%s' cannot be declared inside a function", decl.DeclName())
		return
	}
	r.fn.Locals = append(r.fn.Locals, v)
	r.declare(v, v.Source)
}

func (r *Resolver) resolveLet(d *ast.LetDecl) *sem.Variable {
	v := &sem.Variable{
		Name:        d.Name,
		Kind:        sem.VarKindLet,
		Decl:        d,
		Initializer: d.Initializer,
		Source:      d.Source,
		Function:    r.fn,
	}
	initType := r.load(r.expr(d.Initializer))
	if d.Type != nil {
		v.Type = r.resolveType(d.Type)
		v.TypeSource = d.Type.TypeSource()
	} else if initType != nil {
		v.Type = r.sem.Types.Materialize(initType)
	}
	return v
}

// ----------------------------------------------------------------------------
// Expressions
// ----------------------------------------------------------------------------

// load applies the load rule: a reference used as a value yields its store
// type.
func (r *Resolver) load(t types.Type) types.Type {
	return types.UnwrapRef(t)
}

// expr resolves e and records its type. Expressions that denote memory
// have a *types.Reference type. A nil result means an error was reported.
func (r *Resolver) expr(e ast.Expr) types.Type {
	if e == nil {
		return nil
	}
	t := r.exprType(e)
	if t != nil {
		r.sem.ExprTypes[e] = t
	}
	return t
}

func (r *Resolver) exprType(e ast.Expr) types.Type {
	table := r.sem.Types
	switch e := e.(type) {
	case *ast.IdentExpr:
		return r.ident(e)

	case *ast.LiteralExpr:
		return r.literal(e)

	case *ast.ParenExpr:
		return r.expr(e.Expr)

	case *ast.UnaryExpr:
		operand := r.expr(e.Operand)
		if operand == nil {
			return nil
		}
		switch e.Op {
		case ast.UnaryOpAddr:
			ref, ok := operand.(*types.Reference)
			if !ok {
				r.errorf(diagnostic.CodeInvalidDeclaration, e.Source, "cannot take the address of expression")
				return nil
			}
			if ref.AddressSpace == types.AddressSpaceHandle {
				r.errorf(diagnostic.CodeInvalidDeclaration, e.Source, "cannot take the address of expression in handle address space")
				return nil
			}
			return table.Ptr(ref.AddressSpace, ref.Store, ref.Access)
		case ast.UnaryOpDeref:
			ptr, ok := r.load(operand).(*types.Pointer)
			if !ok {
				r.errorf(diagnostic.CodeInvalidDeclaration, e.Source, "cannot dereference expression of type '%s'", r.load(operand))
				return nil
			}
			return table.Ref(ptr.AddressSpace, ptr.Store, ptr.Access)
		case ast.UnaryOpNot:
			if v, ok := r.load(operand).(*types.Vector); ok {
				return table.Vec(v.Width, types.Bool)
			}
			return types.Bool
		default:
			return r.load(operand)
		}

	case *ast.BinaryExpr:
		lhs := r.load(r.expr(e.Left))
		rhs := r.load(r.expr(e.Right))
		if lhs == nil || rhs == nil {
			return nil
		}
		return r.binary(e.Op, lhs, rhs)

	case *ast.CallExpr:
		return r.call(e)

	case *ast.IndexExpr:
		base := r.expr(e.Base)
		r.load(r.expr(e.Index))
		if base == nil {
			return nil
		}
		return r.access(e.Source, base, func(t types.Type) types.Type {
			switch t := t.(type) {
			case *types.Array:
				return t.Element
			case *types.Vector:
				return t.Element
			case *types.Matrix:
				return t.Column
			}
			r.errorf(diagnostic.CodeInvalidDeclaration, e.Source, "cannot index type '%s'", t)
			return nil
		})

	case *ast.MemberExpr:
		base := r.expr(e.Base)
		if base == nil {
			return nil
		}
		return r.access(e.Source, base, func(t types.Type) types.Type {
			switch t := t.(type) {
			case *types.Struct:
				if m := t.Member(e.Member); m != nil {
					return m.Type
				}
				r.errorf(diagnostic.CodeUndefinedSymbol, e.Source, "struct member %s not found", e.Member)
				return nil
			case *types.Vector:
				return r.swizzle(e, t)
			}
			r.errorf(diagnostic.CodeInvalidDeclaration, e.Source, "invalid member accessor expression on type '%s'", t)
			return nil
		})
	}
	return nil
}

// access applies a component selection to base. The result is a reference
// when base is a reference (or a pointer, which is implicitly dereferenced)
// and a value otherwise. Multi-component swizzles always produce values.
func (r *Resolver) access(src diagnostic.Source, base types.Type, sel func(types.Type) types.Type) types.Type {
	table := r.sem.Types
	switch b := base.(type) {
	case *types.Reference:
		elem := sel(b.Store)
		if elem == nil {
			return nil
		}
		if isSwizzle(b.Store, elem) {
			return elem
		}
		return table.Ref(b.AddressSpace, elem, b.Access)
	case *types.Pointer:
		elem := sel(b.Store)
		if elem == nil {
			return nil
		}
		if isSwizzle(b.Store, elem) {
			return elem
		}
		return table.Ref(b.AddressSpace, elem, b.Access)
	}
	return sel(base)
}

func isSwizzle(store, elem types.Type) bool {
	_, vec := store.(*types.Vector)
	_, multi := elem.(*types.Vector)
	return vec && multi
}

func (r *Resolver) swizzle(e *ast.MemberExpr, v *types.Vector) types.Type {
	n := len(e.Member)
	if n < 1 || n > 4 {
		r.errorf(diagnostic.CodeInvalidDeclaration, e.Source, "invalid vector swizzle size")
		return nil
	}
	rgba := strings.IndexAny(e.Member, "rgba") >= 0
	xyzw := strings.IndexAny(e.Member, "xyzw") >= 0
	for _, c := range e.Member {
		i := strings.IndexRune("xyzw", c)
		if i < 0 {
			i = strings.IndexRune("rgba", c)
		}
		if i < 0 || i >= v.Width || (rgba && xyzw) {
			r.errorf(diagnostic.CodeInvalidDeclaration, e.Source, "invalid vector swizzle member")
			return nil
		}
	}
	if n == 1 {
		return v.Element
	}
	return r.sem.Types.Vec(n, v.Element)
}

func (r *Resolver) ident(e *ast.IdentExpr) types.Type {
	obj := r.lookupObject(e.Name, e.Source)
	if obj == nil {
		return nil
	}
	r.sem.Refs[e] = obj

	switch o := obj.(type) {
	case *sem.Variable:
		if o.Type == nil {
			return nil
		}
		if o.Kind == sem.VarKindVar {
			return r.sem.Types.Ref(o.EffectiveSpace(), o.Type, o.EffectiveAccess())
		}
		return o.Type
	case *sem.Parameter:
		return o.Type
	case *sem.Function:
		r.errorf(diagnostic.CodeInvalidDeclaration, e.Source, "cannot use function '%s' as value", o.Name)
	}
	return nil
}

// lookupObject finds what name refers to at the current scope. Module-scope
// variables are resolved on demand.
func (r *Resolver) lookupObject(name string, src diagnostic.Source) sem.Object {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if obj, ok := r.scopes[i][name]; ok {
			return obj
		}
	}
	switch d := r.decls[name].(type) {
	case *ast.VarDecl, *ast.ConstDecl, *ast.OverrideDecl:
		if v := r.global(d); v != nil {
			return v
		}
		return nil
	case *ast.FunctionDecl:
		if f := r.funcs[name]; f != nil {
			return f
		}
	case *ast.StructDecl, *ast.AliasDecl:
		r.errorf(diagnostic.CodeInvalidDeclaration, src, "cannot use type '%s' as value", name)
		return nil
	}
	r.errorf(diagnostic.CodeUndefinedSymbol, src, "unresolved identifier '%s'", name)
	return nil
}

func (r *Resolver) literal(e *ast.LiteralExpr) types.Type {
	switch e.Kind {
	case ast.LiteralBool:
		return types.Bool
	case ast.LiteralInt:
		switch {
		case strings.HasSuffix(e.Value, "u"):
			return types.U32
		case strings.HasSuffix(e.Value, "i"):
			return types.I32
		}
		return types.AbstractInt
	case ast.LiteralFloat:
		switch {
		case strings.HasSuffix(e.Value, "h"):
			r.feature("f16", extension.F16, e.Source)
			return types.F16
		case strings.HasSuffix(e.Value, "f") && !strings.HasPrefix(e.Value, "0x"):
			return types.F32
		}
		return types.AbstractFloat
	}
	return nil
}

// binary computes the result type of a binary operator. Operand types are
// assumed compatible; overload checking is not performed.
func (r *Resolver) binary(op ast.BinaryOp, lhs, rhs types.Type) types.Type {
	table := r.sem.Types
	switch op {
	case ast.BinOpEq, ast.BinOpNe, ast.BinOpLt, ast.BinOpLe, ast.BinOpGt, ast.BinOpGe:
		if v, ok := lhs.(*types.Vector); ok {
			return table.Vec(v.Width, types.Bool)
		}
		return types.Bool
	case ast.BinOpLogicalAnd, ast.BinOpLogicalOr:
		return types.Bool
	case ast.BinOpShl, ast.BinOpShr:
		return lhs
	}

	lm, lIsMat := lhs.(*types.Matrix)
	rm, rIsMat := rhs.(*types.Matrix)
	lv, lIsVec := lhs.(*types.Vector)
	rv, rIsVec := rhs.(*types.Vector)
	if op == ast.BinOpMul {
		switch {
		case lIsMat && rIsVec:
			return table.Vec(lm.Rows, lm.Element)
		case lIsVec && rIsMat:
			return table.Vec(rm.Cols, rm.Element)
		case lIsMat && rIsMat:
			return table.Mat(rm.Cols, lm.Rows, lm.Element)
		}
	}
	switch {
	case lIsMat:
		return lhs
	case rIsMat:
		return rhs
	case lIsVec && (lv.IsConcrete() || !rhs.IsConcrete()):
		return lhs
	case rIsVec:
		if s, ok := lhs.(*types.Scalar); ok && !rv.IsConcrete() && s.IsConcrete() {
			return table.Vec(rv.Width, s)
		}
		return rhs
	case lIsVec:
		if s, ok := rhs.(*types.Scalar); ok {
			return table.Vec(lv.Width, s)
		}
		return lhs
	case !lhs.IsConcrete() && rhs.IsConcrete():
		return rhs
	}
	return lhs
}

// ----------------------------------------------------------------------------
// Calls
// ----------------------------------------------------------------------------

func (r *Resolver) call(e *ast.CallExpr) types.Type {
	if e.TemplateType != nil {
		t := r.resolveType(e.TemplateType)
		r.args(e.Args)
		return t
	}

	name := e.Func.Name

	if d, ok := r.decls[name].(*ast.FunctionDecl); ok {
		return r.userCall(e, d)
	}

	if t := r.lookupType(name, e.Func.Source, false); t != nil {
		r.args(e.Args)
		return t
	}
	if isTemplateConstructor(name) {
		return r.inferConstructor(name, r.args(e.Args))
	}

	if b := builtins.Lookup(name); b != nil {
		return r.builtinCall(e, b)
	}

	r.errorf(diagnostic.CodeUndefinedSymbol, e.Func.Source, "unresolved call target '%s'", name)
	r.args(e.Args)
	return nil
}

// args resolves call arguments as values.
func (r *Resolver) args(list []ast.Expr) []types.Type {
	out := make([]types.Type, len(list))
	for i, a := range list {
		out[i] = r.load(r.expr(a))
	}
	return out
}

func (r *Resolver) userCall(e *ast.CallExpr, d *ast.FunctionDecl) types.Type {
	args := r.args(e.Args)
	if r.fn == nil {
		r.errorf(diagnostic.CodeInvalidDeclaration, e.Source, "user-declared functions cannot be called at module scope")
		return nil
	}

	target := r.funcs[d.Name]
	r.sem.Refs[e.Func] = target

	want, got := len(target.Params), len(args)
	if got != want {
		which := "few"
		if got > want {
			which = "many"
		}
		r.errorf(diagnostic.CodeInvalidDeclaration, e.Source,
			"too %s arguments in call to '%s', expected %d, got %d", which, d.Name, want, got)
		return nil
	}

	c := &sem.Call{Expr: e, Caller: r.fn, Target: target}
	r.sem.Calls[e] = c
	r.fn.Calls = append(r.fn.Calls, c)
	return target.ReturnType
}

func (r *Resolver) builtinCall(e *ast.CallExpr, b *builtins.Builtin) types.Type {
	args := r.args(e.Args)

	c := &sem.Call{Expr: e, Caller: r.fn, Builtin: b}
	r.sem.Calls[e] = c
	if r.fn != nil {
		r.fn.Calls = append(r.fn.Calls, c)
	}
	return r.builtinResult(b, args)
}

// builtinResult approximates the return type of a builtin from its
// arguments. It is only used to type inferred declarations.
func (r *Resolver) builtinResult(b *builtins.Builtin, args []types.Type) types.Type {
	first := func() types.Type {
		if len(args) > 0 {
			return args[0]
		}
		return nil
	}
	switch b.Kind {
	case builtins.BuiltinAtomic:
		if p, ok := first().(*types.Pointer); ok {
			if a, ok := p.Store.(*types.Atomic); ok && b.Name != "atomicStore" {
				return a.Element
			}
		}
		return nil
	case builtins.BuiltinArray:
		return types.U32
	case builtins.BuiltinLogical:
		if b.Name == "select" {
			return first()
		}
		return types.Bool
	case builtins.BuiltinTexture:
		switch b.Name {
		case "textureStore", "textureDimensions":
			return nil
		case "textureNumLayers", "textureNumLevels", "textureNumSamples":
			return types.U32
		}
		return r.sem.Types.Vec(4, types.F32)
	case builtins.BuiltinSynchronization:
		if p, ok := first().(*types.Pointer); ok && b.Name == "workgroupUniformLoad" {
			return p.Store
		}
		return nil
	case builtins.BuiltinSubgroupMatrix:
		return nil
	}
	switch b.Name {
	case "dot", "length", "distance", "determinant":
		if v, ok := first().(*types.Vector); ok {
			return v.Element
		}
	}
	return first()
}

// inferConstructor types vec3(...), array(...) and matCxR(...) from their
// arguments.
func (r *Resolver) inferConstructor(name string, args []types.Type) types.Type {
	table := r.sem.Types
	var elem types.Type = types.AbstractInt
	if len(args) > 0 && args[0] != nil {
		elem = args[0]
	}
	if name == "array" {
		if len(args) == 0 {
			return nil
		}
		return table.Array(elem, len(args), 0)
	}

	var scalar *types.Scalar
	switch t := elem.(type) {
	case *types.Scalar:
		scalar = t
	case *types.Vector:
		scalar = t.Element
	case *types.Matrix:
		scalar = t.Element
	default:
		return nil
	}

	if strings.HasPrefix(name, "vec") {
		return table.Vec(int(name[3]-'0'), scalar)
	}
	if !scalar.IsFloat() {
		scalar = types.AbstractFloat
	}
	return table.Mat(int(name[3]-'0'), int(name[5]-'0'), scalar)
}
