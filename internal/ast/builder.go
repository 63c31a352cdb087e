package ast

import (
	"strconv"
	"strings"

	"github.com/HugoDaniel/wgslcheck/internal/types"
)

// Builder constructs a Module programmatically. Declarations created with
// Struct, Alias, GlobalVar, GlobalConst, Override and Func are appended to
// the module in call order; everything else returns a detached node.
//
//	b := ast.NewBuilder()
//	b.Struct(ast.Src(1, 1), "S",
//		b.Member(ast.Src(2, 3), "a", b.F32(), b.MemberSize(5)),
//		b.Member(ast.Src(3, 3), "b", b.F32(), b.MemberAlign(1)),
//	)
//	b.GlobalVar(ast.Src(5, 1), "x", b.Ty("S"), types.AddressSpaceStorage, b.Group(0), b.Binding(0))
//	mod := b.Module()
type Builder struct {
	mod *Module
}

// NewBuilder creates a builder for an empty module.
func NewBuilder() *Builder {
	return &Builder{mod: &Module{}}
}

// Module returns the module built so far.
func (b *Builder) Module() *Module {
	return b.mod
}

// Enable adds an enable directive.
func (b *Builder) Enable(src Source, features ...string) *EnableDirective {
	d := &EnableDirective{Source: src, Features: features}
	b.mod.Enables = append(b.mod.Enables, d)
	return d
}

func (b *Builder) add(d Decl) {
	b.mod.Declarations = append(b.mod.Declarations, d)
}

// ----------------------------------------------------------------------------
// Types
// ----------------------------------------------------------------------------

// Ty returns a named type reference.
func (b *Builder) Ty(name string) *IdentType { return &IdentType{Name: name} }

func (b *Builder) Bool() *IdentType { return b.Ty("bool") }
func (b *Builder) I32() *IdentType  { return b.Ty("i32") }
func (b *Builder) U32() *IdentType  { return b.Ty("u32") }
func (b *Builder) F32() *IdentType  { return b.Ty("f32") }
func (b *Builder) F16() *IdentType  { return b.Ty("f16") }

// Vec returns vecN<elem>.
func (b *Builder) Vec(n int, elem Type) *VecType {
	return &VecType{Size: n, ElemType: elem}
}

// Mat returns matCxR<elem>.
func (b *Builder) Mat(cols, rows int, elem Type) *MatType {
	return &MatType{Cols: cols, Rows: rows, ElemType: elem}
}

// Array returns array<elem, count>. Attributes carry @stride.
func (b *Builder) Array(elem Type, count int, attrs ...*Attribute) *ArrayType {
	return &ArrayType{ElemType: elem, Size: b.Int(count), Attributes: attrs}
}

// RuntimeArray returns array<elem>.
func (b *Builder) RuntimeArray(elem Type, attrs ...*Attribute) *ArrayType {
	return &ArrayType{ElemType: elem, Attributes: attrs}
}

// Atomic returns atomic<elem>.
func (b *Builder) Atomic(elem Type) *AtomicType {
	return &AtomicType{ElemType: elem}
}

// Ptr returns ptr<space, elem[, access]>. Pass types.AccessUndefined to
// leave the access mode unwritten.
func (b *Builder) Ptr(space types.AddressSpace, elem Type, access types.Access) *PtrType {
	return &PtrType{AddressSpace: space, ElemType: elem, Access: access}
}

// Sampler returns sampler or sampler_comparison.
func (b *Builder) Sampler(comparison bool) *SamplerType {
	return &SamplerType{Comparison: comparison}
}

// SampledTexture returns a sampled texture such as texture_2d<f32>.
func (b *Builder) SampledTexture(name string, sampled Type) *TextureType {
	return &TextureType{Name: name, SampledType: sampled}
}

// StorageTexture returns a storage texture such as
// texture_storage_2d<rgba8unorm, write>.
func (b *Builder) StorageTexture(name, format string, access types.Access) *TextureType {
	return &TextureType{Name: name, TexelFormat: format, Access: access}
}

// SubgroupMatrix returns subgroup_matrix_<kind><elem, cols, rows>.
func (b *Builder) SubgroupMatrix(kind types.SubgroupMatrixKind, elem Type, cols, rows int) *SubgroupMatrixType {
	return &SubgroupMatrixType{Kind: kind, ElemType: elem, Cols: cols, Rows: rows}
}

// TexelBuffer returns texel_buffer<format, access>.
func (b *Builder) TexelBuffer(format string, access types.Access) *TexelBufferType {
	return &TexelBufferType{Format: format, Access: access}
}

// At sets the source of a type expression and returns it.
func At[T Type](src Source, t T) T {
	switch t := any(t).(type) {
	case *IdentType:
		t.Source = src
	case *VecType:
		t.Source = src
	case *MatType:
		t.Source = src
	case *ArrayType:
		t.Source = src
	case *PtrType:
		t.Source = src
	case *AtomicType:
		t.Source = src
	case *SamplerType:
		t.Source = src
	case *TextureType:
		t.Source = src
	case *SubgroupMatrixType:
		t.Source = src
	case *TexelBufferType:
		t.Source = src
	}
	return t
}

// ----------------------------------------------------------------------------
// Attributes
// ----------------------------------------------------------------------------

// Attr returns @name(args...) with integer arguments.
func (b *Builder) Attr(name string, args ...int) *Attribute {
	a := &Attribute{Name: name}
	for _, v := range args {
		a.Args = append(a.Args, b.Int(v))
	}
	return a
}

// AttrAt sets the source of an attribute and returns it.
func AttrAt(src Source, a *Attribute) *Attribute {
	a.Source = src
	return a
}

func (b *Builder) Group(n int) *Attribute        { return b.Attr("group", n) }
func (b *Builder) Binding(n int) *Attribute      { return b.Attr("binding", n) }
func (b *Builder) MemberAlign(n int) *Attribute  { return b.Attr("align", n) }
func (b *Builder) MemberSize(n int) *Attribute   { return b.Attr("size", n) }
func (b *Builder) MemberOffset(n int) *Attribute { return b.Attr("offset", n) }
func (b *Builder) Stride(n int) *Attribute       { return b.Attr("stride", n) }
func (b *Builder) Location(n int) *Attribute     { return b.Attr("location", n) }
func (b *Builder) BlendSrc(n int) *Attribute     { return b.Attr("blend_src", n) }
func (b *Builder) Color(n int) *Attribute        { return b.Attr("color", n) }
func (b *Builder) ID(n int) *Attribute           { return b.Attr("id", n) }

// Builtin returns @builtin(name).
func (b *Builder) Builtin(name string) *Attribute {
	return &Attribute{Name: "builtin", Args: []Expr{b.Expr(name)}}
}

// Stage returns a shader stage attribute: @compute, @vertex or @fragment.
func (b *Builder) Stage(stage string) *Attribute {
	return &Attribute{Name: stage}
}

// WorkgroupSize returns @workgroup_size(dims...).
func (b *Builder) WorkgroupSize(dims ...int) *Attribute {
	return b.Attr("workgroup_size", dims...)
}

// ----------------------------------------------------------------------------
// Declarations
// ----------------------------------------------------------------------------

// Struct declares a struct.
func (b *Builder) Struct(src Source, name string, members ...*StructMember) *StructDecl {
	d := &StructDecl{Source: src, Name: name, Members: members}
	b.add(d)
	return d
}

// Member returns a struct member.
func (b *Builder) Member(src Source, name string, ty Type, attrs ...*Attribute) *StructMember {
	return &StructMember{Source: src, Name: name, Type: ty, Attributes: attrs}
}

// Alias declares a type alias.
func (b *Builder) Alias(src Source, name string, ty Type) *AliasDecl {
	d := &AliasDecl{Source: src, Name: name, Type: ty}
	b.add(d)
	return d
}

// VarOption configures a variable declaration. *Attribute is a VarOption
// that appends itself to the declaration's attributes.
type VarOption interface {
	applyVar(*VarDecl)
}

type accessOption types.Access

func (o accessOption) applyVar(v *VarDecl) { v.Access = types.Access(o) }

type initOption struct{ e Expr }

func (o initOption) applyVar(v *VarDecl) { v.Initializer = o.e }

func (a *Attribute) applyVar(v *VarDecl) { v.Attributes = append(v.Attributes, a) }

// WithAccess sets an explicit access mode on a variable.
func WithAccess(a types.Access) VarOption { return accessOption(a) }

// WithInit sets a variable's initializer.
func WithInit(e Expr) VarOption { return initOption{e} }

// GlobalVar declares a module-scope var. A nil type is inferred from the
// initializer.
func (b *Builder) GlobalVar(src Source, name string, ty Type, space types.AddressSpace, opts ...VarOption) *VarDecl {
	d := &VarDecl{Source: src, Name: name, Type: ty, AddressSpace: space}
	for _, o := range opts {
		o.applyVar(d)
	}
	b.add(d)
	return d
}

// GlobalConst declares a module-scope const.
func (b *Builder) GlobalConst(src Source, name string, ty Type, init Expr) *ConstDecl {
	d := &ConstDecl{Source: src, Name: name, Type: ty, Initializer: init}
	b.add(d)
	return d
}

// Override declares a pipeline-overridable constant.
func (b *Builder) Override(src Source, name string, ty Type, init Expr, attrs ...*Attribute) *OverrideDecl {
	d := &OverrideDecl{Source: src, Name: name, Type: ty, Initializer: init, Attributes: attrs}
	b.add(d)
	return d
}

// Func declares a function. A nil ret declares a function without a
// return type.
func (b *Builder) Func(src Source, name string, params []*Parameter, ret Type, body []Stmt, attrs ...*Attribute) *FunctionDecl {
	d := &FunctionDecl{
		Source:     src,
		Name:       name,
		Parameters: params,
		ReturnType: ret,
		Body:       b.Block(body...),
		Attributes: attrs,
	}
	b.add(d)
	return d
}

// Params is a convenience for building a parameter list.
func Params(params ...*Parameter) []*Parameter { return params }

// Body is a convenience for building a statement list.
func Body(stmts ...Stmt) []Stmt { return stmts }

// Param returns a function parameter.
func (b *Builder) Param(src Source, name string, ty Type, attrs ...*Attribute) *Parameter {
	return &Parameter{Source: src, Name: name, Type: ty, Attributes: attrs}
}

// ----------------------------------------------------------------------------
// Statements
// ----------------------------------------------------------------------------

// Block returns a compound statement.
func (b *Builder) Block(stmts ...Stmt) *CompoundStmt {
	return &CompoundStmt{Stmts: stmts}
}

// Var declares a function-scope var.
func (b *Builder) Var(src Source, name string, ty Type, init Expr) *DeclStmt {
	return &DeclStmt{Decl: &VarDecl{Source: src, Name: name, Type: ty, Initializer: init}}
}

// Let declares a function-scope let.
func (b *Builder) Let(src Source, name string, ty Type, init Expr) *DeclStmt {
	return &DeclStmt{Decl: &LetDecl{Source: src, Name: name, Type: ty, Initializer: init}}
}

// Const declares a function-scope const.
func (b *Builder) Const(src Source, name string, ty Type, init Expr) *DeclStmt {
	return &DeclStmt{Decl: &ConstDecl{Source: src, Name: name, Type: ty, Initializer: init}}
}

// Assign returns lhs = rhs.
func (b *Builder) Assign(src Source, lhs, rhs Expr) *AssignStmt {
	return &AssignStmt{Source: src, Op: AssignOpSimple, Left: lhs, Right: rhs}
}

// CompoundAssign returns lhs op= rhs.
func (b *Builder) CompoundAssign(src Source, lhs Expr, op AssignOp, rhs Expr) *AssignStmt {
	return &AssignStmt{Source: src, Op: op, Left: lhs, Right: rhs}
}

// Phony returns _ = rhs.
func (b *Builder) Phony(src Source, rhs Expr) *AssignStmt {
	return &AssignStmt{Source: src, Op: AssignOpSimple, Right: rhs}
}

// Increment returns e++.
func (b *Builder) Increment(src Source, e Expr) *IncrDecrStmt {
	return &IncrDecrStmt{Source: src, Expr: e, Increment: true}
}

// Decrement returns e--.
func (b *Builder) Decrement(src Source, e Expr) *IncrDecrStmt {
	return &IncrDecrStmt{Source: src, Expr: e}
}

// CallStmt wraps a call expression as a statement.
func (b *Builder) CallStmt(call *CallExpr) *CallStmt {
	return &CallStmt{Source: call.Source, Call: call}
}

// Return returns a return statement. A nil value is a bare return.
func (b *Builder) Return(src Source, value Expr) *ReturnStmt {
	return &ReturnStmt{Source: src, Value: value}
}

// If returns if (cond) body [else els].
func (b *Builder) If(src Source, cond Expr, body *CompoundStmt, els Stmt) *IfStmt {
	return &IfStmt{Source: src, Condition: cond, Body: body, Else: els}
}

// Loop returns loop { body continuing { continuing } }.
func (b *Builder) Loop(src Source, body, continuing *CompoundStmt) *LoopStmt {
	return &LoopStmt{Source: src, Body: body, Continuing: continuing}
}

// For returns for (init; cond; update) body.
func (b *Builder) For(src Source, init Stmt, cond Expr, update Stmt, body *CompoundStmt) *ForStmt {
	return &ForStmt{Source: src, Init: init, Condition: cond, Update: update, Body: body}
}

// While returns while (cond) body.
func (b *Builder) While(src Source, cond Expr, body *CompoundStmt) *WhileStmt {
	return &WhileStmt{Source: src, Condition: cond, Body: body}
}

// Switch returns switch (e) { cases }.
func (b *Builder) Switch(src Source, e Expr, cases ...*SwitchCase) *SwitchStmt {
	return &SwitchStmt{Source: src, Expr: e, Cases: cases}
}

// Case returns a case clause. Nil selectors make it the default clause.
func (b *Builder) Case(src Source, selectors []Expr, body *CompoundStmt) *SwitchCase {
	return &SwitchCase{Source: src, Selectors: selectors, Body: body}
}

func (b *Builder) Break(src Source) *BreakStmt       { return &BreakStmt{Source: src} }
func (b *Builder) Continue(src Source) *ContinueStmt { return &ContinueStmt{Source: src} }
func (b *Builder) Discard(src Source) *DiscardStmt   { return &DiscardStmt{Source: src} }

// BreakIf returns break if cond.
func (b *Builder) BreakIf(src Source, cond Expr) *BreakIfStmt {
	return &BreakIfStmt{Source: src, Condition: cond}
}

// ----------------------------------------------------------------------------
// Expressions
// ----------------------------------------------------------------------------

// Ident returns an identifier expression.
func (b *Builder) Ident(src Source, name string) *IdentExpr {
	return &IdentExpr{Source: src, Name: name}
}

// Expr returns an identifier expression without a source.
func (b *Builder) Expr(name string) *IdentExpr {
	return &IdentExpr{Name: name}
}

// Int returns an abstract-int literal.
func (b *Builder) Int(v int) *LiteralExpr {
	return &LiteralExpr{Kind: LiteralInt, Value: strconv.Itoa(v)}
}

// Uint returns a u32 literal (1u).
func (b *Builder) Uint(v uint32) *LiteralExpr {
	return &LiteralExpr{Kind: LiteralInt, Value: strconv.FormatUint(uint64(v), 10) + "u"}
}

// Float returns an abstract-float literal.
func (b *Builder) Float(v float64) *LiteralExpr {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return &LiteralExpr{Kind: LiteralFloat, Value: s}
}

// BoolLit returns true or false.
func (b *Builder) BoolLit(v bool) *LiteralExpr {
	return &LiteralExpr{Kind: LiteralBool, Value: strconv.FormatBool(v)}
}

// AddressOf returns &e.
func (b *Builder) AddressOf(src Source, e Expr) *UnaryExpr {
	return &UnaryExpr{Source: src, Op: UnaryOpAddr, Operand: e}
}

// Deref returns *e.
func (b *Builder) Deref(src Source, e Expr) *UnaryExpr {
	return &UnaryExpr{Source: src, Op: UnaryOpDeref, Operand: e}
}

// Unary returns op e.
func (b *Builder) Unary(src Source, op UnaryOp, e Expr) *UnaryExpr {
	return &UnaryExpr{Source: src, Op: op, Operand: e}
}

// Binary returns l op r.
func (b *Builder) Binary(src Source, op BinaryOp, l, r Expr) *BinaryExpr {
	return &BinaryExpr{Source: src, Op: op, Left: l, Right: r}
}

// Add returns l + r.
func (b *Builder) Add(src Source, l, r Expr) *BinaryExpr {
	return b.Binary(src, BinOpAdd, l, r)
}

// MemberAccessor returns e.name.
func (b *Builder) MemberAccessor(src Source, e Expr, name string) *MemberExpr {
	return &MemberExpr{Source: src, Base: e, Member: name}
}

// IndexAccessor returns e[idx].
func (b *Builder) IndexAccessor(src Source, e, idx Expr) *IndexExpr {
	return &IndexExpr{Source: src, Base: e, Index: idx}
}

// Paren returns (e).
func (b *Builder) Paren(src Source, e Expr) *ParenExpr {
	return &ParenExpr{Source: src, Expr: e}
}

// Call returns a call to a function or builtin.
func (b *Builder) Call(src Source, name string, args ...Expr) *CallExpr {
	return &CallExpr{Source: src, Func: &IdentExpr{Source: src, Name: name}, Args: args}
}

// Construct returns a templated value constructor such as vec3<f32>(...).
func (b *Builder) Construct(src Source, ty Type, args ...Expr) *CallExpr {
	return &CallExpr{Source: src, TemplateType: ty, Args: args}
}
