// Package ast defines the resolved program model that layout, address-space
// and aliasing validation run over.
//
// The model mirrors a WGSL module after parsing: declarations in source
// order, type expressions, attributes, and function bodies made of
// statements and expressions. Every node that a diagnostic can point at
// carries the Source of the construct in the original WGSL text. Names are
// plain strings; the resolver binds them to declarations using WGSL scoping.
package ast

import (
	"strconv"
	"strings"

	"github.com/HugoDaniel/wgslcheck/internal/diagnostic"
	"github.com/HugoDaniel/wgslcheck/internal/types"
)

// Source is a 1-based line/column position in the original WGSL text.
type Source = diagnostic.Source

// Src returns the source position line:col.
func Src(line, col int) Source {
	return Source{Line: line, Column: col}
}

// ----------------------------------------------------------------------------
// Module (Top Level)
// ----------------------------------------------------------------------------

// Module represents a complete WGSL module.
type Module struct {
	// Path of the file the module was read from (for error messages).
	Path string

	// Directives and top-level declarations in order.
	Enables      []*EnableDirective
	Declarations []Decl
}

// EnableDirective represents: enable feature1, feature2;
type EnableDirective struct {
	Source   Source
	Features []string
}

// ----------------------------------------------------------------------------
// Declarations
// ----------------------------------------------------------------------------

// Decl represents a top-level or local declaration.
type Decl interface {
	DeclName() string
	DeclSource() Source
	isDecl()
}

// ConstDecl represents: const name [: type] = expr;
type ConstDecl struct {
	Source      Source
	Name        string
	Type        Type // nil if inferred
	Initializer Expr
}

// OverrideDecl represents: @id(n) override name [: type] [= expr];
type OverrideDecl struct {
	Source      Source
	Attributes  []*Attribute
	Name        string
	Type        Type // nil if inferred
	Initializer Expr // nil if no default
}

// VarDecl represents: @group(g) @binding(b) var<space, access> name [: type] [= expr];
type VarDecl struct {
	Source       Source
	Attributes   []*Attribute
	AddressSpace types.AddressSpace
	Access       types.Access
	Name         string
	Type         Type // nil if inferred
	Initializer  Expr // nil if no initializer
}

// LetDecl represents: let name [: type] = expr;
type LetDecl struct {
	Source      Source
	Name        string
	Type        Type // nil if inferred
	Initializer Expr
}

// FunctionDecl represents a function declaration.
type FunctionDecl struct {
	Source     Source
	Attributes []*Attribute
	Name       string
	Parameters []*Parameter
	ReturnType Type // nil for void
	Body       *CompoundStmt
}

// Parameter represents a function parameter.
type Parameter struct {
	Source     Source
	Attributes []*Attribute
	Name       string
	Type       Type
}

// StructDecl represents: struct Name { members }
type StructDecl struct {
	Source  Source
	Name    string
	Members []*StructMember
}

// StructMember represents a struct field.
type StructMember struct {
	Source     Source
	Attributes []*Attribute
	Name       string
	Type       Type
}

// AliasDecl represents: alias Name = Type;
type AliasDecl struct {
	Source Source
	Name   string
	Type   Type
}

func (d *ConstDecl) DeclName() string    { return d.Name }
func (d *OverrideDecl) DeclName() string { return d.Name }
func (d *VarDecl) DeclName() string      { return d.Name }
func (d *LetDecl) DeclName() string      { return d.Name }
func (d *FunctionDecl) DeclName() string { return d.Name }
func (d *StructDecl) DeclName() string   { return d.Name }
func (d *AliasDecl) DeclName() string    { return d.Name }

func (d *ConstDecl) DeclSource() Source    { return d.Source }
func (d *OverrideDecl) DeclSource() Source { return d.Source }
func (d *VarDecl) DeclSource() Source      { return d.Source }
func (d *LetDecl) DeclSource() Source      { return d.Source }
func (d *FunctionDecl) DeclSource() Source { return d.Source }
func (d *StructDecl) DeclSource() Source   { return d.Source }
func (d *AliasDecl) DeclSource() Source    { return d.Source }

func (*ConstDecl) isDecl()    {}
func (*OverrideDecl) isDecl() {}
func (*VarDecl) isDecl()      {}
func (*LetDecl) isDecl()      {}
func (*FunctionDecl) isDecl() {}
func (*StructDecl) isDecl()   {}
func (*AliasDecl) isDecl()    {}

// ----------------------------------------------------------------------------
// Attributes
// ----------------------------------------------------------------------------

// Attribute represents a WGSL attribute (@name or @name(args)).
type Attribute struct {
	Source Source
	Name   string
	Args   []Expr // nil for attributes without arguments
}

// IntArg returns the i'th argument as an integer if it is an integer literal.
func (a *Attribute) IntArg(i int) (int, bool) {
	if i >= len(a.Args) {
		return 0, false
	}
	lit, ok := a.Args[i].(*LiteralExpr)
	if !ok || lit.Kind != LiteralInt {
		return 0, false
	}
	return lit.Int()
}

// IdentArg returns the i'th argument's name if it is an identifier.
func (a *Attribute) IdentArg(i int) (string, bool) {
	if i >= len(a.Args) {
		return "", false
	}
	id, ok := a.Args[i].(*IdentExpr)
	if !ok {
		return "", false
	}
	return id.Name, true
}

// FindAttribute returns the first attribute with the given name, or nil.
func FindAttribute(attrs []*Attribute, name string) *Attribute {
	for _, a := range attrs {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// ----------------------------------------------------------------------------
// Types
// ----------------------------------------------------------------------------

// Type represents a WGSL type expression.
type Type interface {
	TypeSource() Source
	isType()
}

// IdentType represents a type name: a scalar (i32, f32, ...), a predeclared
// alias (vec3f, mat4x4h, ...), a struct or a user alias.
type IdentType struct {
	Source Source
	Name   string
}

// VecType represents vec2<T>, vec3<T>, vec4<T>.
type VecType struct {
	Source   Source
	Size     int
	ElemType Type
}

// MatType represents matCxR<T>.
type MatType struct {
	Source   Source
	Cols     int
	Rows     int
	ElemType Type
}

// ArrayType represents array<T, N> or array<T>. Attributes holds @stride.
type ArrayType struct {
	Source     Source
	Attributes []*Attribute
	ElemType   Type
	Size       Expr // nil for runtime-sized arrays
}

// PtrType represents ptr<space, T, access>.
type PtrType struct {
	Source       Source
	AddressSpace types.AddressSpace
	ElemType     Type
	Access       types.Access
}

// AtomicType represents atomic<T>.
type AtomicType struct {
	Source   Source
	ElemType Type
}

// SamplerType represents sampler or sampler_comparison.
type SamplerType struct {
	Source     Source
	Comparison bool
}

// TextureType represents texture types. Name is the WGSL keyword, e.g.
// texture_2d or texture_storage_2d.
type TextureType struct {
	Source      Source
	Name        string
	SampledType Type   // For sampled textures
	TexelFormat string // For storage textures
	Access      types.Access
}

// SubgroupMatrixType represents subgroup_matrix_{left,right,result}<T, C, R>.
type SubgroupMatrixType struct {
	Source   Source
	Kind     types.SubgroupMatrixKind
	ElemType Type
	Cols     int
	Rows     int
}

// TexelBufferType represents texel_buffer<format, access>.
type TexelBufferType struct {
	Source Source
	Format string
	Access types.Access
}

func (t *IdentType) TypeSource() Source          { return t.Source }
func (t *VecType) TypeSource() Source            { return t.Source }
func (t *MatType) TypeSource() Source            { return t.Source }
func (t *ArrayType) TypeSource() Source          { return t.Source }
func (t *PtrType) TypeSource() Source            { return t.Source }
func (t *AtomicType) TypeSource() Source         { return t.Source }
func (t *SamplerType) TypeSource() Source        { return t.Source }
func (t *TextureType) TypeSource() Source        { return t.Source }
func (t *SubgroupMatrixType) TypeSource() Source { return t.Source }
func (t *TexelBufferType) TypeSource() Source    { return t.Source }

func (*IdentType) isType()          {}
func (*VecType) isType()            {}
func (*MatType) isType()            {}
func (*ArrayType) isType()          {}
func (*PtrType) isType()            {}
func (*AtomicType) isType()         {}
func (*SamplerType) isType()        {}
func (*TextureType) isType()        {}
func (*SubgroupMatrixType) isType() {}
func (*TexelBufferType) isType()    {}

// ----------------------------------------------------------------------------
// Expressions
// ----------------------------------------------------------------------------

// Expr represents an expression.
type Expr interface {
	ExprSource() Source
	isExpr()
}

// IdentExpr represents an identifier reference.
type IdentExpr struct {
	Source Source
	Name   string
}

// LiteralKind is the kind of a literal expression.
type LiteralKind uint8

const (
	LiteralInt LiteralKind = iota
	LiteralFloat
	LiteralBool
)

// LiteralExpr represents a literal value.
type LiteralExpr struct {
	Source Source
	Kind   LiteralKind
	Value  string // Raw literal text, including any suffix (1u, 2.0h)
}

// Int parses an integer literal, ignoring an i or u suffix.
func (e *LiteralExpr) Int() (int, bool) {
	if e.Kind != LiteralInt {
		return 0, false
	}
	v, err := strconv.ParseInt(strings.TrimRight(e.Value, "iu"), 0, 64)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

// BinaryExpr represents a binary operation.
type BinaryExpr struct {
	Source Source
	Op     BinaryOp
	Left   Expr
	Right  Expr
}

// BinaryOp represents binary operators.
type BinaryOp uint8

const (
	BinOpAdd        BinaryOp = iota // +
	BinOpSub                        // -
	BinOpMul                        // *
	BinOpDiv                        // /
	BinOpMod                        // %
	BinOpAnd                        // &
	BinOpOr                         // |
	BinOpXor                        // ^
	BinOpShl                        // <<
	BinOpShr                        // >>
	BinOpLogicalAnd                 // &&
	BinOpLogicalOr                  // ||
	BinOpEq                         // ==
	BinOpNe                         // !=
	BinOpLt                         // <
	BinOpLe                         // <=
	BinOpGt                         // >
	BinOpGe                         // >=
)

// UnaryExpr represents a unary operation.
type UnaryExpr struct {
	Source  Source
	Op      UnaryOp
	Operand Expr
}

// UnaryOp represents unary operators.
type UnaryOp uint8

const (
	UnaryOpNeg    UnaryOp = iota // -
	UnaryOpNot                   // !
	UnaryOpBitNot                // ~
	UnaryOpDeref                 // *
	UnaryOpAddr                  // &
)

// CallExpr represents a function call, builtin call or type constructor.
type CallExpr struct {
	Source       Source
	Func         *IdentExpr // nil if TemplateType is set
	TemplateType Type       // For templated constructors: array<T, N>, vec2<T>, etc.
	Args         []Expr
}

// IndexExpr represents array/vector indexing: base[index]
type IndexExpr struct {
	Source Source
	Base   Expr
	Index  Expr
}

// MemberExpr represents member access or a swizzle: base.member
type MemberExpr struct {
	Source Source
	Base   Expr
	Member string
}

// ParenExpr represents a parenthesized expression.
type ParenExpr struct {
	Source Source
	Expr   Expr
}

func (e *IdentExpr) ExprSource() Source   { return e.Source }
func (e *LiteralExpr) ExprSource() Source { return e.Source }
func (e *BinaryExpr) ExprSource() Source  { return e.Source }
func (e *UnaryExpr) ExprSource() Source   { return e.Source }
func (e *CallExpr) ExprSource() Source    { return e.Source }
func (e *IndexExpr) ExprSource() Source   { return e.Source }
func (e *MemberExpr) ExprSource() Source  { return e.Source }
func (e *ParenExpr) ExprSource() Source   { return e.Source }

func (*IdentExpr) isExpr()   {}
func (*LiteralExpr) isExpr() {}
func (*BinaryExpr) isExpr()  {}
func (*UnaryExpr) isExpr()   {}
func (*CallExpr) isExpr()    {}
func (*IndexExpr) isExpr()   {}
func (*MemberExpr) isExpr()  {}
func (*ParenExpr) isExpr()   {}

// ----------------------------------------------------------------------------
// Statements
// ----------------------------------------------------------------------------

// Stmt represents a statement.
type Stmt interface {
	isStmt()
}

// CompoundStmt represents a block of statements: { stmts }
type CompoundStmt struct {
	Source Source
	Stmts  []Stmt
}

// ReturnStmt represents: return [expr];
type ReturnStmt struct {
	Source Source
	Value  Expr // nil for bare return
}

// IfStmt represents: if (cond) { } [else [if ...] { }]
type IfStmt struct {
	Source    Source
	Condition Expr
	Body      *CompoundStmt
	Else      Stmt // nil, *IfStmt, or *CompoundStmt
}

// SwitchStmt represents: switch (expr) { cases }
type SwitchStmt struct {
	Source Source
	Expr   Expr
	Cases  []*SwitchCase
}

// SwitchCase represents a case clause in a switch.
type SwitchCase struct {
	Source    Source
	Selectors []Expr // nil for default
	Body      *CompoundStmt
}

// ForStmt represents: for (init; cond; update) { }
type ForStmt struct {
	Source    Source
	Init      Stmt // DeclStmt, assignment, or nil
	Condition Expr // nil for infinite loop
	Update    Stmt // Assignment or call, or nil
	Body      *CompoundStmt
}

// WhileStmt represents: while (cond) { }
type WhileStmt struct {
	Source    Source
	Condition Expr
	Body      *CompoundStmt
}

// LoopStmt represents: loop { [continuing { }] }
type LoopStmt struct {
	Source     Source
	Body       *CompoundStmt
	Continuing *CompoundStmt // nil if no continuing block
}

// BreakStmt represents: break;
type BreakStmt struct {
	Source Source
}

// BreakIfStmt represents: break if expr; (only in continuing block)
type BreakIfStmt struct {
	Source    Source
	Condition Expr
}

// ContinueStmt represents: continue;
type ContinueStmt struct {
	Source Source
}

// DiscardStmt represents: discard; (fragment shader only)
type DiscardStmt struct {
	Source Source
}

// AssignStmt represents: lhs = rhs; or lhs op= rhs; A nil Left is the
// phony assignment _ = rhs.
type AssignStmt struct {
	Source Source
	Op     AssignOp
	Left   Expr
	Right  Expr
}

// AssignOp represents assignment operators.
type AssignOp uint8

const (
	AssignOpSimple AssignOp = iota // =
	AssignOpAdd                    // +=
	AssignOpSub                    // -=
	AssignOpMul                    // *=
	AssignOpDiv                    // /=
	AssignOpMod                    // %=
	AssignOpAnd                    // &=
	AssignOpOr                     // |=
	AssignOpXor                    // ^=
	AssignOpShl                    // <<=
	AssignOpShr                    // >>=
)

// IncrDecrStmt represents: expr++; or expr--;
type IncrDecrStmt struct {
	Source    Source
	Expr      Expr
	Increment bool // true for ++, false for --
}

// CallStmt represents a function call as a statement.
type CallStmt struct {
	Source Source
	Call   *CallExpr
}

// DeclStmt wraps a declaration as a statement (for local const/let/var).
type DeclStmt struct {
	Decl Decl
}

func (*CompoundStmt) isStmt() {}
func (*ReturnStmt) isStmt()   {}
func (*IfStmt) isStmt()       {}
func (*SwitchStmt) isStmt()   {}
func (*ForStmt) isStmt()      {}
func (*WhileStmt) isStmt()    {}
func (*LoopStmt) isStmt()     {}
func (*BreakStmt) isStmt()    {}
func (*BreakIfStmt) isStmt()  {}
func (*ContinueStmt) isStmt() {}
func (*DiscardStmt) isStmt()  {}
func (*AssignStmt) isStmt()   {}
func (*IncrDecrStmt) isStmt() {}
func (*CallStmt) isStmt()     {}
func (*DeclStmt) isStmt()     {}
