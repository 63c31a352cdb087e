package ast

import (
	"testing"

	"github.com/HugoDaniel/wgslcheck/internal/types"
)

func TestBuilderAppendsDeclarationsInOrder(t *testing.T) {
	b := NewBuilder()
	b.Enable(Src(1, 1), "f16")
	b.Struct(Src(2, 1), "S", b.Member(Src(3, 3), "a", b.F32()))
	b.Alias(Src(5, 1), "A", b.Ty("S"))
	b.GlobalVar(Src(6, 1), "x", b.Ty("A"), types.AddressSpaceStorage,
		WithAccess(types.AccessReadWrite), b.Group(0), b.Binding(1))
	b.Func(Src(8, 1), "main", nil, nil, Body(
		b.Assign(Src(9, 3), b.MemberAccessor(Src(9, 3), b.Expr("x"), "a"), b.Float(1)),
	), b.Stage("compute"), b.WorkgroupSize(1))

	// Detached nodes must not be added to the module.
	b.Member(Src(20, 1), "unused", b.I32())
	b.Var(Src(21, 1), "local", b.I32(), nil)

	mod := b.Module()
	if len(mod.Enables) != 1 || mod.Enables[0].Features[0] != "f16" {
		t.Fatalf("unexpected enables: %+v", mod.Enables)
	}
	expect := []string{"S", "A", "x", "main"}
	if len(mod.Declarations) != len(expect) {
		t.Fatalf("expected %d declarations, got %d", len(expect), len(mod.Declarations))
	}
	for i, d := range mod.Declarations {
		if d.DeclName() != expect[i] {
			t.Errorf("declaration %d: expected %q, got %q", i, expect[i], d.DeclName())
		}
	}

	v := mod.Declarations[2].(*VarDecl)
	if v.Access != types.AccessReadWrite || len(v.Attributes) != 2 {
		t.Errorf("var options not applied: %+v", v)
	}
	if g, ok := FindAttribute(v.Attributes, "group").IntArg(0); !ok || g != 0 {
		t.Errorf("expected @group(0), got %d %v", g, ok)
	}
	if bnd, ok := FindAttribute(v.Attributes, "binding").IntArg(0); !ok || bnd != 1 {
		t.Errorf("expected @binding(1), got %d %v", bnd, ok)
	}
	if FindAttribute(v.Attributes, "location") != nil {
		t.Error("unexpected @location")
	}
}

func TestLiteralInt(t *testing.T) {
	tests := []struct {
		lit    *LiteralExpr
		expect int
		ok     bool
	}{
		{&LiteralExpr{Kind: LiteralInt, Value: "16"}, 16, true},
		{&LiteralExpr{Kind: LiteralInt, Value: "4u"}, 4, true},
		{&LiteralExpr{Kind: LiteralInt, Value: "8i"}, 8, true},
		{&LiteralExpr{Kind: LiteralInt, Value: "0x10"}, 16, true},
		{&LiteralExpr{Kind: LiteralFloat, Value: "1.0"}, 0, false},
		{&LiteralExpr{Kind: LiteralInt, Value: "nope"}, 0, false},
	}
	for _, tt := range tests {
		v, ok := tt.lit.Int()
		if v != tt.expect || ok != tt.ok {
			t.Errorf("%q: expected (%d, %v), got (%d, %v)", tt.lit.Value, tt.expect, tt.ok, v, ok)
		}
	}
}

func TestAttributeArgs(t *testing.T) {
	b := NewBuilder()
	if _, ok := b.Builtin("position").IntArg(0); ok {
		t.Error("builtin argument is not an integer")
	}
	if name, ok := b.Builtin("position").IdentArg(0); !ok || name != "position" {
		t.Errorf("expected position, got %q", name)
	}
	if _, ok := b.Stage("compute").IntArg(0); ok {
		t.Error("stage attribute has no arguments")
	}
	if v, ok := b.WorkgroupSize(8, 4).IntArg(1); !ok || v != 4 {
		t.Errorf("expected 4, got %d", v)
	}
}

func TestSourcesAttach(t *testing.T) {
	b := NewBuilder()
	arr := At(Src(4, 7), b.Array(b.F32(), 4, AttrAt(Src(4, 2), b.Stride(8))))
	if arr.TypeSource() != Src(4, 7) || arr.Attributes[0].Source != Src(4, 2) {
		t.Errorf("sources not attached: %v %v", arr.TypeSource(), arr.Attributes[0].Source)
	}
	call := b.Call(Src(9, 5), "f", b.AddressOf(Src(9, 7), b.Expr("v")))
	if call.ExprSource() != Src(9, 5) || call.Args[0].ExprSource() != Src(9, 7) {
		t.Error("call sources not attached")
	}
	if b.CallStmt(call).Source != call.Source {
		t.Error("call statement must take the call's source")
	}
}

func TestFloatLiteralSpelling(t *testing.T) {
	b := NewBuilder()
	for v, expect := range map[float64]string{1: "1.0", 0.5: "0.5", 2.25: "2.25"} {
		if got := b.Float(v).Value; got != expect {
			t.Errorf("Float(%v): expected %q, got %q", v, expect, got)
		}
	}
}
