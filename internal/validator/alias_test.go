package validator

import (
	"testing"

	"github.com/HugoDaniel/wgslcheck/internal/ast"
	"github.com/HugoDaniel/wgslcheck/internal/resolver"
	"github.com/HugoDaniel/wgslcheck/internal/test"
	"github.com/HugoDaniel/wgslcheck/internal/types"
)

func fnPtr(b *ast.Builder) ast.Type {
	return b.Ptr(types.AddressSpaceFunction, b.I32(), types.AccessUndefined)
}

func privatePtr(b *ast.Builder) ast.Type {
	return b.Ptr(types.AddressSpacePrivate, b.I32(), types.AccessUndefined)
}

// readThenWrite declares name(p1, p2) which reads *p1 and writes *p2.
func readThenWrite(b *ast.Builder, name string, ptr func(*ast.Builder) ast.Type) {
	b.Func(ast.Src(1, 1), name,
		ast.Params(b.Param(ast.Src(1, 9), "p1", ptr(b)), b.Param(ast.Src(1, 30), "p2", ptr(b))),
		nil,
		ast.Body(
			b.Let(ast.Src(2, 3), "x", nil, b.Deref(ast.Src(2, 11), b.Expr("p1"))),
			b.Assign(ast.Src(3, 3), b.Deref(ast.Src(3, 3), b.Expr("p2")), b.Expr("x")),
		),
	)
}

// aliasCaller declares caller() with two locals and a call to target
// passing &first and &second.
func aliasCaller(b *ast.Builder, target, first, second string) {
	b.Func(ast.Src(10, 1), "caller", nil, nil, ast.Body(
		b.Var(ast.Src(11, 3), "v1", b.I32(), nil),
		b.Var(ast.Src(12, 3), "v2", b.I32(), nil),
		b.CallStmt(b.Call(ast.Src(13, 3), target,
			b.AddressOf(ast.Src(13, 10), b.Expr(first)),
			b.AddressOf(ast.Src(13, 15), b.Expr(second)),
		)),
	))
}

func TestAliasedArguments(t *testing.T) {
	build := func(first, second string) *ast.Builder {
		b := ast.NewBuilder()
		readThenWrite(b, "f2", fnPtr)
		b.Func(ast.Src(5, 1), "f1",
			ast.Params(b.Param(ast.Src(5, 9), "p1", fnPtr(b)), b.Param(ast.Src(5, 30), "p2", fnPtr(b))),
			nil,
			ast.Body(b.CallStmt(b.Call(ast.Src(6, 3), "f2", b.Expr("p1"), b.Expr("p2")))),
		)
		aliasCaller(b, "f1", first, second)
		return b
	}

	t.Run("same variable", func(t *testing.T) {
		res := validate(t, build("v1", "v1"), Options{})
		expect := `13:15 error: invalid aliased pointer argument
13:10 note: aliases with another argument passed here`
		test.AssertEqualWithDiff(t, res.Diagnostics.String(), expect)
	})

	t.Run("distinct variables", func(t *testing.T) {
		expectValid(t, validate(t, build("v1", "v2"), Options{}))
	})
}

func TestAliasedArgumentsAreSymmetric(t *testing.T) {
	b := ast.NewBuilder()
	// Write through the first parameter, read through the second.
	b.Func(ast.Src(1, 1), "f",
		ast.Params(b.Param(ast.Src(1, 9), "p1", fnPtr(b)), b.Param(ast.Src(1, 30), "p2", fnPtr(b))),
		nil,
		ast.Body(
			b.Let(ast.Src(2, 3), "x", nil, b.Deref(ast.Src(2, 11), b.Expr("p2"))),
			b.Assign(ast.Src(3, 3), b.Deref(ast.Src(3, 3), b.Expr("p1")), b.Expr("x")),
		),
	)
	aliasCaller(b, "f", "v1", "v1")

	res := validate(t, b, Options{})
	expect := `13:15 error: invalid aliased pointer argument
13:10 note: aliases with another argument passed here`
	test.AssertEqualWithDiff(t, res.Diagnostics.String(), expect)
}

func TestAliasedReadsAreAllowed(t *testing.T) {
	b := ast.NewBuilder()
	b.Func(ast.Src(1, 1), "f",
		ast.Params(b.Param(ast.Src(1, 9), "p1", fnPtr(b)), b.Param(ast.Src(1, 30), "p2", fnPtr(b))),
		b.I32(),
		ast.Body(
			b.Return(ast.Src(2, 3), b.Add(ast.Src(2, 10),
				b.Deref(ast.Src(2, 10), b.Expr("p1")),
				b.Deref(ast.Src(2, 16), b.Expr("p2")))),
		),
	)
	aliasCaller(b, "f", "v1", "v1")

	expectValid(t, validate(t, b, Options{}))
}

func TestAliasedThroughCallDepth(t *testing.T) {
	// leaf reads *p1 and reads or writes *p2; mid forwards both pointers;
	// caller passes the same variable twice.
	build := func(leafWrites bool) *ast.Builder {
		b := ast.NewBuilder()
		var second ast.Stmt = b.Let(ast.Src(3, 3), "y", nil, b.Deref(ast.Src(3, 11), b.Expr("p2")))
		if leafWrites {
			second = b.Assign(ast.Src(3, 3), b.Deref(ast.Src(3, 3), b.Expr("p2")), b.Int(1))
		}
		b.Func(ast.Src(1, 1), "leaf",
			ast.Params(b.Param(ast.Src(1, 9), "p1", fnPtr(b)), b.Param(ast.Src(1, 30), "p2", fnPtr(b))),
			nil,
			ast.Body(
				b.Let(ast.Src(2, 3), "x", nil, b.Deref(ast.Src(2, 11), b.Expr("p1"))),
				second,
			),
		)
		b.Func(ast.Src(5, 1), "mid",
			ast.Params(b.Param(ast.Src(5, 9), "p1", fnPtr(b)), b.Param(ast.Src(5, 30), "p2", fnPtr(b))),
			nil,
			ast.Body(b.CallStmt(b.Call(ast.Src(6, 3), "leaf", b.Expr("p1"), b.Expr("p2")))),
		)
		aliasCaller(b, "mid", "v1", "v1")
		return b
	}

	tests := []struct {
		name   string
		writes bool
		expect string
	}{
		{"reads only", false, ""},
		{"write two calls deep", true, `13:15 error: invalid aliased pointer argument
13:10 note: aliases with another argument passed here`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := validate(t, build(tt.writes), Options{})
			if tt.expect == "" {
				expectValid(t, res)
				return
			}
			test.AssertEqualWithDiff(t, res.Diagnostics.String(), tt.expect)
		})
	}
}

func TestReborrowIsNotAnAccess(t *testing.T) {
	structPtr := func(b *ast.Builder) ast.Type {
		return b.Ptr(types.AddressSpaceFunction, b.Ty("S"), types.AccessUndefined)
	}
	tests := []struct {
		name   string
		borrow func(b *ast.Builder) ast.Expr
	}{
		{"address of dereference", func(b *ast.Builder) ast.Expr {
			return b.AddressOf(ast.Src(3, 11), b.Paren(ast.Src(3, 12), b.Deref(ast.Src(3, 13), b.Expr("p2"))))
		}},
		{"address of member", func(b *ast.Builder) ast.Expr {
			return b.AddressOf(ast.Src(3, 11), b.MemberAccessor(ast.Src(3, 12),
				b.Paren(ast.Src(3, 12), b.Deref(ast.Src(3, 13), b.Expr("p2"))), "a"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ast.NewBuilder()
			b.Struct(ast.Src(20, 1), "S", b.Member(ast.Src(20, 12), "a", b.I32()))
			// f writes through p1 and only re-borrows p2.
			b.Func(ast.Src(1, 1), "f",
				ast.Params(b.Param(ast.Src(1, 9), "p1", structPtr(b)), b.Param(ast.Src(1, 30), "p2", structPtr(b))),
				nil,
				ast.Body(
					b.Assign(ast.Src(2, 3), b.MemberAccessor(ast.Src(2, 3), b.Expr("p1"), "a"), b.Int(1)),
					b.Let(ast.Src(3, 3), "q", nil, tt.borrow(b)),
				),
			)
			b.Func(ast.Src(10, 1), "caller", nil, nil, ast.Body(
				b.Var(ast.Src(11, 3), "v", b.Ty("S"), nil),
				b.CallStmt(b.Call(ast.Src(13, 3), "f",
					b.AddressOf(ast.Src(13, 5), b.Expr("v")),
					b.AddressOf(ast.Src(13, 9), b.Expr("v")))),
			))

			res, err := resolver.Resolve(b.Module())
			test.AssertNoError(t, err)
			if res.Diagnostics.HasErrors() {
				t.Fatalf("unexpected resolver errors:\n%s", res.Diagnostics)
			}
			out := Validate(res.Module, Options{})
			expectValid(t, out)

			f := res.Module.Function("f")
			test.AssertEqual(t, out.Aliases[f].ParameterReads[f.Params[1]], false)
			test.AssertEqual(t, out.Aliases[f].ParameterWrites[f.Params[1]], false)
		})
	}
}

func TestAliasedArgumentsReportedBeforeModuleScope(t *testing.T) {
	b := ast.NewBuilder()
	b.GlobalVar(ast.Src(1, 1), "g", b.I32(), types.AddressSpacePrivate)
	// k reads *p1 and g, and writes *p2.
	b.Func(ast.Src(2, 1), "k",
		ast.Params(b.Param(ast.Src(2, 6), "p1", privatePtr(b)), b.Param(ast.Src(2, 27), "p2", privatePtr(b))),
		nil,
		ast.Body(
			b.Let(ast.Src(3, 3), "x", nil, b.Deref(ast.Src(3, 11), b.Expr("p1"))),
			b.Assign(ast.Src(4, 3), b.Deref(ast.Src(4, 3), b.Expr("p2")), b.Ident(ast.Src(4, 8), "g")),
		),
	)
	b.Func(ast.Src(6, 1), "caller", nil, nil, ast.Body(
		b.CallStmt(b.Call(ast.Src(7, 3), "k",
			b.AddressOf(ast.Src(7, 5), b.Expr("g")),
			b.AddressOf(ast.Src(7, 9), b.Expr("g")))),
	))

	res := validate(t, b, Options{})
	expect := `7:9 error: invalid aliased pointer argument
7:5 note: aliases with another argument passed here`
	test.AssertEqualWithDiff(t, res.Diagnostics.String(), expect)
}

func TestAliasedModuleScopeReadReportedBeforeWrite(t *testing.T) {
	b := ast.NewBuilder()
	b.GlobalVar(ast.Src(1, 1), "g", b.I32(), types.AddressSpacePrivate)
	// m writes *p after reading g, then writes g.
	b.Func(ast.Src(2, 1), "m", ast.Params(b.Param(ast.Src(2, 6), "p", privatePtr(b))), nil, ast.Body(
		b.Assign(ast.Src(3, 3), b.Ident(ast.Src(3, 3), "g"), b.Int(1)),
		b.Assign(ast.Src(4, 3), b.Deref(ast.Src(4, 3), b.Expr("p")), b.Ident(ast.Src(4, 8), "g")),
	))
	b.Func(ast.Src(6, 1), "caller", nil, nil, ast.Body(
		b.CallStmt(b.Call(ast.Src(7, 3), "m", b.AddressOf(ast.Src(7, 5), b.Expr("g")))),
	))

	res := validate(t, b, Options{})
	expect := `7:5 error: invalid aliased pointer argument
4:8 note: aliases with module-scope variable read in 'm'`
	test.AssertEqualWithDiff(t, res.Diagnostics.String(), expect)
}

func TestAliasedModuleScopeWrite(t *testing.T) {
	b := ast.NewBuilder()
	b.GlobalVar(ast.Src(1, 1), "g", b.I32(), types.AddressSpacePrivate)
	b.Func(ast.Src(2, 1), "f", ast.Params(b.Param(ast.Src(2, 6), "p", privatePtr(b))), nil, ast.Body(
		b.Assign(ast.Src(3, 3), b.Ident(ast.Src(3, 3), "g"), b.Deref(ast.Src(3, 7), b.Expr("p"))),
	))
	b.Func(ast.Src(5, 1), "caller", nil, nil, ast.Body(
		b.CallStmt(b.Call(ast.Src(6, 3), "f", b.AddressOf(ast.Src(6, 5), b.Expr("g")))),
	))

	res := validate(t, b, Options{})
	expect := `6:5 error: invalid aliased pointer argument
3:3 note: aliases with module-scope variable write in 'f'`
	test.AssertEqualWithDiff(t, res.Diagnostics.String(), expect)
}

func TestAliasedModuleScopeRead(t *testing.T) {
	b := ast.NewBuilder()
	b.GlobalVar(ast.Src(1, 1), "g", b.I32(), types.AddressSpacePrivate)
	b.Func(ast.Src(2, 1), "h", ast.Params(b.Param(ast.Src(2, 6), "p", privatePtr(b))), nil, ast.Body(
		b.Assign(ast.Src(3, 3), b.Deref(ast.Src(3, 3), b.Expr("p")), b.Ident(ast.Src(3, 8), "g")),
	))
	b.Func(ast.Src(5, 1), "caller", nil, nil, ast.Body(
		b.CallStmt(b.Call(ast.Src(6, 3), "h", b.AddressOf(ast.Src(6, 5), b.Expr("g")))),
	))

	res := validate(t, b, Options{})
	expect := `6:5 error: invalid aliased pointer argument
3:8 note: aliases with module-scope variable read in 'h'`
	test.AssertEqualWithDiff(t, res.Diagnostics.String(), expect)
}

func TestAliasedModuleScopeWriteThroughCallee(t *testing.T) {
	b := ast.NewBuilder()
	b.GlobalVar(ast.Src(1, 1), "g", b.I32(), types.AddressSpacePrivate)
	b.Func(ast.Src(2, 1), "inner", nil, nil, ast.Body(
		b.Assign(ast.Src(3, 3), b.Ident(ast.Src(3, 3), "g"), b.Int(1)),
	))
	b.Func(ast.Src(5, 1), "outer", ast.Params(b.Param(ast.Src(5, 10), "p", privatePtr(b))), nil, ast.Body(
		b.CallStmt(b.Call(ast.Src(6, 3), "inner")),
		b.Let(ast.Src(7, 3), "x", nil, b.Deref(ast.Src(7, 11), b.Expr("p"))),
	))
	b.Func(ast.Src(9, 1), "caller", nil, nil, ast.Body(
		b.CallStmt(b.Call(ast.Src(10, 3), "outer", b.AddressOf(ast.Src(10, 9), b.Expr("g")))),
	))

	res := validate(t, b, Options{})
	expect := `10:9 error: invalid aliased pointer argument
3:3 note: aliases with module-scope variable write in 'inner'`
	test.AssertEqualWithDiff(t, res.Diagnostics.String(), expect)
}

func TestAliasedThroughBuiltins(t *testing.T) {
	b := ast.NewBuilder()
	atomicPtr := func(b *ast.Builder) ast.Type {
		return b.Ptr(types.AddressSpaceWorkgroup, b.Atomic(b.U32()), types.AccessUndefined)
	}
	b.GlobalVar(ast.Src(1, 1), "w", b.Atomic(b.U32()), types.AddressSpaceWorkgroup)
	b.Func(ast.Src(2, 1), "f",
		ast.Params(b.Param(ast.Src(2, 6), "a", atomicPtr(b)), b.Param(ast.Src(2, 30), "c", atomicPtr(b))),
		nil,
		ast.Body(
			b.Phony(ast.Src(3, 3), b.Call(ast.Src(3, 7), "atomicAdd", b.Expr("a"), b.Uint(1))),
			b.Let(ast.Src(4, 3), "x", nil, b.Call(ast.Src(4, 11), "atomicLoad", b.Expr("c"))),
		),
	)
	b.Func(ast.Src(6, 1), "caller", nil, nil, ast.Body(
		b.CallStmt(b.Call(ast.Src(7, 3), "f",
			b.AddressOf(ast.Src(7, 5), b.Expr("w")),
			b.AddressOf(ast.Src(7, 9), b.Expr("w")))),
	))

	res := validate(t, b, Options{})
	expect := `7:9 error: invalid aliased pointer argument
7:5 note: aliases with another argument passed here`
	test.AssertEqualWithDiff(t, res.Diagnostics.String(), expect)
}

func TestAliasedThroughPointerLet(t *testing.T) {
	b := ast.NewBuilder()
	b.Func(ast.Src(1, 1), "f",
		ast.Params(b.Param(ast.Src(1, 9), "p1", fnPtr(b)), b.Param(ast.Src(1, 30), "p2", fnPtr(b))),
		nil,
		ast.Body(
			b.Let(ast.Src(2, 3), "q", nil, b.Expr("p2")),
			b.Assign(ast.Src(3, 3), b.Deref(ast.Src(3, 3), b.Expr("q")), b.Deref(ast.Src(3, 8), b.Expr("p1"))),
		),
	)
	aliasCaller(b, "f", "v2", "v2")

	res := validate(t, b, Options{})
	expectError(t, res, "invalid aliased pointer argument")
}

func TestAliasSummaries(t *testing.T) {
	b := ast.NewBuilder()
	b.GlobalVar(ast.Src(1, 1), "g", b.I32(), types.AddressSpacePrivate)
	b.GlobalVar(ast.Src(2, 1), "h", b.I32(), types.AddressSpacePrivate)
	readThenWrite(b, "f", privatePtr)
	b.Func(ast.Src(5, 1), "user", nil, nil, ast.Body(
		b.Assign(ast.Src(7, 3), b.Ident(ast.Src(7, 3), "h"), b.Ident(ast.Src(7, 7), "g")),
		b.CallStmt(b.Call(ast.Src(8, 3), "f",
			b.AddressOf(ast.Src(8, 5), b.Expr("h")),
			b.AddressOf(ast.Src(8, 9), b.Expr("g")))),
	))

	res, err := resolver.Resolve(b.Module())
	test.AssertNoError(t, err)
	out := Validate(res.Module, Options{})
	expectValid(t, out)

	mod := res.Module
	f := mod.Function("f")
	fInfo := out.Aliases[f]
	test.AssertEqual(t, fInfo.ParameterReads[f.Params[0]], true)
	test.AssertEqual(t, fInfo.ParameterWrites[f.Params[0]], false)
	test.AssertEqual(t, fInfo.ParameterWrites[f.Params[1]], true)

	g := mod.Global("g")
	userInfo := out.Aliases[mod.Function("user")]
	test.AssertEqual(t, userInfo.ModuleScopeReads[g], AccessSite{Source: ast.Src(7, 7), Function: "user"})
	// Writing *p2 in f writes g on behalf of the caller, at the argument.
	test.AssertEqual(t, userInfo.ModuleScopeWrites[g], AccessSite{Source: ast.Src(8, 9), Function: "user"})
}

func TestRecursiveCalls(t *testing.T) {
	t.Run("mutual", func(t *testing.T) {
		b := ast.NewBuilder()
		b.Func(ast.Src(1, 1), "f", nil, nil, ast.Body(b.CallStmt(b.Call(ast.Src(1, 12), "g"))))
		b.Func(ast.Src(2, 1), "g", nil, nil, ast.Body(b.CallStmt(b.Call(ast.Src(2, 12), "f"))))

		res := validate(t, b, Options{})
		test.AssertEqualWithDiff(t, res.Diagnostics.String(),
			"2:12 error: cyclic dependency found: 'f' -> 'g' -> 'f'")
		test.AssertEqual(t, len(res.Aliases), 0)
	})

	t.Run("self", func(t *testing.T) {
		b := ast.NewBuilder()
		b.Func(ast.Src(1, 1), "f", nil, nil, ast.Body(b.CallStmt(b.Call(ast.Src(1, 12), "f"))))

		res := validate(t, b, Options{})
		expectError(t, res, "cyclic dependency found: 'f' -> 'f'")
	})
}

func TestCallOrderIsCalleeFirst(t *testing.T) {
	b := ast.NewBuilder()
	b.Func(ast.Src(1, 1), "a", nil, nil, ast.Body(b.CallStmt(b.Call(ast.Src(1, 12), "b"))))
	b.Func(ast.Src(2, 1), "b", nil, nil, ast.Body(b.CallStmt(b.Call(ast.Src(2, 12), "c"))))
	b.Func(ast.Src(3, 1), "c", nil, nil, nil)

	res, err := resolver.Resolve(b.Module())
	test.AssertNoError(t, err)

	aa := NewAliasAnalyzer(res.Module, res.Diagnostics)
	order, ok := aa.callOrder()
	test.AssertEqual(t, ok, true)

	var names []string
	for _, fn := range order {
		names = append(names, fn.Name)
	}
	test.AssertEqual(t, len(names), 3)
	test.AssertEqual(t, names[0], "c")
	test.AssertEqual(t, names[1], "b")
	test.AssertEqual(t, names[2], "a")
}
