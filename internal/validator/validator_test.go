package validator

import (
	"strings"
	"testing"

	"github.com/HugoDaniel/wgslcheck/internal/ast"
	"github.com/HugoDaniel/wgslcheck/internal/extension"
	"github.com/HugoDaniel/wgslcheck/internal/resolver"
	"github.com/HugoDaniel/wgslcheck/internal/test"
	"github.com/HugoDaniel/wgslcheck/internal/types"
)

func validate(t *testing.T, b *ast.Builder, opts Options) *Result {
	t.Helper()
	res, err := resolver.Resolve(b.Module())
	test.AssertNoError(t, err)
	if res.Diagnostics.HasErrors() {
		t.Fatalf("unexpected resolver errors:\n%s", res.Diagnostics)
	}
	return Validate(res.Module, opts)
}

func expectValid(t *testing.T, res *Result) {
	t.Helper()
	if !res.Valid {
		t.Fatalf("expected valid module, got:\n%s", res.Diagnostics)
	}
}

func expectError(t *testing.T, res *Result, want string) {
	t.Helper()
	if res.Valid {
		t.Fatalf("expected error containing %q, module is valid", want)
	}
	for _, d := range res.Diagnostics.Errors() {
		if strings.Contains(d.Message, want) {
			return
		}
	}
	t.Errorf("expected error containing %q, got:\n%s", want, res.Diagnostics)
}

func expectNote(t *testing.T, res *Result, want string) {
	t.Helper()
	for _, d := range res.Diagnostics.All() {
		if d.Code == "" && strings.Contains(d.Message, want) {
			return
		}
	}
	t.Errorf("expected note containing %q, got:\n%s", want, res.Diagnostics)
}

// packedStruct declares S with b placed at offset 5.
func packedStruct(b *ast.Builder, bAlign int) {
	b.Struct(ast.Src(1, 1), "S",
		b.Member(ast.Src(2, 3), "a", ast.At(ast.Src(2, 16), b.F32()), b.MemberSize(5)),
		b.Member(ast.Src(3, 3), "b", ast.At(ast.Src(3, 16), b.F32()), ast.AttrAt(ast.Src(3, 4), b.MemberAlign(bAlign))),
	)
}

func TestStorageMemberOffset(t *testing.T) {
	b := ast.NewBuilder()
	packedStruct(b, 1)
	b.GlobalVar(ast.Src(5, 1), "x", ast.At(ast.Src(5, 17), b.Ty("S")), types.AddressSpaceStorage,
		b.Group(0), b.Binding(0))

	res := validate(t, b, Options{})
	expect := `3:3 error: the offset of a struct member of type 'f32' in address space 'storage' must be a multiple of 4 bytes, but 'b' is currently at offset 5. Consider setting '@align(4)' on this member
1:1 note: see layout of struct:
/*           align(4) size(12) */ struct S {
/* offset(0) align(4) size( 5) */   a : f32;
/* offset(5) align(1) size( 4) */   b : f32;
/* offset(9) align(1) size( 3) */   // -- implicit struct size padding --
/*                             */ };
5:17 note: 'S' used in address space 'storage' here`
	test.AssertEqualWithDiff(t, res.Diagnostics.String(), expect)
	test.AssertEqual(t, res.Valid, false)
}

func TestStorageMemberOffsetFixedByAlign(t *testing.T) {
	b := ast.NewBuilder()
	packedStruct(b, 4)
	b.GlobalVar(ast.Src(5, 1), "x", ast.At(ast.Src(5, 17), b.Ty("S")), types.AddressSpaceStorage,
		b.Group(0), b.Binding(0))

	expectValid(t, validate(t, b, Options{}))
}

func TestValidateIsIdempotent(t *testing.T) {
	b := ast.NewBuilder()
	packedStruct(b, 1)
	b.GlobalVar(ast.Src(5, 1), "x", ast.At(ast.Src(5, 17), b.Ty("S")), types.AddressSpaceStorage,
		b.Group(0), b.Binding(0))
	b.GlobalVar(ast.Src(6, 1), "y", ast.At(ast.Src(6, 17), b.Ty("S")), types.AddressSpaceStorage,
		b.Group(0), b.Binding(1))

	res, err := resolver.Resolve(b.Module())
	test.AssertNoError(t, err)

	first := Validate(res.Module, Options{})
	second := Validate(res.Module, Options{})
	test.AssertEqualWithDiff(t, second.Diagnostics.String(), first.Diagnostics.String())

	// Failed layouts are not memoised, so each usage site is reported.
	test.AssertEqual(t, first.Diagnostics.ErrorCount(), 2)
}

func TestUniformNonHostShareable(t *testing.T) {
	b := ast.NewBuilder()
	b.GlobalVar(ast.Src(1, 1), "g", ast.At(ast.Src(1, 18), b.Bool()), types.AddressSpaceUniform,
		b.Group(0), b.Binding(0))

	res := validate(t, b, Options{})
	expect := `1:18 error: type 'bool' cannot be used in address space 'uniform' as it is non-host-shareable
1:1 note: while instantiating 'var' g`
	test.AssertEqualWithDiff(t, res.Diagnostics.String(), expect)
}

func TestNonHostShareableMember(t *testing.T) {
	b := ast.NewBuilder()
	b.Struct(ast.Src(1, 1), "S",
		b.Member(ast.Src(2, 3), "ok", ast.At(ast.Src(2, 8), b.F32())),
		b.Member(ast.Src(3, 3), "flag", ast.At(ast.Src(3, 9), b.Bool())),
	)
	b.GlobalVar(ast.Src(5, 1), "s", ast.At(ast.Src(5, 17), b.Ty("S")), types.AddressSpaceStorage,
		b.Group(0), b.Binding(0))

	res := validate(t, b, Options{})
	expect := `3:9 error: type 'bool' cannot be used in address space 'storage' as it is non-host-shareable
3:3 note: while analyzing structure member S.flag
5:1 note: while instantiating 'var' s`
	test.AssertEqualWithDiff(t, res.Diagnostics.String(), expect)
}

func TestNonHostShareableStructReportedPerVariable(t *testing.T) {
	b := ast.NewBuilder()
	b.Struct(ast.Src(1, 1), "S",
		b.Member(ast.Src(2, 3), "flag", ast.At(ast.Src(2, 9), b.Bool())),
	)
	b.GlobalVar(ast.Src(5, 1), "a", ast.At(ast.Src(5, 18), b.Ty("S")), types.AddressSpaceUniform,
		b.Group(0), b.Binding(0))
	b.GlobalVar(ast.Src(6, 1), "c", ast.At(ast.Src(6, 18), b.Ty("S")), types.AddressSpaceUniform,
		b.Group(0), b.Binding(1))

	res := validate(t, b, Options{})
	expect := `2:9 error: type 'bool' cannot be used in address space 'uniform' as it is non-host-shareable
2:3 note: while analyzing structure member S.flag
5:1 note: while instantiating 'var' a
2:9 error: type 'bool' cannot be used in address space 'uniform' as it is non-host-shareable
2:3 note: while analyzing structure member S.flag
6:1 note: while instantiating 'var' c`
	test.AssertEqualWithDiff(t, res.Diagnostics.String(), expect)
	test.AssertEqual(t, res.Diagnostics.ErrorCount(), 2)
}

func TestRuntimeArrayOutsideStorage(t *testing.T) {
	const msg = "runtime-sized arrays can only be used in the <storage> address space"
	tests := []struct {
		name   string
		build  func(b *ast.Builder)
		expect string
	}{
		{
			name: "workgroup variable",
			build: func(b *ast.Builder) {
				b.GlobalVar(ast.Src(1, 1), "a", ast.At(ast.Src(1, 20), b.RuntimeArray(b.F32())), types.AddressSpaceWorkgroup)
			},
			expect: "1:20 error: " + msg + "\n1:1 note: while instantiating 'var' a",
		},
		{
			name: "workgroup pointer",
			build: func(b *ast.Builder) {
				ptr := ast.At(ast.Src(1, 9), b.Ptr(types.AddressSpaceWorkgroup,
					ast.At(ast.Src(1, 24), b.RuntimeArray(b.I32())), types.AccessUndefined))
				b.Func(ast.Src(1, 1), "f", ast.Params(b.Param(ast.Src(1, 6), "p", ptr)), nil, nil)
			},
			expect: "1:24 error: " + msg + "\n1:9 note: while instantiating ptr<workgroup, array<i32>, read_write>",
		},
		{
			name: "private pointer",
			build: func(b *ast.Builder) {
				ptr := ast.At(ast.Src(1, 9), b.Ptr(types.AddressSpacePrivate,
					ast.At(ast.Src(1, 22), b.RuntimeArray(b.F32())), types.AccessUndefined))
				b.Func(ast.Src(1, 1), "f", ast.Params(b.Param(ast.Src(1, 6), "p", ptr)), nil, nil)
			},
			expect: "1:22 error: " + msg + "\n1:9 note: while instantiating ptr<private, array<f32>, read_write>",
		},
		{
			name: "struct member in private",
			build: func(b *ast.Builder) {
				b.Struct(ast.Src(1, 1), "S",
					b.Member(ast.Src(2, 3), "n", ast.At(ast.Src(2, 6), b.U32())),
					b.Member(ast.Src(3, 3), "data", ast.At(ast.Src(3, 9), b.RuntimeArray(b.F32()))),
				)
				b.GlobalVar(ast.Src(5, 1), "s", ast.At(ast.Src(5, 18), b.Ty("S")), types.AddressSpacePrivate)
			},
			expect: "3:9 error: " + msg + "\n3:3 note: while analyzing structure member S.data\n5:1 note: while instantiating 'var' s",
		},
		{
			name: "struct member in workgroup",
			build: func(b *ast.Builder) {
				b.Struct(ast.Src(1, 1), "S",
					b.Member(ast.Src(2, 3), "data", ast.At(ast.Src(2, 9), b.RuntimeArray(b.I32()))),
				)
				b.GlobalVar(ast.Src(4, 1), "s", ast.At(ast.Src(4, 20), b.Ty("S")), types.AddressSpaceWorkgroup)
			},
			expect: "2:9 error: " + msg + "\n2:3 note: while analyzing structure member S.data\n4:1 note: while instantiating 'var' s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ast.NewBuilder()
			tt.build(b)
			res := validate(t, b, Options{})
			test.AssertEqualWithDiff(t, res.Diagnostics.String(), tt.expect)
		})
	}
}

func TestArrayCountLimit(t *testing.T) {
	b := ast.NewBuilder()
	b.GlobalVar(ast.Src(1, 1), "a", b.Array(b.F32(), 65536), types.AddressSpacePrivate)
	b.GlobalVar(ast.Src(2, 1), "s", b.Array(b.F32(), 65536), types.AddressSpaceStorage, b.Group(0), b.Binding(0))

	res := validate(t, b, Options{})
	expectError(t, res, "array count (65536) must be less than 65536")
	test.AssertEqual(t, res.Diagnostics.ErrorCount(), 1)
}

func TestUniformArrayStride(t *testing.T) {
	tests := []struct {
		name string
		elem func(b *ast.Builder) ast.Type
		hint string
	}{
		{
			name: "scalar",
			elem: func(b *ast.Builder) ast.Type { return b.F32() },
			hint: "array element of type 'f32' has a stride of 4 bytes. Consider using a vector or struct as the element type instead.",
		},
		{
			name: "vector",
			elem: func(b *ast.Builder) ast.Type { return b.Vec(2, b.F32()) },
			hint: "array element of type 'vec2<f32>' has a stride of 8 bytes. Consider using a vec4 instead.",
		},
		{
			name: "struct",
			elem: func(b *ast.Builder) ast.Type { return b.Ty("E") },
			hint: "array element of type 'E' has a stride of 8 bytes. Consider using the '@size' attribute on the last struct member.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ast.NewBuilder()
			b.Struct(ast.Src(1, 1), "E",
				b.Member(ast.Src(1, 12), "x", b.F32()),
				b.Member(ast.Src(1, 20), "y", b.F32()),
			)
			b.GlobalVar(ast.Src(2, 1), "u", ast.At(ast.Src(2, 18), b.Array(tt.elem(b), 4)), types.AddressSpaceUniform,
				b.Group(0), b.Binding(0))

			res := validate(t, b, Options{})
			expectError(t, res, "uniform storage requires that array elements are aligned to 16 bytes, but "+tt.hint)
			test.AssertEqual(t, res.Diagnostics.Errors()[0].Source, ast.Src(2, 18))
		})
	}
}

func TestUniformArrayStrideAttribute(t *testing.T) {
	b := ast.NewBuilder()
	b.GlobalVar(ast.Src(1, 1), "u", b.Array(b.F32(), 4, b.Stride(16)), types.AddressSpaceUniform,
		b.Group(0), b.Binding(0))

	expectValid(t, validate(t, b, Options{}))
}

func TestUniformStructMemberAlignment(t *testing.T) {
	b := ast.NewBuilder()
	b.Struct(ast.Src(1, 1), "Inner", b.Member(ast.Src(1, 16), "v", b.F32()))
	b.Struct(ast.Src(2, 1), "U",
		b.Member(ast.Src(3, 3), "a", b.F32()),
		b.Member(ast.Src(4, 3), "inner", b.Ty("Inner"), b.MemberAlign(4)),
	)
	b.GlobalVar(ast.Src(6, 1), "u", ast.At(ast.Src(6, 18), b.Ty("U")), types.AddressSpaceUniform,
		b.Group(0), b.Binding(0))

	res := validate(t, b, Options{})
	expectError(t, res, "the offset of a struct member of type 'Inner' in address space 'uniform' must be a multiple of 16 bytes, but 'inner' is currently at offset 4. Consider setting '@align(16)' on this member")
	expectNote(t, res, "and layout of struct member:\n/*")
	expectNote(t, res, "'U' used in address space 'uniform' here")

	t.Run("relaxed", func(t *testing.T) {
		b.Enable(ast.Src(0, 0), "chromium_internal_relaxed_uniform_layout")
		expectValid(t, validate(t, b, Options{}))
	})
}

func TestUniformPreviousStructGap(t *testing.T) {
	b := ast.NewBuilder()
	b.Struct(ast.Src(1, 1), "Inner", b.Member(ast.Src(1, 16), "v", b.F32()))
	b.Struct(ast.Src(2, 1), "U",
		b.Member(ast.Src(3, 3), "inner", b.Ty("Inner")),
		b.Member(ast.Src(4, 3), "b", b.F32()),
	)
	b.GlobalVar(ast.Src(6, 1), "u", ast.At(ast.Src(6, 18), b.Ty("U")), types.AddressSpaceUniform,
		b.Group(0), b.Binding(0))

	res := validate(t, b, Options{})
	expectError(t, res, "but there are currently 4 bytes between 'inner' and 'b'. Consider setting '@align(16)' on this member")
	test.AssertEqual(t, res.Diagnostics.Errors()[0].Source, ast.Src(4, 3))
	expectNote(t, res, "and layout of previous member struct:\n")
}

func TestUniformVec3Packing(t *testing.T) {
	tests := []struct {
		name   string
		enable string
		elem   func(b *ast.Builder) ast.Type
	}{
		{"f32", "", func(b *ast.Builder) ast.Type { return b.F32() }},
		{"f16", "f16", func(b *ast.Builder) ast.Type { return b.F16() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ast.NewBuilder()
			if tt.enable != "" {
				b.Enable(ast.Src(1, 1), tt.enable)
			}
			b.Struct(ast.Src(2, 1), "S",
				b.Member(ast.Src(3, 3), "v", b.Vec(3, tt.elem(b))),
				b.Member(ast.Src(4, 3), "s", tt.elem(b)),
			)
			b.GlobalVar(ast.Src(6, 1), "u", b.Ty("S"), types.AddressSpaceUniform, b.Group(0), b.Binding(0))

			expectValid(t, validate(t, b, Options{}))
		})
	}
}

func TestExplicitAlignmentBelowSixteen(t *testing.T) {
	b := ast.NewBuilder()
	b.Struct(ast.Src(1, 1), "S",
		b.Member(ast.Src(2, 3), "a", b.F32(), ast.AttrAt(ast.Src(2, 4), b.MemberAlign(8))),
		b.Member(ast.Src(3, 3), "v", b.Vec(4, b.F32()), ast.AttrAt(ast.Src(3, 4), b.MemberAlign(8))),
	)
	b.GlobalVar(ast.Src(5, 1), "w", b.Ty("S"), types.AddressSpaceWorkgroup)

	res := validate(t, b, Options{})
	expectError(t, res, "alignment must be a multiple of '16' bytes for the 'workgroup' address space")
	test.AssertEqual(t, res.Diagnostics.ErrorCount(), 1)
	test.AssertEqual(t, res.Diagnostics.Errors()[0].Source, ast.Src(3, 4))
}

func TestImmediateF16(t *testing.T) {
	b := ast.NewBuilder()
	b.Enable(ast.Src(1, 1), "f16", "chromium_experimental_immediate")
	b.GlobalVar(ast.Src(2, 1), "c", ast.At(ast.Src(2, 20), b.Vec(4, b.F16())), types.AddressSpaceImmediate)

	res := validate(t, b, Options{})
	expectError(t, res, "using f16 types in 'immediate' address space is not implemented yet")
}

func TestDeclarationRules(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *ast.Builder)
		want  string
	}{
		{
			name: "missing address space",
			build: func(b *ast.Builder) {
				b.GlobalVar(ast.Src(1, 1), "g", b.F32(), types.AddressSpaceNone)
			},
			want: "module-scope 'var' declarations that are not of texture or sampler types must provide an address space",
		},
		{
			name: "module-scope function space",
			build: func(b *ast.Builder) {
				b.GlobalVar(ast.Src(1, 1), "g", b.F32(), types.AddressSpaceFunction)
			},
			want: "module-scope 'var' must not use address space 'function'",
		},
		{
			name: "handle with address space",
			build: func(b *ast.Builder) {
				b.GlobalVar(ast.Src(1, 1), "s", b.Sampler(false), types.AddressSpacePrivate)
			},
			want: "variables of type 'sampler' must not specify an address space",
		},
		{
			name: "access mode outside storage",
			build: func(b *ast.Builder) {
				b.GlobalVar(ast.Src(1, 1), "g", b.F32(), types.AddressSpacePrivate, ast.WithAccess(types.AccessRead))
			},
			want: "only variables in <storage> address space may specify an access mode",
		},
		{
			name: "storage write",
			build: func(b *ast.Builder) {
				b.GlobalVar(ast.Src(1, 1), "g", b.F32(), types.AddressSpaceStorage,
					ast.WithAccess(types.AccessWrite), b.Group(0), b.Binding(0))
			},
			want: "access mode 'write' is not valid for the 'storage' address space",
		},
		{
			name: "resource without binding",
			build: func(b *ast.Builder) {
				b.GlobalVar(ast.Src(1, 1), "g", b.F32(), types.AddressSpaceUniform, b.Group(0))
			},
			want: "resource variables require @group and @binding attributes",
		},
		{
			name: "non-resource with binding",
			build: func(b *ast.Builder) {
				b.GlobalVar(ast.Src(1, 1), "g", b.F32(), types.AddressSpacePrivate, b.Group(0), b.Binding(0))
			},
			want: "non-resource variables must not have @group or @binding attributes",
		},
		{
			name: "workgroup initializer",
			build: func(b *ast.Builder) {
				b.GlobalVar(ast.Src(1, 1), "g", b.F32(), types.AddressSpaceWorkgroup, ast.WithInit(b.Float(1)))
			},
			want: "var of address space 'workgroup' cannot have an initializer. var initializers are only supported for the address spaces 'private' and 'function'",
		},
		{
			name: "immediate without extension",
			build: func(b *ast.Builder) {
				b.GlobalVar(ast.Src(1, 1), "g", b.F32(), types.AddressSpaceImmediate)
			},
			want: "use of variable address space 'immediate' requires enabling extension 'chromium_experimental_immediate'",
		},
		{
			name: "pixel_local without extension",
			build: func(b *ast.Builder) {
				b.GlobalVar(ast.Src(1, 1), "g", b.F32(), types.AddressSpacePixelLocal)
			},
			want: "use of variable address space 'pixel_local' requires enabling extension 'chromium_experimental_pixel_local'",
		},
		{
			name: "function-scope private",
			build: func(b *ast.Builder) {
				b.Func(ast.Src(1, 1), "f", nil, nil, ast.Body(
					&ast.DeclStmt{Decl: &ast.VarDecl{Source: ast.Src(2, 3), Name: "v", Type: b.F32(), AddressSpace: types.AddressSpacePrivate}},
				))
			},
			want: "function-scope 'var' declaration must use 'function' address space",
		},
		{
			name: "function-scope sampler",
			build: func(b *ast.Builder) {
				b.Func(ast.Src(1, 1), "f", nil, nil, ast.Body(
					b.Var(ast.Src(2, 3), "s", b.Sampler(false), nil),
				))
			},
			want: "function-scope 'var' must have a constructible type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ast.NewBuilder()
			tt.build(b)
			res := validate(t, b, Options{})
			expectError(t, res, tt.want)
			test.AssertEqual(t, res.Diagnostics.ErrorCount(), 1)
		})
	}
}

func TestHandleVariables(t *testing.T) {
	b := ast.NewBuilder()
	b.GlobalVar(ast.Src(1, 1), "s", b.Sampler(false), types.AddressSpaceNone, b.Group(0), b.Binding(0))
	b.GlobalVar(ast.Src(2, 1), "t", b.SampledTexture("texture_2d", b.F32()), types.AddressSpaceNone, b.Group(0), b.Binding(1))

	expectValid(t, validate(t, b, Options{}))

	b.GlobalVar(ast.Src(3, 1), "u", b.Sampler(false), types.AddressSpaceNone)
	expectError(t, validate(t, b, Options{}), "resource variables require @group and @binding attributes")
}

func TestPixelLocal(t *testing.T) {
	t.Run("non-struct", func(t *testing.T) {
		b := ast.NewBuilder()
		b.Enable(ast.Src(1, 1), "chromium_experimental_pixel_local")
		b.GlobalVar(ast.Src(2, 1), "p", ast.At(ast.Src(2, 24), b.U32()), types.AddressSpacePixelLocal)

		res := validate(t, b, Options{})
		expectError(t, res, "'pixel_local' variable only supports struct storage types")
		test.AssertEqual(t, res.Diagnostics.Errors()[0].Source, ast.Src(2, 24))
	})

	t.Run("member type", func(t *testing.T) {
		b := ast.NewBuilder()
		b.Enable(ast.Src(1, 1), "chromium_experimental_pixel_local")
		b.Struct(ast.Src(2, 1), "P",
			b.Member(ast.Src(3, 3), "a", b.U32()),
			b.Member(ast.Src(4, 3), "b", ast.At(ast.Src(4, 6), b.Vec(4, b.F32()))),
		)
		b.GlobalVar(ast.Src(6, 1), "p", ast.At(ast.Src(6, 24), b.Ty("P")), types.AddressSpacePixelLocal)

		res := validate(t, b, Options{})
		expect := `4:6 error: struct members used in the 'pixel_local' address space can only be of the type 'i32', 'u32' or 'f32'
6:24 note: struct 'P' used in the 'pixel_local' address space here`
		test.AssertEqualWithDiff(t, res.Diagnostics.String(), expect)
	})

	t.Run("valid", func(t *testing.T) {
		b := ast.NewBuilder()
		b.Enable(ast.Src(1, 1), "chromium_experimental_pixel_local")
		b.Struct(ast.Src(2, 1), "P",
			b.Member(ast.Src(3, 3), "a", b.U32()),
			b.Member(ast.Src(4, 3), "b", b.F32()),
		)
		b.GlobalVar(ast.Src(6, 1), "p", b.Ty("P"), types.AddressSpacePixelLocal)
		expectValid(t, validate(t, b, Options{}))
	})
}

func TestAtomicVariables(t *testing.T) {
	t.Run("private", func(t *testing.T) {
		b := ast.NewBuilder()
		b.GlobalVar(ast.Src(1, 1), "a", ast.At(ast.Src(1, 17), b.Atomic(b.I32())), types.AddressSpacePrivate)

		res := validate(t, b, Options{})
		test.AssertEqualWithDiff(t, res.Diagnostics.String(),
			"1:17 error: atomic variables must have <storage> or <workgroup> address space")
	})

	t.Run("read-only storage", func(t *testing.T) {
		b := ast.NewBuilder()
		b.Struct(ast.Src(1, 1), "S",
			b.Member(ast.Src(2, 3), "n", b.U32()),
			b.Member(ast.Src(3, 3), "c", ast.At(ast.Src(3, 6), b.Atomic(b.U32()))),
		)
		b.GlobalVar(ast.Src(5, 1), "s", ast.At(ast.Src(5, 23), b.Ty("S")), types.AddressSpaceStorage,
			ast.WithAccess(types.AccessRead), b.Group(0), b.Binding(0))

		res := validate(t, b, Options{})
		expect := `5:23 error: atomic variables in <storage> address space must have read_write access mode
3:6 note: atomic sub-type of 'S' is declared here`
		test.AssertEqualWithDiff(t, res.Diagnostics.String(), expect)
	})

	t.Run("valid", func(t *testing.T) {
		b := ast.NewBuilder()
		b.GlobalVar(ast.Src(1, 1), "w", b.Atomic(b.U32()), types.AddressSpaceWorkgroup)
		b.GlobalVar(ast.Src(2, 1), "s", b.RuntimeArray(b.Atomic(b.I32())), types.AddressSpaceStorage,
			ast.WithAccess(types.AccessReadWrite), b.Group(0), b.Binding(0))
		expectValid(t, validate(t, b, Options{}))
	})
}

func TestPointerTypes(t *testing.T) {
	tests := []struct {
		name string
		ptr  func(b *ast.Builder) ast.Type
		want string
	}{
		{
			name: "access outside storage",
			ptr: func(b *ast.Builder) ast.Type {
				return b.Ptr(types.AddressSpaceFunction, b.I32(), types.AccessRead)
			},
			want: "only pointers in <storage> address space may specify an access mode",
		},
		{
			name: "storage write",
			ptr: func(b *ast.Builder) ast.Type {
				return b.Ptr(types.AddressSpaceStorage, b.I32(), types.AccessWrite)
			},
			want: "access mode 'write' is not valid for the 'storage' address space",
		},
		{
			name: "uniform bool",
			ptr: func(b *ast.Builder) ast.Type {
				return b.Ptr(types.AddressSpaceUniform, b.Bool(), types.AccessUndefined)
			},
			want: "type 'bool' cannot be used in address space 'uniform' as it is non-host-shareable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ast.NewBuilder()
			b.Func(ast.Src(1, 1), "f", ast.Params(b.Param(ast.Src(1, 6), "p", ast.At(ast.Src(1, 9), tt.ptr(b)))), nil, nil)
			res := validate(t, b, Options{})
			expectError(t, res, tt.want)
		})
	}

	b := ast.NewBuilder()
	b.Func(ast.Src(1, 1), "f", ast.Params(b.Param(ast.Src(1, 6), "p", ast.At(ast.Src(1, 9),
		b.Ptr(types.AddressSpaceUniform, b.Bool(), types.AccessUndefined)))), nil, nil)
	expectNote(t, validate(t, b, Options{}), "while instantiating ptr<uniform, bool, read>")
}

func TestExtensionGating(t *testing.T) {
	t.Run("f16 without enable", func(t *testing.T) {
		b := ast.NewBuilder()
		b.GlobalVar(ast.Src(1, 1), "h", ast.At(ast.Src(1, 18), b.F16()), types.AddressSpacePrivate)
		res := validate(t, b, Options{})
		expectError(t, res, "use of 'f16' requires enabling extension 'f16'")
	})

	t.Run("f16 from options", func(t *testing.T) {
		b := ast.NewBuilder()
		b.GlobalVar(ast.Src(1, 1), "h", b.F16(), types.AddressSpacePrivate)
		expectValid(t, validate(t, b, Options{Extensions: extension.NewSet(extension.F16)}))
	})

	t.Run("not allowed", func(t *testing.T) {
		b := ast.NewBuilder()
		b.Enable(ast.Src(1, 1), "f16")
		res := validate(t, b, Options{Allowed: extension.NewSet(extension.DualSourceBlending)})
		expectError(t, res, "extension 'f16' is not allowed in the current environment")
	})

	t.Run("builtin", func(t *testing.T) {
		b := ast.NewBuilder()
		b.Func(ast.Src(1, 1), "f", nil, nil, ast.Body(
			b.Phony(ast.Src(2, 3), b.Call(ast.Src(2, 7), "subgroupAdd", b.Float(1))),
		))
		res := validate(t, b, Options{})
		expectError(t, res, "cannot call built-in function 'subgroupAdd' without extension 'subgroups'")
	})
}

func TestMaxErrors(t *testing.T) {
	b := ast.NewBuilder()
	for i, name := range []string{"a", "b", "c"} {
		b.GlobalVar(ast.Src(i+1, 1), name, b.Bool(), types.AddressSpaceUniform, b.Group(0), b.Binding(i))
	}
	res := validate(t, b, Options{MaxErrors: 2})
	test.AssertEqual(t, res.Diagnostics.ErrorCount(), 2)
	test.AssertEqual(t, res.Diagnostics.Len(), 4)
}
