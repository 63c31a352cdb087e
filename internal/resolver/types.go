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

// maxArrayCount bounds constant array counts during evaluation.
const maxArrayCount = 1 << 30

func (r *Resolver) resolveType(t ast.Type) types.Type {
	if t == nil {
		return nil
	}

	table := r.sem.Types
	switch ty := t.(type) {
	case *ast.IdentType:
		return r.lookupType(ty.Name, ty.Source, true)

	case *ast.VecType:
		elem := r.scalarElement(ty.ElemType, "vector")
		if elem == nil {
			return nil
		}
		if ty.Size < 2 || ty.Size > 4 {
			r.errorf(diagnostic.CodeInvalidDeclaration, ty.Source, "vector width must be 2, 3 or 4")
			return nil
		}
		return table.Vec(ty.Size, elem)

	case *ast.MatType:
		elem := r.scalarElement(ty.ElemType, "matrix")
		if elem == nil {
			return nil
		}
		if !elem.IsFloat() {
			r.errorf(diagnostic.CodeInvalidDeclaration, ty.ElemType.TypeSource(), "matrix element type must be 'f32' or 'f16'")
			return nil
		}
		if ty.Cols < 2 || ty.Cols > 4 || ty.Rows < 2 || ty.Rows > 4 {
			r.errorf(diagnostic.CodeInvalidDeclaration, ty.Source, "matrix dimensions must be between 2 and 4")
			return nil
		}
		return table.Mat(ty.Cols, ty.Rows, elem)

	case *ast.ArrayType:
		return r.resolveArray(ty)

	case *ast.PtrType:
		store := r.resolveType(ty.ElemType)
		if store == nil {
			return nil
		}
		if ty.AddressSpace == types.AddressSpaceNone {
			r.errorf(diagnostic.CodeInvalidAddressSpace, ty.Source, "ptr missing address space")
			return nil
		}
		access := ty.Access
		if access == types.AccessUndefined {
			access = types.DefaultAccess(ty.AddressSpace)
		}
		p := table.Ptr(ty.AddressSpace, store, access)
		r.sem.PointerUses = append(r.sem.PointerUses, &sem.PointerUse{
			Type:           p,
			ExplicitAccess: ty.Access != types.AccessUndefined,
			Source:         ty.Source,
			StoreSource:    ty.ElemType.TypeSource(),
		})
		return p

	case *ast.AtomicType:
		elem := r.resolveType(ty.ElemType)
		s, ok := elem.(*types.Scalar)
		if elem == nil {
			return nil
		}
		if !ok || (s != types.I32 && s != types.U32) {
			r.errorf(diagnostic.CodeInvalidDeclaration, ty.Source, "atomic only supports i32 or u32 types")
			return nil
		}
		return table.Atomic(s)

	case *ast.SamplerType:
		return table.Sampler(ty.Comparison)

	case *ast.TextureType:
		var sampled *types.Scalar
		if ty.SampledType != nil {
			sampled = r.scalarElement(ty.SampledType, "texture")
			if sampled == nil {
				return nil
			}
		}
		return table.Texture(ty.Name, sampled, ty.TexelFormat, ty.Access)

	case *ast.SubgroupMatrixType:
		elem := r.scalarElement(ty.ElemType, "subgroup matrix")
		if elem == nil {
			return nil
		}
		m := table.SubgroupMatrix(ty.Kind, elem, ty.Cols, ty.Rows)
		r.feature(fmt.Sprintf("subgroup_matrix_%s", ty.Kind), extension.ChromiumExperimentalSubgroupMatrix, ty.Source)
		return m

	case *ast.TexelBufferType:
		return table.TexelBuffer(ty.Format, ty.Access)
	}

	return nil
}

// scalarElement resolves the element type of a composite and requires it
// to be a scalar.
func (r *Resolver) scalarElement(t ast.Type, what string) *types.Scalar {
	elem := r.resolveType(t)
	if elem == nil {
		return nil
	}
	s, ok := elem.(*types.Scalar)
	if !ok {
		r.errorf(diagnostic.CodeInvalidDeclaration, t.TypeSource(), "%s element type must be a scalar, got '%s'", what, elem)
		return nil
	}
	return s
}

func (r *Resolver) resolveArray(ty *ast.ArrayType) types.Type {
	elem := r.resolveType(ty.ElemType)
	if elem == nil {
		return nil
	}
	if containsRuntimeArray(elem) {
		r.errorf(diagnostic.CodeInvalidDeclaration, ty.ElemType.TypeSource(), "an array element type cannot contain a runtime-sized array")
		return nil
	}
	if types.IsHandle(elem) {
		r.errorf(diagnostic.CodeInvalidDeclaration, ty.ElemType.TypeSource(), "'%s' cannot be used as an element type of an array", elem)
		return nil
	}

	count := 0
	if ty.Size != nil {
		n, ok := r.evalInt(ty.Size, 0)
		if !ok {
			r.errorf(diagnostic.CodeInvalidDeclaration, ty.Size.ExprSource(),
				"array count must evaluate to a constant integer expression or override variable")
			return nil
		}
		if n <= 0 || n > maxArrayCount {
			// A sized array always has a positive count once it reaches
			// the program model.
			r.internalError(ty.Source, "array<%s> has invalid element count %d", elem, n)
			return nil
		}
		count = n
	}

	stride := 0
	for _, a := range ty.Attributes {
		if a.Name != "stride" {
			continue
		}
		v, ok := a.IntArg(0)
		if !ok || v < elem.Size() || elem.Align() == 0 || v%elem.Align() != 0 {
			r.errorf(diagnostic.CodeInvalidAttribute, a.Source,
				"arrays decorated with the stride attribute must have a stride that is at least the size of the element type, and be a multiple of the element type's alignment value")
			return nil
		}
		stride = v
	}

	return r.sem.Types.Array(elem, count, stride)
}

func containsRuntimeArray(t types.Type) bool {
	switch t := t.(type) {
	case *types.Array:
		return t.IsRuntimeSized()
	case *types.Struct:
		return t.HasRuntimeArray()
	}
	return false
}

// evalInt evaluates a constant integer expression: literals, module-scope
// const and override identifiers, and arithmetic over them.
func (r *Resolver) evalInt(e ast.Expr, depth int) (int, bool) {
	if depth > 32 {
		return 0, false
	}
	switch e := e.(type) {
	case *ast.LiteralExpr:
		return e.Int()
	case *ast.ParenExpr:
		return r.evalInt(e.Expr, depth+1)
	case *ast.IdentExpr:
		switch d := r.decls[e.Name].(type) {
		case *ast.ConstDecl:
			return r.evalInt(d.Initializer, depth+1)
		case *ast.OverrideDecl:
			if d.Initializer != nil {
				return r.evalInt(d.Initializer, depth+1)
			}
		}
	case *ast.UnaryExpr:
		if e.Op == ast.UnaryOpNeg {
			v, ok := r.evalInt(e.Operand, depth+1)
			return -v, ok
		}
	case *ast.BinaryExpr:
		a, ok1 := r.evalInt(e.Left, depth+1)
		b, ok2 := r.evalInt(e.Right, depth+1)
		if !ok1 || !ok2 {
			return 0, false
		}
		switch e.Op {
		case ast.BinOpAdd:
			return a + b, true
		case ast.BinOpSub:
			return a - b, true
		case ast.BinOpMul:
			return a * b, true
		case ast.BinOpDiv:
			if b != 0 {
				return a / b, true
			}
		case ast.BinOpShl:
			if b >= 0 && b < 31 {
				return a << b, true
			}
		}
	}
	return 0, false
}

// lookupType resolves a type name. With report set, an unknown name is an
// error; otherwise nil is returned silently (used to test whether a call
// target names a type).
func (r *Resolver) lookupType(name string, src diagnostic.Source, report bool) types.Type {
	if t := r.predeclaredType(name, src); t != nil {
		return t
	}
	switch d := r.decls[name].(type) {
	case *ast.StructDecl, *ast.AliasDecl:
		return r.resolveTypeDecl(d)
	}
	if report {
		r.errorf(diagnostic.CodeUndefinedSymbol, src, "unresolved type '%s'", name)
	}
	return nil
}

func (r *Resolver) predeclaredType(name string, src diagnostic.Source) types.Type {
	table := r.sem.Types
	switch name {
	case "bool":
		return types.Bool
	case "i32":
		return types.I32
	case "u32":
		return types.U32
	case "f32":
		return types.F32
	case "f16":
		r.feature("f16", extension.F16, src)
		return types.F16
	case "sampler":
		return table.Sampler(false)
	case "sampler_comparison":
		return table.Sampler(true)
	case "texture_depth_2d", "texture_depth_2d_array", "texture_depth_cube",
		"texture_depth_cube_array", "texture_depth_multisampled_2d", "texture_external":
		return table.Texture(name, nil, "", types.AccessUndefined)
	}

	// Predeclared aliases: vec3f, vec2h, mat4x4f, ...
	if strings.HasPrefix(name, "vec") && len(name) == 5 {
		width := int(name[3] - '0')
		elem := shorthandElement(name[4])
		if width < 2 || width > 4 || elem == nil {
			return nil
		}
		if elem == types.F16 {
			r.feature("f16", extension.F16, src)
		}
		return table.Vec(width, elem)
	}
	if strings.HasPrefix(name, "mat") && len(name) == 7 && name[4] == 'x' {
		cols, rows := int(name[3]-'0'), int(name[5]-'0')
		elem := shorthandElement(name[6])
		if cols < 2 || cols > 4 || rows < 2 || rows > 4 || elem == nil || !elem.IsFloat() {
			return nil
		}
		if elem == types.F16 {
			r.feature("f16", extension.F16, src)
		}
		return table.Mat(cols, rows, elem)
	}
	return nil
}

func shorthandElement(c byte) *types.Scalar {
	switch c {
	case 'i':
		return types.I32
	case 'u':
		return types.U32
	case 'f':
		return types.F32
	case 'h':
		return types.F16
	}
	return nil
}

// isTemplateConstructor reports names that construct a value with an
// inferred template: vec3(...), array(...), mat2x2(...).
func isTemplateConstructor(name string) bool {
	switch name {
	case "vec2", "vec3", "vec4", "array",
		"mat2x2", "mat2x3", "mat2x4", "mat3x2", "mat3x3", "mat3x4", "mat4x2", "mat4x3", "mat4x4":
		return true
	}
	return false
}
