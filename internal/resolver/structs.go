package resolver

import (
	"github.com/HugoDaniel/wgslcheck/internal/ast"
	"github.com/HugoDaniel/wgslcheck/internal/diagnostic"
	"github.com/HugoDaniel/wgslcheck/internal/extension"
	"github.com/HugoDaniel/wgslcheck/internal/layout"
	"github.com/HugoDaniel/wgslcheck/internal/types"
)

// resolveStruct resolves the member types of d, applies the member layout
// attributes and places the members. It returns nil if any member failed.
func (r *Resolver) resolveStruct(d *ast.StructDecl) *types.Struct {
	if len(d.Members) == 0 {
		r.errorf(diagnostic.CodeInvalidDeclaration, d.Source, "structures must have at least one member")
		return nil
	}

	s := r.sem.Types.NewStruct(d.Name, d.Source)
	members := make([]*types.StructMember, 0, len(d.Members))
	seen := make(map[string]*ast.StructMember, len(d.Members))
	ok := true

	for i, am := range d.Members {
		if prev, dup := seen[am.Name]; dup {
			r.errorf(diagnostic.CodeInvalidDeclaration, am.Source, "redefinition of '%s'", am.Name)
			r.diags.AddNotef(prev.Source, "previous definition is here")
			ok = false
			continue
		}
		seen[am.Name] = am

		ty := r.resolveType(am.Type)
		if ty == nil {
			ok = false
			continue
		}

		if !r.checkMemberType(d, am, ty, i == len(d.Members)-1) {
			ok = false
			continue
		}

		m := &types.StructMember{
			Name:       am.Name,
			Type:       ty,
			Source:     am.Source,
			TypeSource: am.Type.TypeSource(),
		}
		if !r.memberAttributes(am, m) {
			ok = false
			continue
		}
		members = append(members, m)
	}

	if !ok {
		return nil
	}

	layout.Place(s, members)
	r.sem.Structs = append(r.sem.Structs, s)
	r.sem.StructDecls[s] = d
	return s
}

// checkMemberType enforces the structural rules on a member type.
func (r *Resolver) checkMemberType(d *ast.StructDecl, am *ast.StructMember, ty types.Type, last bool) bool {
	src := am.Type.TypeSource()
	switch t := ty.(type) {
	case *types.Array:
		if t.IsRuntimeSized() && !last {
			r.errorf(diagnostic.CodeInvalidDeclaration, src, "runtime arrays may only appear as the last member of a struct")
			return false
		}
	case *types.Struct:
		if t.HasRuntimeArray() {
			r.errorf(diagnostic.CodeInvalidDeclaration, src,
				"a struct that contains a runtime array cannot be nested inside another struct")
			return false
		}
	case *types.Pointer, *types.Sampler, *types.Texture, *types.TexelBuffer:
		r.errorf(diagnostic.CodeInvalidDeclaration, src, "'%s' cannot be used as the type of a structure member", ty)
		return false
	}
	return true
}

// memberAttributes applies @align, @size and @offset to m and records the
// gated fragment-output attributes. It reports false on an invalid value.
func (r *Resolver) memberAttributes(am *ast.StructMember, m *types.StructMember) bool {
	for _, a := range am.Attributes {
		switch a.Name {
		case "align":
			v, ok := a.IntArg(0)
			if !ok || !types.IsPowerOfTwo(v) {
				r.errorf(diagnostic.CodeInvalidAttribute, a.Source, "'align' value must be a positive, power-of-two integer")
				return false
			}
			m.ExplicitAlign = v
			m.AlignSource = a.Source

		case "size":
			v, ok := a.IntArg(0)
			if !ok || v <= 0 {
				r.errorf(diagnostic.CodeInvalidAttribute, a.Source, "'size' attribute must be positive")
				return false
			}
			if v < m.Type.Size() {
				r.errorf(diagnostic.CodeInvalidAttribute, a.Source, "@size must be at least as big as the type's size (%d)", m.Type.Size())
				return false
			}
			m.ExplicitSize = v

		case "offset":
			v, ok := a.IntArg(0)
			if !ok || v < 0 {
				r.errorf(diagnostic.CodeInvalidAttribute, a.Source, "'offset' value must be a non-negative integer")
				return false
			}
			m.ExplicitOffset = v
			m.HasOffset = true

		case "blend_src":
			r.feature("@blend_src", extension.DualSourceBlending, a.Source)

		case "color":
			r.feature("@color", extension.ChromiumExperimentalFramebufferFetch, a.Source)
		}
	}
	return true
}
