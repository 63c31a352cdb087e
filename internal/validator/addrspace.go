package validator

import (
	"github.com/HugoDaniel/wgslcheck/internal/diagnostic"
	"github.com/HugoDaniel/wgslcheck/internal/extension"
	"github.com/HugoDaniel/wgslcheck/internal/layout"
	"github.com/HugoDaniel/wgslcheck/internal/sem"
	"github.com/HugoDaniel/wgslcheck/internal/types"
)

// maxArrayElementCount bounds fixed-size arrays outside the storage space.
const maxArrayElementCount = 65536

// validateVariable runs the checks for one var declaration. Each group of
// checks stops the variable at its first error.
func (v *Validator) validateVariable(vr *sem.Variable) {
	if vr.Type == nil {
		return
	}
	if !v.validateDeclaration(vr) {
		return
	}

	space := vr.EffectiveSpace()
	usage := vr.UsageSource()

	if !v.applyUsage(space, vr.Type, usage) {
		v.notef(vr.Source, "while instantiating 'var' %s", vr.Name)
		return
	}
	if !v.addressSpaceLayout(vr.Type, space, usage) {
		return
	}
	if !v.explicitAlignment(vr.Type, space) {
		return
	}
	if space == types.AddressSpacePixelLocal && !v.pixelLocal(vr) {
		return
	}
	v.atomicVariable(vr)
}

// validatePointer checks a ptr<S, T, A> type written in the program.
func (v *Validator) validatePointer(p *sem.PointerUse) {
	ptr := p.Type
	space := ptr.AddressSpace

	if p.ExplicitAccess && space != types.AddressSpaceStorage {
		v.errorf(diagnostic.CodeInvalidAccessMode, p.Source, "only pointers in <storage> address space may specify an access mode")
		return
	}
	if space == types.AddressSpaceStorage && ptr.Access == types.AccessWrite {
		v.errorf(diagnostic.CodeInvalidAccessMode, p.Source, "access mode 'write' is not valid for the 'storage' address space")
		return
	}
	if !v.applyUsage(space, ptr.Store, p.StoreSource) {
		v.notef(p.Source, "while instantiating %s", ptr)
		return
	}
	v.addressSpaceLayout(ptr.Store, space, p.StoreSource)
}

// ----------------------------------------------------------------------------
// Declaration rules
// ----------------------------------------------------------------------------

func (v *Validator) validateDeclaration(vr *sem.Variable) bool {
	written := vr.AddressSpace
	handle := types.IsHandle(vr.Type)

	if vr.IsGlobal() {
		switch {
		case written == types.AddressSpaceNone && !handle:
			v.errorf(diagnostic.CodeInvalidAddressSpace, vr.Source,
				"module-scope 'var' declarations that are not of texture or sampler types must provide an address space")
			return false
		case written == types.AddressSpaceFunction:
			v.errorf(diagnostic.CodeInvalidAddressSpace, vr.Source, "module-scope 'var' must not use address space 'function'")
			return false
		case handle && written != types.AddressSpaceNone:
			v.errorf(diagnostic.CodeInvalidAddressSpace, vr.Source, "variables of type '%s' must not specify an address space", vr.Type)
			return false
		}
	} else {
		if written != types.AddressSpaceNone && written != types.AddressSpaceFunction {
			v.errorf(diagnostic.CodeInvalidAddressSpace, vr.Source, "function-scope 'var' declaration must use 'function' address space")
			return false
		}
		if handle {
			v.errorf(diagnostic.CodeInvalidDeclaration, vr.Source, "function-scope 'var' must have a constructible type")
			return false
		}
	}

	space := vr.EffectiveSpace()

	if ext := spaceExtension(space); ext != extension.Undefined && !v.enabled.Contains(ext) {
		v.errorf(diagnostic.CodeMissingExtension, vr.Source,
			"use of variable address space '%s' requires enabling extension '%s'", space, ext)
		return false
	}

	if vr.Access != types.AccessUndefined && space != types.AddressSpaceStorage {
		v.errorf(diagnostic.CodeInvalidAccessMode, vr.Source, "only variables in <storage> address space may specify an access mode")
		return false
	}
	if space == types.AddressSpaceStorage && vr.Access == types.AccessWrite {
		v.errorf(diagnostic.CodeInvalidAccessMode, vr.Source, "access mode 'write' is not valid for the 'storage' address space")
		return false
	}

	if vr.IsGlobal() {
		resource := space == types.AddressSpaceUniform || space == types.AddressSpaceStorage || space == types.AddressSpaceHandle
		if resource && !(vr.HasGroup && vr.HasBinding) {
			v.errorf(diagnostic.CodeMissingAttribute, vr.Source, "resource variables require @group and @binding attributes")
			return false
		}
		if !resource && (vr.HasGroup || vr.HasBinding) {
			v.errorf(diagnostic.CodeInvalidAttribute, vr.Source, "non-resource variables must not have @group or @binding attributes")
			return false
		}
	}

	if vr.Initializer != nil && space != types.AddressSpacePrivate && space != types.AddressSpaceFunction {
		v.errorf(diagnostic.CodeInvalidDeclaration, vr.Source,
			"var of address space '%s' cannot have an initializer. var initializers are only supported for the address spaces 'private' and 'function'", space)
		return false
	}
	return true
}

// spaceExtension returns the extension an address space is gated behind.
func spaceExtension(space types.AddressSpace) extension.Extension {
	switch space {
	case types.AddressSpaceImmediate:
		return extension.ChromiumExperimentalImmediate
	case types.AddressSpacePixelLocal:
		return extension.ChromiumExperimentalPixelLocal
	}
	return extension.Undefined
}

// ----------------------------------------------------------------------------
// Address-space usage
// ----------------------------------------------------------------------------

// applyUsage records that ty is used in space and checks that it may be:
// runtime-sized arrays only in storage, and host-shareable leaves in the
// host-shareable spaces. Errors are reported at usage, the source of the
// innermost type expression, followed by one note per enclosing member.
func (v *Validator) applyUsage(space types.AddressSpace, ty types.Type, usage diagnostic.Source) bool {
	ty = types.UnwrapRef(ty)

	switch t := ty.(type) {
	case *types.Struct:
		key := usageKey{t.ID(), space}
		if v.structUsages[key] {
			return true
		}
		for _, m := range t.Members {
			if !v.applyUsage(space, m.Type, m.TypeSource) {
				v.notef(m.Source, "while analyzing structure member %s.%s", t.Name, m.Name)
				return false
			}
		}
		// Failures are not memoised so that every usage site is reported.
		v.structUsages[key] = true
		return true

	case *types.Array:
		if space != types.AddressSpaceStorage {
			if t.IsRuntimeSized() {
				v.errorf(diagnostic.CodeInvalidAddressSpace, usage, "runtime-sized arrays can only be used in the <storage> address space")
				return false
			}
			if t.Count >= maxArrayElementCount {
				v.errorf(diagnostic.CodeInvalidAddressSpace, usage, "array count (%d) must be less than %d", t.Count, maxArrayElementCount)
				return false
			}
		}
		return v.applyUsage(space, t.Element, usage)
	}

	if space.IsHostShareable() && !ty.IsHostShareable() {
		v.errorf(diagnostic.CodeNotHostShareable, usage,
			"type '%s' cannot be used in address space '%s' as it is non-host-shareable", ty, space)
		return false
	}
	return true
}

// ----------------------------------------------------------------------------
// Memory layout
// ----------------------------------------------------------------------------

// addressSpaceLayout checks that the placed layout of ty satisfies the
// alignment rules of a host-shareable space. Only successful validations
// are memoised, so a bad type is reported at every usage site.
func (v *Validator) addressSpaceLayout(ty types.Type, space types.AddressSpace, usage diagnostic.Source) bool {
	if !space.IsHostShareable() {
		return true
	}
	key := usageKey{ty.ID(), space}
	if v.validLayouts[key] {
		slogger().Debug("validator: layout memo hit", "type", ty.String(), "space", space.String())
		return true
	}

	noteUsage := func() {
		v.notef(usage, "'%s' used in address space '%s' here", ty, space)
	}

	if space == types.AddressSpaceImmediate && deepestElement(ty) == types.F16 {
		v.errorf(diagnostic.CodeInvalidAddressSpace, usage, "using f16 types in 'immediate' address space is not implemented yet")
		return false
	}

	if s, ok := ty.(*types.Struct); ok {
		for i, m := range s.Members {
			required := v.requiredAlignment(m.Type, space)

			if !v.addressSpaceLayout(m.Type, space, m.TypeSource) {
				v.notef(s.Source, "see layout of struct:\n%s", layout.Diagram(s))
				noteUsage()
				return false
			}

			if m.Offset%required != 0 {
				v.errorf(diagnostic.CodeInvalidLayout, m.Source,
					"the offset of a struct member of type '%s' in address space '%s' must be a multiple of %d bytes, but '%s' is currently at offset %d. Consider setting '@align(%d)' on this member",
					m.Type, space, required, m.Name, m.Offset, required)
				v.notef(s.Source, "see layout of struct:\n%s", layout.Diagram(s))
				if ms, ok := m.Type.(*types.Struct); ok {
					v.notef(ms.Source, "and layout of struct member:\n%s", layout.Diagram(ms))
				}
				noteUsage()
				return false
			}

			// In uniform, the distance from the start of a struct member to
			// the start of the next member must be a multiple of 16.
			if i > 0 && space == types.AddressSpaceUniform && !v.relaxedUniformLayout() {
				prev := s.Members[i-1]
				if ps, ok := prev.Type.(*types.Struct); ok {
					if gap := m.Offset - prev.Offset; gap%16 != 0 {
						v.errorf(diagnostic.CodeInvalidLayout, m.Source,
							"uniform storage requires that the number of bytes between the start of the previous member of type struct and the current member be a multiple of 16 bytes, but there are currently %d bytes between '%s' and '%s'. Consider setting '@align(16)' on this member",
							gap, prev.Name, m.Name)
						v.notef(s.Source, "see layout of struct:\n%s", layout.Diagram(s))
						v.notef(ps.Source, "and layout of previous member struct:\n%s", layout.Diagram(ps))
						noteUsage()
						return false
					}
				}
			}
		}
	}

	if arr, ok := ty.(*types.Array); ok {
		if !v.addressSpaceLayout(arr.Element, space, usage) {
			return false
		}
		if space == types.AddressSpaceUniform && !v.relaxedUniformLayout() && arr.Stride()%16 != 0 {
			v.errorf(diagnostic.CodeInvalidLayout, usage,
				"uniform storage requires that array elements are aligned to 16 bytes, but array element of type '%s' has a stride of %d bytes. %s",
				arr.Element, arr.Stride(), strideHint(arr.Element))
			return false
		}
	}

	v.validLayouts[key] = true
	return true
}

// requiredAlignment is the offset alignment a member of type ty needs in
// space. Uniform rounds array and struct members up to 16 bytes.
func (v *Validator) requiredAlignment(ty types.Type, space types.AddressSpace) int {
	align := ty.Align()
	if align < 1 {
		align = 1
	}
	if space == types.AddressSpaceUniform && !v.relaxedUniformLayout() {
		switch ty.(type) {
		case *types.Array, *types.Struct:
			return types.RoundUp(16, align)
		}
	}
	return align
}

func strideHint(elem types.Type) string {
	switch elem.(type) {
	case *types.Vector:
		return "Consider using a vec4 instead."
	case *types.Struct:
		return "Consider using the '@size' attribute on the last struct member."
	}
	return "Consider using a vector or struct as the element type instead."
}

// deepestElement unwraps vectors, matrices, arrays and atomics down to the
// scalar they hold. Structs are returned as is.
func deepestElement(ty types.Type) types.Type {
	for {
		switch t := ty.(type) {
		case *types.Vector:
			return t.Element
		case *types.Matrix:
			return t.Element
		case *types.Atomic:
			return t.Element
		case *types.Array:
			ty = t.Element
		default:
			return ty
		}
	}
}

// explicitAlignment rejects an @align below 16 on members whose type needs
// 16-byte alignment, for every space with a member alignment rule.
func (v *Validator) explicitAlignment(ty types.Type, space types.AddressSpace) bool {
	switch space {
	case types.AddressSpaceStorage, types.AddressSpaceWorkgroup, types.AddressSpacePrivate,
		types.AddressSpaceFunction, types.AddressSpaceImmediate:
	default:
		return true
	}

	switch t := ty.(type) {
	case *types.Array:
		return v.explicitAlignment(t.Element, space)
	case *types.Struct:
		for _, m := range t.Members {
			if m.ExplicitAlign > 0 && m.ExplicitAlign%16 != 0 && m.Type.Align() >= 16 {
				v.errorf(diagnostic.CodeInvalidAttribute, m.AlignSource,
					"alignment must be a multiple of '16' bytes for the '%s' address space", space)
				return false
			}
			if !v.explicitAlignment(m.Type, space) {
				return false
			}
		}
	}
	return true
}

// ----------------------------------------------------------------------------
// pixel_local and atomics
// ----------------------------------------------------------------------------

func (v *Validator) pixelLocal(vr *sem.Variable) bool {
	s, ok := vr.Type.(*types.Struct)
	if !ok {
		v.errorf(diagnostic.CodeInvalidAddressSpace, vr.UsageSource(), "'pixel_local' variable only supports struct storage types")
		return false
	}
	for _, m := range s.Members {
		switch m.Type {
		case types.I32, types.U32, types.F32:
			continue
		}
		v.errorf(diagnostic.CodeInvalidAddressSpace, m.TypeSource,
			"struct members used in the 'pixel_local' address space can only be of the type 'i32', 'u32' or 'f32'")
		v.notef(vr.UsageSource(), "struct '%s' used in the 'pixel_local' address space here", s.Name)
		return false
	}
	return true
}

func (v *Validator) atomicVariable(vr *sem.Variable) bool {
	if !types.ContainsAtomic(vr.Type) {
		return true
	}
	space := vr.EffectiveSpace()
	src := vr.UsageSource()

	noteSubtype := func() {
		if !types.IsAtomic(vr.Type) {
			v.notef(atomicSource(vr.Type), "atomic sub-type of '%s' is declared here", vr.Type)
		}
	}

	if space != types.AddressSpaceStorage && space != types.AddressSpaceWorkgroup {
		v.errorf(diagnostic.CodeInvalidAddressSpace, src, "atomic variables must have <storage> or <workgroup> address space")
		noteSubtype()
		return false
	}
	if space == types.AddressSpaceStorage && vr.EffectiveAccess() != types.AccessReadWrite {
		v.errorf(diagnostic.CodeInvalidAccessMode, src, "atomic variables in <storage> address space must have read_write access mode")
		noteSubtype()
		return false
	}
	return true
}

// atomicSource finds the type expression of the member that holds the
// first atomic in a composite.
func atomicSource(ty types.Type) diagnostic.Source {
	switch t := ty.(type) {
	case *types.Array:
		return atomicSource(t.Element)
	case *types.Struct:
		for _, m := range t.Members {
			if types.IsAtomic(m.Type) {
				return m.TypeSource
			}
			if types.ContainsAtomic(m.Type) {
				if src := atomicSource(m.Type); src.IsValid() {
					return src
				}
				return m.TypeSource
			}
		}
	}
	return diagnostic.Source{}
}
