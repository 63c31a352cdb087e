// Package types provides the interned WGSL type graph used by layout and
// address-space validation.
//
// Every type is created by a Table. Structural types (vectors, matrices,
// arrays, pointers, ...) are interned by a canonical key built from the IDs
// of their constituents, so two requests for array<vec3<f32>, 4> return the
// same *Array with the same ID. Structs are nominal and receive a fresh ID
// per declaration.
package types

import (
	"fmt"

	"github.com/HugoDaniel/wgslcheck/internal/diagnostic"
)

// ID identifies an interned type within its Table.
type ID uint32

// Type represents a WGSL type.
type Type interface {
	// ID returns the interned identity of the type.
	ID() ID
	// String returns the WGSL spelling of the type.
	String() string
	// IsConstructible returns true if values of this type can be constructed.
	IsConstructible() bool
	// IsConcrete returns true if this is not an abstract type.
	IsConcrete() bool
	// IsHostShareable returns true if this type can cross the CPU/GPU boundary.
	IsHostShareable() bool
	// Size returns the size in bytes (0 for types without a memory layout).
	Size() int
	// Align returns the alignment in bytes (0 for types without a memory layout).
	Align() int
	// isType is a marker method.
	isType()
}

type base struct {
	id ID
}

func (b *base) ID() ID  { return b.id }
func (b *base) isType() {}

// ----------------------------------------------------------------------------
// Scalar Types
// ----------------------------------------------------------------------------

// ScalarKind represents the kind of scalar type.
type ScalarKind uint8

const (
	ScalarBool ScalarKind = iota
	ScalarI32
	ScalarU32
	ScalarF32
	ScalarF16
	ScalarAbstractInt
	ScalarAbstractFloat
)

// Scalar represents a scalar type (bool, i32, u32, f32, f16) or one of the
// abstract numeric types.
type Scalar struct {
	base
	Kind ScalarKind
}

func (s *Scalar) String() string {
	switch s.Kind {
	case ScalarBool:
		return "bool"
	case ScalarI32:
		return "i32"
	case ScalarU32:
		return "u32"
	case ScalarF32:
		return "f32"
	case ScalarF16:
		return "f16"
	case ScalarAbstractInt:
		return "abstract-int"
	case ScalarAbstractFloat:
		return "abstract-float"
	default:
		return "unknown"
	}
}

func (s *Scalar) IsConstructible() bool {
	return s.IsConcrete()
}

func (s *Scalar) IsConcrete() bool {
	return s.Kind != ScalarAbstractInt && s.Kind != ScalarAbstractFloat
}

func (s *Scalar) IsHostShareable() bool {
	// bool is NOT host-shareable in WGSL
	return s.Kind != ScalarBool && s.IsConcrete()
}

func (s *Scalar) Size() int {
	switch s.Kind {
	case ScalarBool, ScalarI32, ScalarU32, ScalarF32:
		return 4
	case ScalarF16:
		return 2
	default:
		return 0 // Abstract types have no size
	}
}

func (s *Scalar) Align() int {
	return s.Size()
}

// IsInteger returns true if this is an integer type.
func (s *Scalar) IsInteger() bool {
	return s.Kind == ScalarI32 || s.Kind == ScalarU32 || s.Kind == ScalarAbstractInt
}

// IsFloat returns true if this is a floating-point type.
func (s *Scalar) IsFloat() bool {
	return s.Kind == ScalarF32 || s.Kind == ScalarF16 || s.Kind == ScalarAbstractFloat
}

// Predeclared scalars. They share the same IDs in every Table.
var (
	Bool          = &Scalar{base{1}, ScalarBool}
	I32           = &Scalar{base{2}, ScalarI32}
	U32           = &Scalar{base{3}, ScalarU32}
	F32           = &Scalar{base{4}, ScalarF32}
	F16           = &Scalar{base{5}, ScalarF16}
	AbstractInt   = &Scalar{base{6}, ScalarAbstractInt}
	AbstractFloat = &Scalar{base{7}, ScalarAbstractFloat}
)

var scalars = []*Scalar{Bool, I32, U32, F32, F16, AbstractInt, AbstractFloat}

// ----------------------------------------------------------------------------
// Vector Types
// ----------------------------------------------------------------------------

// Vector represents vec2<T>, vec3<T>, vec4<T>.
type Vector struct {
	base
	Width   int // 2, 3, or 4
	Element *Scalar
}

func (v *Vector) String() string {
	return fmt.Sprintf("vec%d<%s>", v.Width, v.Element)
}

func (v *Vector) IsConstructible() bool { return v.Element.IsConstructible() }
func (v *Vector) IsConcrete() bool      { return v.Element.IsConcrete() }
func (v *Vector) IsHostShareable() bool { return v.Element.IsHostShareable() }

func (v *Vector) Size() int {
	return v.Element.Size() * v.Width
}

func (v *Vector) Align() int {
	// vec2 aligns to 2*element, vec3 and vec4 align to 4*element
	if v.Width == 2 {
		return v.Element.Size() * 2
	}
	return v.Element.Size() * 4
}

// ----------------------------------------------------------------------------
// Matrix Types
// ----------------------------------------------------------------------------

// Matrix represents matCxR<T>: C columns of vecR<T>.
type Matrix struct {
	base
	Cols    int // 2, 3, or 4
	Rows    int // 2, 3, or 4
	Element *Scalar
	Column  *Vector
}

func (m *Matrix) String() string {
	return fmt.Sprintf("mat%dx%d<%s>", m.Cols, m.Rows, m.Element)
}

func (m *Matrix) IsConstructible() bool { return m.Element.IsConstructible() }
func (m *Matrix) IsConcrete() bool      { return m.Element.IsConcrete() }
func (m *Matrix) IsHostShareable() bool { return m.Element.IsHostShareable() }

// ColumnStride is the column size rounded up to the column alignment.
func (m *Matrix) ColumnStride() int {
	return RoundUp(m.Column.Align(), m.Column.Size())
}

func (m *Matrix) Size() int {
	return m.ColumnStride() * m.Cols
}

func (m *Matrix) Align() int {
	return m.Column.Align()
}

// ----------------------------------------------------------------------------
// Array Types
// ----------------------------------------------------------------------------

// Array represents array<T, N> or array<T> (runtime-sized).
type Array struct {
	base
	Element        Type
	Count          int // 0 for runtime-sized arrays
	ExplicitStride int // 0 when no @stride attribute was given
}

func (a *Array) String() string {
	if a.Count == 0 {
		return fmt.Sprintf("array<%s>", a.Element)
	}
	return fmt.Sprintf("array<%s, %d>", a.Element, a.Count)
}

func (a *Array) IsConstructible() bool {
	return a.Count > 0 && a.Element.IsConstructible()
}

func (a *Array) IsConcrete() bool      { return a.Element.IsConcrete() }
func (a *Array) IsHostShareable() bool { return a.Element.IsHostShareable() }

// ImplicitStride is the element size rounded up to the element alignment.
func (a *Array) ImplicitStride() int {
	return RoundUp(a.Element.Align(), a.Element.Size())
}

// Stride returns the explicit @stride if present, otherwise the implicit stride.
func (a *Array) Stride() int {
	if a.ExplicitStride > 0 {
		return a.ExplicitStride
	}
	return a.ImplicitStride()
}

// Size returns Count*Stride. A runtime-sized array reports a single stride,
// its minimum footprint.
func (a *Array) Size() int {
	if a.Count == 0 {
		return a.Stride()
	}
	return a.Stride() * a.Count
}

func (a *Array) Align() int {
	return a.Element.Align()
}

// IsRuntimeSized returns true if this is a runtime-sized array.
func (a *Array) IsRuntimeSized() bool {
	return a.Count == 0
}

// ----------------------------------------------------------------------------
// Struct Types
// ----------------------------------------------------------------------------

// StructMember is a placed struct member. Offset, Align and Size are the
// values after explicit attributes have been applied.
type StructMember struct {
	Name   string
	Type   Type
	Index  int
	Offset int
	Align  int
	Size   int

	// Explicit attribute values, zero when absent.
	ExplicitAlign  int
	ExplicitSize   int
	ExplicitOffset int
	HasOffset      bool

	Source      diagnostic.Source // member declaration
	TypeSource  diagnostic.Source // member type expression
	AlignSource diagnostic.Source // @align attribute
}

// Struct represents a user-defined struct type.
type Struct struct {
	base
	Name          string
	Members       []*StructMember
	Source        diagnostic.Source
	size          int
	align         int
	sizeNoPadding int
}

func (s *Struct) String() string {
	return s.Name
}

func (s *Struct) IsConstructible() bool {
	for _, m := range s.Members {
		if !m.Type.IsConstructible() {
			return false
		}
	}
	return true
}

func (s *Struct) IsConcrete() bool {
	for _, m := range s.Members {
		if !m.Type.IsConcrete() {
			return false
		}
	}
	return true
}

func (s *Struct) IsHostShareable() bool {
	for _, m := range s.Members {
		if !m.Type.IsHostShareable() {
			return false
		}
	}
	return true
}

func (s *Struct) Size() int  { return s.size }
func (s *Struct) Align() int { return s.align }

// SizeNoPadding is the end of the last member, before trailing padding.
func (s *Struct) SizeNoPadding() int { return s.sizeNoPadding }

// SetLayout installs the placed members and the struct's overall layout.
func (s *Struct) SetLayout(members []*StructMember, align, size, sizeNoPadding int) {
	s.Members = members
	s.align = align
	s.size = size
	s.sizeNoPadding = sizeNoPadding
}

// Member returns the member with the given name, or nil.
func (s *Struct) Member(name string) *StructMember {
	for _, m := range s.Members {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// HasRuntimeArray reports whether the last member is a runtime-sized array.
func (s *Struct) HasRuntimeArray() bool {
	if len(s.Members) == 0 {
		return false
	}
	arr, ok := s.Members[len(s.Members)-1].Type.(*Array)
	return ok && arr.IsRuntimeSized()
}

// ----------------------------------------------------------------------------
// Atomic Types
// ----------------------------------------------------------------------------

// Atomic represents atomic<T>.
type Atomic struct {
	base
	Element *Scalar // i32 or u32
}

func (a *Atomic) String() string {
	return fmt.Sprintf("atomic<%s>", a.Element)
}

func (a *Atomic) IsConstructible() bool { return false }
func (a *Atomic) IsConcrete() bool      { return true }
func (a *Atomic) IsHostShareable() bool { return true }
func (a *Atomic) Size() int             { return a.Element.Size() }
func (a *Atomic) Align() int            { return a.Element.Align() }

// ----------------------------------------------------------------------------
// Pointer and Reference Types
// ----------------------------------------------------------------------------

// Pointer represents ptr<space, T, access>.
type Pointer struct {
	base
	AddressSpace AddressSpace
	Store        Type
	Access       Access
}

func (p *Pointer) String() string {
	return fmt.Sprintf("ptr<%s, %s, %s>", p.AddressSpace, p.Store, p.Access)
}

func (p *Pointer) IsConstructible() bool { return false }
func (p *Pointer) IsConcrete() bool      { return true }
func (p *Pointer) IsHostShareable() bool { return false }
func (p *Pointer) Size() int             { return 0 }
func (p *Pointer) Align() int            { return 0 }

// Reference represents the memory view type of a variable or a dereference.
type Reference struct {
	base
	AddressSpace AddressSpace
	Store        Type
	Access       Access
}

func (r *Reference) String() string {
	return fmt.Sprintf("ref<%s, %s, %s>", r.AddressSpace, r.Store, r.Access)
}

func (r *Reference) IsConstructible() bool { return false }
func (r *Reference) IsConcrete() bool      { return true }
func (r *Reference) IsHostShareable() bool { return false }
func (r *Reference) Size() int             { return 0 }
func (r *Reference) Align() int            { return 0 }

// ----------------------------------------------------------------------------
// Subgroup Matrix and Texel Buffer Types
// ----------------------------------------------------------------------------

// SubgroupMatrixKind is the operand role of a subgroup matrix.
type SubgroupMatrixKind uint8

const (
	SubgroupMatrixLeft SubgroupMatrixKind = iota
	SubgroupMatrixRight
	SubgroupMatrixResult
)

func (k SubgroupMatrixKind) String() string {
	switch k {
	case SubgroupMatrixLeft:
		return "left"
	case SubgroupMatrixRight:
		return "right"
	default:
		return "result"
	}
}

// SubgroupMatrix represents subgroup_matrix_<kind><T, C, R>.
type SubgroupMatrix struct {
	base
	Kind    SubgroupMatrixKind
	Element *Scalar
	Cols    int
	Rows    int
}

func (m *SubgroupMatrix) String() string {
	return fmt.Sprintf("subgroup_matrix_%s<%s, %d, %d>", m.Kind, m.Element, m.Cols, m.Rows)
}

func (m *SubgroupMatrix) IsConstructible() bool { return true }
func (m *SubgroupMatrix) IsConcrete() bool      { return true }
func (m *SubgroupMatrix) IsHostShareable() bool { return false }
func (m *SubgroupMatrix) Size() int             { return 0 }
func (m *SubgroupMatrix) Align() int            { return 0 }

// TexelBuffer represents texel_buffer<format, access>.
type TexelBuffer struct {
	base
	Format string
	Access Access
}

func (b *TexelBuffer) String() string {
	return fmt.Sprintf("texel_buffer<%s, %s>", b.Format, b.Access)
}

func (b *TexelBuffer) IsConstructible() bool { return false }
func (b *TexelBuffer) IsConcrete() bool      { return true }
func (b *TexelBuffer) IsHostShareable() bool { return false }
func (b *TexelBuffer) Size() int             { return 0 }
func (b *TexelBuffer) Align() int            { return 0 }

// ----------------------------------------------------------------------------
// Handle Types
// ----------------------------------------------------------------------------

// Sampler represents sampler or sampler_comparison.
type Sampler struct {
	base
	Comparison bool
}

func (s *Sampler) String() string {
	if s.Comparison {
		return "sampler_comparison"
	}
	return "sampler"
}

func (s *Sampler) IsConstructible() bool { return false }
func (s *Sampler) IsConcrete() bool      { return true }
func (s *Sampler) IsHostShareable() bool { return false }
func (s *Sampler) Size() int             { return 0 }
func (s *Sampler) Align() int            { return 0 }

// Texture represents any texture type. Name is the WGSL spelling without
// template arguments, e.g. "texture_2d" or "texture_storage_2d".
type Texture struct {
	base
	Name    string
	Sampled *Scalar // sampled and multisampled textures
	Format  string  // storage textures
	Access  Access  // storage textures
}

func (t *Texture) String() string {
	switch {
	case t.Format != "":
		return fmt.Sprintf("%s<%s, %s>", t.Name, t.Format, t.Access)
	case t.Sampled != nil:
		return fmt.Sprintf("%s<%s>", t.Name, t.Sampled)
	default:
		return t.Name
	}
}

func (t *Texture) IsConstructible() bool { return false }
func (t *Texture) IsConcrete() bool      { return true }
func (t *Texture) IsHostShareable() bool { return false }
func (t *Texture) Size() int             { return 0 }
func (t *Texture) Align() int            { return 0 }

// ----------------------------------------------------------------------------
// Address Spaces and Access Modes
// ----------------------------------------------------------------------------

// AddressSpace represents WGSL address spaces.
type AddressSpace uint8

const (
	AddressSpaceNone AddressSpace = iota
	AddressSpaceFunction
	AddressSpacePrivate
	AddressSpaceWorkgroup
	AddressSpaceUniform
	AddressSpaceStorage
	AddressSpaceImmediate
	AddressSpacePixelLocal
	AddressSpaceHandle
)

func (a AddressSpace) String() string {
	switch a {
	case AddressSpaceFunction:
		return "function"
	case AddressSpacePrivate:
		return "private"
	case AddressSpaceWorkgroup:
		return "workgroup"
	case AddressSpaceUniform:
		return "uniform"
	case AddressSpaceStorage:
		return "storage"
	case AddressSpaceImmediate:
		return "immediate"
	case AddressSpacePixelLocal:
		return "pixel_local"
	case AddressSpaceHandle:
		return "handle"
	default:
		return ""
	}
}

// ParseAddressSpace returns the address space with the given WGSL name.
func ParseAddressSpace(s string) (AddressSpace, bool) {
	for a := AddressSpaceFunction; a <= AddressSpaceHandle; a++ {
		if a.String() == s {
			return a, true
		}
	}
	return AddressSpaceNone, s == ""
}

// IsHostShareable reports whether buffers in this space are visible to the
// host, which is what subjects them to the memory layout rules.
func (a AddressSpace) IsHostShareable() bool {
	return a == AddressSpaceUniform || a == AddressSpaceStorage || a == AddressSpaceImmediate
}

// Access represents WGSL access modes.
type Access uint8

const (
	AccessUndefined Access = iota
	AccessRead
	AccessWrite
	AccessReadWrite
)

func (a Access) String() string {
	switch a {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessReadWrite:
		return "read_write"
	default:
		return ""
	}
}

// ParseAccess returns the access mode with the given WGSL name.
func ParseAccess(s string) (Access, bool) {
	switch s {
	case "":
		return AccessUndefined, true
	case "read":
		return AccessRead, true
	case "write":
		return AccessWrite, true
	case "read_write":
		return AccessReadWrite, true
	}
	return AccessUndefined, false
}

// DefaultAccess returns the access mode implied for the address space when
// none is written.
func DefaultAccess(space AddressSpace) Access {
	switch space {
	case AddressSpaceStorage, AddressSpaceUniform, AddressSpaceImmediate, AddressSpaceHandle:
		return AccessRead
	default:
		return AccessReadWrite
	}
}

// ----------------------------------------------------------------------------
// Helper Functions
// ----------------------------------------------------------------------------

// RoundUp rounds value up to the next multiple of alignment.
func RoundUp(alignment, value int) int {
	if alignment <= 0 {
		return value
	}
	return (value + alignment - 1) / alignment * alignment
}

// IsPowerOfTwo reports whether v is a positive power of two.
func IsPowerOfTwo(v int) bool {
	return v > 0 && v&(v-1) == 0
}

// IsScalar returns true if t is a scalar type.
func IsScalar(t Type) bool {
	_, ok := t.(*Scalar)
	return ok
}

// IsHandle returns true for texture and sampler types, which live in the
// handle address space.
func IsHandle(t Type) bool {
	switch t.(type) {
	case *Sampler, *Texture, *TexelBuffer:
		return true
	}
	return false
}

// IsAtomic returns true if t is an atomic type.
func IsAtomic(t Type) bool {
	_, ok := t.(*Atomic)
	return ok
}

// ContainsAtomic reports whether t is, or transitively contains, an atomic.
func ContainsAtomic(t Type) bool {
	switch t := t.(type) {
	case *Atomic:
		return true
	case *Array:
		return ContainsAtomic(t.Element)
	case *Struct:
		for _, m := range t.Members {
			if ContainsAtomic(m.Type) {
				return true
			}
		}
	}
	return false
}

// ContainsScalar reports whether t is, or transitively contains, the scalar kind.
func ContainsScalar(t Type, kind ScalarKind) bool {
	switch t := t.(type) {
	case *Scalar:
		return t.Kind == kind
	case *Vector:
		return t.Element.Kind == kind
	case *Matrix:
		return t.Element.Kind == kind
	case *Atomic:
		return t.Element.Kind == kind
	case *Array:
		return ContainsScalar(t.Element, kind)
	case *Struct:
		for _, m := range t.Members {
			if ContainsScalar(m.Type, kind) {
				return true
			}
		}
	}
	return false
}

// UnwrapRef returns the store type of a reference, or t itself.
func UnwrapRef(t Type) Type {
	if r, ok := t.(*Reference); ok {
		return r.Store
	}
	return t
}
