package types

import "github.com/HugoDaniel/wgslcheck/internal/diagnostic"

type kind uint8

const (
	kindVector kind = iota + 1
	kindMatrix
	kindArray
	kindAtomic
	kindPointer
	kindReference
	kindSampler
	kindTexture
	kindSubgroupMatrix
	kindTexelBuffer
)

// key is the canonical tuple an interned type is looked up by. Every field
// is an ID or a small enum, never a pointer.
type key struct {
	kind       kind
	a, b, c, d uint32
}

// Table owns every type of one compilation unit.
type Table struct {
	byID     []Type
	interned map[key]Type
	strings  map[string]uint32
}

// NewTable creates a table holding the predeclared scalars.
func NewTable() *Table {
	t := &Table{
		byID:     make([]Type, 1, 64), // ID 0 is never assigned
		interned: make(map[key]Type),
		strings:  make(map[string]uint32),
	}
	for _, s := range scalars {
		t.byID = append(t.byID, s)
	}
	return t
}

// Lookup returns the type with the given ID, or nil.
func (t *Table) Lookup(id ID) Type {
	if int(id) < len(t.byID) {
		return t.byID[id]
	}
	return nil
}

// Len returns the number of types in the table.
func (t *Table) Len() int {
	return len(t.byID) - 1
}

func (t *Table) nextID() ID {
	return ID(len(t.byID))
}

func (t *Table) intern(k key, build func(id ID) Type) Type {
	if ty, ok := t.interned[k]; ok {
		return ty
	}
	ty := build(t.nextID())
	t.byID = append(t.byID, ty)
	t.interned[k] = ty
	return ty
}

func (t *Table) str(s string) uint32 {
	if id, ok := t.strings[s]; ok {
		return id
	}
	id := uint32(len(t.strings) + 1)
	t.strings[s] = id
	return id
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// Vec returns the interned vecN<T>.
func (t *Table) Vec(width int, elem *Scalar) *Vector {
	k := key{kindVector, uint32(elem.id), uint32(width), 0, 0}
	return t.intern(k, func(id ID) Type {
		return &Vector{base: base{id}, Width: width, Element: elem}
	}).(*Vector)
}

// Mat returns the interned matCxR<T>.
func (t *Table) Mat(cols, rows int, elem *Scalar) *Matrix {
	column := t.Vec(rows, elem)
	k := key{kindMatrix, uint32(elem.id), uint32(cols), uint32(rows), 0}
	return t.intern(k, func(id ID) Type {
		return &Matrix{base: base{id}, Cols: cols, Rows: rows, Element: elem, Column: column}
	}).(*Matrix)
}

// Array returns the interned array<T, count>. A count of 0 makes a
// runtime-sized array; a stride of 0 means no @stride attribute.
func (t *Table) Array(elem Type, count, stride int) *Array {
	k := key{kindArray, uint32(elem.ID()), uint32(count), uint32(stride), 0}
	return t.intern(k, func(id ID) Type {
		return &Array{base: base{id}, Element: elem, Count: count, ExplicitStride: stride}
	}).(*Array)
}

// RuntimeArray returns the interned array<T>.
func (t *Table) RuntimeArray(elem Type) *Array {
	return t.Array(elem, 0, 0)
}

// Atomic returns the interned atomic<T>.
func (t *Table) Atomic(elem *Scalar) *Atomic {
	k := key{kindAtomic, uint32(elem.id), 0, 0, 0}
	return t.intern(k, func(id ID) Type {
		return &Atomic{base: base{id}, Element: elem}
	}).(*Atomic)
}

// Ptr returns the interned ptr<space, store, access>. An undefined access
// resolves to the address space's default.
func (t *Table) Ptr(space AddressSpace, store Type, access Access) *Pointer {
	if access == AccessUndefined {
		access = DefaultAccess(space)
	}
	k := key{kindPointer, uint32(store.ID()), uint32(space), uint32(access), 0}
	return t.intern(k, func(id ID) Type {
		return &Pointer{base: base{id}, AddressSpace: space, Store: store, Access: access}
	}).(*Pointer)
}

// Ref returns the interned reference type of a variable.
func (t *Table) Ref(space AddressSpace, store Type, access Access) *Reference {
	if access == AccessUndefined {
		access = DefaultAccess(space)
	}
	k := key{kindReference, uint32(store.ID()), uint32(space), uint32(access), 0}
	return t.intern(k, func(id ID) Type {
		return &Reference{base: base{id}, AddressSpace: space, Store: store, Access: access}
	}).(*Reference)
}

// Sampler returns the interned sampler or sampler_comparison.
func (t *Table) Sampler(comparison bool) *Sampler {
	k := key{kindSampler, b2u(comparison), 0, 0, 0}
	return t.intern(k, func(id ID) Type {
		return &Sampler{base: base{id}, Comparison: comparison}
	}).(*Sampler)
}

// Texture returns the interned texture type.
func (t *Table) Texture(name string, sampled *Scalar, format string, access Access) *Texture {
	var sampledID uint32
	if sampled != nil {
		sampledID = uint32(sampled.id)
	}
	k := key{kindTexture, t.str(name), sampledID, t.str(format), uint32(access)}
	return t.intern(k, func(id ID) Type {
		return &Texture{base: base{id}, Name: name, Sampled: sampled, Format: format, Access: access}
	}).(*Texture)
}

// SubgroupMatrix returns the interned subgroup matrix type.
func (t *Table) SubgroupMatrix(kind SubgroupMatrixKind, elem *Scalar, cols, rows int) *SubgroupMatrix {
	k := key{kindSubgroupMatrix, uint32(elem.id), uint32(kind), uint32(cols), uint32(rows)}
	return t.intern(k, func(id ID) Type {
		return &SubgroupMatrix{base: base{id}, Kind: kind, Element: elem, Cols: cols, Rows: rows}
	}).(*SubgroupMatrix)
}

// TexelBuffer returns the interned texel buffer type.
func (t *Table) TexelBuffer(format string, access Access) *TexelBuffer {
	k := key{kindTexelBuffer, t.str(format), uint32(access), 0, 0}
	return t.intern(k, func(id ID) Type {
		return &TexelBuffer{base: base{id}, Format: format, Access: access}
	}).(*TexelBuffer)
}

// NewStruct allocates a nominal struct type. Its layout is installed later
// with SetLayout, once every member type has been resolved.
func (t *Table) NewStruct(name string, src diagnostic.Source) *Struct {
	s := &Struct{base: base{t.nextID()}, Name: name, Source: src, align: 1}
	t.byID = append(t.byID, s)
	return s
}

// Materialize returns the concrete version of an abstract type: abstract-int
// becomes i32 and abstract-float becomes f32, element-wise for composites.
// Concrete types are returned unchanged.
func (t *Table) Materialize(ty Type) Type {
	switch ty := ty.(type) {
	case *Scalar:
		switch ty.Kind {
		case ScalarAbstractFloat:
			return F32
		case ScalarAbstractInt:
			return I32
		}
	case *Vector:
		if !ty.IsConcrete() {
			return t.Vec(ty.Width, t.Materialize(ty.Element).(*Scalar))
		}
	case *Matrix:
		if !ty.IsConcrete() {
			return t.Mat(ty.Cols, ty.Rows, F32)
		}
	case *Array:
		if elem := t.Materialize(ty.Element); elem != ty.Element {
			return t.Array(elem, ty.Count, ty.ExplicitStride)
		}
	}
	return ty
}
