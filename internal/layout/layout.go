// Package layout implements the WGSL memory layout engine: member placement
// for structs, per-type size/alignment/stride records, and the fixed-width
// layout diagrams embedded in diagnostics.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
package layout

import (
	"github.com/HugoDaniel/wgslcheck/internal/types"
)

// Layout holds size and alignment information for a WGSL type.
type Layout struct {
	Size      int
	Alignment int
	Stride    int // For arrays only (0 otherwise)
}

// Engine computes layouts for the types of one Table. Results are memoised
// by type ID, so an Engine must not outlive its Table.
type Engine struct {
	cache map[types.ID]Layout
}

// NewEngine creates a layout engine with an empty cache.
func NewEngine() *Engine {
	return &Engine{cache: make(map[types.ID]Layout)}
}

// Of returns the layout of t. Types without a memory layout (pointers,
// handles, abstract scalars) report a zero Layout.
func (e *Engine) Of(t types.Type) Layout {
	if t == nil {
		return Layout{}
	}
	if l, ok := e.cache[t.ID()]; ok {
		return l
	}
	l := Layout{Size: t.Size(), Alignment: t.Align()}
	if arr, ok := t.(*types.Array); ok {
		l.Stride = arr.Stride()
	}
	e.cache[t.ID()] = l
	return l
}

// Place runs the struct layout algorithm over members in declaration order
// and installs the result on s.
//
// An explicit @align replaces the type's natural alignment and an explicit
// @size replaces its natural size. An explicit @offset places the member
// verbatim, bypassing alignment. The struct's alignment is the largest
// member alignment and its size is the end of the last member rounded up to
// that alignment.
func Place(s *types.Struct, members []*types.StructMember) {
	offset := 0
	maxAlign := 1

	for i, m := range members {
		m.Index = i

		m.Align = m.Type.Align()
		if m.ExplicitAlign > 0 {
			m.Align = m.ExplicitAlign
		}
		if m.Align < 1 {
			m.Align = 1
		}
		m.Size = m.Type.Size()
		if m.ExplicitSize > 0 {
			m.Size = m.ExplicitSize
		}

		if m.HasOffset {
			m.Offset = m.ExplicitOffset
		} else {
			m.Offset = types.RoundUp(m.Align, offset)
		}

		offset = m.Offset + m.Size
		if m.Align > maxAlign {
			maxAlign = m.Align
		}
	}

	s.SetLayout(members, maxAlign, types.RoundUp(maxAlign, offset), offset)
}
