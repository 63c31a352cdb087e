package layout

import "github.com/HugoDaniel/wgslcheck/internal/types"

// StructLayout describes the memory layout of a struct.
type StructLayout struct {
	Name      string      `json:"name"`
	Size      int         `json:"size"`
	Alignment int         `json:"alignment"`
	Fields    []FieldInfo `json:"fields"`
}

// FieldInfo describes a single struct field.
type FieldInfo struct {
	Name      string        `json:"name"`
	Type      string        `json:"type"`
	Offset    int           `json:"offset"`
	Size      int           `json:"size"`
	Alignment int           `json:"alignment"`
	Stride    int           `json:"stride,omitempty"` // arrays only
	Layout    *StructLayout `json:"layout,omitempty"` // for nested structs
}

// Reflect returns the layout record of a placed struct. Struct members, and
// array members whose element is a struct, carry their nested layout.
func Reflect(s *types.Struct) StructLayout {
	out := StructLayout{
		Name:      s.Name,
		Size:      s.Size(),
		Alignment: s.Align(),
		Fields:    make([]FieldInfo, 0, len(s.Members)),
	}
	for _, m := range s.Members {
		f := FieldInfo{
			Name:      m.Name,
			Type:      m.Type.String(),
			Offset:    m.Offset,
			Size:      m.Size,
			Alignment: m.Align,
		}
		if arr, ok := m.Type.(*types.Array); ok {
			f.Stride = arr.Stride()
		}
		if nested := StructOf(m.Type); nested != nil {
			l := Reflect(nested)
			f.Layout = &l
		}
		out.Fields = append(out.Fields, f)
	}
	return out
}

// StructOf returns t if it is a struct, or the innermost element struct of
// an array of structs. Otherwise it returns nil.
func StructOf(t types.Type) *types.Struct {
	for {
		switch ty := t.(type) {
		case *types.Struct:
			return ty
		case *types.Array:
			t = ty.Element
		default:
			return nil
		}
	}
}
