package layout

import (
	"fmt"
	"strings"

	"github.com/HugoDaniel/wgslcheck/internal/types"
)

// Diagram renders the layout of s as a fixed-width table, one row per
// member, with synthetic rows for implicit alignment and trailing padding:
//
//	/*           align(4) size(12) */ struct S {
//	/* offset(0) align(4) size( 5) */   a : f32;
//	/* offset(5) align(1) size( 4) */   b : f32;
//	/* offset(9) align(1) size( 3) */   // -- implicit struct size padding --
//	/*                             */ };
//
// Columns are right-justified to the widest value: the end of the last
// member for offsets, the struct size for sizes and the struct alignment
// for alignments. An empty struct renders as the empty string.
func Diagram(s *types.Struct) string {
	if len(s.Members) == 0 {
		return ""
	}
	last := s.Members[len(s.Members)-1]
	lastEnd := last.Offset + last.Size

	offsetW := digits(lastEnd)
	sizeW := digits(s.Size())
	alignW := digits(s.Align())

	var sb strings.Builder
	fmt.Fprintf(&sb, "/*%s align(%*d) size(%*d) */ struct %s {\n",
		strings.Repeat(" ", 9+offsetW), alignW, s.Align(), sizeW, s.Size(), s.Name)

	row := func(offset, align, size int, text string) {
		fmt.Fprintf(&sb, "/* offset(%*d) align(%*d) size(%*d) */   %s\n",
			offsetW, offset, alignW, align, sizeW, size, text)
	}

	for i, m := range s.Members {
		if i > 0 {
			prev := s.Members[i-1]
			if padding := m.Offset - (prev.Offset + prev.Size); padding > 0 {
				row(m.Offset-padding, 1, padding, "// -- implicit field alignment padding --")
			}
		}
		row(m.Offset, m.Align, m.Size, m.Name+" : "+m.Type.String()+";")
	}

	if padding := s.Size() - lastEnd; padding > 0 {
		row(lastEnd, 1, padding, "// -- implicit struct size padding --")
	}

	fmt.Fprintf(&sb, "/*%s*/ };", strings.Repeat(" ", 25+offsetW+sizeW+alignW))
	return sb.String()
}

func digits(v int) int {
	if v <= 0 {
		return 1
	}
	n := 0
	for v > 0 {
		n++
		v /= 10
	}
	return n
}
