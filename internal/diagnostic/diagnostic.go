// Package diagnostic provides error reporting for WGSL layout, address-space
// and aliasing validation.
//
// The text format is compatible with the Dawn Tint compiler's resolver
// output: each diagnostic renders as "LINE:COL severity: message", and a
// diagnostic without a source omits the "LINE:COL " prefix.
package diagnostic

import (
	"fmt"
	"strings"
)

// Severity represents the severity level of a diagnostic.
type Severity uint8

const (
	// Error fails validation.
	Error Severity = iota
	// Warning is a non-blocking issue.
	Warning
	// Note provides additional context for the preceding error.
	Note
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Note:
		return "note"
	default:
		return "unknown"
	}
}

// Source is a position in the original WGSL source. Lines and columns are
// 1-based; the zero value means no source is attached.
type Source struct {
	Line   int
	Column int
}

// IsValid reports whether a source position is attached.
func (s Source) IsValid() bool {
	return s.Line > 0
}

func (s Source) String() string {
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}

// Diagnostic represents a single diagnostic message.
type Diagnostic struct {
	Severity Severity
	Code     Code   // Error code (e.g., "E0307"), empty for notes
	Source   Source // Source location
	Message  string // Human-readable message, may span lines
}

// Error returns the formatted diagnostic line.
func (d *Diagnostic) Error() string {
	return d.String()
}

func (d *Diagnostic) String() string {
	if d.Source.IsValid() {
		return fmt.Sprintf("%s %s: %s", d.Source, d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Severity, d.Message)
}

// List collects diagnostics during validation. Notes always follow the
// error they annotate.
type List struct {
	diagnostics []Diagnostic
	errors      int
}

// NewList creates an empty diagnostic list.
func NewList() *List {
	return &List{}
}

// Add adds a diagnostic to the list.
func (l *List) Add(d Diagnostic) {
	l.diagnostics = append(l.diagnostics, d)
	if d.Severity == Error {
		l.errors++
	}
}

// AddError adds an error diagnostic.
func (l *List) AddError(code Code, src Source, message string) {
	l.Add(Diagnostic{Severity: Error, Code: code, Source: src, Message: message})
}

// AddErrorf adds an error diagnostic with a formatted message.
func (l *List) AddErrorf(code Code, src Source, format string, args ...any) {
	l.AddError(code, src, fmt.Sprintf(format, args...))
}

// AddNote adds a note diagnostic.
func (l *List) AddNote(src Source, message string) {
	l.Add(Diagnostic{Severity: Note, Source: src, Message: message})
}

// AddNotef adds a note diagnostic with a formatted message.
func (l *List) AddNotef(src Source, format string, args ...any) {
	l.AddNote(src, fmt.Sprintf(format, args...))
}

// Append copies all diagnostics from other into l.
func (l *List) Append(other *List) {
	for _, d := range other.diagnostics {
		l.Add(d)
	}
}

// HasErrors returns true if any errors were reported.
func (l *List) HasErrors() bool {
	return l.errors > 0
}

// ErrorCount returns the number of errors.
func (l *List) ErrorCount() int {
	return l.errors
}

// Len returns the number of diagnostics, notes included.
func (l *List) Len() int {
	return len(l.diagnostics)
}

// All returns all diagnostics in report order.
func (l *List) All() []Diagnostic {
	return l.diagnostics
}

// Errors returns only error diagnostics.
func (l *List) Errors() []Diagnostic {
	var result []Diagnostic
	for _, d := range l.diagnostics {
		if d.Severity == Error {
			result = append(result, d)
		}
	}
	return result
}

// Truncate keeps the first max errors and the notes attached to them.
func (l *List) Truncate(max int) {
	if max <= 0 || l.errors <= max {
		return
	}
	seen := 0
	for i, d := range l.diagnostics {
		if d.Severity == Error {
			seen++
			if seen > max {
				l.diagnostics = l.diagnostics[:i]
				l.errors = max
				return
			}
		}
	}
}

// Groups splits the list into errors, each followed by its notes.
func (l *List) Groups() [][]Diagnostic {
	var groups [][]Diagnostic
	for _, d := range l.diagnostics {
		if d.Severity != Note || len(groups) == 0 {
			groups = append(groups, []Diagnostic{d})
			continue
		}
		last := len(groups) - 1
		groups[last] = append(groups[last], d)
	}
	return groups
}

// String renders every diagnostic in order, one per line.
func (l *List) String() string {
	var sb strings.Builder
	for i := range l.diagnostics {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(l.diagnostics[i].String())
	}
	return sb.String()
}

// Code defines standard error codes.
type Code string

const (
	// Symbol errors (E01xx)
	CodeUndefinedSymbol   Code = "E0100"
	CodeRecursiveFunction Code = "E0103"
	CodeRecursiveType     Code = "E0104"

	// Declaration errors (E03xx)
	CodeInvalidDeclaration  Code = "E0300"
	CodeInvalidAddressSpace Code = "E0304"
	CodeInvalidAccessMode   Code = "E0305"
	CodeNotHostShareable    Code = "E0306"
	CodeInvalidLayout       Code = "E0307"
	CodeAliasedPointer      Code = "E0308"

	// Attribute errors (E04xx)
	CodeInvalidAttribute Code = "E0400"
	CodeMissingAttribute Code = "E0402"
	CodeMissingExtension Code = "E0405"
)
