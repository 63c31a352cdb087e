package diagnostic

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// ANSI escape sequences used by the colored text format.
const (
	ansiReset = "\x1b[0m"
	ansiBold  = "\x1b[1m"
	ansiRed   = "\x1b[31m"
	ansiCyan  = "\x1b[36m"
	ansiPurp  = "\x1b[35m"
)

// Formatter writes diagnostics for one input file.
type Formatter struct {
	// Name is printed before each primary diagnostic when non-empty.
	Name string
	// Color enables ANSI colors in text output.
	Color bool
}

// WriteText writes the Tint text format, optionally colored and prefixed
// with the file name.
func (f *Formatter) WriteText(w io.Writer, l *List) error {
	var sb strings.Builder
	for _, d := range l.All() {
		if f.Name != "" {
			sb.WriteString(f.Name)
			sb.WriteByte(':')
		}
		if d.Source.IsValid() {
			sb.WriteString(d.Source.String())
			sb.WriteByte(' ')
		}
		sb.WriteString(f.severity(d.Severity))
		sb.WriteString(": ")
		sb.WriteString(d.Message)
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func (f *Formatter) severity(s Severity) string {
	if !f.Color {
		return s.String()
	}
	switch s {
	case Error:
		return ansiBold + ansiRed + s.String() + ansiReset
	case Warning:
		return ansiBold + ansiPurp + s.String() + ansiReset
	default:
		return ansiCyan + s.String() + ansiReset
	}
}

// JSONDiagnostic is the JSON form of a diagnostic.
type JSONDiagnostic struct {
	File     string           `json:"file,omitempty"`
	Severity string           `json:"severity"`
	Code     string           `json:"code,omitempty"`
	Line     int              `json:"line,omitempty"`
	Column   int              `json:"column,omitempty"`
	Message  string           `json:"message"`
	Notes    []JSONDiagnostic `json:"notes,omitempty"`
}

// ToJSON groups each error with its notes.
func (f *Formatter) ToJSON(l *List) []JSONDiagnostic {
	out := make([]JSONDiagnostic, 0, l.ErrorCount())
	for _, group := range l.Groups() {
		head := toJSON(group[0])
		head.File = f.Name
		for _, n := range group[1:] {
			head.Notes = append(head.Notes, toJSON(n))
		}
		out = append(out, head)
	}
	return out
}

// WriteJSON writes the diagnostics as an indented JSON array.
func (f *Formatter) WriteJSON(w io.Writer, l *List) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(f.ToJSON(l)); err != nil {
		return errors.Wrap(err, "encoding diagnostics")
	}
	return nil
}

func toJSON(d Diagnostic) JSONDiagnostic {
	return JSONDiagnostic{
		Severity: d.Severity.String(),
		Code:     string(d.Code),
		Line:     d.Source.Line,
		Column:   d.Source.Column,
		Message:  d.Message,
	}
}
