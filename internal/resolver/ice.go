package resolver

import (
	"fmt"

	"github.com/HugoDaniel/wgslcheck/internal/diagnostic"
)

// ICE is an internal compiler error: an invariant of the program model was
// violated. It aborts the compilation unit instead of producing a
// diagnostic.
type ICE struct {
	Source  diagnostic.Source
	Message string
}

func newICE(src diagnostic.Source, format string, args ...any) *ICE {
	return &ICE{Source: src, Message: fmt.Sprintf(format, args...)}
}

func (e *ICE) Error() string {
	if e.Source.IsValid() {
		return fmt.Sprintf("%s internal compiler error: %s", e.Source, e.Message)
	}
	return "internal compiler error: " + e.Message
}
