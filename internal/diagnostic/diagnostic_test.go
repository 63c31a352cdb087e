package diagnostic

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestListString(t *testing.T) {
	l := NewList()
	l.AddError(CodeNotHostShareable, Source{Line: 12, Column: 34},
		"type 'bool' cannot be used in address space 'uniform' as it is non-host-shareable")
	l.AddNote(Source{Line: 56, Column: 78}, "while instantiating 'var' g")

	expect := `12:34 error: type 'bool' cannot be used in address space 'uniform' as it is non-host-shareable
56:78 note: while instantiating 'var' g`
	if got := l.String(); got != expect {
		t.Errorf("expected:\n%s\ngot:\n%s", expect, got)
	}
	if !l.HasErrors() {
		t.Error("expected HasErrors")
	}
	if l.ErrorCount() != 1 || l.Len() != 2 {
		t.Errorf("expected 1 error and 2 diagnostics, got %d and %d", l.ErrorCount(), l.Len())
	}
}

func TestNoSourceOmitsPrefix(t *testing.T) {
	l := NewList()
	l.AddError(CodeInvalidLayout, Source{}, "something")
	if got := l.String(); got != "error: something" {
		t.Errorf("expected prefix-less error, got %q", got)
	}
}

func TestTruncateKeepsNotes(t *testing.T) {
	l := NewList()
	for i := 1; i <= 3; i++ {
		l.AddErrorf(CodeInvalidLayout, Source{Line: i, Column: 1}, "error %d", i)
		l.AddNotef(Source{Line: i, Column: 2}, "note %d", i)
	}
	l.Truncate(2)
	if l.ErrorCount() != 2 {
		t.Fatalf("expected 2 errors, got %d", l.ErrorCount())
	}
	if l.Len() != 4 {
		t.Fatalf("expected 4 diagnostics, got %d", l.Len())
	}
	if last := l.All()[3]; last.Message != "note 2" {
		t.Errorf("expected last diagnostic to be 'note 2', got %q", last.Message)
	}
}

func TestFormatterText(t *testing.T) {
	l := NewList()
	l.AddError(CodeAliasedPointer, Source{Line: 1, Column: 2}, "invalid aliased pointer argument")
	l.AddNote(Source{Line: 3, Column: 4}, "aliases with another argument passed here")

	var buf bytes.Buffer
	f := &Formatter{Name: "a.json"}
	if err := f.WriteText(&buf, l); err != nil {
		t.Fatal(err)
	}
	expect := "a.json:1:2 error: invalid aliased pointer argument\n" +
		"a.json:3:4 note: aliases with another argument passed here\n"
	if buf.String() != expect {
		t.Errorf("expected %q, got %q", expect, buf.String())
	}

	buf.Reset()
	f.Color = true
	if err := f.WriteText(&buf, l); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), ansiRed) {
		t.Error("expected colored output")
	}
}

func TestFormatterJSON(t *testing.T) {
	l := NewList()
	l.AddError(CodeAliasedPointer, Source{Line: 1, Column: 2}, "invalid aliased pointer argument")
	l.AddNote(Source{Line: 3, Column: 4}, "aliases with another argument passed here")
	l.AddError(CodeInvalidLayout, Source{}, "second")

	var buf bytes.Buffer
	if err := (&Formatter{}).WriteJSON(&buf, l); err != nil {
		t.Fatal(err)
	}
	var decoded []JSONDiagnostic
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(decoded))
	}
	if len(decoded[0].Notes) != 1 || decoded[0].Code != "E0308" {
		t.Errorf("unexpected first group: %+v", decoded[0])
	}
}
