package test

import (
	"strings"
	"testing"
)

func TestDiff(t *testing.T) {
	diff := Diff("a\nb\nc\n", "a\nx\nc\n")
	if !strings.Contains(diff, "-b") || !strings.Contains(diff, "+x") {
		t.Errorf("expected unified diff, got:\n%s", diff)
	}
	if !strings.HasPrefix(diff, "--- expected\n+++ actual\n") {
		t.Errorf("expected file headers, got:\n%s", diff)
	}
	if Diff("same", "same") != "" {
		t.Error("expected empty diff for equal strings")
	}
}
