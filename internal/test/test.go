// Package test provides testing utilities shared by the wgslcheck packages.
package test

import (
	"testing"

	"github.com/pmezard/go-difflib/difflib"
)

// AssertEqual checks if two values are equal and reports a test error if not.
func AssertEqual[T comparable](t testing.TB, actual, expected T) {
	t.Helper()
	if actual != expected {
		t.Errorf("\nexpected: %v\nactual:   %v", expected, actual)
	}
}

// AssertEqualWithDiff checks if two strings are equal and shows a unified
// diff if not. Use it for multi-line output such as layout diagrams and
// rendered diagnostics.
func AssertEqualWithDiff(t testing.TB, actual, expected string) {
	t.Helper()
	if actual != expected {
		t.Errorf("\n%s", Diff(expected, actual))
	}
}

// Diff produces a unified diff between two strings.
func Diff(expected, actual string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  3,
	})
	if err != nil {
		return err.Error()
	}
	return diff
}

// AssertNoError fails the test immediately if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
