// Package validator_tests runs golden validation tests over program
// documents in testdata.
//
// Each test file is a JSON object:
//
//	{
//	  "test": "optional name, defaults to the file name",
//	  "options": {"extensions": ["f16"], "maxErrors": 1},
//	  "expect": ["1:18 error: ...", "1:1 note: ..."],
//	  "program": {"version": "1.0.0", "decls": [...]}
//	}
//
// The diagnostics must match "expect" line for line. An empty or absent
// "expect" means the program is valid.
package validator_tests

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/HugoDaniel/wgslcheck/internal/test"
	"github.com/HugoDaniel/wgslcheck/pkg/api"
)

// TestCase represents a single golden test.
type TestCase struct {
	Name     string
	FilePath string
	Program  json.RawMessage
	Options  api.Options
	Expected string
}

type testFile struct {
	Test    string          `json:"test"`
	Options testOptions     `json:"options"`
	Expect  []string        `json:"expect"`
	Program json.RawMessage `json:"program"`
}

type testOptions struct {
	Extensions        []string `json:"extensions"`
	AllowedExtensions []string `json:"allowedExtensions"`
	MaxErrors         int      `json:"maxErrors"`
}

// ParseTestFile reads a golden test file.
func ParseTestFile(path string) (*TestCase, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f testFile
	if err := json.Unmarshal(content, &f); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	if len(f.Program) == 0 {
		return nil, errors.Errorf("%s: missing program", path)
	}

	tc := &TestCase{
		Name:     strings.TrimSuffix(filepath.Base(path), ".json"),
		FilePath: path,
		Program:  f.Program,
		Options: api.Options{
			Extensions:        f.Options.Extensions,
			AllowedExtensions: f.Options.AllowedExtensions,
			MaxErrors:         f.Options.MaxErrors,
		},
		Expected: strings.Join(f.Expect, "\n"),
	}
	if f.Test != "" {
		tc.Name = f.Test
	}
	return tc, nil
}

// RunTestCase checks a program and compares its diagnostics with the
// expected text.
func RunTestCase(t *testing.T, tc *TestCase) {
	t.Helper()

	result, err := api.Check(tc.Program, tc.Options)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}

	actual := strings.TrimSuffix(result.Text, "\n")
	test.AssertEqualWithDiff(t, actual, tc.Expected)
	test.AssertEqual(t, result.Valid, tc.Expected == "")
}

// RunTestDir runs all .json test files in a directory and its
// subdirectories.
func RunTestDir(t *testing.T, dir string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read test directory %s: %v", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			// Recursively process subdirectories
			subdir := filepath.Join(dir, entry.Name())
			t.Run(entry.Name(), func(t *testing.T) {
				RunTestDir(t, subdir)
			})
			continue
		}

		if !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		tc, err := ParseTestFile(path)
		if err != nil {
			t.Errorf("failed to parse test file %s: %v", path, err)
			continue
		}

		t.Run(tc.Name, func(t *testing.T) {
			RunTestCase(t, tc)
		})
	}
}
