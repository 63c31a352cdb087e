package validator_tests

import (
	"os"
	"path/filepath"
	"testing"
)

const testDataDir = "testdata"

func runDir(t *testing.T, name string) {
	dir := filepath.Join(testDataDir, name)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Skipf("%s directory not found", dir)
	}
	RunTestDir(t, dir)
}

func TestLayout(t *testing.T) {
	runDir(t, "layout")
}

func TestAddressSpaces(t *testing.T) {
	runDir(t, "addrspace")
}

func TestAliasing(t *testing.T) {
	runDir(t, "alias")
}

func TestParseTestFile(t *testing.T) {
	tc, err := ParseTestFile(filepath.Join(testDataDir, "addrspace", "uniform_bool.json"))
	if err != nil {
		t.Fatalf("ParseTestFile failed: %v", err)
	}
	if tc.Name != "uniform_bool" {
		t.Errorf("expected name from file, got %q", tc.Name)
	}
	if tc.Expected == "" {
		t.Error("expected diagnostics to be read")
	}
}
