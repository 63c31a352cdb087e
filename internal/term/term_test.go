package term

import (
	"os"
	"path/filepath"
	"testing"
)

func TestUseColor(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.txt"))
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	tests := []struct {
		mode string
		want bool
	}{
		{"always", true},
		{"never", false},
		// a regular file is never a terminal
		{"auto", false},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			if got := UseColor(tt.mode, f); got != tt.want {
				t.Errorf("UseColor(%q) = %v, want %v", tt.mode, got, tt.want)
			}
		})
	}
}

func TestUseColorNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	if UseColor("auto", os.Stdout) {
		t.Error("expected NO_COLOR to disable auto color")
	}
	if !UseColor("always", os.Stdout) {
		t.Error("expected always to ignore NO_COLOR")
	}
}

func TestIsTerminalNil(t *testing.T) {
	if IsTerminal(nil) {
		t.Error("nil file reported as terminal")
	}
}

func TestIsTerminalRegularFile(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.txt"))
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if IsTerminal(f) {
		t.Error("regular file reported as terminal")
	}
}
