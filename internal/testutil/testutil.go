// Package testutil provides fixture helpers shared by glabu tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/puterize/glabu/internal/releasefile"
)

// elfMagic is the 64-bit little-endian ELF ident prefix.
var elfMagic = []byte{0x7f, 'E', 'L', 'F', 2, 1, 1, 0}

// ELF returns payload prefixed with an ELF header, enough to pass the
// executable checks in the build and compress stages.
func ELF(payload []byte) []byte {
	out := make([]byte, 0, len(elfMagic)+len(payload))
	out = append(out, elfMagic...)
	return append(out, payload...)
}

// IsELF reports whether data starts with the ELF header written by ELF.
func IsELF(data []byte) bool {
	if len(data) < len(elfMagic) {
		return false
	}
	for i, b := range elfMagic {
		if data[i] != b {
			return false
		}
	}
	return true
}

// WriteELF writes an executable fake binary at path, creating parent dirs.
// It returns an error rather than failing the test so it can be called
// from fake runner callbacks.
func WriteELF(path string, payload []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, ELF(payload), 0o755)
}

// WriteFile creates a file with the given content in the specified directory.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create parent dirs for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
	return path
}

// WriteReleaseFile writes content as the release file of project root.
func WriteReleaseFile(t *testing.T, root, content string) string {
	t.Helper()
	return WriteFile(t, root, releasefile.FileName, content)
}
