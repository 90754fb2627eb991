// Package build produces one release binary per target architecture.
package build

import (
	"context"
	"fmt"
	"os"

	"github.com/puterize/glabu/internal/arch"
)

// Builder builds the release binary of version for one architecture and
// returns the path of the executable.
type Builder interface {
	Build(ctx context.Context, version string, a arch.Arch) (string, error)
}

// Modes selectable in the release file.
const (
	ModeCargo = "cargo"
	ModeImage = "image"
)

// checkBinary fails unless path is a non-empty regular file.
func checkBinary(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("expected binary at %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("expected binary at %s, found %s", path, info.Mode().Type())
	}
	if info.Size() == 0 {
		return fmt.Errorf("binary at %s is empty", path)
	}
	return nil
}
