package release

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileInstaller copies a binary into a directory atomically: the data is
// written to a temp file in the target directory and renamed into place.
type FileInstaller struct{}

// Install implements Installer.
func (FileInstaller) Install(src, dir, name string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	dest := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, "."+name+".install-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("copying %s: %w", src, err)
	}
	if err := tmp.Chmod(0o755); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("installing %s: %w", dest, err)
	}
	return dest, nil
}
