package compress

import (
	"context"
	"fmt"
)

// None uploads binaries as built.
type None struct{}

// Name implements Compressor.
func (None) Name() string { return NameNone }

// Compressed implements Compressor. A valid binary is always its own artifact.
func (None) Compressed(binaryPath string) (string, bool, error) {
	header, err := readHeader(binaryPath)
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", binaryPath, err)
	}
	if err := checkExecutable(header); err != nil {
		return "", false, fmt.Errorf("%s: %w", binaryPath, err)
	}
	return binaryPath, false, nil
}

// Compress implements Compressor.
func (None) Compress(_ context.Context, binaryPath string) (string, error) {
	return binaryPath, nil
}
