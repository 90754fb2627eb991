package compress

import (
	"bytes"
	"context"
	"fmt"

	"github.com/puterize/glabu/internal/runner"
)

// upxMagic marks a UPX-packed executable; it lives in the loader header
// near the start of the file.
var upxMagic = []byte("UPX!")

// UPX compresses executables in place with the upx tool.
type UPX struct {
	Runner runner.CommandRunner
	Binary string
	Args   []string
}

// Name implements Compressor.
func (u *UPX) Name() string { return NameUPX }

// Compressed implements Compressor.
func (u *UPX) Compressed(binaryPath string) (string, bool, error) {
	header, err := readHeader(binaryPath)
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", binaryPath, err)
	}
	if err := checkExecutable(header); err != nil {
		return "", false, fmt.Errorf("%s: %w", binaryPath, err)
	}
	return binaryPath, bytes.Contains(header, upxMagic), nil
}

// Compress implements Compressor.
func (u *UPX) Compress(ctx context.Context, binaryPath string) (string, error) {
	if u.Runner == nil {
		return "", fmt.Errorf("upx runner is required")
	}
	bin := u.Binary
	if bin == "" {
		bin = "upx"
	}
	args := append(append([]string{}, u.Args...), binaryPath)
	if _, err := u.Runner.RunOutput(ctx, "", bin, args...); err != nil {
		return "", err
	}

	header, err := readHeader(binaryPath)
	if err != nil {
		return "", fmt.Errorf("reading %s after upx: %w", binaryPath, err)
	}
	if !bytes.Contains(header, upxMagic) {
		return "", fmt.Errorf("upx reported success but %s carries no UPX header", binaryPath)
	}
	return binaryPath, nil
}
