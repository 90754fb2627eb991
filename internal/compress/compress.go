// Package compress shrinks release binaries before upload. Every
// compressor can recognise its own output so a second run never
// re-compresses (and corrupts) an artifact.
package compress

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// Names of the supported compressors.
const (
	NameUPX  = "upx"
	NameZstd = "zstd"
	NameNone = "none"
)

// Compressor compresses a binary into an upload artifact.
type Compressor interface {
	// Name returns the compressor name used in configuration.
	Name() string

	// Compressed reports whether binaryPath already has a compressed
	// artifact and returns the artifact path.
	Compressed(binaryPath string) (artifactPath string, ok bool, err error)

	// Compress compresses binaryPath and returns the artifact path.
	Compress(ctx context.Context, binaryPath string) (artifactPath string, err error)
}

// ErrInvalidBinary is returned when the input is not a recognizable executable.
var ErrInvalidBinary = errors.New("not a valid executable")

// Ensure compresses binaryPath unless an artifact already exists.
// skipped reports whether compression was skipped by the guard.
func Ensure(ctx context.Context, c Compressor, binaryPath string) (artifactPath string, skipped bool, err error) {
	artifactPath, ok, err := c.Compressed(binaryPath)
	if err != nil {
		return "", false, err
	}
	if ok {
		return artifactPath, true, nil
	}
	artifactPath, err = c.Compress(ctx, binaryPath)
	if err != nil {
		return "", false, err
	}
	return artifactPath, false, nil
}

// New returns the compressor registered under name.
func New(name string, opts Options) (Compressor, error) {
	switch name {
	case NameUPX, "":
		return &UPX{Runner: opts.Runner, Binary: opts.UPXBinary, Args: opts.UPXArgs}, nil
	case NameZstd:
		if _, err := zstdLevel(opts.ZstdLevel); err != nil {
			return nil, err
		}
		return &Zstd{Level: opts.ZstdLevel}, nil
	case NameNone:
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown compressor %q (valid: upx, zstd, none)", name)
	}
}

// headerSize is how much of a file is inspected for magic bytes.
const headerSize = 4096

func readHeader(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, headerSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}

var executableMagics = [][]byte{
	{0x7f, 'E', 'L', 'F'},
	{'M', 'Z'},
	{0xcf, 0xfa, 0xed, 0xfe},
	{0xce, 0xfa, 0xed, 0xfe},
	{0xca, 0xfe, 0xba, 0xbe},
}

// checkExecutable fails when path is missing, empty or not an executable image.
func checkExecutable(header []byte) error {
	if len(header) == 0 {
		return fmt.Errorf("%w: file is empty", ErrInvalidBinary)
	}
	for _, magic := range executableMagics {
		if bytes.HasPrefix(header, magic) {
			return nil
		}
	}
	return ErrInvalidBinary
}
