package compress

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// zstdMagic is the zstd frame magic number (little-endian 0xFD2FB528).
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// ZstdExt is appended to the binary name for zstd artifacts.
const ZstdExt = ".zst"

// Zstd writes a zstd-compressed sibling artifact next to the binary,
// leaving the executable itself untouched.
type Zstd struct {
	// Level is the encoder level name: fastest, default, better, best.
	Level string
}

// Name implements Compressor.
func (z *Zstd) Name() string { return NameZstd }

// Compressed implements Compressor.
func (z *Zstd) Compressed(binaryPath string) (string, bool, error) {
	header, err := readHeader(binaryPath)
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", binaryPath, err)
	}
	if bytes.HasPrefix(header, zstdMagic) {
		return binaryPath, true, nil
	}
	if err := checkExecutable(header); err != nil {
		return "", false, fmt.Errorf("%s: %w", binaryPath, err)
	}

	artifact := binaryPath + ZstdExt
	artifactHeader, err := readHeader(artifact)
	if errors.Is(err, os.ErrNotExist) {
		return artifact, false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", artifact, err)
	}
	if !bytes.HasPrefix(artifactHeader, zstdMagic) {
		return artifact, false, nil
	}
	// A sibling left over from an earlier build must not be uploaded for
	// a new binary.
	current, err := decodesTo(artifact, binaryPath)
	if err != nil {
		return "", false, err
	}
	return artifact, current, nil
}

// decodesTo reports whether the zstd artifact decompresses to exactly the
// contents of binaryPath. An undecodable artifact is reported as stale.
func decodesTo(artifact, binaryPath string) (bool, error) {
	want, err := fileSHA256(binaryPath)
	if err != nil {
		return false, err
	}

	f, err := os.Open(artifact)
	if err != nil {
		return false, fmt.Errorf("opening %s: %w", artifact, err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return false, nil
	}
	defer dec.Close()

	h := sha256.New()
	if _, err := io.Copy(h, dec); err != nil {
		return false, nil
	}
	return bytes.Equal(h.Sum(nil), want), nil
}

func fileSHA256(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return h.Sum(nil), nil
}

// zstdLevel parses an encoder level name. Empty means best compression.
func zstdLevel(name string) (zstd.EncoderLevel, error) {
	if name == "" {
		return zstd.SpeedBestCompression, nil
	}
	ok, level := zstd.EncoderLevelFromString(name)
	if !ok {
		return 0, fmt.Errorf("unknown zstd level %q (valid: fastest, default, better, best)", name)
	}
	return level, nil
}

// Compress implements Compressor.
func (z *Zstd) Compress(ctx context.Context, binaryPath string) (string, error) {
	level, err := zstdLevel(z.Level)
	if err != nil {
		return "", err
	}

	in, err := os.Open(binaryPath)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", binaryPath, err)
	}
	defer in.Close()

	artifact := binaryPath + ZstdExt
	tmp, err := os.CreateTemp(filepath.Dir(binaryPath), filepath.Base(artifact)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("creating temp artifact: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	enc, err := zstd.NewWriter(tmp, zstd.WithEncoderLevel(level))
	if err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("creating zstd encoder: %w", err)
	}
	if _, err := io.Copy(enc, &ctxReader{ctx: ctx, r: in}); err != nil {
		_ = enc.Close()
		_ = tmp.Close()
		return "", fmt.Errorf("compressing %s: %w", binaryPath, err)
	}
	if err := enc.Close(); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("finishing zstd stream: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing temp artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), artifact); err != nil {
		return "", fmt.Errorf("moving artifact into place: %w", err)
	}
	return artifact, nil
}

// ctxReader stops a copy once ctx is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
