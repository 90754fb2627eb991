package build

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/puterize/glabu/internal/arch"
	"github.com/puterize/glabu/internal/engine"
)

// DefaultImagePath is where the binary lives inside the build image.
const DefaultImagePath = "/app/prog"

// ImageBuilder builds tagged per-arch images.
type ImageBuilder interface {
	BuildImage(ctx context.Context, spec engine.BuildSpec) error
}

// Extractor copies a file out of an image.
type Extractor interface {
	Extract(ctx context.Context, image string, a arch.Arch, srcPath, dest string) error
}

// Image builds a container image per architecture and extracts the
// compiled binary from it.
type Image struct {
	Engine    ImageBuilder
	Extractor Extractor

	// Root is the project root; relative Dockerfile and Context resolve against it.
	Root       string
	Binary     string
	Dockerfile string
	Context    string

	// ImagePath is the binary's path inside the image.
	ImagePath string

	// Tag returns the image tag of version for a.
	Tag func(version string, a arch.Arch) string
}

// OutputPath returns where the extracted binary for a is written.
func (b *Image) OutputPath(a arch.Arch) string {
	return filepath.Join(b.Root, "target", b.Binary+"-"+a.String())
}

// Build implements Builder.
func (b *Image) Build(ctx context.Context, version string, a arch.Arch) (string, error) {
	if b.Engine == nil || b.Extractor == nil || b.Tag == nil {
		return "", fmt.Errorf("image builder is not fully configured")
	}
	tag := b.Tag(version, a)
	dockerfile := b.Dockerfile
	if dockerfile == "" {
		dockerfile = "Dockerfile"
	}
	contextDir := b.Context
	if contextDir == "" {
		contextDir = "."
	}
	if err := b.Engine.BuildImage(ctx, engine.BuildSpec{
		Tag:        tag,
		Platform:   a.Platform(),
		Dockerfile: filepath.Join(b.Root, dockerfile),
		Context:    filepath.Join(b.Root, contextDir),
	}); err != nil {
		return "", err
	}

	src := b.ImagePath
	if src == "" {
		src = DefaultImagePath
	}
	dest := b.OutputPath(a)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	if err := b.Extractor.Extract(ctx, tag, a, src, dest); err != nil {
		return "", fmt.Errorf("extracting %s from %s: %w", src, tag, err)
	}
	if err := checkBinary(dest); err != nil {
		return "", err
	}
	return dest, nil
}

// extractTarFile writes the regular file named base from a tar stream to
// dest with mode 0755. The engine API returns copied paths as tar archives.
func extractTarFile(r io.Reader, base, dest string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s not found in archive", base)
		}
		if err != nil {
			return fmt.Errorf("reading archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg || path.Base(strings.TrimSuffix(hdr.Name, "/")) != base {
			continue
		}
		return writeExecutable(tr, dest)
	}
}

func writeExecutable(r io.Reader, dest string) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o755); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
