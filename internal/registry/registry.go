// Package registry defines the package-registry contract shared by the
// GitLab and S3 backends.
package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// UploadDescriptor identifies one file of a versioned generic package.
type UploadDescriptor struct {
	Project        string `json:"project" yaml:"project"`
	PackageName    string `json:"packageName" yaml:"packageName"`
	PackageVersion string `json:"packageVersion" yaml:"packageVersion"`
	FileName       string `json:"fileName" yaml:"fileName"`
	FilePath       string `json:"filePath" yaml:"filePath"`
}

// Validate reports missing or malformed fields.
func (d UploadDescriptor) Validate() error {
	missing := []string{}
	for _, f := range []struct{ name, value string }{
		{"project", d.Project},
		{"package name", d.PackageName},
		{"package version", d.PackageVersion},
		{"file name", d.FileName},
		{"file path", d.FilePath},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("upload descriptor is missing %s", strings.Join(missing, ", "))
	}
	if strings.ContainsAny(d.FileName, `/\`) {
		return fmt.Errorf("file name %q must not contain path separators", d.FileName)
	}
	return nil
}

// UploadResult is what a registry reports for a stored file.
type UploadResult struct {
	Descriptor UploadDescriptor `json:"descriptor" yaml:"descriptor"`
	Size       int64            `json:"size" yaml:"size"`
	SHA256     string           `json:"sha256" yaml:"sha256"`
	URL        string           `json:"url,omitempty" yaml:"url,omitempty"`
}

// PackageRegistry stores generic package files.
type PackageRegistry interface {
	UploadPackage(ctx context.Context, d UploadDescriptor) (UploadResult, error)
}

// File is an opened upload source whose digest is computed while it is read.
type File struct {
	f      *os.File
	size   int64
	hash   hashWriter
	reader io.Reader
}

type hashWriter interface {
	io.Writer
	Sum([]byte) []byte
}

// Open opens path for upload.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%s is a directory", path)
	}
	h := sha256.New()
	return &File{f: f, size: info.Size(), hash: h, reader: io.TeeReader(f, h)}, nil
}

// Read implements io.Reader.
func (u *File) Read(p []byte) (int, error) { return u.reader.Read(p) }

// Close closes the underlying file.
func (u *File) Close() error { return u.f.Close() }

// Size returns the file size at open time.
func (u *File) Size() int64 { return u.size }

// SHA256 returns the hex digest of everything read so far.
func (u *File) SHA256() string { return hex.EncodeToString(u.hash.Sum(nil)) }

// Digest returns the size and hex SHA-256 of the file at path.
func Digest(path string) (int64, string, error) {
	f, err := Open(path)
	if err != nil {
		return 0, "", err
	}
	defer f.Close()
	if _, err := io.Copy(io.Discard, f); err != nil {
		return 0, "", err
	}
	return f.Size(), f.SHA256(), nil
}
