// Package release orchestrates a multi-architecture release: version tag,
// per-arch build/compress/upload, image manifest and local install.
package release

import (
	"context"

	"github.com/puterize/glabu/internal/arch"
	"github.com/puterize/glabu/internal/registry"
)

// VersionTag is the short commit hash of HEAD. It is the package version
// and the image tag suffix of a run.
type VersionTag string

func (v VersionTag) String() string { return string(v) }

// ReleaseTarget is the per-architecture state of a run.
type ReleaseTarget struct {
	Arch arch.Arch `json:"arch" yaml:"arch"`

	// BinaryPath is the executable produced by the build.
	BinaryPath string `json:"binaryPath" yaml:"binaryPath"`

	// ArtifactPath is the file uploaded. It equals BinaryPath for in-place
	// compressors.
	ArtifactPath string `json:"artifactPath" yaml:"artifactPath"`

	Compressed bool `json:"compressed" yaml:"compressed"`
}

// ReleaseManifest is a multi-architecture image manifest under assembly.
type ReleaseManifest struct {
	TagRoot string   `json:"tagRoot" yaml:"tagRoot"`
	Members []string `json:"members" yaml:"members"`
}

// Result reports a finished run.
type Result struct {
	Version       VersionTag              `json:"version" yaml:"version"`
	TagRoot       string                  `json:"tagRoot,omitempty" yaml:"tagRoot,omitempty"`
	Targets       []ReleaseTarget         `json:"targets" yaml:"targets"`
	Uploads       []registry.UploadResult `json:"uploads" yaml:"uploads"`
	Images        []string                `json:"images,omitempty" yaml:"images,omitempty"`
	Manifest      *ReleaseManifest        `json:"manifest,omitempty" yaml:"manifest,omitempty"`
	Installed     string                  `json:"installed,omitempty" yaml:"installed,omitempty"`
	InstalledArch arch.Arch               `json:"installedArch,omitempty" yaml:"installedArch,omitempty"`
	InstallError  string                  `json:"installError,omitempty" yaml:"installError,omitempty"`
}

// VersionResolver resolves the short HEAD commit of a repository.
type VersionResolver interface {
	ShortCommit(ctx context.Context, root string) (string, error)
}

// Builder builds the binary of version for one architecture.
type Builder interface {
	Build(ctx context.Context, version string, a arch.Arch) (string, error)
}

// ManifestStore manages multi-architecture manifest lists.
type ManifestStore interface {
	ManifestExists(ctx context.Context, tagRoot string) (bool, error)
	ManifestCreate(ctx context.Context, tagRoot string) error
	ManifestRemove(ctx context.Context, tagRoot string) error
	ManifestAdd(ctx context.Context, tagRoot, member string) error
	ManifestPush(ctx context.Context, tagRoot string) error
}

// ImagePublisher publishes the per-arch image of a release.
type ImagePublisher interface {
	PublishImage(ctx context.Context, tag, platform string) error
}

// Installer places the host binary on the local machine.
type Installer interface {
	Install(src, dir, name string) (string, error)
}

// Options configure a run.
type Options struct {
	// Root is the repository root. Every stage works relative to it; the
	// process working directory is never changed.
	Root string

	// Project is the package registry project (numeric ID or namespace/path).
	Project     string
	PackageName string
	BinaryName  string

	// Archs are built in this order; the manifest lists them in this order.
	Archs []arch.Arch

	// HostArch is the host identifier (x86_64, aarch64, amd64, ...).
	HostArch string

	// ImageRegistry is <registry>/<namespace>. Empty disables the image
	// and manifest stages.
	ImageRegistry string

	// FileNameTemplate renders each uploaded file name.
	FileNameTemplate string

	Install    bool
	InstallDir string

	Parallel bool
}
