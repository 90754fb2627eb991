package release

import (
	"errors"
	"fmt"

	"github.com/puterize/glabu/internal/arch"
	oerrors "github.com/puterize/glabu/internal/errors"
)

// StageError is implemented by every error that aborts a run.
type StageError interface {
	error
	Stage() string
}

// VersionControlError reports that the version tag could not be resolved.
type VersionControlError struct {
	Root string
	Err  error
}

func (e *VersionControlError) Error() string {
	return fmt.Sprintf("resolve version: %s: %v", e.Root, e.Err)
}

func (e *VersionControlError) Unwrap() error { return e.Err }

// Stage implements StageError.
func (e *VersionControlError) Stage() string { return "version" }

// BuildError reports a failed build for one architecture.
type BuildError struct {
	Arch arch.Arch
	Err  error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build %s: %v", e.Arch, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// Stage implements StageError.
func (e *BuildError) Stage() string { return "build" }

// CompressionError reports a failed compression for one architecture.
type CompressionError struct {
	Arch arch.Arch
	Err  error
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("compress %s: %v", e.Arch, e.Err)
}

func (e *CompressionError) Unwrap() error { return e.Err }

// Stage implements StageError.
func (e *CompressionError) Stage() string { return "compress" }

// UploadReason classifies an upload failure.
type UploadReason string

const (
	AuthFailure    UploadReason = "auth failure"
	NetworkFailure UploadReason = "network failure"
	Conflict       UploadReason = "conflict"
	Unknown        UploadReason = "unknown"
)

// UploadError reports a failed package upload or manifest push.
type UploadError struct {
	Target string
	Reason UploadReason
	Err    error
}

// NewUploadError classifies err by the error category it carries.
func NewUploadError(target string, err error) *UploadError {
	return &UploadError{Target: target, Reason: classifyUpload(err), Err: err}
}

func classifyUpload(err error) UploadReason {
	switch {
	case errors.Is(err, oerrors.ErrPermission):
		return AuthFailure
	case errors.Is(err, oerrors.ErrConnectivity):
		return NetworkFailure
	case errors.Is(err, oerrors.ErrConflict):
		return Conflict
	default:
		return Unknown
	}
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s (%s): %v", e.Target, e.Reason, e.Err)
}

// Unwrap exposes both the cause and the category sentinel for the reason,
// so exit codes follow the reason even for untyped causes.
func (e *UploadError) Unwrap() []error {
	errs := []error{e.Err}
	switch e.Reason {
	case AuthFailure:
		errs = append(errs, oerrors.ErrPermission)
	case NetworkFailure:
		errs = append(errs, oerrors.ErrConnectivity)
	case Conflict:
		errs = append(errs, oerrors.ErrConflict)
	}
	return errs
}

// Stage implements StageError.
func (e *UploadError) Stage() string { return "upload" }

// ImageError reports a failed per-arch image publish.
type ImageError struct {
	Arch arch.Arch
	Tag  string
	Err  error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("publish image %s: %v", e.Tag, e.Err)
}

func (e *ImageError) Unwrap() error { return e.Err }

// Stage implements StageError.
func (e *ImageError) Stage() string { return "image" }

// Manifest operations named in ManifestError.
const (
	OpCheck  = "check"
	OpRemove = "remove"
	OpCreate = "create"
	OpAdd    = "add"
	OpPush   = "push"
)

// ManifestError reports a failed manifest operation.
type ManifestError struct {
	Op      string
	TagRoot string
	Err     error
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("manifest %s %s: %v", e.Op, e.TagRoot, e.Err)
}

func (e *ManifestError) Unwrap() error { return e.Err }

// Stage implements StageError.
func (e *ManifestError) Stage() string { return "manifest " + e.Op }
