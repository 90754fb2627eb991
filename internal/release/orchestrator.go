package release

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/puterize/glabu/internal/arch"
	"github.com/puterize/glabu/internal/compress"
	oerrors "github.com/puterize/glabu/internal/errors"
	"github.com/puterize/glabu/internal/output"
	"github.com/puterize/glabu/internal/registry"
)

// Orchestrator runs the release workflow with explicit collaborators.
type Orchestrator struct {
	opts Options

	version    VersionResolver
	builder    Builder
	compressor compress.Compressor
	registry   registry.PackageRegistry
	manifests  ManifestStore
	images     ImagePublisher
	installer  Installer

	namer *FileNamer
}

// Deps are the collaborators of an Orchestrator. Manifests and Images are
// optional, but a manifest is only assembled from images this run pushed,
// so Manifests needs Images. Installer defaults to FileInstaller.
type Deps struct {
	Version    VersionResolver
	Builder    Builder
	Compressor compress.Compressor
	Registry   registry.PackageRegistry
	Manifests  ManifestStore
	Images     ImagePublisher
	Installer  Installer
}

// New validates opts and returns an orchestrator.
func New(opts Options, deps Deps) (*Orchestrator, error) {
	var missing []string
	if deps.Version == nil {
		missing = append(missing, "version resolver")
	}
	if deps.Builder == nil {
		missing = append(missing, "builder")
	}
	if deps.Compressor == nil {
		missing = append(missing, "compressor")
	}
	if deps.Registry == nil {
		missing = append(missing, "package registry")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("release orchestrator is missing %s", strings.Join(missing, ", "))
	}
	if deps.Manifests != nil && deps.Images == nil && opts.ImageRegistry != "" {
		return nil, fmt.Errorf("%w: manifest %s needs its member images published; enable image.publish",
			oerrors.ErrValidation, opts.ImageRegistry)
	}
	if len(opts.Archs) == 0 {
		return nil, fmt.Errorf("at least one architecture is required")
	}
	if opts.BinaryName == "" {
		return nil, fmt.Errorf("binary name is required")
	}
	if opts.PackageName == "" {
		opts.PackageName = opts.BinaryName
	}
	if opts.FileNameTemplate == "" {
		opts.FileNameTemplate = "{{ .Binary }}-{{ .Arch }}"
	}
	namer, err := NewFileNamer(opts.FileNameTemplate)
	if err != nil {
		return nil, err
	}
	if deps.Installer == nil {
		deps.Installer = FileInstaller{}
	}

	return &Orchestrator{
		opts:       opts,
		version:    deps.Version,
		builder:    deps.Builder,
		compressor: deps.Compressor,
		registry:   deps.Registry,
		manifests:  deps.Manifests,
		images:     deps.Images,
		installer:  deps.Installer,
		namer:      namer,
	}, nil
}

// manifestEnabled reports whether the image and manifest stages run.
func (o *Orchestrator) manifestEnabled() bool {
	return o.manifests != nil && o.images != nil && o.opts.ImageRegistry != ""
}

// ResolveVersionTag returns the short HEAD commit of the repository root.
func (o *Orchestrator) ResolveVersionTag(ctx context.Context) (VersionTag, error) {
	hash, err := o.version.ShortCommit(ctx, o.opts.Root)
	if err != nil {
		return "", &VersionControlError{Root: o.opts.Root, Err: err}
	}
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return "", &VersionControlError{Root: o.opts.Root, Err: errors.New("empty commit hash")}
	}
	return VersionTag(hash), nil
}

// BuildArtifact builds the binary of v for a.
func (o *Orchestrator) BuildArtifact(ctx context.Context, v VersionTag, a arch.Arch) (ReleaseTarget, error) {
	path, err := o.builder.Build(ctx, string(v), a)
	if err != nil {
		return ReleaseTarget{}, &BuildError{Arch: a, Err: err}
	}
	return ReleaseTarget{Arch: a, BinaryPath: path, ArtifactPath: path}, nil
}

// Compress compresses the target's binary unless it is already compressed.
func (o *Orchestrator) Compress(ctx context.Context, target ReleaseTarget) (ReleaseTarget, error) {
	artifact, skipped, err := compress.Ensure(ctx, o.compressor, target.BinaryPath)
	if err != nil {
		return target, &CompressionError{Arch: target.Arch, Err: err}
	}
	if skipped {
		output.Debug("artifact already compressed, skipping", "arch", target.Arch, "path", artifact)
	}
	target.ArtifactPath = artifact
	target.Compressed = o.compressor.Name() != compress.NameNone
	return target, nil
}

// Upload stores one artifact in the package registry.
func (o *Orchestrator) Upload(ctx context.Context, d registry.UploadDescriptor) (registry.UploadResult, error) {
	res, err := o.registry.UploadPackage(ctx, d)
	if err != nil {
		return registry.UploadResult{}, NewUploadError(d.FileName, err)
	}
	return res, nil
}

// Descriptor builds the upload descriptor for target.
func (o *Orchestrator) Descriptor(v VersionTag, target ReleaseTarget) (registry.UploadDescriptor, error) {
	name, err := o.namer.Name(o.opts.BinaryName, o.opts.PackageName, v, target.Arch)
	if err != nil {
		return registry.UploadDescriptor{}, err
	}
	return registry.UploadDescriptor{
		Project:        o.opts.Project,
		PackageName:    o.opts.PackageName,
		PackageVersion: string(v),
		FileName:       name,
		FilePath:       target.ArtifactPath,
	}, nil
}

// RecreateManifest removes any manifest named tagRoot and creates an empty one.
func (o *Orchestrator) RecreateManifest(ctx context.Context, tagRoot string) (*ReleaseManifest, error) {
	exists, err := o.manifests.ManifestExists(ctx, tagRoot)
	if err != nil {
		return nil, &ManifestError{Op: OpCheck, TagRoot: tagRoot, Err: err}
	}
	if exists {
		output.Info("manifest already exists, removing it", "manifest", tagRoot)
		if err := o.manifests.ManifestRemove(ctx, tagRoot); err != nil {
			return nil, &ManifestError{Op: OpRemove, TagRoot: tagRoot, Err: err}
		}
	}
	if err := o.manifests.ManifestCreate(ctx, tagRoot); err != nil {
		return nil, &ManifestError{Op: OpCreate, TagRoot: tagRoot, Err: err}
	}
	return &ReleaseManifest{TagRoot: tagRoot, Members: []string{}}, nil
}

// AddToManifest appends tag to m.
func (o *Orchestrator) AddToManifest(ctx context.Context, m *ReleaseManifest, tag string) error {
	if err := o.manifests.ManifestAdd(ctx, m.TagRoot, tag); err != nil {
		return &ManifestError{Op: OpAdd, TagRoot: m.TagRoot, Err: err}
	}
	m.Members = append(m.Members, tag)
	return nil
}

// PushManifest publishes m.
func (o *Orchestrator) PushManifest(ctx context.Context, m *ReleaseManifest) error {
	if err := o.manifests.ManifestPush(ctx, m.TagRoot); err != nil {
		return &ManifestError{Op: OpPush, TagRoot: m.TagRoot, Err: NewUploadError(m.TagRoot, err)}
	}
	return nil
}

// InstallLocally installs the target's executable when its architecture
// is the host's. It returns the installed path, or "" when skipped.
func (o *Orchestrator) InstallLocally(target ReleaseTarget) (string, error) {
	if !o.opts.Install || !arch.Matches(target.Arch, o.opts.HostArch) {
		return "", nil
	}
	return o.installer.Install(target.BinaryPath, o.opts.InstallDir, o.opts.BinaryName)
}

// archOutcome is the result of the per-arch stages.
type archOutcome struct {
	target ReleaseTarget
	upload registry.UploadResult
	image  string
}

func (o *Orchestrator) runArch(ctx context.Context, v VersionTag, tagRoot string, a arch.Arch) (archOutcome, error) {
	logger := output.ArchLogger(string(v), a.String())

	target, err := o.BuildArtifact(ctx, v, a)
	if err != nil {
		return archOutcome{}, err
	}
	logger.Info(output.FormatStageLine("build", target.BinaryPath, output.StatusBuilt))

	target, err = o.Compress(ctx, target)
	if err != nil {
		return archOutcome{}, err
	}
	logger.Info(output.FormatStageLine("compress", target.ArtifactPath, output.StatusCompressed))

	d, err := o.Descriptor(v, target)
	if err != nil {
		return archOutcome{}, &UploadError{Target: a.String(), Reason: Unknown, Err: err}
	}
	res, err := o.Upload(ctx, d)
	if err != nil {
		return archOutcome{}, err
	}
	logger.Info(output.FormatStageLine("upload", d.FileName, output.StatusUploaded), "size", output.FormatBytes(res.Size))

	out := archOutcome{target: target, upload: res}
	if o.manifestEnabled() {
		tag := MemberTag(tagRoot, a)
		if err := o.images.PublishImage(ctx, tag, a.Platform()); err != nil {
			return archOutcome{}, &ImageError{Arch: a, Tag: tag, Err: err}
		}
		logger.Info(output.FormatStageLine("image", tag, output.StatusPushed))
		out.image = tag
	}
	return out, nil
}

// Run executes the whole workflow. The first stage failure aborts the
// run; nothing is retried and uploaded artifacts are not rolled back.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	v, err := o.ResolveVersionTag(ctx)
	if err != nil {
		return nil, err
	}
	logger := output.ReleaseLogger(string(v))
	logger.Info("starting release", "archs", len(o.opts.Archs), "parallel", o.opts.Parallel)

	tagRoot := ""
	if o.manifestEnabled() {
		tagRoot = TagRoot(o.opts.ImageRegistry, v)
	}

	outcomes := make([]archOutcome, len(o.opts.Archs))
	if o.opts.Parallel {
		g, gctx := errgroup.WithContext(ctx)
		for i, a := range o.opts.Archs {
			g.Go(func() error {
				out, err := o.runArch(gctx, v, tagRoot, a)
				if err != nil {
					return err
				}
				outcomes[i] = out
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, a := range o.opts.Archs {
			out, err := o.runArch(ctx, v, tagRoot, a)
			if err != nil {
				return nil, err
			}
			outcomes[i] = out
		}
	}

	result := &Result{Version: v, TagRoot: tagRoot}
	for _, out := range outcomes {
		result.Targets = append(result.Targets, out.target)
		result.Uploads = append(result.Uploads, out.upload)
		if out.image != "" {
			result.Images = append(result.Images, out.image)
		}
	}

	if o.manifestEnabled() {
		m, err := o.RecreateManifest(ctx, tagRoot)
		if err != nil {
			return nil, err
		}
		for _, a := range o.opts.Archs {
			if err := o.AddToManifest(ctx, m, MemberTag(tagRoot, a)); err != nil {
				return nil, err
			}
		}
		if err := o.PushManifest(ctx, m); err != nil {
			return nil, err
		}
		logger.Info(output.FormatStageLine("manifest", m.TagRoot, output.StatusPushed), "members", len(m.Members))
		result.Manifest = m
	}

	for _, target := range result.Targets {
		installed, err := o.InstallLocally(target)
		if err != nil {
			logger.Warn("local install failed", "arch", target.Arch, "err", err)
			result.InstallError = err.Error()
			break
		}
		if installed != "" {
			logger.Info(output.FormatStageLine("install", installed, output.StatusInstalled))
			result.Installed = installed
			result.InstalledArch = target.Arch
			break
		}
	}

	logger.Info(output.FormatCheckmark("release complete"))
	return result, nil
}
