package release

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/puterize/glabu/internal/arch"
	"github.com/puterize/glabu/internal/build"
	"github.com/puterize/glabu/internal/cmdtypes"
	"github.com/puterize/glabu/internal/cmdutil"
	"github.com/puterize/glabu/internal/compress"
	"github.com/puterize/glabu/internal/config"
	"github.com/puterize/glabu/internal/engine"
	oerrors "github.com/puterize/glabu/internal/errors"
	"github.com/puterize/glabu/internal/output"
	"github.com/puterize/glabu/internal/registry"
	"github.com/puterize/glabu/internal/release"
	"github.com/puterize/glabu/internal/releasefile"
	"github.com/puterize/glabu/internal/runner"
	"github.com/puterize/glabu/internal/vcs"
)

// environment holds the process-level collaborators; tests replace them.
type environment struct {
	runner   runner.CommandRunner
	registry func(ctx context.Context, gc *cmdtypes.GlobalConfig) (registry.PackageRegistry, error)
	docker   func() (build.DockerClient, error)
}

func defaultEnvironment() *environment {
	return &environment{
		runner:   runner.NewExecRunner(),
		registry: cmdutil.NewPackageRegistry,
		docker:   build.NewDockerClient,
	}
}

// outputPather reports where a builder leaves the binary for an arch.
type outputPather interface {
	OutputPath(a arch.Arch) string
}

// assembly is a wired orchestrator plus what the plan command needs.
type assembly struct {
	orchestrator *release.Orchestrator
	file         *releasefile.File
	expectedPath func(arch.Arch) string

	// engine is set when the run builds or pushes images.
	engine *engine.Engine
}

// preflight checks that the container engine responds before any stage
// has side effects.
func (a *assembly) preflight(ctx context.Context) error {
	if a.engine == nil {
		return nil
	}
	return a.engine.Available(ctx)
}

// loadReleaseFile resolves the root and loads its release file.
func loadReleaseFile(opts *options) (string, *releasefile.File, error) {
	root, err := filepath.Abs(cmdutil.ResolveRoot(opts.root))
	if err != nil {
		return "", nil, fmt.Errorf("resolving root: %w", err)
	}
	path := opts.releaseFile
	if path == "" {
		path = releasefile.Find(root)
	}
	file, err := releasefile.Load(path)
	if err != nil {
		return "", nil, err
	}
	output.Debug("release file loaded", "path", path, "binary", file.Binary, "project", file.Project)
	return root, file, nil
}

// engineKind picks the engine: an explicit --engine flag or env value
// wins over the release file, which wins over the global config.
func engineKind(gc *cmdtypes.GlobalConfig, file *releasefile.File) (engine.Kind, error) {
	name := file.Image.Engine
	if gc != nil && gc.Resolved != nil {
		switch field := gc.Resolved.Engine; {
		case field.Source == config.SourceFlag, field.Source == config.SourceEnv:
			name = field.Value
		case name == "":
			name = field.Value
		}
	}
	kind, err := engine.ParseKind(name)
	if err != nil {
		return "", fmt.Errorf("%w: %w", oerrors.ErrValidation, err)
	}
	return kind, nil
}

// releaseOptions merges the release file with command flags.
func releaseOptions(root string, file *releasefile.File, opts *options) (release.Options, error) {
	archNames := file.Architectures
	if len(opts.archs) > 0 {
		archNames = opts.archs
	}
	archs, err := arch.ParseList(archNames)
	if err != nil {
		return release.Options{}, fmt.Errorf("%w: %w", oerrors.ErrValidation, err)
	}

	imageRegistry := file.Image.Registry
	if opts.skipImages {
		imageRegistry = ""
	}
	installDir := file.Install.Dir
	if opts.installDir != "" {
		installDir = opts.installDir
	}

	return release.Options{
		Root:             root,
		Project:          file.Project,
		PackageName:      file.PackageName,
		BinaryName:       file.Binary,
		Archs:            archs,
		HostArch:         opts.hostArch,
		ImageRegistry:    imageRegistry,
		FileNameTemplate: file.FileNameTemplate,
		Install:          file.InstallEnabled() && !opts.noInstall,
		InstallDir:       installDir,
		Parallel:         file.Parallel || opts.parallel,
	}, nil
}

// assemble wires every collaborator of a release from the release file,
// flags and global configuration.
func assemble(ctx context.Context, gc *cmdtypes.GlobalConfig, env *environment, opts *options) (*assembly, error) {
	root, file, err := loadReleaseFile(opts)
	if err != nil {
		return nil, err
	}
	relOpts, err := releaseOptions(root, file, opts)
	if err != nil {
		return nil, err
	}
	kind, err := engineKind(gc, file)
	if err != nil {
		return nil, err
	}

	eng := engine.New(kind, env.runner, root)

	var builder release.Builder
	switch file.Build.Mode {
	case build.ModeImage:
		builder = imageBuilder(env, eng, kind, root, file, relOpts.ImageRegistry)
	default:
		builder = &build.Cargo{
			Runner:    env.runner,
			Root:      root,
			Binary:    file.Binary,
			Command:   file.Build.Command,
			ExtraArgs: file.Build.Args,
		}
	}

	compressor, err := compress.New(file.Compression.Tool, compress.Options{
		Runner:    env.runner,
		UPXArgs:   file.Compression.Args,
		ZstdLevel: file.Compression.Level,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", oerrors.ErrValidation, err)
	}

	reg, err := env.registry(ctx, gc)
	if err != nil {
		return nil, err
	}

	deps := release.Deps{
		Version:    vcs.NewGit(env.runner),
		Builder:    builder,
		Compressor: compressor,
		Registry:   reg,
		Installer:  release.FileInstaller{},
	}
	switch {
	case relOpts.ImageRegistry == "":
	case file.PublishImages():
		deps.Manifests = eng
		deps.Images = &engine.Publisher{
			Engine: eng,
			// Image mode already built the tag while producing the binary.
			Build:      file.Build.Mode != build.ModeImage,
			Dockerfile: filepath.Join(root, defaultString(file.Build.Dockerfile, "Dockerfile")),
			Context:    filepath.Join(root, defaultString(file.Build.Context, ".")),
		}
	default:
		output.Warn("image.publish is false, skipping the multi-arch manifest", "registry", relOpts.ImageRegistry)
	}

	o, err := release.New(relOpts, deps)
	if err != nil {
		return nil, err
	}

	a := &assembly{orchestrator: o, file: file}
	if deps.Images != nil || file.Build.Mode == build.ModeImage {
		a.engine = eng
	}
	if p, ok := builder.(outputPather); ok {
		a.expectedPath = p.OutputPath
	}
	return a, nil
}

// imageBuilder builds the binary inside a per-arch image. The image tag is
// the release member tag when an image registry is set, so publishing only
// has to push it.
func imageBuilder(env *environment, eng *engine.Engine, kind engine.Kind,
	root string, file *releasefile.File, imageRegistry string) *build.Image {
	return &build.Image{
		Engine:     eng,
		Extractor:  extractor(env, kind),
		Root:       root,
		Binary:     file.Binary,
		Dockerfile: file.Build.Dockerfile,
		Context:    file.Build.Context,
		ImagePath:  file.Build.ImagePath,
		Tag: func(version string, a arch.Arch) string {
			tagRoot := release.TagRoot(imageRegistry, release.VersionTag(version))
			if tagRoot == "" {
				tagRoot = "localhost/" + file.Binary + ":" + version
			}
			return release.MemberTag(tagRoot, a)
		},
	}
}

// extractor uses the engine API for docker and falls back to the CLI when
// no API client can be created. Podman always uses the CLI.
func extractor(env *environment, kind engine.Kind) build.Extractor {
	cli := &build.CLIExtractor{Runner: env.runner, Engine: string(kind)}
	if kind != engine.Docker || env.docker == nil {
		return cli
	}
	client, err := env.docker()
	if err != nil {
		output.Debug("docker API unavailable, extracting with the CLI", "error", err)
		return cli
	}
	return &build.SDKExtractor{Client: client}
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
