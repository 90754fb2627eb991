// Package release provides the `glabu release` command.
package release

import (
	"errors"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/puterize/glabu/internal/arch"
	"github.com/puterize/glabu/internal/cmdtypes"
	"github.com/puterize/glabu/internal/cmdutil"
	oerrors "github.com/puterize/glabu/internal/errors"
	"github.com/puterize/glabu/internal/release"
)

// options holds the release flags.
type options struct {
	root        string
	releaseFile string
	archs       []string
	noInstall   bool
	installDir  string
	parallel    bool
	skipImages  bool
	hostArch    string
}

func (o *options) addTo(c *cobra.Command) {
	f := c.Flags()
	f.StringVar(&o.root, "root", "", "Repository root (default: current directory)")
	f.StringVar(&o.releaseFile, "release-file", "", "Release file (default: <root>/.glabu.yaml)")
	f.StringSliceVar(&o.archs, "arch", nil, "Target architectures, overriding the release file (repeatable)")
	f.BoolVar(&o.noInstall, "no-install", false, "Do not install the host binary locally")
	f.StringVar(&o.installDir, "install-dir", "", "Local install directory (default: from release file)")
	f.BoolVar(&o.parallel, "parallel", false, "Build and upload architectures concurrently")
	f.BoolVar(&o.skipImages, "skip-images", false, "Skip per-arch images and the multi-arch manifest")
	f.StringVar(&o.hostArch, "host-arch", defaultHostArch(), "Host architecture used to select the local install")
}

// defaultHostArch is the canonical name of the running architecture, or
// the raw GOARCH when glabu does not release for it.
func defaultHostArch() string {
	if a, err := arch.Host(); err == nil {
		return a.String()
	}
	return runtime.GOARCH
}

// NewReleaseCmd creates the release command.
func NewReleaseCmd(gc *cmdtypes.GlobalConfig) *cobra.Command {
	return newReleaseCmd(gc, defaultEnvironment())
}

func newReleaseCmd(gc *cmdtypes.GlobalConfig, env *environment) *cobra.Command {
	opts := &options{}

	c := &cobra.Command{
		Use:   "release",
		Short: "Build, compress and publish a multi-architecture release",
		Long: `Run the release workflow of the project described by .glabu.yaml:

  1. resolve the version from the short HEAD commit
  2. build one binary per architecture
  3. compress each binary (already compressed binaries are skipped)
  4. upload each artifact as a generic package file
  5. recreate, fill and push the multi-arch image manifest
  6. install the host-architecture binary locally

The first failing stage aborts the run. Re-running for the same commit is
safe: the manifest is recreated from scratch.

Examples:
  # Release the project in the current directory
  glabu release

  # Only amd64, without touching images or the local install
  glabu release --arch amd64 --skip-images --no-install

  # Preview without side effects
  glabu release plan -o table`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return runRelease(c, gc, env, opts)
		},
	}
	opts.addTo(c)
	c.AddCommand(newPlanCmd(gc, env))

	return c
}

func runRelease(c *cobra.Command, gc *cmdtypes.GlobalConfig, env *environment, opts *options) error {
	ctx := c.Context()

	a, err := assemble(ctx, gc, env, opts)
	if err != nil {
		return setupError(err)
	}
	if err := a.preflight(ctx); err != nil {
		return setupError(err)
	}

	result, err := a.orchestrator.Run(ctx)
	if err != nil {
		cmdutil.PrintStageError(err)
		return cmdutil.ExitErrorFor(err, true)
	}
	return cmdutil.WriteResult(c.OutOrStdout(), gc.OutputFormat(), result)
}

// setupError prints and wraps an error raised before the run started.
func setupError(err error) error {
	if oerrors.ExitCodeFromError(err) == oerrors.ExitValidationError {
		cmdutil.PrintValidationError("invalid release configuration", err)
		return cmdutil.ExitErrorFor(err, true)
	}
	var stageErr release.StageError
	if errors.As(err, &stageErr) {
		cmdutil.PrintStageError(err)
		return cmdutil.ExitErrorFor(err, true)
	}
	return cmdutil.ExitErrorFor(err, false)
}
