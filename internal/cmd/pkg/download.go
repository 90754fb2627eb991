package pkg

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/puterize/glabu/internal/cmdtypes"
	"github.com/puterize/glabu/internal/cmdutil"
	oerrors "github.com/puterize/glabu/internal/errors"
	"github.com/puterize/glabu/internal/gitlab"
	"github.com/puterize/glabu/internal/output"
)

type downloadOptions struct {
	pkg    cmdutil.PackageFlags
	files  cmdutil.FileSelectorFlags
	latest bool
	dir    string
}

// DownloadResult is printed after a download.
type DownloadResult struct {
	Status string   `json:"status" yaml:"status"`
	Output []string `json:"output" yaml:"output"`
}

// Table implements output.Tabular.
func (r DownloadResult) Table() *output.Table {
	t := output.NewTable("STATUS", "PATH")
	for _, p := range r.Output {
		t.Row(r.Status, p)
	}
	return t
}

// NewPackageDownloadCmd creates the package-download command.
func NewPackageDownloadCmd(gc *cmdtypes.GlobalConfig) *cobra.Command {
	opts := &downloadOptions{}

	c := &cobra.Command{
		Use:   "package-download <project>",
		Short: "Download files of a generic package",
		Long: `Download the files of a generic package version that match an exact
file name or a regular expression.

Either --package-version or --latest selects the version. When the output
directory does not exist or is not a directory, files are written to the
system temp directory instead and a warning is logged.

Examples:
  # Download the amd64 binary of a version
  glabu package-download group/glabu -n glabu -v abc1234 --package-file glabu-amd64

  # Download every file of the newest version into ./dist instead of the temp dir
  glabu package-download group/glabu -n glabu --latest --regex '.*' -d dist`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runDownload(c, gc, opts, args)
		},
	}

	opts.pkg.AddTo(c)
	opts.files.AddTo(c)
	c.Flags().BoolVar(&opts.latest, "latest", false, "Download the most recently created version")
	c.Flags().StringVarP(&opts.dir, "output-dir", "d", os.TempDir(), "Directory to write files into")

	return c
}

// outputDir returns dir when it is an existing directory, otherwise the
// system temp directory.
func outputDir(dir string) string {
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	tmp := os.TempDir()
	output.Warn("output is not a directory, writing to temp dir instead", "output", dir, "dir", tmp)
	return tmp
}

func runDownload(c *cobra.Command, gc *cmdtypes.GlobalConfig, opts *downloadOptions, args []string) error {
	project, err := cmdutil.ResolveProject(args)
	if err != nil {
		return oerrors.NewExitError(err, oerrors.ExitValidationError)
	}
	if opts.latest && opts.pkg.Version != "" {
		return oerrors.NewExitError(fmt.Errorf("--package-version and --latest are mutually exclusive"), oerrors.ExitValidationError)
	}
	if err := opts.pkg.Validate(!opts.latest); err != nil {
		return oerrors.NewExitError(err, oerrors.ExitValidationError)
	}
	if err := opts.files.Validate(); err != nil {
		return oerrors.NewExitError(err, oerrors.ExitValidationError)
	}
	filter, err := gitlab.NewFilter(opts.files.Pattern, opts.files.FileName)
	if err != nil {
		return oerrors.NewExitError(err, oerrors.ExitValidationError)
	}

	client, err := newClient(gc)
	if err != nil {
		return oerrors.NewExitError(err, oerrors.ExitCodeFromError(err))
	}

	ctx := c.Context()
	pkg, err := resolvePackage(ctx, client, project, &opts.pkg, opts.latest)
	if err != nil {
		return cmdutil.ExitErrorFor(err, false)
	}
	logger := output.PackageLogger(project, pkg.Name)

	files, err := client.FilesOf(ctx, project, pkg)
	if err != nil {
		return cmdutil.ExitErrorFor(err, false)
	}
	selected := gitlab.Filter(files, filter)
	if len(selected) == 0 {
		err := fmt.Errorf("%w: no file of %s %s matches", oerrors.ErrNotFound, pkg.Name, pkg.Version)
		logger.Error(err.Error())
		return cmdutil.ExitErrorFor(err, true)
	}

	dir := outputDir(opts.dir)
	result := DownloadResult{Status: "ok", Output: []string{}}
	for _, pf := range selected {
		var path string
		err := withSpinner(ctx, fmt.Sprintf("Downloading %s", pf.FileName), func(ctx context.Context) error {
			var dlErr error
			path, dlErr = client.DownloadToDir(ctx, project, pf, dir)
			return dlErr
		})
		if err != nil {
			logger.Error("download failed", "file", pf.FileName, "error", err)
			return cmdutil.ExitErrorFor(err, true)
		}
		logger.Info(output.FormatCheckmark(pf.FileName), "version", pkg.Version, "path", path)
		result.Output = append(result.Output, path)
	}

	return cmdutil.WriteResult(c.OutOrStdout(), gc.OutputFormat(), result)
}
