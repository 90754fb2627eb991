package pkg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/puterize/glabu/internal/cmdtypes"
	"github.com/puterize/glabu/internal/cmdutil"
	oerrors "github.com/puterize/glabu/internal/errors"
	"github.com/puterize/glabu/internal/output"
	"github.com/puterize/glabu/internal/registry"
)

type uploadOptions struct {
	pkg      cmdutil.PackageFlags
	filePath string
	fileName string
}

// NewPackageUploadCmd creates the package-upload command.
func NewPackageUploadCmd(gc *cmdtypes.GlobalConfig) *cobra.Command {
	opts := &uploadOptions{}

	c := &cobra.Command{
		Use:   "package-upload <project>",
		Short: "Upload a file to a generic package",
		Long: `Upload one file to the generic package registry of a project.

The project is a numeric ID or a namespace/path. The file name defaults to
the base name of --file-path. Uploading a name that already exists in the
package version adds another file; the registry answers with a conflict
only when the project forbids duplicates.

Examples:
  # Upload a binary as version abc1234 of package glabu
  glabu package-upload group/glabu -n glabu -v abc1234 -f target/glabu-amd64

  # Upload under a different file name
  glabu package-upload 42 -n glabu -v abc1234 -f dist/glabu -m glabu-linux`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runUpload(c, gc, opts, args)
		},
	}

	opts.pkg.AddTo(c)
	c.Flags().StringVarP(&opts.filePath, "file-path", "f", "", "Path of the file to upload")
	c.Flags().StringVarP(&opts.fileName, "file-name", "m", "", "File name in the package (default: base name of --file-path)")

	return c
}

func runUpload(c *cobra.Command, gc *cmdtypes.GlobalConfig, opts *uploadOptions, args []string) error {
	project, err := cmdutil.ResolveProject(args)
	if err != nil {
		return oerrors.NewExitError(err, oerrors.ExitValidationError)
	}
	if err := opts.pkg.Validate(true); err != nil {
		return oerrors.NewExitError(err, oerrors.ExitValidationError)
	}
	if opts.filePath == "" {
		return oerrors.NewExitError(fmt.Errorf("required flag --file-path not set"), oerrors.ExitValidationError)
	}

	info, err := os.Stat(opts.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return oerrors.NewExitError(fmt.Errorf("%w: file %s", oerrors.ErrNotFound, opts.filePath), oerrors.ExitNotFound)
		}
		return err
	}
	if info.IsDir() {
		return oerrors.NewExitError(fmt.Errorf("%s is a directory", opts.filePath), oerrors.ExitValidationError)
	}

	fileName := opts.fileName
	if fileName == "" {
		fileName = filepath.Base(opts.filePath)
	}
	d := registry.UploadDescriptor{
		Project:        project,
		PackageName:    opts.pkg.Name,
		PackageVersion: opts.pkg.Version,
		FileName:       fileName,
		FilePath:       opts.filePath,
	}
	if err := d.Validate(); err != nil {
		return oerrors.NewExitError(err, oerrors.ExitValidationError)
	}

	client, err := newClient(gc)
	if err != nil {
		return oerrors.NewExitError(err, oerrors.ExitCodeFromError(err))
	}

	logger := output.PackageLogger(project, opts.pkg.Name)
	var result registry.UploadResult
	err = withSpinner(c.Context(), fmt.Sprintf("Uploading %s", fileName), func(ctx context.Context) error {
		var uploadErr error
		result, uploadErr = client.UploadPackage(ctx, d)
		return uploadErr
	})
	if err != nil {
		logger.Error("upload failed", "file", fileName, "error", err)
		return cmdutil.ExitErrorFor(err, true)
	}

	logger.Info(output.FormatStageLine("upload", fileName, output.StatusUploaded),
		"version", opts.pkg.Version, "size", output.FormatBytes(result.Size))
	return cmdutil.WriteResult(c.OutOrStdout(), gc.OutputFormat(), result)
}
