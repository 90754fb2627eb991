package pkg

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/puterize/glabu/internal/cmdtypes"
	"github.com/puterize/glabu/internal/cmdutil"
	oerrors "github.com/puterize/glabu/internal/errors"
	"github.com/puterize/glabu/internal/gitlab"
	"github.com/puterize/glabu/internal/output"
)

type listOptions struct {
	pkg    cmdutil.PackageFlags
	latest bool
}

// FileList is the output of package-file-list.
type FileList []gitlab.PackageFile

// Table implements output.Tabular.
func (l FileList) Table() *output.Table {
	t := output.NewTable("ID", "FILE", "SIZE", "SHA256")
	for _, f := range l {
		t.Row(strconv.FormatInt(f.ID, 10), f.FileName, output.FormatBytes(f.Size), f.FileSHA256)
	}
	return t
}

// NewPackageFileListCmd creates the package-file-list command.
func NewPackageFileListCmd(gc *cmdtypes.GlobalConfig) *cobra.Command {
	opts := &listOptions{}

	c := &cobra.Command{
		Use:   "package-file-list <project>",
		Short: "List the files of a generic package version",
		Long: `List the files of a generic package version.

Examples:
  glabu package-file-list group/glabu -n glabu -v abc1234 -o table
  glabu package-file-list 42 -n glabu --latest -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			project, err := cmdutil.ResolveProject(args)
			if err != nil {
				return oerrors.NewExitError(err, oerrors.ExitValidationError)
			}
			if err := opts.pkg.Validate(!opts.latest); err != nil {
				return oerrors.NewExitError(err, oerrors.ExitValidationError)
			}

			client, err := newClient(gc)
			if err != nil {
				return oerrors.NewExitError(err, oerrors.ExitCodeFromError(err))
			}
			pkg, err := resolvePackage(c.Context(), client, project, &opts.pkg, opts.latest)
			if err != nil {
				return cmdutil.ExitErrorFor(err, false)
			}
			files, err := client.FilesOf(c.Context(), project, pkg)
			if err != nil {
				return cmdutil.ExitErrorFor(err, false)
			}
			return cmdutil.WriteResult(c.OutOrStdout(), gc.OutputFormat(), FileList(files))
		},
	}

	opts.pkg.AddTo(c)
	c.Flags().BoolVar(&opts.latest, "latest", false, "List the most recently created version")

	return c
}
