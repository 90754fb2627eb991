// Package cmd provides CLI command implementations.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/puterize/glabu/internal/cmdtypes"
	"github.com/puterize/glabu/internal/runner"
	"github.com/puterize/glabu/internal/version"
)

// NewVersionCmd creates the version command.
func NewVersionCmd(_ *cmdtypes.GlobalConfig) *cobra.Command {
	var short bool

	c := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Show glabu version information.

Displays:
  - glabu version, commit and build date
  - versions of the external tools a release shells out to (git, cargo,
    upx, podman, docker)`,
		RunE: func(c *cobra.Command, _ []string) error {
			info := version.GetInfo()
			if short {
				fmt.Fprintln(c.OutOrStdout(), info.Version)
				return nil
			}
			tools := version.DetectTools(c.Context(), runner.NewExecRunner())
			fmt.Fprintln(c.OutOrStdout(), version.FullVersionString(info, tools))
			return nil
		},
	}
	c.Flags().BoolVar(&short, "short", false, "Print only the version number")

	return c
}
