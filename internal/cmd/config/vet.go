package config

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/puterize/glabu/internal/cmdtypes"
	"github.com/puterize/glabu/internal/cmdutil"
	"github.com/puterize/glabu/internal/config"
	oerrors "github.com/puterize/glabu/internal/errors"
	"github.com/puterize/glabu/internal/releasefile"
)

type vetOptions struct {
	releaseFile string
	root        string
}

// NewVetCmd creates the config vet command.
func NewVetCmd(gc *cmdtypes.GlobalConfig) *cobra.Command {
	opts := &vetOptions{}

	c := &cobra.Command{
		Use:   "vet",
		Short: "Validate the glabu configuration and release file",
		Long: `Validate the global configuration file and, when present, the project
release file (.glabu.yaml) against its JSON schema.

The global configuration at ~/.glabu/config.yaml is checked by default;
use --config to select another file. A missing global file is not an
error as long as a release file was checked.`,
		RunE: func(c *cobra.Command, _ []string) error {
			return runVet(c, gc, opts)
		},
	}

	c.Flags().StringVar(&opts.releaseFile, "release-file", "", "Release file to validate (default: <root>/.glabu.yaml)")
	c.Flags().StringVar(&opts.root, "root", "", "Repository root (default: current directory)")

	return c
}

func runVet(c *cobra.Command, gc *cmdtypes.GlobalConfig, opts *vetOptions) error {
	out, errOut := c.OutOrStdout(), c.ErrOrStderr()

	path, err := configPath(gc)
	if err != nil {
		return fmt.Errorf("getting config file path: %w", err)
	}
	exists, err := config.ConfigFileExists(path)
	if err != nil {
		return fmt.Errorf("checking config file: %w", err)
	}

	checked := 0
	if exists {
		if err := config.ValidateFile(path); err != nil {
			var validationErrs config.ValidationErrors
			if errors.As(err, &validationErrs) {
				fmt.Fprintln(errOut, "Error: config validation failed")
				fmt.Fprintf(errOut, "  File: %s\n\n", path)
				for _, e := range validationErrs {
					fmt.Fprintf(errOut, "  %s: %s\n", e.Field, e.Message)
				}
				return &oerrors.ExitError{Err: err, Code: oerrors.ExitValidationError, Printed: true}
			}
			return fmt.Errorf("validating config: %w", err)
		}
		fmt.Fprintf(out, "Config file is valid: %s\n", path)
		checked++
	}

	releasePath := opts.releaseFile
	explicit := releasePath != ""
	if !explicit {
		releasePath = releasefile.Find(cmdutil.ResolveRoot(opts.root))
	}
	if _, err := releasefile.Load(releasePath); err != nil {
		switch {
		case errors.Is(err, oerrors.ErrNotFound) && !explicit:
			// No release file in this directory.
		case errors.Is(err, oerrors.ErrValidation):
			cmdutil.PrintValidationError("release file validation failed", err)
			return &oerrors.ExitError{Err: err, Code: oerrors.ExitValidationError, Printed: true}
		default:
			return err
		}
	} else {
		fmt.Fprintf(out, "Release file is valid: %s\n", releasePath)
		checked++
	}

	if checked == 0 {
		return oerrors.NewExitError(
			fmt.Errorf("%w: no config file at %s and no release file at %s", oerrors.ErrNotFound, path, releasePath),
			oerrors.ExitNotFound,
		)
	}
	return nil
}
