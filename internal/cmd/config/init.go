package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/puterize/glabu/internal/cmdtypes"
	"github.com/puterize/glabu/internal/config"
	oerrors "github.com/puterize/glabu/internal/errors"
)

const configHeader = `# glabu CLI configuration
# The GitLab token is best supplied through GITLAB_TOKEN instead of this file.

`

// NewInitCmd creates the config init command.
func NewInitCmd(gc *cmdtypes.GlobalConfig) *cobra.Command {
	var force bool

	c := &cobra.Command{
		Use:   "init",
		Short: "Create a new glabu configuration file",
		Long: `Create a new glabu configuration file with default values.

The configuration file is created at ~/.glabu/config.yaml by default.
Use --config flag to specify a different location.`,
		RunE: func(c *cobra.Command, _ []string) error {
			return runInit(c, gc, force)
		},
	}

	c.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing config file")

	return c
}

func runInit(c *cobra.Command, gc *cmdtypes.GlobalConfig, force bool) error {
	path, err := configPath(gc)
	if err != nil {
		return fmt.Errorf("getting config file path: %w", err)
	}

	exists, err := config.ConfigFileExists(path)
	if err != nil {
		return fmt.Errorf("checking config file: %w", err)
	}
	if exists && !force {
		return oerrors.NewExitError(
			fmt.Errorf("config file already exists at %s (use --force to overwrite)", path),
			oerrors.ExitGeneralError,
		)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(config.DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	data = append([]byte(configHeader), data...)

	// The file may later hold a token.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Fprintf(c.OutOrStdout(), "Config file created: %s\n", path)
	return nil
}
