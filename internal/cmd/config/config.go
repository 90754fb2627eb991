// Package config provides CLI command implementations for the config command group.
package config

import (
	"github.com/spf13/cobra"

	"github.com/puterize/glabu/internal/cmdtypes"
	"github.com/puterize/glabu/internal/config"
)

// NewConfigCmd creates the config command group.
func NewConfigCmd(gc *cmdtypes.GlobalConfig) *cobra.Command {
	c := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  `Configuration management for the glabu CLI and project release files.`,
	}

	c.AddCommand(NewInitCmd(gc))
	c.AddCommand(NewVetCmd(gc))

	return c
}

// configPath returns the expanded global config path: the resolved value
// when available, otherwise GLABU_CONFIG or the default location.
func configPath(gc *cmdtypes.GlobalConfig) (string, error) {
	var path string
	if gc != nil && gc.Resolved != nil {
		path = gc.Resolved.ConfigPath.Value
	}
	if path == "" {
		var err error
		path, err = config.GetConfigFile()
		if err != nil {
			return "", err
		}
	}
	return config.ExpandPath(path)
}
