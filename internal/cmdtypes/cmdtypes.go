// Package cmdtypes provides shared types for the cmd package and its sub-packages.
// It is separate from internal/cmd to avoid import cycles between internal/cmd
// and its sub-packages (internal/cmd/pkg, internal/cmd/release, internal/cmd/config).
package cmdtypes

import (
	"github.com/puterize/glabu/internal/config"
	oerrors "github.com/puterize/glabu/internal/errors"
)

// GlobalConfig holds CLI-wide configuration resolved during PersistentPreRunE.
// It is populated once at startup and passed explicitly into every sub-command
// constructor.
type GlobalConfig struct {
	// Config is the loaded global config file merged with env; never nil
	// after initialization.
	Config   *config.Config
	Resolved *config.ResolvedConfig

	// ConfigFlag is the raw --config value (needed by config init/vet).
	ConfigFlag string
	Verbose    bool
}

// GitLabHost returns the resolved GitLab host.
func (g *GlobalConfig) GitLabHost() string {
	if g.Resolved != nil {
		return g.Resolved.GitLabHost.Value
	}
	return config.DefaultGitLabHost
}

// GitLabToken returns the resolved GitLab token.
func (g *GlobalConfig) GitLabToken() string {
	if g.Resolved != nil {
		return g.Resolved.GitLabToken.Value
	}
	return ""
}

// OutputFormat returns the raw --output value.
func (g *GlobalConfig) OutputFormat() string {
	if g.Resolved != nil {
		return g.Resolved.Output
	}
	return ""
}

// Exit codes: type aliases to internal/errors constants.
const (
	ExitSuccess           = oerrors.ExitSuccess
	ExitGeneralError      = oerrors.ExitGeneralError
	ExitValidationError   = oerrors.ExitValidationError
	ExitConnectivityError = oerrors.ExitConnectivityError
	ExitPermissionDenied  = oerrors.ExitPermissionDenied
	ExitNotFound          = oerrors.ExitNotFound
	ExitConflict          = oerrors.ExitConflict
)

// ExitError is a type alias to internal/errors.ExitError.
type ExitError = oerrors.ExitError
