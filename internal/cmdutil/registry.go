package cmdutil

import (
	"context"
	"fmt"

	"github.com/puterize/glabu/internal/cmdtypes"
	"github.com/puterize/glabu/internal/config"
	oerrors "github.com/puterize/glabu/internal/errors"
	"github.com/puterize/glabu/internal/gitlab"
	"github.com/puterize/glabu/internal/output"
	"github.com/puterize/glabu/internal/registry"
	"github.com/puterize/glabu/internal/s3store"
)

// NewGitLabClient creates a GitLab client from the resolved configuration.
// A missing token is allowed for public projects but logged.
func NewGitLabClient(gc *cmdtypes.GlobalConfig) (*gitlab.Client, error) {
	token := gc.GitLabToken()
	if token == "" {
		output.Warn("no GitLab token configured, requests are anonymous",
			"env", config.EnvGitLabToken)
	}
	return gitlab.NewClient(gc.GitLabHost(), token)
}

// NewPackageRegistry returns the package registry backend selected by the
// resolved configuration.
func NewPackageRegistry(ctx context.Context, gc *cmdtypes.GlobalConfig) (registry.PackageRegistry, error) {
	backend := config.BackendGitLab
	if gc.Resolved != nil && gc.Resolved.Backend.Value != "" {
		backend = gc.Resolved.Backend.Value
	}

	switch backend {
	case config.BackendGitLab:
		client, err := NewGitLabClient(gc)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.BackendS3:
		var s3cfg config.S3Config
		if gc.Resolved != nil {
			s3cfg = gc.Resolved.S3
		}
		client, err := s3store.NewClient(ctx, s3store.ClientOptions{
			Endpoint:  s3cfg.Endpoint,
			Region:    s3cfg.Region,
			PathStyle: s3cfg.PathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: creating s3 client: %w", oerrors.ErrConnectivity, err)
		}
		store, err := s3store.New(client, s3cfg.Bucket)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown registry backend %q (valid: %s, %s)",
			oerrors.ErrValidation, backend, config.BackendGitLab, config.BackendS3)
	}
}
