// Package pkg provides the generic package commands: package-upload,
// package-download and package-file-list.
package pkg

import (
	"context"
	"fmt"

	"github.com/puterize/glabu/internal/cmdtypes"
	"github.com/puterize/glabu/internal/cmdutil"
	"github.com/puterize/glabu/internal/gitlab"
	"github.com/puterize/glabu/internal/output"
)

// resolvePackage returns the package selected by flags: the exact version,
// or the most recently created one when latest is set.
func resolvePackage(ctx context.Context, client *gitlab.Client, project string, flags *cmdutil.PackageFlags, latest bool) (*gitlab.Package, error) {
	if latest {
		pkg, err := client.LatestPackage(ctx, project, flags.Name)
		if err != nil {
			return nil, err
		}
		output.Debug("resolved latest package", "name", pkg.Name, "version", pkg.Version)
		return pkg, nil
	}
	return client.FindPackage(ctx, project, flags.Name, flags.Version)
}

func newClient(gc *cmdtypes.GlobalConfig) (*gitlab.Client, error) {
	client, err := cmdutil.NewGitLabClient(gc)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}
	return client, nil
}

// withSpinner runs action under a spinner titled title.
func withSpinner(ctx context.Context, title string, action func(context.Context) error) error {
	return output.RunWithSpinner(ctx, action, output.WithTitle(title))
}
