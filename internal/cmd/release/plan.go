package release

import (
	"github.com/spf13/cobra"

	"github.com/puterize/glabu/internal/cmdtypes"
	"github.com/puterize/glabu/internal/cmdutil"
)

func newPlanCmd(gc *cmdtypes.GlobalConfig, env *environment) *cobra.Command {
	opts := &options{}

	c := &cobra.Command{
		Use:   "plan",
		Short: "Show what a release would do",
		Long: `Resolve the version and print every upload, image tag and install
decision of a release without building, uploading or touching manifests.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			ctx := c.Context()
			a, err := assemble(ctx, gc, env, opts)
			if err != nil {
				return setupError(err)
			}
			plan, err := a.orchestrator.Plan(ctx, a.expectedPath)
			if err != nil {
				return setupError(err)
			}
			return cmdutil.WriteResult(c.OutOrStdout(), gc.OutputFormat(), plan)
		},
	}
	opts.addTo(c)

	return c
}
