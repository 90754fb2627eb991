// Package cmd provides CLI command implementations.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/puterize/glabu/internal/cmd/config"
	"github.com/puterize/glabu/internal/cmd/pkg"
	"github.com/puterize/glabu/internal/cmd/release"
	"github.com/puterize/glabu/internal/cmdtypes"
	iconfig "github.com/puterize/glabu/internal/config"
	"github.com/puterize/glabu/internal/output"
)

// rootFlags holds the raw global flag values.
type rootFlags struct {
	config      string
	output      string
	verbose     bool
	timestamps  bool
	gitlabHost  string
	gitlabToken string
	backend     string
	engine      string
}

// NewRootCmd creates the root command for the glabu CLI.
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}
	gc := &cmdtypes.GlobalConfig{}

	rootCmd := &cobra.Command{
		Use:   "glabu",
		Short: "GitLab generic package and multi-arch release tool",
		Long: `glabu uploads, lists and downloads GitLab generic packages and drives
multi-architecture releases: build, compress, upload, image manifest and
local install.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initializeGlobals(cmd, flags, gc)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.config, "config", "", "Path to config file (env: GLABU_CONFIG)")
	pf.StringVarP(&flags.output, "output", "o", "yaml", "Output format: yaml, json, table")
	pf.BoolVar(&flags.verbose, "verbose", false, "Enable verbose output")
	pf.BoolVar(&flags.timestamps, "timestamps", true, "Show timestamps in log output")
	pf.StringVar(&flags.gitlabHost, "gitlab-host", "", "GitLab instance URL (env: GITLAB_HOST)")
	pf.StringVar(&flags.gitlabToken, "gitlab-token", "", "GitLab personal access token (env: GITLAB_TOKEN)")
	pf.StringVar(&flags.backend, "backend", "", "Package registry backend: gitlab, s3 (env: GLABU_REGISTRY_BACKEND)")
	pf.StringVar(&flags.engine, "engine", "", "Container engine: podman, docker (env: GLABU_ENGINE)")

	rootCmd.AddCommand(
		pkg.NewPackageUploadCmd(gc),
		pkg.NewPackageDownloadCmd(gc),
		pkg.NewPackageFileListCmd(gc),
		release.NewReleaseCmd(gc),
		config.NewConfigCmd(gc),
		NewVersionCmd(gc),
	)

	return rootCmd
}

// initializeGlobals sets up logging and resolves configuration into gc.
func initializeGlobals(cmd *cobra.Command, flags *rootFlags, gc *cmdtypes.GlobalConfig) error {
	configPath, err := iconfig.ResolveConfigPath(iconfig.ResolveConfigPathOptions{FlagValue: flags.config})
	if err != nil {
		return err
	}

	loaded, err := iconfig.NewLoader().Load(configPath.Value)
	if err != nil {
		// Commands that need no config (version, config init) still work.
		output.Debug("config load error", "error", err)
		loaded = &iconfig.Config{}
	}

	resolved, err := iconfig.ResolveAll(iconfig.ResolveAllOptions{
		ConfigFlag:      flags.config,
		GitLabHostFlag:  flags.gitlabHost,
		GitLabTokenFlag: flags.gitlabToken,
		BackendFlag:     flags.backend,
		EngineFlag:      flags.engine,
		OutputFlag:      flags.output,
		Config:          loaded,
	})
	if err != nil {
		return err
	}

	gc.Config = loaded
	gc.Resolved = resolved
	gc.ConfigFlag = flags.config
	gc.Verbose = flags.verbose

	// Timestamps: flag (if explicitly set) > config > default (nil = true)
	logCfg := output.LogConfig{Verbose: flags.verbose}
	if cmd.Flags().Changed("timestamps") {
		logCfg.Timestamps = output.BoolPtr(flags.timestamps)
	} else if loaded.Log.Timestamps != nil {
		logCfg.Timestamps = loaded.Log.Timestamps
	}
	output.SetupLogging(logCfg)

	if flags.verbose {
		iconfig.LogResolvedValues(resolved.Fields())
	}
	return nil
}
