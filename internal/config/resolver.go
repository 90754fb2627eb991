package config

import (
	"os"

	"github.com/puterize/glabu/internal/output"
)

// ConfigSource indicates where a configuration value came from.
type ConfigSource string

const (
	// SourceFlag indicates value came from command-line flag.
	SourceFlag ConfigSource = "flag"
	// SourceEnv indicates value came from environment variable.
	SourceEnv ConfigSource = "env"
	// SourceConfig indicates value came from config file.
	SourceConfig ConfigSource = "config"
	// SourceDefault indicates value is the built-in default.
	SourceDefault ConfigSource = "default"
)

// ResolvedField is one configuration value with its provenance.
type ResolvedField struct {
	Key    string
	Value  string
	Source ConfigSource
	// Shadowed contains values that were overridden by higher precedence.
	Shadowed map[ConfigSource]string
}

// resolveField applies precedence flag > env > config > default. The first
// non-empty environment variable in envKeys is used.
func resolveField(key, flagValue string, envKeys []string, configValue, defaultValue string) ResolvedField {
	field := ResolvedField{Key: key, Shadowed: make(map[ConfigSource]string)}

	envValue := ""
	for _, k := range envKeys {
		if v := os.Getenv(k); v != "" {
			envValue = v
			break
		}
	}

	candidates := []struct {
		source ConfigSource
		value  string
	}{
		{SourceFlag, flagValue},
		{SourceEnv, envValue},
		{SourceConfig, configValue},
		{SourceDefault, defaultValue},
	}
	for _, c := range candidates {
		if c.value == "" {
			continue
		}
		if field.Source == "" {
			field.Value = c.value
			field.Source = c.source
			continue
		}
		if c.value != field.Value {
			field.Shadowed[c.source] = c.value
		}
	}
	return field
}

// ResolveConfigPathOptions contains options for config path resolution.
type ResolveConfigPathOptions struct {
	// FlagValue is the --config flag value (empty if not set).
	FlagValue string
}

// ResolveConfigPath resolves the config file path using precedence:
// (1) --config flag, (2) GLABU_CONFIG env, (3) ~/.glabu/config.yaml default
func ResolveConfigPath(opts ResolveConfigPathOptions) (ResolvedField, error) {
	paths, err := DefaultPaths()
	if err != nil {
		return ResolvedField{}, err
	}
	return resolveField("config", opts.FlagValue, []string{EnvConfig}, "", paths.ConfigFile), nil
}

// ResolveAllOptions carries raw flag values and the loaded config file.
type ResolveAllOptions struct {
	ConfigFlag      string
	GitLabHostFlag  string
	GitLabTokenFlag string
	BackendFlag     string
	EngineFlag      string
	OutputFlag      string

	// Config is the loaded file config; nil when loading failed.
	Config *Config
}

// ResolvedConfig is the effective CLI configuration.
type ResolvedConfig struct {
	ConfigPath  ResolvedField
	GitLabHost  ResolvedField
	GitLabToken ResolvedField
	Backend     ResolvedField
	Engine      ResolvedField
	S3          S3Config
	Output      string
}

// ResolveAll resolves every global setting in one pass.
func ResolveAll(opts ResolveAllOptions) (*ResolvedConfig, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = &Config{}
	}

	configPath, err := ResolveConfigPath(ResolveConfigPathOptions{FlagValue: opts.ConfigFlag})
	if err != nil {
		return nil, err
	}

	// The loader already merged env into cfg; equal values are not reported
	// as shadowed, so the env source wins cleanly.
	fileCfg := cfg
	def := DefaultConfig()

	return &ResolvedConfig{
		ConfigPath: configPath,
		GitLabHost: resolveField("gitlab.host", opts.GitLabHostFlag,
			[]string{EnvGitLabHost, "GLABU_GITLAB_HOST"}, fileCfg.GitLab.Host, def.GitLab.Host),
		GitLabToken: resolveField("gitlab.token", opts.GitLabTokenFlag,
			[]string{EnvGitLabToken, "GLABU_GITLAB_TOKEN"}, fileCfg.GitLab.Token, ""),
		Backend: resolveField("registry.backend", opts.BackendFlag,
			[]string{"GLABU_REGISTRY_BACKEND"}, fileCfg.Registry.Backend, def.Registry.Backend),
		Engine: resolveField("engine", opts.EngineFlag,
			[]string{"GLABU_ENGINE"}, fileCfg.Engine, def.Engine),
		S3:     fileCfg.Registry.S3,
		Output: opts.OutputFlag,
	}, nil
}

// Fields returns the resolved fields in a stable order.
func (r *ResolvedConfig) Fields() []ResolvedField {
	return []ResolvedField{r.ConfigPath, r.GitLabHost, r.GitLabToken, r.Backend, r.Engine}
}

// LogResolvedValues logs configuration resolution at DEBUG level.
// Token values are redacted.
func LogResolvedValues(fields []ResolvedField) {
	for _, f := range fields {
		value := f.Value
		if f.Key == "gitlab.token" && value != "" {
			value = "<redacted>"
		}
		output.Debug("config value resolved", "key", f.Key, "value", value, "source", f.Source)
		for source, shadowed := range f.Shadowed {
			if f.Key == "gitlab.token" {
				shadowed = "<redacted>"
			}
			output.Debug("  shadowed by higher precedence",
				"key", f.Key,
				"shadowed_source", source,
				"shadowed_value", shadowed,
			)
		}
	}
}
