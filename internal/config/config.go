// Package config provides configuration loading and management.
package config

// Registry backends a release can upload packages to.
const (
	BackendGitLab = "gitlab"
	BackendS3     = "s3"
)

// Container engines the manifest and image stages can drive.
const (
	EnginePodman = "podman"
	EngineDocker = "docker"
)

// DefaultGitLabHost is used when no host is configured anywhere.
const DefaultGitLabHost = "https://gitlab.com"

// GitLabConfig contains GitLab API settings.
type GitLabConfig struct {
	// Host is the GitLab base URL.
	// Env: GITLAB_HOST or GLABU_GITLAB_HOST, Default: https://gitlab.com
	Host string `json:"host,omitempty" yaml:"host,omitempty" mapstructure:"host"`

	// Token is the personal access token sent as PRIVATE-TOKEN.
	// Env: GITLAB_TOKEN or GLABU_GITLAB_TOKEN
	Token string `json:"token,omitempty" yaml:"token,omitempty" mapstructure:"token"`
}

// S3Config contains settings for the S3-compatible package store.
type S3Config struct {
	Bucket   string `json:"bucket,omitempty" yaml:"bucket,omitempty" mapstructure:"bucket"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" mapstructure:"endpoint"`
	Region   string `json:"region,omitempty" yaml:"region,omitempty" mapstructure:"region"`

	// PathStyle forces path-style addressing, needed by most self-hosted stores.
	PathStyle bool `json:"pathStyle,omitempty" yaml:"pathStyle,omitempty" mapstructure:"pathStyle"`
}

// RegistryConfig selects where release packages are uploaded.
type RegistryConfig struct {
	// Backend is "gitlab" (default) or "s3".
	// Env: GLABU_REGISTRY_BACKEND
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty" mapstructure:"backend"`

	S3 S3Config `json:"s3,omitempty" yaml:"s3,omitempty" mapstructure:"s3"`
}

// LogConfig contains logging-related settings.
type LogConfig struct {
	// Timestamps controls whether timestamps are shown in log output.
	// Default: true. Override with --timestamps flag.
	Timestamps *bool `json:"timestamps,omitempty" yaml:"timestamps,omitempty" mapstructure:"timestamps"`
}

// Config represents the glabu CLI configuration.
// Loaded from ~/.glabu/config.yaml.
type Config struct {
	GitLab GitLabConfig `json:"gitlab,omitempty" yaml:"gitlab,omitempty" mapstructure:"gitlab"`

	Registry RegistryConfig `json:"registry,omitempty" yaml:"registry,omitempty" mapstructure:"registry"`

	// Engine is the container engine used for images and manifests.
	// Env: GLABU_ENGINE, Default: podman
	Engine string `json:"engine,omitempty" yaml:"engine,omitempty" mapstructure:"engine"`

	Log LogConfig `json:"log,omitempty" yaml:"log,omitempty" mapstructure:"log"`
}

// DefaultConfig returns a Config with all default values populated.
// Used by `glabu config init` to generate the initial config file.
func DefaultConfig() *Config {
	return &Config{
		GitLab:   GitLabConfig{Host: DefaultGitLabHost},
		Registry: RegistryConfig{Backend: BackendGitLab},
		Engine:   EnginePodman,
	}
}

// WithDefaults returns a copy of c with unset fields filled from DefaultConfig.
func (c *Config) WithDefaults() *Config {
	out := *c
	def := DefaultConfig()
	if out.GitLab.Host == "" {
		out.GitLab.Host = def.GitLab.Host
	}
	if out.Registry.Backend == "" {
		out.Registry.Backend = def.Registry.Backend
	}
	if out.Engine == "" {
		out.Engine = def.Engine
	}
	return &out
}
