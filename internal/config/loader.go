package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Environment variable prefix for glabu configuration.
const envPrefix = "GLABU"

// Environment variables shared with other GitLab tooling.
const (
	EnvGitLabHost  = "GITLAB_HOST"
	EnvGitLabToken = "GITLAB_TOKEN"
	EnvConfig      = "GLABU_CONFIG"
)

// Loader handles loading and merging configuration from multiple sources.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	v := viper.New()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal only sees keys viper knows about, so every key is bound.
	_ = v.BindEnv("gitlab.host", "GLABU_GITLAB_HOST", EnvGitLabHost)
	_ = v.BindEnv("gitlab.token", "GLABU_GITLAB_TOKEN", EnvGitLabToken)
	_ = v.BindEnv("registry.backend", "GLABU_REGISTRY_BACKEND")
	_ = v.BindEnv("registry.s3.bucket", "GLABU_S3_BUCKET")
	_ = v.BindEnv("registry.s3.endpoint", "GLABU_S3_ENDPOINT")
	_ = v.BindEnv("registry.s3.region", "GLABU_S3_REGION", "AWS_REGION")
	_ = v.BindEnv("registry.s3.pathStyle", "GLABU_S3_PATH_STYLE")
	_ = v.BindEnv("engine", "GLABU_ENGINE")

	return &Loader{v: v}
}

// Load loads configuration from the given file path.
// If configFile is empty, it uses the default config file path.
// Environment variables take precedence over file values.
func (l *Loader) Load(configFile string) (*Config, error) {
	if configFile == "" {
		var err error
		configFile, err = GetConfigFile()
		if err != nil {
			return nil, fmt.Errorf("getting config file path: %w", err)
		}
	}

	expandedPath, err := ExpandPath(configFile)
	if err != nil {
		return nil, fmt.Errorf("expanding config path: %w", err)
	}

	l.v.SetConfigFile(expandedPath)
	l.v.SetConfigType("yaml")

	// A missing file is fine: defaults and env vars still apply.
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads configuration and applies defaults.
func (l *Loader) LoadWithDefaults(configFile string) (*Config, error) {
	cfg, err := l.Load(configFile)
	if err != nil {
		return nil, err
	}

	return cfg.WithDefaults(), nil
}

// ConfigFileExists checks if the config file exists.
func ConfigFileExists(configFile string) (bool, error) {
	if configFile == "" {
		var err error
		configFile, err = GetConfigFile()
		if err != nil {
			return false, err
		}
	}

	expandedPath, err := ExpandPath(configFile)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(expandedPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}
