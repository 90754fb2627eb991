package config

import (
	"os"
	"path/filepath"
)

// Paths contains standard filesystem paths for glabu.
type Paths struct {
	// ConfigFile is the path to the config file (~/.glabu/config.yaml).
	ConfigFile string

	// HomeDir is the glabu home directory (~/.glabu).
	HomeDir string
}

// DefaultPaths returns the default paths for glabu.
func DefaultPaths() (*Paths, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	glabuHome := filepath.Join(homeDir, ".glabu")

	return &Paths{
		ConfigFile: filepath.Join(glabuHome, "config.yaml"),
		HomeDir:    glabuHome,
	}, nil
}

// GetConfigFile returns the config file path.
// If GLABU_CONFIG is set, it takes precedence.
func GetConfigFile() (string, error) {
	if envPath := os.Getenv(EnvConfig); envPath != "" {
		return envPath, nil
	}

	paths, err := DefaultPaths()
	if err != nil {
		return "", err
	}

	return paths.ConfigFile, nil
}

// DefaultInstallDir is where the host binary is installed unless overridden.
const DefaultInstallDir = "/usr/local/bin"

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	if len(path) == 1 {
		return homeDir, nil
	}

	if path[1] == '/' || path[1] == filepath.Separator {
		return filepath.Join(homeDir, path[2:]), nil
	}

	// ~username is not supported
	return path, nil
}
