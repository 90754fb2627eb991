// Package version provides version information for the glabu CLI.
package version

import (
	"fmt"
	"runtime"
	"strings"
)

// Build-time variables set via ldflags.
var (
	// Version is the CLI version (set via ldflags).
	Version = "v0.0.0-dev"

	// GitCommit is the git commit hash.
	GitCommit = "unknown"

	// BuildDate is the build timestamp.
	BuildDate = "unknown"
)

// Info contains version information.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	GitCommit string `json:"gitCommit" yaml:"gitCommit"`
	BuildDate string `json:"buildDate" yaml:"buildDate"`
	GoVersion string `json:"goVersion" yaml:"goVersion"`
	Platform  string `json:"platform" yaml:"platform"`
}

// GetInfo returns the current version information.
func GetInfo() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// String returns a human-readable version string.
func (i Info) String() string {
	return fmt.Sprintf("glabu:\n  Version:  %s\n  Build ID: %s/%s\n  Go:       %s (%s)",
		i.Version, i.BuildDate, i.GitCommit, i.GoVersion, i.Platform)
}

// FullVersionString returns version information followed by the external
// tools the release workflow depends on.
func FullVersionString(info Info, tools []ToolInfo) string {
	var sb strings.Builder
	sb.WriteString(info.String())
	if len(tools) > 0 {
		sb.WriteString("\n\nTools:")
		for _, t := range tools {
			sb.WriteString("\n")
			sb.WriteString(t.String())
		}
	}
	return sb.String()
}
