package version

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/puterize/glabu/internal/runner"
)

// toolVersionRegex matches version strings like "4.2.4" or "v5.0.1-dev".
var toolVersionRegex = regexp.MustCompile(`v?\d+\.\d+(?:\.\d+)?(?:-[a-zA-Z0-9.]+)?`)

// ToolInfo describes an external tool found (or not) on PATH.
type ToolInfo struct {
	Name    string `json:"name" yaml:"name"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	Found   bool   `json:"found" yaml:"found"`
}

// String returns a one-line description of the tool.
func (t ToolInfo) String() string {
	if !t.Found {
		return fmt.Sprintf("  %-7s not found", t.Name)
	}
	v := t.Version
	if v == "" {
		v = "unknown version"
	}
	return fmt.Sprintf("  %-7s %s (%s)", t.Name, v, t.Path)
}

// ReleaseTools lists the tools the release workflow shells out to, with the
// argument that prints each tool's version.
var ReleaseTools = []struct {
	Name string
	Args []string
}{
	{"git", []string{"--version"}},
	{"cargo", []string{"--version"}},
	{"upx", []string{"--version"}},
	{"podman", []string{"--version"}},
	{"docker", []string{"--version"}},
}

// DetectTools looks up every release tool and asks it for its version.
func DetectTools(ctx context.Context, r runner.CommandRunner) []ToolInfo {
	out := make([]ToolInfo, 0, len(ReleaseTools))
	for _, tool := range ReleaseTools {
		out = append(out, detectTool(ctx, r, tool.Name, tool.Args))
	}
	return out
}

func detectTool(ctx context.Context, r runner.CommandRunner, name string, args []string) ToolInfo {
	path, err := exec.LookPath(name)
	if err != nil {
		return ToolInfo{Name: name}
	}
	info := ToolInfo{Name: name, Path: path, Found: true}
	data, err := r.RunOutput(ctx, "", path, args...)
	if err != nil {
		return info
	}
	info.Version = ParseToolVersion(string(data))
	return info
}

// ParseToolVersion extracts the first version-looking token from output.
func ParseToolVersion(output string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	return strings.TrimPrefix(toolVersionRegex.FindString(line), "v")
}
