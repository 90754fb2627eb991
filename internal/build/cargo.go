package build

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/puterize/glabu/internal/arch"
	"github.com/puterize/glabu/internal/runner"
)

// Cargo cross-compiles a Rust crate for the musl target of each architecture.
type Cargo struct {
	Runner runner.CommandRunner

	// Root is the crate (or workspace) root.
	Root string

	// Binary is the name of the produced executable.
	Binary string

	// Command is the build tool, "cargo" unless a wrapper such as "cross"
	// is configured.
	Command string

	// ExtraArgs are appended to the build invocation.
	ExtraArgs []string
}

// OutputPath returns where cargo leaves the release binary for a.
func (c *Cargo) OutputPath(a arch.Arch) string {
	return filepath.Join(c.Root, "target", a.TargetTriple(), "release", c.Binary)
}

// Build implements Builder.
func (c *Cargo) Build(ctx context.Context, _ string, a arch.Arch) (string, error) {
	if c.Runner == nil {
		return "", fmt.Errorf("cargo runner is required")
	}
	command := c.Command
	if command == "" {
		command = "cargo"
	}

	args := []string{"build", "--release", "--target", a.TargetTriple()}
	if c.Binary != "" {
		args = append(args, "--bin", c.Binary)
	}
	args = append(args, c.ExtraArgs...)

	if _, err := c.Runner.RunOutput(ctx, c.Root, command, args...); err != nil {
		return "", err
	}

	path := c.OutputPath(a)
	if err := checkBinary(path); err != nil {
		return "", err
	}
	return path, nil
}
