// Package runner executes external tools (git, cargo, upx, podman) with an
// explicit working directory instead of changing the process directory.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// CommandRunner defines the interface for executing external commands.
type CommandRunner interface {
	// Run streams the command's stdout/stderr to the runner's writers.
	Run(ctx context.Context, dir, name string, args ...string) error

	// RunOutput returns combined stdout and stderr.
	RunOutput(ctx context.Context, dir, name string, args ...string) ([]byte, error)

	// RunStdout returns stdout only. Stderr is kept for the error message.
	RunStdout(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ExecRunner is a CommandRunner backed by os/exec.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer

	// Env is appended to the inherited environment.
	Env []string
}

// NewExecRunner returns a runner that streams to the process stdout/stderr.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run implements CommandRunner.
func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := r.command(ctx, dir, name, args...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if err := cmd.Run(); err != nil {
		return &ExitError{Command: commandLine(name, args), Err: err}
	}
	return nil
}

// RunOutput implements CommandRunner.
func (r *ExecRunner) RunOutput(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := r.command(ctx, dir, name, args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	if err := cmd.Run(); err != nil {
		return buf.Bytes(), &ExitError{
			Command: commandLine(name, args),
			Output:  strings.TrimSpace(buf.String()),
			Err:     err,
		}
	}
	return buf.Bytes(), nil
}

// RunStdout implements CommandRunner.
func (r *ExecRunner) RunStdout(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := r.command(ctx, dir, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), &ExitError{
			Command: commandLine(name, args),
			Output:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
	}
	return stdout.Bytes(), nil
}

func (r *ExecRunner) command(ctx context.Context, dir, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}
	return cmd
}

// ExitError reports a failed command with its captured output, if any.
type ExitError struct {
	Command string
	Output  string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("run %s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("run %s: %v: %s", e.Command, e.Err, e.Output)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// LookPath reports whether a tool is available on PATH.
func LookPath(name string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("%s is not installed or not on PATH: %w", name, err)
	}
	return nil
}

func commandLine(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}

// ExitCode returns the process exit status carried by err, if any.
func ExitCode(err error) (int, bool) {
	var coded interface{ ExitCode() int }
	if errors.As(err, &coded) {
		return coded.ExitCode(), true
	}
	return 0, false
}
