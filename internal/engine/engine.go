// Package engine drives a container engine CLI (podman or docker) for
// image builds, pushes and multi-architecture manifests.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/puterize/glabu/internal/runner"
)

// Kind names a supported engine CLI.
type Kind string

const (
	Podman Kind = "podman"
	Docker Kind = "docker"
)

// ParseKind validates an engine name.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case Podman, "":
		return Podman, nil
	case Docker:
		return Docker, nil
	default:
		return "", fmt.Errorf("unknown container engine %q (valid: podman, docker)", s)
	}
}

// Engine runs engine commands through a CommandRunner.
//
// Podman keeps manifest lists as local objects that can be created empty.
// Docker cannot create an empty list, so for docker the members are
// collected in memory and the list is created right before the push.
type Engine struct {
	kind   Kind
	runner runner.CommandRunner
	dir    string

	mu      sync.Mutex
	pending map[string][]string
}

// New creates an engine of kind whose commands run in dir.
func New(kind Kind, r runner.CommandRunner, dir string) *Engine {
	return &Engine{kind: kind, runner: r, dir: dir, pending: map[string][]string{}}
}

// Kind returns the engine kind.
func (e *Engine) Kind() Kind { return e.kind }

func (e *Engine) bin() string { return string(e.kind) }

func (e *Engine) run(ctx context.Context, args ...string) ([]byte, error) {
	return e.runner.RunOutput(ctx, e.dir, e.bin(), args...)
}

// Available reports whether the engine CLI responds.
func (e *Engine) Available(ctx context.Context) error {
	if _, err := e.run(ctx, "--version"); err != nil {
		return fmt.Errorf("%s is not installed or not working: %w", e.bin(), err)
	}
	return nil
}

// BuildImage builds tag for platform from the configured Dockerfile and context.
func (e *Engine) BuildImage(ctx context.Context, spec BuildSpec) error {
	args := []string{"build", "--platform", spec.Platform, "-t", spec.Tag}
	if spec.Dockerfile != "" {
		args = append(args, "-f", spec.Dockerfile)
	}
	for _, a := range spec.BuildArgs {
		args = append(args, "--build-arg", a)
	}
	contextDir := spec.Context
	if contextDir == "" {
		contextDir = "."
	}
	args = append(args, contextDir)
	if _, err := e.run(ctx, args...); err != nil {
		return fmt.Errorf("building image %s: %w", spec.Tag, err)
	}
	return nil
}

// BuildSpec describes one image build.
type BuildSpec struct {
	Tag        string
	Platform   string
	Dockerfile string
	Context    string
	BuildArgs  []string
}

// PushImage pushes tag to its registry.
func (e *Engine) PushImage(ctx context.Context, tag string) error {
	if _, err := e.run(ctx, "push", tag); err != nil {
		return fmt.Errorf("pushing image %s: %w", tag, err)
	}
	return nil
}
