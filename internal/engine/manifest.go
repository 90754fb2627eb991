package engine

import (
	"context"
	"fmt"

	"github.com/puterize/glabu/internal/runner"
)

// ManifestExists reports whether a manifest list named tagRoot exists.
func (e *Engine) ManifestExists(ctx context.Context, tagRoot string) (bool, error) {
	var args []string
	switch e.kind {
	case Docker:
		e.mu.Lock()
		_, ok := e.pending[tagRoot]
		e.mu.Unlock()
		if ok {
			return true, nil
		}
		args = []string{"manifest", "inspect", tagRoot}
	default:
		args = []string{"manifest", "exists", tagRoot}
	}

	_, err := e.run(ctx, args...)
	if err == nil {
		return true, nil
	}
	if code, ok := runner.ExitCode(err); ok && code == 1 {
		return false, nil
	}
	return false, fmt.Errorf("checking manifest %s: %w", tagRoot, err)
}

// ManifestRemove deletes the local manifest list tagRoot.
func (e *Engine) ManifestRemove(ctx context.Context, tagRoot string) error {
	e.mu.Lock()
	_, pendingOnly := e.pending[tagRoot]
	delete(e.pending, tagRoot)
	e.mu.Unlock()
	if e.kind == Docker && pendingOnly {
		return nil
	}

	if _, err := e.run(ctx, "manifest", "rm", tagRoot); err != nil {
		return fmt.Errorf("removing manifest %s: %w", tagRoot, err)
	}
	return nil
}

// ManifestCreate creates an empty manifest list tagRoot.
func (e *Engine) ManifestCreate(ctx context.Context, tagRoot string) error {
	if e.kind == Docker {
		e.mu.Lock()
		e.pending[tagRoot] = nil
		e.mu.Unlock()
		return nil
	}
	if _, err := e.run(ctx, "manifest", "create", tagRoot); err != nil {
		return fmt.Errorf("creating manifest %s: %w", tagRoot, err)
	}
	return nil
}

// ManifestAdd adds the image member to tagRoot.
func (e *Engine) ManifestAdd(ctx context.Context, tagRoot, member string) error {
	if e.kind == Docker {
		e.mu.Lock()
		defer e.mu.Unlock()
		members, ok := e.pending[tagRoot]
		if !ok {
			return fmt.Errorf("adding %s: manifest %s was not created", member, tagRoot)
		}
		e.pending[tagRoot] = append(members, member)
		return nil
	}
	if _, err := e.run(ctx, "manifest", "add", tagRoot, member); err != nil {
		return fmt.Errorf("adding %s to manifest %s: %w", member, tagRoot, err)
	}
	return nil
}

// ManifestPush publishes tagRoot to its registry.
func (e *Engine) ManifestPush(ctx context.Context, tagRoot string) error {
	if e.kind == Docker {
		e.mu.Lock()
		members, ok := e.pending[tagRoot]
		e.mu.Unlock()
		if !ok || len(members) == 0 {
			return fmt.Errorf("pushing manifest %s: no members added", tagRoot)
		}
		args := append([]string{"manifest", "create", "--amend", tagRoot}, members...)
		if _, err := e.run(ctx, args...); err != nil {
			return fmt.Errorf("creating manifest %s: %w", tagRoot, err)
		}
	}
	if _, err := e.run(ctx, "manifest", "push", tagRoot); err != nil {
		return fmt.Errorf("pushing manifest %s: %w", tagRoot, err)
	}
	return nil
}
