// Package vcs resolves release version identifiers from git.
package vcs

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/puterize/glabu/internal/runner"
)

// Git resolves commit identifiers by invoking the git binary in an explicit
// repository root.
type Git struct {
	Runner runner.CommandRunner

	// Binary is the git executable; defaults to "git".
	Binary string
}

// NewGit returns a Git resolver using r.
func NewGit(r runner.CommandRunner) *Git {
	return &Git{Runner: r, Binary: "git"}
}

// hashPattern accepts abbreviated and full hashes of SHA-1 and SHA-256
// repositories.
var hashPattern = regexp.MustCompile(`^[0-9a-f]{4,64}$`)

// ShortCommit returns the abbreviated hash of HEAD in root.
func (g *Git) ShortCommit(ctx context.Context, root string) (string, error) {
	return g.revParse(ctx, root, "--short", "HEAD")
}

// revParse reads stdout only, so warnings git prints on stderr never end
// up in the hash.
func (g *Git) revParse(ctx context.Context, root string, args ...string) (string, error) {
	if g.Runner == nil {
		return "", fmt.Errorf("git runner is required")
	}
	if strings.TrimSpace(root) == "" {
		return "", fmt.Errorf("repository root is required")
	}
	bin := g.Binary
	if bin == "" {
		bin = "git"
	}
	args = append([]string{"rev-parse"}, args...)
	out, err := g.Runner.RunStdout(ctx, root, bin, args...)
	if err != nil {
		return "", fmt.Errorf("git %s failed: %w", strings.Join(args, " "), err)
	}
	val := strings.TrimSpace(string(out))
	if val == "" {
		return "", fmt.Errorf("git %s returned empty output", strings.Join(args, " "))
	}
	if !hashPattern.MatchString(val) {
		return "", fmt.Errorf("git rev-parse returned unexpected output %q", val)
	}
	return val, nil
}
