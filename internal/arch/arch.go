// Package arch holds the canonical mapping between target architectures and
// every naming convention the release workflow touches: host identifiers,
// Rust target triples, container platforms and GOARCH values.
package arch

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// Arch is a canonical target architecture name as used in image tags and
// artifact file names.
type Arch string

const (
	AMD64 Arch = "amd64"
	ARM64 Arch = "arm64"
)

// Info describes one architecture across naming conventions.
type Info struct {
	Arch Arch

	// Aliases are host self-reported identifiers (uname -m, GOARCH, ...).
	Aliases []string

	// TargetTriple is the Rust/LLVM target used for release builds.
	TargetTriple string

	// Platform is the container platform string.
	Platform string

	// GOARCH is the Go architecture name.
	GOARCH string
}

var table = map[Arch]Info{
	AMD64: {
		Arch:         AMD64,
		Aliases:      []string{"amd64", "x86_64", "x86-64", "x64"},
		TargetTriple: "x86_64-unknown-linux-musl",
		Platform:     "linux/amd64",
		GOARCH:       "amd64",
	},
	ARM64: {
		Arch:         ARM64,
		Aliases:      []string{"arm64", "aarch64", "armv8", "arm64/v8"},
		TargetTriple: "aarch64-unknown-linux-musl",
		Platform:     "linux/arm64",
		GOARCH:       "arm64",
	},
}

// Parse maps any known identifier (canonical name, uname alias, GOARCH or
// target triple) to its canonical Arch. Matching is case-insensitive.
func Parse(s string) (Arch, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	if needle == "" {
		return "", fmt.Errorf("architecture is required")
	}
	needle = strings.TrimPrefix(needle, "linux/")
	for _, info := range table {
		if needle == info.TargetTriple {
			return info.Arch, nil
		}
		for _, alias := range info.Aliases {
			if needle == alias {
				return info.Arch, nil
			}
		}
	}
	return "", fmt.Errorf("unknown architecture %q (known: %s)", s, strings.Join(Names(), ", "))
}

// MustParse is like Parse but panics on unknown identifiers.
func MustParse(s string) Arch {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Lookup returns the table entry for a canonical architecture.
func Lookup(a Arch) (Info, bool) {
	info, ok := table[a]
	return info, ok
}

// Names returns the sorted canonical architecture names.
func Names() []string {
	names := make([]string, 0, len(table))
	for a := range table {
		names = append(names, string(a))
	}
	sort.Strings(names)
	return names
}

// Host returns the canonical architecture of the running process.
func Host() (Arch, error) {
	return Parse(runtime.GOARCH)
}

// Matches reports whether a raw host identifier denotes the same
// architecture as a. Unknown identifiers never match.
func Matches(a Arch, hostIdentifier string) bool {
	parsed, err := Parse(hostIdentifier)
	if err != nil {
		return false
	}
	return parsed == a
}

// String implements fmt.Stringer.
func (a Arch) String() string {
	return string(a)
}

// TargetTriple returns the build target triple, or "" for unknown values.
func (a Arch) TargetTriple() string {
	return table[a].TargetTriple
}

// Platform returns the container platform, or "" for unknown values.
func (a Arch) Platform() string {
	return table[a].Platform
}

// ParseList parses and de-duplicates a list of identifiers, keeping the
// first-seen order.
func ParseList(values []string) ([]Arch, error) {
	seen := make(map[Arch]bool, len(values))
	out := make([]Arch, 0, len(values))
	for _, v := range values {
		a, err := Parse(v)
		if err != nil {
			return nil, err
		}
		if seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out, nil
}
