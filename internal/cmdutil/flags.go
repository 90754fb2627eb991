// Package cmdutil provides shared command utilities for the package and
// release subcommands. It centralizes flag groups, registry client
// construction and output helpers.
package cmdutil

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// PackageFlags identify a generic package (package-upload,
// package-download, package-file-list).
type PackageFlags struct {
	Name    string
	Version string
}

// AddTo registers the package flags on the given cobra command.
func (f *PackageFlags) AddTo(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.Name, "package-name", "n", "",
		"Generic package name")
	cmd.Flags().StringVarP(&f.Version, "package-version", "v", "",
		"Generic package version")
}

// Validate checks that a name was provided, and a version when
// requireVersion is set.
func (f *PackageFlags) Validate(requireVersion bool) error {
	var missing []string
	if strings.TrimSpace(f.Name) == "" {
		missing = append(missing, "--package-name")
	}
	if requireVersion && strings.TrimSpace(f.Version) == "" {
		missing = append(missing, "--package-version")
	}
	if len(missing) > 0 {
		return fmt.Errorf("required flag(s) %s not set", strings.Join(missing, ", "))
	}
	return nil
}

// FileSelectorFlags select files of a package by exact name or pattern
// (package-download).
type FileSelectorFlags struct {
	FileName string
	Pattern  string
}

// AddTo registers the file selector flags on the given cobra command.
func (f *FileSelectorFlags) AddTo(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.FileName, "package-file", "",
		"Exact file name to select")
	cmd.Flags().StringVar(&f.Pattern, "regex", "",
		"Regular expression matched against file names (wins over --package-file)")
}

// Validate checks that at least one selector was given.
func (f *FileSelectorFlags) Validate() error {
	if f.FileName == "" && f.Pattern == "" {
		return fmt.Errorf("either --package-file or --regex is required")
	}
	return nil
}

// ResolveProject returns the project argument.
func ResolveProject(args []string) (string, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "", fmt.Errorf("project (numeric ID or namespace/path) is required")
	}
	return args[0], nil
}

// ResolveRoot returns the repository root from the flag, defaulting to the
// current directory.
func ResolveRoot(flag string) string {
	if flag != "" {
		return flag
	}
	return "."
}
