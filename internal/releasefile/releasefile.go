// Package releasefile loads the per-project release description
// (.glabu.yaml at the repository root).
package releasefile

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"sigs.k8s.io/yaml"

	oerrors "github.com/puterize/glabu/internal/errors"
)

// FileName is the release file looked up at the repository root.
const FileName = ".glabu.yaml"

//go:embed schema/release.schema.json
var schemaJSON []byte

const schemaURL = "https://glabu.puterize.dev/schema/release.schema.json"

var (
	schemaOnce     sync.Once
	schemaErr      error
	compiledSchema *jsonschema.Schema
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft7
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("adding release schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

// Build selects how binaries are produced.
type Build struct {
	// Mode is cargo or image.
	Mode       string   `json:"mode,omitempty"`
	Command    string   `json:"command,omitempty"`
	Args       []string `json:"args,omitempty"`
	Dockerfile string   `json:"dockerfile,omitempty"`
	Context    string   `json:"context,omitempty"`
	ImagePath  string   `json:"imagePath,omitempty"`
}

// Compression selects the artifact compressor.
type Compression struct {
	Tool  string   `json:"tool,omitempty"`
	Args  []string `json:"args,omitempty"`
	Level string   `json:"level,omitempty"`
}

// Image configures per-arch images and the multi-arch manifest. With an
// empty Registry the image and manifest stages are skipped.
type Image struct {
	Registry string `json:"registry,omitempty"`
	Engine   string `json:"engine,omitempty"`
	// Publish builds and pushes per-arch images before the manifest.
	Publish *bool `json:"publish,omitempty"`
}

// Install configures the local install of the host binary.
type Install struct {
	Enabled *bool  `json:"enabled,omitempty"`
	Dir     string `json:"dir,omitempty"`
}

// File is a decoded release file.
type File struct {
	Binary           string      `json:"binary"`
	Project          string      `json:"project"`
	PackageName      string      `json:"packageName,omitempty"`
	Architectures    []string    `json:"architectures,omitempty"`
	FileNameTemplate string      `json:"fileNameTemplate,omitempty"`
	Parallel         bool        `json:"parallel,omitempty"`
	Build            Build       `json:"build,omitempty"`
	Compression      Compression `json:"compression,omitempty"`
	Image            Image       `json:"image,omitempty"`
	Install          Install     `json:"install,omitempty"`
}

// Defaults.
const (
	DefaultFileNameTemplate = "{{ .Binary }}-{{ .Arch }}"
	DefaultInstallDir       = "/usr/local/bin"
)

// DefaultArchitectures are built when none are listed.
var DefaultArchitectures = []string{"amd64", "arm64"}

func boolPtr(b bool) *bool { return &b }

// ApplyDefaults fills unset fields.
func (f *File) ApplyDefaults() {
	if f.PackageName == "" {
		f.PackageName = f.Binary
	}
	if len(f.Architectures) == 0 {
		f.Architectures = append([]string(nil), DefaultArchitectures...)
	}
	if f.FileNameTemplate == "" {
		f.FileNameTemplate = DefaultFileNameTemplate
	}
	if f.Build.Mode == "" {
		f.Build.Mode = "cargo"
	}
	if f.Compression.Tool == "" {
		f.Compression.Tool = "upx"
	}
	if f.Image.Publish == nil {
		f.Image.Publish = boolPtr(f.Build.Mode == "image" || f.Image.Registry != "")
	}
	if f.Install.Enabled == nil {
		f.Install.Enabled = boolPtr(true)
	}
	if f.Install.Dir == "" {
		f.Install.Dir = DefaultInstallDir
	}
}

// InstallEnabled reports whether the host binary is installed.
func (f *File) InstallEnabled() bool { return f.Install.Enabled == nil || *f.Install.Enabled }

// PublishImages reports whether per-arch images are pushed.
func (f *File) PublishImages() bool { return f.Image.Publish != nil && *f.Image.Publish }

// Violation is one schema violation.
type Violation struct {
	Location string
	Message  string
}

// ValidationError lists every schema violation found in a release file.
type ValidationError struct {
	Path       string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "release file %s is invalid:", e.Path)
	for _, v := range e.Violations {
		loc := v.Location
		if loc == "" {
			loc = "/"
		}
		fmt.Fprintf(&sb, "\n  %s: %s", loc, v.Message)
	}
	return sb.String()
}

// Unwrap marks the error as a validation failure.
func (e *ValidationError) Unwrap() error { return oerrors.ErrValidation }

// Parse validates and decodes release file content. path is used in
// error messages only.
func Parse(path string, content []byte) (*File, error) {
	sch, err := loadSchema()
	if err != nil {
		return nil, err
	}

	jsonData, err := yaml.YAMLToJSON(content)
	if err != nil {
		return nil, &ValidationError{Path: path, Violations: []Violation{{Message: "not valid YAML: " + err.Error()}}}
	}

	dec := json.NewDecoder(bytes.NewReader(jsonData))
	dec.UseNumber()
	var document any
	if err := dec.Decode(&document); err != nil {
		return nil, fmt.Errorf("decoding release file: %w", err)
	}
	if document == nil {
		return nil, &ValidationError{Path: path, Violations: []Violation{{Message: "file is empty"}}}
	}

	if err := sch.Validate(document); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return nil, &ValidationError{Path: path, Violations: violations(ve)}
		}
		return nil, fmt.Errorf("validating release file: %w", err)
	}

	var f File
	if err := json.Unmarshal(jsonData, &f); err != nil {
		return nil, fmt.Errorf("decoding release file: %w", err)
	}
	f.ApplyDefaults()
	return &f, nil
}

// violations flattens the leaf errors of a schema validation.
func violations(ve *jsonschema.ValidationError) []Violation {
	var out []Violation
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			out = append(out, Violation{Location: e.InstanceLocation, Message: e.Message})
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return out
}

// Load reads and parses the release file at path.
func Load(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: release file %s", oerrors.ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading release file: %w", err)
	}
	return Parse(path, content)
}

// Find returns the release file path under root.
func Find(root string) string {
	return filepath.Join(root, FileName)
}
