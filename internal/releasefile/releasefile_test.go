package releasefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/puterize/glabu/internal/errors"
)

func TestParse_MinimalAppliesDefaults(t *testing.T) {
	f, err := Parse(FileName, []byte("binary: glabu\nproject: puterize/prebuilt\n"))
	require.NoError(t, err)

	assert.Equal(t, "glabu", f.Binary)
	assert.Equal(t, "glabu", f.PackageName)
	assert.Equal(t, []string{"amd64", "arm64"}, f.Architectures)
	assert.Equal(t, DefaultFileNameTemplate, f.FileNameTemplate)
	assert.Equal(t, "cargo", f.Build.Mode)
	assert.Equal(t, "upx", f.Compression.Tool)
	assert.Empty(t, f.Image.Engine, "engine falls back to the global config")
	assert.False(t, f.PublishImages())
	assert.True(t, f.InstallEnabled())
	assert.Equal(t, DefaultInstallDir, f.Install.Dir)
	assert.False(t, f.Parallel)
}

func TestParse_RegistryPublishesByDefault(t *testing.T) {
	f, err := Parse(FileName, []byte("binary: glabu\nproject: p\nimage:\n  registry: registry.example.com/ns\n"))
	require.NoError(t, err)
	assert.Equal(t, "cargo", f.Build.Mode)
	assert.True(t, f.PublishImages(), "manifest members must be pushed")

	f, err = Parse(FileName, []byte("binary: glabu\nproject: p\nimage:\n  registry: registry.example.com/ns\n  publish: false\n"))
	require.NoError(t, err)
	assert.False(t, f.PublishImages())
}

func TestParse_Full(t *testing.T) {
	content := `
binary: glabu
project: puterize/prebuilt
packageName: glabu-cli
architectures: [x86_64, aarch64]
fileNameTemplate: "{{ .Binary }}-{{ .Arch | upper }}"
parallel: true
build:
  mode: image
  dockerfile: glabu/Dockerfile
  context: ./glabu
  imagePath: /app/prog
compression:
  tool: zstd
  level: better
image:
  registry: registry.gitlab.com/puterize/glabu
  engine: docker
install:
  enabled: false
  dir: ~/.local/bin
`
	f, err := Parse(FileName, []byte(content))
	require.NoError(t, err)

	assert.Equal(t, "glabu-cli", f.PackageName)
	assert.Equal(t, []string{"x86_64", "aarch64"}, f.Architectures)
	assert.True(t, f.Parallel)
	assert.Equal(t, "image", f.Build.Mode)
	assert.Equal(t, "/app/prog", f.Build.ImagePath)
	assert.Equal(t, "zstd", f.Compression.Tool)
	assert.Equal(t, "registry.gitlab.com/puterize/glabu", f.Image.Registry)
	assert.True(t, f.PublishImages(), "image mode publishes by default")
	assert.False(t, f.InstallEnabled())
	assert.Equal(t, "~/.local/bin", f.Install.Dir)
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		location string
	}{
		{"missing project", "binary: glabu\n", ""},
		{"unknown arch", "binary: glabu\nproject: p\narchitectures: [riscv64]\n", "/architectures/0"},
		{"unknown compressor", "binary: glabu\nproject: p\ncompression:\n  tool: gzip\n", "/compression/tool"},
		{"unknown key", "binary: glabu\nproject: p\nkubeconfig: x\n", ""},
		{"duplicate arch", "binary: glabu\nproject: p\narchitectures: [amd64, amd64]\n", "/architectures"},
		{"relative image path", "binary: glabu\nproject: p\nbuild:\n  imagePath: app/prog\n", "/build/imagePath"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(FileName, []byte(tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, oerrors.ErrValidation)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			require.NotEmpty(t, ve.Violations)
			if tt.location != "" {
				var locations []string
				for _, v := range ve.Violations {
					locations = append(locations, v.Location)
				}
				assert.Contains(t, locations, tt.location)
			}
		})
	}
}

func TestParse_InvalidYAMLAndEmpty(t *testing.T) {
	_, err := Parse(FileName, []byte("binary: [unclosed"))
	assert.ErrorIs(t, err, oerrors.ErrValidation)

	_, err = Parse(FileName, []byte(""))
	assert.ErrorIs(t, err, oerrors.ErrValidation)
}

func TestLoad(t *testing.T) {
	root := t.TempDir()

	_, err := Load(Find(root))
	assert.ErrorIs(t, err, oerrors.ErrNotFound)

	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte("binary: glabu\nproject: '42'\n"), 0o644))
	f, err := Load(Find(root))
	require.NoError(t, err)
	assert.Equal(t, "42", f.Project)
}
