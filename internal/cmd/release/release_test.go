package release

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/puterize/glabu/internal/arch"
	"github.com/puterize/glabu/internal/cmdtypes"
	"github.com/puterize/glabu/internal/config"
	oerrors "github.com/puterize/glabu/internal/errors"
	"github.com/puterize/glabu/internal/registry"
	"github.com/puterize/glabu/internal/runner"
	"github.com/puterize/glabu/internal/testutil"
)

type memoryRegistry struct {
	mu      sync.Mutex
	uploads []registry.UploadDescriptor
	err     error
}

func (m *memoryRegistry) UploadPackage(_ context.Context, d registry.UploadDescriptor) (registry.UploadResult, error) {
	if m.err != nil {
		return registry.UploadResult{}, m.err
	}
	size, sum, err := registry.Digest(d.FilePath)
	if err != nil {
		return registry.UploadResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads = append(m.uploads, d)
	return registry.UploadResult{Descriptor: d, Size: size, SHA256: sum}, nil
}

func (m *memoryRegistry) fileNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, d := range m.uploads {
		out = append(out, d.FileName)
	}
	return out
}

// toolchain fakes git, cargo, upx and podman. cargo writes an ELF binary
// at the expected target path; upx appends the UPX header.
func toolchain(t *testing.T) *runner.Fake {
	t.Helper()
	fake := runner.NewFake()
	fake.On("git rev-parse --short HEAD", runner.Response{Output: []byte("abc1234\n")})
	fake.On("podman manifest exists", runner.Response{Err: runner.ExitStatus(1)})
	fake.OnCall = func(c runner.Call) {
		switch c.Name {
		case "cargo":
			triple := c.Args[3]
			path := filepath.Join(c.Dir, "target", triple, "release", "prog")
			if err := testutil.WriteELF(path, []byte(triple)); err != nil {
				t.Error(err)
			}
		case "upx":
			path := c.Args[len(c.Args)-1]
			data, err := os.ReadFile(path)
			if err != nil {
				t.Error(err)
				return
			}
			if err := os.WriteFile(path, append(data, []byte("UPX!")...), 0o755); err != nil {
				t.Error(err)
			}
		}
	}
	return fake
}

type harness struct {
	root   string
	binDir string
	runner *runner.Fake
	reg    *memoryRegistry
	gc     *cmdtypes.GlobalConfig
}

func newHarness(t *testing.T, releaseFile string) *harness {
	t.Helper()
	h := &harness{
		root:   t.TempDir(),
		binDir: filepath.Join(t.TempDir(), "bin"),
		runner: toolchain(t),
		reg:    &memoryRegistry{},
		gc: &cmdtypes.GlobalConfig{Resolved: &config.ResolvedConfig{
			Engine: config.ResolvedField{Key: "engine", Value: "podman", Source: config.SourceDefault},
			Output: "yaml",
		}},
	}
	content := strings.ReplaceAll(releaseFile, "$BIN", h.binDir)
	testutil.WriteReleaseFile(t, h.root, content)
	return h
}

func (h *harness) command() *cobra.Command {
	return newReleaseCmd(h.gc, &environment{
		runner: h.runner,
		registry: func(context.Context, *cmdtypes.GlobalConfig) (registry.PackageRegistry, error) {
			return h.reg, nil
		},
	})
}

func (h *harness) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := h.command()
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetErr(&bytes.Buffer{})
	c.SetArgs(append([]string{"--root", h.root, "--host-arch", "x86_64"}, args...))
	err := c.Execute()
	return out.String(), err
}

func (h *harness) lines(prefix string) []string {
	var out []string
	for _, l := range h.runner.Lines() {
		if strings.HasPrefix(l, prefix) {
			out = append(out, l)
		}
	}
	return out
}

const cargoRelease = `binary: prog
project: "42"
architectures: [amd64, arm64]
image:
  registry: registry.example.com/ns
install:
  dir: $BIN
`

func TestRelease_EndToEnd(t *testing.T) {
	h := newHarness(t, cargoRelease)

	out, err := h.execute(t)
	require.NoError(t, err)

	assert.Equal(t, []string{"prog-amd64", "prog-arm64"}, h.reg.fileNames())
	assert.Len(t, h.lines("cargo build --release --target"), 2)
	assert.Len(t, h.lines("upx"), 2)

	// Every manifest member is built and pushed before the manifest exists.
	root := "registry.example.com/ns:abc1234"
	dockerfile := filepath.Join(h.root, "Dockerfile")
	assert.Equal(t, []string{
		"podman --version",
		"podman build --platform linux/amd64 -t " + root + "-amd64 -f " + dockerfile + " " + h.root,
		"podman push " + root + "-amd64",
		"podman build --platform linux/arm64 -t " + root + "-arm64 -f " + dockerfile + " " + h.root,
		"podman push " + root + "-arm64",
		"podman manifest exists " + root,
		"podman manifest create " + root,
		"podman manifest add " + root + " " + root + "-amd64",
		"podman manifest add " + root + " " + root + "-arm64",
		"podman manifest push " + root,
	}, h.lines("podman"))

	installed := filepath.Join(h.binDir, "prog")
	data, err := os.ReadFile(installed)
	require.NoError(t, err)
	assert.Contains(t, string(data), "x86_64-unknown-linux-musl")

	var result map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &result))
	assert.Equal(t, "abc1234", result["version"])
	assert.Equal(t, installed, result["installed"])
}

func TestRelease_ReRunSameCommit(t *testing.T) {
	h := newHarness(t, cargoRelease)
	_, err := h.execute(t)
	require.NoError(t, err)

	// The manifest now exists locally.
	h.runner.On("podman manifest exists", runner.Response{})
	_, err = h.execute(t)
	require.NoError(t, err)

	assert.Len(t, h.lines("podman manifest rm"), 1)
	assert.Len(t, h.lines("podman manifest push"), 2)
}

func TestRelease_PublishDisabledSkipsManifest(t *testing.T) {
	h := newHarness(t, strings.Replace(cargoRelease, "image:\n", "image:\n  publish: false\n", 1))

	_, err := h.execute(t)
	require.NoError(t, err)

	assert.Equal(t, []string{"prog-amd64", "prog-arm64"}, h.reg.fileNames())
	assert.Empty(t, h.lines("podman"))
}

func TestRelease_EngineUnavailable(t *testing.T) {
	h := newHarness(t, cargoRelease)
	h.runner.On("podman --version", runner.Response{Err: runner.ExitStatus(127)})

	_, err := h.execute(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "podman is not installed or not working")
	assert.Equal(t, []string{"podman --version"}, h.lines("podman"))
	assert.Empty(t, h.lines("cargo"))
	assert.Empty(t, h.reg.fileNames())
}

func TestRelease_UploadFailure(t *testing.T) {
	h := newHarness(t, cargoRelease)
	h.reg.err = oerrors.ErrPermission

	_, err := h.execute(t)
	require.Error(t, err)
	assert.Equal(t, oerrors.ExitPermissionDenied, oerrors.ExitCodeFromError(err))
	assert.Empty(t, h.lines("podman manifest"))
	assert.NoFileExists(t, filepath.Join(h.binDir, "prog"))
}

func TestRelease_FlagsOverrideReleaseFile(t *testing.T) {
	h := newHarness(t, cargoRelease)

	_, err := h.execute(t, "--arch", "arm64", "--skip-images", "--no-install")
	require.NoError(t, err)

	assert.Equal(t, []string{"prog-arm64"}, h.reg.fileNames())
	assert.Empty(t, h.lines("podman"))
	assert.NoFileExists(t, filepath.Join(h.binDir, "prog"))
}

func TestRelease_InvalidReleaseFile(t *testing.T) {
	h := newHarness(t, "binary: prog\n")

	_, err := h.execute(t)
	require.Error(t, err)
	assert.Equal(t, oerrors.ExitValidationError, oerrors.ExitCodeFromError(err))
	assert.Empty(t, h.runner.Lines())
}

func TestRelease_MissingReleaseFile(t *testing.T) {
	h := newHarness(t, cargoRelease)
	require.NoError(t, os.Remove(filepath.Join(h.root, ".glabu.yaml")))

	_, err := h.execute(t)
	require.Error(t, err)
	assert.Equal(t, oerrors.ExitNotFound, oerrors.ExitCodeFromError(err))
}

func TestRelease_ZstdArtifacts(t *testing.T) {
	h := newHarness(t, cargoRelease+"compression:\n  tool: zstd\n  level: fastest\n")

	_, err := h.execute(t, "--skip-images")
	require.NoError(t, err)

	require.Len(t, h.reg.uploads, 2)
	for _, d := range h.reg.uploads {
		assert.True(t, strings.HasSuffix(d.FilePath, ".zst"), d.FilePath)
	}
	assert.Empty(t, h.lines("upx"))

	// The installed binary is the uncompressed executable.
	data, err := os.ReadFile(filepath.Join(h.binDir, "prog"))
	require.NoError(t, err)
	assert.True(t, testutil.IsELF(data))
}

func TestRelease_ImageMode(t *testing.T) {
	h := newHarness(t, `binary: prog
project: "42"
architectures: [amd64]
build:
  mode: image
compression:
  tool: none
image:
  registry: registry.example.com/ns
install:
  enabled: false
`)
	h.runner.OnCall = func(c runner.Call) {
		if c.Name == "podman" && len(c.Args) > 0 && c.Args[0] == "cp" {
			dest := c.Args[len(c.Args)-1]
			if err := testutil.WriteELF(dest, nil); err != nil {
				t.Error(err)
			}
		}
	}
	h.runner.On("podman create", runner.Response{Output: []byte("c0ffee\n")})

	_, err := h.execute(t)
	require.NoError(t, err)

	tag := "registry.example.com/ns:abc1234-amd64"
	assert.Len(t, h.lines("git rev-parse"), 1, "the version is resolved once")
	assert.Equal(t, []string{"podman build --platform linux/amd64 -t " + tag + " -f " +
		filepath.Join(h.root, "Dockerfile") + " " + h.root}, h.lines("podman build"))
	assert.Equal(t, []string{"podman create --platform linux/amd64 " + tag}, h.lines("podman create"))
	assert.Equal(t, []string{"podman rm -v c0ffee"}, h.lines("podman rm"))
	// Image mode publishes the image it built without rebuilding it.
	assert.Equal(t, []string{"podman push " + tag}, h.lines("podman push"))
	assert.Equal(t, []string{"prog-amd64"}, h.reg.fileNames())
}

func TestReleasePlan(t *testing.T) {
	h := newHarness(t, cargoRelease)

	out, err := h.execute(t, "plan")
	require.NoError(t, err)

	assert.Empty(t, h.reg.fileNames())
	assert.Empty(t, h.lines("cargo"))
	assert.Empty(t, h.lines("podman"))

	var plan struct {
		Version string `yaml:"version"`
		Targets []struct {
			Arch    string `yaml:"arch"`
			Image   string `yaml:"image"`
			Install bool   `yaml:"install"`
			Upload  struct {
				FileName string `yaml:"fileName"`
				FilePath string `yaml:"filePath"`
			} `yaml:"upload"`
		} `yaml:"targets"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &plan))
	assert.Equal(t, "abc1234", plan.Version)
	require.Len(t, plan.Targets, 2)
	assert.True(t, plan.Targets[0].Install)
	assert.False(t, plan.Targets[1].Install)
	assert.Equal(t, "prog-arm64", plan.Targets[1].Upload.FileName)
	assert.Equal(t, filepath.Join(h.root, "target", "aarch64-unknown-linux-musl", "release", "prog"), plan.Targets[1].Upload.FilePath)
}

func TestEngineKind(t *testing.T) {
	h := newHarness(t, cargoRelease)
	_, file, err := loadReleaseFile(&options{root: h.root})
	require.NoError(t, err)

	kind, err := engineKind(h.gc, file)
	require.NoError(t, err)
	assert.Equal(t, "podman", string(kind))

	h.gc.Resolved.Engine = config.ResolvedField{Key: "engine", Value: "docker", Source: config.SourceConfig}
	kind, err = engineKind(h.gc, file)
	require.NoError(t, err)
	assert.Equal(t, "docker", string(kind), "global config applies when the release file names no engine")

	file.Image.Engine = "podman"
	kind, err = engineKind(h.gc, file)
	require.NoError(t, err)
	assert.Equal(t, "podman", string(kind), "release file beats global config")

	h.gc.Resolved.Engine = config.ResolvedField{Key: "engine", Value: "docker", Source: config.SourceFlag}
	kind, err = engineKind(h.gc, file)
	require.NoError(t, err)
	assert.Equal(t, "docker", string(kind), "flag beats release file")
}

func TestDefaultHostArch(t *testing.T) {
	host, err := arch.Host()
	if err != nil {
		assert.Equal(t, runtime.GOARCH, defaultHostArch())
		return
	}
	assert.Equal(t, host.String(), defaultHostArch())
	assert.True(t, arch.Matches(host, defaultHostArch()))
}
