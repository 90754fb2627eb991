package build

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/puterize/glabu/internal/arch"
	"github.com/puterize/glabu/internal/output"
	"github.com/puterize/glabu/internal/runner"
)

// DockerClient defines the subset of Docker SDK methods used for extraction.
// This interface enables mocking the Docker client in tests.
type DockerClient interface {
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig,
		networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	CopyFromContainer(ctx context.Context, containerID, srcPath string) (io.ReadCloser, container.PathStat, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
}

// NewDockerClient constructs a Docker SDK client using environment defaults
// (DOCKER_HOST may point at a podman socket).
func NewDockerClient() (DockerClient, error) {
	return client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
}

// SDKExtractor extracts through the engine API: create a stopped container,
// copy the file out as a tar stream, remove the container.
type SDKExtractor struct {
	Client DockerClient
}

// Extract implements Extractor.
func (e *SDKExtractor) Extract(ctx context.Context, image string, a arch.Arch, srcPath, dest string) (err error) {
	created, err := e.Client.ContainerCreate(ctx,
		&container.Config{Image: image, Entrypoint: []string{srcPath}},
		nil, nil,
		&ocispec.Platform{OS: "linux", Architecture: a.String()},
		"")
	if err != nil {
		return fmt.Errorf("creating container: %w", err)
	}
	defer func() {
		rmErr := e.Client.ContainerRemove(context.WithoutCancel(ctx), created.ID, container.RemoveOptions{RemoveVolumes: true, Force: true})
		if rmErr != nil {
			output.Warn("could not remove extraction container", "id", created.ID, "err", rmErr)
		}
	}()

	rc, _, err := e.Client.CopyFromContainer(ctx, created.ID, srcPath)
	if err != nil {
		return fmt.Errorf("copying from container: %w", err)
	}
	defer rc.Close()

	return extractTarFile(rc, path.Base(srcPath), dest)
}

// CLIExtractor extracts with the engine CLI, mirroring
// `podman create`, `podman cp` and `podman rm -v`.
type CLIExtractor struct {
	Runner runner.CommandRunner
	// Engine is the CLI binary name, podman or docker.
	Engine string
}

// Extract implements Extractor.
func (e *CLIExtractor) Extract(ctx context.Context, image string, a arch.Arch, srcPath, dest string) error {
	bin := e.Engine
	if bin == "" {
		bin = "podman"
	}
	out, err := e.Runner.RunOutput(ctx, "", bin, "create", "--platform", a.Platform(), image)
	if err != nil {
		return fmt.Errorf("creating container: %w", err)
	}
	id := lastLine(string(out))
	if id == "" {
		return fmt.Errorf("%s create returned no container id", bin)
	}
	defer func() {
		if _, rmErr := e.Runner.RunOutput(context.WithoutCancel(ctx), "", bin, "rm", "-v", id); rmErr != nil {
			output.Warn("could not remove extraction container", "id", id, "err", rmErr)
		}
	}()

	if _, err := e.Runner.RunOutput(ctx, "", bin, "cp", id+":"+srcPath, dest); err != nil {
		return fmt.Errorf("copying from container: %w", err)
	}
	return nil
}

// lastLine returns the last non-empty line; engines may print pull
// progress before the container id.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
