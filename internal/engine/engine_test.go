package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/puterize/glabu/internal/runner"
)

const tagRoot = "registry.gitlab.com/puterize/glabu:a1b2c3d"

func TestParseKind(t *testing.T) {
	k, err := ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, Podman, k)

	k, err = ParseKind(" Docker ")
	require.NoError(t, err)
	assert.Equal(t, Docker, k)

	_, err = ParseKind("lxc")
	assert.Error(t, err)
}

func TestPodman_BuildAndPush(t *testing.T) {
	fake := runner.NewFake()
	e := New(Podman, fake, "/repo")

	require.NoError(t, e.BuildImage(context.Background(), BuildSpec{
		Tag:        tagRoot + "-arm64",
		Platform:   "linux/arm64",
		Dockerfile: "glabu/Dockerfile",
		Context:    "./glabu",
	}))
	require.NoError(t, e.PushImage(context.Background(), tagRoot+"-arm64"))

	assert.Equal(t, []string{
		"podman build --platform linux/arm64 -t " + tagRoot + "-arm64 -f glabu/Dockerfile ./glabu",
		"podman push " + tagRoot + "-arm64",
	}, fake.Lines())
	assert.Equal(t, "/repo", fake.Calls()[0].Dir)
}

func TestPodman_ManifestLifecycle(t *testing.T) {
	fake := runner.NewFake()
	e := New(Podman, fake, "")
	ctx := context.Background()

	exists, err := e.ManifestExists(ctx, tagRoot)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, e.ManifestRemove(ctx, tagRoot))
	require.NoError(t, e.ManifestCreate(ctx, tagRoot))
	require.NoError(t, e.ManifestAdd(ctx, tagRoot, tagRoot+"-amd64"))
	require.NoError(t, e.ManifestPush(ctx, tagRoot))

	assert.Equal(t, []string{
		"podman manifest exists " + tagRoot,
		"podman manifest rm " + tagRoot,
		"podman manifest create " + tagRoot,
		"podman manifest add " + tagRoot + " " + tagRoot + "-amd64",
		"podman manifest push " + tagRoot,
	}, fake.Lines())
}

func TestManifestExists_ExitCodes(t *testing.T) {
	missing := runner.NewFake().On("podman manifest exists", runner.Response{Err: runner.ExitStatus(1)})
	exists, err := New(Podman, missing, "").ManifestExists(context.Background(), tagRoot)
	require.NoError(t, err)
	assert.False(t, exists)

	broken := runner.NewFake().On("podman manifest exists", runner.Response{Err: runner.ExitStatus(125)})
	_, err = New(Podman, broken, "").ManifestExists(context.Background(), tagRoot)
	assert.Error(t, err)
}

func TestManifestPush_Failure(t *testing.T) {
	fake := runner.NewFake().On("podman manifest push", runner.Response{Output: []byte("unauthorized"), Err: errors.New("exit status 125")})
	err := New(Podman, fake, "").ManifestPush(context.Background(), tagRoot)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")
}

func TestDocker_DefersManifestCreation(t *testing.T) {
	fake := runner.NewFake().On("docker manifest inspect", runner.Response{Err: runner.ExitStatus(1)})
	e := New(Docker, fake, "")
	ctx := context.Background()

	exists, err := e.ManifestExists(ctx, tagRoot)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, e.ManifestCreate(ctx, tagRoot))
	exists, err = e.ManifestExists(ctx, tagRoot)
	require.NoError(t, err)
	assert.True(t, exists, "pending list counts as existing")

	require.NoError(t, e.ManifestRemove(ctx, tagRoot))
	require.NoError(t, e.ManifestCreate(ctx, tagRoot))
	require.NoError(t, e.ManifestAdd(ctx, tagRoot, tagRoot+"-amd64"))
	require.NoError(t, e.ManifestAdd(ctx, tagRoot, tagRoot+"-arm64"))
	require.NoError(t, e.ManifestPush(ctx, tagRoot))

	assert.Equal(t, []string{
		"docker manifest inspect " + tagRoot,
		"docker manifest create --amend " + tagRoot + " " + tagRoot + "-amd64 " + tagRoot + "-arm64",
		"docker manifest push " + tagRoot,
	}, fake.Lines())
}

func TestDocker_AddWithoutCreate(t *testing.T) {
	e := New(Docker, runner.NewFake(), "")
	assert.Error(t, e.ManifestAdd(context.Background(), tagRoot, tagRoot+"-amd64"))
	assert.Error(t, e.ManifestPush(context.Background(), tagRoot))
}

func TestPublisher(t *testing.T) {
	fake := runner.NewFake()
	p := &Publisher{Engine: New(Podman, fake, ""), Build: true, Dockerfile: "Dockerfile", Context: "."}
	require.NoError(t, p.PublishImage(context.Background(), tagRoot+"-amd64", "linux/amd64"))
	assert.Equal(t, []string{
		"podman build --platform linux/amd64 -t " + tagRoot + "-amd64 -f Dockerfile .",
		"podman push " + tagRoot + "-amd64",
	}, fake.Lines())

	pushOnly := runner.NewFake()
	p = &Publisher{Engine: New(Podman, pushOnly, "")}
	require.NoError(t, p.PublishImage(context.Background(), tagRoot+"-arm64", "linux/arm64"))
	assert.Equal(t, []string{"podman push " + tagRoot + "-arm64"}, pushOnly.Lines())
}

func TestAvailable(t *testing.T) {
	fake := runner.NewFake()
	require.NoError(t, New(Docker, fake, "/repo").Available(context.Background()))
	assert.Equal(t, []string{"docker --version"}, fake.Lines())

	fake.On("podman --version", runner.Response{Err: runner.ExitStatus(127)})
	err := New(Podman, fake, "/repo").Available(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "podman is not installed")
}
