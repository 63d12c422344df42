package docker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/splat-orbit/internal/model"
	"github.com/mmr-tortoise/splat-orbit/internal/runner"
)

func newTestLauncher(api *fakeAPI, opts LauncherOptions) *Launcher {
	if opts.Image == "" {
		opts.Image = "node:22-bookworm"
	}
	l := NewLauncher(NewClientWithAPI(api), opts)
	l.now = func() time.Time { return time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC) }
	return l
}

func renderCommand() runner.Command {
	return runner.Command{
		Stage:       "render",
		Name:        "node",
		Args:        []string{"/proj/tools/orbit-render/index.mjs", "/proj/input/sharp.ply", "-o", "/out"},
		Dir:         "/proj/tools/orbit-render",
		Env:         []string{"PATH=/usr/bin", "HOME=/home/me", "NODE_OPTIONS=--max-old-space-size=4096"},
		FailureKind: model.KindRender,
		Mounts:      []string{"/proj", "/proj/input", "/out"},
	}
}

// TestLauncher_Success verifies the create request and the captured
// streams of a container that exits 0.
func TestLauncher_Success(t *testing.T) {
	api := newFakeAPI()
	api.stdout = "rendered 36 frames\n"
	api.stderr = "warning: slow GPU\n"
	l := newTestLauncher(api, LauncherOptions{RunID: "run-1", Network: "none", Mounts: []string{"/cache"}})

	res, err := l.Launch(context.Background(), renderCommand())
	require.NoError(t, err)

	assert.Equal(t, 0, res.ExitCode)
	assert.False(t, res.TimedOut)
	assert.Equal(t, "rendered 36 frames\n", res.Stdout)
	assert.Equal(t, "warning: slow GPU\n", res.Stderr)

	require.Len(t, api.created, 1)
	call := api.created[0]
	assert.True(t, strings.HasPrefix(call.Name, "splat-orbit-render-"), call.Name)
	assert.Equal(t, "node:22-bookworm", call.Config.Image)
	assert.Equal(t, []string{"node", "/proj/tools/orbit-render/index.mjs", "/proj/input/sharp.ply", "-o", "/out"},
		[]string(call.Config.Cmd))
	assert.Equal(t, "/proj/tools/orbit-render", call.Config.WorkingDir)
	assert.Contains(t, call.Config.Env, "NODE_OPTIONS=--max-old-space-size=4096")
	assert.NotContains(t, call.Config.Env, "PATH=/usr/bin")
	assert.NotContains(t, call.Config.Env, "HOME=/home/me")

	assert.Equal(t, map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelRunID:     "run-1",
		LabelStage:     "render",
		LabelStartedAt: "2026-10-17T09:30:00Z",
	}, call.Config.Labels)

	var targets []string
	for _, m := range call.Host.Mounts {
		assert.Equal(t, mount.TypeBind, m.Type)
		assert.Equal(t, m.Source, m.Target)
		targets = append(targets, m.Target)
	}
	assert.Equal(t, []string{"/proj/tools/orbit-render", "/proj", "/proj/input", "/out", "/cache"}, targets)
	assert.Equal(t, container.NetworkMode("none"), call.Host.NetworkMode)
	require.NotNil(t, call.Host.Init)
	assert.True(t, *call.Host.Init)

	assert.Equal(t, []string{"id-" + call.Name}, api.removed, "container is removed after the run")
}

// TestLauncher_InheritsHostEnvironment verifies that a Command without
// an explicit environment gets the filtered environment of this process.
func TestLauncher_InheritsHostEnvironment(t *testing.T) {
	t.Setenv("NODE_OPTIONS", "--max-old-space-size=4096")
	t.Setenv("SHELL", "/bin/zsh")
	api := newFakeAPI()
	l := newTestLauncher(api, LauncherOptions{})

	cmd := renderCommand()
	cmd.Env = nil
	_, err := l.Launch(context.Background(), cmd)
	require.NoError(t, err)

	require.Len(t, api.created, 1)
	env := api.created[0].Config.Env
	assert.Contains(t, env, "NODE_OPTIONS=--max-old-space-size=4096")
	assert.NotContains(t, env, "SHELL=/bin/zsh")
	for _, kv := range env {
		assert.False(t, strings.HasPrefix(kv, "PATH="), "host PATH leaked: %s", kv)
	}
}

// TestLauncher_NonZeroExit verifies that runner.Exec classifies a failing
// container exactly like a failing local process.
func TestLauncher_NonZeroExit(t *testing.T) {
	api := newFakeAPI()
	api.exitCode = 2
	api.stderr = "boom\n"
	l := newTestLauncher(api, LauncherOptions{})

	res, err := runner.Exec(context.Background(), l, renderCommand())
	require.Error(t, err)
	require.NotNil(t, res)

	var pe *model.PipelineError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, model.KindRender, pe.Kind)
	assert.Equal(t, 2, pe.ExitCode)
	assert.Equal(t, "boom", pe.Stderr)
	assert.Len(t, api.removed, 1)
}

// TestLauncher_Timeout verifies that a container outliving its bound is
// killed, removed and reported as a timeout.
func TestLauncher_Timeout(t *testing.T) {
	api := newFakeAPI()
	api.block = true
	l := newTestLauncher(api, LauncherOptions{})

	cmd := renderCommand()
	cmd.Timeout = 50 * time.Millisecond
	_, err := runner.Exec(context.Background(), l, cmd)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindTimeout))

	assert.Len(t, api.killed, 1)
	assert.Equal(t, api.killed, api.removed)
}

// TestLauncher_CreateFails verifies that an unreachable daemon or missing
// image surfaces as an environment error.
func TestLauncher_CreateFails(t *testing.T) {
	api := newFakeAPI()
	api.createErr = errors.New("Cannot connect to the Docker daemon")
	l := newTestLauncher(api, LauncherOptions{Image: "missing:latest"})

	_, err := runner.Exec(context.Background(), l, renderCommand())
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindEnvironment))
	assert.Contains(t, err.Error(), "missing:latest")
	assert.Empty(t, api.removed)
}

// TestLauncher_StartFails verifies the created container is still removed.
func TestLauncher_StartFails(t *testing.T) {
	api := newFakeAPI()
	api.startErr = errors.New("exec format error")
	l := newTestLauncher(api, LauncherOptions{})

	_, err := l.Launch(context.Background(), renderCommand())
	require.Error(t, err)
	assert.Len(t, api.removed, 1)
}

func TestNewLauncher_GeneratesRunID(t *testing.T) {
	a := NewLauncher(NewClientWithAPI(newFakeAPI()), LauncherOptions{})
	b := NewLauncher(NewClientWithAPI(newFakeAPI()), LauncherOptions{})
	assert.NotEmpty(t, a.RunID())
	assert.NotEqual(t, a.RunID(), b.RunID())

	c := NewLauncher(NewClientWithAPI(newFakeAPI()), LauncherOptions{RunID: "fixed"})
	assert.Equal(t, "fixed", c.RunID())
}

func TestBindMounts(t *testing.T) {
	got := bindMounts("/a", []string{"/b", "", "/a"}, []string{"/b", "/c"})
	require.Len(t, got, 3)
	assert.Equal(t, mount.Mount{Type: mount.TypeBind, Source: "/a", Target: "/a"}, got[0])
	assert.Equal(t, "/b", got[1].Source)
	assert.Equal(t, "/c", got[2].Source)

	assert.Empty(t, bindMounts(""))
}

func TestContainerEnv(t *testing.T) {
	assert.Equal(t,
		[]string{"LANG=C.UTF-8", "DEBUG=1"},
		containerEnv([]string{"PATH=/bin", "LANG=C.UTF-8", "HOME=/root", "garbage", "DEBUG=1", "TMPDIR=/tmp"}),
	)
}

func TestContainerName(t *testing.T) {
	a, b := containerName("install"), containerName("install")
	assert.True(t, strings.HasPrefix(a, "splat-orbit-install-"))
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(containerName(""), "splat-orbit-run-"))
}

func TestClient_Ping(t *testing.T) {
	api := newFakeAPI()
	c := NewClientWithAPI(api)
	require.NoError(t, c.Ping(context.Background()))

	api.pingErr = errors.New("connection refused")
	err := c.Ping(context.Background())
	require.Error(t, err)
	var pe *model.PipelineError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, model.KindEnvironment, pe.Kind)
	assert.Equal(t, "docker", pe.Stage)
	assert.Contains(t, err.Error(), "connection refused")

	assert.NoError(t, c.Close())
}
