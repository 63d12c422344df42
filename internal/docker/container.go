package docker

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mmr-tortoise/splat-orbit/internal/runner"
)

// killGracePeriod bounds how long Launch waits for the daemon to report
// a killed container as stopped.
const killGracePeriod = 10 * time.Second

// hostOnlyEnv lists variables that describe the host and are not
// forwarded into a container.
var hostOnlyEnv = map[string]bool{
	"PATH":   true,
	"HOME":   true,
	"PWD":    true,
	"OLDPWD": true,
	"SHELL":  true,
	"TMPDIR": true,
	"USER":   true,
}

// LauncherOptions configures the container launcher.
type LauncherOptions struct {
	// Image runs every command. It must already be present locally; it is
	// never pulled.
	Image string

	// Network is the container network mode. Empty means the daemon
	// default.
	Network string

	// Mounts are extra absolute host paths bind-mounted into every
	// container, in addition to each Command's Dir and Mounts.
	Mounts []string

	// RunID labels all containers of this invocation. Empty generates one.
	RunID string
}

// Launcher implements runner.Launcher by running each Command in a
// throw-away container. Host paths are bind-mounted at the same absolute
// path, so arguments built for the local launcher work unchanged.
type Launcher struct {
	client *Client
	opts   LauncherOptions
	now    func() time.Time
}

// NewLauncher creates a container Launcher on top of c.
func NewLauncher(c *Client, opts LauncherOptions) *Launcher {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	return &Launcher{client: c, opts: opts, now: time.Now}
}

// RunID returns the run id stamped on every container.
func (l *Launcher) RunID() string {
	return l.opts.RunID
}

// Launch implements runner.Launcher.
//
// Failing to create or start the container is a start error. When ctx ends
// first the container is killed and the Result has TimedOut set. The
// container is always removed before Launch returns.
func (l *Launcher) Launch(ctx context.Context, cmd runner.Command) (*runner.Result, error) {
	api := l.client.Inner()
	// Cleanup calls must still reach the daemon after ctx has ended.
	bg := context.WithoutCancel(ctx)

	cfg, hostCfg := l.containerConfig(cmd)
	name := containerName(cmd.Stage)

	created, err := api.ContainerCreate(ctx, cfg, hostCfg, nil, nil, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create container from image %q: %w", l.opts.Image, err)
	}
	id := created.ID
	defer l.remove(bg, id)

	// Subscribe before starting so a fast exit is not missed.
	waitCh, waitErrCh := api.ContainerWait(bg, id, container.WaitConditionNextExit)

	start := l.now()
	if err := api.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("failed to start container %s: %w", name, err)
	}

	log.Debug().
		Str("stage", cmd.Stage).
		Str("container", name).
		Str("image", l.opts.Image).
		Msg("Container started")

	res := &runner.Result{ExitCode: -1}
	select {
	case resp := <-waitCh:
		res.ExitCode = int(resp.StatusCode)
		if resp.Error != nil && resp.Error.Message != "" {
			log.Warn().Str("container", name).Str("error", resp.Error.Message).Msg("Container wait reported an error")
		}
	case err := <-waitErrCh:
		return nil, fmt.Errorf("lost container %s: %w", name, err)
	case <-ctx.Done():
		res.TimedOut = true
		l.kill(bg, id, waitCh, waitErrCh)
	}
	res.Elapsed = l.now().Sub(start)

	res.Stdout, res.Stderr = l.logs(bg, id)
	return res, nil
}

// containerConfig translates cmd into the create request.
func (l *Launcher) containerConfig(cmd runner.Command) (*container.Config, *container.HostConfig) {
	hostEnv := cmd.Env
	if hostEnv == nil {
		hostEnv = os.Environ()
	}
	env := containerEnv(hostEnv)
	user := hostUser()
	if user != "" {
		env = append(env, "HOME=/tmp")
	}

	cfg := &container.Config{
		Image:      l.opts.Image,
		Cmd:        append([]string{cmd.Name}, cmd.Args...),
		WorkingDir: cmd.Dir,
		Env:        env,
		User:       user,
		Labels: BuildLabels(RunLabels{
			RunID:     l.opts.RunID,
			Stage:     cmd.Stage,
			StartedAt: l.now(),
		}),
	}

	initProcess := true
	hostCfg := &container.HostConfig{
		Mounts: bindMounts(cmd.Dir, cmd.Mounts, l.opts.Mounts),
		Init:   &initProcess,
	}
	if l.opts.Network != "" {
		hostCfg.NetworkMode = container.NetworkMode(l.opts.Network)
	}
	return cfg, hostCfg
}

// kill stops a running container and waits up to killGracePeriod for the
// daemon to confirm.
func (l *Launcher) kill(ctx context.Context, id string, waitCh <-chan container.WaitResponse, errCh <-chan error) {
	if err := l.client.Inner().ContainerKill(ctx, id, "KILL"); err != nil {
		log.Warn().Err(err).Str("container", id).Msg("Failed to kill container")
		return
	}
	select {
	case <-waitCh:
	case <-errCh:
	case <-time.After(killGracePeriod):
		log.Warn().Str("container", id).Msg("Container did not stop after kill")
	}
}

// logs returns the demultiplexed stdout and stderr of a container.
func (l *Launcher) logs(ctx context.Context, id string) (string, string) {
	rc, err := l.client.Inner().ContainerLogs(ctx, id, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		log.Warn().Err(err).Str("container", id).Msg("Failed to read container logs")
		return "", ""
	}
	defer func() { _ = rc.Close() }()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, rc); err != nil {
		log.Warn().Err(err).Str("container", id).Msg("Container logs truncated")
	}
	return stdout.String(), stderr.String()
}

func (l *Launcher) remove(ctx context.Context, id string) {
	if err := l.client.Inner().ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		log.Warn().Err(err).Str("container", id).Msg("Failed to remove container; run 'splat-orbit prune'")
	}
}

// containerName returns a unique, daemon-valid name for a stage container.
func containerName(stage string) string {
	if stage == "" {
		stage = "run"
	}
	return "splat-orbit-" + stage + "-" + strings.SplitN(uuid.NewString(), "-", 2)[0]
}

// bindMounts returns one bind mount per distinct non-empty path, mounted
// at the same location inside the container. Order of first appearance
// is kept.
func bindMounts(dir string, groups ...[]string) []mount.Mount {
	seen := make(map[string]bool)
	var out []mount.Mount
	add := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		out = append(out, mount.Mount{Type: mount.TypeBind, Source: p, Target: p})
	}

	add(dir)
	for _, g := range groups {
		for _, p := range g {
			add(p)
		}
	}
	return out
}

// containerEnv filters a host environment down to the variables that make
// sense inside a container.
func containerEnv(env []string) []string {
	var out []string
	for _, kv := range env {
		key, _, ok := strings.Cut(kv, "=")
		if !ok || hostOnlyEnv[key] {
			continue
		}
		out = append(out, kv)
	}
	return out
}

// hostUser returns "uid:gid" of the current process on unix hosts, so
// files written to bind mounts belong to the caller. Empty elsewhere.
func hostUser() string {
	if runtime.GOOS == "windows" {
		return ""
	}
	uid, gid := os.Getuid(), os.Getgid()
	if uid < 0 || gid < 0 {
		return ""
	}
	return fmt.Sprintf("%d:%d", uid, gid)
}
