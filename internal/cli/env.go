package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mmr-tortoise/splat-orbit/internal/config"
	"github.com/mmr-tortoise/splat-orbit/internal/docker"
	"github.com/mmr-tortoise/splat-orbit/internal/model"
	"github.com/mmr-tortoise/splat-orbit/internal/runner"
	"github.com/mmr-tortoise/splat-orbit/internal/session"
)

// environment is the resolved global state of one invocation: project
// root, effective configuration and backend, and the run id that ties its
// log events and containers together.
type environment struct {
	root       string
	cfg        *config.Config
	configFile string
	backend    model.Backend
	runID      string
}

// loadEnvironment applies the global flags on top of the configuration
// file. Precedence is defaults < file < flags.
func loadEnvironment() (*environment, error) {
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitFailure, "failed to resolve project root", err)
	}

	cfg, path, err := config.LoadFor(root, configPath)
	if err != nil {
		return nil, err
	}
	if backendName != "" {
		cfg.Backend = backendName
	}
	if lenientPrepare {
		cfg.LenientPrepare = true
	}

	backend, err := model.ParseBackend(cfg.Backend)
	if err != nil {
		return nil, usageError("%v", err)
	}

	env := &environment{
		root:       root,
		cfg:        cfg,
		configFile: path,
		backend:    backend,
		runID:      uuid.NewString(),
	}

	log.Debug().
		Str("project_root", root).
		Str("config", path).
		Str("backend", backend.String()).
		Str("run_id", env.runID).
		Msg("Environment resolved")
	return env, nil
}

// launcher returns the process launcher of the configured backend and a
// function releasing its resources.
func (e *environment) launcher(ctx context.Context) (runner.Launcher, func(), error) {
	if e.backend != model.BackendDocker {
		return runner.NewLocalLauncher(), func() {}, nil
	}

	c, err := docker.NewClient()
	if err != nil {
		return nil, nil, err
	}
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, nil, err
	}
	l := docker.NewLauncher(c, docker.LauncherOptions{
		Image:   e.cfg.Docker.Image,
		Network: e.cfg.Docker.Network,
		Mounts:  e.cfg.Docker.Mounts,
		RunID:   e.runID,
	})
	log.Debug().
		Str("image", e.cfg.Docker.Image).
		Str("run_id", l.RunID()).
		Msg("Running pipeline steps in containers")
	return l, func() { _ = c.Close() }, nil
}

// session prepares the toolchain on the configured backend. The returned
// function must be called once the session is no longer used.
func (e *environment) session(ctx context.Context) (*session.Session, func(), error) {
	l, release, err := e.launcher(ctx)
	if err != nil {
		return nil, nil, err
	}
	s, err := session.New(ctx, session.Options{
		ProjectRoot: e.root,
		Config:      e.cfg,
		Launcher:    l,
	})
	if err != nil {
		release()
		return nil, nil, err
	}
	return s, release, nil
}

// usageError reports an invalid flag or argument combination.
func usageError(format string, args ...interface{}) error {
	return model.NewPipelineError(model.KindUsage, "", fmt.Sprintf(format, args...))
}
