package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/mmr-tortoise/splat-orbit/internal/config"
	"github.com/mmr-tortoise/splat-orbit/internal/model"
	"github.com/mmr-tortoise/splat-orbit/internal/runner"
)

// Options configures New.
type Options struct {
	// ProjectRoot is the directory holding package.json, bin/cli.mjs and
	// tools/orbit-render. Relative paths are resolved against the working
	// directory.
	ProjectRoot string

	// Config supplies tool names, entry paths and timeouts. Nil means
	// config.Default().
	Config *config.Config

	// Launcher runs the external processes. Nil means a LocalLauncher.
	Launcher runner.Launcher
}

// Session is a prepared toolchain. It is immutable after New returns, and
// a successfully constructed Session guarantees that the runtime answered
// its version query, both dependency trees exist and the build artifact
// is present (unless lenient preparation downgraded a failure).
type Session struct {
	projectRoot    string
	rendererRoot   string
	runtimeVersion string
	cfg            *config.Config
	launcher       runner.Launcher
}

// New resolves the project layout and prepares the toolchain.
func New(ctx context.Context, opts Options) (*Session, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	launcher := opts.Launcher
	if launcher == nil {
		launcher = runner.NewLocalLauncher()
	}

	root, err := filepath.Abs(opts.ProjectRoot)
	if err != nil {
		return nil, model.WrapPipelineError(model.KindEnvironment, "session",
			"failed to resolve project root", err)
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, model.WrapPipelineError(model.KindEnvironment, "session",
			fmt.Sprintf("project root %s is not a directory", root), err)
	}

	s := &Session{
		projectRoot:  root,
		rendererRoot: cfg.RendererRoot(root),
		cfg:          cfg,
		launcher:     launcher,
	}

	version, err := Probe(ctx, launcher, cfg.Tools.Runtime, cfg.Timeouts.Probe.Std())
	if err != nil {
		return nil, err
	}
	s.runtimeVersion = version

	for _, dir := range []string{s.projectRoot, s.rendererRoot} {
		if err := s.prepareStep(EnsureDependencies(ctx, launcher, cfg, dir)); err != nil {
			return nil, err
		}
	}
	if err := s.prepareStep(EnsureBuilt(ctx, launcher, cfg, s.projectRoot)); err != nil {
		return nil, err
	}

	log.Debug().
		Str("project_root", s.projectRoot).
		Str("renderer_root", s.rendererRoot).
		Str("runtime_version", s.runtimeVersion).
		Msg("Session ready")
	return s, nil
}

// prepareStep applies the lenient policy to an install or build error.
func (s *Session) prepareStep(err error) error {
	if err == nil {
		return nil
	}
	if !s.cfg.LenientPrepare {
		return err
	}
	// A missing executable stays fatal: nothing downstream can run.
	if model.IsKind(err, model.KindEnvironment) {
		return err
	}
	log.Warn().Err(err).Msg("Preparation step failed, continuing (lenient_prepare)")
	return nil
}

// ProjectRoot returns the absolute project root.
func (s *Session) ProjectRoot() string { return s.projectRoot }

// RendererRoot returns the absolute renderer wrapper directory.
func (s *Session) RendererRoot() string { return s.rendererRoot }

// DistPath returns the absolute path of the build artifact.
func (s *Session) DistPath() string { return s.cfg.BuildArtifactPath(s.projectRoot) }

// RuntimeVersion returns the version string reported by the runtime.
func (s *Session) RuntimeVersion() string { return s.runtimeVersion }

// Config returns the configuration the session was built with.
func (s *Session) Config() *config.Config { return s.cfg }

// Launcher returns the launcher every stage of this session runs through.
func (s *Session) Launcher() runner.Launcher { return s.launcher }
