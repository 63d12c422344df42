package session

import (
	"context"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/mmr-tortoise/splat-orbit/internal/config"
	"github.com/mmr-tortoise/splat-orbit/internal/model"
	"github.com/mmr-tortoise/splat-orbit/internal/runner"
)

// EnsureBuilt runs "<package-manager> run build" in root unless the build
// artifact already exists. There is no staleness check: an existing
// artifact is trusted.
func EnsureBuilt(ctx context.Context, l runner.Launcher, cfg *config.Config, root string) error {
	artifact := filepath.Join(root, cfg.Tools.BuildArtifact)
	if fileExists(artifact) {
		log.Debug().Str("artifact", artifact).Msg("Build artifact present, skipping build")
		return nil
	}

	log.Info().Str("dir", root).Msg("Building project")
	if _, err := runner.Exec(ctx, l, runner.Command{
		Stage:       "build",
		Name:        cfg.Tools.PackageManager,
		Args:        []string{"run", "build"},
		Dir:         root,
		Timeout:     cfg.Timeouts.Build.Std(),
		FailureKind: model.KindBuild,
	}); err != nil {
		return err
	}

	if !fileExists(artifact) {
		log.Warn().Str("artifact", artifact).Msg("Build finished but the artifact is missing")
	}
	return nil
}
