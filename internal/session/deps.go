package session

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/mmr-tortoise/splat-orbit/internal/config"
	"github.com/mmr-tortoise/splat-orbit/internal/model"
	"github.com/mmr-tortoise/splat-orbit/internal/runner"
)

// EnsureDependencies installs the dependency tree of root unless it is
// already there.
//
// It skips without running anything when root has no package.json, or
// when root/node_modules exists and is non-empty. Otherwise it runs
// "<package-manager> install" in root.
func EnsureDependencies(ctx context.Context, l runner.Launcher, cfg *config.Config, root string) error {
	if !fileExists(filepath.Join(root, "package.json")) {
		log.Debug().Str("dir", root).Msg("No package.json, skipping dependency install")
		return nil
	}

	modules := filepath.Join(root, "node_modules")
	if dirNonEmpty(modules) {
		log.Info().Str("dir", root).Msg("Dependencies already installed")
		return nil
	}

	log.Info().Str("dir", root).Str("package_manager", cfg.Tools.PackageManager).Msg("Installing dependencies")
	_, err := runner.Exec(ctx, l, runner.Command{
		Stage:       "install",
		Name:        cfg.Tools.PackageManager,
		Args:        []string{"install"},
		Dir:         root,
		Timeout:     cfg.Timeouts.Install.Std(),
		FailureKind: model.KindDependency,
	})
	return err
}

// fileExists reports whether path exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// dirNonEmpty reports whether path is a directory with at least one entry.
func dirNonEmpty(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	names, err := f.Readdirnames(1)
	return err == nil && len(names) > 0
}
