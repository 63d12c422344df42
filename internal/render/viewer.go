package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/mmr-tortoise/splat-orbit/internal/model"
	"github.com/mmr-tortoise/splat-orbit/internal/runner"
	"github.com/mmr-tortoise/splat-orbit/internal/session"
)

// Viewer generates the interactive HTML viewer for req.InputPath and
// returns the absolute path of the written document.
//
// An existing document is removed before the generator starts. The
// generator's zero exit is not trusted on its own: the output file must
// exist afterwards, otherwise a viewer error is returned.
func Viewer(ctx context.Context, s *session.Session, req model.ViewerRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", model.WrapPipelineError(model.KindUsage, "viewer", "invalid viewer request", err)
	}

	scene, err := resolveScene(req.InputPath)
	if err != nil {
		return "", err
	}
	out, err := filepath.Abs(req.OutputPath)
	if err != nil {
		return "", model.WrapPipelineError(model.KindUsage, "viewer", "failed to resolve output path", err)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", model.WrapPipelineError(model.KindViewer, "viewer",
			fmt.Sprintf("failed to create output directory %s", filepath.Dir(out)), err)
	}
	if err := removeStale(out); err != nil {
		return "", err
	}

	cfg := s.Config()
	args := BuildViewerArgs(cfg.ViewerScript(s.ProjectRoot()), scene, out, req.Width, req.Height)

	log.Info().Str("scene", scene).Str("output", out).Msg("Generating viewer")

	if _, err := runner.Exec(ctx, s.Launcher(), runner.Command{
		Stage:       "viewer",
		Name:        cfg.Tools.Runtime,
		Args:        args,
		Dir:         s.ProjectRoot(),
		Timeout:     cfg.Timeouts.Viewer.Std(),
		FailureKind: model.KindViewer,
		Mounts:      []string{filepath.Dir(scene), filepath.Dir(out)},
	}); err != nil {
		return "", err
	}

	info, err := os.Stat(out)
	if err != nil || !info.Mode().IsRegular() {
		return "", &model.PipelineError{
			Kind:     model.KindViewer,
			Stage:    "viewer",
			ExitCode: -1,
			Path:     out,
			Message:  fmt.Sprintf("viewer exited successfully but did not write %s", out),
			Err:      err,
		}
	}

	log.Info().Str("output", out).Int64("bytes", info.Size()).Msg("Viewer written")
	return out, nil
}

// BuildViewerArgs returns the viewer generator argument vector, script
// first. -w allows overwriting an existing document.
func BuildViewerArgs(script, scene, out string, width, height int) []string {
	return []string{
		script,
		"-w",
		scene,
		out,
		"--width", strconv.Itoa(width),
		"--height", strconv.Itoa(height),
	}
}

// removeStale deletes a document left at out by an earlier run, so the
// post-exit check only accepts a file this run wrote.
func removeStale(out string) error {
	info, err := os.Lstat(out)
	if os.IsNotExist(err) {
		return nil
	}
	if err == nil && info.IsDir() {
		return &model.PipelineError{
			Kind: model.KindUsage, Stage: "viewer", ExitCode: -1, Path: out,
			Message: fmt.Sprintf("viewer output %s is a directory", out),
		}
	}
	if err == nil {
		err = os.Remove(out)
	}
	if err != nil {
		return &model.PipelineError{
			Kind: model.KindViewer, Stage: "viewer", ExitCode: -1, Path: out,
			Message: fmt.Sprintf("failed to remove previous viewer document %s", out), Err: err,
		}
	}
	return nil
}
