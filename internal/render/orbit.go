package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/mmr-tortoise/splat-orbit/internal/model"
	"github.com/mmr-tortoise/splat-orbit/internal/runner"
	"github.com/mmr-tortoise/splat-orbit/internal/session"
)

// framePattern matches the files the renderer writes: frame_0000.png,
// frame_0001.png, ...
var framePattern = regexp.MustCompile(`^frame_\d+\.png$`)

// Orbit renders req with the session's renderer and returns the frames
// found in the output directory afterwards.
//
// The returned FrameSet reflects what exists on disk, sorted by name. It
// is not checked against req.Options.Frames, and an empty set is not an
// error.
//
// Orbit does not lock the output directory. Concurrent renders into the
// same directory must be serialized by the caller.
func Orbit(ctx context.Context, s *session.Session, req model.RenderRequest) (model.FrameSet, error) {
	if err := req.Validate(); err != nil {
		return nil, model.WrapPipelineError(model.KindUsage, "render", "invalid render request", err)
	}

	scene, err := resolveScene(req.InputPath)
	if err != nil {
		return nil, err
	}
	outDir, err := filepath.Abs(req.OutputDir)
	if err != nil {
		return nil, model.WrapPipelineError(model.KindUsage, "render", "failed to resolve output directory", err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, model.WrapPipelineError(model.KindRender, "render",
			fmt.Sprintf("failed to create output directory %s", outDir), err)
	}

	cfg := s.Config()
	args := BuildOrbitArgs(cfg.RendererScript(s.ProjectRoot()), scene, outDir, req.Options)

	log.Info().
		Str("scene", scene).
		Str("output", outDir).
		Int("frames", req.Options.Frames).
		Msg("Rendering orbit sequence")

	res, err := runner.Exec(ctx, s.Launcher(), runner.Command{
		Stage:       "render",
		Name:        cfg.Tools.Runtime,
		Args:        args,
		Dir:         s.RendererRoot(),
		Timeout:     cfg.Timeouts.Render.Std(),
		FailureKind: model.KindRender,
		Mounts:      []string{s.ProjectRoot(), filepath.Dir(scene), outDir},
	})
	if err != nil {
		if res != nil && res.Stdout != "" {
			log.Debug().Str("stage", "render").Str("stdout", res.Stdout).Msg("Renderer output")
		}
		return nil, err
	}
	if !req.Options.Quiet && res.Stdout != "" {
		log.Debug().Str("stage", "render").Str("stdout", res.Stdout).Msg("Renderer output")
	}

	frames, err := ListFrames(outDir)
	if err != nil {
		return nil, err
	}
	log.Info().Int("count", frames.Len()).Str("output", outDir).Msg("Render finished")
	return frames, nil
}

// BuildOrbitArgs returns the renderer argument vector, script first.
//
// Floats use their shortest decimal form and the target is written as
// X,Y,Z with no whitespace. --cleanup and --quiet are only present when
// set.
func BuildOrbitArgs(script, scene, outDir string, o model.RenderOptions) []string {
	args := []string{
		script,
		scene,
		"-o", outDir,
		"--frames", strconv.Itoa(o.Frames),
		"--radius", model.FormatFloat(o.Radius),
		"--fov", model.FormatFloat(o.FOV),
		"--width", strconv.Itoa(o.Width),
		"--img-height", strconv.Itoa(o.Height),
		"--target", o.Target.String(),
		"--swing-angle", model.FormatFloat(o.SwingAngle),
	}
	if o.Cleanup {
		args = append(args, "--cleanup")
	}
	if o.Quiet {
		args = append(args, "--quiet")
	}
	return args
}

// ListFrames returns the absolute paths of the frame files in dir, sorted
// by name. Only regular files whose name matches frame_<digits>.png count.
func ListFrames(dir string) (model.FrameSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, model.WrapPipelineError(model.KindRender, "render",
			fmt.Sprintf("failed to list output directory %s", dir), err)
	}

	frames := model.FrameSet{}
	for _, e := range entries {
		if !e.Type().IsRegular() || !framePattern.MatchString(e.Name()) {
			continue
		}
		frames = append(frames, filepath.Join(dir, e.Name()))
	}
	sort.Strings(frames)
	return frames, nil
}

// resolveScene makes path absolute and checks it names a regular file.
func resolveScene(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", model.WrapPipelineError(model.KindUsage, "render", "failed to resolve scene path", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", &model.PipelineError{
			Kind: model.KindUsage, Stage: "input", ExitCode: -1, Path: abs,
			Message: fmt.Sprintf("scene file not found: %s", abs), Err: err,
		}
	}
	if !info.Mode().IsRegular() {
		return "", &model.PipelineError{
			Kind: model.KindUsage, Stage: "input", ExitCode: -1, Path: abs,
			Message: fmt.Sprintf("scene path is not a file: %s", abs),
		}
	}
	return abs, nil
}
