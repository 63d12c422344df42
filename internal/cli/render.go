package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/splat-orbit/internal/config"
	"github.com/mmr-tortoise/splat-orbit/internal/logging"
	"github.com/mmr-tortoise/splat-orbit/internal/model"
	"github.com/mmr-tortoise/splat-orbit/internal/postprocess"
	"github.com/mmr-tortoise/splat-orbit/internal/render"
	"github.com/mmr-tortoise/splat-orbit/internal/scene"
)

// grayscaleSubdir is where --grayscale writes inside the output directory.
const grayscaleSubdir = "grayscale"

// renderFlags holds the flag values of the render (root) command.
type renderFlags struct {
	frames     int
	radius     float64
	fov        float64
	width      int
	height     int
	target     string
	swingAngle float64
	cleanup    bool
	quiet      bool

	preset     string
	autoTarget bool
	grayscale  bool
	comfyui    string
}

// bindRenderFlags registers the render flags on cmd. The help text shows
// the built-in defaults; a configuration file may change them.
func bindRenderFlags(cmd *cobra.Command, f *renderFlags) {
	d := model.DefaultRenderOptions()
	fl := cmd.Flags()
	fl.IntVar(&f.frames, "frames", d.Frames, "Number of frames to render")
	fl.Float64Var(&f.radius, "radius", d.Radius, "Camera orbit radius")
	fl.Float64Var(&f.fov, "fov", d.FOV, "Camera field of view in degrees")
	fl.IntVar(&f.width, "width", d.Width, "Image width in pixels")
	fl.IntVar(&f.height, "height", d.Height, "Image height in pixels")
	fl.StringVar(&f.target, "target", d.Target.String(), "Camera target as X,Y,Z")
	fl.Float64Var(&f.swingAngle, "swing-angle", d.SwingAngle, "Total orbit swing in degrees")
	fl.BoolVar(&f.cleanup, "cleanup", false, "Let the renderer remove its temporary files")
	fl.BoolVar(&f.quiet, "quiet", false, "Suppress renderer progress output")
	fl.StringVar(&f.preset, "preset", "", "Start from a named parameter preset (see 'splat-orbit presets')")
	fl.BoolVar(&f.autoTarget, "auto-target", false, "Use the centre of the scene's bounding box as camera target")
	fl.BoolVar(&f.grayscale, "grayscale", false, "Also write grayscale frames to <output-dir>/grayscale")
	fl.StringVar(&f.comfyui, "comfyui", "", "Copy the frames (grayscale ones with --grayscale) into this directory")
}

// renderOptions resolves the render parameters. Precedence, lowest to
// highest: configuration, the --preset, flags the user set explicitly.
func renderOptions(cmd *cobra.Command, cfg *config.Config, f *renderFlags) (model.RenderOptions, error) {
	o := cfg.Render
	if f.preset != "" {
		p, err := cfg.Preset(f.preset)
		if err != nil {
			return o, usageError("%v", err)
		}
		o = p.Apply(o)
	}
	fl := cmd.Flags()
	if fl.Changed("frames") {
		o.Frames = f.frames
	}
	if fl.Changed("radius") {
		o.Radius = f.radius
	}
	if fl.Changed("fov") {
		o.FOV = f.fov
	}
	if fl.Changed("width") {
		o.Width = f.width
	}
	if fl.Changed("height") {
		o.Height = f.height
	}
	if fl.Changed("swing-angle") {
		o.SwingAngle = f.swingAngle
	}
	if fl.Changed("cleanup") {
		o.Cleanup = f.cleanup
	}
	if fl.Changed("quiet") {
		o.Quiet = f.quiet
	}
	if fl.Changed("target") {
		if f.autoTarget {
			return o, usageError("--target and --auto-target cannot be used together")
		}
		v, err := model.ParseVec3(f.target)
		if err != nil {
			return o, usageError("%v", err)
		}
		o.Target = v
	}
	return o, nil
}

// renderResult is the outcome of the render command.
type renderResult struct {
	RunID     string   `json:"runId"`
	OutputDir string   `json:"outputDir"`
	Frames    []string `json:"frames"`
	Grayscale []string `json:"grayscale,omitempty"`
	GrayDir   string   `json:"grayscaleDir,omitempty"`
	Staged    []string `json:"staged,omitempty"`
	StageDir  string   `json:"stageDir,omitempty"`
}

// runRender is the main logic of the root command.
func runRender(cmd *cobra.Command, input, output string, f *renderFlags) error {
	ctx := cmd.Context()

	env, err := loadEnvironment()
	if err != nil {
		return err
	}

	opts, err := renderOptions(cmd, env.cfg, f)
	if err != nil {
		return err
	}
	if f.autoTarget {
		a, err := scene.AnalyzeFile(input)
		if err != nil {
			return model.WrapPipelineError(model.KindUsage, "analyze", "cannot derive camera target", err)
		}
		opts.Target = a.Target()
		log.Info().Str("target", opts.Target.String()).Msg("Using scene centre as camera target")
	}

	req := model.RenderRequest{InputPath: input, OutputDir: output, Options: opts}
	if err := req.Validate(); err != nil {
		return usageError("%v", err)
	}

	run := logging.NewRunLogger("render", env.runID).
		Version(Version).
		Backend(env.backend.String()).
		Path("scene", input).
		Path("output", output).
		Param("frames", strconv.Itoa(opts.Frames)).
		Param("radius", model.FormatFloat(opts.Radius)).
		Param("fov", model.FormatFloat(opts.FOV)).
		Param("size", fmt.Sprintf("%dx%d", opts.Width, opts.Height)).
		Param("target", opts.Target.String()).
		Param("swingAngle", model.FormatFloat(opts.SwingAngle)).
		Param("preset", f.preset).
		Feature("grayscale", f.grayscale).
		Feature("comfyui", f.comfyui != "").
		Feature("autoTarget", f.autoTarget)

	res, err := renderPipeline(ctx, env, req, f, run)
	if res != nil {
		run.Count("frames", len(res.Frames)).
			Count("grayscale", len(res.Grayscale)).
			Count("staged", len(res.Staged))
	}
	run.Log(err)
	if err != nil {
		return err
	}

	return printRenderResult(cmd.OutOrStdout(), res)
}

// renderPipeline prepares the session, renders, and post-processes. A
// conversion failure does not stop staging of the frames that did
// convert; it is returned once staging is done.
func renderPipeline(ctx context.Context, env *environment, req model.RenderRequest, f *renderFlags, run *logging.RunLogger) (*renderResult, error) {
	sess, release, err := env.session(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	run.Runtime(sess.RuntimeVersion()).Path("build", sess.DistPath())

	frames, err := render.Orbit(ctx, sess, req)
	if err != nil {
		return nil, err
	}
	res := &renderResult{RunID: env.runID, Frames: frames}
	res.OutputDir, _ = filepath.Abs(req.OutputDir)

	if frames.Empty() {
		log.Warn().Str("dir", res.OutputDir).Msg("Renderer produced no frames")
	} else if frames.Len() != req.Options.Frames {
		log.Warn().Int("requested", req.Options.Frames).Int("found", frames.Len()).Msg("Frame count differs from request")
	}

	toStage := []string(frames)
	var convErr error
	if f.grayscale {
		res.GrayDir = filepath.Join(res.OutputDir, grayscaleSubdir)
		report, err := postprocess.Grayscale(frames, res.GrayDir)
		if report != nil {
			res.Grayscale = report.Outputs
			toStage = report.Outputs
		}
		if err != nil {
			if report == nil {
				return res, err
			}
			convErr = err
		}
	}

	if f.comfyui != "" {
		res.StageDir, _ = filepath.Abs(f.comfyui)
		report, err := postprocess.Stage(toStage, f.comfyui, postprocess.StageOptions{})
		if report != nil {
			res.Staged = report.Outputs
		}
		if err != nil {
			return res, err
		}
	}

	return res, convErr
}

func printRenderResult(w io.Writer, res *renderResult) error {
	if IsJSONOutput() {
		return writeJSON(w, res)
	}

	fmt.Fprintf(w, "Rendered %d frame(s) to %s\n", len(res.Frames), res.OutputDir)
	if res.GrayDir != "" {
		fmt.Fprintf(w, "Converted %d frame(s) to %s\n", len(res.Grayscale), res.GrayDir)
	}
	if res.StageDir != "" {
		fmt.Fprintf(w, "Staged %d frame(s) in %s\n", len(res.Staged), res.StageDir)
	}
	return nil
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}
