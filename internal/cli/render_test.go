package cli

import (
	"bytes"
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/splat-orbit/internal/config"
	"github.com/mmr-tortoise/splat-orbit/internal/model"
)

// parseRenderFlags binds the render flags to a bare command and parses
// args, the way the root command sees them.
func parseRenderFlags(t *testing.T, args ...string) (*cobra.Command, *renderFlags) {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	f := &renderFlags{}
	bindRenderFlags(cmd, f)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd, f
}

func TestRenderOptions_OnlyChangedFlagsOverride(t *testing.T) {
	cfg := config.Default()
	cfg.Render.Frames = 120
	cfg.Render.Radius = 3.5
	cfg.Render.Target = model.Vec3{X: 0.5, Y: -0.25, Z: 1}

	cmd, f := parseRenderFlags(t, "--radius", "4", "--quiet")
	o, err := renderOptions(cmd, cfg, f)
	require.NoError(t, err)

	assert.Equal(t, 120, o.Frames, "unset flag keeps the configured value")
	assert.Equal(t, 4.0, o.Radius)
	assert.True(t, o.Quiet)
	assert.False(t, o.Cleanup)
	assert.Equal(t, model.Vec3{X: 0.5, Y: -0.25, Z: 1}, o.Target)
}

func TestRenderOptions_AllFlags(t *testing.T) {
	cmd, f := parseRenderFlags(t,
		"--frames", "8", "--radius", "1.5", "--fov", "45",
		"--width", "640", "--height", "480", "--target", "1, 2 ,3",
		"--swing-angle", "90", "--cleanup")
	o, err := renderOptions(cmd, config.Default(), f)
	require.NoError(t, err)

	assert.Equal(t, model.RenderOptions{
		Frames:     8,
		Radius:     1.5,
		FOV:        45,
		Width:      640,
		Height:     480,
		Target:     model.Vec3{X: 1, Y: 2, Z: 3},
		SwingAngle: 90,
		Cleanup:    true,
	}, o)
}

func TestRenderOptions_InvalidTarget(t *testing.T) {
	cmd, f := parseRenderFlags(t, "--target", "1,2")
	_, err := renderOptions(cmd, config.Default(), f)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindUsage))
}

func TestRenderOptions_TargetConflictsWithAutoTarget(t *testing.T) {
	cmd, f := parseRenderFlags(t, "--target", "0,0,0", "--auto-target")
	_, err := renderOptions(cmd, config.Default(), f)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindUsage))
	assert.Contains(t, err.Error(), "cannot be used together")
}

func TestRenderOptions_Preset(t *testing.T) {
	cfg := config.Default()
	cfg.Render.Radius = 3.5

	cmd, f := parseRenderFlags(t, "--preset", "quick_preview", "--width", "800")
	o, err := renderOptions(cmd, cfg, f)
	require.NoError(t, err)

	assert.Equal(t, 12, o.Frames, "preset overrides the configuration")
	assert.Equal(t, 360, o.Height)
	assert.Equal(t, 800, o.Width, "an explicit flag overrides the preset")
	assert.Equal(t, 3.5, o.Radius, "fields the preset leaves unset keep the configured value")
}

func TestRenderOptions_UnknownPreset(t *testing.T) {
	cmd, f := parseRenderFlags(t, "--preset", "cinematic")
	_, err := renderOptions(cmd, config.Default(), f)
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindUsage))
	assert.Contains(t, err.Error(), "high_quality")
}

func TestRender_PresetFromConfigFile(t *testing.T) {
	p := newProject(t)
	writeFile(t, filepath.Join(p.root, "splat-orbit.yaml"),
		"presets:\n  turntable:\n    frames: 3\n    swing_angle: 360\n", 0o644)
	out := filepath.Join(t.TempDir(), "output")

	stdout, _, err := runCLI(t, "--project-root", p.root, p.scene, out, "--preset", "turntable")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Rendered 3 frame(s)")

	args, err := os.ReadFile(filepath.Join(out, "args.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(args), "--swing-angle 360")
}

func TestRender_EndToEnd(t *testing.T) {
	p := newProject(t)
	out := filepath.Join(t.TempDir(), "output")

	stdout, _, err := runCLI(t, "--project-root", p.root, p.scene, out, "--frames", "5", "--grayscale")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Rendered 5 frame(s)")
	assert.Contains(t, stdout, "Converted 5 frame(s)")

	// The toolchain was prepared on first use.
	assert.FileExists(t, filepath.Join(p.root, "node_modules", "fake", "index.js"))
	assert.FileExists(t, filepath.Join(p.root, "tools", "orbit-render", "node_modules", "fake", "index.js"))
	assert.FileExists(t, filepath.Join(p.root, "dist", "index.mjs"))

	for _, name := range []string{"frame_0000.png", "frame_0004.png"} {
		assert.FileExists(t, filepath.Join(out, name))
		gray := decodePNG(t, filepath.Join(out, "grayscale", name))
		assert.IsType(t, &image.Gray{}, gray)
		assert.Equal(t, image.Rect(0, 0, 6, 4), gray.Bounds())
	}
}

func TestRender_SummaryRecordsToolchain(t *testing.T) {
	p := newProject(t)

	_, stderr, err := runCLI(t, "--project-root", p.root, p.scene, filepath.Join(t.TempDir(), "out"), "--frames", "1")
	require.NoError(t, err)
	assert.Contains(t, stderr, `"runtime":"v22.11.0"`)
	assert.Contains(t, stderr, filepath.Join(p.root, "dist", "index.mjs"))
}

func TestRender_JSONAndStaging(t *testing.T) {
	p := newProject(t)
	out := filepath.Join(t.TempDir(), "output")
	stage := filepath.Join(t.TempDir(), "comfy", "input")

	stdout, _, err := runCLI(t, "--project-root", p.root, "--json",
		p.scene, out, "--frames", "3", "--grayscale", "--comfyui", stage)
	require.NoError(t, err)

	var res renderResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.NotEmpty(t, res.RunID)
	assert.Len(t, res.Frames, 3)
	assert.Len(t, res.Grayscale, 3)
	require.Len(t, res.Staged, 3)
	assert.Equal(t, filepath.Join(stage, "frame_0000.png"), res.Staged[0])

	// Staged frames are the grayscale ones.
	assert.IsType(t, &image.Gray{}, decodePNG(t, res.Staged[2]))
}

func TestRender_ConfigFileAndFlagPrecedence(t *testing.T) {
	p := newProject(t)
	writeFile(t, filepath.Join(p.root, "splat-orbit.yaml"), "render:\n  frames: 2\n  radius: 7\n", 0o644)

	out := filepath.Join(t.TempDir(), "a")
	_, _, err := runCLI(t, "--project-root", p.root, p.scene, out)
	require.NoError(t, err)
	args, err := os.ReadFile(filepath.Join(out, "args.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(args), "--frames 2")
	assert.Contains(t, string(args), "--radius 7")

	out = filepath.Join(t.TempDir(), "b")
	_, _, err = runCLI(t, "--project-root", p.root, p.scene, out, "--radius", "2.5")
	require.NoError(t, err)
	args, err = os.ReadFile(filepath.Join(out, "args.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(args), "--frames 2")
	assert.Contains(t, string(args), "--radius 2.5")
}

func TestRender_AutoTarget(t *testing.T) {
	p := newProject(t)
	out := filepath.Join(t.TempDir(), "output")

	_, _, err := runCLI(t, "--project-root", p.root, p.scene, out, "--frames", "1", "--auto-target")
	require.NoError(t, err)

	args, err := os.ReadFile(filepath.Join(out, "args.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(args), "--target 2,3,1.5")
}

func TestRender_RendererFailure(t *testing.T) {
	p := newProject(t)
	t.Setenv("SPLAT_FAKE_FAIL", "1")

	_, _, err := runCLI(t, "--project-root", p.root, p.scene, filepath.Join(t.TempDir(), "out"))
	require.Error(t, err)

	var pe *model.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, model.KindRender, pe.Kind)
	assert.Equal(t, 3, pe.ExitCode)
	assert.Contains(t, pe.Stderr, "renderer exploded")
}

func TestRender_MissingScene(t *testing.T) {
	p := newProject(t)

	_, _, err := runCLI(t, "--project-root", p.root,
		filepath.Join(p.root, "input", "missing.ply"), filepath.Join(t.TempDir(), "out"))
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindUsage))
}

func TestRender_InvalidOptions(t *testing.T) {
	p := newProject(t)

	_, _, err := runCLI(t, "--project-root", p.root, p.scene, t.TempDir(), "--frames", "0")
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindUsage))
}

func TestRender_UnknownBackend(t *testing.T) {
	p := newProject(t)

	_, _, err := runCLI(t, "--project-root", p.root, "--backend", "podman", p.scene, t.TempDir())
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindUsage))
}

func TestRender_DockerDaemonUnreachable(t *testing.T) {
	p := newProject(t)
	t.Setenv("DOCKER_HOST", "unix://"+filepath.Join(t.TempDir(), "missing.sock"))

	_, _, err := runCLI(t, "--project-root", p.root, "--backend", "docker", p.scene, t.TempDir())
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindEnvironment))

	jsonOutput = true
	var buf bytes.Buffer
	assert.Equal(t, model.ExitFailure, reportError(&buf, err))

	var out struct {
		Error map[string]interface{} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "environment", out.Error["kind"])
	assert.Equal(t, "docker", out.Error["stage"])
}
