package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/mmr-tortoise/splat-orbit/internal/model"
)

// FileNames lists the configuration file names searched in a project root,
// in priority order.
var FileNames = []string{
	"splat-orbit.yaml",
	"splat-orbit.yml",
	"splat-orbit.jsonc",
	"splat-orbit.json",
}

// Config is the full pipeline configuration.
type Config struct {
	Tools    Tools               `json:"tools" yaml:"tools"`
	Timeouts Timeouts            `json:"timeouts" yaml:"timeouts"`
	Render   model.RenderOptions `json:"render" yaml:"render"`
	Viewer   ViewerDefaults      `json:"viewer" yaml:"viewer"`

	// Presets are named render parameter sets selected with --preset.
	Presets map[string]Preset `json:"presets" yaml:"presets"`

	// Backend is "local" or "docker".
	Backend string `json:"backend" yaml:"backend"`

	Docker Docker `json:"docker" yaml:"docker"`

	// LenientPrepare downgrades dependency install and build failures to
	// warnings. The runtime probe is always fatal.
	LenientPrepare bool `json:"lenientPrepare" yaml:"lenient_prepare"`
}

// Tools names the external executables and the project-relative paths of
// the JavaScript entry points they run.
type Tools struct {
	// Runtime is the JavaScript runtime executable.
	Runtime string `json:"runtime" yaml:"runtime"`

	// PackageManager installs dependencies and runs the build script.
	PackageManager string `json:"packageManager" yaml:"package_manager"`

	// RendererDir is the orbit renderer wrapper directory, relative to the
	// project root. It has its own package.json.
	RendererDir string `json:"rendererDir" yaml:"renderer_dir"`

	// RendererEntry is the renderer script, relative to RendererDir.
	RendererEntry string `json:"rendererEntry" yaml:"renderer_entry"`

	// ViewerEntry is the viewer generator script, relative to the project
	// root.
	ViewerEntry string `json:"viewerEntry" yaml:"viewer_entry"`

	// BuildArtifact is the file whose presence marks the project as built,
	// relative to the project root.
	BuildArtifact string `json:"buildArtifact" yaml:"build_artifact"`
}

// Timeouts bounds each external stage.
type Timeouts struct {
	Probe   Duration `json:"probe" yaml:"probe"`
	Install Duration `json:"install" yaml:"install"`
	Build   Duration `json:"build" yaml:"build"`
	Render  Duration `json:"render" yaml:"render"`
	Viewer  Duration `json:"viewer" yaml:"viewer"`
}

// ViewerDefaults holds the default viewer viewport size.
type ViewerDefaults struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Docker configures the container launcher backend.
type Docker struct {
	// Image must provide the runtime and package manager.
	Image string `json:"image" yaml:"image"`

	// Mounts are extra host paths bind-mounted into every container, at
	// the same absolute path.
	Mounts []string `json:"mounts" yaml:"mounts"`

	// Network is passed as the container network mode. Empty means the
	// daemon default.
	Network string `json:"network" yaml:"network"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Tools: Tools{
			Runtime:        "node",
			PackageManager: "npm",
			RendererDir:    filepath.Join("tools", "orbit-render"),
			RendererEntry:  "index.mjs",
			ViewerEntry:    filepath.Join("bin", "cli.mjs"),
			BuildArtifact:  filepath.Join("dist", "index.mjs"),
		},
		Timeouts: Timeouts{
			Probe:   Duration(10 * time.Second),
			Install: Duration(5 * time.Minute),
			Build:   Duration(5 * time.Minute),
			Render:  Duration(5 * time.Minute),
			Viewer:  Duration(120 * time.Second),
		},
		Render: model.DefaultRenderOptions(),
		Viewer: ViewerDefaults{
			Width:  model.DefaultWidth,
			Height: model.DefaultHeight,
		},
		Presets: BuiltinPresets(),
		Backend: string(model.BackendLocal),
		Docker: Docker{
			Image: "node:22-bookworm",
		},
	}
}

// Find returns the first configuration file present in projectRoot.
// ok is false when there is none.
func Find(projectRoot string) (path string, ok bool) {
	for _, name := range FileNames {
		candidate := filepath.Join(projectRoot, name)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, true
		}
	}
	return "", false
}

// Load reads the configuration file at path on top of Default and
// validates the result. The format is chosen by extension: .yaml and .yml
// are YAML, anything else is JSON with comments.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(model.ExitFailure,
				fmt.Sprintf("config file not found: %s", path), err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := decode(path, data, cfg); err != nil {
		return nil, model.WrapCLIError(model.ExitFailure,
			fmt.Sprintf("failed to parse config file %s", path), err)
	}

	if errs := Validate(cfg); len(errs) > 0 {
		return nil, model.WrapCLIError(model.ExitFailure,
			fmt.Sprintf("invalid config file %s", path), joinValidation(errs))
	}
	return cfg, nil
}

// LoadFor resolves the configuration for a project: the explicit path when
// one is given, otherwise the file found in projectRoot, otherwise the
// defaults. The returned path is empty when defaults were used.
func LoadFor(projectRoot, explicit string) (*Config, string, error) {
	if explicit != "" {
		cfg, err := Load(explicit)
		return cfg, explicit, err
	}
	if path, ok := Find(projectRoot); ok {
		cfg, err := Load(path)
		return cfg, path, err
	}
	return Default(), "", nil
}

// decode unmarshals data into cfg. Fields absent from the file keep the
// value cfg already holds.
func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(jsonc.ToJSON(data), cfg)
	}
}

// RendererRoot returns the absolute renderer wrapper directory.
func (c *Config) RendererRoot(projectRoot string) string {
	return filepath.Join(projectRoot, c.Tools.RendererDir)
}

// RendererScript returns the absolute renderer entry script.
func (c *Config) RendererScript(projectRoot string) string {
	return filepath.Join(c.RendererRoot(projectRoot), c.Tools.RendererEntry)
}

// ViewerScript returns the absolute viewer generator entry script.
func (c *Config) ViewerScript(projectRoot string) string {
	return filepath.Join(projectRoot, c.Tools.ViewerEntry)
}

// BuildArtifactPath returns the absolute path of the build marker file.
func (c *Config) BuildArtifactPath(projectRoot string) string {
	return filepath.Join(projectRoot, c.Tools.BuildArtifact)
}
