package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mmr-tortoise/splat-orbit/internal/model"
)

// ValidationError represents one invalid configuration field.
type ValidationError struct {
	// Field is the dotted field path (e.g. "timeouts.render").
	Field string

	// Message describes what's wrong with the field value.
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks cfg and returns every problem found (empty = valid).
//
// Checks performed:
//   - backend is local or docker, and docker has an image
//   - tool names and entry paths are set, entry paths are relative
//   - every timeout is positive
//   - render defaults satisfy RenderOptions.Validate, also with each
//     preset applied
//   - viewer size is positive
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	backend, err := model.ParseBackend(cfg.Backend)
	if err != nil {
		add("backend", "must be %q or %q, got %q", model.BackendLocal, model.BackendDocker, cfg.Backend)
	} else if backend == model.BackendDocker && strings.TrimSpace(cfg.Docker.Image) == "" {
		add("docker.image", "is required when backend is docker")
	}
	for i, m := range cfg.Docker.Mounts {
		if !filepath.IsAbs(m) {
			add(fmt.Sprintf("docker.mounts[%d]", i), "must be an absolute path, got %q", m)
		}
	}

	if strings.TrimSpace(cfg.Tools.Runtime) == "" {
		add("tools.runtime", "must not be empty")
	}
	if strings.TrimSpace(cfg.Tools.PackageManager) == "" {
		add("tools.package_manager", "must not be empty")
	}
	relPaths := []struct{ field, value string }{
		{"tools.renderer_dir", cfg.Tools.RendererDir},
		{"tools.renderer_entry", cfg.Tools.RendererEntry},
		{"tools.viewer_entry", cfg.Tools.ViewerEntry},
		{"tools.build_artifact", cfg.Tools.BuildArtifact},
	}
	for _, p := range relPaths {
		switch {
		case strings.TrimSpace(p.value) == "":
			add(p.field, "must not be empty")
		case filepath.IsAbs(p.value):
			add(p.field, "must be relative to the project root, got %q", p.value)
		}
	}

	timeouts := []struct {
		field string
		value Duration
	}{
		{"timeouts.probe", cfg.Timeouts.Probe},
		{"timeouts.install", cfg.Timeouts.Install},
		{"timeouts.build", cfg.Timeouts.Build},
		{"timeouts.render", cfg.Timeouts.Render},
		{"timeouts.viewer", cfg.Timeouts.Viewer},
	}
	for _, to := range timeouts {
		if to.value <= 0 {
			add(to.field, "must be positive, got %s", to.value)
		}
	}

	if err := cfg.Render.Validate(); err != nil {
		add("render", "%v", err)
	}
	for _, name := range cfg.PresetNames() {
		o := cfg.Presets[name].Apply(cfg.Render)
		if err := o.Validate(); err != nil {
			add("presets."+name, "%v", err)
		}
	}
	if cfg.Viewer.Width <= 0 || cfg.Viewer.Height <= 0 {
		add("viewer", "size must be positive, got %dx%d", cfg.Viewer.Width, cfg.Viewer.Height)
	}

	return errs
}

// joinValidation folds a validation list into one error.
func joinValidation(errs []ValidationError) error {
	list := make([]error, len(errs))
	for i := range errs {
		list[i] = &errs[i]
	}
	return errors.Join(list...)
}
