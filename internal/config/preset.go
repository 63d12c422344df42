package config

import (
	"fmt"
	"sort"

	"github.com/mmr-tortoise/splat-orbit/internal/model"
)

// Preset is a named set of render parameters. Unset fields leave the
// underlying value alone, so a preset can change only the size, only the
// frame count, and so on.
type Preset struct {
	Description string `json:"description" yaml:"description"`

	Frames     *int        `json:"frames,omitempty" yaml:"frames,omitempty"`
	Width      *int        `json:"width,omitempty" yaml:"width,omitempty"`
	Height     *int        `json:"height,omitempty" yaml:"height,omitempty"`
	Radius     *float64    `json:"radius,omitempty" yaml:"radius,omitempty"`
	FOV        *float64    `json:"fov,omitempty" yaml:"fov,omitempty"`
	SwingAngle *float64    `json:"swingAngle,omitempty" yaml:"swing_angle,omitempty"`
	Target     *model.Vec3 `json:"target,omitempty" yaml:"target,omitempty"`
}

// Apply returns o with every field the preset sets replaced.
func (p Preset) Apply(o model.RenderOptions) model.RenderOptions {
	if p.Frames != nil {
		o.Frames = *p.Frames
	}
	if p.Width != nil {
		o.Width = *p.Width
	}
	if p.Height != nil {
		o.Height = *p.Height
	}
	if p.Radius != nil {
		o.Radius = *p.Radius
	}
	if p.FOV != nil {
		o.FOV = *p.FOV
	}
	if p.SwingAngle != nil {
		o.SwingAngle = *p.SwingAngle
	}
	if p.Target != nil {
		o.Target = *p.Target
	}
	return o
}

// BuiltinPresets returns the presets available without a configuration
// file. A file preset with the same name replaces the built-in one.
func BuiltinPresets() map[string]Preset {
	i := func(v int) *int { return &v }
	return map[string]Preset{
		"quick_preview": {
			Description: "Few small frames to check framing",
			Frames:      i(12),
			Width:       i(640),
			Height:      i(360),
		},
		"standard": {
			Description: "Full HD orbit at the default density",
			Frames:      i(model.DefaultFrames),
			Width:       i(1920),
			Height:      i(1080),
		},
		"high_quality": {
			Description: "Dense 4K orbit for final output",
			Frames:      i(72),
			Width:       i(3840),
			Height:      i(2160),
		},
	}
}

// Preset looks up a preset by name. The error lists the known names.
func (c *Config) Preset(name string) (Preset, error) {
	p, ok := c.Presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("unknown preset %q (available: %v)", name, c.PresetNames())
	}
	return p, nil
}

// PresetNames returns the preset names in sorted order.
func (c *Config) PresetNames() []string {
	names := make([]string, 0, len(c.Presets))
	for name := range c.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
