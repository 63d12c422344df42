package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Default render parameters. These match the defaults of the orbit renderer
// wrapper the pipeline drives, so a bare invocation produces the same
// sequence as running the renderer by hand.
const (
	DefaultFrames     = 36
	DefaultRadius     = 2.0
	DefaultFOV        = 45.0
	DefaultWidth      = 1920
	DefaultHeight     = 1080
	DefaultSwingAngle = 30.0
)

// DefaultTarget is the camera target point used when none is given.
var DefaultTarget = Vec3{X: 0, Y: 0, Z: 1}

// Backend selects how external processes are launched.
type Backend string

const (
	// BackendLocal runs external tools as child processes of splat-orbit.
	BackendLocal Backend = "local"

	// BackendDocker runs each external tool in a throw-away container.
	BackendDocker Backend = "docker"
)

// String returns the string representation of Backend.
func (b Backend) String() string {
	return string(b)
}

// IsValid reports whether b is one of the supported backends.
func (b Backend) IsValid() bool {
	switch b {
	case BackendLocal, BackendDocker:
		return true
	default:
		return false
	}
}

// ParseBackend converts a string to a Backend. Matching is case-insensitive.
func ParseBackend(s string) (Backend, error) {
	b := Backend(strings.ToLower(strings.TrimSpace(s)))
	if !b.IsValid() {
		return "", fmt.Errorf("invalid backend: %q (valid: local, docker)", s)
	}
	return b, nil
}

// Vec3 is a point in scene space. It is used for the camera target.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// String formats the vector the way the renderer expects it on its command
// line: three decimal numbers joined by commas, no whitespace.
//
//	Vec3{0, 0, 1}.String() → "0,0,1"
func (v Vec3) String() string {
	return FormatFloat(v.X) + "," + FormatFloat(v.Y) + "," + FormatFloat(v.Z)
}

// ParseVec3 parses the "X,Y,Z" form produced by Vec3.String. Whitespace
// around each component is tolerated.
func ParseVec3(s string) (Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Vec3{}, fmt.Errorf("invalid vector %q: expected X,Y,Z", s)
	}

	var out [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Vec3{}, fmt.Errorf("invalid vector %q: component %d: %w", s, i+1, err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Vec3{}, fmt.Errorf("invalid vector %q: component %d is not finite", s, i+1)
		}
		out[i] = f
	}
	return Vec3{X: out[0], Y: out[1], Z: out[2]}, nil
}

// FormatFloat renders f in the shortest decimal form that round-trips,
// without exponent notation (2 → "2", 2.5 → "2.5").
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// RenderOptions is the configuration bundle of rendering parameters for a
// single orbit render.
type RenderOptions struct {
	// Frames is the number of frames to render. Must be at least 1.
	Frames int `json:"frames" yaml:"frames"`

	// Radius is the camera orbit radius in scene units. Must be positive.
	Radius float64 `json:"radius" yaml:"radius"`

	// FOV is the camera field of view in degrees. Must be positive.
	FOV float64 `json:"fov" yaml:"fov"`

	// Width and Height are the output image size in pixels.
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`

	// Target is the point the camera looks at.
	Target Vec3 `json:"target" yaml:"target"`

	// SwingAngle is the total angular range of the orbit in degrees,
	// centred on zero (30 means -15 to +15).
	SwingAngle float64 `json:"swingAngle" yaml:"swing_angle"`

	// Cleanup asks the renderer to remove its temporary files.
	Cleanup bool `json:"cleanup" yaml:"cleanup"`

	// Quiet suppresses the renderer's non-error output.
	Quiet bool `json:"quiet" yaml:"quiet"`
}

// DefaultRenderOptions returns the built-in render parameters.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		Frames:     DefaultFrames,
		Radius:     DefaultRadius,
		FOV:        DefaultFOV,
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		Target:     DefaultTarget,
		SwingAngle: DefaultSwingAngle,
	}
}

// Validate checks the numeric invariants of the options.
func (o *RenderOptions) Validate() error {
	if o.Frames < 1 {
		return fmt.Errorf("frames must be at least 1, got %d", o.Frames)
	}
	if !(o.Radius > 0) || math.IsInf(o.Radius, 0) {
		return fmt.Errorf("radius must be a positive number, got %v", o.Radius)
	}
	if !(o.FOV > 0) || math.IsInf(o.FOV, 0) {
		return fmt.Errorf("fov must be a positive number, got %v", o.FOV)
	}
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("image size must be positive, got %dx%d", o.Width, o.Height)
	}
	if math.IsNaN(o.SwingAngle) || math.IsInf(o.SwingAngle, 0) {
		return fmt.Errorf("swing angle must be finite, got %v", o.SwingAngle)
	}
	return nil
}

// RenderRequest is one logical orbit render: a scene file, an output
// directory, and the parameters to render it with.
type RenderRequest struct {
	// InputPath is the scene file (.ply) to render. May be relative to the
	// caller's working directory.
	InputPath string `json:"inputPath"`

	// OutputDir receives the frame_<index>.png files. Created if absent.
	OutputDir string `json:"outputDir"`

	Options RenderOptions `json:"options"`
}

// Validate checks that the request names an input and an output and that
// its options hold.
func (r *RenderRequest) Validate() error {
	if strings.TrimSpace(r.InputPath) == "" {
		return fmt.Errorf("input scene path must not be empty")
	}
	if strings.TrimSpace(r.OutputDir) == "" {
		return fmt.Errorf("output directory must not be empty")
	}
	return r.Options.Validate()
}

// ViewerRequest asks the viewer generator for a single self-contained HTML
// document that displays the scene interactively.
type ViewerRequest struct {
	InputPath  string `json:"inputPath"`
	OutputPath string `json:"outputPath"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

// Validate checks the viewer request invariants.
func (r *ViewerRequest) Validate() error {
	if strings.TrimSpace(r.InputPath) == "" {
		return fmt.Errorf("input scene path must not be empty")
	}
	if strings.TrimSpace(r.OutputPath) == "" {
		return fmt.Errorf("output document path must not be empty")
	}
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("viewer size must be positive, got %dx%d", r.Width, r.Height)
	}
	return nil
}

// FrameSet is the ordered list of frame files produced by one render,
// sorted by file name. Frame names carry a zero-padded index, so name
// order is also frame order. It may be empty.
type FrameSet []string

// Len returns the number of frames in the set.
func (f FrameSet) Len() int {
	return len(f)
}

// Empty reports whether the renderer produced no matching files.
func (f FrameSet) Empty() bool {
	return len(f) == 0
}
