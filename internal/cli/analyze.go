package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/splat-orbit/internal/model"
	"github.com/mmr-tortoise/splat-orbit/internal/scene"
)

// analyzeFlags holds the flag values for the analyze command.
type analyzeFlags struct {
	radius float64
}

// NewAnalyzeCommand creates the "analyze" command, which reports the
// layout and extent of a PLY scene without rendering it.
func NewAnalyzeCommand() *cobra.Command {
	flags := &analyzeFlags{}

	cmd := &cobra.Command{
		Use:   "analyze <scene.ply>",
		Short: "Report the header and bounding box of a PLY scene",
		Long: `Read a PLY scene (ascii, binary little or big endian, plain or chunk
compressed) and report its header, vertex count, bounding box, centre and
size, whether it is centred at the origin, and a camera position on each
axis at --radius from the centre.

The centre is what --auto-target uses as camera target.

Examples:
  splat-orbit analyze input/sharp.ply
  splat-orbit analyze input/sharp.ply --radius 2 --json`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			if !(flags.radius > 0) {
				return usageError("--radius must be positive, got %v", flags.radius)
			}
			a, err := scene.AnalyzeFile(args[0])
			if err != nil {
				return model.WrapPipelineError(model.KindUsage, "analyze", "cannot analyze scene", err)
			}
			if IsJSONOutput() {
				return writeJSON(cmd.OutOrStdout(), newAnalysisJSON(a, flags.radius))
			}
			printAnalysisText(cmd.OutOrStdout(), a, flags.radius)
			return nil
		},
	}

	cmd.Flags().Float64Var(&flags.radius, "radius", 1, "Distance of the suggested axis cameras from the centre")

	return cmd
}

// analysisJSON is the --json form of a scene analysis.
type analysisJSON struct {
	Path             string        `json:"path"`
	Header           *scene.Header `json:"header"`
	Vertices         int           `json:"vertices"`
	Skipped          int           `json:"skipped"`
	Compressed       bool          `json:"compressed"`
	Min              model.Vec3    `json:"min"`
	Max              model.Vec3    `json:"max"`
	Center           model.Vec3    `json:"center"`
	Size             model.Vec3    `json:"size"`
	MaxDimension     float64       `json:"maxDimension"`
	CenteredAtOrigin bool          `json:"centeredAtOrigin"`
	Cameras          []cameraJSON  `json:"cameras"`
}

type cameraJSON struct {
	Axis     string     `json:"axis"`
	Position model.Vec3 `json:"position"`
}

func newAnalysisJSON(a *scene.Analysis, radius float64) analysisJSON {
	out := analysisJSON{
		Path:             a.Path,
		Header:           a.Header,
		Vertices:         a.Vertices,
		Skipped:          a.Skipped,
		Compressed:       a.Compressed,
		Min:              scene.ToVec3(a.Bounds.Min),
		Max:              scene.ToVec3(a.Bounds.Max),
		Center:           scene.ToVec3(a.Center()),
		Size:             scene.ToVec3(a.Size()),
		MaxDimension:     a.MaxDimension(),
		CenteredAtOrigin: a.CenteredAtOrigin(),
	}
	for _, c := range a.AxisCameras(radius) {
		out.Cameras = append(out.Cameras, cameraJSON{Axis: c.Axis, Position: scene.ToVec3(c.Position)})
	}
	return out
}

// printAnalysisText prints the analysis as sections:
//
//	=== Bounding Box ===
//	X: [-1.000000, 1.000000] (range: 2.000000)
//	...
func printAnalysisText(w io.Writer, a *scene.Analysis, radius float64) {
	h := a.Header
	fmt.Fprintf(w, "=== %s ===\n", a.Path)
	fmt.Fprintf(w, "Format: %s %s\n", h.Format, h.Version)
	for _, e := range h.Elements {
		names := make([]string, len(e.Properties))
		for i, p := range e.Properties {
			names[i] = p.Name
		}
		fmt.Fprintf(w, "Element %s: %d (%s)\n", e.Name, e.Count, strings.Join(names, ", "))
	}
	fmt.Fprintf(w, "Header size: %d bytes\n", h.Size)
	if a.Compressed {
		fmt.Fprintln(w, "Layout: chunk compressed")
	}
	fmt.Fprintf(w, "Vertices: %d", a.Vertices)
	if a.Skipped > 0 {
		fmt.Fprintf(w, " (%d without a finite position)", a.Skipped)
	}
	fmt.Fprintln(w)

	lo, hi := a.Bounds.Min, a.Bounds.Max
	fmt.Fprintln(w, "\n=== Bounding Box ===")
	fmt.Fprintf(w, "X: [%.6f, %.6f] (range: %.6f)\n", lo.X, hi.X, hi.X-lo.X)
	fmt.Fprintf(w, "Y: [%.6f, %.6f] (range: %.6f)\n", lo.Y, hi.Y, hi.Y-lo.Y)
	fmt.Fprintf(w, "Z: [%.6f, %.6f] (range: %.6f)\n", lo.Z, hi.Z, hi.Z-lo.Z)

	c, s := a.Center(), a.Size()
	fmt.Fprintln(w, "\n=== Center Point ===")
	fmt.Fprintf(w, "Center: (%.6f, %.6f, %.6f)\n", c.X, c.Y, c.Z)

	fmt.Fprintln(w, "\n=== Dimensions ===")
	fmt.Fprintf(w, "Size: (%.6f, %.6f, %.6f)\n", s.X, s.Y, s.Z)
	fmt.Fprintf(w, "Max dimension: %.6f\n", a.MaxDimension())

	fmt.Fprintln(w, "\n=== Analysis ===")
	if a.CenteredAtOrigin() {
		fmt.Fprintln(w, "Centered at origin: yes")
	} else {
		fmt.Fprintln(w, "Centered at origin: no")
		fmt.Fprintf(w, "  Offset from origin: (%.6f, %.6f, %.6f)\n", c.X, c.Y, c.Z)
	}

	fmt.Fprintf(w, "\n=== Camera Positions (radius %s) ===\n", model.FormatFloat(radius))
	for _, cam := range a.AxisCameras(radius) {
		p := cam.Position
		fmt.Fprintf(w, "  %s: (%.6f, %.6f, %.6f)\n", cam.Axis, p.X, p.Y, p.Z)
	}
	fmt.Fprintf(w, "\nSuggested --target %s\n", a.Target())
}
