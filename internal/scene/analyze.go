package scene

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/mmr-tortoise/splat-orbit/internal/model"
)

const (
	// compressedChunkSize is the number of vertices sharing one chunk
	// range in the compressed layout.
	compressedChunkSize = 256

	// originTolerance is the per-axis distance under which a centre counts
	// as the origin.
	originTolerance = 0.01
)

// Analysis describes the vertex positions of a scene.
type Analysis struct {
	Path   string
	Header *Header

	// Vertices is the number of vertex records read. Skipped counts the
	// ones with a non-finite position, which are not part of Bounds.
	Vertices int
	Skipped  int

	// Compressed is set for the chunked packed_position layout.
	Compressed bool

	Bounds r3.Box
}

// Center returns the centre of the bounding box.
func (a *Analysis) Center() r3.Vec {
	return a.Bounds.Center()
}

// Size returns the edge lengths of the bounding box.
func (a *Analysis) Size() r3.Vec {
	return a.Bounds.Size()
}

// MaxDimension returns the longest edge of the bounding box.
func (a *Analysis) MaxDimension() float64 {
	s := a.Size()
	return floats.Max([]float64{s.X, s.Y, s.Z})
}

// CenteredAtOrigin reports whether every centre coordinate is within 0.01
// of zero.
func (a *Analysis) CenteredAtOrigin() bool {
	c := a.Center()
	return math.Abs(c.X) < originTolerance &&
		math.Abs(c.Y) < originTolerance &&
		math.Abs(c.Z) < originTolerance
}

// Target returns the bounding box centre as a camera target.
func (a *Analysis) Target() model.Vec3 {
	return ToVec3(a.Center())
}

// AxisCamera is a suggested camera position on one axis through the
// centre.
type AxisCamera struct {
	Axis     string
	Position r3.Vec
}

// AxisCameras returns the six camera positions at distance radius from
// the centre along +X, -X, +Y, -Y, +Z and -Z.
func (a *Analysis) AxisCameras(radius float64) []AxisCamera {
	c := a.Center()
	axes := []struct {
		name string
		dir  r3.Vec
	}{
		{"+X", r3.Vec{X: 1}}, {"-X", r3.Vec{X: -1}},
		{"+Y", r3.Vec{Y: 1}}, {"-Y", r3.Vec{Y: -1}},
		{"+Z", r3.Vec{Z: 1}}, {"-Z", r3.Vec{Z: -1}},
	}
	out := make([]AxisCamera, len(axes))
	for i, ax := range axes {
		out[i] = AxisCamera{Axis: ax.name, Position: r3.Add(c, r3.Scale(radius, ax.dir))}
	}
	return out
}

// ToVec3 converts a gonum vector to the model type.
func ToVec3(v r3.Vec) model.Vec3 {
	return model.Vec3{X: v.X, Y: v.Y, Z: v.Z}
}

// AnalyzeFile opens path and analyzes it.
func AnalyzeFile(path string) (*Analysis, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	a, err := Analyze(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	a.Path = path
	return a, nil
}

// Analyze reads a PLY stream and computes the bounding box of its vertex
// positions. Elements after the vertex element are not read.
func Analyze(r io.Reader) (*Analysis, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	h, err := ReadHeader(br)
	if err != nil {
		return nil, err
	}

	vertex := h.Element("vertex")
	if vertex == nil {
		return nil, fmt.Errorf("%w: no vertex element", ErrInvalidPLY)
	}

	a := &Analysis{Header: h}
	pos, err := positionSource(h, vertex)
	if err != nil {
		return nil, err
	}
	a.Compressed = pos.compressed

	vr := newValueReader(br, h.Format)
	var acc bounds
	for i := range h.Elements {
		e := &h.Elements[i]
		row := make([]float64, len(e.Properties))

		for n := 0; n < e.Count; n++ {
			if err := readRecord(vr, e, row); err != nil {
				return nil, fmt.Errorf("%s %d: %w", e.Name, n, err)
			}
			switch e.Name {
			case "chunk":
				if pos.compressed {
					pos.addChunk(row)
				}
			case "vertex":
				v, err := pos.position(n, row)
				if err != nil {
					return nil, err
				}
				a.Vertices++
				if !acc.add(v) {
					a.Skipped++
				}
			}
		}
		if e.Name == "vertex" {
			break
		}
	}

	if acc.n == 0 {
		return nil, fmt.Errorf("%w: no vertex with a finite position", ErrInvalidPLY)
	}
	a.Bounds = r3.Box{Min: acc.min, Max: acc.max}
	return a, nil
}

// bounds accumulates an axis-aligned bounding box.
type bounds struct {
	min, max r3.Vec
	n        int
}

// add extends the box by v. Non-finite points are rejected.
func (b *bounds) add(v r3.Vec) bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	if b.n == 0 {
		b.min, b.max = v, v
	} else {
		b.min = r3.Vec{X: math.Min(b.min.X, v.X), Y: math.Min(b.min.Y, v.Y), Z: math.Min(b.min.Z, v.Z)}
		b.max = r3.Vec{X: math.Max(b.max.X, v.X), Y: math.Max(b.max.Y, v.Y), Z: math.Max(b.max.Z, v.Z)}
	}
	b.n++
	return true
}

// positions extracts vertex positions from records of either layout.
type positions struct {
	compressed bool

	// plain layout
	x, y, z int

	// compressed layout
	packed int
	chunk  [6]int // min_x, min_y, min_z, max_x, max_y, max_z
	chunks []r3.Box
}

func positionSource(h *Header, vertex *Element) (*positions, error) {
	p := &positions{
		x: vertex.Index("x"), y: vertex.Index("y"), z: vertex.Index("z"),
		packed: vertex.Index("packed_position"),
	}
	if p.x >= 0 && p.y >= 0 && p.z >= 0 {
		return p, nil
	}

	chunk := h.Element("chunk")
	if p.packed < 0 || chunk == nil {
		return nil, fmt.Errorf("%w: vertex element has no x, y, z properties", ErrInvalidPLY)
	}
	for i, name := range []string{"min_x", "min_y", "min_z", "max_x", "max_y", "max_z"} {
		p.chunk[i] = chunk.Index(name)
		if p.chunk[i] < 0 {
			return nil, fmt.Errorf("%w: chunk element has no %s property", ErrInvalidPLY, name)
		}
	}
	p.compressed = true
	return p, nil
}

func (p *positions) addChunk(row []float64) {
	p.chunks = append(p.chunks, r3.Box{
		Min: r3.Vec{X: row[p.chunk[0]], Y: row[p.chunk[1]], Z: row[p.chunk[2]]},
		Max: r3.Vec{X: row[p.chunk[3]], Y: row[p.chunk[4]], Z: row[p.chunk[5]]},
	})
}

func (p *positions) position(index int, row []float64) (r3.Vec, error) {
	if !p.compressed {
		return r3.Vec{X: row[p.x], Y: row[p.y], Z: row[p.z]}, nil
	}

	ci := index / compressedChunkSize
	if ci >= len(p.chunks) {
		return r3.Vec{}, fmt.Errorf("%w: vertex %d has no chunk range", ErrInvalidPLY, index)
	}
	c := p.chunks[ci]
	t := unpack111011(uint32(row[p.packed]))
	return r3.Vec{
		X: lerp(c.Min.X, c.Max.X, t.X),
		Y: lerp(c.Min.Y, c.Max.Y, t.Y),
		Z: lerp(c.Min.Z, c.Max.Z, t.Z),
	}, nil
}

// unpack111011 splits a packed position into 11, 10 and 11 bit unit
// values.
func unpack111011(v uint32) r3.Vec {
	return r3.Vec{
		X: unorm(v>>21, 11),
		Y: unorm(v>>11, 10),
		Z: unorm(v, 11),
	}
}

func unorm(v uint32, bits uint) float64 {
	mask := uint32(1)<<bits - 1
	return float64(v&mask) / float64(mask)
}

func lerp(a, b, t float64) float64 {
	return a*(1-t) + b*t
}
