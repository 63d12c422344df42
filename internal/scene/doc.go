// Package scene reads PLY scene files far enough to describe them: the
// header layout, the vertex count and the bounding box of the vertex
// positions. It understands plain point clouds (x, y, z properties) and
// the chunked compressed splat layout (packed_position per vertex,
// per-chunk min/max ranges).
//
// Nothing here renders: the analysis feeds the analyze command and
// automatic camera targeting.
package scene
