// Package cli implements the cobra-based commands of splat-orbit.
//
// The root command is the render pipeline itself:
//
//	splat-orbit <input-scene> <output-dir> [flags]
//
// Every other operation (viewer, viewer-patch, grayscale, stage, analyze,
// presets, prune) is a subcommand defined in its own file. root.go defines
// the root command, the global flags and the error/exit-code handling.
package cli
