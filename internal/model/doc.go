// Package model defines the domain types and value objects for the
// splat-orbit CLI.
//
// This package contains pure data structures with no external dependencies.
// Requests (RenderRequest, ViewerRequest) are created per invocation and
// discarded when the call returns; FrameSet is the only value handed from
// the render stage to the post-processing stage.
//
// The package also defines the pipeline error taxonomy (PipelineError and
// ErrorKind) and the CLIError type that carries a process exit code.
package model
