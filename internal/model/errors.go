package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a pipeline failure. Every failure surfaced by the
// orchestration path carries exactly one kind.
type ErrorKind string

const (
	// KindEnvironment means a required external runtime or tool is absent
	// or unreachable. Fatal, never retried.
	KindEnvironment ErrorKind = "environment"

	// KindDependency means the dependency install step failed.
	KindDependency ErrorKind = "dependency"

	// KindBuild means the build step failed.
	KindBuild ErrorKind = "build"

	// KindRender means the renderer exited non-zero.
	KindRender ErrorKind = "render"

	// KindViewer means the viewer generator exited non-zero or exited zero
	// without producing its output document.
	KindViewer ErrorKind = "viewer"

	// KindTimeout means a subprocess exceeded its per-stage bound and was
	// killed.
	KindTimeout ErrorKind = "timeout"

	// KindConversion means a single image failed to decode or encode during
	// post-processing. It never aborts sibling files.
	KindConversion ErrorKind = "conversion"

	// KindUsage means the request itself was invalid.
	KindUsage ErrorKind = "usage"
)

// String returns the string representation of ErrorKind.
func (k ErrorKind) String() string {
	return string(k)
}

// PipelineError is the typed error returned by every pipeline stage.
//
// Subprocess failures carry the stage name, the exit code (when the process
// ran to completion) and the captured standard error text.
type PipelineError struct {
	// Kind is the failure class.
	Kind ErrorKind

	// Stage names the step that failed (e.g. "probe", "install", "render").
	Stage string

	// ExitCode is the subprocess exit status. -1 when the process did not
	// exit on its own (not started, killed by timeout).
	ExitCode int

	// Stderr is the captured standard error of the subprocess, trimmed.
	Stderr string

	// Path is the file the error refers to, if any (conversion errors,
	// missing viewer output).
	Path string

	// Message is a short human-readable description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface.
//
// Format: "<stage>: <message> (exit code N): <stderr>: <err>", omitting the
// parts that are empty.
func (e *PipelineError) Error() string {
	var sb strings.Builder
	if e.Stage != "" {
		sb.WriteString(e.Stage)
		sb.WriteString(": ")
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind) + " error"
	}
	sb.WriteString(msg)
	if e.ExitCode > 0 {
		fmt.Fprintf(&sb, " (exit code %d)", e.ExitCode)
	}
	if e.Stderr != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Stderr)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError creates a PipelineError without an underlying cause.
func NewPipelineError(kind ErrorKind, stage, message string) *PipelineError {
	return &PipelineError{Kind: kind, Stage: stage, ExitCode: -1, Message: message}
}

// WrapPipelineError creates a PipelineError that wraps err.
func WrapPipelineError(kind ErrorKind, stage, message string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Stage: stage, ExitCode: -1, Message: message, Err: err}
}

// KindOf returns the kind of the first PipelineError in err's chain, or ""
// when there is none.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsKind reports whether err's chain contains a PipelineError of kind k.
func IsKind(err error, k ErrorKind) bool {
	return KindOf(err) == k
}

// ExitCode defines the process exit codes of the CLI.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitFailure indicates any pipeline failure or invalid usage.
	ExitFailure ExitCode = 1
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
