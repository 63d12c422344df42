package postprocess

import (
	"fmt"
	"strings"

	"github.com/mmr-tortoise/splat-orbit/internal/model"
)

// Report summarises one batch.
type Report struct {
	// Outputs lists the files written, in processing order.
	Outputs []string `json:"outputs"`

	// Converted and Copied count how each output was produced.
	Converted int `json:"converted"`
	Copied    int `json:"copied"`

	// Failed lists the inputs that could not be processed.
	Failed []string `json:"failed,omitempty"`
}

// BatchError collects the per-file conversion errors of a batch.
type BatchError struct {
	Failures []*model.PipelineError
}

// Error lists every failed file on its own line.
func (e *BatchError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d file(s) failed to convert", len(e.Failures))
	for _, f := range e.Failures {
		sb.WriteString("\n  ")
		sb.WriteString(f.Error())
	}
	return sb.String()
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// conversionError builds the error for one file.
func conversionError(path, message string, err error) *model.PipelineError {
	return &model.PipelineError{
		Kind:     model.KindConversion,
		Stage:    "postprocess",
		ExitCode: -1,
		Path:     path,
		Message:  fmt.Sprintf("%s: %s", path, message),
		Err:      err,
	}
}

// batch accumulates a Report and its failures.
type batch struct {
	report   Report
	failures []*model.PipelineError
}

func (b *batch) ok(out string, converted bool) {
	b.report.Outputs = append(b.report.Outputs, out)
	if converted {
		b.report.Converted++
	} else {
		b.report.Copied++
	}
}

func (b *batch) fail(src string, err *model.PipelineError) {
	b.report.Failed = append(b.report.Failed, src)
	b.failures = append(b.failures, err)
}

// result returns the report and, when any file failed, a *BatchError.
func (b *batch) result() (*Report, error) {
	if len(b.failures) > 0 {
		return &b.report, &BatchError{Failures: b.failures}
	}
	return &b.report, nil
}
