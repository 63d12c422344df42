package runner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mmr-tortoise/splat-orbit/internal/model"
)

// maxStderrInError bounds how much captured stderr is copied into a
// PipelineError. The full text stays available on Result.
const maxStderrInError = 8 * 1024

// Command describes one external process invocation.
type Command struct {
	// Stage names the pipeline step, used in logs and errors
	// (e.g. "probe", "install", "render").
	Stage string

	// Name is the executable. Bare names are resolved through PATH.
	Name string

	// Args are passed to the executable verbatim.
	Args []string

	// Dir is the working directory. Empty means the caller's.
	Dir string

	// Env is the full environment. Nil means the current process
	// environment, inherited unmodified.
	Env []string

	// Timeout is the upper bound for the whole invocation. Zero means no
	// bound.
	Timeout time.Duration

	// FailureKind classifies a non-zero exit.
	FailureKind model.ErrorKind

	// Mounts lists host paths (besides Dir) that the command reads or
	// writes. Container launchers bind-mount them; the local launcher
	// ignores them.
	Mounts []string
}

// String renders the command line for logs and error messages.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result is the raw outcome of a process that was started.
type Result struct {
	// ExitCode is the process exit status, -1 if it was killed.
	ExitCode int

	Stdout string
	Stderr string

	// Elapsed is the wall time from start to reap.
	Elapsed time.Duration

	// TimedOut is set when the launcher killed the process because the
	// context it was given ended.
	TimedOut bool
}

// Launcher starts a Command and blocks until it is finished.
//
// Implementations must return a non-nil error only when the process could
// not be started at all. When ctx ends while the process runs, they must
// terminate it (including any children), wait for it to be reaped, and
// return a Result with TimedOut set.
type Launcher interface {
	Launch(ctx context.Context, cmd Command) (*Result, error)
}

// Exec runs cmd through l with cmd.Timeout applied and classifies the
// outcome.
//
// On success it returns the Result and a nil error. On a non-zero exit it
// returns the Result together with a *model.PipelineError of
// cmd.FailureKind, so callers can still log the captured output. Start
// failures and timeouts return a nil Result.
func Exec(ctx context.Context, l Launcher, cmd Command) (*Result, error) {
	runCtx := ctx
	cancel := context.CancelFunc(func() {})
	if cmd.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
	}
	defer cancel()

	log.Debug().
		Str("stage", cmd.Stage).
		Str("command", cmd.Name).
		Strs("args", cmd.Args).
		Str("dir", cmd.Dir).
		Dur("timeout", cmd.Timeout).
		Msg("Starting external process")

	res, err := l.Launch(runCtx, cmd)
	if err != nil {
		return nil, classifyStartError(cmd, err)
	}

	if res.TimedOut {
		// A parent cancellation is not a timeout of this stage.
		if ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, model.WrapPipelineError(cmd.FailureKind, cmd.Stage,
				fmt.Sprintf("%s was cancelled", cmd.Name), ctx.Err())
		}
		log.Warn().
			Str("stage", cmd.Stage).
			Dur("timeout", cmd.Timeout).
			Dur("elapsed", res.Elapsed).
			Msg("External process timed out and was killed")
		return nil, &model.PipelineError{
			Kind:     model.KindTimeout,
			Stage:    cmd.Stage,
			ExitCode: -1,
			Stderr:   tail(strings.TrimSpace(res.Stderr), maxStderrInError),
			Message:  fmt.Sprintf("%s timed out after %s", cmd.Name, cmd.Timeout),
			Err:      context.DeadlineExceeded,
		}
	}

	log.Debug().
		Str("stage", cmd.Stage).
		Int("exit_code", res.ExitCode).
		Dur("duration", res.Elapsed).
		Msg("External process finished")

	if res.ExitCode != 0 {
		return res, &model.PipelineError{
			Kind:     cmd.FailureKind,
			Stage:    cmd.Stage,
			ExitCode: res.ExitCode,
			Stderr:   tail(strings.TrimSpace(res.Stderr), maxStderrInError),
			Message:  fmt.Sprintf("%s failed", cmd.Name),
		}
	}

	return res, nil
}

// classifyStartError maps a launcher start failure to an environment
// error. A missing executable gets a dedicated message because it is by
// far the most common cause.
func classifyStartError(cmd Command, err error) error {
	msg := fmt.Sprintf("failed to start %s", cmd.Name)
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		msg = fmt.Sprintf("%s is not installed or not found in PATH", cmd.Name)
	}
	return model.WrapPipelineError(model.KindEnvironment, cmd.Stage, msg, err)
}

// tail keeps the last n bytes of s. Tool failures tend to print the useful
// part of a diagnostic last.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
