package runnertest

import (
	"context"
	"sync"

	"github.com/mmr-tortoise/splat-orbit/internal/runner"
)

// HandlerFunc decides the outcome of one fake launch.
type HandlerFunc func(ctx context.Context, cmd runner.Command) (*runner.Result, error)

// Launcher records every Command it receives and delegates the outcome to
// Handler. A nil Handler makes every launch succeed with empty output.
type Launcher struct {
	Handler HandlerFunc

	mu    sync.Mutex
	calls []runner.Command
}

// New creates a Launcher with the given handler.
func New(h HandlerFunc) *Launcher {
	return &Launcher{Handler: h}
}

// Launch implements runner.Launcher.
func (l *Launcher) Launch(ctx context.Context, cmd runner.Command) (*runner.Result, error) {
	l.mu.Lock()
	l.calls = append(l.calls, cmd)
	l.mu.Unlock()

	if l.Handler == nil {
		return &runner.Result{}, nil
	}
	return l.Handler(ctx, cmd)
}

// Calls returns a copy of every recorded Command in launch order.
func (l *Launcher) Calls() []runner.Command {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]runner.Command, len(l.calls))
	copy(out, l.calls)
	return out
}

// CallsFor returns the recorded Commands of one stage.
func (l *Launcher) CallsFor(stage string) []runner.Command {
	var out []runner.Command
	for _, c := range l.Calls() {
		if c.Stage == stage {
			out = append(out, c)
		}
	}
	return out
}

// Succeed returns a result with exit code 0 and the given stdout.
func Succeed(stdout string) *runner.Result {
	return &runner.Result{ExitCode: 0, Stdout: stdout}
}

// Fail returns a result with the given exit code and stderr.
func Fail(code int, stderr string) *runner.Result {
	return &runner.Result{ExitCode: code, Stderr: stderr}
}
