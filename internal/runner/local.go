package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"
)

// pipeDrainDelay bounds how long Wait keeps reading stdout/stderr after the
// process itself has exited. A grandchild that inherited the pipes could
// otherwise hold Wait open forever.
const pipeDrainDelay = 2 * time.Second

// LocalLauncher runs commands as child processes of the current process.
//
// Each child is placed in its own process group (on platforms that support
// it) so that a timeout kills the whole tree the tool spawned, not just
// the direct child.
type LocalLauncher struct{}

// NewLocalLauncher creates a LocalLauncher.
func NewLocalLauncher() *LocalLauncher {
	return &LocalLauncher{}
}

// Launch implements Launcher.
func (l *LocalLauncher) Launch(ctx context.Context, c Command) (*Result, error) {
	path, err := exec.LookPath(c.Name)
	if err != nil {
		return nil, err
	}

	// #nosec G204 -- the executable and arguments come from the pipeline's
	// own configuration, not from untrusted input.
	cmd := exec.Command(path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}
	cmd.WaitDelay = pipeDrainDelay
	setProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	timedOut := false
	var waitErr error
	select {
	case waitErr = <-done:
	case <-ctx.Done():
		killProcessGroup(cmd)
		// Wait for the reap so no stale process outlives the call.
		waitErr = <-done
		timedOut = true
	}

	res := &Result{
		ExitCode: -1,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Elapsed:  time.Since(start),
		TimedOut: timedOut,
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil, errors.As(waitErr, &exitErr), errors.Is(waitErr, exec.ErrWaitDelay):
		// Exit status is carried by ProcessState.
	default:
		if !timedOut {
			return nil, waitErr
		}
	}

	return res, nil
}
