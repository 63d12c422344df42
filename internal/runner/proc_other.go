//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package runner

import "os/exec"

func setProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup kills the direct child only. Grandchildren holding the
// output pipes are cut loose after pipeDrainDelay.
func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}
