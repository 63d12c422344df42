// Package runnertest provides a recording fake runner.Launcher for tests
// of the stages built on top of runner.Exec.
package runnertest
