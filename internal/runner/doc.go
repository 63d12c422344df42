// Package runner provides the single subprocess primitive of splat-orbit.
//
// Every external tool the pipeline drives (the runtime version query, the
// package manager, the renderer, the viewer generator) is invoked through
// Exec, which owns the per-stage timeout and the translation of process
// outcomes into model.PipelineError values:
//   - executable missing or not startable → model.KindEnvironment
//   - bound exceeded → model.KindTimeout (process tree killed and reaped)
//   - non-zero exit → the Command's FailureKind, with exit code and stderr
//
// How a Command is actually started is delegated to a Launcher. The
// LocalLauncher runs child processes; the docker package provides a
// container-backed Launcher; the runnertest package provides a recording
// fake for tests.
package runner
