package logging

import (
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RunLogger collects the identity, inputs and outcome of one pipeline run,
// then emits a single structured zerolog event summarising it. One event
// per run keeps the interesting numbers greppable in a long log.
type RunLogger struct {
	name      string
	runID     string
	version   string
	backend   string
	runtime   string
	startedAt time.Time

	paths    map[string]string
	params   map[string]string
	counts   map[string]int
	features map[string]bool
}

// NewRunLogger creates a RunLogger for the named command ("render",
// "viewer", ...) and starts its clock.
func NewRunLogger(name, runID string) *RunLogger {
	return &RunLogger{
		name:      name,
		runID:     runID,
		startedAt: time.Now(),
		paths:     make(map[string]string),
		params:    make(map[string]string),
		counts:    make(map[string]int),
		features:  make(map[string]bool),
	}
}

// Version sets the binary version baked in at build time.
func (r *RunLogger) Version(v string) *RunLogger {
	r.version = v
	return r
}

// Backend records which launcher backend executed the run.
func (r *RunLogger) Backend(b string) *RunLogger {
	r.backend = b
	return r
}

// Runtime records the version the JavaScript runtime reported.
func (r *RunLogger) Runtime(v string) *RunLogger {
	r.runtime = v
	return r
}

// Path registers an input or output location.
func (r *RunLogger) Path(label, p string) *RunLogger {
	r.paths[label] = p
	return r
}

// Param registers a rendering parameter.
func (r *RunLogger) Param(key, value string) *RunLogger {
	r.params[key] = value
	return r
}

// Count registers a result count (frames rendered, files converted, ...).
func (r *RunLogger) Count(key string, n int) *RunLogger {
	r.counts[key] = n
	return r
}

// Feature registers a boolean option (grayscale, staging, ...).
func (r *RunLogger) Feature(name string, enabled bool) *RunLogger {
	r.features[name] = enabled
	return r
}

// Log emits the summary at INFO level when err is nil, ERROR otherwise.
func (r *RunLogger) Log(err error) {
	evt := log.Info()
	if err != nil {
		evt = log.Error().Err(err)
	}

	run := zerolog.Dict().
		Str("name", r.name).
		Str("runId", r.runID).
		Str("goVersion", runtime.Version())
	if r.version != "" {
		run = run.Str("version", r.version)
	}
	if r.backend != "" {
		run = run.Str("backend", r.backend)
	}
	if r.runtime != "" {
		run = run.Str("runtime", r.runtime)
	}
	evt = evt.Dict("run", run)

	if len(r.paths) > 0 {
		evt = evt.Dict("paths", dictFromMap(r.paths))
	}
	if len(r.params) > 0 {
		evt = evt.Dict("params", dictFromMap(r.params))
	}
	if len(r.counts) > 0 {
		d := zerolog.Dict()
		for k, v := range r.counts {
			d = d.Int(k, v)
		}
		evt = evt.Dict("counts", d)
	}
	if len(r.features) > 0 {
		d := zerolog.Dict()
		for k, v := range r.features {
			d = d.Bool(k, v)
		}
		evt = evt.Dict("features", d)
	}

	evt.Dur("elapsed", time.Since(r.startedAt)).Msg("Pipeline run finished")
}

// dictFromMap converts a map[string]string into a zerolog.Event (Dict).
func dictFromMap(m map[string]string) *zerolog.Event {
	d := zerolog.Dict()
	for k, v := range m {
		d = d.Str(k, v)
	}
	return d
}
