// Package logging configures the global zerolog logger for splat-orbit and
// provides the structured per-run summary event.
package logging
