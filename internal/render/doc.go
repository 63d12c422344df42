// Package render drives the two external generators: the orbit renderer,
// which writes a numbered PNG sequence, and the viewer generator, which
// writes one self-contained HTML document.
//
// Both run through runner.Exec with the session's launcher, so timeouts
// and failure classification are uniform across stages.
package render
