// Package session prepares the external toolchain a render needs and
// carries the result to every pipeline operation.
//
// Preparation runs once per process, in order:
//  1. probe the JavaScript runtime (always fatal on failure)
//  2. install dependencies in the project root
//  3. install dependencies in the renderer wrapper directory
//  4. build the project entry point
//
// Steps 2-4 are idempotent: they skip when their output already exists.
package session
