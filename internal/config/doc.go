// Package config loads the optional splat-orbit project configuration.
//
// The configuration file lives in the project root and may be written in
// YAML (splat-orbit.yaml / splat-orbit.yml) or JSON with comments
// (splat-orbit.jsonc / splat-orbit.json). JSONC is stripped with
// github.com/tidwall/jsonc before it is handed to encoding/json.
//
// Precedence, lowest to highest:
//   - built-in defaults (Default)
//   - values present in the configuration file
//   - command-line flags (applied by the cli package)
//
// A missing file is not an error: Find reports it and callers fall back to
// Default.
package config
