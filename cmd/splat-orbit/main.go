// Package main is the entry point for the splat-orbit CLI.
//
// The binary renders orbiting image sequences and interactive viewers of
// splat scenes by driving an external JavaScript renderer. All commands
// live in the internal/cli package.
//
// Build-time variables (version, commit, date) are injected via ldflags.
// During development they default to "dev", "none" and "unknown".
package main

import (
	"github.com/mmr-tortoise/splat-orbit/internal/cli"
)

// version, commit, and date are set at build time via ldflags and shown
// by --version.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	rootCmd := cli.NewRootCommand()
	cli.Execute(rootCmd)
}
