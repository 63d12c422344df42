package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/splat-orbit/internal/docker"
)

// pruneFlags holds the flag values for the prune command.
type pruneFlags struct {
	all    bool
	dryRun bool
}

// NewPruneCommand creates the "prune" command, which removes containers
// that the docker backend left behind.
func NewPruneCommand() *cobra.Command {
	flags := &pruneFlags{}

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove leftover containers of the docker backend",
		Long: `Remove containers labelled splat-orbit.managed-by=splat-orbit.

Each pipeline step removes its own container when it finishes, so
leftovers only exist after a crash or a lost daemon connection. Running
containers may belong to another splat-orbit process and are kept unless
--all is given.

Examples:
  splat-orbit prune --dry-run
  splat-orbit prune --all`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := docker.NewClient()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			if err := c.Ping(cmd.Context()); err != nil {
				return err
			}

			removed, err := docker.Prune(cmd.Context(), c, docker.PruneOptions{
				IncludeRunning: flags.all,
				DryRun:         flags.dryRun,
			})
			if perr := printPruneResult(cmd.OutOrStdout(), removed, flags.dryRun); perr != nil && err == nil {
				err = perr
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&flags.all, "all", false, "Also remove running containers")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "List the containers without removing them")

	return cmd
}

// printPruneResult outputs the removed containers as a table or JSON.
//
//	NAME                            STAGE     STARTED               STATE
//	splat-orbit-render-1a2b3c4d     render    2026-10-17T09:30:00Z  exited
func printPruneResult(w io.Writer, removed []docker.ManagedContainer, dryRun bool) error {
	if IsJSONOutput() {
		out := struct {
			DryRun     bool                      `json:"dryRun"`
			Containers []docker.ManagedContainer `json:"containers"`
		}{dryRun, removed}
		if out.Containers == nil {
			out.Containers = []docker.ManagedContainer{}
		}
		return writeJSON(w, out)
	}

	if len(removed) == 0 {
		fmt.Fprintln(w, "No leftover containers found.")
		return nil
	}

	verb := "Removed"
	if dryRun {
		verb = "Would remove"
	}
	fmt.Fprintf(w, "%s %d container(s):\n", verb, len(removed))
	fmt.Fprintf(w, "%-32s %-9s %-21s %s\n", "NAME", "STAGE", "STARTED", "STATE")
	for _, m := range removed {
		stage, started := "-", "-"
		if m.Run != nil {
			stage = m.Run.Stage
			started = m.Run.StartedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%-32s %-9s %-21s %s\n", m.Name, stage, started, m.State)
	}
	return nil
}
