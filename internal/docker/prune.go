package docker

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/rs/zerolog/log"

	"github.com/mmr-tortoise/splat-orbit/internal/model"
)

// ManagedContainer is a container found through its splat-orbit labels.
type ManagedContainer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`

	// Run is nil when the labels are incomplete (e.g. written by an older
	// build); such containers are still listed and pruned.
	Run *RunLabels `json:"run,omitempty"`
}

// Running reports whether the container is still executing.
func (m ManagedContainer) Running() bool {
	return m.State == container.StateRunning || m.State == container.StateRestarting
}

// ListManagedContainers returns every container carrying the managed-by
// label, running or not, oldest first.
func ListManagedContainers(ctx context.Context, c *Client) ([]ManagedContainer, error) {
	summaries, err := c.Inner().ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: ManagedFilter(""),
	})
	if err != nil {
		return nil, model.WrapCLIError(model.ExitFailure, "failed to list Docker containers", err)
	}

	result := make([]ManagedContainer, 0, len(summaries))
	for _, s := range summaries {
		result = append(result, summaryToManaged(s))
	}
	sort.SliceStable(result, func(i, j int) bool {
		ri, rj := result[i].Run, result[j].Run
		if ri == nil || rj == nil {
			return ri == nil && rj != nil
		}
		return ri.StartedAt.Before(rj.StartedAt)
	})
	return result, nil
}

func summaryToManaged(s container.Summary) ManagedContainer {
	name := ""
	if len(s.Names) > 0 {
		name = strings.TrimPrefix(s.Names[0], "/")
	}
	m := ManagedContainer{ID: s.ID, Name: name, State: s.State}
	if run, err := ParseLabels(s.Labels); err == nil {
		m.Run = run
	}
	return m
}

// PruneOptions selects what Prune removes.
type PruneOptions struct {
	// IncludeRunning also removes containers that are still running. They
	// may belong to another splat-orbit process.
	IncludeRunning bool

	// DryRun lists what would be removed without removing it.
	DryRun bool
}

// Prune force-removes leftover managed containers and returns the ones it
// removed (or would remove, for a dry run). Removal continues past
// individual failures; the first failure is returned after the rest were
// attempted.
func Prune(ctx context.Context, c *Client, opts PruneOptions) ([]ManagedContainer, error) {
	all, err := ListManagedContainers(ctx, c)
	if err != nil {
		return nil, err
	}

	var removed []ManagedContainer
	var firstErr error
	for _, m := range all {
		if m.Running() && !opts.IncludeRunning {
			log.Debug().Str("container", m.Name).Msg("Skipping running container")
			continue
		}
		if opts.DryRun {
			removed = append(removed, m)
			continue
		}
		if err := c.Inner().ContainerRemove(ctx, m.ID, container.RemoveOptions{Force: true}); err != nil {
			log.Warn().Err(err).Str("container", m.Name).Msg("Failed to remove container")
			if firstErr == nil {
				firstErr = model.WrapCLIError(model.ExitFailure, fmt.Sprintf("failed to remove container %q", m.Name), err)
			}
			continue
		}
		removed = append(removed, m)
	}
	return removed, firstErr
}
