package docker

import (
	"fmt"
	"strings"
	"time"

	"github.com/docker/docker/api/types/filters"
)

// Label keys stored on every container splat-orbit creates. The labels
// are the only record of a run inside the daemon; prune finds leftovers
// through them.
const (
	// LabelPrefix namespaces every key.
	LabelPrefix = "splat-orbit."

	// LabelManagedBy marks containers created by splat-orbit.
	// Key: "splat-orbit.managed-by", Value: always ManagedByValue.
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelRunID groups the containers of one CLI invocation.
	LabelRunID = LabelPrefix + "run-id"

	// LabelStage is the pipeline step the container executes
	// (probe, install, build, render, viewer).
	LabelStage = LabelPrefix + "stage"

	// LabelStartedAt is the RFC3339 UTC time the container was created.
	LabelStartedAt = LabelPrefix + "started-at"
)

// ManagedByValue is the value of LabelManagedBy.
const ManagedByValue = "splat-orbit"

// RunLabels is the metadata attached to one stage container.
type RunLabels struct {
	RunID     string
	Stage     string
	StartedAt time.Time
}

// BuildLabels returns the Docker label map for r.
func BuildLabels(r RunLabels) map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelRunID:     r.RunID,
		LabelStage:     r.Stage,
		LabelStartedAt: r.StartedAt.UTC().Format(time.RFC3339),
	}
}

// ParseLabels is the inverse of BuildLabels. All keys must be present and
// LabelManagedBy must carry ManagedByValue.
func ParseLabels(labels map[string]string) (*RunLabels, error) {
	var missing []string
	for _, key := range []string{LabelManagedBy, LabelRunID, LabelStage, LabelStartedAt} {
		if _, ok := labels[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required labels: %s", strings.Join(missing, ", "))
	}

	if v := labels[LabelManagedBy]; v != ManagedByValue {
		return nil, fmt.Errorf("label %s=%q: not managed by %s", LabelManagedBy, v, ManagedByValue)
	}

	startedAt, err := time.Parse(time.RFC3339, labels[LabelStartedAt])
	if err != nil {
		return nil, fmt.Errorf("invalid %s label %q: %w", LabelStartedAt, labels[LabelStartedAt], err)
	}

	return &RunLabels{
		RunID:     labels[LabelRunID],
		Stage:     labels[LabelStage],
		StartedAt: startedAt,
	}, nil
}

// ManagedFilter returns the list filter that matches splat-orbit
// containers, optionally narrowed to one run.
func ManagedFilter(runID string) filters.Args {
	args := filters.NewArgs(filters.Arg("label", LabelManagedBy+"="+ManagedByValue))
	if runID != "" {
		args.Add("label", LabelRunID+"="+runID)
	}
	return args
}
