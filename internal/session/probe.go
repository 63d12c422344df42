package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mmr-tortoise/splat-orbit/internal/model"
	"github.com/mmr-tortoise/splat-orbit/internal/runner"
)

// Probe runs "<runtime> --version" and returns the trimmed version string.
//
// Every failure is an environment error. A timeout is wrapped, so
// errors.Is(err, context.DeadlineExceeded) still holds.
func Probe(ctx context.Context, l runner.Launcher, runtime string, timeout time.Duration) (string, error) {
	res, err := runner.Exec(ctx, l, runner.Command{
		Stage:       "probe",
		Name:        runtime,
		Args:        []string{"--version"},
		Timeout:     timeout,
		FailureKind: model.KindEnvironment,
	})
	if model.IsKind(err, model.KindTimeout) {
		return "", model.WrapPipelineError(model.KindEnvironment, "probe",
			fmt.Sprintf("%s --version did not answer within %s", runtime, timeout), err)
	}
	if err != nil {
		return "", err
	}

	version := strings.TrimSpace(res.Stdout)
	if version == "" {
		return "", model.NewPipelineError(model.KindEnvironment, "probe",
			fmt.Sprintf("%s --version printed nothing", runtime))
	}

	log.Info().Str("runtime", runtime).Str("version", version).Msg("Runtime found")
	return version, nil
}
