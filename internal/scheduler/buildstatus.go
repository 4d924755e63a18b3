package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"github.com/codr1/releaseboard/internal/release"
	"github.com/codr1/releaseboard/internal/upstream"
)

const buildStatusJobTimeout = 5 * time.Minute

// BuildStatusReporter computes the annotated issue list of a version.
type BuildStatusReporter interface {
	BuildStatus(ctx context.Context, versionID int64) (release.Report, error)
}

// RegisterBuildStatusJob recomputes build status for the watched versions on a cron schedule.
func RegisterBuildStatusJob(svc *Service, reporter BuildStatusReporter, cronExpr string, versionIDs []int64) error {
	if reporter == nil {
		return fmt.Errorf("build status job requires a reporter")
	}
	if len(versionIDs) == 0 {
		log.Info().Msg("Build status job skipped: no watched versions")
		return nil
	}

	jobName := "build_status_refresh"
	jobLogger := log.With().
		Str("component", "build_status_job").
		Str("job_name", jobName).
		Str("cron", cronExpr).
		Logger()

	_, err := svc.AddJob(jobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), buildStatusJobTimeout)
		defer cancel()
		RefreshBuildStatus(jobLogger.WithContext(ctx), reporter, versionIDs)
	}, gocron.WithSingletonMode(gocron.LimitModeReschedule))
	if err != nil {
		return fmt.Errorf("add build status job: %w", err)
	}

	jobLogger.Info().Ints64("version_ids", versionIDs).Msg("Build status job registered")
	return nil
}

// RefreshBuildStatus reconciles each version and logs its summary. It stops early
// when an upstream service rate limits us and returns how many versions succeeded.
func RefreshBuildStatus(ctx context.Context, reporter BuildStatusReporter, versionIDs []int64) int {
	logger := log.Ctx(ctx)
	refreshed := 0
	for _, versionID := range versionIDs {
		if ctx.Err() != nil {
			break
		}
		report, err := reporter.BuildStatus(ctx, versionID)
		if err != nil {
			logger.Error().Err(err).Int64("version_id", versionID).Msg("Failed to refresh build status")
			if upstream.IsRateLimited(err) {
				break
			}
			continue
		}
		refreshed++

		event := logger.Info().
			Int64("version_id", versionID).
			Str("version", report.Version.Name).
			Int("issues", len(report.Issues))
		for status, count := range report.Summary {
			event = event.Int(string(status), count)
		}
		event.Msg("Build status refreshed")
	}
	return refreshed
}
