// workers/scheduler.go
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// WeeklySummaryCron fires Mondays at 09:00 server time.
const WeeklySummaryCron = "0 9 * * 1"

const SnapshotInterval = 10 * time.Minute

// StartScheduler registers the periodic jobs and starts the scheduler.
// exporter may be nil when object storage is not configured.
func StartScheduler(ctx context.Context, weekly *WeeklySummaryJob, exporter *SnapshotExporter) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.CronJob(WeeklySummaryCron, false),
		gocron.NewTask(func() {
			if _, err := weekly.Run(ctx); err != nil {
				slog.Error("[SCHEDULER] weekly summary failed", "err", err)
			}
		}),
		gocron.WithName("weekly-summary"),
	)
	if err != nil {
		return nil, fmt.Errorf("register weekly summary: %w", err)
	}

	if exporter != nil {
		_, err = sched.NewJob(
			gocron.DurationJob(SnapshotInterval),
			gocron.NewTask(func() {
				if _, err := exporter.Export(ctx); err != nil {
					slog.Error("[SCHEDULER] snapshot export failed", "err", err)
				}
			}),
			gocron.WithName("leaderboard-snapshot"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return nil, fmt.Errorf("register snapshot export: %w", err)
		}
	}

	sched.Start()
	slog.Info("[SCHEDULER] started", "weekly_cron", WeeklySummaryCron, "snapshots", exporter != nil)
	return sched, nil
}
