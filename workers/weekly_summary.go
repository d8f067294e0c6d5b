// workers/weekly_summary.go
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"okr-progression-system/services"
)

const TaskWeeklySummary = "activity.weekly_summary"

// WeeklySummaryJob queues one summary notification per mirrored user
// covering the last seven days.
type WeeklySummaryJob struct {
	Progression *services.ProgressionService
	Notifier    services.Notifier
	Now         func() time.Time
}

func NewWeeklySummaryJob(progression *services.ProgressionService, notifier services.Notifier) *WeeklySummaryJob {
	return &WeeklySummaryJob{Progression: progression, Notifier: notifier, Now: time.Now}
}

// Run returns the number of notifications accepted by the notifier.
func (j *WeeklySummaryJob) Run(ctx context.Context) (int, error) {
	since := j.Now().AddDate(0, 0, -7)
	summaries, err := j.Progression.WeeklyActivity(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("weekly activity: %w", err)
	}

	queued := 0
	for _, s := range summaries {
		payload := map[string]any{
			"email": s.Email,
			"name":  s.Name,
			"type":  string(s.Type),
			"since": since.Format(time.RFC3339),
		}
		if s.Type == services.ActivityActive {
			payload["mode"] = string(s.Mode)
			payload["score"] = s.Score
			payload["badge"] = s.Badge
		}
		if j.Notifier.Enqueue(services.Task{Kind: TaskWeeklySummary, UserID: s.UserID, Payload: payload}) {
			queued++
		}
	}
	slog.Info("[WEEKLY] summaries queued", "users", len(summaries), "queued", queued)
	return queued, nil
}
