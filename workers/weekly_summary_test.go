package workers

import (
	"context"
	"testing"
	"time"

	"okr-progression-system/models"
	"okr-progression-system/services"
	"okr-progression-system/testutil"
)

type recordingNotifier struct {
	tasks []services.Task
	limit int
}

func (n *recordingNotifier) Enqueue(task services.Task) bool {
	if n.limit > 0 && len(n.tasks) >= n.limit {
		return false
	}
	n.tasks = append(n.tasks, task)
	return true
}

func TestWeeklySummaryJob(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	testutil.SeedUser(t, db, "active")
	testutil.SeedUser(t, db, "idle")

	now := time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)
	solo := models.SoloScore{UserID: "active", Score: 88, Badge: "Silver Star", Timestamps: models.Timestamps{CreatedAt: now.AddDate(0, 0, -2)}}
	if err := db.Create(&solo).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	notifier := &recordingNotifier{}
	job := NewWeeklySummaryJob(services.NewProgressionService(services.NewStore(db, 0)), notifier)
	job.Now = func() time.Time { return now }

	queued, err := job.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if queued != 2 || len(notifier.tasks) != 2 {
		t.Fatalf("queued = %d, tasks = %d, want 2", queued, len(notifier.tasks))
	}

	active := notifier.tasks[0]
	if active.Kind != TaskWeeklySummary || active.UserID != "active" {
		t.Errorf("task = %+v", active)
	}
	if active.Payload["type"] != "active" || active.Payload["score"] != 88 || active.Payload["mode"] != "solo" {
		t.Errorf("active payload = %v", active.Payload)
	}
	if active.Payload["since"] != "2026-10-05T09:00:00Z" {
		t.Errorf("since = %v", active.Payload["since"])
	}

	idle := notifier.tasks[1].Payload
	if idle["type"] != "inactive" {
		t.Errorf("idle type = %v", idle["type"])
	}
	if _, ok := idle["score"]; ok {
		t.Errorf("idle payload carries a score: %v", idle)
	}
}

func TestWeeklySummaryCountsOnlyAccepted(t *testing.T) {
	db := testutil.OpenDB(t)
	for _, id := range []string{"a", "b", "c"} {
		testutil.SeedUser(t, db, id)
	}
	notifier := &recordingNotifier{limit: 1}
	job := NewWeeklySummaryJob(services.NewProgressionService(services.NewStore(db, 0)), notifier)

	queued, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if queued != 1 {
		t.Errorf("queued = %d, want 1", queued)
	}
}
