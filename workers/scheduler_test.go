package workers

import (
	"context"
	"testing"

	"okr-progression-system/services"
	"okr-progression-system/testutil"
)

func TestStartSchedulerRegistersJobs(t *testing.T) {
	db := testutil.OpenDB(t)
	weekly := NewWeeklySummaryJob(services.NewProgressionService(services.NewStore(db, 0)), &recordingNotifier{})
	exporter := NewSnapshotExporter(stubRankings{}, &memoryUploader{})

	tests := []struct {
		name     string
		exporter *SnapshotExporter
		want     []string
	}{
		{"weekly only", nil, []string{"weekly-summary"}},
		{"with snapshots", exporter, []string{"weekly-summary", "leaderboard-snapshot"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched, err := StartScheduler(context.Background(), weekly, tt.exporter)
			if err != nil {
				t.Fatalf("StartScheduler() error: %v", err)
			}
			defer sched.Shutdown()

			names := map[string]bool{}
			for _, j := range sched.Jobs() {
				names[j.Name()] = true
			}
			if len(names) != len(tt.want) {
				t.Errorf("jobs = %v, want %v", names, tt.want)
			}
			for _, n := range tt.want {
				if !names[n] {
					t.Errorf("job %q not registered", n)
				}
			}
		})
	}
}
