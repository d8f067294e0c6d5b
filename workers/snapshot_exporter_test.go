package workers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"okr-progression-system/services"
)

type stubRankings map[services.ScopeKind]*services.Ranking

func (s stubRankings) BuildRanking(ctx context.Context, scope services.Scope, viewerID string) (*services.Ranking, error) {
	return s[scope.Kind], nil
}

type memoryUploader struct {
	objects map[string][]byte
	err     error
}

func (u *memoryUploader) UploadJSON(ctx context.Context, key string, body []byte) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	if u.objects == nil {
		u.objects = make(map[string][]byte)
	}
	u.objects[key] = body
	return "https://cdn.example.test/" + key, nil
}

func TestSnapshotKey(t *testing.T) {
	tests := map[services.Scope]string{
		{Kind: services.ScopeGlobal}:               "leaderboards/global.json",
		{Kind: services.ScopeGlobalSolo}:           "leaderboards/global-solo.json",
		{Kind: services.ScopeTeam, ID: "42"}:       "leaderboards/team-42.json",
		{Kind: services.ScopeCampaign, ID: "Q3 x"}: "leaderboards/campaign-q3-x.json",
	}
	for scope, want := range tests {
		if got := SnapshotKey(scope); got != want {
			t.Errorf("SnapshotKey(%s) = %q, want %q", scope, got, want)
		}
	}
}

func TestSnapshotExporterSkipsEmptyScopes(t *testing.T) {
	rankings := stubRankings{
		services.ScopeGlobal:     {Scope: "global", TotalUsers: 2},
		services.ScopeGlobalSolo: {Scope: "global-solo", TotalUsers: 1},
	}
	up := &memoryUploader{}
	exp := NewSnapshotExporter(rankings, up)
	generated := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	exp.Now = func() time.Time { return generated }

	n, err := exp.Export(context.Background())
	if err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	if n != 2 || len(up.objects) != 2 {
		t.Fatalf("exported = %d, objects = %d, want 2", n, len(up.objects))
	}

	var doc struct {
		GeneratedAt time.Time        `json:"generated_at"`
		Ranking     services.Ranking `json:"ranking"`
	}
	if err := json.Unmarshal(up.objects["leaderboards/global.json"], &doc); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if !doc.GeneratedAt.Equal(generated) || doc.Ranking.TotalUsers != 2 {
		t.Errorf("snapshot = %+v", doc)
	}
}

func TestSnapshotExporterStopsOnUploadError(t *testing.T) {
	rankings := stubRankings{services.ScopeGlobal: {Scope: "global"}}
	exp := NewSnapshotExporter(rankings, &memoryUploader{err: errors.New("403 forbidden")})

	if n, err := exp.Export(context.Background()); err == nil || n != 0 {
		t.Errorf("Export() = %d, %v, want 0 and an error", n, err)
	}
}
