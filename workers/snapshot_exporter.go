// workers/snapshot_exporter.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"okr-progression-system/services"

	"github.com/gosimple/slug"
)

// ObjectUploader stores a JSON document and returns where it can be read.
type ObjectUploader interface {
	UploadJSON(ctx context.Context, key string, body []byte) (string, error)
}

type rankingBuilder interface {
	BuildRanking(ctx context.Context, scope services.Scope, viewerID string) (*services.Ranking, error)
}

// SnapshotExporter publishes public copies of the global rankings.
type SnapshotExporter struct {
	Rankings rankingBuilder
	Uploader ObjectUploader
	Scopes   []services.Scope
	Now      func() time.Time
}

func NewSnapshotExporter(rankings rankingBuilder, uploader ObjectUploader) *SnapshotExporter {
	return &SnapshotExporter{
		Rankings: rankings,
		Uploader: uploader,
		Scopes: []services.Scope{
			{Kind: services.ScopeGlobal},
			{Kind: services.ScopeGlobalSolo},
			{Kind: services.ScopeGlobalTeam},
			{Kind: services.ScopeGlobalChallenge},
		},
		Now: time.Now,
	}
}

type snapshot struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Ranking     *services.Ranking `json:"ranking"`
}

// SnapshotKey is the object key a scope is exported under.
func SnapshotKey(scope services.Scope) string {
	return "leaderboards/" + slug.Make(scope.String()) + ".json"
}

// Export uploads every scope that has entries. It stops at the first failure.
func (e *SnapshotExporter) Export(ctx context.Context) (int, error) {
	uploaded := 0
	for _, scope := range e.Scopes {
		ranking, err := e.Rankings.BuildRanking(ctx, scope, "")
		if err != nil {
			return uploaded, fmt.Errorf("build %s ranking: %w", scope, err)
		}
		if ranking == nil {
			continue
		}
		body, err := json.Marshal(snapshot{GeneratedAt: e.Now().UTC(), Ranking: ranking})
		if err != nil {
			return uploaded, fmt.Errorf("encode %s snapshot: %w", scope, err)
		}
		url, err := e.Uploader.UploadJSON(ctx, SnapshotKey(scope), body)
		if err != nil {
			return uploaded, err
		}
		uploaded++
		slog.Debug("[SNAPSHOT] exported", "scope", scope.String(), "url", url)
	}
	slog.Info("[SNAPSHOT] leaderboards exported", "count", uploaded)
	return uploaded, nil
}
