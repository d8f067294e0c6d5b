// workers/user_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"okr-progression-system/models"
	"okr-progression-system/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// remoteProfile is one entry of the identity service's change feed.
type remoteProfile struct {
	ExternalID        string    `json:"external_id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	FirstName         *string   `json:"first_name,omitempty"`
	LastName          *string   `json:"last_name,omitempty"`
	ProfilePictureURL *string   `json:"profile_picture_url,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type profileChanges struct {
	Users []remoteProfile `json:"users"`
}

// UserSyncWorker keeps the local users mirror in step with the identity service.
type UserSyncWorker struct {
	db           *gorm.DB
	Interval     time.Duration
	baseURL      string
	endpointPath string
	serviceToken string
	httpClient   *http.Client
}

func NewUserSyncWorker(db *gorm.DB, baseURL, endpointPath, serviceToken string) *UserSyncWorker {
	return &UserSyncWorker{
		db:           db,
		Interval:     time.Minute,
		baseURL:      baseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient:   utils.NewHTTPClient(30 * time.Second),
	}
}

func (w *UserSyncWorker) Start(ctx context.Context) {
	slog.Info("[SYNC] starting user mirror sync", "interval", w.Interval.String())
	go w.run(ctx)
}

func (w *UserSyncWorker) run(ctx context.Context) {
	if _, err := w.SyncOnce(ctx, time.Time{}); err != nil {
		slog.Warn("[SYNC] initial backfill failed", "err", err)
	}

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := w.SyncOnce(ctx, w.lastSyncTime(ctx)); err != nil {
				slog.Error("[SYNC] batch failed", "err", err)
			}
		case <-ctx.Done():
			slog.Info("[SYNC] user mirror sync stopped")
			return
		}
	}
}

// lastSyncTime is the newest mirrored updated_at, or the epoch on an empty table.
func (w *UserSyncWorker) lastSyncTime(ctx context.Context) time.Time {
	var latest models.User
	err := w.db.WithContext(ctx).Order("updated_at DESC").Limit(1).Find(&latest).Error
	if err != nil || latest.UpdatedAt.IsZero() {
		return time.Unix(0, 0)
	}
	return latest.UpdatedAt
}

// SyncOnce pulls changes since the given time and upserts them, returning
// how many rows were written.
func (w *UserSyncWorker) SyncOnce(ctx context.Context, since time.Time) (int, error) {
	changes, err := w.fetch(ctx, since)
	if err != nil {
		return 0, err
	}
	if len(changes) == 0 {
		slog.Debug("[SYNC] no user changes", "since", since.UTC().Format(time.RFC3339))
		return 0, nil
	}

	rows := make([]models.User, 0, len(changes))
	for _, p := range changes {
		if p.ExternalID == "" {
			slog.Warn("[SYNC] skipping profile without external id", "username", p.Username)
			continue
		}
		rows = append(rows, models.User{
			ExternalUserID:    p.ExternalID,
			Username:          p.Username,
			Email:             p.Email,
			FirstName:         p.FirstName,
			LastName:          p.LastName,
			ProfilePictureURL: p.ProfilePictureURL,
			CreatedAt:         p.CreatedAt,
			UpdatedAt:         p.UpdatedAt,
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	err = w.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"username", "email", "first_name", "last_name", "profile_picture_url", "updated_at",
		}),
	}).Create(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("upsert users: %w", err)
	}
	slog.Info("[SYNC] users mirrored", "count", len(rows))
	return len(rows), nil
}

func (w *UserSyncWorker) fetch(ctx context.Context, since time.Time) ([]remoteProfile, error) {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid sync service url %q: %w", w.baseURL, err)
	}
	endpoint := base.JoinPath(w.endpointPath)
	q := endpoint.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build sync request: %w", err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sync request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("sync service returned %d: %s", resp.StatusCode, body)
	}

	var out profileChanges
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode sync response: %w", err)
	}
	return out.Users, nil
}
