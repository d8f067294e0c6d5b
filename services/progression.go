package services

import (
	"context"
	"fmt"
	"time"

	"okr-progression-system/models"
)

type ActivityType string

const (
	ActivityActive   ActivityType = "active"
	ActivityInactive ActivityType = "inactive"
)

// ActivitySummary is what the notification collaborator needs for one user's weekly mail.
type ActivitySummary struct {
	UserID string       `json:"user_id"`
	Email  string       `json:"email"`
	Name   string       `json:"name"`
	Type   ActivityType `json:"type"`
	Mode   models.Mode  `json:"mode,omitempty"`
	Score  int          `json:"score"`
	Badge  string       `json:"badge,omitempty"`
	At     *time.Time   `json:"at,omitempty"`
}

type ProgressionService struct {
	Store
}

func NewProgressionService(store Store) *ProgressionService {
	return &ProgressionService{Store: store}
}

type recentScore struct {
	UserID    string
	Score     int
	Badge     string
	CreatedAt time.Time
}

// WeeklyActivity summarizes every mirrored user's latest bonus, solo or team
// result since since. Users without any are reported inactive.
func (s *ProgressionService) WeeklyActivity(ctx context.Context, since time.Time) ([]ActivitySummary, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var users []models.User
	if err := db.Order("external_user_id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	sources := []struct {
		mode  models.Mode
		model any
		score string
	}{
		{models.ModeBonus, &models.BonusScore{}, "final_score"},
		{models.ModeSolo, &models.SoloScore{}, "score"},
		{models.ModeTeam, &models.TeamScore{}, "score"},
	}

	type latest struct {
		mode models.Mode
		row  recentScore
	}
	best := make(map[string]latest)
	for _, src := range sources {
		var rows []recentScore
		if err := db.Model(src.model).
			Select(fmt.Sprintf("user_id, %s AS score, badge, created_at", src.score)).
			Where("created_at >= ?", since).
			Order("created_at DESC").
			Scan(&rows).Error; err != nil {
			return nil, fmt.Errorf("recent %s scores: %w", src.mode, err)
		}
		for _, r := range rows {
			if cur, ok := best[r.UserID]; !ok || r.CreatedAt.After(cur.row.CreatedAt) {
				best[r.UserID] = latest{mode: src.mode, row: r}
			}
		}
	}

	out := make([]ActivitySummary, 0, len(users))
	for _, u := range users {
		sum := ActivitySummary{UserID: u.ExternalUserID, Email: u.Email, Name: u.DisplayName(), Type: ActivityInactive}
		if l, ok := best[u.ExternalUserID]; ok {
			at := l.row.CreatedAt
			sum.Type = ActivityActive
			sum.Mode = l.mode
			sum.Score = l.row.Score
			sum.Badge = l.row.Badge
			sum.At = &at
		}
		out = append(out, sum)
	}
	return out, nil
}
