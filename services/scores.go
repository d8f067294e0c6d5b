package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"okr-progression-system/models"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ScoreService is the write side used by the score-producing activities.
type ScoreService struct {
	Store
	Leaderboards *LeaderboardService
	Evaluator    Evaluator
	now          func() time.Time
}

func NewScoreService(store Store, leaderboards *LeaderboardService, evaluator Evaluator) *ScoreService {
	return &ScoreService{Store: store, Leaderboards: leaderboards, Evaluator: evaluator, now: time.Now}
}

type SoloInput struct {
	ObjectiveTitle string         `json:"objective_title"`
	Score          int            `json:"score"`
	Breakdown      datatypes.JSON `json:"breakdown,omitempty"`
}

func (s *ScoreService) RecordSolo(ctx context.Context, userID string, in SoloInput) (*models.SoloScore, error) {
	if err := validateScore(in.Score); err != nil {
		return nil, err
	}
	reward := AssignRewards(in.Score)
	row := models.SoloScore{
		UserID:         userID,
		ObjectiveTitle: in.ObjectiveTitle,
		Score:          in.Score,
		Breakdown:      in.Breakdown,
		Badge:          reward.Badge,
		Trophy:         reward.Trophy,
	}

	db, cancel := s.conn(ctx)
	defer cancel()
	if err := db.Create(&row).Error; err != nil {
		return nil, fmt.Errorf("record solo score: %w", err)
	}
	s.invalidate(ctx, models.ModeSolo, "")
	slog.Info("[SCORES] solo recorded", "user_id", userID, "score", row.Score, "badge", row.Badge)
	return &row, nil
}

// CorrectSolo replaces the score of an existing solo row and re-derives its reward.
func (s *ScoreService) CorrectSolo(ctx context.Context, id, userID string, in SoloInput) (*models.SoloScore, error) {
	if err := validateScore(in.Score); err != nil {
		return nil, err
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	var row models.SoloScore
	if err := db.Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("solo score %s not found", id)
		}
		return nil, fmt.Errorf("find solo score: %w", err)
	}
	if row.UserID != userID {
		return nil, ForbiddenError("solo score belongs to another user")
	}

	reward := AssignRewards(in.Score)
	updates := map[string]any{"score": in.Score, "badge": reward.Badge, "trophy": reward.Trophy}
	if len(in.Breakdown) > 0 {
		updates["breakdown"] = in.Breakdown
		row.Breakdown = in.Breakdown
	}
	if err := db.Model(&models.SoloScore{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("correct solo score: %w", err)
	}
	row.Score, row.Badge, row.Trophy = in.Score, reward.Badge, reward.Trophy
	s.invalidate(ctx, models.ModeSolo, "")
	return &row, nil
}

type TeamScoreInput struct {
	TeamID        string          `json:"team_id"`
	Title         string          `json:"title"`
	Score         int             `json:"score"`
	AvgPercentage decimal.Decimal `json:"avg_percentage"`
	Breakdown     datatypes.JSON  `json:"breakdown,omitempty"`
	Time          string          `json:"time,omitempty"`
}

// RecordTeam stores a member's final team score; only members may record.
func (s *ScoreService) RecordTeam(ctx context.Context, userID string, in TeamScoreInput) (*models.TeamScore, error) {
	if err := validateScore(in.Score); err != nil {
		return nil, err
	}
	if in.TeamID == "" {
		return nil, ValidationError("team id is required")
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	var members int64
	if err := db.Model(&models.TeamMember{}).
		Where("team_id = ? AND user_id = ?", in.TeamID, userID).
		Count(&members).Error; err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if members == 0 {
		return nil, ForbiddenError("user %s is not a member of team %s", userID, in.TeamID)
	}

	reward := AssignRewards(in.Score)
	row := models.TeamScore{
		TeamID:        in.TeamID,
		UserID:        userID,
		Title:         in.Title,
		Score:         in.Score,
		AvgPercentage: in.AvgPercentage,
		Breakdown:     in.Breakdown,
		Badge:         reward.Badge,
		Trophy:        reward.Trophy,
		Time:          in.Time,
	}
	if err := db.Create(&row).Error; err != nil {
		return nil, fmt.Errorf("record team score: %w", err)
	}
	s.invalidate(ctx, models.ModeTeam, in.TeamID)
	slog.Info("[SCORES] team recorded", "team_id", in.TeamID, "user_id", userID, "score", row.Score)
	return &row, nil
}

type CampaignInput struct {
	CampaignID  string          `json:"campaign_id"`
	Level       int             `json:"level"`
	Sector      string          `json:"sector,omitempty"`
	Role        string          `json:"role,omitempty"`
	TotalScore  decimal.Decimal `json:"total_score"`
	Strengths   string          `json:"strengths,omitempty"`
	Improvement string          `json:"improvement,omitempty"`
}

func (s *ScoreService) RecordCampaign(ctx context.Context, userID string, in CampaignInput) (*models.CampaignModeScore, error) {
	switch {
	case in.CampaignID == "":
		return nil, ValidationError("campaign id is required")
	case in.Level < 1 || in.Level > models.CertificationLevel:
		return nil, ValidationError("campaign level must be between 1 and %d", models.CertificationLevel)
	case in.TotalScore.IsNegative() || in.TotalScore.GreaterThan(decimal.NewFromInt(100)):
		return nil, ValidationError("total score must be between 0 and 100")
	}

	row := models.CampaignModeScore{
		CampaignID:  in.CampaignID,
		UserID:      userID,
		Level:       in.Level,
		Sector:      in.Sector,
		Role:        in.Role,
		TotalScore:  in.TotalScore.Round(2),
		Strengths:   in.Strengths,
		Improvement: in.Improvement,
	}

	db, cancel := s.conn(ctx)
	defer cancel()
	if err := db.Create(&row).Error; err != nil {
		return nil, fmt.Errorf("record campaign score: %w", err)
	}
	s.invalidate(ctx, models.ModeCampaign, in.CampaignID)
	slog.Info("[SCORES] campaign recorded", "campaign_id", in.CampaignID, "user_id", userID, "level", row.Level, "total", row.TotalScore.String())
	return &row, nil
}

type BonusInput struct {
	ScenarioTitle string `json:"scenario_title"`
	Scenario      string `json:"scenario"`
	Response      string `json:"response"`
	Language      string `json:"language,omitempty"`
}

// RecordBonus scores a bonus response through the evaluator. A failed or
// unparsable evaluation is stored as the zero result rather than failing.
func (s *ScoreService) RecordBonus(ctx context.Context, userID string, in BonusInput) (*models.BonusScore, error) {
	if strings.TrimSpace(in.Response) == "" {
		return nil, ValidationError("response is required")
	}

	ev := Evaluate(ctx, s.Evaluator, BonusPrompt(in.ScenarioTitle, in.Scenario, in.Response, in.Language))
	dims, err := json.Marshal(ev.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("encode dimensions: %w", err)
	}
	feedback, err := json.Marshal(map[string][]string{
		"feedback":     ev.Feedback,
		"strengths":    ev.Strengths,
		"improvements": ev.Improvements,
	})
	if err != nil {
		return nil, fmt.Errorf("encode feedback: %w", err)
	}

	row := models.BonusScore{
		UserID:          userID,
		ScenarioTitle:   in.ScenarioTitle,
		FinalScore:      ev.Score,
		Badge:           ev.Badge,
		DimensionScores: datatypes.JSON(dims),
		Feedback:        datatypes.JSON(feedback),
	}

	db, cancel := s.conn(ctx)
	defer cancel()
	if err := db.Create(&row).Error; err != nil {
		return nil, fmt.Errorf("record bonus score: %w", err)
	}
	s.invalidate(ctx, models.ModeBonus, "")
	slog.Info("[SCORES] bonus recorded", "user_id", userID, "score", row.FinalScore, "badge", row.Badge)
	return &row, nil
}

// BonusToday returns today's bonus result for userID, or nil.
func (s *ScoreService) BonusToday(ctx context.Context, userID string) (*models.BonusScore, error) {
	now := s.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	db, cancel := s.conn(ctx)
	defer cancel()

	var row models.BonusScore
	err := db.Where("user_id = ? AND created_at >= ?", userID, start).
		Order("created_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find bonus score: %w", err)
	}
	return &row, nil
}

func (s *ScoreService) invalidate(ctx context.Context, mode models.Mode, scopeID string) {
	if s.Leaderboards != nil {
		s.Leaderboards.Invalidate(ctx, mode, scopeID)
	}
}

func validateScore(score int) error {
	if score < 0 || score > 100 {
		return ValidationError("score must be between 0 and 100")
	}
	return nil
}
