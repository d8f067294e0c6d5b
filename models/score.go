package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Mode names a score stream.
type Mode string

const (
	ModeSolo      Mode = "solo"
	ModeTeam      Mode = "team"
	ModeChallenge Mode = "challenge"
	ModeCampaign  Mode = "campaign"
	ModeBonus     Mode = "bonus"
)

// ScoreRecord is implemented by every score stream. The aggregator only
// depends on this projection, never on per-mode field names.
type ScoreRecord interface {
	ScoreMode() Mode
	// XPColumn is the column summed into XP for this stream.
	XPColumn() string
	XPContribution() decimal.Decimal
	Owner() string
}

// ScoreStreams returns one zero value per stream, usable with db.Model.
func ScoreStreams() []ScoreRecord {
	return []ScoreRecord{
		&SoloScore{},
		&TeamScore{},
		&ChallengeModeScore{},
		&CampaignModeScore{},
		&BonusScore{},
	}
}

// SoloScore is a solo drill result.
type SoloScore struct {
	ID             string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID         string         `gorm:"index;not null" json:"user_id"`
	ObjectiveTitle string         `json:"objective_title"`
	Score          int            `gorm:"not null" json:"score"`
	Breakdown      datatypes.JSON `json:"breakdown,omitempty"`
	Badge          string         `gorm:"type:varchar(32)" json:"badge"`
	Trophy         string         `gorm:"type:varchar(32)" json:"trophy,omitempty"`
	Timestamps
}

func (s *SoloScore) BeforeCreate(tx *gorm.DB) error { ensureID(&s.ID); return nil }

func (SoloScore) ScoreMode() Mode                   { return ModeSolo }
func (SoloScore) XPColumn() string                  { return "score" }
func (s SoloScore) XPContribution() decimal.Decimal { return decimal.NewFromInt(int64(s.Score)) }
func (s SoloScore) Owner() string                   { return s.UserID }

// TeamScore is a member's final score for a team session.
type TeamScore struct {
	ID            string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TeamID        string          `gorm:"index;not null" json:"team_id"`
	UserID        string          `gorm:"index;not null" json:"user_id"`
	Title         string          `json:"title"`
	Score         int             `gorm:"not null" json:"score"`
	AvgPercentage decimal.Decimal `gorm:"type:numeric(6,2)" json:"avg_percentage"`
	Breakdown     datatypes.JSON  `json:"breakdown,omitempty"`
	Badge         string          `gorm:"type:varchar(32)" json:"badge"`
	Trophy        string          `gorm:"type:varchar(32)" json:"trophy,omitempty"`
	Time          string          `json:"time,omitempty"`
	Timestamps
}

func (s *TeamScore) BeforeCreate(tx *gorm.DB) error { ensureID(&s.ID); return nil }

func (TeamScore) ScoreMode() Mode                   { return ModeTeam }
func (TeamScore) XPColumn() string                  { return "score" }
func (s TeamScore) XPContribution() decimal.Decimal { return decimal.NewFromInt(int64(s.Score)) }
func (s TeamScore) Owner() string                   { return s.UserID }

// ChallengeModeScore is one side of a head-to-head challenge. Slot is 1 or 2,
// in submission order; both unique indexes together cap a challenge at two rows.
type ChallengeModeScore struct {
	ID                  string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ChallengeID         string         `gorm:"not null;uniqueIndex:idx_challenge_score_user;uniqueIndex:idx_challenge_score_slot" json:"challenge_id"`
	UserID              string         `gorm:"not null;index;uniqueIndex:idx_challenge_score_user" json:"user_id"`
	Slot                int            `gorm:"not null;uniqueIndex:idx_challenge_score_slot" json:"-"`
	Score               int            `gorm:"not null" json:"score"`
	Title               string         `json:"title"`
	AlignmentStrategy   int            `json:"alignment_strategy"`
	ObjectiveClarity    int            `json:"objective_clarity"`
	KeyResultQuality    int            `json:"key_result_quality"`
	InitiativeRelevance int            `json:"initiative_relevance"`
	ChallengeAdoption   int            `json:"challenge_adoption"`
	StrategyAlignment   datatypes.JSON `json:"strategy_alignment,omitempty"`
	ObjectiveAlignment  datatypes.JSON `json:"objective_alignment,omitempty"`
	KeyResultLog        datatypes.JSON `json:"key_result_log,omitempty"`
	Time                string         `json:"time,omitempty"`
	CreatedAt           time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

func (s *ChallengeModeScore) BeforeCreate(tx *gorm.DB) error { ensureID(&s.ID); return nil }

func (ChallengeModeScore) ScoreMode() Mode { return ModeChallenge }
func (ChallengeModeScore) XPColumn() string { return "score" }
func (s ChallengeModeScore) XPContribution() decimal.Decimal {
	return decimal.NewFromInt(int64(s.Score))
}
func (s ChallengeModeScore) Owner() string { return s.UserID }

// CertificationLevel is the campaign level that grants a certificate.
const CertificationLevel = 3

// CampaignModeScore is a campaign certification attempt. Totals are fractional.
type CampaignModeScore struct {
	ID          string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CampaignID  string          `gorm:"index;not null" json:"campaign_id"`
	UserID      string          `gorm:"index;not null" json:"user_id"`
	Level       int             `gorm:"not null" json:"level"`
	Sector      string          `json:"sector,omitempty"`
	Role        string          `json:"role,omitempty"`
	TotalScore  decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total_score"`
	Strengths   string          `gorm:"type:text" json:"strengths,omitempty"`
	Improvement string          `gorm:"type:text" json:"improvement,omitempty"`
	CreatedAt   time.Time       `json:"created_at" gorm:"autoCreateTime"`
}

func (s *CampaignModeScore) BeforeCreate(tx *gorm.DB) error { ensureID(&s.ID); return nil }

func (CampaignModeScore) ScoreMode() Mode                   { return ModeCampaign }
func (CampaignModeScore) XPColumn() string                  { return "total_score" }
func (s CampaignModeScore) XPContribution() decimal.Decimal { return s.TotalScore }
func (s CampaignModeScore) Owner() string                   { return s.UserID }

// BonusScore is an LLM-evaluated bonus training result.
type BonusScore struct {
	ID              string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID          string         `gorm:"index;not null" json:"user_id"`
	ScenarioTitle   string         `json:"scenario_title"`
	FinalScore      int            `gorm:"not null" json:"final_score"`
	Badge           string         `gorm:"type:varchar(16)" json:"badge"`
	DimensionScores datatypes.JSON `json:"dimension_scores,omitempty"`
	Feedback        datatypes.JSON `json:"feedback,omitempty"`
	CreatedAt       time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

func (s *BonusScore) BeforeCreate(tx *gorm.DB) error { ensureID(&s.ID); return nil }

func (BonusScore) ScoreMode() Mode                   { return ModeBonus }
func (BonusScore) XPColumn() string                  { return "final_score" }
func (s BonusScore) XPContribution() decimal.Decimal { return decimal.NewFromInt(int64(s.FinalScore)) }
func (s BonusScore) Owner() string                   { return s.UserID }
