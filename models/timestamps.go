package models

import (
	"time"

	"github.com/google/uuid"
)

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// All lists every persisted model, in migration order.
func All() []any {
	return []any{
		&User{},
		&LevelTier{},
		&SoloScore{},
		&TeamScore{},
		&ChallengeModeScore{},
		&CampaignModeScore{},
		&BonusScore{},
		&Challenge{},
		&ChallengeInvitation{},
		&Team{},
		&TeamMember{},
		&Objective{},
	}
}
