package models

import "gorm.io/gorm"

// LevelTier is one rung of the progression ladder.
type LevelTier struct {
	ID          string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Level       int    `gorm:"uniqueIndex;not null" json:"level"`
	XPThreshold int64  `gorm:"not null" json:"xp_threshold"`
	Title       string `gorm:"type:varchar(64);not null" json:"title"`
	Timestamps
}

func (t *LevelTier) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
