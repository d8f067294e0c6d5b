package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Objective is a generated OKR objective stored against a strategy.
type Objective struct {
	ID          string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	StrategyID  string         `gorm:"index;not null" json:"strategy_id"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	Difficulty  string         `gorm:"type:varchar(16)" json:"difficulty,omitempty"`
	KeyResults  datatypes.JSON `json:"key_results,omitempty"`
	CreatedAt   time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

func (o *Objective) BeforeCreate(tx *gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
