package models

import (
	"time"

	"gorm.io/gorm"
)

// TeamRole is a member's role within a team.
type TeamRole string

const (
	TeamRoleHost   TeamRole = "HOST"
	TeamRolePlayer TeamRole = "PLAYER"
)

// MaxTeamMembers caps memberships per team, host included.
const MaxTeamMembers = 5

type Team struct {
	ID      string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title   string       `gorm:"not null" json:"title"`
	Mission string       `gorm:"type:text" json:"mission,omitempty"`
	Slug    string       `gorm:"uniqueIndex;not null" json:"slug"`
	HostID  string       `gorm:"index;not null" json:"host_id"`
	Members []TeamMember `gorm:"foreignKey:TeamID" json:"members,omitempty"`
	Timestamps
}

func (t *Team) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

type TeamMember struct {
	ID       string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TeamID   string    `gorm:"not null;uniqueIndex:idx_team_member" json:"team_id"`
	UserID   string    `gorm:"not null;index;uniqueIndex:idx_team_member" json:"user_id"`
	Role     TeamRole  `gorm:"type:varchar(16);not null" json:"role"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

func (m *TeamMember) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
