package models

import "gorm.io/gorm"

// ChallengeStatus is the lifecycle state of a head-to-head challenge.
type ChallengeStatus string

const (
	ChallengePending ChallengeStatus = "PENDING"
	ChallengeReady   ChallengeStatus = "READY"
	ChallengeActive  ChallengeStatus = "ACTIVE"
)

// Challenge pairs a host with at most one player. PlayerID is set once and never cleared.
type Challenge struct {
	ID       string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Code     string          `gorm:"type:varchar(8);uniqueIndex;not null" json:"code"`
	HostID   string          `gorm:"index;not null" json:"host_id"`
	PlayerID *string         `gorm:"index" json:"player_id,omitempty"`
	Status   ChallengeStatus `gorm:"type:varchar(16);not null;default:'PENDING'" json:"status"`
	Timestamps
}

func (c *Challenge) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// InvitationStatus is the resolution state of a challenge invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "PENDING"
	InvitationAccepted InvitationStatus = "ACCEPTED"
	InvitationRejected InvitationStatus = "REJECTED"
)

// ChallengeInvitation offers the open slot of a challenge to one player.
type ChallengeInvitation struct {
	ID          string           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ChallengeID string           `gorm:"not null;uniqueIndex:idx_invitation_pair" json:"challenge_id"`
	PlayerID    string           `gorm:"not null;index;uniqueIndex:idx_invitation_pair" json:"player_id"`
	Status      InvitationStatus `gorm:"type:varchar(16);not null;default:'PENDING'" json:"status"`
	Challenge   *Challenge       `gorm:"foreignKey:ChallengeID" json:"challenge,omitempty"`
	Timestamps
}

func (i *ChallengeInvitation) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
