package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"okr-progression-system/models"

	"gorm.io/gorm"
)

// Notifier receives side effects that must not block the request path.
type Notifier interface {
	Enqueue(task Task) bool
}

// Task is a queued notification. Kind names the template the notification
// collaborator renders.
type Task struct {
	Kind    string         `json:"kind"`
	UserID  string         `json:"user_id"`
	Payload map[string]any `json:"payload"`
}

const TaskChallengeInvitation = "challenge.invitation"

type InvitationService struct {
	Store
	Notifier Notifier
}

func NewInvitationService(store Store, notifier Notifier) *InvitationService {
	return &InvitationService{Store: store, Notifier: notifier}
}

// SkippedInvite explains why a batch entry produced no invitation.
type SkippedInvite struct {
	PlayerID string `json:"player_id"`
	Reason   string `json:"reason"`
}

type BatchInviteResult struct {
	Invited []models.ChallengeInvitation `json:"invited"`
	Skipped []SkippedInvite              `json:"skipped"`
}

// Invite offers the challenge's open slot to playerID. A repeated invite is a conflict.
func (s *InvitationService) Invite(ctx context.Context, challengeID, hostID, playerID string) (*models.ChallengeInvitation, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	ch, err := s.invitable(db, challengeID, hostID)
	if err != nil {
		return nil, err
	}
	return s.inviteOne(db, ch, playerID)
}

// InviteMany applies the same rules as Invite per player. Per-player failures
// are reported as skipped rather than failing the whole batch.
func (s *InvitationService) InviteMany(ctx context.Context, challengeID, hostID string, playerIDs []string) (*BatchInviteResult, error) {
	if len(playerIDs) == 0 {
		return nil, ValidationError("no players to invite")
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	ch, err := s.invitable(db, challengeID, hostID)
	if err != nil {
		return nil, err
	}

	out := &BatchInviteResult{Invited: []models.ChallengeInvitation{}, Skipped: []SkippedInvite{}}
	seen := make(map[string]bool, len(playerIDs))
	for _, pid := range playerIDs {
		if seen[pid] {
			out.Skipped = append(out.Skipped, SkippedInvite{PlayerID: pid, Reason: "listed twice"})
			continue
		}
		seen[pid] = true

		inv, err := s.inviteOne(db, ch, pid)
		if err != nil {
			if KindOf(err) == "" {
				return nil, err
			}
			out.Skipped = append(out.Skipped, SkippedInvite{PlayerID: pid, Reason: err.Error()})
			continue
		}
		out.Invited = append(out.Invited, *inv)
	}
	slog.Info("[INVITE] batch processed", "challenge_id", challengeID, "invited", len(out.Invited), "skipped", len(out.Skipped))
	return out, nil
}

func (s *InvitationService) invitable(db *gorm.DB, challengeID, hostID string) (*models.Challenge, error) {
	ch, err := loadChallenge(db, challengeID)
	if err != nil {
		return nil, err
	}
	if ch.HostID != hostID {
		return nil, ForbiddenError("only the host can invite players")
	}
	if ch.PlayerID != nil {
		return nil, ConflictError("challenge already has a player")
	}
	if ch.Status != models.ChallengePending {
		return nil, ValidationError("challenge is not open for invitations")
	}
	return ch, nil
}

func (s *InvitationService) inviteOne(db *gorm.DB, ch *models.Challenge, playerID string) (*models.ChallengeInvitation, error) {
	if playerID == "" {
		return nil, ValidationError("player id is required")
	}
	if playerID == ch.HostID {
		return nil, ValidationError("host cannot invite themselves")
	}

	var user models.User
	if err := db.Where("external_user_id = ?", playerID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("user %s not found", playerID)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	inv := models.ChallengeInvitation{ChallengeID: ch.ID, PlayerID: playerID, Status: models.InvitationPending}
	if err := db.Create(&inv).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ConflictError("player %s is already invited", playerID)
		}
		return nil, fmt.Errorf("create invitation: %w", err)
	}

	slog.Info("[INVITE] sent", "challenge_id", ch.ID, "player_id", playerID)
	if s.Notifier != nil {
		s.Notifier.Enqueue(Task{
			Kind:   TaskChallengeInvitation,
			UserID: playerID,
			Payload: map[string]any{
				"invitation_id": inv.ID,
				"challenge_id":  ch.ID,
				"code":          ch.Code,
				"host_id":       ch.HostID,
				"email":         user.Email,
				"name":          user.DisplayName(),
			},
		})
	}
	return &inv, nil
}

// ListForPlayer returns the player's pending invitations with their challenges.
func (s *InvitationService) ListForPlayer(ctx context.Context, playerID string) ([]models.ChallengeInvitation, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var invs []models.ChallengeInvitation
	if err := db.Preload("Challenge").
		Where("player_id = ? AND status = ?", playerID, models.InvitationPending).
		Order("created_at DESC").
		Find(&invs).Error; err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return invs, nil
}

// Respond resolves an invitation once. Accepting claims the challenge slot in
// the same transaction, so a challenge filled in the meantime rolls back.
func (s *InvitationService) Respond(ctx context.Context, invitationID, userID string, accept bool) (*models.ChallengeInvitation, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var inv models.ChallengeInvitation
	if err := db.Where("id = ?", invitationID).First(&inv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("invitation %s not found", invitationID)
		}
		return nil, fmt.Errorf("find invitation: %w", err)
	}
	if inv.PlayerID != userID {
		return nil, ForbiddenError("invitation belongs to another player")
	}

	next := models.InvitationRejected
	if accept {
		next = models.InvitationAccepted
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.ChallengeInvitation{}).
			Where("id = ? AND status = ?", inv.ID, models.InvitationPending).
			Update("status", next)
		if result.Error != nil {
			return fmt.Errorf("resolve invitation: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ConflictError("invitation was already answered")
		}
		if !accept {
			return nil
		}

		ch, err := loadChallenge(tx, inv.ChallengeID)
		if err != nil {
			return err
		}
		if err := checkJoinable(*ch, userID); err != nil {
			return err
		}
		return claimSlot(tx, ch.ID, userID)
	})
	if err != nil {
		return nil, err
	}

	inv.Status = next
	slog.Info("[INVITE] answered", "invitation_id", inv.ID, "status", next)
	return &inv, nil
}
