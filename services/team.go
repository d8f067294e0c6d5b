package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"okr-progression-system/models"
	"okr-progression-system/utils"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TeamService struct {
	Store
	TokenSecret []byte
	TokenTTL    time.Duration
}

func NewTeamService(store Store, tokenSecret string, tokenTTL time.Duration) *TeamService {
	return &TeamService{Store: store, TokenSecret: []byte(tokenSecret), TokenTTL: tokenTTL}
}

// CreatedTeam is a new team plus the link token other players join with.
type CreatedTeam struct {
	models.Team
	JoinToken string `json:"join_token"`
}

// CreateTeam creates the team and its single HOST membership together.
func (s *TeamService) CreateTeam(ctx context.Context, hostID, title, mission string) (*CreatedTeam, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ValidationError("team title is required")
	}
	if hostID == "" {
		return nil, ValidationError("host id is required")
	}

	id := uuid.NewString()
	team := models.Team{
		ID:      id,
		Title:   title,
		Mission: mission,
		Slug:    slug.Make(title) + "-" + id[:8],
		HostID:  hostID,
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&team).Error; err != nil {
			return fmt.Errorf("create team: %w", err)
		}
		host := models.TeamMember{TeamID: team.ID, UserID: hostID, Role: models.TeamRoleHost}
		if err := tx.Create(&host).Error; err != nil {
			return fmt.Errorf("create host membership: %w", err)
		}
		team.Members = []models.TeamMember{host}
		return nil
	})
	if err != nil {
		return nil, err
	}

	token, err := utils.SignTeamToken(s.TokenSecret, team.ID, s.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("sign team token: %w", err)
	}
	slog.Info("[TEAM] created", "team_id", team.ID, "slug", team.Slug, "host_id", hostID)
	return &CreatedTeam{Team: team, JoinToken: token}, nil
}

// AddMember is host-only. The team row is locked so the capacity check and
// the insert cannot interleave with another add.
func (s *TeamService) AddMember(ctx context.Context, teamID, requesterID, userID string, role models.TeamRole) (*models.TeamMember, error) {
	if role == "" {
		role = models.TeamRolePlayer
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	var member *models.TeamMember
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := lockTeam(tx, teamID); err != nil {
			return err
		}
		if err := requireHost(tx, teamID, requesterID); err != nil {
			return err
		}
		if err := validateMemberRole(role); err != nil {
			return err
		}
		m, err := addLocked(tx, teamID, userID, role)
		member = m
		return err
	})
	if err != nil {
		return nil, err
	}
	slog.Info("[TEAM] member added", "team_id", teamID, "user_id", userID, "by", requesterID)
	return member, nil
}

// JoinWithToken adds userID as a PLAYER of the team named in a signed join token.
func (s *TeamService) JoinWithToken(ctx context.Context, token, userID string) (*models.TeamMember, error) {
	teamID, err := utils.ParseTeamToken(s.TokenSecret, token)
	if err != nil {
		return nil, ValidationError("invalid or expired team token")
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	var member *models.TeamMember
	err = db.Transaction(func(tx *gorm.DB) error {
		if _, err := lockTeam(tx, teamID); err != nil {
			return err
		}
		m, err := addLocked(tx, teamID, userID, models.TeamRolePlayer)
		member = m
		return err
	})
	if err != nil {
		return nil, err
	}
	slog.Info("[TEAM] joined via token", "team_id", teamID, "user_id", userID)
	return member, nil
}

// UpdateRole is host-only and can never touch or grant the HOST role.
func (s *TeamService) UpdateRole(ctx context.Context, teamID, requesterID, userID string, role models.TeamRole) (*models.TeamMember, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var target models.TeamMember
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := lockTeam(tx, teamID); err != nil {
			return err
		}
		if err := requireHost(tx, teamID, requesterID); err != nil {
			return err
		}
		if err := validateMemberRole(role); err != nil {
			return err
		}
		if err := tx.Where("team_id = ? AND user_id = ?", teamID, userID).First(&target).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundError("user %s is not a member of team %s", userID, teamID)
			}
			return fmt.Errorf("find member: %w", err)
		}
		if target.Role == models.TeamRoleHost {
			return ValidationError("the host role cannot be changed")
		}
		if err := tx.Model(&models.TeamMember{}).Where("id = ?", target.ID).Update("role", role).Error; err != nil {
			return fmt.Errorf("update role: %w", err)
		}
		target.Role = role
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &target, nil
}

// TeamPatch carries the editable team fields. Nil fields are kept.
type TeamPatch struct {
	Title   *string `json:"title,omitempty"`
	Mission *string `json:"mission,omitempty"`
}

// UpdateTeam is host-only. The slug stays fixed so shared links keep working.
func (s *TeamService) UpdateTeam(ctx context.Context, teamID, requesterID string, patch TeamPatch) (*models.Team, error) {
	updates := map[string]any{}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, ValidationError("team title must not be empty")
		}
		updates["title"] = title
	}
	if patch.Mission != nil {
		updates["mission"] = *patch.Mission
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	var team *models.Team
	err := db.Transaction(func(tx *gorm.DB) error {
		t, err := lockTeam(tx, teamID)
		if err != nil {
			return err
		}
		if err := requireHost(tx, teamID, requesterID); err != nil {
			return err
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Team{}).Where("id = ?", teamID).Updates(updates).Error; err != nil {
				return fmt.Errorf("update team: %w", err)
			}
			if err := tx.Where("id = ?", teamID).First(t).Error; err != nil {
				return fmt.Errorf("reload team: %w", err)
			}
		}
		team = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("[TEAM] updated", "team_id", teamID, "by", requesterID)
	return team, nil
}

func (s *TeamService) Members(ctx context.Context, teamID string) ([]models.TeamMember, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	team, err := findTeam(db, teamID)
	if err != nil {
		return nil, err
	}
	return team.Members, nil
}

func validateMemberRole(role models.TeamRole) error {
	switch role {
	case models.TeamRolePlayer:
		return nil
	case models.TeamRoleHost:
		return ValidationError("the host role is assigned when the team is created")
	}
	return ValidationError("unknown team role %q", role)
}

func lockTeam(tx *gorm.DB, teamID string) (*models.Team, error) {
	var team models.Team
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", teamID).First(&team).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("team %s not found", teamID)
		}
		return nil, fmt.Errorf("lock team: %w", err)
	}
	return &team, nil
}

func requireHost(tx *gorm.DB, teamID, userID string) error {
	var n int64
	if err := tx.Model(&models.TeamMember{}).
		Where("team_id = ? AND user_id = ? AND role = ?", teamID, userID, models.TeamRoleHost).
		Count(&n).Error; err != nil {
		return fmt.Errorf("check host: %w", err)
	}
	if n == 0 {
		return ForbiddenError("only the team host can do this")
	}
	return nil
}

// addLocked expects the team row to be locked by the caller.
func addLocked(tx *gorm.DB, teamID, userID string, role models.TeamRole) (*models.TeamMember, error) {
	if userID == "" {
		return nil, ValidationError("user id is required")
	}
	var count int64
	if err := tx.Model(&models.TeamMember{}).Where("team_id = ?", teamID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("count members: %w", err)
	}
	if count >= models.MaxTeamMembers {
		return nil, CapacityError("team is full (%d members)", models.MaxTeamMembers)
	}
	var dup int64
	if err := tx.Model(&models.TeamMember{}).Where("team_id = ? AND user_id = ?", teamID, userID).Count(&dup).Error; err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if dup > 0 {
		return nil, ConflictError("user %s is already a member", userID)
	}

	m := models.TeamMember{TeamID: teamID, UserID: userID, Role: role}
	if err := tx.Create(&m).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ConflictError("user %s is already a member", userID)
		}
		return nil, fmt.Errorf("add member: %w", err)
	}
	return &m, nil
}
