package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"okr-progression-system/models"
	"okr-progression-system/utils"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	joinCodeAttempts   = 5
	maxChallengeScores = 2
)

// ChallengeService drives the PENDING → READY → ACTIVE lifecycle.
type ChallengeService struct {
	Store
	Leaderboards *LeaderboardService
}

func NewChallengeService(store Store, leaderboards *LeaderboardService) *ChallengeService {
	return &ChallengeService{Store: store, Leaderboards: leaderboards}
}

func (s *ChallengeService) Create(ctx context.Context, hostID string) (*models.Challenge, error) {
	if hostID == "" {
		return nil, ValidationError("host id is required")
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	for attempt := 0; attempt < joinCodeAttempts; attempt++ {
		code, err := utils.GenerateJoinCode()
		if err != nil {
			return nil, fmt.Errorf("generate join code: %w", err)
		}
		ch := models.Challenge{Code: code, HostID: hostID, Status: models.ChallengePending}
		err = db.Create(&ch).Error
		if err == nil {
			slog.Info("[CHALLENGE] created", "challenge_id", ch.ID, "code", ch.Code, "host_id", hostID)
			return &ch, nil
		}
		if !isUniqueViolation(err) {
			return nil, fmt.Errorf("create challenge: %w", err)
		}
		slog.Debug("[CHALLENGE] join code collision, retrying", "code", code)
	}
	return nil, ConflictError("could not allocate a unique join code")
}

func (s *ChallengeService) Get(ctx context.Context, id string) (*models.Challenge, error) {
	db, cancel := s.conn(ctx)
	defer cancel()
	return loadChallenge(db, id)
}

// Join assigns userID as the player of the challenge identified by code.
func (s *ChallengeService) Join(ctx context.Context, code, userID string) (*models.Challenge, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	db, cancel := s.conn(ctx)
	defer cancel()

	var ch models.Challenge
	if err := db.Where("code = ?", code).First(&ch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("no challenge with code %s", code)
		}
		return nil, fmt.Errorf("find challenge: %w", err)
	}
	if err := checkJoinable(ch, userID); err != nil {
		return nil, err
	}
	if err := claimSlot(db, ch.ID, userID); err != nil {
		return nil, err
	}

	ch.PlayerID = &userID
	ch.Status = models.ChallengeReady
	slog.Info("[CHALLENGE] player joined", "challenge_id", ch.ID, "player_id", userID)
	return &ch, nil
}

func checkJoinable(ch models.Challenge, userID string) error {
	if ch.PlayerID != nil {
		return ConflictError("challenge already has a player")
	}
	if userID == ch.HostID {
		return ValidationError("host cannot join their own challenge")
	}
	if ch.Status != models.ChallengePending {
		return ValidationError("challenge is not open for joining")
	}
	return nil
}

// claimSlot sets the player in one conditional update; exactly one concurrent
// caller sees a row affected.
func claimSlot(db *gorm.DB, challengeID, userID string) error {
	result := db.Model(&models.Challenge{}).
		Where("id = ? AND player_id IS NULL AND status = ?", challengeID, models.ChallengePending).
		Updates(map[string]any{"player_id": userID, "status": models.ChallengeReady})
	if result.Error != nil {
		return fmt.Errorf("claim challenge slot: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ConflictError("challenge was filled by another player")
	}
	return nil
}

func (s *ChallengeService) Start(ctx context.Context, id, requesterID string) (*models.Challenge, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	ch, err := loadChallenge(db, id)
	if err != nil {
		return nil, err
	}
	if requesterID != ch.HostID {
		return nil, ForbiddenError("only the host can start the challenge")
	}
	if ch.Status != models.ChallengeReady {
		return nil, ValidationError("challenge must be READY to start, is %s", ch.Status)
	}

	result := db.Model(&models.Challenge{}).
		Where("id = ? AND status = ?", id, models.ChallengeReady).
		Update("status", models.ChallengeActive)
	if result.Error != nil {
		return nil, fmt.Errorf("start challenge: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ConflictError("challenge was already started")
	}

	ch.Status = models.ChallengeActive
	slog.Info("[CHALLENGE] started", "challenge_id", id)
	return ch, nil
}

// ScoreSubmission is the evaluated breakdown for one challenge participant.
type ScoreSubmission struct {
	Score               int            `json:"score"`
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
}

// SubmitScore stores userID's score. The (challenge, user) and (challenge,
// slot) unique indexes reject duplicates and a third scorer without a
// read-then-write window.
func (s *ChallengeService) SubmitScore(ctx context.Context, challengeID, userID string, sub ScoreSubmission) (*models.ChallengeModeScore, error) {
	if sub.Score < 0 || sub.Score > 100 {
		return nil, ValidationError("score must be between 0 and 100")
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	if _, err := loadChallenge(db, challengeID); err != nil {
		return nil, err
	}
	submitted, err := hasChallengeScore(db, challengeID, userID)
	if err != nil {
		return nil, err
	}
	if submitted {
		return nil, ConflictError("score already submitted for this challenge")
	}

	row := models.ChallengeModeScore{
		ChallengeID:         challengeID,
		UserID:              userID,
		Score:               sub.Score,
		Title:               sub.Title,
		AlignmentStrategy:   sub.AlignmentStrategy,
		ObjectiveClarity:    sub.ObjectiveClarity,
		KeyResultQuality:    sub.KeyResultQuality,
		InitiativeRelevance: sub.InitiativeRelevance,
		ChallengeAdoption:   sub.ChallengeAdoption,
		StrategyAlignment:   sub.StrategyAlignment,
		ObjectiveAlignment:  sub.ObjectiveAlignment,
		KeyResultLog:        sub.KeyResultLog,
		Time:                sub.Time,
	}
	for slot := 1; slot <= maxChallengeScores; slot++ {
		row.Slot = slot
		err := db.Create(&row).Error
		if err == nil {
			slog.Info("[CHALLENGE] score submitted", "challenge_id", challengeID, "user_id", userID, "score", row.Score, "slot", slot)
			if s.Leaderboards != nil {
				s.Leaderboards.Invalidate(ctx, models.ModeChallenge, challengeID)
			}
			return &row, nil
		}
		if !isUniqueViolation(err) {
			return nil, fmt.Errorf("store challenge score: %w", err)
		}
		submitted, cerr := hasChallengeScore(db, challengeID, userID)
		if cerr != nil {
			return nil, cerr
		}
		if submitted {
			return nil, ConflictError("score already submitted for this challenge")
		}
	}
	return nil, CapacityError("challenge already has %d scores", maxChallengeScores)
}

func hasChallengeScore(db *gorm.DB, challengeID, userID string) (bool, error) {
	var n int64
	if err := db.Model(&models.ChallengeModeScore{}).
		Where("challenge_id = ? AND user_id = ?", challengeID, userID).
		Count(&n).Error; err != nil {
		return false, fmt.Errorf("check challenge score: %w", err)
	}
	return n > 0, nil
}

type ChallengeResult struct {
	Position  string                     `json:"position"`
	UserID    string                     `json:"user_id"`
	Name      string                     `json:"name"`
	Score     int                        `json:"score"`
	Breakdown *models.ChallengeModeScore `json:"breakdown,omitempty"`
}

type ChallengeResults struct {
	ChallengeID string            `json:"challenge_id"`
	Completed   bool              `json:"completed"`
	Results     []ChallengeResult `json:"results"`
}

var positions = [maxChallengeScores]string{"1st", "2nd"}

// Results ranks the submitted scores. Equal scores go to the earlier
// submission. Only the viewer's own row carries the full breakdown.
func (s *ChallengeService) Results(ctx context.Context, challengeID, viewerID string) (*ChallengeResults, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var rows []models.ChallengeModeScore
	if err := db.Where("challenge_id = ?", challengeID).
		Order("score DESC").Order("slot ASC").
		Limit(maxChallengeScores).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load challenge scores: %w", err)
	}
	if len(rows) == 0 {
		return nil, NotFoundError("no scores submitted for challenge %s", challengeID)
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.UserID
	}
	var users []models.User
	if err := db.Where("external_user_id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load challenge users: %w", err)
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ExternalUserID] = u.DisplayName()
	}

	out := &ChallengeResults{ChallengeID: challengeID, Completed: len(rows) == maxChallengeScores}
	for i, r := range rows {
		res := ChallengeResult{Position: positions[i], UserID: r.UserID, Name: r.UserID, Score: r.Score}
		if n, ok := names[r.UserID]; ok {
			res.Name = n
		}
		if r.UserID == viewerID {
			row := r
			res.Breakdown = &row
		}
		out.Results = append(out.Results, res)
	}
	return out, nil
}

func loadChallenge(db *gorm.DB, id string) (*models.Challenge, error) {
	var ch models.Challenge
	if err := db.Where("id = ?", id).First(&ch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("challenge %s not found", id)
		}
		return nil, fmt.Errorf("find challenge: %w", err)
	}
	return &ch, nil
}
