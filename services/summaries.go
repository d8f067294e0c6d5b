package services

import (
	"context"
	"errors"
	"fmt"

	"okr-progression-system/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// recentSoloWindow is how many of the latest solo records feed the summary.
const recentSoloWindow = 5

const badgeParticipant = "Participant"

var hundred = decimal.NewFromInt(100)

// RewardsSummary reports trophies and badges over the latest solo records.
type RewardsSummary struct {
	UserID       string             `json:"user_id"`
	TotalRecords int64              `json:"total_records"`
	Trophies     int                `json:"trophies"`
	Badges       int                `json:"badges"`
	SuccessRate  int64              `json:"success_rate"`
	Recent       []models.SoloScore `json:"recent"`
}

// SoloRewardsSummary returns nil when the user has no solo records.
func (s *ScoreService) SoloRewardsSummary(ctx context.Context, userID string) (*RewardsSummary, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var total int64
	if err := db.Model(&models.SoloScore{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count solo scores: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	var recent []models.SoloScore
	if err := db.Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(recentSoloWindow).Find(&recent).Error; err != nil {
		return nil, fmt.Errorf("load solo scores: %w", err)
	}

	out := &RewardsSummary{UserID: userID, TotalRecords: total, Recent: recent}
	sum := decimal.Zero
	for _, r := range recent {
		if r.Trophy != "" {
			out.Trophies++
		}
		if earnedBadge(r.Badge) {
			out.Badges++
		}
		sum = sum.Add(r.XPContribution())
	}
	out.SuccessRate = sum.Div(decimal.NewFromInt(int64(len(recent)))).Round(0).IntPart()
	return out, nil
}

// MemberResult is one member's standing inside a team summary. A nil Score
// means the member has not submitted yet.
type MemberResult struct {
	UserID string          `json:"user_id"`
	Name   string          `json:"name"`
	Avatar *string         `json:"avatar,omitempty"`
	Role   models.TeamRole `json:"role"`
	Score  *int            `json:"score"`
}

type TeamAverage struct {
	Score         decimal.Decimal `json:"score"`
	AvgPercentage decimal.Decimal `json:"avg_percentage"`
	Submitted     int             `json:"submitted"`
}

type TeamSummary struct {
	TeamID  string         `json:"team_id"`
	Title   string         `json:"title"`
	Members []MemberResult `json:"members"`
	Average *TeamAverage   `json:"average"`
}

// TeamSummary lists every member with their latest team score. Average is
// nil until someone submits.
func (s *ScoreService) TeamSummary(ctx context.Context, teamID string) (*TeamSummary, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	team, err := findTeam(db, teamID)
	if err != nil {
		return nil, err
	}
	rows, err := teamScores(db, teamID)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]models.TeamScore, len(rows))
	for _, r := range rows {
		latest[r.Owner()] = r
	}

	ids := make([]string, len(team.Members))
	for i, m := range team.Members {
		ids[i] = m.UserID
	}
	var users []models.User
	if err := db.Where("external_user_id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.ExternalUserID] = u
	}

	out := &TeamSummary{TeamID: team.ID, Title: team.Title, Members: make([]MemberResult, 0, len(team.Members))}
	scoreSum, pctSum := decimal.Zero, decimal.Zero
	for _, m := range team.Members {
		res := MemberResult{UserID: m.UserID, Name: m.UserID, Role: m.Role}
		if u, ok := byID[m.UserID]; ok {
			res.Name = u.DisplayName()
			res.Avatar = u.ProfilePictureURL
		}
		if r, ok := latest[m.UserID]; ok {
			score := r.Score
			res.Score = &score
			scoreSum = scoreSum.Add(r.XPContribution())
			pctSum = pctSum.Add(r.AvgPercentage)
		}
		out.Members = append(out.Members, res)
	}

	if n := countSubmitted(out.Members); n > 0 {
		d := decimal.NewFromInt(int64(n))
		out.Average = &TeamAverage{
			Score:         scoreSum.Div(d).Round(2),
			AvgPercentage: pctSum.Div(d).Round(2),
			Submitted:     n,
		}
	}
	return out, nil
}

// TeamStanding is a team's aggregate result and its rank among all teams
// by average score.
type TeamStanding struct {
	TeamID               string          `json:"team_id"`
	AverageScore         decimal.Decimal `json:"average_score"`
	AverageRemainingTime decimal.Decimal `json:"average_remaining_time"`
	Trophies             int             `json:"trophies"`
	Badges               int             `json:"badges"`
	Achievements         []string        `json:"achievements"`
	SuccessRate          decimal.Decimal `json:"success_rate"`
	Rank                 int             `json:"rank"`
	TotalTeams           int             `json:"total_teams"`
}

// TeamStanding returns nil when the team has no scores yet.
func (s *ScoreService) TeamStanding(ctx context.Context, teamID string) (*TeamStanding, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	if _, err := findTeam(db, teamID); err != nil {
		return nil, err
	}
	rows, err := teamScores(db, teamID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	out := &TeamStanding{TeamID: teamID, Achievements: make([]string, 0, len(rows))}
	sum, timeSum := decimal.Zero, decimal.Zero
	timed := 0
	for _, r := range rows {
		sum = sum.Add(r.XPContribution())
		if t, err := decimal.NewFromString(r.Time); err == nil {
			timeSum = timeSum.Add(t)
			timed++
		}
		if r.Trophy != "" {
			out.Trophies++
		}
		if earnedBadge(r.Badge) {
			out.Badges++
		}
		if r.Title != "" {
			out.Achievements = append(out.Achievements, r.Title)
		}
	}
	n := decimal.NewFromInt(int64(len(rows)))
	out.AverageScore = sum.Div(n).Round(2)
	out.SuccessRate = sum.Div(n.Mul(hundred)).Mul(hundred).Round(2)
	if timed > 0 {
		out.AverageRemainingTime = timeSum.Div(decimal.NewFromInt(int64(timed))).Round(2)
	}

	var ranking []struct {
		TeamID string
		Avg    decimal.Decimal
	}
	if err := db.Model(&models.TeamScore{}).
		Select("team_id, AVG(score) AS avg").
		Group("team_id").
		Order("avg DESC").Order("team_id ASC").
		Scan(&ranking).Error; err != nil {
		return nil, fmt.Errorf("rank teams: %w", err)
	}
	out.TotalTeams = len(ranking)
	for i, r := range ranking {
		if r.TeamID == teamID {
			out.Rank = i + 1
			break
		}
	}
	return out, nil
}

// CampaignResult is the latest campaign attempt with its reward.
type CampaignResult struct {
	models.CampaignModeScore
	Reward Reward `json:"reward"`
	Title  string `json:"title"`
}

// LatestCampaignResult returns nil when the user has never played a campaign.
func (s *ScoreService) LatestCampaignResult(ctx context.Context, userID string) (*CampaignResult, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var row models.CampaignModeScore
	if err := db.Where("user_id = ?", userID).Order("created_at DESC").Order("id DESC").First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load campaign result: %w", err)
	}
	score := int(row.TotalScore.IntPart())
	return &CampaignResult{CampaignModeScore: row, Reward: AssignRewards(score), Title: campaignTitle(score)}, nil
}

var campaignTitles = []struct {
	min   int
	title string
}{
	{100, "Perfect Performer"},
	{90, "Top Performer"},
	{80, "High Achiever"},
	{70, "Rising Star"},
}

func campaignTitle(score int) string {
	for _, t := range campaignTitles {
		if score >= t.min {
			return t.title
		}
	}
	return badgeParticipant
}

type Certification struct {
	ID         string          `json:"id"`
	CampaignID string          `json:"campaign_id"`
	Title      string          `json:"title"`
	Badge      string          `json:"badge"`
	Strengths  string          `json:"strengths,omitempty"`
	TotalScore decimal.Decimal `json:"total_score"`
	Date       string          `json:"date"`
}

type CertificationProgress struct {
	Certifications []Certification `json:"certifications"`
	Earned         int             `json:"earned"`
	Total          int             `json:"total"`
}

const badgeFeedback = "Feedback"

var certificateTiers = []struct {
	min   decimal.Decimal
	badge string
	title string
}{
	{decimal.NewFromInt(90), "Gold Badge", "Navigator Expert Certificate"},
	{decimal.NewFromInt(80), "Silver Badge", "Confirmed Navigator Certificate"},
	{decimal.NewFromInt(70), "Bronze Badge", "Attestation of Participation"},
}

func certificateFor(total decimal.Decimal) (badge, title string) {
	for _, t := range certificateTiers {
		if total.GreaterThanOrEqual(t.min) {
			return t.badge, t.title
		}
	}
	return badgeFeedback, "Recommendation to replay the challenge"
}

// Certifications lists the user's certification-level campaign attempts,
// newest first. Earned counts the attempts that reached a badge.
func (s *ScoreService) Certifications(ctx context.Context, userID string) (*CertificationProgress, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var rows []models.CampaignModeScore
	if err := db.Where("user_id = ? AND level = ?", userID, models.CertificationLevel).
		Order("created_at DESC").Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load certifications: %w", err)
	}

	out := &CertificationProgress{Certifications: make([]Certification, 0, len(rows)), Total: len(rows)}
	for _, r := range rows {
		badge, title := certificateFor(r.TotalScore)
		if badge != badgeFeedback {
			out.Earned++
		}
		out.Certifications = append(out.Certifications, Certification{
			ID:         r.ID,
			CampaignID: r.CampaignID,
			Title:      title,
			Badge:      badge,
			Strengths:  r.Strengths,
			TotalScore: r.TotalScore,
			Date:       r.CreatedAt.Format("2006-01-02"),
		})
	}
	return out, nil
}

func findTeam(db *gorm.DB, teamID string) (*models.Team, error) {
	var team models.Team
	if err := db.Preload("Members", func(db *gorm.DB) *gorm.DB {
		return db.Order("joined_at ASC")
	}).Where("id = ?", teamID).First(&team).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NotFoundError("team %s not found", teamID)
		}
		return nil, fmt.Errorf("load team: %w", err)
	}
	return &team, nil
}

// teamScores is ordered oldest first so later rows win per member.
func teamScores(db *gorm.DB, teamID string) ([]models.TeamScore, error) {
	var rows []models.TeamScore
	if err := db.Where("team_id = ?", teamID).Order("created_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load team scores: %w", err)
	}
	return rows, nil
}

func earnedBadge(badge string) bool {
	return badge != "" && badge != badgeParticipant
}

func countSubmitted(members []MemberResult) int {
	n := 0
	for _, m := range members {
		if m.Score != nil {
			n++
		}
	}
	return n
}
