package services

import (
	"context"
	"testing"

	"okr-progression-system/models"
	"okr-progression-system/testutil"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func seedAllStreams(t *testing.T, db *gorm.DB, userID string) {
	t.Helper()
	rows := []any{
		&models.SoloScore{UserID: userID, Score: 80},
		&models.SoloScore{UserID: userID, Score: 20},
		&models.TeamScore{TeamID: "team-1", UserID: userID, Score: 50},
		&models.ChallengeModeScore{ChallengeID: "ch-1", UserID: userID, Slot: 1, Score: 70},
		&models.CampaignModeScore{CampaignID: "camp-1", UserID: userID, Level: 1, TotalScore: decimal.RequireFromString("12.5")},
		&models.CampaignModeScore{CampaignID: "camp-1", UserID: userID, Level: 2, TotalScore: decimal.RequireFromString("7.25")},
		&models.BonusScore{UserID: userID, FinalScore: 40},
	}
	for _, r := range rows {
		if err := db.Create(r).Error; err != nil {
			t.Fatalf("seed %T: %v", r, err)
		}
	}
}

func TestComputeTotalXP(t *testing.T) {
	db := testutil.OpenDB(t)
	seedAllStreams(t, db, "u1")
	seedAllStreams(t, db, "someone-else")

	xp, err := NewXPService(NewStore(db, 0)).ComputeTotalXP(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ComputeTotalXP() error: %v", err)
	}

	want := decimal.RequireFromString("279.75")
	if !xp.Total.Equal(want) {
		t.Errorf("Total = %s, want %s", xp.Total, want)
	}

	perMode := map[models.Mode]string{
		models.ModeSolo:      "100",
		models.ModeTeam:      "50",
		models.ModeChallenge: "70",
		models.ModeCampaign:  "19.75",
		models.ModeBonus:     "40",
	}
	for mode, v := range perMode {
		if got := xp.PerMode[mode]; !got.Equal(decimal.RequireFromString(v)) {
			t.Errorf("PerMode[%s] = %s, want %s", mode, got, v)
		}
	}
	if xp.Records[models.ModeSolo] != 2 || xp.Records[models.ModeCampaign] != 2 {
		t.Errorf("Records = %v, want 2 solo and 2 campaign", xp.Records)
	}
}

func TestComputeTotalXPNoScores(t *testing.T) {
	xp, err := NewXPService(NewStore(testutil.OpenDB(t), 0)).ComputeTotalXP(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("ComputeTotalXP() error: %v", err)
	}
	if !xp.Total.IsZero() {
		t.Errorf("Total = %s, want 0", xp.Total)
	}
	if len(xp.PerMode) != 5 {
		t.Errorf("len(PerMode) = %d, want every stream reported", len(xp.PerMode))
	}
}

// Summing XPContribution over loaded rows must agree with the SQL totals.
func TestRecordContributionsMatchAggregate(t *testing.T) {
	db := testutil.OpenDB(t)
	seedAllStreams(t, db, "u1")
	seedAllStreams(t, db, "someone-else")

	xp, err := NewXPService(NewStore(db, 0)).ComputeTotalXP(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ComputeTotalXP() error: %v", err)
	}

	var (
		solo      []models.SoloScore
		team      []models.TeamScore
		challenge []models.ChallengeModeScore
		campaign  []models.CampaignModeScore
		bonus     []models.BonusScore
	)
	for _, dst := range []any{&solo, &team, &challenge, &campaign, &bonus} {
		if err := db.Find(dst).Error; err != nil {
			t.Fatalf("load %T: %v", dst, err)
		}
	}
	var records []models.ScoreRecord
	for i := range solo {
		records = append(records, solo[i])
	}
	for i := range team {
		records = append(records, team[i])
	}
	for i := range challenge {
		records = append(records, challenge[i])
	}
	for i := range campaign {
		records = append(records, campaign[i])
	}
	for i := range bonus {
		records = append(records, bonus[i])
	}

	sums := map[models.Mode]decimal.Decimal{}
	total := decimal.Zero
	for _, r := range records {
		if r.Owner() != "u1" {
			continue
		}
		sums[r.ScoreMode()] = sums[r.ScoreMode()].Add(r.XPContribution())
		total = total.Add(r.XPContribution())
	}
	for mode, want := range xp.PerMode {
		if got := sums[mode]; !got.Equal(want) {
			t.Errorf("contributions[%s] = %s, aggregate %s", mode, got, want)
		}
	}
	if !total.Equal(xp.Total) {
		t.Errorf("contribution total = %s, aggregate %s", total, xp.Total)
	}
}
