package services

import (
	"context"
	"testing"
	"time"

	"okr-progression-system/models"
	"okr-progression-system/testutil"
)

func TestWeeklyActivity(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	svc := NewProgressionService(NewStore(db, 0))

	now := time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)
	since := now.AddDate(0, 0, -7)
	for _, id := range []string{"u1", "u2", "u3"} {
		testutil.SeedUser(t, db, id)
	}

	rows := []any{
		&models.SoloScore{UserID: "u1", Score: 70, Badge: "Bronze Star", Timestamps: models.Timestamps{CreatedAt: now.AddDate(0, 0, -3)}},
		&models.BonusScore{UserID: "u1", FinalScore: 91, Badge: BadgeGold, CreatedAt: now.AddDate(0, 0, -1)},
		&models.SoloScore{UserID: "u2", Score: 99, Timestamps: models.Timestamps{CreatedAt: now.AddDate(0, 0, -10)}},
	}
	for _, r := range rows {
		if err := db.Create(r).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	got, err := svc.WeeklyActivity(ctx, since)
	if err != nil {
		t.Fatalf("WeeklyActivity() error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}

	u1 := got[0]
	if u1.UserID != "u1" || u1.Type != ActivityActive || u1.Mode != models.ModeBonus || u1.Score != 91 || u1.Badge != BadgeGold {
		t.Errorf("u1 = %+v, want active bonus 91 Gold", u1)
	}
	if u1.Email != "u1@example.test" || u1.Name != "u1" {
		t.Errorf("u1 contact = %s/%s", u1.Email, u1.Name)
	}
	for _, s := range got[1:] {
		if s.Type != ActivityInactive || s.At != nil {
			t.Errorf("%s = %+v, want inactive", s.UserID, s)
		}
	}
}
