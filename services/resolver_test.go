package services

import (
	"testing"

	"okr-progression-system/models"

	"github.com/shopspring/decimal"
)

func TestResolveLevel(t *testing.T) {
	tiers := []models.LevelTier{
		{Level: 1, XPThreshold: 0, Title: "Novice"},
		{Level: 2, XPThreshold: 100, Title: "Apprentice"},
		{Level: 3, XPThreshold: 250, Title: "Strategist"},
	}

	tests := []struct {
		xp   string
		want int
	}{
		{"0", 1},
		{"99.99", 1},
		{"100", 2},
		{"249", 2},
		{"250", 3},
		{"100000", 3},
	}
	for _, tt := range tests {
		got := ResolveLevel(tiers, decimal.RequireFromString(tt.xp))
		if got.Level != tt.want {
			t.Errorf("ResolveLevel(%s).Level = %d, want %d", tt.xp, got.Level, tt.want)
		}
	}
}

func TestResolveLevelDefaults(t *testing.T) {
	if got := ResolveLevel(nil, decimal.NewFromInt(500)); got != DefaultTier {
		t.Errorf("ResolveLevel(empty) = %+v, want DefaultTier", got)
	}

	// A ladder whose first tier demands XP leaves low scorers on the default.
	tiers := []models.LevelTier{{Level: 1, XPThreshold: 50, Title: "Starter"}}
	if got := ResolveLevel(tiers, decimal.NewFromInt(10)); got != DefaultTier {
		t.Errorf("ResolveLevel(below first) = %+v, want DefaultTier", got)
	}
}
