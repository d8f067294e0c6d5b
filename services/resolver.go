package services

import (
	"okr-progression-system/models"

	"github.com/shopspring/decimal"
)

// DefaultTier is returned when xp is below every threshold or the ladder is empty.
var DefaultTier = models.LevelTier{Level: 1, XPThreshold: 0, Title: "Newcomer"}

// ResolveLevel returns the tier with the greatest threshold that xp meets.
func ResolveLevel(tiers []models.LevelTier, xp decimal.Decimal) models.LevelTier {
	best := -1
	for i, t := range tiers {
		if decimal.NewFromInt(t.XPThreshold).GreaterThan(xp) {
			continue
		}
		if best < 0 || t.XPThreshold > tiers[best].XPThreshold {
			best = i
		}
	}
	if best < 0 {
		return DefaultTier
	}
	return tiers[best]
}
