package services

// Reward is the badge and optional trophy earned by one solo or team score.
type Reward struct {
	Badge  string `json:"badge"`
	Trophy string `json:"trophy,omitempty"`
}

const (
	BadgeGold   = "Gold"
	BadgeSilver = "Silver"
	BadgeBronze = "Bronze"
	BadgeNone   = "None"
)

// rewardTiers are checked top-down; the first whose minimum is met wins.
var rewardTiers = []struct {
	min    int
	reward Reward
}{
	{100, Reward{Badge: "Platinum Star", Trophy: "Gold Trophy"}},
	{90, Reward{Badge: "Gold Star", Trophy: "Silver Trophy"}},
	{80, Reward{Badge: "Silver Star"}},
	{70, Reward{Badge: "Bronze Star"}},
}

// AssignRewards maps a 0-100 score onto its reward.
func AssignRewards(score int) Reward {
	for _, t := range rewardTiers {
		if score >= t.min {
			return t.reward
		}
	}
	return Reward{Badge: badgeParticipant}
}

// BonusBadge is the bonus training badge for a 0-100 score.
func BonusBadge(score int) string {
	switch {
	case score >= 90:
		return BadgeGold
	case score >= 75:
		return BadgeSilver
	case score >= 50:
		return BadgeBronze
	}
	return BadgeNone
}
