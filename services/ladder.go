package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"okr-progression-system/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ladderLockKey is the Postgres advisory lock taken by every ladder mutation.
const ladderLockKey = 740_112

type TierInput struct {
	Level       int    `json:"level"`
	XPThreshold int64  `json:"xp_threshold"`
	Title       string `json:"title"`
}

// TierPatch changes some fields of one tier; nil fields are left alone.
type TierPatch struct {
	ID          string  `json:"id"`
	Level       *int    `json:"level,omitempty"`
	XPThreshold *int64  `json:"xp_threshold,omitempty"`
	Title       *string `json:"title,omitempty"`
}

// LadderService maintains the level ladder. Writes are serialized in-process
// and, on Postgres, across instances.
type LadderService struct {
	Store
	mu sync.Mutex
}

func NewLadderService(store Store) *LadderService {
	return &LadderService{Store: store}
}

func (s *LadderService) ListTiers(ctx context.Context) ([]models.LevelTier, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var tiers []models.LevelTier
	if err := db.Order("level ASC").Find(&tiers).Error; err != nil {
		return nil, fmt.Errorf("list tiers: %w", err)
	}
	return tiers, nil
}

// Resolve maps xp onto the current ladder.
func (s *LadderService) Resolve(ctx context.Context, xp decimal.Decimal) (models.LevelTier, error) {
	tiers, err := s.ListTiers(ctx)
	if err != nil {
		return models.LevelTier{}, err
	}
	return ResolveLevel(tiers, xp), nil
}

func (s *LadderService) CreateTier(ctx context.Context, in TierInput) (*models.LevelTier, error) {
	if err := validateTierInput(in); err != nil {
		return nil, err
	}

	tier := models.LevelTier{Level: in.Level, XPThreshold: in.XPThreshold, Title: strings.TrimSpace(in.Title)}
	err := s.mutate(ctx, func(tx *gorm.DB, tiers []models.LevelTier) error {
		levels := tierLevels(tiers)
		if containsLevel(levels, in.Level) {
			return ConflictError("level %d already exists", in.Level)
		}
		if next := nextAllowedLevel(levels); in.Level > next {
			return ValidationError("level %d skips ahead, next allowed level is %d", in.Level, next)
		}
		if err := validateLadder(append(tiers, tier)); err != nil {
			return err
		}
		if err := tx.Create(&tier).Error; err != nil {
			if isUniqueViolation(err) {
				return ConflictError("level %d already exists", in.Level)
			}
			return fmt.Errorf("create tier: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("[LADDER] tier created", "level", tier.Level, "xp_threshold", tier.XPThreshold, "title", tier.Title)
	return &tier, nil
}

// CreateTiersBatch appends a contiguous run of tiers above the current maximum
// in a single transaction.
func (s *LadderService) CreateTiersBatch(ctx context.Context, in []TierInput) ([]models.LevelTier, error) {
	if len(in) == 0 {
		return nil, ValidationError("batch is empty")
	}
	seen := make(map[int]bool, len(in))
	for _, t := range in {
		if err := validateTierInput(t); err != nil {
			return nil, err
		}
		if seen[t.Level] {
			return nil, ValidationError("level %d appears twice in batch", t.Level)
		}
		seen[t.Level] = true
	}

	batch := make([]models.LevelTier, len(in))
	for i, t := range in {
		batch[i] = models.LevelTier{Level: t.Level, XPThreshold: t.XPThreshold, Title: strings.TrimSpace(t.Title)}
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].Level < batch[j].Level })

	err := s.mutate(ctx, func(tx *gorm.DB, tiers []models.LevelTier) error {
		levels := tierLevels(tiers)
		for _, t := range batch {
			if containsLevel(levels, t.Level) {
				return ConflictError("level %d already exists", t.Level)
			}
		}
		start := maxLevel(levels) + 1
		for i, t := range batch {
			if t.Level != start+i {
				return ValidationError("batch levels must be contiguous starting at %d", start)
			}
		}
		if err := validateLadder(append(append([]models.LevelTier{}, tiers...), batch...)); err != nil {
			return err
		}
		if err := tx.Create(&batch).Error; err != nil {
			if isUniqueViolation(err) {
				return ConflictError("batch overlaps existing levels")
			}
			return fmt.Errorf("create tiers: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("[LADDER] tier batch created", "count", len(batch), "from", batch[0].Level, "to", batch[len(batch)-1].Level)
	return batch, nil
}

// UpdateTier applies patch to one tier. A level change is only allowed onto
// the slot directly above every other tier.
func (s *LadderService) UpdateTier(ctx context.Context, patch TierPatch) (*models.LevelTier, error) {
	if err := validateTierPatch(patch); err != nil {
		return nil, err
	}

	var updated models.LevelTier
	err := s.mutate(ctx, func(tx *gorm.DB, tiers []models.LevelTier) error {
		idx := indexOfTier(tiers, patch.ID)
		if idx < 0 {
			return NotFoundError("tier %s not found", patch.ID)
		}
		current := tiers[idx]

		if err := checkLevelMove(tiers, idx, patch.Level); err != nil {
			return err
		}

		projected := append([]models.LevelTier{}, tiers...)
		projected[idx] = applyPatch(current, patch)
		if err := validateLadder(projected); err != nil {
			return err
		}

		updated = projected[idx]
		if err := tx.Model(&models.LevelTier{}).Where("id = ?", updated.ID).Updates(map[string]any{
			"level":        updated.Level,
			"xp_threshold": updated.XPThreshold,
			"title":        updated.Title,
		}).Error; err != nil {
			if isUniqueViolation(err) {
				return ConflictError("level %d already exists", updated.Level)
			}
			return fmt.Errorf("update tier: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("[LADDER] tier updated", "id", updated.ID, "level", updated.Level)
	return &updated, nil
}

// UpdateTiersBatch applies several patches atomically. Each level change
// follows the same rule as UpdateTier, checked against the ladder as the
// earlier patches left it; thresholds are validated on the final ladder.
func (s *LadderService) UpdateTiersBatch(ctx context.Context, patches []TierPatch) ([]models.LevelTier, error) {
	if len(patches) == 0 {
		return nil, ValidationError("batch is empty")
	}
	seen := make(map[string]bool, len(patches))
	for _, p := range patches {
		if err := validateTierPatch(p); err != nil {
			return nil, err
		}
		if seen[p.ID] {
			return nil, ValidationError("tier %s appears twice in batch", p.ID)
		}
		seen[p.ID] = true
	}

	var result []models.LevelTier
	err := s.mutate(ctx, func(tx *gorm.DB, tiers []models.LevelTier) error {
		projected := append([]models.LevelTier{}, tiers...)
		for _, p := range patches {
			idx := indexOfTier(projected, p.ID)
			if idx < 0 {
				return NotFoundError("tier %s not found", p.ID)
			}
			if err := checkLevelMove(projected, idx, p.Level); err != nil {
				return err
			}
			projected[idx] = applyPatch(projected[idx], p)
		}
		if err := validateLadder(projected); err != nil {
			return err
		}

		for _, p := range patches {
			t := projected[indexOfTier(projected, p.ID)]
			if err := tx.Model(&models.LevelTier{}).Where("id = ?", t.ID).Updates(map[string]any{
				"level":        t.Level,
				"xp_threshold": t.XPThreshold,
				"title":        t.Title,
			}).Error; err != nil {
				if isUniqueViolation(err) {
					return ConflictError("level %d already exists", t.Level)
				}
				return fmt.Errorf("update tier %s: %w", t.ID, err)
			}
		}
		result = projected
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Level < result[j].Level })
	slog.Info("[LADDER] tier batch updated", "count", len(patches))
	return result, nil
}

// DeleteTier removes the highest tier. Deleting any other tier would reopen a
// gap and is rejected; nothing is renumbered.
func (s *LadderService) DeleteTier(ctx context.Context, id string) error {
	err := s.mutate(ctx, func(tx *gorm.DB, tiers []models.LevelTier) error {
		idx := indexOfTier(tiers, id)
		if idx < 0 {
			return NotFoundError("tier %s not found", id)
		}
		if top := maxLevel(tierLevels(tiers)); tiers[idx].Level != top {
			return ValidationError("only the highest level (%d) can be deleted", top)
		}
		result := tx.Where("id = ?", id).Delete(&models.LevelTier{})
		if result.Error != nil {
			return fmt.Errorf("delete tier: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return NotFoundError("tier %s not found", id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.Info("[LADDER] tier deleted", "id", id)
	return nil
}

func (s *LadderService) mutate(ctx context.Context, fn func(tx *gorm.DB, tiers []models.LevelTier) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, cancel := s.conn(ctx)
	defer cancel()

	return db.Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", ladderLockKey).Error; err != nil {
				return fmt.Errorf("lock ladder: %w", err)
			}
		}
		var tiers []models.LevelTier
		if err := tx.Order("level ASC").Find(&tiers).Error; err != nil {
			return fmt.Errorf("load ladder: %w", err)
		}
		return fn(tx, tiers)
	})
}

// checkLevelMove allows tiers[idx] to keep its level or to take the slot
// directly above every other tier. Nothing else may be renumbered.
func checkLevelMove(tiers []models.LevelTier, idx int, level *int) error {
	if level == nil || *level == tiers[idx].Level {
		return nil
	}
	others := append(append([]models.LevelTier{}, tiers[:idx]...), tiers[idx+1:]...)
	otherLevels := tierLevels(others)
	if containsLevel(otherLevels, *level) {
		return ConflictError("level %d already exists", *level)
	}
	if want := maxLevel(otherLevels) + 1; *level != want {
		return ValidationError("tier can only move to level %d", want)
	}
	return nil
}

// nextAllowedLevel is the first positive integer missing from levels.
func nextAllowedLevel(levels []int) int {
	sorted := append([]int{}, levels...)
	sort.Ints(sorted)
	next := 1
	for _, l := range sorted {
		if l == next {
			next++
		} else if l > next {
			break
		}
	}
	return next
}

// validateLadder checks that tiers hold exactly levels 1..N with strictly
// increasing thresholds.
func validateLadder(tiers []models.LevelTier) error {
	sorted := append([]models.LevelTier{}, tiers...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Level < sorted[j].Level })
	for i, t := range sorted {
		if t.Level != i+1 {
			return ValidationError("ladder must hold levels 1..%d without gaps", len(sorted))
		}
		if i > 0 && t.XPThreshold <= sorted[i-1].XPThreshold {
			return ValidationError("xp threshold of level %d must exceed %d", t.Level, sorted[i-1].XPThreshold)
		}
	}
	return nil
}

func validateTierInput(in TierInput) error {
	switch {
	case in.Level < 1:
		return ValidationError("level must be a positive integer")
	case in.XPThreshold < 0:
		return ValidationError("xp threshold must not be negative")
	case strings.TrimSpace(in.Title) == "":
		return ValidationError("title is required")
	}
	return nil
}

func validateTierPatch(p TierPatch) error {
	if p.ID == "" {
		return ValidationError("tier id is required")
	}
	if p.Level != nil && *p.Level < 1 {
		return ValidationError("level must be a positive integer")
	}
	if p.XPThreshold != nil && *p.XPThreshold < 0 {
		return ValidationError("xp threshold must not be negative")
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ValidationError("title must not be empty")
	}
	return nil
}

func applyPatch(t models.LevelTier, p TierPatch) models.LevelTier {
	if p.Level != nil {
		t.Level = *p.Level
	}
	if p.XPThreshold != nil {
		t.XPThreshold = *p.XPThreshold
	}
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	return t
}

func tierLevels(tiers []models.LevelTier) []int {
	levels := make([]int, len(tiers))
	for i, t := range tiers {
		levels[i] = t.Level
	}
	return levels
}

func containsLevel(levels []int, level int) bool {
	for _, l := range levels {
		if l == level {
			return true
		}
	}
	return false
}

func maxLevel(levels []int) int {
	top := 0
	for _, l := range levels {
		if l > top {
			top = l
		}
	}
	return top
}

func indexOfTier(tiers []models.LevelTier, id string) int {
	for i, t := range tiers {
		if t.ID == id {
			return i
		}
	}
	return -1
}
