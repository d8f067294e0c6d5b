package services

import (
	"context"
	"fmt"
	"strings"

	"okr-progression-system/models"

	"gorm.io/gorm"
)

type ObjectiveService struct {
	Store
	Limiter *AttemptLimiter
}

func NewObjectiveService(store Store, limiter *AttemptLimiter) *ObjectiveService {
	return &ObjectiveService{Store: store, Limiter: limiter}
}

type ObjectiveBatch struct {
	StrategyID   string             `json:"strategy_id"`
	Objectives   []models.Objective `json:"objectives"`
	AttemptsLeft int                `json:"attempts_left"`
}

// Fetch returns a strategy's objectives. Each call spends one of the
// strategy's fetch attempts.
func (s *ObjectiveService) Fetch(ctx context.Context, strategyID string) (*ObjectiveBatch, error) {
	if strings.TrimSpace(strategyID) == "" {
		return nil, ValidationError("strategy id is required")
	}

	left := -1
	if s.Limiter != nil {
		n, err := s.Limiter.Hit(ctx, strategyID)
		if err != nil {
			return nil, err
		}
		left = n
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	var objs []models.Objective
	if err := db.Where("strategy_id = ?", strategyID).Order("created_at ASC").Find(&objs).Error; err != nil {
		return nil, fmt.Errorf("list objectives: %w", err)
	}
	return &ObjectiveBatch{StrategyID: strategyID, Objectives: objs, AttemptsLeft: left}, nil
}

// Save replaces a strategy's objectives with a freshly generated set.
func (s *ObjectiveService) Save(ctx context.Context, strategyID string, objs []models.Objective) ([]models.Objective, error) {
	if strings.TrimSpace(strategyID) == "" {
		return nil, ValidationError("strategy id is required")
	}
	for i := range objs {
		if strings.TrimSpace(objs[i].Title) == "" {
			return nil, ValidationError("objective %d has no title", i+1)
		}
		objs[i].ID = ""
		objs[i].StrategyID = strategyID
	}

	db, cancel := s.conn(ctx)
	defer cancel()

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("strategy_id = ?", strategyID).Delete(&models.Objective{}).Error; err != nil {
			return fmt.Errorf("clear objectives: %w", err)
		}
		if len(objs) == 0 {
			return nil
		}
		if err := tx.Create(&objs).Error; err != nil {
			return fmt.Errorf("save objectives: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return objs, nil
}
