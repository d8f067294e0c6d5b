// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"fmt"
	"testing"

	"okr-progression-system/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB returns a migrated in-memory SQLite database private to t. A single
// connection keeps concurrent callers serialized the way row locks would.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// SeedUser mirrors one user with a username equal to its id.
func SeedUser(t testing.TB, db *gorm.DB, id string) models.User {
	t.Helper()
	u := models.User{ExternalUserID: id, Username: id, Email: id + "@example.test"}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
	return u
}

// SeedLadder creates tiers at levels 1..len(thresholds).
func SeedLadder(t testing.TB, db *gorm.DB, thresholds ...int64) []models.LevelTier {
	t.Helper()
	tiers := make([]models.LevelTier, len(thresholds))
	for i, th := range thresholds {
		tiers[i] = models.LevelTier{Level: i + 1, XPThreshold: th, Title: fmt.Sprintf("Level %d", i+1)}
	}
	if len(tiers) > 0 {
		if err := db.Create(&tiers).Error; err != nil {
			t.Fatalf("seed ladder: %v", err)
		}
	}
	return tiers
}
