package services

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// DefaultQueryTimeout bounds a store call when the caller did not configure one.
const DefaultQueryTimeout = 5 * time.Second

// Store is embedded by every service: the shared handle plus the query timeout.
type Store struct {
	DB      *gorm.DB
	Timeout time.Duration
}

func NewStore(db *gorm.DB, timeout time.Duration) Store {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return Store{DB: db, Timeout: timeout}
}

// conn returns a session bound to ctx with the query timeout applied.
func (s Store) conn(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	return s.DB.WithContext(ctx), cancel
}
