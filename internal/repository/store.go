package repository

import (
	"context"
	"time"

	"workoutauth/internal/domain"

	"gorm.io/gorm"
)

// Store hands out repositories bound to one *gorm.DB, either the pool or an
// open transaction.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// WithClock returns a copy of the store reading time from now.
func (s *Store) WithClock(now func() time.Time) *Store {
	return &Store{db: s.db, now: now}
}

func (s *Store) Users() domain.UserStore {
	return &UserRepository{db: s.db, now: s.now}
}

func (s *Store) Roles() domain.RoleStore {
	return &RoleRepository{db: s.db, now: s.now}
}

func (s *Store) Tokens() domain.RefreshTokenLedger {
	return &RefreshTokenRepository{db: s.db, now: s.now}
}

func (s *Store) Transaction(ctx context.Context, fn func(tx domain.AuthStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, now: s.now})
	})
}

func stamp(now func() time.Time) time.Time {
	return now().UTC().Truncate(time.Microsecond)
}
