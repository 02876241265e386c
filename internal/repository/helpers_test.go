package repository

import (
	"context"
	"testing"
	"time"

	"workoutauth/internal/database"
	"workoutauth/internal/domain"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time { return c.t }

func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T) (*Store, *gorm.DB, *testClock) {
	t.Helper()

	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	clock := &testClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	return NewStore(db).WithClock(clock.Now), db, clock
}

func createUser(t *testing.T, s *Store, username, email string) *domain.User {
	t.Helper()
	u := &domain.User{
		Username:       username,
		Email:          email,
		PasswordHash:   "hash",
		SecurityStamp:  "stamp-" + username,
		FirstName:      "Test",
		LastName:       "User",
		LockoutEnabled: true,
		IsActive:       true,
	}
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}
