package domain

import (
	"context"
	"time"
)

// UserStore is the credential store. Every lookup only sees active,
// non-deleted users unless stated otherwise.
type UserStore interface {
	FindByUsernameOrEmail(ctx context.Context, login string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByEmailAndStamp(ctx context.Context, email, stamp string) (*User, error)
	// UsernameExists and EmailExists consider every non-deleted user, active or not.
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, u *User) error
	// Save persists mutable fields, failing with ErrStaleRecord when the row
	// changed since u was loaded.
	Save(ctx context.Context, u *User) error
	AssignRole(ctx context.Context, userID, roleID string, assignedBy *string) error
}

type RoleStore interface {
	FindActiveByName(ctx context.Context, name string) (*Role, error)
	FindByName(ctx context.Context, name string) (*Role, error)
	Create(ctx context.Context, r *Role) error
}

// RefreshTokenLedger persists rotation chains.
type RefreshTokenLedger interface {
	Issue(ctx context.Context, userID, token, jwtID string, ttl time.Duration) (*RefreshToken, error)
	FindByToken(ctx context.Context, token string) (*RefreshToken, error)
	// Consume marks the presented token used and stores replacement in one
	// transaction. Only one caller can ever consume a given token.
	Consume(ctx context.Context, presented, presentedJwtID string, replacement *RefreshToken) (*RefreshToken, error)
	Revoke(ctx context.Context, token, ip string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID, ip string) (int64, error)
	CountActiveForUser(ctx context.Context, userID string) (int64, error)
}

// AuthStore groups the stores and runs work inside a single transaction.
type AuthStore interface {
	Users() UserStore
	Roles() RoleStore
	Tokens() RefreshTokenLedger
	Transaction(ctx context.Context, fn func(tx AuthStore) error) error
}
