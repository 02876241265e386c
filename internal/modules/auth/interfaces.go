package auth

import (
	"context"

	"workoutauth/internal/pkg/jwt"
)

// TokenService issues and validates access and refresh tokens.
type TokenService interface {
	IssueAccessToken(id jwt.Identity, roles, permissions []string) (string, error)
	IssueRefreshToken() (string, error)
	Validate(token string, opts jwt.ValidationOptions) (*jwt.Claims, error)
	ExtractTokenID(token string) (string, bool)
	ExpiresInSeconds() int
}

// EmailSender delivers account emails. Callers bound each call with a timeout.
type EmailSender interface {
	SendPasswordReset(ctx context.Context, to, link, firstName string) error
	SendWelcome(ctx context.Context, to, firstName string) error
}
