package domain

import "errors"

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict signals a unique-constraint violation in storage.
	ErrConflict    = errors.New("record conflicts with an existing one")
	ErrStaleRecord = errors.New("record was modified concurrently")
	// ErrTokenUnavailable is returned when a refresh token cannot be consumed:
	// missing, bound to another access token, used, revoked or expired.
	ErrTokenUnavailable = errors.New("refresh token unavailable")
)
