package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials covers unknown users, wrong passwords and locked
	// accounts alike.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrInvalidRole        = errors.New("invalid role")
	// ErrInvalidOrExpiredToken covers malformed, expired, used, revoked and
	// mismatched tokens.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrInvalidResetToken     = errors.New("invalid or expired reset token")
	ErrWeakPassword          = errors.New("password does not meet the policy")
	ErrStorageUnavailable    = errors.New("storage unavailable")
	ErrTokenIssue            = errors.New("could not issue tokens")
)

var knownKinds = []error{
	ErrInvalidCredentials,
	ErrAccountInactive,
	ErrDuplicateUsername,
	ErrDuplicateEmail,
	ErrInvalidRole,
	ErrInvalidOrExpiredToken,
	ErrInvalidResetToken,
	ErrWeakPassword,
	ErrStorageUnavailable,
	ErrTokenIssue,
}

// classify leaves errors of a known kind alone and reports everything else as
// a storage fault.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range knownKinds {
		if errors.Is(err, kind) {
			return err
		}
	}
	return storageErr(err)
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}
