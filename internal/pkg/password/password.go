package password

import (
	"fmt"
	"strings"
)

// Hasher produces salted one-way hashes and verifies passwords against them.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

// New returns the hasher registered under name.
func New(name string) (Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", AlgorithmBcrypt:
		return NewBcrypt(0), nil
	case AlgorithmArgon2id:
		return NewArgon2(DefaultArgon2Config())
	default:
		return nil, fmt.Errorf("password: unknown hasher %q", name)
	}
}
