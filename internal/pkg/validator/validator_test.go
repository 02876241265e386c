package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrongPassword(t *testing.T) {
	tests := map[string]bool{
		"Str0ng!Pass": true,
		"Aa1@aaaa":    true,
		"Aa1@aaa":     false, // too short
		"str0ng!pass": false, // no upper
		"STR0NG!PASS": false, // no lower
		"Strong!Pass": false, // no digit
		"Str0ngPass1": false, // no special
		"Str0ng#Pass": false, // # is not an accepted special
		"":            false,
	}
	for pw, want := range tests {
		assert.Equal(t, want, StrongPassword(pw), pw)
	}
}

func TestStrongPassword_MaxLength(t *testing.T) {
	longest := "Aa1!" + strings.Repeat("x", MaxPasswordBytes-4)
	assert.True(t, StrongPassword(longest))
	assert.False(t, StrongPassword(longest+"x"))
	assert.False(t, StrongPassword("Aa1!"+strings.Repeat("x", 76)))
}

type signup struct {
	Username string `validate:"required,min=3,username"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,strongpassword"`
}

func TestValidate(t *testing.T) {
	assert.Nil(t, Validate(&signup{Username: "alice_01", Email: "a@example.com", Password: "Str0ng!Pass"}))

	errs := Validate(&signup{Username: "al ice", Email: "nope", Password: "weak"})
	assert.Equal(t, map[string]string{
		"Username": "username",
		"Email":    "email",
		"Password": "strongpassword",
	}, errs)
}
