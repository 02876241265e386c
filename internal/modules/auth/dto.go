package auth

import (
	"time"

	"workoutauth/internal/domain"
)

const TokenTypeBearer = "Bearer"

type LoginRequest struct {
	// Username accepts either the username or the email address.
	Username string `json:"username" validate:"required,min=3,max=254"`
	Password string `json:"password" validate:"required,min=6,max=100"`
}

type RegisterRequest struct {
	Username        string  `json:"username" validate:"required,min=3,max=50,username"`
	Email           string  `json:"email" validate:"required,email,max=254"`
	Password        string  `json:"password" validate:"required,max=72,strongpassword"`
	ConfirmPassword string  `json:"confirmPassword" validate:"required,eqfield=Password"`
	FirstName       string  `json:"firstName" validate:"required,max=100"`
	LastName        string  `json:"lastName" validate:"required,max=100"`
	PhoneNumber     *string `json:"phoneNumber,omitempty" validate:"omitempty,max=32"`
	Role            string  `json:"role" validate:"omitempty,max=50"`
}

type RefreshRequest struct {
	AccessToken  string `json:"accessToken" validate:"required"`
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type ResetPasswordRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Token           string `json:"token" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,max=72,strongpassword"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

// RequestMeta describes where a request came from, for revocation records and audit events.
type RequestMeta struct {
	IP        string
	UserAgent string
}

type LoginResult struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
	TokenType    string     `json:"tokenType"`
	ExpiresIn    int        `json:"expiresIn"`
	User         UserPublic `json:"user"`
}

type UserPublic struct {
	ID               string     `json:"id"`
	Username         string     `json:"username"`
	Email            string     `json:"email"`
	EmailConfirmed   bool       `json:"emailConfirmed"`
	FirstName        string     `json:"firstName"`
	LastName         string     `json:"lastName"`
	FullName         string     `json:"fullName"`
	PhoneNumber      *string    `json:"phoneNumber,omitempty"`
	TwoFactorEnabled bool       `json:"twoFactorEnabled"`
	TimeZone         string     `json:"timeZone,omitempty"`
	Language         string     `json:"language"`
	LastLoginAt      *time.Time `json:"lastLoginAt,omitempty"`
	Roles            []string   `json:"roles"`
	Permissions      []string   `json:"permissions"`
	DateCreated      time.Time  `json:"dateCreated"`
}

func toUserPublic(u *domain.User) UserPublic {
	roles, perms := AggregateAccess(u.UserRoles)
	return UserPublic{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		EmailConfirmed:   u.EmailConfirmed,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		FullName:         u.FullName(),
		PhoneNumber:      u.PhoneNumber,
		TwoFactorEnabled: u.TwoFactorEnabled,
		TimeZone:         u.TimeZone,
		Language:         u.Language,
		LastLoginAt:      u.LastLoginAt,
		Roles:            roles,
		Permissions:      perms,
		DateCreated:      u.CreatedAt,
	}
}
