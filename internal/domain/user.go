package domain

import (
	"strings"
	"time"
)

// MaxAccessFailedCount bounds the failed-attempt counter.
const MaxAccessFailedCount = 10

type User struct {
	ID                string     `json:"id" gorm:"primaryKey;size:36"`
	Username          string     `json:"username" gorm:"size:50;not null;uniqueIndex:idx_users_username_live,where:is_deleted = false"`
	Email             string     `json:"email" gorm:"size:255;not null;uniqueIndex:idx_users_email_live,where:is_deleted = false"`
	EmailConfirmed    bool       `json:"email_confirmed" gorm:"not null"`
	PasswordHash      string     `json:"-" gorm:"not null"`
	SecurityStamp     string     `json:"-" gorm:"size:64;index"`
	FirstName         string     `json:"first_name" gorm:"size:100"`
	LastName          string     `json:"last_name" gorm:"size:100"`
	PhoneNumber       *string    `json:"phone_number,omitempty" gorm:"size:32"`
	TwoFactorEnabled  bool       `json:"two_factor_enabled" gorm:"not null"`
	LockoutEnabled    bool       `json:"-" gorm:"not null"`
	LockoutEnd        *time.Time `json:"-"`
	AccessFailedCount int        `json:"-" gorm:"not null"`
	LastLoginAt       *time.Time `json:"last_login_at,omitempty"`
	IsActive          bool       `json:"is_active" gorm:"not null;index"`
	TimeZone          string     `json:"time_zone" gorm:"size:64"`
	Language          string     `json:"language" gorm:"size:16"`
	IsDeleted         bool       `json:"-" gorm:"not null;index"`
	DeletedAt         *time.Time `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	UserRoles []UserRole `json:"-" gorm:"foreignKey:UserID"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsLockedOut reports whether a lockout window is still open at now.
func (u *User) IsLockedOut(now time.Time) bool {
	return u.LockoutEnabled && u.LockoutEnd != nil && u.LockoutEnd.After(now)
}

// RegisterFailedAttempt bumps the counter and opens a lockout window once the
// threshold is reached. It returns true when this attempt triggered the lockout.
func (u *User) RegisterFailedAttempt(now time.Time, threshold int, duration time.Duration) bool {
	if u.AccessFailedCount < MaxAccessFailedCount {
		u.AccessFailedCount++
	}
	if !u.LockoutEnabled || u.AccessFailedCount < threshold {
		return false
	}
	end := now.Add(duration)
	u.LockoutEnd = &end
	return true
}

func (u *User) ResetLockout() {
	u.AccessFailedCount = 0
	u.LockoutEnd = nil
}
