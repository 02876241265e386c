package domain

import (
	"strings"
	"time"
)

const (
	RoleAdmin        = "Admin"
	RoleTrainer      = "Trainer"
	RoleAthlete      = "Athlete"
	RoleNutritionist = "Nutritionist"
)

// SystemRoles lists the roles every deployment is seeded with.
func SystemRoles() []string {
	return []string{RoleAdmin, RoleTrainer, RoleAthlete, RoleNutritionist}
}

type Role struct {
	ID             string  `json:"id" gorm:"primaryKey;size:36"`
	Name           string  `json:"name" gorm:"size:50;not null"`
	NormalizedName string  `json:"-" gorm:"size:50;not null;uniqueIndex"`
	Description    *string `json:"description,omitempty" gorm:"size:500"`
	// Permissions holds a JSON encoded list of permission strings.
	Permissions  *string   `json:"-"`
	IsSystemRole bool      `json:"is_system_role" gorm:"not null"`
	IsActive     bool      `json:"is_active" gorm:"not null"`
	IsDeleted    bool      `json:"-" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func NormalizeRoleName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// UserRole is the user <-> role assignment; each one can be switched off on its own.
type UserRole struct {
	UserID     string    `gorm:"primaryKey;size:36"`
	RoleID     string    `gorm:"primaryKey;size:36"`
	AssignedAt time.Time `gorm:"not null"`
	AssignedBy *string   `gorm:"size:36"`
	IsActive   bool      `gorm:"not null"`

	Role Role `gorm:"foreignKey:RoleID"`
}

// Grants reports whether the assignment currently contributes roles and permissions.
func (ur UserRole) Grants() bool {
	return ur.IsActive && ur.Role.IsActive && !ur.Role.IsDeleted
}
