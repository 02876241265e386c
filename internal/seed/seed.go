// Package seed creates the roles every deployment needs and an optional
// administrator account.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"workoutauth/internal/domain"
	"workoutauth/internal/pkg/password"

	"github.com/google/uuid"
)

type roleSpec struct {
	name        string
	description string
	system      bool
	permissions []string
}

var roleSpecs = []roleSpec{
	{
		name:        domain.RoleAdmin,
		description: "System Administrator",
		system:      true,
		permissions: []string{"users.read", "users.manage", "roles.manage", "workouts.read", "workouts.manage", "nutrition.read", "nutrition.manage"},
	},
	{
		name:        domain.RoleTrainer,
		description: "Fitness Trainer",
		permissions: []string{"workouts.read", "workouts.manage", "athletes.read"},
	},
	{
		name:        domain.RoleAthlete,
		description: "Athlete/Client",
		permissions: []string{"workouts.read", "progress.write"},
	},
	{
		name:        domain.RoleNutritionist,
		description: "Nutrition Specialist",
		permissions: []string{"nutrition.read", "nutrition.manage", "athletes.read"},
	},
}

type Admin struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Roles creates the missing built-in roles and returns how many it created.
func Roles(ctx context.Context, store domain.AuthStore) (int, error) {
	created := 0
	for _, spec := range roleSpecs {
		_, err := store.Roles().FindByName(ctx, spec.name)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return created, fmt.Errorf("look up role %s: %w", spec.name, err)
		}

		perms, err := json.Marshal(spec.permissions)
		if err != nil {
			return created, err
		}
		desc := spec.description
		raw := string(perms)
		role := &domain.Role{
			Name:         spec.name,
			Description:  &desc,
			Permissions:  &raw,
			IsSystemRole: spec.system,
			IsActive:     true,
		}
		if err := store.Roles().Create(ctx, role); err != nil {
			return created, fmt.Errorf("create role %s: %w", spec.name, err)
		}
		created++
	}
	return created, nil
}

// AdminUser creates the administrator unless the username is already taken.
func AdminUser(ctx context.Context, store domain.AuthStore, hasher password.Hasher, admin Admin) (bool, error) {
	taken, err := store.Users().UsernameExists(ctx, admin.Username)
	if err != nil {
		return false, err
	}
	if taken {
		return false, nil
	}

	role, err := store.Roles().FindActiveByName(ctx, domain.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("admin role: %w", err)
	}
	hash, err := hasher.Hash(admin.Password)
	if err != nil {
		return false, err
	}

	user := &domain.User{
		Username:       admin.Username,
		Email:          admin.Email,
		EmailConfirmed: true,
		PasswordHash:   hash,
		SecurityStamp:  uuid.NewString(),
		FirstName:      admin.FirstName,
		LastName:       admin.LastName,
		LockoutEnabled: true,
		IsActive:       true,
		TimeZone:       "UTC",
		Language:       "en",
	}
	err = store.Transaction(ctx, func(tx domain.AuthStore) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		return tx.Users().AssignRole(ctx, user.ID, role.ID, nil)
	})
	if err != nil {
		return false, err
	}

	slog.Info("seeded admin user", "username", admin.Username, "user_id", user.ID)
	return true, nil
}
