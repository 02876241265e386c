package seed

import (
	"context"
	"testing"

	"workoutauth/internal/database"
	"workoutauth/internal/domain"
	"workoutauth/internal/pkg/password"
	"workoutauth/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newStore(t *testing.T) *repository.Store {
	t.Helper()
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return repository.NewStore(db)
}

func TestRoles_Idempotent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	n, err := Roles(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, len(domain.SystemRoles()), n)

	n, err = Roles(ctx, store)
	require.NoError(t, err)
	assert.Zero(t, n)

	admin, err := store.Roles().FindActiveByName(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, admin.IsSystemRole)
	require.NotNil(t, admin.Permissions)
	assert.Contains(t, *admin.Permissions, "users.manage")

	athlete, err := store.Roles().FindActiveByName(ctx, domain.RoleAthlete)
	require.NoError(t, err)
	assert.False(t, athlete.IsSystemRole)
	assert.JSONEq(t, `["workouts.read","progress.write"]`, *athlete.Permissions)
}

func TestAdminUser(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	_, err := Roles(ctx, store)
	require.NoError(t, err)

	hasher := password.NewBcrypt(bcrypt.MinCost)
	admin := Admin{
		Username:  "testadmin",
		Email:     "Admin@WorkoutProject.com",
		Password:  "Admin123!",
		FirstName: "Test",
		LastName:  "Admin",
	}

	created, err := AdminUser(ctx, store, hasher, admin)
	require.NoError(t, err)
	assert.True(t, created)

	u, err := store.Users().FindByUsernameOrEmail(ctx, "admin@workoutproject.com")
	require.NoError(t, err)
	assert.Equal(t, "testadmin", u.Username)
	assert.True(t, u.EmailConfirmed)
	assert.NotEmpty(t, u.SecurityStamp)
	require.Len(t, u.UserRoles, 1)
	assert.Equal(t, domain.RoleAdmin, u.UserRoles[0].Role.Name)

	ok, err := hasher.Verify("Admin123!", u.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	created, err = AdminUser(ctx, store, hasher, admin)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestAdminUser_RequiresRoles(t *testing.T) {
	store := newStore(t)

	_, err := AdminUser(context.Background(), store, password.NewBcrypt(bcrypt.MinCost), Admin{
		Username: "testadmin", Email: "admin@example.com", Password: "Admin123!",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
