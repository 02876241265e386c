package auth

import (
	"testing"

	"workoutauth/internal/domain"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func assignment(name string, perms *string, assignmentActive, roleActive, roleDeleted bool) domain.UserRole {
	return domain.UserRole{
		IsActive: assignmentActive,
		Role: domain.Role{
			Name:        name,
			Permissions: perms,
			IsActive:    roleActive,
			IsDeleted:   roleDeleted,
		},
	}
}

func TestParsePermissions(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"json list", `["a.read","b.write"]`, []string{"a.read", "b.write"}},
		{"blank entries dropped", `["a.read"," ",""]`, []string{"a.read"}},
		{"not json falls back to literal", "workouts.manage", []string{"workouts.manage"}},
		{"broken json is one literal", `["a.read",`, []string{`["a.read",`}},
		{"json of another shape", `{"a":1}`, []string{`{"a":1}`}},
		{"empty", "  ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePermissions(tt.raw))
		})
	}
}

func TestAggregateAccess(t *testing.T) {
	roles, perms := AggregateAccess([]domain.UserRole{
		assignment("Trainer", strPtr(`["workouts.read","workouts.manage"]`), true, true, false),
		assignment("Athlete", strPtr(`["workouts.read","progress.write"]`), true, true, false),
		assignment("Legacy", strPtr("legacy.perm"), true, true, false),
		assignment("Off", strPtr(`["off.perm"]`), false, true, false),
		assignment("Disabled", strPtr(`["disabled.perm"]`), true, false, false),
		assignment("Deleted", strPtr(`["deleted.perm"]`), true, true, true),
		assignment("NoPerms", nil, true, true, false),
	})

	assert.Equal(t, []string{"Trainer", "Athlete", "Legacy", "NoPerms"}, roles)
	assert.Equal(t, []string{"workouts.read", "workouts.manage", "progress.write", "legacy.perm"}, perms)
}

func TestAggregateAccess_NoAssignments(t *testing.T) {
	roles, perms := AggregateAccess(nil)
	assert.Empty(t, roles)
	assert.Empty(t, perms)
	assert.NotNil(t, roles)
}
