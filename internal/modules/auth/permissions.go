package auth

import (
	"encoding/json"
	"strings"

	"workoutauth/internal/domain"
)

// AggregateAccess returns the role names and the deduplicated permission set
// granted by the active assignments of active roles, in assignment order.
func AggregateAccess(assignments []domain.UserRole) (roles, permissions []string) {
	roles = []string{}
	permissions = []string{}
	seenRoles := make(map[string]struct{})
	seenPerms := make(map[string]struct{})

	for _, ur := range assignments {
		if !ur.Grants() {
			continue
		}
		if _, ok := seenRoles[ur.Role.Name]; !ok {
			seenRoles[ur.Role.Name] = struct{}{}
			roles = append(roles, ur.Role.Name)
		}
		if ur.Role.Permissions == nil {
			continue
		}
		for _, p := range ParsePermissions(*ur.Role.Permissions) {
			if _, ok := seenPerms[p]; ok {
				continue
			}
			seenPerms[p] = struct{}{}
			permissions = append(permissions, p)
		}
	}
	return roles, permissions
}

// ParsePermissions decodes a JSON string list. Anything that is not one is
// taken as a single permission literal.
func ParsePermissions(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return []string{raw}
	}
	out := list[:0]
	for _, p := range list {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
