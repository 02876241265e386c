package middleware

import (
	"net/http"
	"slices"

	"workoutauth/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// RequireRole lets the request through when the token carries any of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return requireClaim(CtxRoles, roles, "Access denied: insufficient role")
}

// RequirePermission lets the request through when the token carries any of perms.
func RequirePermission(perms ...string) gin.HandlerFunc {
	return requireClaim(CtxPermissions, perms, "Access denied: insufficient permissions")
}

func requireClaim(key string, wanted []string, deniedMsg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxUserID) == "" {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}

		granted := c.GetStringSlice(key)
		for _, w := range wanted {
			if slices.Contains(granted, w) {
				c.Next()
				return
			}
		}
		response.Abort(c, http.StatusForbidden, "FORBIDDEN", deniedMsg)
	}
}
