package middleware

import (
	"errors"
	"net/http"
	"strings"

	"workoutauth/internal/pkg/jwt"
	"workoutauth/internal/pkg/logging"
	"workoutauth/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// Context keys set by JWTAuth.
const (
	CtxUserID      = "user_id"
	CtxUsername    = "username"
	CtxEmail       = "email"
	CtxRoles       = "roles"
	CtxPermissions = "permissions"
	CtxTokenID     = "token_id"
)

type TokenValidator interface {
	Validate(token string, opts jwt.ValidationOptions) (*jwt.Claims, error)
}

// JWTAuth accepts only unexpired access tokens carried as "Authorization: Bearer <token>".
func JWTAuth(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Abort(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Authorization header is required")
			return
		}
		scheme, raw, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
			response.Abort(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be: Bearer <token>")
			return
		}

		claims, err := tokens.Validate(strings.TrimSpace(raw), jwt.ValidationOptions{CheckExpiry: true})
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				response.Abort(c, http.StatusUnauthorized, "TOKEN_EXPIRED", "Access token has expired")
				return
			}
			response.Abort(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid access token")
			return
		}

		c.Set(CtxUserID, claims.Subject)
		c.Set(CtxUsername, claims.Name)
		c.Set(CtxEmail, claims.Email)
		c.Set(CtxRoles, claims.Roles)
		c.Set(CtxPermissions, claims.Permissions)
		c.Set(CtxTokenID, claims.ID)

		log := logging.FromContext(c.Request.Context()).With("user_id", claims.Subject)
		c.Request = c.Request.WithContext(logging.IntoContext(c.Request.Context(), log))

		c.Next()
	}
}
