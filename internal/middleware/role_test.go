package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func guarded(guard gin.HandlerFunc, userID string, roles, perms []string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set(CtxUserID, userID)
			c.Set(CtxRoles, roles)
			c.Set(CtxPermissions, perms)
		}
		c.Next()
	})
	router.GET("/admin", guard, func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	return w
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		roles  []string
		want   int
	}{
		{"no identity", "", nil, http.StatusUnauthorized},
		{"missing role", "u-1", []string{"Athlete"}, http.StatusForbidden},
		{"one of several", "u-1", []string{"Athlete", "Trainer"}, http.StatusOK},
		{"names are exact", "u-1", []string{"trainer"}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := guarded(RequireRole("Trainer", "Admin"), tt.userID, tt.roles, nil)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequirePermission(t *testing.T) {
	w := guarded(RequirePermission("users.manage"), "u-1", []string{"Admin"}, []string{"users.read", "users.manage"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = guarded(RequirePermission("users.manage"), "u-1", []string{"Admin"}, []string{"users.read"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "FORBIDDEN")
}
