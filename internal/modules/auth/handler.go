package auth

import (
	"errors"
	"net/http"

	"workoutauth/internal/middleware"
	"workoutauth/internal/pkg/logging"
	"workoutauth/internal/pkg/response"
	"workoutauth/internal/pkg/validator"

	"github.com/gin-gonic/gin"
)

// Handler exposes the auth flows over HTTP.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts /auth under api. requireAuth guards the routes that
// need a signed-in user.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", h.Login)
		authGroup.POST("/register", h.Register)
		authGroup.POST("/refresh", h.Refresh)
		authGroup.POST("/forgot-password", h.ForgotPassword)
		authGroup.POST("/reset-password", h.ResetPassword)
	}

	protected := authGroup.Group("", requireAuth)
	{
		protected.POST("/logout", h.Logout)
		protected.POST("/logout-all", h.LogoutAll)
		protected.GET("/me", h.Me)
	}
}

// bind decodes and validates the JSON body, writing a 400 when either fails.
func bind[T any](c *gin.Context) (*T, bool) {
	var req T
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return nil, false
	}
	if fields := validator.Validate(&req); fields != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", fields)
		return nil, false
	}
	return &req, true
}

func requestMeta(c *gin.Context) RequestMeta {
	return RequestMeta{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

// Login signs a user in with username or email and password.
// @Summary  Sign in
// @Tags     Auth
// @Param    request body LoginRequest true "Username or email, and password"
// @Success  200 {object} LoginResult
// @Failure  401 {object} map[string]interface{} "Invalid username or password"
// @Router   /auth/login [POST]
func (h *Handler) Login(c *gin.Context) {
	req, ok := bind[LoginRequest](c)
	if !ok {
		return
	}

	result, err := h.service.Login(c.Request.Context(), *req, requestMeta(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// Register creates an account and signs it in.
// @Summary  Register
// @Tags     Auth
// @Param    request body RegisterRequest true "New account"
// @Success  201 {object} LoginResult
// @Failure  400 {object} map[string]interface{} "Validation error or unknown role"
// @Failure  409 {object} map[string]interface{} "Username or email taken"
// @Router   /auth/register [POST]
func (h *Handler) Register(c *gin.Context) {
	req, ok := bind[RegisterRequest](c)
	if !ok {
		return
	}

	result, err := h.service.Register(c.Request.Context(), *req, requestMeta(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, result)
}

func (h *Handler) Refresh(c *gin.Context) {
	req, ok := bind[RefreshRequest](c)
	if !ok {
		return
	}

	result, err := h.service.Refresh(c.Request.Context(), *req, requestMeta(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

func (h *Handler) Logout(c *gin.Context) {
	req, ok := bind[LogoutRequest](c)
	if !ok {
		return
	}

	revoked, err := h.service.Logout(c.Request.Context(), c.GetString(middleware.CtxUserID), req.RefreshToken, requestMeta(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !revoked {
		response.Error(c, http.StatusBadRequest, "INVALID_TOKEN", "Refresh token is invalid or already revoked")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

func (h *Handler) LogoutAll(c *gin.Context) {
	n, err := h.service.LogoutAll(c.Request.Context(), c.GetString(middleware.CtxUserID), requestMeta(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"revoked": n})
}

// ForgotPassword always answers the same way so that callers cannot probe
// which addresses are registered.
func (h *Handler) ForgotPassword(c *gin.Context) {
	req, ok := bind[ForgotPasswordRequest](c)
	if !ok {
		return
	}

	if _, err := h.service.ForgotPassword(c.Request.Context(), req.Email, requestMeta(c)); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"message": "If the email exists, a password reset link has been sent.",
	})
}

func (h *Handler) ResetPassword(c *gin.Context) {
	req, ok := bind[ResetPasswordRequest](c)
	if !ok {
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), *req, requestMeta(c)); err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Password has been reset successfully."})
}

func (h *Handler) Me(c *gin.Context) {
	user, err := h.service.GetCurrentUser(c.Request.Context(), c.GetString(middleware.CtxUserID))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// fail maps service errors to responses. Security sensitive kinds get fixed
// messages that do not say which check failed.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password")
	case errors.Is(err, ErrInvalidOrExpiredToken), errors.Is(err, ErrAccountInactive):
		response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
	case errors.Is(err, ErrInvalidResetToken):
		response.Error(c, http.StatusBadRequest, "INVALID_RESET_TOKEN", "Invalid or expired reset token")
	case errors.Is(err, ErrDuplicateUsername):
		response.Error(c, http.StatusConflict, "USERNAME_EXISTS", "Username is already taken")
	case errors.Is(err, ErrDuplicateEmail):
		response.Error(c, http.StatusConflict, "EMAIL_EXISTS", "Email is already registered")
	case errors.Is(err, ErrInvalidRole):
		response.Error(c, http.StatusBadRequest, "INVALID_ROLE", "Role does not exist")
	case errors.Is(err, ErrWeakPassword):
		response.Error(c, http.StatusBadRequest, "WEAK_PASSWORD",
			"Password must be at least 8 characters with upper and lower case letters, a digit and one of @$!%*?&")
	case errors.Is(err, ErrStorageUnavailable):
		logging.FromContext(c.Request.Context()).Error("auth storage failure", "error", err)
		response.Error(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service temporarily unavailable")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
	}
}
