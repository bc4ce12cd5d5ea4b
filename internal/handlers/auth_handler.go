package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/services"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/utils"
)

type AuthHandler struct {
	BaseHandler
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService, logger utils.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(logger),
		authService: authService,
	}
}

// Login authenticates a student against the roster
// @Summary Student login
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body services.LoginRequest true "Email and password"
// @Success 200 {object} services.LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Student login", "email", req.Email)

	resp, err := h.authService.Authenticate(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondSuccess(c, http.StatusOK, gin.H{
		"user":          resp.UserProfile,
		"session_count": resp.SessionCount,
		"max_sessions":  resp.MaxSessions,
		"token":         resp.Token,
		"expires_at":    resp.ExpiresAt,
	})
}

// AdminLogin issues an admin token for the console account
// @Summary Admin login
// @Tags auth
// @Router /admin/login [post]
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req services.AdminLoginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Admin login", "username", req.Username)

	resp, err := h.authService.AdminLogin(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondSuccess(c, http.StatusOK, gin.H{
		"username":   resp.Username,
		"role":       resp.Role,
		"token":      resp.Token,
		"expires_at": resp.ExpiresAt,
	})
}

// LookupProfile returns a student's profile by email. Admin only.
// @Router /admin/users/lookup [get]
func (h *AuthHandler) LookupProfile(c *gin.Context) {
	email := c.Query("email")

	profile, err := h.authService.LookupProfile(c.Request.Context(), email)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.respondSuccess(c, http.StatusOK, gin.H{"user": profile})
}
