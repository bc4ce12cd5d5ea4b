package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/services"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/utils"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/validator"
)

type UserHandler struct {
	BaseHandler
	userService services.UserService
}

func NewUserHandler(userService services.UserService, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: NewBaseHandler(logger),
		userService: userService,
	}
}

// ListUsers lists the roster with block status
// @Summary List users
// @Tags users
// @Produce json
// @Success 200 {object} map[string]interface{} "User list response"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /admin/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	h.LogRequest(c, "Listing users")

	users, err := h.userService.List(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.respondSuccess(c, http.StatusOK, gin.H{"users": users})
}

// CreateUser adds a student to the roster
// @Router /admin/users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req services.CreateUserRequest
	if !h.bindJSON(c, &req) {
		return
	}

	profile, err := h.userService.Create(c.Request.Context(), &req, currentActor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.respondSuccess(c, http.StatusCreated, gin.H{"user": profile})
}

// BlockUser adds an email to the block list
// @Router /admin/users/block [post]
func (h *UserHandler) BlockUser(c *gin.Context) {
	var req validator.BlockRequest
	if !h.bindJSON(c, &req) {
		return
	}

	changed, err := h.userService.Block(c.Request.Context(), req.Email, currentActor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.respondSuccess(c, http.StatusOK, gin.H{"changed": changed})
}

// UnblockUser removes an email from the block list
// @Router /admin/users/block [delete]
func (h *UserHandler) UnblockUser(c *gin.Context) {
	var req validator.BlockRequest
	if !h.bindJSON(c, &req) {
		return
	}

	changed, err := h.userService.Unblock(c.Request.Context(), req.Email, currentActor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.respondSuccess(c, http.StatusOK, gin.H{"changed": changed})
}
