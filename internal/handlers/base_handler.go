package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/services"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/utils"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/validator"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// BaseHandler carries what every handler needs
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs with the request-scoped logger
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.GetLogger(c, h.logger).Info(msg, args...)
}

// respondSuccess writes {"success": true} merged with body
func (h *BaseHandler) respondSuccess(c *gin.Context, status int, body gin.H) {
	out := gin.H{"success": true}
	for k, v := range body {
		out[k] = v
	}
	c.JSON(status, out)
}

func (h *BaseHandler) bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request payload",
			Details: err.Error(),
		})
		return false
	}
	return true
}

func (h *BaseHandler) parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// handleServiceError maps service errors to HTTP responses. Business errors
// keep their message because the UI shows it verbatim.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors

	switch {
	case errors.Is(err, services.ErrValidationFailed):
		resp := ErrorResponse{Error: "Validation failed"}
		if errors.As(err, &verrs) {
			resp.Details = verrs.Messages()
		} else {
			resp.Details = err.Error()
		}
		c.JSON(http.StatusBadRequest, resp)

	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})

	case errors.Is(err, services.ErrUserBlocked),
		errors.Is(err, services.ErrSessionLimitExceeded),
		errors.Is(err, services.ErrAlreadyCompleted),
		errors.Is(err, services.ErrMultiMonitorDetected),
		errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})

	case errors.Is(err, services.ErrNoActiveAttempt),
		errors.Is(err, services.ErrAttemptNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrQuestionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})

	case errors.Is(err, services.ErrUserExists),
		errors.Is(err, services.ErrAttemptExpired):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})

	default:
		utils.GetLogger(c, h.logger).Error("Unhandled service error",
			"path", c.FullPath(),
			"error", err)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Server error"})
	}
}
