package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/services"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/utils"
)

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
}

func NewAttemptHandler(attemptService services.AttemptService, logger utils.Logger) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
	}
}

// StartAttempt starts a new quiz attempt or resumes the open one
// @Summary Start quiz attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param attempt body services.StartAttemptRequest true "Start attempt data"
// @Success 201 {object} services.AttemptResponse
// @Success 200 {object} services.AttemptResponse "existing attempt resumed"
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /attempts [post]
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	var req services.StartAttemptRequest
	if !h.bindJSON(c, &req) {
		return
	}
	email, ok := studentEmail(c, req.Email)
	if !ok {
		h.handleServiceError(c, services.ErrForbidden)
		return
	}
	req.Email = email

	h.LogRequest(c, "Starting quiz attempt", "email", req.Email)

	attempt, err := h.attemptService.Start(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusCreated
	if attempt.Resumed {
		status = http.StatusOK
	}
	h.respondSuccess(c, status, gin.H{"attemptId": attempt.ID, "attempt": attempt})
}

// UpdateAttempt overwrites the violation count, or submits the attempt when completed is set
// @Summary Update or submit quiz attempt
// @Tags attempts
// @Accept json
// @Produce json
// @Param attempt body services.UpdateAttemptRequest true "Violations or submission"
// @Success 200 {object} models.Attempt
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /attempts [put]
func (h *AttemptHandler) UpdateAttempt(c *gin.Context) {
	var req services.UpdateAttemptRequest
	if !h.bindJSON(c, &req) {
		return
	}
	email, ok := studentEmail(c, req.Email)
	if !ok {
		h.handleServiceError(c, services.ErrForbidden)
		return
	}
	req.Email = email

	if req.Completed {
		h.LogRequest(c, "Submitting quiz attempt", "email", req.Email)
		attempt, err := h.attemptService.Complete(c.Request.Context(), &req)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		h.respondSuccess(c, http.StatusOK, gin.H{"attempt": attempt})
		return
	}

	if req.Violations == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "violations or completed is required"})
		return
	}

	attempt, err := h.attemptService.ReportViolation(c.Request.Context(), req.Email, *req.Violations)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.respondSuccess(c, http.StatusOK, gin.H{"attempt": attempt})
}

// RecordEvent appends a proctoring event to the caller's open attempt
// @Summary Record proctoring event
// @Tags attempts
// @Router /attempts/events [post]
func (h *AttemptHandler) RecordEvent(c *gin.Context) {
	var req services.ViolationEventRequest
	if !h.bindJSON(c, &req) {
		return
	}
	email, ok := studentEmail(c, req.Email)
	if !ok {
		h.handleServiceError(c, services.ErrForbidden)
		return
	}
	req.Email = email

	result, err := h.attemptService.RecordEvent(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.respondSuccess(c, http.StatusOK, gin.H{"event": result})
}

// ListAttempts returns every attempt with the session counters
// @Router /attempts [get]
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	list, err := h.attemptService.List(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.respondSuccess(c, http.StatusOK, gin.H{"attempts": list.Attempts, "sessions": list.Sessions})
}

// GetAttemptEvents returns the proctoring log of one attempt
// @Router /attempts/{id}/events [get]
func (h *AttemptHandler) GetAttemptEvents(c *gin.Context) {
	evts, err := h.attemptService.Events(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.respondSuccess(c, http.StatusOK, gin.H{"events": evts})
}

// ResetAttempts deletes every attempt and session counter
// @Router /attempts/reset [post]
func (h *AttemptHandler) ResetAttempts(c *gin.Context) {
	actor := currentActor(c)
	h.LogRequest(c, "Resetting all attempts", "actor", actor)

	result, err := h.attemptService.ResetAll(c.Request.Context(), actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.respondSuccess(c, http.StatusOK, gin.H{"attempts_deleted": result.AttemptsDeleted})
}
