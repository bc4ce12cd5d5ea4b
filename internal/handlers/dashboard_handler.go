package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/services"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type DashboardHandler struct {
	BaseHandler
	service services.DashboardService
	audit   services.AuditService
}

func NewDashboardHandler(service services.DashboardService, audit services.AuditService, logger utils.Logger) *DashboardHandler {
	return &DashboardHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
		audit:       audit,
	}
}

// GetOverview returns the active-login view
// @Summary Get attempt overview
// @Tags dashboard
// @Produce json
// @Success 200 {object} models.Overview
// @Failure 500 {object} ErrorResponse
// @Router /admin/overview [get]
func (h *DashboardHandler) GetOverview(c *gin.Context) {
	overview, err := h.service.Overview(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.respondSuccess(c, http.StatusOK, gin.H{"overview": overview})
}

// GetLeaderboard ranks completed attempts
// @Router /admin/leaderboard [get]
func (h *DashboardHandler) GetLeaderboard(c *gin.Context) {
	entries, err := h.service.Leaderboard(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.respondSuccess(c, http.StatusOK, gin.H{"leaderboard": entries})
}

// ExportLeaderboard downloads the leaderboard as an xlsx workbook
// @Router /admin/leaderboard/export [get]
func (h *DashboardHandler) ExportLeaderboard(c *gin.Context) {
	h.LogRequest(c, "Exporting leaderboard")

	data, err := h.service.ExportLeaderboard(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("leaderboard-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// GetLogs returns the audit feed, newest first
// @Router /admin/logs [get]
func (h *DashboardHandler) GetLogs(c *gin.Context) {
	logs, err := h.audit.List(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.respondSuccess(c, http.StatusOK, gin.H{"logs": logs})
}
