package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/services"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/utils"
)

type NotificationHandler struct {
	BaseHandler
	notificationService services.NotificationService
}

func NewNotificationHandler(notificationService services.NotificationService, logger utils.Logger) *NotificationHandler {
	return &NotificationHandler{
		BaseHandler:         NewBaseHandler(logger),
		notificationService: notificationService,
	}
}

// ListNotifications returns every broadcast, oldest first
// @Router /notifications [get]
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	notifications, err := h.notificationService.List(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.respondSuccess(c, http.StatusOK, gin.H{"notifications": notifications})
}

// CreateNotification broadcasts a message to students
// @Router /admin/notifications [post]
func (h *NotificationHandler) CreateNotification(c *gin.Context) {
	var req services.CreateNotificationRequest
	if !h.bindJSON(c, &req) {
		return
	}

	notification, err := h.notificationService.Create(c.Request.Context(), &req, currentActor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	h.respondSuccess(c, http.StatusCreated, gin.H{"notification": notification})
}
