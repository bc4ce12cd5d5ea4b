package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/auth"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/metrics"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/models"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/services"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/utils"
)

type HandlerManager struct {
	serviceManager      services.ServiceManager
	metrics             *metrics.Metrics
	logger              utils.Logger
	authHandler         *AuthHandler
	attemptHandler      *AttemptHandler
	questionHandler     *QuestionHandler
	notificationHandler *NotificationHandler
	userHandler         *UserHandler
	dashboardHandler    *DashboardHandler
	authMiddleware      *AuthMiddleware
}

// NewHandlerManager wires handlers to an initialized service manager. m may be nil.
func NewHandlerManager(
	serviceManager services.ServiceManager,
	verifier auth.Verifier,
	m *metrics.Metrics,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		serviceManager:      serviceManager,
		metrics:             m,
		logger:              logger,
		authHandler:         NewAuthHandler(serviceManager.Auth(), logger),
		attemptHandler:      NewAttemptHandler(serviceManager.Attempt(), logger),
		questionHandler:     NewQuestionHandler(serviceManager.Question(), logger),
		notificationHandler: NewNotificationHandler(serviceManager.Notification(), logger),
		userHandler:         NewUserHandler(serviceManager.User(), logger),
		dashboardHandler:    NewDashboardHandler(serviceManager.Dashboard(), serviceManager.Audit(), logger),
		authMiddleware:      NewAuthMiddleware(verifier),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.health)
	if hm.metrics != nil {
		router.GET("/metrics", gin.WrapH(hm.metrics.Handler()))
	}

	v1 := router.Group("/api/v1")

	// Public routes
	v1.POST("/auth/login", hm.authHandler.Login)
	v1.POST("/admin/login", hm.authHandler.AdminLogin)
	v1.GET("/notifications", hm.notificationHandler.ListNotifications)

	// Student routes
	student := v1.Group("")
	student.Use(hm.authMiddleware.Authenticate(), hm.authMiddleware.RequireRoleMiddleware(models.RoleStudent))
	{
		student.GET("/questions", hm.questionHandler.ListQuizQuestions)
		student.POST("/attempts", hm.attemptHandler.StartAttempt)
		student.PUT("/attempts", hm.attemptHandler.UpdateAttempt)
		student.POST("/attempts/events", hm.attemptHandler.RecordEvent)
	}

	// Admin routes
	admin := v1.Group("")
	admin.Use(hm.authMiddleware.Authenticate(), hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin))
	{
		admin.GET("/attempts", hm.attemptHandler.ListAttempts)
		admin.GET("/attempts/:id/events", hm.attemptHandler.GetAttemptEvents)
		admin.POST("/attempts/reset", hm.attemptHandler.ResetAttempts)

		admin.GET("/admin/overview", hm.dashboardHandler.GetOverview)
		admin.GET("/admin/leaderboard", hm.dashboardHandler.GetLeaderboard)
		admin.GET("/admin/leaderboard/export", hm.dashboardHandler.ExportLeaderboard)
		admin.GET("/admin/logs", hm.dashboardHandler.GetLogs)

		admin.GET("/admin/users", hm.userHandler.ListUsers)
		admin.POST("/admin/users", hm.userHandler.CreateUser)
		admin.GET("/admin/users/lookup", hm.authHandler.LookupProfile)
		admin.POST("/admin/users/block", hm.userHandler.BlockUser)
		admin.DELETE("/admin/users/block", hm.userHandler.UnblockUser)

		admin.GET("/admin/questions", hm.questionHandler.ListQuestions)
		admin.POST("/admin/questions", hm.questionHandler.CreateQuestion)
		admin.DELETE("/admin/questions", hm.questionHandler.DeleteQuestion)
		admin.DELETE("/admin/questions/:id", hm.questionHandler.DeleteQuestionByID)

		admin.GET("/admin/notifications", hm.notificationHandler.ListNotifications)
		admin.POST("/admin/notifications", hm.notificationHandler.CreateNotification)
	}
}

func (hm *HandlerManager) health(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		utils.GetLogger(c, hm.logger).Warn("Health check failed", "error", err)
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":    status,
		"service":   "proctored-quiz-service",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
