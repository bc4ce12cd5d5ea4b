package services

import (
	"context"
	"time"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/models"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/proctoring"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type LoginRequest = validator.LoginRequest
type AdminLoginRequest = validator.AdminLoginRequest
type StartAttemptRequest = validator.StartAttemptRequest
type UpdateAttemptRequest = validator.UpdateAttemptRequest
type AnswerSubmission = validator.AnswerSubmission
type ViolationEventRequest = validator.ViolationEventRequest
type CreateUserRequest = validator.CreateUserRequest
type CreateQuestionRequest = validator.QuestionCreateRequest
type CreateNotificationRequest = validator.NotificationCreateRequest

type LoginResponse struct {
	*models.UserProfile
	SessionCount int       `json:"session_count"`
	MaxSessions  int       `json:"max_sessions"`
	Token        string    `json:"token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type TokenResponse struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ===== ATTEMPT RELATED DTOs =====

type AttemptResponse struct {
	*models.Attempt
	Resumed          bool      `json:"resumed"`
	Deadline         time.Time `json:"deadline"`
	RemainingSeconds int       `json:"remaining_seconds"`
}

type AttemptView struct {
	*models.Attempt
	Severity proctoring.Severity `json:"severity"`
}

type AttemptListResponse struct {
	Attempts []*AttemptView `json:"attempts"`
	Sessions map[string]int `json:"sessions"`
}

type ViolationResult struct {
	AttemptID  string `json:"attempt_id"`
	Type       string `json:"type"`
	Counted    bool   `json:"counted"`
	Violations int    `json:"violations"`
	Warning    string `json:"warning"`
}

type ResetResult struct {
	AttemptsDeleted int64 `json:"attempts_deleted"`
}

// ===== SERVICE INTERFACES =====

// AuthService is the login gate
type AuthService interface {
	Authenticate(ctx context.Context, req *LoginRequest) (*LoginResponse, error)
	AdminLogin(ctx context.Context, req *AdminLoginRequest) (*TokenResponse, error)
	// LookupProfile is the admin-only profile search
	LookupProfile(ctx context.Context, email string) (*models.UserProfile, error)
}

// AttemptService tracks quiz attempts from start to submission
type AttemptService interface {
	Start(ctx context.Context, req *StartAttemptRequest) (*AttemptResponse, error)
	// ReportViolation overwrites the violation count with an absolute value
	ReportViolation(ctx context.Context, email string, violations int) (*models.Attempt, error)
	RecordEvent(ctx context.Context, req *ViolationEventRequest) (*ViolationResult, error)
	Complete(ctx context.Context, req *UpdateAttemptRequest) (*models.Attempt, error)

	// Admin operations
	List(ctx context.Context) (*AttemptListResponse, error)
	Events(ctx context.Context, attemptID string) ([]*models.ViolationEvent, error)
	ResetAll(ctx context.Context, actor string) (*ResetResult, error)
	ExpireStale(ctx context.Context, now time.Time) (int, error)
}

type UserService interface {
	List(ctx context.Context) ([]*models.UserView, error)
	Create(ctx context.Context, req *CreateUserRequest, actor string) (*models.UserProfile, error)
	Block(ctx context.Context, email, actor string) (bool, error)
	Unblock(ctx context.Context, email, actor string) (bool, error)
}

type QuestionService interface {
	List(ctx context.Context) ([]*models.Question, error)
	ListPublic(ctx context.Context) ([]*models.PublicQuestion, error)
	Create(ctx context.Context, req *CreateQuestionRequest, actor string) (*models.Question, error)
	Delete(ctx context.Context, id uint, actor string) error
}

type NotificationService interface {
	List(ctx context.Context) ([]*models.Notification, error)
	Create(ctx context.Context, req *CreateNotificationRequest, actor string) (*models.Notification, error)
}

type AuditService interface {
	List(ctx context.Context) ([]*models.LogEntry, error)
}

type DashboardService interface {
	Overview(ctx context.Context) (*models.Overview, error)
	Leaderboard(ctx context.Context) ([]*models.LeaderboardEntry, error)
	ExportLeaderboard(ctx context.Context) ([]byte, error)
}

type ServiceManager interface {
	// Core service getters
	Auth() AuthService
	Attempt() AttemptService
	User() UserService
	Question() QuestionService
	Notification() NotificationService
	Audit() AuditService
	Dashboard() DashboardService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
