package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/auth"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/events"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/metrics"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/models"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/repositories"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/validator"
)

// AdminCredentials is the single console account
type AdminCredentials struct {
	Username     string
	PasswordHash string
}

type authService struct {
	repo        repositories.Repository
	logger      *slog.Logger
	validator   *validator.Validator
	tokens      *auth.TokenManager
	publisher   events.EventPublisher
	metrics     *metrics.Metrics
	admin       AdminCredentials
	maxSessions int
}

func NewAuthService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, tokens *auth.TokenManager, publisher events.EventPublisher, m *metrics.Metrics, admin AdminCredentials, maxSessions int) AuthService {
	return &authService{
		repo:        repo,
		logger:      logger,
		validator:   validator,
		tokens:      tokens,
		publisher:   publisher,
		metrics:     m,
		admin:       admin,
		maxSessions: maxSessions,
	}
}

// Authenticate runs the gate checks in order: credentials, block list,
// session cap, prior submission. The session increment and its log entry
// commit together.
func (s *authService) Authenticate(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	s.logger.Info("Authenticating student", "email", req.Email)

	if errs := s.validator.Validate(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, errs)
	}

	var (
		user  *models.User
		count int
	)
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		var err error
		user, err = tx.User().GetByEmail(ctx, req.Email)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrInvalidCredentials
			}
			return fmt.Errorf("failed to get user: %w", err)
		}
		if !auth.CheckPassword(user.Password, req.Password) {
			return ErrInvalidCredentials
		}

		blocked, err := tx.Block().IsBlocked(ctx, req.Email)
		if err != nil {
			return fmt.Errorf("failed to check block list: %w", err)
		}
		if blocked {
			return ErrUserBlocked
		}

		current, err := tx.Session().Get(ctx, req.Email)
		if err != nil {
			return fmt.Errorf("failed to get session count: %w", err)
		}
		if current >= s.maxSessions {
			return s.sessionLimitError()
		}

		completed, err := tx.Attempt().HasCompleted(ctx, req.Email)
		if err != nil {
			return fmt.Errorf("failed to check attempts: %w", err)
		}
		if completed {
			return ErrAlreadyCompleted
		}

		count, err = tx.Session().Increment(ctx, req.Email, s.maxSessions)
		if err != nil {
			if errors.Is(err, repositories.ErrSessionLimit) {
				return s.sessionLimitError()
			}
			return fmt.Errorf("failed to increment session count: %w", err)
		}

		return recordLog(ctx, tx, models.ActionLoginSuccessful, req.Email,
			fmt.Sprintf("Session %d of %d", count, s.maxSessions))
	})
	if err != nil {
		s.metrics.Login(loginResult(err))
		if isBusinessError(err) {
			s.logger.Info("Login rejected", "email", req.Email, "reason", err.Error())
		}
		return nil, err
	}

	token, expires, err := s.tokens.Issue(user.Email, models.RoleStudent)
	if err != nil {
		return nil, err
	}

	s.metrics.Login("success")
	publishEvent(ctx, s.publisher, s.logger, events.AuthLoginSucceeded, events.LoginEventData{Email: user.Email, SessionCount: count})

	s.logger.Info("Student logged in", "email", user.Email, "session_count", count)

	return &LoginResponse{
		UserProfile:  user.Profile(),
		SessionCount: count,
		MaxSessions:  s.maxSessions,
		Token:        token,
		ExpiresAt:    expires,
	}, nil
}

func (s *authService) sessionLimitError() error {
	return fmt.Errorf("%w (Max %d sessions allowed)", ErrSessionLimitExceeded, s.maxSessions)
}

func (s *authService) AdminLogin(ctx context.Context, req *AdminLoginRequest) (*TokenResponse, error) {
	if errs := s.validator.Validate(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, errs)
	}

	if s.admin.Username == "" || s.admin.PasswordHash == "" {
		s.logger.Warn("Admin login attempted but no admin account is configured")
		return nil, ErrInvalidCredentials
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.admin.Username)) == 1
	passOK := auth.CheckPassword(s.admin.PasswordHash, req.Password)
	if !userOK || !passOK {
		s.logger.Info("Admin login rejected", "username", req.Username)
		return nil, ErrInvalidCredentials
	}

	token, expires, err := s.tokens.Issue(s.admin.Username, models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	if err := recordLog(ctx, s.repo, models.ActionAdminLogin, s.admin.Username, "Admin console login"); err != nil {
		s.logger.Error("Failed to record admin login", "error", err)
	}

	return &TokenResponse{
		Username:  s.admin.Username,
		Role:      string(models.RoleAdmin),
		Token:     token,
		ExpiresAt: expires,
	}, nil
}

func (s *authService) LookupProfile(ctx context.Context, email string) (*models.UserProfile, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidationFailed)
	}

	user, err := s.repo.User().GetByEmail(ctx, email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user.Profile(), nil
}

func loginResult(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrUserBlocked):
		return "blocked"
	case errors.Is(err, ErrSessionLimitExceeded):
		return "session_limit"
	case errors.Is(err, ErrAlreadyCompleted):
		return "already_completed"
	case errors.Is(err, ErrValidationFailed):
		return "invalid_request"
	default:
		return "error"
	}
}

// isBusinessError reports whether err is an expected rejection rather than a fault
func isBusinessError(err error) bool {
	for _, target := range []error{
		ErrUserNotFound, ErrInvalidCredentials, ErrUserBlocked, ErrSessionLimitExceeded,
		ErrAlreadyCompleted, ErrNoActiveAttempt, ErrAttemptNotFound, ErrValidationFailed, ErrQuestionNotFound,
		ErrUserExists, ErrMultiMonitorDetected, ErrUnauthorized, ErrForbidden,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
