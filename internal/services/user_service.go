package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/auth"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/cache"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/events"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/models"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/repositories"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/validator"
)

type userService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	cache     *cache.CacheManager
}

func NewUserService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, cacheManager *cache.CacheManager) UserService {
	return &userService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		cache:     cacheManager,
	}
}

// List returns every roster entry with its block flag
func (s *userService) List(ctx context.Context) ([]*models.UserView, error) {
	users, err := s.repo.User().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	blocked, err := s.repo.Block().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked users: %w", err)
	}

	blockedSet := make(map[string]bool, len(blocked))
	for _, email := range blocked {
		blockedSet[email] = true
	}

	views := make([]*models.UserView, len(users))
	for i, u := range users {
		views[i] = &models.UserView{UserProfile: *u.Profile(), Blocked: blockedSet[u.Email]}
	}
	return views, nil
}

func (s *userService) Create(ctx context.Context, req *CreateUserRequest, actor string) (*models.UserProfile, error) {
	s.logger.Info("Adding user", "email", req.Email, "actor", actor)

	if errs := s.validator.ValidateCreateUser(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, errs)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:     req.Email,
		Password:  hash,
		Name:      req.Name,
		Phone:     req.Number,
		Location:  req.Location,
		CreatedAt: time.Now(),
	}
	if err := s.repo.User().Create(ctx, user); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if err := recordLog(ctx, s.repo, models.ActionUserAdded, user.Email, fmt.Sprintf("User added by %s", actor)); err != nil {
		s.logger.Error("Failed to record user creation", "email", user.Email, "error", err)
	}
	invalidateReports(ctx, s.cache)

	return user.Profile(), nil
}

// Block adds email to the block list. It reports whether the list changed;
// blocking an already blocked email is a no-op and writes no log entry.
func (s *userService) Block(ctx context.Context, email, actor string) (bool, error) {
	if email == "" {
		return false, fmt.Errorf("%w: email is required", ErrValidationFailed)
	}

	var changed bool
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		var err error
		changed, err = tx.Block().Block(ctx, email, time.Now())
		if err != nil {
			return fmt.Errorf("failed to block user: %w", err)
		}
		if !changed {
			return nil
		}
		return recordLog(ctx, tx, models.ActionUserBlocked, email, fmt.Sprintf("User blocked by %s", actor))
	})
	if err != nil {
		return false, err
	}

	if changed {
		s.logger.Info("User blocked", "email", email, "actor", actor)
		publishEvent(ctx, s.publisher, s.logger, events.UserBlocked, events.UserEventData{Email: email, Actor: actor})
		invalidateReports(ctx, s.cache)
	}
	return changed, nil
}

func (s *userService) Unblock(ctx context.Context, email, actor string) (bool, error) {
	if email == "" {
		return false, fmt.Errorf("%w: email is required", ErrValidationFailed)
	}

	var changed bool
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		var err error
		changed, err = tx.Block().Unblock(ctx, email)
		if err != nil {
			return fmt.Errorf("failed to unblock user: %w", err)
		}
		if !changed {
			return nil
		}
		return recordLog(ctx, tx, models.ActionUserUnblocked, email, fmt.Sprintf("User unblocked by %s", actor))
	})
	if err != nil {
		return false, err
	}

	if changed {
		s.logger.Info("User unblocked", "email", email, "actor", actor)
		publishEvent(ctx, s.publisher, s.logger, events.UserUnblocked, events.UserEventData{Email: email, Actor: actor})
		invalidateReports(ctx, s.cache)
	}
	return changed, nil
}
