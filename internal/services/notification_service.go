package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/events"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/models"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/repositories"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/validator"
)

type notificationService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewNotificationService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) NotificationService {
	return &notificationService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

func (s *notificationService) List(ctx context.Context) ([]*models.Notification, error) {
	notifications, err := s.repo.Notification().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (s *notificationService) Create(ctx context.Context, req *CreateNotificationRequest, actor string) (*models.Notification, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Message = strings.TrimSpace(req.Message)
	if errs := s.validator.Validate(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, errs)
	}

	notification := &models.Notification{
		Title:     req.Title,
		Message:   req.Message,
		Timestamp: time.Now(),
	}
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Notification().Create(ctx, notification); err != nil {
			return fmt.Errorf("failed to create notification: %w", err)
		}
		return recordLog(ctx, tx, models.ActionNotificationSent, actor, notification.Title)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Notification sent", "notification_id", notification.ID, "actor", actor)
	publishEvent(ctx, s.publisher, s.logger, events.NotificationSent, events.NotificationEventData{
		ID:    notification.ID,
		Title: notification.Title,
	})
	return notification, nil
}
