package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/cache"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/events"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/models"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/repositories"
)

type auditService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewAuditService(repo repositories.Repository, logger *slog.Logger) AuditService {
	return &auditService{repo: repo, logger: logger}
}

func (s *auditService) List(ctx context.Context) ([]*models.LogEntry, error) {
	entries, err := s.repo.Log().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list logs: %w", err)
	}
	return entries, nil
}

// recordLog appends an audit entry through repo, which may be a transaction
func recordLog(ctx context.Context, repo repositories.Repository, action, user, details string) error {
	entry := &models.LogEntry{
		Timestamp: time.Now(),
		Action:    action,
		User:      user,
		Details:   details,
	}
	if err := repo.Log().Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append log entry: %w", err)
	}
	return nil
}

// publishEvent is best effort; a broker outage never fails the request
func publishEvent(ctx context.Context, publisher events.EventPublisher, logger *slog.Logger, eventType string, data interface{}) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, events.NewEvent(eventType, data)); err != nil {
		logger.Warn("Failed to publish event", "type", eventType, "error", err)
	}
}

func invalidateReports(ctx context.Context, cm *cache.CacheManager) {
	cache.InvalidateReportCache(ctx, cm)
}
