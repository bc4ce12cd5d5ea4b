package repositories

import (
	"context"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/models"
)

// QuestionRepository holds the quiz question bank.
type QuestionRepository interface {
	// List returns questions ordered by id
	List(ctx context.Context) ([]*models.Question, error)
	// Create assigns question.ID as the current maximum plus one
	Create(ctx context.Context, question *models.Question) error
	// Delete returns ErrNotFound when the id is absent
	Delete(ctx context.Context, id uint) error
}

// NotificationRepository holds broadcast notifications.
type NotificationRepository interface {
	List(ctx context.Context) ([]*models.Notification, error)
	Create(ctx context.Context, notification *models.Notification) error
}

// LogRepository is the audit trail.
type LogRepository interface {
	Append(ctx context.Context, entry *models.LogEntry) error
	// List returns entries newest first
	List(ctx context.Context) ([]*models.LogEntry, error)
}
