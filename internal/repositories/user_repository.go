package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/models"
)

// UserRepository is the student roster. Lookups are exact and case-sensitive.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Count(ctx context.Context) (int64, error)

	// Create returns ErrDuplicate when the email is already present
	Create(ctx context.Context, user *models.User) error
}

// BlockRepository is the block list. Block and Unblock report whether membership changed.
type BlockRepository interface {
	IsBlocked(ctx context.Context, email string) (bool, error)
	Block(ctx context.Context, email string, at time.Time) (bool, error)
	Unblock(ctx context.Context, email string) (bool, error)
	List(ctx context.Context) ([]string, error)
}

// SessionRepository tracks login counts per email.
type SessionRepository interface {
	// Get returns 0 for an email that never logged in
	Get(ctx context.Context, email string) (int, error)

	// Increment atomically adds one unless the count already reached limit,
	// in which case it returns ErrSessionLimit. It returns the new count.
	Increment(ctx context.Context, email string, limit int) (int, error)

	All(ctx context.Context) (map[string]int, error)
	DeleteAll(ctx context.Context) error
}
