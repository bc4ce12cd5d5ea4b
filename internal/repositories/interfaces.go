package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/models"
)

// AttemptUpdate lists the fields a guarded update may set. Nil fields are left unchanged.
type AttemptUpdate struct {
	Violations     *int
	Completed      *bool
	EndTime        *time.Time
	Score          *int
	TotalQuestions *int
	EndReason      *string
}

// Narrow keeps only the fields every schema revision has.
func (u AttemptUpdate) Narrow() AttemptUpdate {
	return AttemptUpdate{
		Violations: u.Violations,
		Completed:  u.Completed,
		EndTime:    u.EndTime,
	}
}

// Apply copies the set fields onto an attempt.
func (u AttemptUpdate) Apply(a *models.Attempt) {
	if u.Violations != nil {
		a.Violations = *u.Violations
	}
	if u.Completed != nil {
		a.Completed = *u.Completed
	}
	if u.EndTime != nil {
		t := *u.EndTime
		a.EndTime = &t
	}
	if u.Score != nil {
		v := *u.Score
		a.Score = &v
	}
	if u.TotalQuestions != nil {
		v := *u.TotalQuestions
		a.TotalQuestions = &v
	}
	if u.EndReason != nil {
		v := *u.EndReason
		a.EndReason = &v
	}
}

type AttemptCounts struct {
	Active    int64
	Completed int64
}

// AttemptRepository stores attempts. The store itself guarantees that an email
// has at most one incomplete attempt and that completed attempts are never updated.
type AttemptRepository interface {
	// Create returns ErrDuplicate when the email already has an incomplete attempt
	Create(ctx context.Context, attempt *models.Attempt) error
	GetByID(ctx context.Context, id string) (*models.Attempt, error)
	GetActive(ctx context.Context, email string) (*models.Attempt, error)
	HasCompleted(ctx context.Context, email string) (bool, error)

	// UpdateActive applies the update only while the attempt is incomplete.
	// It returns ErrNotFound when no incomplete attempt with that id exists and
	// ErrSchemaMismatch when the backend rejects one of the columns.
	UpdateActive(ctx context.Context, id string, update AttemptUpdate) error

	// List returns attempts ordered by start time
	List(ctx context.Context) ([]*models.Attempt, error)
	// ListCompleted returns completed attempts ordered by end time
	ListCompleted(ctx context.Context) ([]*models.Attempt, error)
	ListActive(ctx context.Context) ([]*models.Attempt, error)
	ListStale(ctx context.Context, startedBefore time.Time) ([]*models.Attempt, error)
	Counts(ctx context.Context) (*AttemptCounts, error)
	DeleteAll(ctx context.Context) error
}

// ViolationRepository is the append-only proctoring event log.
type ViolationRepository interface {
	Append(ctx context.Context, event *models.ViolationEvent) error
	CountCounted(ctx context.Context, attemptID string) (int, error)
	ListByAttempt(ctx context.Context, attemptID string) ([]*models.ViolationEvent, error)
	DeleteAll(ctx context.Context) error
}
