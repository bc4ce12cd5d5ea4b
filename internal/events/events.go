package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "quiz-service"
	EventVersion = "1.0"
)

// Event types
const (
	AttemptStarted     = "attempt.started"
	AttemptViolation   = "attempt.violation"
	AttemptCompleted   = "attempt.completed"
	AttemptsReset      = "attempts.reset"
	UserBlocked        = "user.blocked"
	UserUnblocked      = "user.unblocked"
	NotificationSent   = "notification.sent"
	AuthLoginSucceeded = "auth.login"
)

// Event is the envelope published for every domain change
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// NewEvent stamps an envelope around data
func NewEvent(eventType string, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher delivers domain events. Publishing is best effort: callers
// log failures and carry on.
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// Payloads

type AttemptEventData struct {
	AttemptID  string `json:"attempt_id"`
	Email      string `json:"email"`
	Violations int    `json:"violations"`
	Score      *int   `json:"score,omitempty"`
	Total      *int   `json:"total_questions,omitempty"`
	EndReason  string `json:"end_reason,omitempty"`
}

type ViolationEventData struct {
	AttemptID  string `json:"attempt_id"`
	Email      string `json:"email"`
	Type       string `json:"type"`
	Counted    bool   `json:"counted"`
	Violations int    `json:"violations"`
}

type UserEventData struct {
	Email string `json:"email"`
	Actor string `json:"actor"`
}

type ResetEventData struct {
	Actor           string `json:"actor"`
	AttemptsDeleted int    `json:"attempts_deleted"`
}

type NotificationEventData struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

type LoginEventData struct {
	Email        string `json:"email"`
	SessionCount int    `json:"session_count"`
}
