package models

import (
	"time"
)

const (
	AttemptEndReasonSubmitted = "submitted"
	AttemptEndReasonTimeout   = "time_out"
)

// Attempt is one quiz run for a student. At most one attempt per email has
// Completed=false; once Completed is set the row is never updated again.
type Attempt struct {
	ID             string     `json:"id" gorm:"primaryKey;size:36"`
	Email          string     `json:"email" gorm:"not null;index;size:255"`
	StartTime      time.Time  `json:"start_time" gorm:"not null"`
	EndTime        *time.Time `json:"end_time"`
	Violations     int        `json:"violations" gorm:"not null;default:0"`
	Completed      bool       `json:"completed" gorm:"not null;default:false;index"`
	Score          *int       `json:"score"`
	TotalQuestions *int       `json:"total_questions"`
	EndReason      *string    `json:"end_reason" gorm:"size:32"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (Attempt) TableName() string {
	return "attempts"
}

// Duration returns the time between start and end, or zero while the attempt is open.
func (a *Attempt) Duration() time.Duration {
	if a.EndTime == nil {
		return 0
	}
	return a.EndTime.Sub(a.StartTime)
}

// ViolationEvent is one proctoring observation reported by the client.
// Only Counted events contribute to the attempt's violation total.
type ViolationEvent struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	AttemptID  string    `json:"attempt_id" gorm:"not null;index;size:36"`
	Email      string    `json:"email" gorm:"not null;size:255"`
	Type       string    `json:"type" gorm:"not null;size:32"`
	Counted    bool      `json:"counted" gorm:"not null;default:false"`
	OccurredAt time.Time `json:"occurred_at"`
	ReceivedAt time.Time `json:"received_at"`
}

func (ViolationEvent) TableName() string {
	return "violation_events"
}
