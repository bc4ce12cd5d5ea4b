package validator

import (
	"time"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/proctoring"
)

// LoginRequest is the student login body
type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=255"`
	Password string `json:"password" validate:"required,max=255"`
	// Profile lookups without a password are served by the admin API only
	SearchOnly bool `json:"searchOnly" validate:"no_search_only"`
}

// AdminLoginRequest is the admin console login body
type AdminLoginRequest struct {
	Username string `json:"username" validate:"required,max=255"`
	Password string `json:"password" validate:"required,max=255"`
}

// StartAttemptRequest opens (or resumes) the caller's attempt
type StartAttemptRequest struct {
	Email   string              `json:"email" validate:"required,max=255"`
	Display *proctoring.Display `json:"display"`
}

// AnswerSubmission is one selected option
type AnswerSubmission struct {
	QuestionID uint `json:"question_id" validate:"required"`
	Selected   int  `json:"selected" validate:"min=0"`
}

// UpdateAttemptRequest either overwrites the violation count or, with
// completed set, submits the attempt.
type UpdateAttemptRequest struct {
	Email          string             `json:"email" validate:"required,max=255"`
	Violations     *int               `json:"violations" validate:"omitempty,min=0"`
	Completed      bool               `json:"completed"`
	Score          *int               `json:"score" validate:"omitempty,min=0"`
	TotalQuestions *int               `json:"total_questions" validate:"omitempty,min=0"`
	Answers        []AnswerSubmission `json:"answers" validate:"omitempty,max=500,dive"`
}

// ViolationEventRequest reports one proctoring signal
type ViolationEventRequest struct {
	Email      string               `json:"email" validate:"required,max=255"`
	Type       proctoring.EventType `json:"type" validate:"required,event_type"`
	OccurredAt *time.Time           `json:"occurred_at"`
}

// CreateUserRequest adds a roster entry
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=1,max=72"`
	Name     string `json:"name" validate:"required,max=100"`
	Number   string `json:"number" validate:"max=50"`
	Location string `json:"location" validate:"max=255"`
}

// BlockRequest names the user to block or unblock
type BlockRequest struct {
	Email string `json:"email" validate:"required,max=255"`
}

// QuestionCreateRequest adds a multiple-choice question
type QuestionCreateRequest struct {
	Text         string   `json:"text" validate:"required,max=2000"`
	Options      []string `json:"options" validate:"required,min=2,max=10,dive,required,max=500"`
	CorrectIndex int      `json:"correct_index" validate:"min=0"`
}

// NotificationCreateRequest broadcasts a message to students
type NotificationCreateRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=2000"`
}
