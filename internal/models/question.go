package models

import (
	"time"

	"gorm.io/datatypes"
)

// Question is a single multiple-choice item. IDs are assigned as max(id)+1.
type Question struct {
	ID           uint                        `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Text         string                      `json:"text" gorm:"type:text;not null"`
	Options      datatypes.JSONSlice[string] `json:"options" gorm:"not null"`
	CorrectIndex int                         `json:"correct_index" gorm:"not null"`
	CreatedAt    time.Time                   `json:"created_at"`
}

func (Question) TableName() string {
	return "questions"
}

// Public returns the question without its answer key.
func (q *Question) Public() *PublicQuestion {
	return &PublicQuestion{
		ID:      q.ID,
		Text:    q.Text,
		Options: append([]string(nil), q.Options...),
	}
}

type Notification struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Title     string    `json:"title" gorm:"not null;size:255"`
	Message   string    `json:"message" gorm:"type:text;not null"`
	Timestamp time.Time `json:"timestamp" gorm:"not null;index"`
}

func (Notification) TableName() string {
	return "notifications"
}

// LogEntry is an append-only audit record.
type LogEntry struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Timestamp time.Time `json:"timestamp" gorm:"not null;index"`
	Action    string    `json:"action" gorm:"not null;size:100"`
	User      string    `json:"user" gorm:"column:actor;not null;size:255"`
	Details   string    `json:"details" gorm:"type:text"`
}

func (LogEntry) TableName() string {
	return "audit_logs"
}

// Audit actions written to the log feed.
const (
	ActionLoginSuccessful   = "Login Successful"
	ActionQuizStarted       = "Quiz Started"
	ActionQuizSubmitted     = "Quiz Submitted"
	ActionQuizAutoSubmitted = "Quiz Auto-Submitted"
	ActionSystemReset       = "System Reset"
	ActionUserBlocked       = "User Blocked"
	ActionUserUnblocked     = "User Unblocked"
	ActionUserAdded         = "User Added"
	ActionQuestionAdded     = "Question Added"
	ActionQuestionDeleted   = "Question Deleted"
	ActionNotificationSent  = "Notification Sent"
	ActionAdminLogin        = "Admin Login"
)
