package models

import (
	"time"
)

// UserProfile is the credential-free view of a user.
type UserProfile struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

type UserView struct {
	UserProfile
	Blocked bool `json:"blocked"`
}

type PublicQuestion struct {
	ID      uint     `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

type Overview struct {
	TotalUsers     int64      `json:"total_users"`
	ActiveCount    int64      `json:"active_count"`
	CompletedCount int64      `json:"completed_count"`
	NonActive      int64      `json:"non_active"`
	LiveAttempts   []*Attempt `json:"live_attempts"`
	GeneratedAt    time.Time  `json:"generated_at"`
}

type LeaderboardEntry struct {
	Rank           int        `json:"rank"`
	Email          string     `json:"email"`
	Name           string     `json:"name"`
	Score          int        `json:"score"`
	TotalQuestions int        `json:"total_questions"`
	Violations     int        `json:"violations"`
	TimeTaken      string     `json:"time_taken"`
	SubmittedAt    *time.Time `json:"submitted_at"`
}
