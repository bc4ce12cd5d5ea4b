package filestore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/models"
)

// Data files written by the first version of the portal differ from the current
// layout: blocked users are bare emails, attempts have camelCase times and no id,
// questions are keyed q/correct, and timestamps are locale strings.
// decodeDocument reads both and returns the current layout.

type rawDocument struct {
	Users         []*models.User           `json:"users"`
	Attempts      []json.RawMessage        `json:"attempts"`
	Sessions      map[string]int           `json:"sessions"`
	Notifications []json.RawMessage        `json:"notifications"`
	BlockedUsers  []json.RawMessage        `json:"blockedUsers"`
	Logs          []json.RawMessage        `json:"logs"`
	Questions     []json.RawMessage        `json:"questions"`
	Violations    []*models.ViolationEvent `json:"violationEvents"`
}

type rawAttempt struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	StartTime      flexTime  `json:"start_time"`
	LegacyStart    flexTime  `json:"startTime"`
	EndTime        *flexTime `json:"end_time"`
	LegacyEnd      *flexTime `json:"endTime"`
	Violations     int       `json:"violations"`
	Completed      bool      `json:"completed"`
	Score          *int      `json:"score"`
	TotalQuestions *int      `json:"total_questions"`
	EndReason      *string   `json:"end_reason"`
	CreatedAt      flexTime  `json:"created_at"`
}

type rawQuestion struct {
	ID            uint     `json:"id"`
	Text          string   `json:"text"`
	LegacyText    string   `json:"q"`
	Options       []string `json:"options"`
	CorrectIndex  *int     `json:"correct_index"`
	LegacyCorrect *int     `json:"correct"`
	CreatedAt     flexTime `json:"created_at"`
}

type rawNotification struct {
	ID        uint     `json:"id"`
	Title     string   `json:"title"`
	Message   string   `json:"message"`
	Timestamp flexTime `json:"timestamp"`
}

type rawLogEntry struct {
	ID        uint     `json:"id"`
	Timestamp flexTime `json:"timestamp"`
	Action    string   `json:"action"`
	User      string   `json:"user"`
	Details   string   `json:"details"`
}

type rawBlockedUser struct {
	Email     string   `json:"email"`
	BlockedAt flexTime `json:"blocked_at"`
}

func decodeDocument(data []byte) (*document, error) {
	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	d := newDocument()
	d.Users = raw.Users
	d.Violations = raw.Violations
	if raw.Sessions != nil {
		d.Sessions = raw.Sessions
	}

	for i, msg := range raw.Attempts {
		var a rawAttempt
		if err := json.Unmarshal(msg, &a); err != nil {
			return nil, fmt.Errorf("attempts[%d]: %w", i, err)
		}
		d.Attempts = append(d.Attempts, a.toModel())
	}

	for i, msg := range raw.BlockedUsers {
		var b rawBlockedUser
		if bytes.HasPrefix(bytes.TrimSpace(msg), []byte(`"`)) {
			if err := json.Unmarshal(msg, &b.Email); err != nil {
				return nil, fmt.Errorf("blockedUsers[%d]: %w", i, err)
			}
		} else if err := json.Unmarshal(msg, &b); err != nil {
			return nil, fmt.Errorf("blockedUsers[%d]: %w", i, err)
		}
		d.BlockedUsers = append(d.BlockedUsers, &models.BlockedUser{Email: b.Email, BlockedAt: b.BlockedAt.Time})
	}

	for i, msg := range raw.Questions {
		var q rawQuestion
		if err := json.Unmarshal(msg, &q); err != nil {
			return nil, fmt.Errorf("questions[%d]: %w", i, err)
		}
		d.Questions = append(d.Questions, q.toModel())
	}

	for i, msg := range raw.Notifications {
		var n rawNotification
		if err := json.Unmarshal(msg, &n); err != nil {
			return nil, fmt.Errorf("notifications[%d]: %w", i, err)
		}
		d.Notifications = append(d.Notifications, &models.Notification{
			ID:        n.ID,
			Title:     n.Title,
			Message:   n.Message,
			Timestamp: n.Timestamp.Time,
		})
	}

	var lastLogID uint
	for i, msg := range raw.Logs {
		var l rawLogEntry
		if err := json.Unmarshal(msg, &l); err != nil {
			return nil, fmt.Errorf("logs[%d]: %w", i, err)
		}
		// appends number entries from the last id, so ids must stay increasing
		if l.ID <= lastLogID {
			l.ID = lastLogID + 1
		}
		lastLogID = l.ID
		d.Logs = append(d.Logs, &models.LogEntry{
			ID:        l.ID,
			Timestamp: l.Timestamp.Time,
			Action:    l.Action,
			User:      l.User,
			Details:   l.Details,
		})
	}

	return d, nil
}

func (a *rawAttempt) toModel() *models.Attempt {
	out := &models.Attempt{
		ID:             a.ID,
		Email:          a.Email,
		StartTime:      a.StartTime.Time,
		Violations:     a.Violations,
		Completed:      a.Completed,
		Score:          a.Score,
		TotalQuestions: a.TotalQuestions,
		EndReason:      a.EndReason,
		CreatedAt:      a.CreatedAt.Time,
	}
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.StartTime.IsZero() {
		out.StartTime = a.LegacyStart.Time
	}

	end := a.EndTime
	if end == nil || end.IsZero() {
		end = a.LegacyEnd
	}
	if end != nil && !end.IsZero() {
		t := end.Time
		out.EndTime = &t
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = out.StartTime
	}
	return out
}

func (q *rawQuestion) toModel() *models.Question {
	out := &models.Question{
		ID:        q.ID,
		Text:      q.Text,
		Options:   q.Options,
		CreatedAt: q.CreatedAt.Time,
	}
	if out.Text == "" {
		out.Text = q.LegacyText
	}
	switch {
	case q.CorrectIndex != nil:
		out.CorrectIndex = *q.CorrectIndex
	case q.LegacyCorrect != nil:
		out.CorrectIndex = *q.LegacyCorrect
	}
	return out
}

// flexTime decodes RFC 3339 as well as the locale strings browsers and Node
// produce from toLocaleString.
type flexTime struct {
	time.Time
}

var localeLayouts = []string{
	"1/2/2006, 3:04:05 PM",
	"1/2/2006, 15:04:05",
	"02/01/2006, 15:04:05",
	"2.1.2006, 15:04:05",
	"2006-01-02 15:04:05",
	"2006/1/2 15:04:05",
	"1/2/2006 3:04:05 PM",
}

func (t *flexTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := parseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	// Node separates the time and AM/PM with a narrow no-break space
	s = strings.TrimSpace(strings.NewReplacer("\u202f", " ", "\u00a0", " ").Replace(s))
	if s == "" {
		return time.Time{}, nil
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	// locale strings carry no zone; they were written in the server's local time
	for _, layout := range localeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
