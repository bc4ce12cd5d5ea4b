package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/models"
)

const legacyDocument = `{
  "attempts": [
    {"email": "done@x.com", "startTime": "3/14/2025, 9:00:00 AM", "violations": 2, "completed": true, "endTime": "3/14/2025, 9:07:30 AM"},
    {"email": "open@x.com", "startTime": "3/14/2025, 10:00:00 AM", "violations": 0, "completed": false}
  ],
  "sessions": {"done@x.com": 2},
  "notifications": [
    {"id": 1741942800000, "title": "Welcome", "message": "Good luck", "timestamp": "3/14/2025, 8:00:00 AM", "read": false}
  ],
  "blockedUsers": ["a@x.com"],
  "logs": [
    {"timestamp": "3/14/2025, 8:00:00 AM", "action": "Notification Sent", "user": "Admin", "details": "Notification: \"Welcome\""},
    {"timestamp": "3/14/2025, 9:07:30 AM", "action": "Quiz Submitted", "user": "done@x.com", "details": "Violations: 2"}
  ],
  "questions": [
    {"id": 1, "q": "2+2?", "options": ["3", "4"], "correct": 1}
  ]
}`

func TestOpen_LegacyDocument(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db.json")
	require.NoError(t, os.WriteFile(path, []byte(legacyDocument), 0o644))

	store, err := Open(path)
	require.NoError(t, err)
	repo := store.Repository()

	blocked, err := repo.Block().IsBlocked(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, blocked)

	completed, err := repo.Attempt().ListCompleted(ctx)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	done := completed[0]
	assert.NotEmpty(t, done.ID)
	assert.Equal(t, 2, done.Violations)
	require.NotNil(t, done.EndTime)
	assert.Equal(t, 7*time.Minute+30*time.Second, done.Duration())
	assert.Equal(t, time.March, done.StartTime.Month())

	active, err := repo.Attempt().GetActive(ctx, "open@x.com")
	require.NoError(t, err)
	assert.Equal(t, 10, active.StartTime.Hour())

	count, err := repo.Session().Get(ctx, "done@x.com")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	questions, err := repo.Question().List(ctx)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, "2+2?", questions[0].Text)
	assert.Equal(t, 1, questions[0].CorrectIndex)

	notifications, err := repo.Notification().List(ctx)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, "Welcome", notifications[0].Title)
	assert.False(t, notifications[0].Timestamp.IsZero())

	// new entries continue the numbering of the imported log
	require.NoError(t, repo.Log().Append(ctx, &models.LogEntry{Action: "System Reset", User: "admin", Timestamp: time.Now()}))
	logs, err := repo.Log().List(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, "System Reset", logs[0].Action)
	assert.EqualValues(t, 3, logs[0].ID)
	assert.EqualValues(t, 2, logs[1].ID)

	// the write above saved the current layout, which must load again
	require.NoError(t, store.Close())
	reopened, err := Open(path)
	require.NoError(t, err)
	blocked, err = reopened.Repository().Block().IsBlocked(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, blocked)
}

func TestOpen_RejectsUnknownTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"attempts":[{"email":"a@x.com","startTime":"yesterday"}]}`), 0o644))

	_, err := Open(path)
	assert.ErrorContains(t, err, "unrecognized timestamp")
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-03-14T09:00:00Z", time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)},
		{"3/14/2025, 9:00:00 PM", time.Date(2025, 3, 14, 21, 0, 0, 0, time.Local)},
		{"3/14/2025, 9:00:00\u202fPM", time.Date(2025, 3, 14, 21, 0, 0, 0, time.Local)},
		{"2025-03-14 09:00:00", time.Date(2025, 3, 14, 9, 0, 0, 0, time.Local)},
		{"", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTimestamp(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}
