package services

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/cache"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/models"
)

func TestLeaderboard_Ordering(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.addUser(t, "a@x.com", "p", "Alice")
	env.addUser(t, "b@x.com", "p", "Bob")

	env.seedCompleted(t, "1", "a@x.com", 3, 2, 90*time.Second)
	env.seedCompleted(t, "2", "b@x.com", 5, 4, time.Minute)
	env.seedCompleted(t, "3", "c@x.com", 3, 0, 2*time.Minute)
	env.seedCompleted(t, "4", "d@x.com", 3, 2, time.Minute)

	entries, err := env.dashboard.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	emails := make([]string, len(entries))
	for i, e := range entries {
		emails[i] = e.Email
		assert.Equal(t, i+1, e.Rank)
		if i > 0 {
			prev := entries[i-1]
			assert.GreaterOrEqual(t, prev.Score, e.Score)
			if prev.Score == e.Score {
				assert.LessOrEqual(t, prev.Violations, e.Violations)
			}
		}
	}
	// d submitted before a, so the full tie keeps that order with distinct ranks
	assert.Equal(t, []string{"b@x.com", "c@x.com", "d@x.com", "a@x.com"}, emails)

	assert.Equal(t, "Bob", entries[0].Name)
	assert.Equal(t, "Unknown", entries[1].Name)
	assert.Equal(t, "Alice", entries[3].Name)
	assert.Equal(t, "1m 30s", entries[3].TimeTaken)
	assert.Equal(t, 5, entries[3].TotalQuestions)
	assert.NotNil(t, entries[3].SubmittedAt)
}

func TestLeaderboard_SkipsOpenAttempts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.attempts.Start(ctx, &StartAttemptRequest{Email: "open@x.com"})
	require.NoError(t, err)

	entries, err := env.dashboard.Leaderboard(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFormatTimeTaken(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(9*time.Minute + 59*time.Second + 600*time.Millisecond)

	assert.Equal(t, "10m 0s", formatTimeTaken(&models.Attempt{StartTime: start, EndTime: &end}))
	assert.Equal(t, "N/A", formatTimeTaken(&models.Attempt{StartTime: start}))
}

func TestOverview_Counts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com"} {
		env.addUser(t, email, "p", "User")
	}

	_, err := env.attempts.Start(ctx, &StartAttemptRequest{Email: "a@x.com"})
	require.NoError(t, err)
	env.seedCompleted(t, "done", "b@x.com", 1, 0, time.Minute)

	overview, err := env.dashboard.Overview(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, overview.TotalUsers)
	assert.EqualValues(t, 1, overview.ActiveCount)
	assert.EqualValues(t, 1, overview.CompletedCount)
	assert.EqualValues(t, 2, overview.NonActive)
	require.Len(t, overview.LiveAttempts, 1)
	assert.Equal(t, "a@x.com", overview.LiveAttempts[0].Email)
}

func TestOverview_NonActiveNeverNegative(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	// attempts for emails missing from the roster
	_, err := env.attempts.Start(ctx, &StartAttemptRequest{Email: "ghost@x.com"})
	require.NoError(t, err)

	overview, err := env.dashboard.Overview(ctx)
	require.NoError(t, err)
	assert.Zero(t, overview.TotalUsers)
	assert.Zero(t, overview.NonActive)
}

func TestExportLeaderboard(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.addUser(t, "a@x.com", "p", "Alice")
	env.seedCompleted(t, "1", "a@x.com", 4, 1, 3*time.Minute)

	data, err := env.dashboard.ExportLeaderboard(ctx)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Leaderboard")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Rank", rows[0][0])
	assert.Equal(t, []string{"1", "a@x.com", "Alice", "4", "5", "1", "3m 0s"}, rows[1][:7])
}

func TestLeaderboard_CachedUntilCompletion(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cm := cache.NewCacheManager(client)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dashboard := NewDashboardService(env.repo, logger, cm)
	svc := env.attempts.(*attemptService)
	svc.cache = cm

	env.seedCompleted(t, "1", "a@x.com", 2, 0, time.Minute)

	entries, err := dashboard.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.True(t, mr.Exists(cache.ReportCacheConfig.Prefix+cache.VersionedKey(cache.LeaderboardKey, 0)))

	// a write behind the service's back is not visible while cached
	env.seedCompleted(t, "2", "b@x.com", 5, 0, time.Minute)
	entries, err = dashboard.Leaderboard(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// completing through the service invalidates the report
	_, err = svc.Start(ctx, &StartAttemptRequest{Email: "c@x.com"})
	require.NoError(t, err)
	_, err = svc.Complete(ctx, &UpdateAttemptRequest{Email: "c@x.com", Completed: true, Score: intPtr(1), TotalQuestions: intPtr(5)})
	require.NoError(t, err)

	entries, err = dashboard.Leaderboard(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}
