package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/auth"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/events"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/metrics"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/models"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/proctoring"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/repositories"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/repositories/filestore"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/validator"
)

type testEnv struct {
	repo      repositories.Repository
	publisher *events.MockEventPublisher
	tokens    *auth.TokenManager

	auth         AuthService
	attempts     AttemptService
	users        UserService
	questions    QuestionService
	notification NotificationService
	audit        AuditService
	dashboard    DashboardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := filestore.Open("")
	require.NoError(t, err)
	repo := store.Repository()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	v := validator.New()
	publisher := events.NewMockEventPublisher(logger)
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	m := metrics.New()

	adminHash, err := auth.HashPassword("admin-pass")
	require.NoError(t, err)

	return &testEnv{
		repo:         repo,
		publisher:    publisher,
		tokens:       tokens,
		auth:         NewAuthService(repo, logger, v, tokens, publisher, m, AdminCredentials{Username: "admin", PasswordHash: adminHash}, 2),
		attempts:     NewAttemptService(repo, logger, v, publisher, nil, m, proctoring.NewPolicy(10*time.Minute, 30*time.Second)),
		users:        NewUserService(repo, logger, v, publisher, nil),
		questions:    NewQuestionService(repo, logger, v),
		notification: NewNotificationService(repo, logger, v, publisher),
		audit:        NewAuditService(repo, logger),
		dashboard:    NewDashboardService(repo, logger, nil),
	}
}

func (e *testEnv) addUser(t *testing.T, email, password, name string) {
	t.Helper()
	_, err := e.users.Create(context.Background(), &CreateUserRequest{Email: email, Password: password, Name: name}, "admin")
	require.NoError(t, err)
}

// seedCompleted stores a finished attempt directly, bypassing the service
func (e *testEnv) seedCompleted(t *testing.T, id, email string, score, violations int, took time.Duration) {
	t.Helper()
	ctx := context.Background()
	start := time.Now().Add(-time.Hour)
	require.NoError(t, e.repo.Attempt().Create(ctx, &models.Attempt{ID: id, Email: email, StartTime: start}))

	completed := true
	end := start.Add(took)
	total := 5
	require.NoError(t, e.repo.Attempt().UpdateActive(ctx, id, repositories.AttemptUpdate{
		Violations:     &violations,
		Completed:      &completed,
		EndTime:        &end,
		Score:          &score,
		TotalQuestions: &total,
	}))
}

func logActions(t *testing.T, e *testEnv) []string {
	t.Helper()
	entries, err := e.audit.List(context.Background())
	require.NoError(t, err)
	actions := make([]string, len(entries))
	for i, entry := range entries {
		actions[i] = entry.Action
	}
	return actions
}
