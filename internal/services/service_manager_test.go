package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/auth"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/models"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/proctoring"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/repositories/filestore"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/validator"
)

func TestServiceManager_Lifecycle(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	repoManager := filestore.NewRepositoryManager("")
	require.NoError(t, repoManager.Initialize())

	sm := NewServiceManager(repoManager, logger, validator.New(), ServiceDependencies{}, ServiceManagerConfig{MaxSessions: 2})

	assert.Error(t, sm.HealthCheck(ctx))
	assert.Panics(t, func() { sm.Auth() })

	// tokens are required
	assert.Error(t, sm.Initialize(ctx))

	sm = NewServiceManager(repoManager, logger, validator.New(),
		ServiceDependencies{Tokens: auth.NewTokenManager("secret", time.Hour)},
		ServiceManagerConfig{MaxSessions: 2, Policy: proctoring.NewPolicy(10*time.Minute, 0)})
	require.NoError(t, sm.Initialize(ctx))

	assert.NotNil(t, sm.Auth())
	assert.NotNil(t, sm.Dashboard())
	assert.NoError(t, sm.HealthCheck(ctx))

	require.NoError(t, sm.Shutdown(ctx))
	assert.Error(t, sm.HealthCheck(ctx))
	assert.NoError(t, sm.Shutdown(ctx))
}

func TestSweeper_ExpiresStaleAttempts(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	repoManager := filestore.NewRepositoryManager("")
	require.NoError(t, repoManager.Initialize())
	repo := repoManager.GetRepository()

	require.NoError(t, repo.Attempt().Create(ctx, &models.Attempt{
		ID: "stale", Email: "s@x.com", StartTime: time.Now().Add(-time.Hour),
	}))

	sm := NewServiceManager(repoManager, logger, validator.New(),
		ServiceDependencies{Tokens: auth.NewTokenManager("secret", time.Hour)},
		ServiceManagerConfig{
			MaxSessions:   2,
			Policy:        proctoring.NewPolicy(10*time.Minute, 30*time.Second),
			SweepEnabled:  true,
			SweepInterval: 50 * time.Millisecond,
		})
	require.NoError(t, sm.Initialize(ctx))
	defer sm.Shutdown(ctx)

	assert.Eventually(t, func() bool {
		a, err := repo.Attempt().GetByID(ctx, "stale")
		return err == nil && a.Completed
	}, 2*time.Second, 20*time.Millisecond)
}
