package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/auth"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/events"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/models"
)

func TestUserService_CreateHashesPassword(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	profile, err := env.users.Create(ctx, &CreateUserRequest{
		Email: " s1@test.com ", Password: "p1", Name: "S One", Number: "555", Location: "Lab 1",
	}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "s1@test.com", profile.Email)
	assert.Equal(t, "555", profile.Phone)

	stored, err := env.repo.User().GetByEmail(ctx, "s1@test.com")
	require.NoError(t, err)
	assert.True(t, auth.IsHashed(stored.Password))
	assert.True(t, auth.CheckPassword(stored.Password, "p1"))

	_, err = env.users.Create(ctx, &CreateUserRequest{Email: "s1@test.com", Password: "x", Name: "Dup"}, "admin")
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = env.users.Create(ctx, &CreateUserRequest{Email: "not-an-email", Password: "x", Name: "Bad"}, "admin")
	assert.ErrorIs(t, err, ErrValidationFailed)

	assert.Equal(t, []string{models.ActionUserAdded}, logActions(t, env))
}

func TestUserService_BlockIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.addUser(t, "s1@test.com", "p1", "S One")
	env.addUser(t, "s2@test.com", "p2", "S Two")

	changed, err := env.users.Block(ctx, "s1@test.com", "admin")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = env.users.Block(ctx, "s1@test.com", "admin")
	require.NoError(t, err)
	assert.False(t, changed)

	views, err := env.users.List(ctx)
	require.NoError(t, err)
	require.Len(t, views, 2)
	blocked := map[string]bool{}
	for _, v := range views {
		blocked[v.Email] = v.Blocked
	}
	assert.Equal(t, map[string]bool{"s1@test.com": true, "s2@test.com": false}, blocked)

	changed, err = env.users.Unblock(ctx, "s1@test.com", "admin")
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = env.users.Unblock(ctx, "s1@test.com", "admin")
	require.NoError(t, err)
	assert.False(t, changed)

	actions := logActions(t, env)
	assert.Equal(t, []string{models.ActionUserUnblocked, models.ActionUserBlocked}, actions[:2])
	assert.Len(t, actions, 4)
	assert.Equal(t, []string{events.UserBlocked, events.UserUnblocked}, env.publisher.Types())

	// entries name the affected student; the admin goes in the details
	entries, err := env.audit.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s1@test.com", entries[0].User)
	assert.Equal(t, "User unblocked by admin", entries[0].Details)
	assert.Equal(t, "s1@test.com", entries[1].User)
	assert.Equal(t, "User blocked by admin", entries[1].Details)
}

func TestQuestionService_CreateAndDelete(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	q, err := env.questions.Create(ctx, &CreateQuestionRequest{Text: " 2+2? ", Options: []string{"3", "4"}, CorrectIndex: 1}, "admin")
	require.NoError(t, err)
	assert.EqualValues(t, 1, q.ID)
	assert.Equal(t, "2+2?", q.Text)

	_, err = env.questions.Create(ctx, &CreateQuestionRequest{Text: "Pick", Options: []string{"only"}}, "admin")
	assert.ErrorIs(t, err, ErrValidationFailed)
	_, err = env.questions.Create(ctx, &CreateQuestionRequest{Text: "Pick", Options: []string{"a", "b"}, CorrectIndex: 2}, "admin")
	assert.ErrorIs(t, err, ErrValidationFailed)

	public, err := env.questions.ListPublic(ctx)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, []string{"3", "4"}, public[0].Options)

	err = env.questions.Delete(ctx, 7, "admin")
	assert.ErrorIs(t, err, ErrQuestionNotFound)

	all, err := env.questions.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 1, all[0].CorrectIndex)

	require.NoError(t, env.questions.Delete(ctx, 1, "admin"))
	all, err = env.questions.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	assert.Equal(t, []string{models.ActionQuestionDeleted, models.ActionQuestionAdded}, logActions(t, env))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short"))
	long := "abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyz"
	assert.Equal(t, long[:50]+"...", preview(long))
}

func TestNotificationService_Create(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	n, err := env.notification.Create(ctx, &CreateNotificationRequest{Title: "Heads up", Message: "Quiz starts at 10"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "Heads up", n.Title)
	assert.False(t, n.Timestamp.IsZero())

	_, err = env.notification.Create(ctx, &CreateNotificationRequest{Title: "  ", Message: "x"}, "admin")
	assert.ErrorIs(t, err, ErrValidationFailed)

	list, err := env.notification.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, []string{models.ActionNotificationSent}, logActions(t, env))
	assert.Equal(t, []string{events.NotificationSent}, env.publisher.Types())
}
