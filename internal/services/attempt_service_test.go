package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/events"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/models"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/proctoring"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/repositories"
)

func intPtr(v int) *int { return &v }

func TestAttempt_StartThenComplete(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	started, err := env.attempts.Start(ctx, &StartAttemptRequest{Email: "a@x.com"})
	require.NoError(t, err)
	assert.False(t, started.Resumed)
	assert.Zero(t, started.Violations)
	assert.False(t, started.Completed)
	assert.Equal(t, started.StartTime.Add(10*time.Minute), started.Deadline)
	assert.InDelta(t, 600, started.RemainingSeconds, 2)

	done, err := env.attempts.Complete(ctx, &UpdateAttemptRequest{
		Email:          "a@x.com",
		Violations:     intPtr(2),
		Completed:      true,
		Score:          intPtr(3),
		TotalQuestions: intPtr(5),
	})
	require.NoError(t, err)
	assert.Equal(t, started.ID, done.ID)

	stored, err := env.repo.Attempt().GetByID(ctx, started.ID)
	require.NoError(t, err)
	assert.True(t, stored.Completed)
	assert.Equal(t, 2, stored.Violations)
	require.NotNil(t, stored.Score)
	assert.Equal(t, 3, *stored.Score)
	require.NotNil(t, stored.TotalQuestions)
	assert.Equal(t, 5, *stored.TotalQuestions)
	assert.NotNil(t, stored.EndTime)
	require.NotNil(t, stored.EndReason)
	assert.Equal(t, models.AttemptEndReasonSubmitted, *stored.EndReason)

	assert.Equal(t, []string{models.ActionQuizSubmitted, models.ActionQuizStarted}, logActions(t, env))
	assert.Equal(t, []string{events.AttemptStarted, events.AttemptCompleted}, env.publisher.Types())
}

func TestAttempt_StartResumesOpenAttempt(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	first, err := env.attempts.Start(ctx, &StartAttemptRequest{Email: "a@x.com"})
	require.NoError(t, err)
	second, err := env.attempts.Start(ctx, &StartAttemptRequest{Email: "a@x.com"})
	require.NoError(t, err)

	assert.True(t, second.Resumed)
	assert.Equal(t, first.ID, second.ID)

	counts, err := env.repo.Attempt().Counts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts.Active)
}

func TestAttempt_ConcurrentStartsShareOneAttempt(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	const n = 8
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := env.attempts.Start(ctx, &StartAttemptRequest{Email: "a@x.com"})
			if assert.NoError(t, err) {
				ids[i] = resp.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	counts, err := env.repo.Attempt().Counts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts.Active)
}

func TestAttempt_StartRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("extended display", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.attempts.Start(ctx, &StartAttemptRequest{
			Email:   "a@x.com",
			Display: &proctoring.Display{Extended: true, ScreenCount: 2},
		})
		assert.ErrorIs(t, err, ErrMultiMonitorDetected)
	})

	t.Run("blocked", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.users.Block(ctx, "a@x.com", "admin")
		require.NoError(t, err)
		_, err = env.attempts.Start(ctx, &StartAttemptRequest{Email: "a@x.com"})
		assert.ErrorIs(t, err, ErrUserBlocked)
	})

	t.Run("already completed", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedCompleted(t, "a1", "a@x.com", 1, 0, time.Minute)
		_, err := env.attempts.Start(ctx, &StartAttemptRequest{Email: "a@x.com"})
		assert.ErrorIs(t, err, ErrAlreadyCompleted)
	})

	t.Run("missing email", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.attempts.Start(ctx, &StartAttemptRequest{})
		assert.ErrorIs(t, err, ErrValidationFailed)
	})
}

func TestAttempt_ReportViolationOverwrites(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.attempts.Start(ctx, &StartAttemptRequest{Email: "a@x.com"})
	require.NoError(t, err)

	_, err = env.attempts.ReportViolation(ctx, "a@x.com", 3)
	require.NoError(t, err)
	updated, err := env.attempts.ReportViolation(ctx, "a@x.com", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Violations)

	stored, err := env.repo.Attempt().GetActive(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Violations)
}

func TestAttempt_ReportViolationWithoutAttempt(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.attempts.ReportViolation(context.Background(), "a@x.com", 1)
	assert.ErrorIs(t, err, ErrNoActiveAttempt)
}

func TestAttempt_CompletedIsImmutable(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	started, err := env.attempts.Start(ctx, &StartAttemptRequest{Email: "a@x.com"})
	require.NoError(t, err)
	_, err = env.attempts.Complete(ctx, &UpdateAttemptRequest{
		Email: "a@x.com", Violations: intPtr(2), Completed: true, Score: intPtr(3), TotalQuestions: intPtr(5),
	})
	require.NoError(t, err)
	before, err := env.repo.Attempt().GetByID(ctx, started.ID)
	require.NoError(t, err)

	_, err = env.attempts.ReportViolation(ctx, "a@x.com", 9)
	assert.ErrorIs(t, err, ErrNoActiveAttempt)

	_, err = env.attempts.RecordEvent(ctx, &ViolationEventRequest{Email: "a@x.com", Type: proctoring.EventFocusLost})
	assert.ErrorIs(t, err, ErrNoActiveAttempt)

	// a repeated submission succeeds and changes nothing
	again, err := env.attempts.Complete(ctx, &UpdateAttemptRequest{
		Email: "a@x.com", Violations: intPtr(0), Completed: true, Score: intPtr(5), TotalQuestions: intPtr(5),
	})
	require.NoError(t, err)
	assert.Equal(t, started.ID, again.ID)

	after, err := env.repo.Attempt().GetByID(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestAttempt_CompleteWithoutAnyAttempt(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.attempts.Complete(context.Background(), &UpdateAttemptRequest{Email: "a@x.com", Completed: true})
	assert.ErrorIs(t, err, ErrNoActiveAttempt)
}

func TestAttempt_CompleteGradesAnswers(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	q1, err := env.questions.Create(ctx, &CreateQuestionRequest{Text: "2+2?", Options: []string{"3", "4"}, CorrectIndex: 1}, "admin")
	require.NoError(t, err)
	q2, err := env.questions.Create(ctx, &CreateQuestionRequest{Text: "Capital of France?", Options: []string{"Paris", "Rome"}, CorrectIndex: 0}, "admin")
	require.NoError(t, err)

	_, err = env.attempts.Start(ctx, &StartAttemptRequest{Email: "a@x.com"})
	require.NoError(t, err)

	done, err := env.attempts.Complete(ctx, &UpdateAttemptRequest{
		Email:     "a@x.com",
		Completed: true,
		// a client-reported score is ignored when answers are sent
		Score: intPtr(99),
		Answers: []AnswerSubmission{
			{QuestionID: q1.ID, Selected: 1},
			{QuestionID: q2.ID, Selected: 1},
			{QuestionID: 42, Selected: 0},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, done.Score)
	assert.Equal(t, 1, *done.Score)
	require.NotNil(t, done.TotalQuestions)
	assert.Equal(t, 2, *done.TotalQuestions)
}

func TestAttempt_RecordEventCountsStructuralEvents(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	started, err := env.attempts.Start(ctx, &StartAttemptRequest{Email: "a@x.com"})
	require.NoError(t, err)

	res, err := env.attempts.RecordEvent(ctx, &ViolationEventRequest{Email: "a@x.com", Type: proctoring.EventTabHidden})
	require.NoError(t, err)
	assert.True(t, res.Counted)
	assert.Equal(t, 1, res.Violations)
	assert.Equal(t, proctoring.EventTabHidden.Warning(), res.Warning)

	res, err = env.attempts.RecordEvent(ctx, &ViolationEventRequest{Email: "a@x.com", Type: proctoring.EventPaste})
	require.NoError(t, err)
	assert.False(t, res.Counted)
	assert.Equal(t, 1, res.Violations)

	res, err = env.attempts.RecordEvent(ctx, &ViolationEventRequest{Email: "a@x.com", Type: proctoring.EventFullscreenExit})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Violations)

	stored, err := env.repo.Attempt().GetByID(ctx, started.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Violations)

	evts, err := env.attempts.Events(ctx, started.ID)
	require.NoError(t, err)
	require.Len(t, evts, 3)
	assert.Equal(t, string(proctoring.EventPaste), evts[1].Type)
	assert.False(t, evts[1].Counted)

	_, err = env.attempts.Events(ctx, "missing")
	assert.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestAttempt_RecordEventRejectsUnknownType(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.attempts.RecordEvent(context.Background(), &ViolationEventRequest{Email: "a@x.com", Type: "screenshot"})
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestAttempt_ExpireStale(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	now := time.Now()
	old := now.Add(-20 * time.Minute)
	require.NoError(t, env.repo.Attempt().Create(ctx, &models.Attempt{ID: "old", Email: "old@x.com", StartTime: old, Violations: 1}))
	require.NoError(t, env.repo.Attempt().Create(ctx, &models.Attempt{ID: "fresh", Email: "fresh@x.com", StartTime: now.Add(-time.Minute)}))

	expired, err := env.attempts.ExpireStale(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	stale, err := env.repo.Attempt().GetByID(ctx, "old")
	require.NoError(t, err)
	assert.True(t, stale.Completed)
	assert.Equal(t, 1, stale.Violations)
	require.NotNil(t, stale.EndTime)
	assert.True(t, stale.EndTime.Equal(old.Add(10*time.Minute)))
	require.NotNil(t, stale.EndReason)
	assert.Equal(t, models.AttemptEndReasonTimeout, *stale.EndReason)

	fresh, err := env.repo.Attempt().GetByID(ctx, "fresh")
	require.NoError(t, err)
	assert.False(t, fresh.Completed)

	assert.Contains(t, logActions(t, env), models.ActionQuizAutoSubmitted)

	// a second sweep finds nothing
	expired, err = env.attempts.ExpireStale(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, expired)
}

func TestAttempt_CompleteAfterTimeout(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	start := time.Now().Add(-20 * time.Minute)
	require.NoError(t, env.repo.Attempt().Create(ctx, &models.Attempt{ID: "late", Email: "late@x.com", StartTime: start}))
	expired, err := env.attempts.ExpireStale(ctx, time.Now())
	require.NoError(t, err)
	require.Equal(t, 1, expired)

	_, err = env.attempts.Complete(ctx, &UpdateAttemptRequest{
		Email: "late@x.com", Completed: true, Score: intPtr(4), TotalQuestions: intPtr(5),
	})
	assert.ErrorIs(t, err, ErrAttemptExpired)

	stored, err := env.repo.Attempt().GetByID(ctx, "late")
	require.NoError(t, err)
	assert.Nil(t, stored.Score)
	require.NotNil(t, stored.EndReason)
	assert.Equal(t, models.AttemptEndReasonTimeout, *stored.EndReason)

	// a bare completion carries nothing to lose and still returns the attempt
	again, err := env.attempts.Complete(ctx, &UpdateAttemptRequest{Email: "late@x.com", Completed: true})
	require.NoError(t, err)
	assert.Equal(t, "late", again.ID)
}

func TestAttempt_ResetAll(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.addUser(t, "s1@test.com", "p1", "S One")

	_, err := env.auth.Authenticate(ctx, &LoginRequest{Email: "s1@test.com", Password: "p1"})
	require.NoError(t, err)
	started, err := env.attempts.Start(ctx, &StartAttemptRequest{Email: "s1@test.com"})
	require.NoError(t, err)
	_, err = env.attempts.RecordEvent(ctx, &ViolationEventRequest{Email: "s1@test.com", Type: proctoring.EventFocusLost})
	require.NoError(t, err)
	env.seedCompleted(t, "done", "other@test.com", 2, 0, time.Minute)

	res, err := env.attempts.ResetAll(ctx, "admin")
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.AttemptsDeleted)

	list, err := env.attempts.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list.Attempts)
	assert.Empty(t, list.Sessions)

	evts, err := env.repo.Violation().ListByAttempt(ctx, started.ID)
	require.NoError(t, err)
	assert.Empty(t, evts)

	assert.Equal(t, models.ActionSystemReset, logActions(t, env)[0])
	assert.Contains(t, env.publisher.Types(), events.AttemptsReset)
}

func TestAttempt_ListIncludesSeverity(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.attempts.Start(ctx, &StartAttemptRequest{Email: "a@x.com"})
	require.NoError(t, err)
	_, err = env.attempts.ReportViolation(ctx, "a@x.com", proctoring.CriticalViolations+1)
	require.NoError(t, err)

	list, err := env.attempts.List(ctx)
	require.NoError(t, err)
	require.Len(t, list.Attempts, 1)
	assert.Equal(t, proctoring.SeverityCritical, list.Attempts[0].Severity)
}

func TestSubmissionDetails(t *testing.T) {
	assert.Equal(t, "Score: 3/5, Violations: 2", submissionDetails(2, intPtr(3), intPtr(5)))
	assert.Equal(t, "Violations: 0", submissionDetails(0, nil, nil))
}

// narrowingAttempts simulates a backend whose schema lacks the score columns
type narrowingAttempts struct {
	repositories.AttemptRepository
	rejected int
}

func (n *narrowingAttempts) UpdateActive(ctx context.Context, id string, update repositories.AttemptUpdate) error {
	if update.Score != nil || update.TotalQuestions != nil || update.EndReason != nil {
		n.rejected++
		return repositories.ErrSchemaMismatch
	}
	return n.AttemptRepository.UpdateActive(ctx, id, update)
}

type narrowingRepo struct {
	repositories.Repository
	attempts *narrowingAttempts
}

func (r *narrowingRepo) Attempt() repositories.AttemptRepository { return r.attempts }

func TestAttempt_CompleteFallsBackOnSchemaMismatch(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	repo := &narrowingRepo{Repository: env.repo, attempts: &narrowingAttempts{AttemptRepository: env.repo.Attempt()}}
	svc := env.attempts.(*attemptService)
	svc.repo = repo

	started, err := svc.Start(ctx, &StartAttemptRequest{Email: "a@x.com"})
	require.NoError(t, err)

	_, err = svc.Complete(ctx, &UpdateAttemptRequest{
		Email: "a@x.com", Violations: intPtr(1), Completed: true, Score: intPtr(4), TotalQuestions: intPtr(5),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.attempts.rejected)

	stored, err := env.repo.Attempt().GetByID(ctx, started.ID)
	require.NoError(t, err)
	assert.True(t, stored.Completed)
	assert.Equal(t, 1, stored.Violations)
	assert.Nil(t, stored.Score)
}
