package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/cache"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/events"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/metrics"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/models"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/proctoring"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/repositories"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/validator"
)

type attemptService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	cache     *cache.CacheManager
	metrics   *metrics.Metrics
	policy    proctoring.Policy
}

func NewAttemptService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, cacheManager *cache.CacheManager, m *metrics.Metrics, policy proctoring.Policy) AttemptService {
	return &attemptService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		cache:     cacheManager,
		metrics:   m,
		policy:    policy,
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

// Start opens a new attempt, or returns the open one if the student already has it.
func (s *attemptService) Start(ctx context.Context, req *StartAttemptRequest) (*AttemptResponse, error) {
	s.logger.Info("Starting quiz attempt", "email", req.Email)

	if errs := s.validator.Validate(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, errs)
	}

	if err := req.Display.Check(); err != nil {
		s.logger.Info("Attempt start rejected", "email", req.Email, "reason", err.Error())
		return nil, ErrMultiMonitorDetected
	}

	if err := s.checkEligible(ctx, req.Email); err != nil {
		return nil, err
	}

	current, err := s.repo.Attempt().GetActive(ctx, req.Email)
	if err == nil {
		s.logger.Info("Resuming existing attempt", "attempt_id", current.ID)
		return s.toResponse(current, true), nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to get active attempt: %w", err)
	}

	attempt := &models.Attempt{
		ID:         uuid.NewString(),
		Email:      req.Email,
		StartTime:  time.Now(),
		Violations: 0,
		Completed:  false,
	}
	if err := s.repo.Attempt().Create(ctx, attempt); err != nil {
		if !repositories.IsDuplicateError(err) {
			return nil, fmt.Errorf("failed to create attempt: %w", err)
		}
		// lost a race with a concurrent start for the same email
		current, getErr := s.repo.Attempt().GetActive(ctx, req.Email)
		if getErr != nil {
			return nil, fmt.Errorf("failed to get active attempt: %w", getErr)
		}
		return s.toResponse(current, true), nil
	}

	if err := recordLog(ctx, s.repo, models.ActionQuizStarted, req.Email, fmt.Sprintf("Attempt %s", attempt.ID)); err != nil {
		s.logger.Error("Failed to record attempt start", "attempt_id", attempt.ID, "error", err)
	}

	s.metrics.AttemptStarted()
	publishEvent(ctx, s.publisher, s.logger, events.AttemptStarted, events.AttemptEventData{
		AttemptID: attempt.ID,
		Email:     attempt.Email,
	})
	invalidateReports(ctx, s.cache)

	s.logger.Info("Quiz attempt started successfully", "attempt_id", attempt.ID, "email", attempt.Email)

	return s.toResponse(attempt, false), nil
}

// ReportViolation sets the violation count to the client's absolute value.
// Later reports win even when they are lower.
func (s *attemptService) ReportViolation(ctx context.Context, email string, violations int) (*models.Attempt, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidationFailed)
	}
	if violations < 0 {
		return nil, fmt.Errorf("%w: violations must be at least 0", ErrValidationFailed)
	}

	attempt, err := s.activeAttempt(ctx, s.repo, email)
	if err != nil {
		return nil, err
	}

	update := repositories.AttemptUpdate{Violations: &violations}
	if err := s.repo.Attempt().UpdateActive(ctx, attempt.ID, update); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrNoActiveAttempt
		}
		return nil, fmt.Errorf("failed to update violations: %w", err)
	}
	update.Apply(attempt)

	s.logger.Debug("Violation count updated", "attempt_id", attempt.ID, "violations", violations)
	invalidateReports(ctx, s.cache)

	return attempt, nil
}

// RecordEvent appends a proctoring event and recomputes the violation count from the log.
func (s *attemptService) RecordEvent(ctx context.Context, req *ViolationEventRequest) (*ViolationResult, error) {
	if errs := s.validator.Validate(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, errs)
	}

	received := time.Now()
	occurred := received
	if req.OccurredAt != nil && !req.OccurredAt.IsZero() && !req.OccurredAt.After(received) {
		occurred = *req.OccurredAt
	}

	result := &ViolationResult{
		Type:    string(req.Type),
		Counted: req.Type.Counted(),
		Warning: req.Type.Warning(),
	}

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		attempt, err := s.activeAttempt(ctx, tx, req.Email)
		if err != nil {
			return err
		}
		result.AttemptID = attempt.ID
		result.Violations = attempt.Violations

		event := &models.ViolationEvent{
			ID:         uuid.NewString(),
			AttemptID:  attempt.ID,
			Email:      req.Email,
			Type:       string(req.Type),
			Counted:    result.Counted,
			OccurredAt: occurred,
			ReceivedAt: received,
		}
		if err := tx.Violation().Append(ctx, event); err != nil {
			return fmt.Errorf("failed to append violation event: %w", err)
		}
		if !result.Counted {
			return nil
		}

		count, err := tx.Violation().CountCounted(ctx, attempt.ID)
		if err != nil {
			return fmt.Errorf("failed to count violations: %w", err)
		}
		if err := tx.Attempt().UpdateActive(ctx, attempt.ID, repositories.AttemptUpdate{Violations: &count}); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrNoActiveAttempt
			}
			return fmt.Errorf("failed to update violations: %w", err)
		}
		result.Violations = count
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Violation(result.Type, result.Counted)
	publishEvent(ctx, s.publisher, s.logger, events.AttemptViolation, events.ViolationEventData{
		AttemptID:  result.AttemptID,
		Email:      req.Email,
		Type:       result.Type,
		Counted:    result.Counted,
		Violations: result.Violations,
	})
	if result.Counted {
		invalidateReports(ctx, s.cache)
	}

	return result, nil
}

// Complete submits the caller's open attempt. Submitting again after a
// successful submission returns the completed attempt unchanged; a score
// arriving after the sweeper closed the attempt is rejected with ErrAttemptExpired.
func (s *attemptService) Complete(ctx context.Context, req *UpdateAttemptRequest) (*models.Attempt, error) {
	s.logger.Info("Completing quiz attempt", "email", req.Email)

	if errs := s.validator.Validate(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, errs)
	}

	attempt, err := s.activeAttempt(ctx, s.repo, req.Email)
	if err != nil {
		if errors.Is(err, ErrNoActiveAttempt) {
			return s.alreadySubmitted(ctx, req)
		}
		return nil, err
	}

	score, total, err := s.resolveScore(ctx, req)
	if err != nil {
		return nil, err
	}

	violations := attempt.Violations
	if req.Violations != nil {
		violations = *req.Violations
	}

	completed := true
	now := time.Now()
	reason := models.AttemptEndReasonSubmitted
	update := repositories.AttemptUpdate{
		Violations:     &violations,
		Completed:      &completed,
		EndTime:        &now,
		Score:          score,
		TotalQuestions: total,
		EndReason:      &reason,
	}

	return s.finish(ctx, attempt, update, models.ActionQuizSubmitted, submissionDetails(violations, score, total))
}

// ===== ADMIN OPERATIONS =====

func (s *attemptService) List(ctx context.Context) (*AttemptListResponse, error) {
	attempts, err := s.repo.Attempt().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	sessions, err := s.repo.Session().All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	views := make([]*AttemptView, len(attempts))
	for i, a := range attempts {
		views[i] = &AttemptView{Attempt: a, Severity: proctoring.SeverityOf(a.Violations)}
	}
	return &AttemptListResponse{Attempts: views, Sessions: sessions}, nil
}

func (s *attemptService) Events(ctx context.Context, attemptID string) ([]*models.ViolationEvent, error) {
	if _, err := s.repo.Attempt().GetByID(ctx, attemptID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	evts, err := s.repo.Violation().ListByAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to list violation events: %w", err)
	}
	return evts, nil
}

// ResetAll deletes every attempt, proctoring event and session counter.
func (s *attemptService) ResetAll(ctx context.Context, actor string) (*ResetResult, error) {
	s.logger.Warn("Resetting all attempts and sessions", "actor", actor)

	result := &ResetResult{}
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		counts, err := tx.Attempt().Counts(ctx)
		if err != nil {
			return fmt.Errorf("failed to count attempts: %w", err)
		}
		result.AttemptsDeleted = counts.Active + counts.Completed

		if err := tx.Violation().DeleteAll(ctx); err != nil {
			return fmt.Errorf("failed to delete violation events: %w", err)
		}
		if err := tx.Attempt().DeleteAll(ctx); err != nil {
			return fmt.Errorf("failed to delete attempts: %w", err)
		}
		if err := tx.Session().DeleteAll(ctx); err != nil {
			return fmt.Errorf("failed to delete sessions: %w", err)
		}

		return recordLog(ctx, tx, models.ActionSystemReset, actor, "All attempts and sessions cleared by admin")
	})
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.publisher, s.logger, events.AttemptsReset, events.ResetEventData{
		Actor:           actor,
		AttemptsDeleted: int(result.AttemptsDeleted),
	})
	invalidateReports(ctx, s.cache)

	s.logger.Info("System reset completed", "actor", actor, "attempts_deleted", result.AttemptsDeleted)
	return result, nil
}

// ExpireStale auto-submits attempts whose countdown ran out and were never submitted.
func (s *attemptService) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	stale, err := s.repo.Attempt().ListStale(ctx, s.policy.StaleBefore(now))
	if err != nil {
		return 0, fmt.Errorf("failed to list stale attempts: %w", err)
	}

	expired := 0
	for _, attempt := range stale {
		completed := true
		end := s.policy.Deadline(attempt.StartTime)
		reason := models.AttemptEndReasonTimeout
		update := repositories.AttemptUpdate{
			Completed: &completed,
			EndTime:   &end,
			EndReason: &reason,
		}

		if _, err := s.finish(ctx, attempt, update, models.ActionQuizAutoSubmitted, "Time limit exceeded"); err != nil {
			s.logger.Error("Failed to expire attempt", "attempt_id", attempt.ID, "error", err)
			continue
		}
		expired++
	}

	if expired > 0 {
		s.logger.Info("Expired stale attempts", "count", expired)
	}
	return expired, nil
}
