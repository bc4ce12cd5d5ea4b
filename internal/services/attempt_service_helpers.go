package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/events"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/models"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/repositories"
)

// ===== ELIGIBILITY =====

func (s *attemptService) checkEligible(ctx context.Context, email string) error {
	blocked, err := s.repo.Block().IsBlocked(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to check block list: %w", err)
	}
	if blocked {
		return ErrUserBlocked
	}

	completed, err := s.repo.Attempt().HasCompleted(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to check attempts: %w", err)
	}
	if completed {
		return ErrAlreadyCompleted
	}
	return nil
}

func (s *attemptService) activeAttempt(ctx context.Context, repo repositories.Repository, email string) (*models.Attempt, error) {
	attempt, err := repo.Attempt().GetActive(ctx, email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrNoActiveAttempt
		}
		return nil, fmt.Errorf("failed to get active attempt: %w", err)
	}
	return attempt, nil
}

// alreadySubmitted makes a repeated submission succeed without mutating anything.
// A graded submission for an attempt the sweeper timed out is refused instead,
// so the client learns its score was not recorded.
func (s *attemptService) alreadySubmitted(ctx context.Context, req *UpdateAttemptRequest) (*models.Attempt, error) {
	completed, err := s.repo.Attempt().ListCompleted(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed attempts: %w", err)
	}

	var latest *models.Attempt
	for _, a := range completed {
		if a.Email == req.Email {
			latest = a
		}
	}
	if latest == nil {
		return nil, ErrNoActiveAttempt
	}

	graded := req.Score != nil || len(req.Answers) > 0
	if graded && latest.EndReason != nil && *latest.EndReason == models.AttemptEndReasonTimeout {
		s.logger.Warn("Submission arrived after attempt timed out, score not recorded",
			"attempt_id", latest.ID,
			"email", req.Email)
		return nil, ErrAttemptExpired
	}

	s.logger.Info("Attempt already submitted, ignoring duplicate submission", "attempt_id", latest.ID, "email", req.Email)
	return latest, nil
}

// ===== COMPLETION =====

// finish applies a completing update. A backend that rejects the analytics
// columns gets the narrow update so the attempt is still marked complete.
func (s *attemptService) finish(ctx context.Context, attempt *models.Attempt, update repositories.AttemptUpdate, action, details string) (*models.Attempt, error) {
	reason := models.AttemptEndReasonSubmitted
	if update.EndReason != nil {
		reason = *update.EndReason
	}

	err := s.repo.Attempt().UpdateActive(ctx, attempt.ID, update)
	if errors.Is(err, repositories.ErrSchemaMismatch) {
		s.logger.Warn("Attempt store rejected score fields, retrying with core fields only",
			"attempt_id", attempt.ID,
			"error", err)
		update = update.Narrow()
		err = s.repo.Attempt().UpdateActive(ctx, attempt.ID, update)
	}
	if err != nil {
		if repositories.IsNotFoundError(err) {
			// completed concurrently; report the stored result
			stored, getErr := s.repo.Attempt().GetByID(ctx, attempt.ID)
			if getErr != nil {
				return nil, fmt.Errorf("failed to get attempt: %w", getErr)
			}
			return stored, nil
		}
		return nil, fmt.Errorf("failed to complete attempt: %w", err)
	}
	update.Apply(attempt)

	if err := recordLog(ctx, s.repo, action, attempt.Email, details); err != nil {
		s.logger.Error("Failed to record attempt completion", "attempt_id", attempt.ID, "error", err)
	}

	s.metrics.AttemptCompleted(reason)
	publishEvent(ctx, s.publisher, s.logger, events.AttemptCompleted, events.AttemptEventData{
		AttemptID:  attempt.ID,
		Email:      attempt.Email,
		Violations: attempt.Violations,
		Score:      attempt.Score,
		Total:      attempt.TotalQuestions,
		EndReason:  reason,
	})
	invalidateReports(ctx, s.cache)

	s.logger.Info("Quiz attempt completed",
		"attempt_id", attempt.ID,
		"email", attempt.Email,
		"reason", reason,
		"violations", attempt.Violations)

	return attempt, nil
}

// resolveScore grades submitted answers against the question bank, or falls
// back to the client-reported score.
func (s *attemptService) resolveScore(ctx context.Context, req *UpdateAttemptRequest) (*int, *int, error) {
	if len(req.Answers) == 0 {
		return req.Score, req.TotalQuestions, nil
	}

	questions, err := s.repo.Question().List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list questions: %w", err)
	}

	score, total := gradeAnswers(questions, req.Answers)
	return &score, &total, nil
}

// gradeAnswers counts correct selections. Unknown question ids are ignored and
// only the first answer per question counts.
func gradeAnswers(questions []*models.Question, answers []AnswerSubmission) (score, total int) {
	correct := make(map[uint]int, len(questions))
	for _, q := range questions {
		correct[q.ID] = q.CorrectIndex
	}

	seen := make(map[uint]bool, len(answers))
	for _, a := range answers {
		want, ok := correct[a.QuestionID]
		if !ok || seen[a.QuestionID] {
			continue
		}
		seen[a.QuestionID] = true
		if a.Selected == want {
			score++
		}
	}
	return score, len(questions)
}

func submissionDetails(violations int, score, total *int) string {
	if score != nil && total != nil {
		return fmt.Sprintf("Score: %d/%d, Violations: %d", *score, *total, violations)
	}
	return fmt.Sprintf("Violations: %d", violations)
}

func (s *attemptService) toResponse(attempt *models.Attempt, resumed bool) *AttemptResponse {
	return &AttemptResponse{
		Attempt:          attempt,
		Resumed:          resumed,
		Deadline:         s.policy.Deadline(attempt.StartTime),
		RemainingSeconds: int(s.policy.Remaining(attempt.StartTime, time.Now()).Seconds()),
	}
}
