package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/models"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/repositories"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/validator"
)

// questionLogPreview caps how much of a question's text goes into the audit log
const questionLogPreview = 50

type questionService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewQuestionService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) QuestionService {
	return &questionService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

// ===== CORE CRUD OPERATIONS =====

// List returns the full question bank including answer keys
func (s *questionService) List(ctx context.Context) ([]*models.Question, error) {
	questions, err := s.repo.Question().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

// ListPublic returns the questions a student sees, without answer keys
func (s *questionService) ListPublic(ctx context.Context) ([]*models.PublicQuestion, error) {
	questions, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	public := make([]*models.PublicQuestion, len(questions))
	for i, q := range questions {
		public[i] = q.Public()
	}
	return public, nil
}

func (s *questionService) Create(ctx context.Context, req *CreateQuestionRequest, actor string) (*models.Question, error) {
	s.logger.Info("Creating question", "actor", actor, "options", len(req.Options))

	// Validate request with business rules
	if errs := s.validator.ValidateQuestionCreate(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, errs)
	}

	question := &models.Question{
		Text:         req.Text,
		Options:      append([]string(nil), req.Options...),
		CorrectIndex: req.CorrectIndex,
		CreatedAt:    time.Now(),
	}

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Question().Create(ctx, question); err != nil {
			return fmt.Errorf("failed to create question: %w", err)
		}
		return recordLog(ctx, tx, models.ActionQuestionAdded, actor, preview(question.Text))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Question created successfully", "question_id", question.ID)
	return question, nil
}

// Delete removes a question. An unknown id leaves the bank untouched.
func (s *questionService) Delete(ctx context.Context, id uint, actor string) error {
	s.logger.Info("Deleting question", "question_id", id, "actor", actor)

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Question().Delete(ctx, id); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrQuestionNotFound
			}
			return fmt.Errorf("failed to delete question: %w", err)
		}
		return recordLog(ctx, tx, models.ActionQuestionDeleted, actor, fmt.Sprintf("Question ID: %d", id))
	})
	if err != nil {
		return err
	}

	s.logger.Info("Question deleted successfully", "question_id", id)
	return nil
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= questionLogPreview {
		return text
	}
	return string(runes[:questionLogPreview]) + "..."
}
