package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/models"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/repositories"
)

// SQLSTATE codes we map to repository sentinels
const (
	pgUniqueViolation = "23505"
	pgUndefinedColumn = "42703"
)

// activeAttemptIndex enforces one incomplete attempt per email. Both PostgreSQL
// and SQLite support partial indexes with this syntax.
const activeAttemptIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_attempts_single_active ON attempts (email) WHERE completed = false`

// Migrate creates or updates every table the quiz uses
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.BlockedUser{},
		&models.SessionCounter{},
		&models.Attempt{},
		&models.ViolationEvent{},
		&models.Question{},
		&models.Notification{},
		&models.LogEntry{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	if err := db.Exec(activeAttemptIndex).Error; err != nil {
		return fmt.Errorf("failed to create active attempt index: %w", err)
	}

	return nil
}

// translateError maps driver errors onto repository sentinels, keeping the cause
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repositories.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %w", repositories.ErrDuplicate, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %w", repositories.ErrDuplicate, err)
		case pgUndefinedColumn:
			return fmt.Errorf("%w: %w", repositories.ErrSchemaMismatch, err)
		}
	}

	// SQLite reports these as plain messages
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint failed"):
		return fmt.Errorf("%w: %w", repositories.ErrDuplicate, err)
	case strings.Contains(msg, "no such column"), strings.Contains(msg, "has no column named"):
		return fmt.Errorf("%w: %w", repositories.ErrSchemaMismatch, err)
	}

	return err
}

func attemptUpdateColumns(update repositories.AttemptUpdate) map[string]interface{} {
	columns := make(map[string]interface{})
	if update.Violations != nil {
		columns["violations"] = *update.Violations
	}
	if update.Completed != nil {
		columns["completed"] = *update.Completed
	}
	if update.EndTime != nil {
		columns["end_time"] = *update.EndTime
	}
	if update.Score != nil {
		columns["score"] = *update.Score
	}
	if update.TotalQuestions != nil {
		columns["total_questions"] = *update.TotalQuestions
	}
	if update.EndReason != nil {
		columns["end_reason"] = *update.EndReason
	}
	return columns
}
