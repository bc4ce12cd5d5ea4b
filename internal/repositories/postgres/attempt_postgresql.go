package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/models"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/repositories"
)

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

// Create relies on idx_attempts_single_active to reject a second open attempt
func (a *AttemptPostgreSQL) Create(ctx context.Context, attempt *models.Attempt) error {
	return translateError(a.db.WithContext(ctx).Create(attempt).Error)
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, id string) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := a.db.WithContext(ctx).Where("id = ?", id).First(&attempt).Error; err != nil {
		return nil, translateError(err)
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetActive(ctx context.Context, email string) (*models.Attempt, error) {
	var attempt models.Attempt
	if err := a.db.WithContext(ctx).
		Where("email = ? AND completed = ?", email, false).
		Order("start_time DESC").
		First(&attempt).Error; err != nil {
		return nil, translateError(err)
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) HasCompleted(ctx context.Context, email string) (bool, error) {
	var count int64
	err := a.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("email = ? AND completed = ?", email, true).
		Count(&count).Error
	return count > 0, translateError(err)
}

// UpdateActive is a single guarded UPDATE, so a completed attempt can never be modified
func (a *AttemptPostgreSQL) UpdateActive(ctx context.Context, id string, update repositories.AttemptUpdate) error {
	columns := attemptUpdateColumns(update)
	if len(columns) == 0 {
		return nil
	}

	res := a.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("id = ? AND completed = ?", id, false).
		Updates(columns)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (a *AttemptPostgreSQL) List(ctx context.Context) ([]*models.Attempt, error) {
	var attempts []*models.Attempt
	err := a.db.WithContext(ctx).Order("start_time ASC").Find(&attempts).Error
	return attempts, translateError(err)
}

func (a *AttemptPostgreSQL) ListCompleted(ctx context.Context) ([]*models.Attempt, error) {
	var attempts []*models.Attempt
	err := a.db.WithContext(ctx).
		Where("completed = ?", true).
		Order("end_time ASC").
		Find(&attempts).Error
	return attempts, translateError(err)
}

func (a *AttemptPostgreSQL) ListActive(ctx context.Context) ([]*models.Attempt, error) {
	var attempts []*models.Attempt
	err := a.db.WithContext(ctx).
		Where("completed = ?", false).
		Order("start_time ASC").
		Find(&attempts).Error
	return attempts, translateError(err)
}

func (a *AttemptPostgreSQL) ListStale(ctx context.Context, startedBefore time.Time) ([]*models.Attempt, error) {
	var attempts []*models.Attempt
	err := a.db.WithContext(ctx).
		Where("completed = ? AND start_time < ?", false, startedBefore).
		Order("start_time ASC").
		Find(&attempts).Error
	return attempts, translateError(err)
}

func (a *AttemptPostgreSQL) Counts(ctx context.Context) (*repositories.AttemptCounts, error) {
	var rows []struct {
		Completed bool
		Total     int64
	}
	if err := a.db.WithContext(ctx).
		Model(&models.Attempt{}).
		Select("completed, COUNT(*) AS total").
		Group("completed").
		Scan(&rows).Error; err != nil {
		return nil, translateError(err)
	}

	counts := &repositories.AttemptCounts{}
	for _, row := range rows {
		if row.Completed {
			counts.Completed = row.Total
		} else {
			counts.Active = row.Total
		}
	}
	return counts, nil
}

func (a *AttemptPostgreSQL) DeleteAll(ctx context.Context) error {
	return translateError(a.db.WithContext(ctx).Where("1 = 1").Delete(&models.Attempt{}).Error)
}

type ViolationPostgreSQL struct {
	db *gorm.DB
}

func NewViolationPostgreSQL(db *gorm.DB) repositories.ViolationRepository {
	return &ViolationPostgreSQL{db: db}
}

func (v *ViolationPostgreSQL) Append(ctx context.Context, event *models.ViolationEvent) error {
	return translateError(v.db.WithContext(ctx).Create(event).Error)
}

func (v *ViolationPostgreSQL) CountCounted(ctx context.Context, attemptID string) (int, error) {
	var count int64
	err := v.db.WithContext(ctx).
		Model(&models.ViolationEvent{}).
		Where("attempt_id = ? AND counted = ?", attemptID, true).
		Count(&count).Error
	return int(count), translateError(err)
}

func (v *ViolationPostgreSQL) ListByAttempt(ctx context.Context, attemptID string) ([]*models.ViolationEvent, error) {
	var events []*models.ViolationEvent
	err := v.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("received_at ASC").
		Find(&events).Error
	return events, translateError(err)
}

func (v *ViolationPostgreSQL) DeleteAll(ctx context.Context) error {
	return translateError(v.db.WithContext(ctx).Where("1 = 1").Delete(&models.ViolationEvent{}).Error)
}
