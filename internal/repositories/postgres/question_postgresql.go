package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/models"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/repositories"
)

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

func (q *QuestionPostgreSQL) List(ctx context.Context) ([]*models.Question, error) {
	var questions []*models.Question
	err := q.db.WithContext(ctx).Order("id ASC").Find(&questions).Error
	return questions, translateError(err)
}

// Create keeps the max(id)+1 numbering admins see in the console
func (q *QuestionPostgreSQL) Create(ctx context.Context, question *models.Question) error {
	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxID uint
		if err := tx.Model(&models.Question{}).Select("COALESCE(MAX(id), 0)").Scan(&maxID).Error; err != nil {
			return err
		}
		question.ID = maxID + 1
		return tx.Create(question).Error
	})
	return translateError(err)
}

func (q *QuestionPostgreSQL) Delete(ctx context.Context, id uint) error {
	res := q.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Question{})
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

type NotificationPostgreSQL struct {
	db *gorm.DB
}

func NewNotificationPostgreSQL(db *gorm.DB) repositories.NotificationRepository {
	return &NotificationPostgreSQL{db: db}
}

func (n *NotificationPostgreSQL) List(ctx context.Context) ([]*models.Notification, error) {
	var notifications []*models.Notification
	err := n.db.WithContext(ctx).Order("id ASC").Find(&notifications).Error
	return notifications, translateError(err)
}

func (n *NotificationPostgreSQL) Create(ctx context.Context, notification *models.Notification) error {
	return translateError(n.db.WithContext(ctx).Create(notification).Error)
}

type LogPostgreSQL struct {
	db *gorm.DB
}

func NewLogPostgreSQL(db *gorm.DB) repositories.LogRepository {
	return &LogPostgreSQL{db: db}
}

func (l *LogPostgreSQL) Append(ctx context.Context, entry *models.LogEntry) error {
	return translateError(l.db.WithContext(ctx).Create(entry).Error)
}

func (l *LogPostgreSQL) List(ctx context.Context) ([]*models.LogEntry, error) {
	var entries []*models.LogEntry
	err := l.db.WithContext(ctx).Order("id DESC").Find(&entries).Error
	return entries, translateError(err)
}
