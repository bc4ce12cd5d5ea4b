package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/models"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/repositories"
)

type UserPostgreSQL struct {
	db *gorm.DB
}

func NewUserPostgreSQL(db *gorm.DB) repositories.UserRepository {
	return &UserPostgreSQL{db: db}
}

func (u *UserPostgreSQL) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (u *UserPostgreSQL) List(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	if err := u.db.WithContext(ctx).Order("created_at ASC, email ASC").Find(&users).Error; err != nil {
		return nil, translateError(err)
	}
	return users, nil
}

func (u *UserPostgreSQL) Count(ctx context.Context) (int64, error) {
	var count int64
	err := u.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error
	return count, translateError(err)
}

func (u *UserPostgreSQL) Create(ctx context.Context, user *models.User) error {
	return translateError(u.db.WithContext(ctx).Create(user).Error)
}

type BlockPostgreSQL struct {
	db *gorm.DB
}

func NewBlockPostgreSQL(db *gorm.DB) repositories.BlockRepository {
	return &BlockPostgreSQL{db: db}
}

func (b *BlockPostgreSQL) IsBlocked(ctx context.Context, email string) (bool, error) {
	var count int64
	err := b.db.WithContext(ctx).Model(&models.BlockedUser{}).Where("email = ?", email).Count(&count).Error
	return count > 0, translateError(err)
}

func (b *BlockPostgreSQL) Block(ctx context.Context, email string, at time.Time) (bool, error) {
	res := b.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.BlockedUser{Email: email, BlockedAt: at})
	if res.Error != nil {
		return false, translateError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (b *BlockPostgreSQL) Unblock(ctx context.Context, email string) (bool, error) {
	res := b.db.WithContext(ctx).Where("email = ?", email).Delete(&models.BlockedUser{})
	if res.Error != nil {
		return false, translateError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (b *BlockPostgreSQL) List(ctx context.Context) ([]string, error) {
	var emails []string
	err := b.db.WithContext(ctx).Model(&models.BlockedUser{}).Order("blocked_at ASC").Pluck("email", &emails).Error
	return emails, translateError(err)
}

type SessionPostgreSQL struct {
	db *gorm.DB
}

func NewSessionPostgreSQL(db *gorm.DB) repositories.SessionRepository {
	return &SessionPostgreSQL{db: db}
}

func (s *SessionPostgreSQL) Get(ctx context.Context, email string) (int, error) {
	var counter models.SessionCounter
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, translateError(err)
	}
	return counter.Count, nil
}

// Increment uses a conditional UPDATE so the cap holds under concurrent logins.
// A missing row is inserted with ON CONFLICT DO NOTHING; losing that race falls
// back to the conditional update once more.
func (s *SessionPostgreSQL) Increment(ctx context.Context, email string, limit int) (int, error) {
	var count int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for attempt := 0; attempt < 2; attempt++ {
			res := tx.Model(&models.SessionCounter{}).
				Where("email = ? AND login_count < ?", email, limit).
				UpdateColumn("login_count", gorm.Expr("login_count + 1"))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				var counter models.SessionCounter
				if err := tx.Where("email = ?", email).First(&counter).Error; err != nil {
					return err
				}
				count = counter.Count
				return nil
			}

			var existing int64
			if err := tx.Model(&models.SessionCounter{}).Where("email = ?", email).Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				return repositories.ErrSessionLimit
			}

			ins := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.SessionCounter{Email: email, Count: 1})
			if ins.Error != nil {
				return ins.Error
			}
			if ins.RowsAffected > 0 {
				count = 1
				return nil
			}
		}
		return repositories.ErrSessionLimit
	})
	if errors.Is(err, repositories.ErrSessionLimit) {
		return 0, err
	}
	return count, translateError(err)
}

func (s *SessionPostgreSQL) All(ctx context.Context) (map[string]int, error) {
	var counters []models.SessionCounter
	if err := s.db.WithContext(ctx).Find(&counters).Error; err != nil {
		return nil, translateError(err)
	}
	out := make(map[string]int, len(counters))
	for _, c := range counters {
		out[c.Email] = c.Count
	}
	return out, nil
}

func (s *SessionPostgreSQL) DeleteAll(ctx context.Context) error {
	return translateError(s.db.WithContext(ctx).Where("1 = 1").Delete(&models.SessionCounter{}).Error)
}
