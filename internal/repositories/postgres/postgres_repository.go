package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/repositories"
)

// PostgreSQLRepository implements the main Repository interface on gorm.
// The same code runs against SQLite for local and test setups.
type PostgreSQLRepository struct {
	db          *gorm.DB
	redisClient *redis.Client

	// Externally backed repositories, used as-is inside transactions
	users    repositories.UserRepository
	sessions repositories.SessionRepository
}

// RepositoryConfig holds configuration for repository initialization
type RepositoryConfig struct {
	DB          *gorm.DB
	RedisClient *redis.Client

	// Optional overrides; nil means the SQL tables are used
	Users    repositories.UserRepository
	Sessions repositories.SessionRepository
}

func NewPostgreSQLRepository(config RepositoryConfig) repositories.Repository {
	return &PostgreSQLRepository{
		db:          config.DB,
		redisClient: config.RedisClient,
		users:       config.Users,
		sessions:    config.Sessions,
	}
}

// User returns the user repository
func (r *PostgreSQLRepository) User() repositories.UserRepository {
	if r.users != nil {
		return r.users
	}
	return NewUserPostgreSQL(r.db)
}

// Block returns the block list repository
func (r *PostgreSQLRepository) Block() repositories.BlockRepository {
	return NewBlockPostgreSQL(r.db)
}

// Session returns the session counter repository
func (r *PostgreSQLRepository) Session() repositories.SessionRepository {
	if r.sessions != nil {
		return r.sessions
	}
	return NewSessionPostgreSQL(r.db)
}

// Attempt returns the attempt repository
func (r *PostgreSQLRepository) Attempt() repositories.AttemptRepository {
	return NewAttemptPostgreSQL(r.db)
}

// Violation returns the proctoring event repository
func (r *PostgreSQLRepository) Violation() repositories.ViolationRepository {
	return NewViolationPostgreSQL(r.db)
}

// Question returns the question repository
func (r *PostgreSQLRepository) Question() repositories.QuestionRepository {
	return NewQuestionPostgreSQL(r.db)
}

// Notification returns the notification repository
func (r *PostgreSQLRepository) Notification() repositories.NotificationRepository {
	return NewNotificationPostgreSQL(r.db)
}

// Log returns the audit log repository
func (r *PostgreSQLRepository) Log() repositories.LogRepository {
	return NewLogPostgreSQL(r.db)
}

// WithTransaction executes a function within a database transaction
func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &PostgreSQLRepository{
			db:          tx,
			redisClient: r.redisClient,
			users:       r.users,
			sessions:    r.sessions,
		}
		return fn(txRepo)
	})
}

// Ping checks the health of database and cache connections
func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if r.redisClient != nil {
		if err := r.redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("cache ping failed: %w", err)
		}
	}

	return nil
}

// Close closes the database connection. The redis client is owned by main.
func (r *PostgreSQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

// RepositoryManager implements the RepositoryManager interface
type RepositoryManager struct {
	config RepositoryConfig
	repo   repositories.Repository
}

// NewRepositoryManager creates a new repository manager
func NewRepositoryManager(config RepositoryConfig) repositories.RepositoryManager {
	return &RepositoryManager{
		config: config,
	}
}

// Initialize verifies connectivity, migrates the schema and builds the repository
func (rm *RepositoryManager) Initialize() error {
	if rm.config.DB == nil {
		return fmt.Errorf("database connection is required")
	}

	sqlDB, err := rm.config.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	if rm.config.RedisClient != nil {
		if _, err := rm.config.RedisClient.Ping(ctx).Result(); err != nil {
			return fmt.Errorf("Redis connection failed: %w", err)
		}
	}

	if err := Migrate(rm.config.DB.WithContext(ctx)); err != nil {
		return err
	}

	rm.repo = NewPostgreSQLRepository(rm.config)

	return nil
}

// GetRepository returns the repository instance
func (rm *RepositoryManager) GetRepository() repositories.Repository {
	return rm.repo
}

// HealthCheck checks the health of all repository connections
func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	if rm.repo == nil {
		return fmt.Errorf("repository not initialized")
	}

	return rm.repo.Ping(ctx)
}

// Shutdown gracefully shuts down all repository connections
func (rm *RepositoryManager) Shutdown(ctx context.Context) error {
	if rm.repo == nil {
		return nil
	}

	return rm.repo.Close()
}
