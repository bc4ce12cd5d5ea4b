package pkg

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/config"
)

// InitDatabase opens the SQL backend selected by the storage driver
func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(gormLogLevel(cfg.Environment)),
	}

	var dialector gorm.Dialector
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		dialector = postgres.Open(cfg.Storage.DatabaseURL)
	case config.StorageSQLite:
		dialector = sqlite.Open(cfg.Storage.DatabaseURL)
	default:
		return nil, fmt.Errorf("driver %q is not a SQL backend", cfg.Storage.Driver)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if cfg.Storage.Driver == config.StorageSQLite {
		// SQLite serializes writers; one connection avoids SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return db, nil
}

// NewRedisClient parses a redis:// URL and verifies the server answers
func NewRedisClient(cfg *config.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

func gormLogLevel(environment string) logger.LogLevel {
	if environment == "development" {
		return logger.Info
	}
	return logger.Warn
}
