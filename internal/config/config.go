package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"

	SessionBackendStore = "store"
	SessionBackendRedis = "redis"

	// DevJWTSecret signs tokens when auth.jwt_secret is unset outside production
	DevJWTSecret = "dev-only-secret"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	Storage  StorageConfig
	RedisURL string
	Kafka    KafkaConfig
	Auth     AuthConfig
	Casdoor  CasdoorConfig
	Quiz     QuizConfig

	CORSOrigins    []string
	MetricsEnabled bool
}

type StorageConfig struct {
	Driver         string
	DataFile       string
	UsersCSV       string
	DatabaseURL    string
	SessionBackend string
}

type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
}

type AuthConfig struct {
	JWTSecret     string
	TokenTTL      time.Duration
	AdminUser     string
	AdminPassHash string
}

// CasdoorConfig is optional; admin SSO tokens are only accepted when Endpoint is set.
type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Cert         string
	Organization string
	Application  string
}

// UsingDevSecret reports whether tokens are signed with the built-in development secret
func (c AuthConfig) UsingDevSecret() bool {
	return c.JWTSecret == DevJWTSecret
}

func (c CasdoorConfig) Enabled() bool {
	return c.Endpoint != "" && c.Cert != ""
}

type QuizConfig struct {
	MaxSessions   int
	Duration      time.Duration
	SweepEnabled  bool
	SweepInterval time.Duration
	SweepGrace    time.Duration
}

// LoadConfig reads defaults, an optional .env file and the process environment.
// Nested keys map to env vars with dots replaced by underscores (storage.driver -> STORAGE_DRIVER).
func LoadConfig() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("storage.driver", StorageFile)
	v.SetDefault("storage.data_file", "data/db.json")
	v.SetDefault("storage.users_csv", "")
	v.SetDefault("storage.database_url", "")
	v.SetDefault("storage.session_backend", SessionBackendStore)

	v.SetDefault("redis_url", "")
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic_prefix", "quiz.")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 8*time.Hour)
	v.SetDefault("auth.admin_user", "admin")
	v.SetDefault("auth.admin_pass_hash", "")

	v.SetDefault("casdoor.endpoint", "")
	v.SetDefault("casdoor.client_id", "")
	v.SetDefault("casdoor.client_secret", "")
	v.SetDefault("casdoor.cert", "")
	v.SetDefault("casdoor.organization", "")
	v.SetDefault("casdoor.application", "")

	v.SetDefault("quiz.max_sessions", 2)
	v.SetDefault("quiz.duration", 600*time.Second)
	v.SetDefault("quiz.sweep_enabled", false)
	v.SetDefault("quiz.sweep_interval", time.Minute)
	v.SetDefault("quiz.sweep_grace", 30*time.Second)

	v.SetDefault("cors.origins", "*")
	v.SetDefault("metrics.enabled", true)
}

func fromViper(v *viper.Viper) (*Config, error) {
	level, err := parseLevel(v.GetString("log_level"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:        v.GetString("port"),
		Environment: v.GetString("environment"),
		LogLevel:    level,
		Storage: StorageConfig{
			Driver:         strings.ToLower(v.GetString("storage.driver")),
			DataFile:       v.GetString("storage.data_file"),
			UsersCSV:       v.GetString("storage.users_csv"),
			DatabaseURL:    v.GetString("storage.database_url"),
			SessionBackend: strings.ToLower(v.GetString("storage.session_backend")),
		},
		RedisURL: v.GetString("redis_url"),
		Kafka: KafkaConfig{
			Brokers:     splitList(v.GetString("kafka.brokers")),
			TopicPrefix: v.GetString("kafka.topic_prefix"),
		},
		Auth: AuthConfig{
			JWTSecret:     v.GetString("auth.jwt_secret"),
			TokenTTL:      v.GetDuration("auth.token_ttl"),
			AdminUser:     v.GetString("auth.admin_user"),
			AdminPassHash: v.GetString("auth.admin_pass_hash"),
		},
		Casdoor: CasdoorConfig{
			Endpoint:     v.GetString("casdoor.endpoint"),
			ClientID:     v.GetString("casdoor.client_id"),
			ClientSecret: v.GetString("casdoor.client_secret"),
			Cert:         v.GetString("casdoor.cert"),
			Organization: v.GetString("casdoor.organization"),
			Application:  v.GetString("casdoor.application"),
		},
		Quiz: QuizConfig{
			MaxSessions:   v.GetInt("quiz.max_sessions"),
			Duration:      v.GetDuration("quiz.duration"),
			SweepEnabled:  v.GetBool("quiz.sweep_enabled"),
			SweepInterval: v.GetDuration("quiz.sweep_interval"),
			SweepGrace:    v.GetDuration("quiz.sweep_grace"),
		},
		CORSOrigins:    splitList(v.GetString("cors.origins")),
		MetricsEnabled: v.GetBool("metrics.enabled"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that defaults cannot express.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageFile:
	case StoragePostgres, StorageSQLite:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("storage.database_url is required for driver %q", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}

	switch c.Storage.SessionBackend {
	case SessionBackendStore:
	case SessionBackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("redis_url is required when storage.session_backend is redis")
		}
	default:
		return fmt.Errorf("unsupported session backend %q", c.Storage.SessionBackend)
	}

	if c.Auth.JWTSecret == "" {
		if c.Environment == "production" {
			return fmt.Errorf("auth.jwt_secret is required in production")
		}
		c.Auth.JWTSecret = DevJWTSecret
	}

	if c.Quiz.MaxSessions < 1 {
		return fmt.Errorf("quiz.max_sessions must be at least 1")
	}
	if c.Quiz.Duration <= 0 {
		return fmt.Errorf("quiz.duration must be positive")
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q: %w", s, err)
	}
	return level, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
