package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/auth"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/cache"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/config"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/events"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/handlers"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/metrics"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/proctoring"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/repositories"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/repositories/csvroster"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/repositories/filestore"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/repositories/redisstore"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/services"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/utils"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/validator"
	"github.com/SAP-F-2025/proctored-quiz-service/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	if cfg.Auth.UsingDevSecret() {
		logger.Warn("auth.jwt_secret is not set, signing tokens with the development secret", "environment", cfg.Environment)
	}

	// Initialize Redis (if configured)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			if cfg.Storage.SessionBackend == config.SessionBackendRedis {
				log.Fatalf("Failed to initialize Redis: %v", err)
			}
			log.Printf("Warning: Failed to initialize Redis: %v", err)
		}
	}

	// Initialize repositories
	repoManager, err := newRepositoryManager(cfg, redisClient)
	if err != nil {
		log.Fatalf("Failed to configure storage: %v", err)
	}
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}

	// Event publisher: Kafka when brokers are configured, in-process otherwise
	publisher, err := events.NewPublisher(events.Config{
		Brokers:     cfg.Kafka.Brokers,
		TopicPrefix: cfg.Kafka.TopicPrefix,
	}, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize event publisher: %v", err)
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// Initialize validator
	validator := validator.New()

	// Initialize services
	serviceManager := services.NewServiceManager(repoManager, slogLogger, validator,
		services.ServiceDependencies{
			Tokens:    tokens,
			Publisher: publisher,
			Cache:     cache.NewCacheManager(redisClient),
			Metrics:   m,
		},
		services.ServiceManagerConfig{
			MaxSessions: cfg.Quiz.MaxSessions,
			Policy:      proctoring.NewPolicy(cfg.Quiz.Duration, cfg.Quiz.SweepGrace),
			Admin: services.AdminCredentials{
				Username:     cfg.Auth.AdminUser,
				PasswordHash: cfg.Auth.AdminPassHash,
			},
			SweepEnabled:  cfg.Quiz.SweepEnabled,
			SweepInterval: cfg.Quiz.SweepInterval,
		})
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Admins may also present Casdoor tokens
	verifiers := []auth.Verifier{tokens}
	if cfg.Casdoor.Enabled() {
		verifiers = append(verifiers, auth.NewCasdoorVerifier(auth.CasdoorConfig{
			Endpoint:     cfg.Casdoor.Endpoint,
			ClientID:     cfg.Casdoor.ClientID,
			ClientSecret: cfg.Casdoor.ClientSecret,
			Certificate:  cfg.Casdoor.Cert,
			Organization: cfg.Casdoor.Organization,
			Application:  cfg.Casdoor.Application,
		}))
	}

	// Initialize handlers
	handlerManager := handlers.NewHandlerManager(serviceManager, auth.Chain(verifiers...), m, logger)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Setup middleware
	handlers.SetupMiddleware(router, logger, cfg.CORSOrigins, m)

	// Setup routes
	handlerManager.SetupRoutes(router)

	// Create HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment, "storage", cfg.Storage.Driver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Shutdown services, publisher and storage
	if err := serviceManager.Shutdown(ctx); err != nil {
		log.Printf("Failed to shutdown services: %v", err)
	}

	// Close Redis connection
	if redisClient != nil {
		redisClient.Close()
	}

	logger.Info("Server exited")
}

// newRepositoryManager picks the storage backend. The CSV roster and the redis
// session counters can be layered over either backend.
func newRepositoryManager(cfg *config.Config, redisClient *redis.Client) (repositories.RepositoryManager, error) {
	var users repositories.UserRepository
	if cfg.Storage.UsersCSV != "" {
		roster, err := csvroster.Open(cfg.Storage.UsersCSV)
		if err != nil {
			return nil, err
		}
		users = roster
	}

	var sessions repositories.SessionRepository
	if cfg.Storage.SessionBackend == config.SessionBackendRedis && redisClient != nil {
		sessions = redisstore.NewSessionRedis(redisClient)
	}

	switch cfg.Storage.Driver {
	case config.StorageFile:
		var opts []filestore.Option
		if users != nil {
			opts = append(opts, filestore.WithUserRepository(users))
		}
		if sessions != nil {
			opts = append(opts, filestore.WithSessionRepository(sessions))
		}
		return filestore.NewRepositoryManager(cfg.Storage.DataFile, opts...), nil
	default:
		db, err := pkg.InitDatabase(cfg)
		if err != nil {
			return nil, err
		}
		return postgres.NewRepositoryManager(postgres.RepositoryConfig{
			DB:          db,
			RedisClient: redisClient,
			Users:       users,
			Sessions:    sessions,
		}), nil
	}
}
