package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/auth"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/cache"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/events"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/metrics"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/proctoring"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/repositories"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	MaxSessions int
	Policy      proctoring.Policy
	Admin       AdminCredentials

	// Background expiry of abandoned attempts
	SweepEnabled  bool
	SweepInterval time.Duration
}

// ServiceDependencies are the shared clients handed to every service.
// Publisher, Cache and Metrics may be nil.
type ServiceDependencies struct {
	Tokens    *auth.TokenManager
	Publisher events.EventPublisher
	Cache     *cache.CacheManager
	Metrics   *metrics.Metrics
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	repoManager repositories.RepositoryManager
	repo        repositories.Repository
	logger      *slog.Logger
	validator   *validator.Validator
	deps        ServiceDependencies
	config      ServiceManagerConfig

	// Service instances
	authService         AuthService
	attemptService      AttemptService
	userService         UserService
	questionService     QuestionService
	notificationService NotificationService
	auditService        AuditService
	dashboardService    DashboardService
	sweeper             *Sweeper

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager. The repository manager must
// already be initialized.
func NewServiceManager(repoManager repositories.RepositoryManager, logger *slog.Logger, validator *validator.Validator, deps ServiceDependencies, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		repoManager: repoManager,
		repo:        repoManager.GetRepository(),
		logger:      logger,
		validator:   validator,
		deps:        deps,
		config:      config,
	}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if sm.repo == nil {
		return fmt.Errorf("failed to initialize services: repository not initialized")
	}
	if sm.deps.Tokens == nil {
		return fmt.Errorf("failed to initialize services: token manager is required")
	}

	sm.initializeServices()

	if sm.config.SweepEnabled {
		sm.sweeper = NewSweeper(sm.attemptService, sm.logger, sm.config.SweepInterval)
		if err := sm.sweeper.Start(); err != nil {
			return err
		}
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) initializeServices() {
	d := sm.deps

	sm.authService = NewAuthService(sm.repo, sm.logger, sm.validator, d.Tokens, d.Publisher, d.Metrics, sm.config.Admin, sm.config.MaxSessions)
	sm.attemptService = NewAttemptService(sm.repo, sm.logger, sm.validator, d.Publisher, d.Cache, d.Metrics, sm.config.Policy)
	sm.userService = NewUserService(sm.repo, sm.logger, sm.validator, d.Publisher, d.Cache)
	sm.questionService = NewQuestionService(sm.repo, sm.logger, sm.validator)
	sm.notificationService = NewNotificationService(sm.repo, sm.logger, sm.validator, d.Publisher)
	sm.auditService = NewAuditService(sm.repo, sm.logger)
	sm.dashboardService = NewDashboardService(sm.repo, sm.logger, d.Cache)

	sm.logger.Info("Services initialized",
		"max_sessions", sm.config.MaxSessions,
		"quiz_duration", sm.config.Policy.Duration.String())
}

// Service getters
func (sm *serviceManager) Auth() AuthService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.authService
}

func (sm *serviceManager) Attempt() AttemptService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.attemptService
}

func (sm *serviceManager) User() UserService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.userService
}

func (sm *serviceManager) Question() QuestionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.questionService
}

func (sm *serviceManager) Notification() NotificationService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.notificationService
}

func (sm *serviceManager) Audit() AuditService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.auditService
}

func (sm *serviceManager) Dashboard() DashboardService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.dashboardService
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	// Check repository health
	if err := sm.repoManager.HealthCheck(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	// Redis is optional; only a configured but unreachable cache is unhealthy
	if sm.deps.Cache != nil {
		if err := sm.deps.Cache.HealthCheck(ctx); err != nil && !errors.Is(err, cache.ErrCacheNotAvailable) {
			return err
		}
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.sweeper != nil {
		sm.sweeper.Stop()
	}

	if sm.deps.Publisher != nil {
		if err := sm.deps.Publisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	// Shutdown repository manager
	if err := sm.repoManager.Shutdown(ctx); err != nil {
		sm.logger.Error("Failed to shutdown repository manager", "error", err)
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}
