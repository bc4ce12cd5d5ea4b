package repositories

import "context"

// Repository aggregates the quiz collections behind one storage backend
type Repository interface {
	// Roster and gate state
	User() UserRepository
	Block() BlockRepository
	Session() SessionRepository

	// Attempt lifecycle
	Attempt() AttemptRepository
	Violation() ViolationRepository

	// Admin-authored content
	Question() QuestionRepository
	Notification() NotificationRepository
	Log() LogRepository

	// Transaction support. Repositories returned inside fn share the transaction;
	// externally backed repositories (CSV roster, redis counters) do not.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize opens the backend and prepares its schema
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
