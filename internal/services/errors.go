package services

import "errors"

// Business errors surfaced to clients. Messages are shown verbatim in the UI.
var (
	ErrUserNotFound         = errors.New("User not found")
	ErrInvalidCredentials   = errors.New("Invalid email or password")
	ErrUserBlocked          = errors.New("Your account has been blocked. Please contact the administrator.")
	ErrSessionLimitExceeded = errors.New("Login limit reached")
	ErrAlreadyCompleted     = errors.New("You have already submitted this quiz. Re-attempts are not allowed.")
	ErrNoActiveAttempt      = errors.New("No active attempt found")
	ErrAttemptExpired       = errors.New("Time is up. The attempt was closed before this submission arrived.")
	ErrAttemptNotFound      = errors.New("Attempt not found")
	ErrValidationFailed     = errors.New("validation failed")
	ErrQuestionNotFound     = errors.New("Question not found")
	ErrUserExists           = errors.New("User already exists")
	ErrMultiMonitorDetected = errors.New("Multiple monitors detected. Disconnect extra displays to start the quiz.")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
)
