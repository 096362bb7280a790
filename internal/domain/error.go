package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrAlreadyExists       = errors.New("entity already exists")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrPermissionDenied    = errors.New("permission denied")

	// Routing / execution errors
	ErrUnknownTaskType     = errors.New("unknown task type")
	ErrProviderUnavailable = errors.New("no eligible provider or api key")
	ErrProviderCall        = errors.New("provider call failed")
	ErrTimeout             = errors.New("operation timed out")
	ErrQueueFull           = errors.New("task queue is full")
	ErrInvalidPlan         = errors.New("invalid task plan")

	// Infrastructure errors
	ErrInvalidExecContext = errors.New("invalid executor context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
