package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")

	// Storage errors
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid database execution context")

	// Payment reconciliation errors
	ErrGateway            = errors.New("payment could not be started")
	ErrAuthenticity       = errors.New("callback authenticity check failed")
	ErrUnknownTransaction = errors.New("unknown transaction")
	ErrDuplicateReconcile = errors.New("transaction already reconciled")
	ErrReconcile          = errors.New("payment is not confirmed")
	ErrEventIgnored       = errors.New("gateway event ignored")
	ErrRateLimited        = errors.New("too many checkout attempts")
	ErrLocked             = errors.New("lock is held elsewhere")
)
