package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")

	// Payment provider errors
	ErrConfiguration         = errors.New("provider configuration incomplete")
	ErrAuthentication        = errors.New("gateway rejected credentials")
	ErrGateway               = errors.New("gateway request failed")
	ErrMalformedNotification = errors.New("notification has missing or ambiguous reference")
	ErrUnknownTransaction    = errors.New("no transaction matches notification reference")
	ErrSignatureMismatch     = errors.New("notification signature mismatch")
	ErrLockNotAcquired       = errors.New("reconcile lock not acquired")

	// Storage-layer errors
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid transaction execution context")
)
