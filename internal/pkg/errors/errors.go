package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConflict signals a state conflict, e.g. a lease/worker_id mismatch.
	ErrConflict = errors.New("conflict")
	// ErrNoLeaseAvailable signals a lease call found no grantable job.
	ErrNoLeaseAvailable = errors.New("no lease available")
)
