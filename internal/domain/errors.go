package domain

import "errors"

// Domain errors isolate the orchestration layer from whatever raised the
// condition. Handlers map them to HTTP statuses with errors.Is.
var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("invalid input")

	// ErrNotFound marks an unknown run id.
	ErrNotFound = errors.New("run not found")

	// ErrDuplicateRun marks an id collision with a non-terminal run.
	ErrDuplicateRun = errors.New("run already exists")

	// ErrInvalidTransition marks an illegal state change attempt.
	ErrInvalidTransition = errors.New("invalid run state transition")
)
