package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotAuthorized signals a command issued by a non-facilitator.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrGuardViolation signals an illegal session state transition.
	// The session is left unchanged; the caller must not retry automatically.
	ErrGuardViolation = errors.New("guard violation")
	// ErrRetryNotAllowed signals a repeat submission for a block whose plugin
	// forbids retries.
	ErrRetryNotAllowed = errors.New("retry not allowed")
	// ErrStaleSubscription signals a participant snapshot older than the
	// server's; recovery is a forced full resync.
	ErrStaleSubscription = errors.New("stale subscription")
	// ErrPersistenceFailure signals a failed durable write. The transition or
	// response it carried must be treated as not applied.
	ErrPersistenceFailure = errors.New("persistence failure")
)
