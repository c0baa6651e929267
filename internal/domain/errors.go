package domain

import "errors"

// Sentinel error kinds for guarded operations. Callers distinguish them with
// errors.Is and map them to transport status codes (400/403/429/502) without
// inspecting messages.
var (
	// ErrValidation marks a malformed operation context or input (caller bug).
	ErrValidation = errors.New("domain: validation failed")

	// ErrUnauthorized marks a permission denial. Always audited at critical
	// severity.
	ErrUnauthorized = errors.New("domain: unauthorized")

	// ErrRateLimited marks an exhausted rate-limit window. Transient; the
	// caller may retry after the window elapses.
	ErrRateLimited = errors.New("domain: rate limited")

	// ErrResultInvalid marks a unit of work that returned a value violating
	// its declared invariants.
	ErrResultInvalid = errors.New("domain: result validation failed")

	// ErrOperationFailed wraps any error raised by the unit of work itself,
	// including deadline expiry.
	ErrOperationFailed = errors.New("domain: operation failed")

	// ErrNotFound is returned by repositories when an entity does not exist.
	ErrNotFound = errors.New("domain: not found")

	// ErrConflict is returned by repositories on uniqueness violations.
	ErrConflict = errors.New("domain: conflict")
)
