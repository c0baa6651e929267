package domain

import (
	"context"

	"github.com/google/uuid"
)

// OperationContext identifies who is doing what to what. It is constructed by
// the caller immediately before invoking the executor, never mutated by the
// pipeline, and discarded after the call returns.
type OperationContext struct {
	// ActorID is the opaque identity of the caller. Required for
	// authenticated operations.
	ActorID string `validate:"required"`

	// Action names the operation (e.g. "content.create") and keys rate
	// limiting and permission checks.
	Action string `validate:"required"`

	// ResourceID optionally identifies the target entity.
	ResourceID string

	// RequiredPermissions must all be granted to the actor. Empty means no
	// permission check beyond authentication.
	RequiredPermissions []string

	// LockoutIdentity, when set, enrolls this operation in failure-lockout
	// accounting (e.g. username or client IP for authentication attempts).
	// Failures increment the identity's counter; success clears it.
	LockoutIdentity string

	// Payload is opaque data recorded (redacted) in the audit trail and
	// handed through to the unit of work by the caller's own closure.
	Payload map[string]any

	// ResultCheck optionally validates the unit of work's return value
	// against caller-declared invariants. A non-nil error rolls the
	// transaction back.
	ResultCheck func(any) error
}

// UnitOfWork is the guarded capability: it runs inside the open transaction
// and returns an opaque value or fails. Implementations must honor ctx
// cancellation; the executor does not preempt in-flight work.
type UnitOfWork func(ctx context.Context, tx Tx) (any, error)

// OperationResult wraps the outcome of one guarded execution.
type OperationResult struct {
	Success     bool
	Data        any
	OperationID uuid.UUID
}
