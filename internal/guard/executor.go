// Package guard executes critical operations inside a protective envelope:
// one transaction, context validation, permission and rate-limit checks, a
// deadline around the unit of work, result validation, and exactly one audit
// record per call regardless of outcome. Failures additionally feed the
// lockout tracker and threshold monitor.
//
// The executor performs no retries. Rate-limit and permission denials go
// straight back to the caller, who owns the retry decision.
package guard

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/aegis/internal/domain"
	"github.com/gosuda/aegis/internal/lockout"
)

// FailureMetricKey is the threshold-monitor metric fed with the running count
// of failed guarded operations.
const FailureMetricKey = "guard.operation_failures"

// PermissionChecker decides whether the actor may perform the action.
type PermissionChecker interface {
	Check(ctx context.Context, actorID, action string, required []string) (bool, error)
}

// Limiter consumes one rate-limit slot for (actor, action).
type Limiter interface {
	TryAcquire(ctx context.Context, actorID, action string) (bool, error)
}

// LockoutTracker accumulates authentication failures per identity.
type LockoutTracker interface {
	RecordFailure(ctx context.Context, identity string) (lockout.State, error)
	RecordSuccess(ctx context.Context, identity string) error
}

// ThresholdObserver receives failure-count metrics.
type ThresholdObserver interface {
	Observe(ctx context.Context, metricKey string, value float64)
}

// AuditRecorder appends one record per execution. Implementations must not
// return errors to the pipeline; see the audit package.
type AuditRecorder interface {
	Record(ctx context.Context, rec *domain.AuditRecord)
}

// MetricsRecorder observes operation timing. Best-effort only.
type MetricsRecorder interface {
	ObserveOperation(action, outcome string, elapsed time.Duration)
}

// Options carries the executor's optional collaborators and tuning knobs.
type Options struct {
	Lockouts LockoutTracker
	Monitor  ThresholdObserver
	Metrics  MetricsRecorder
	Clock    domain.Clock

	// OperationTimeout bounds the unit of work. Zero means no deadline. The
	// executor does not preempt in-flight work; it derives a deadline context
	// and treats an overrun return as an operation failure.
	OperationTimeout time.Duration

	// NewID overrides operation ID generation. Defaults to uuid.New.
	NewID func() uuid.UUID
}

// Executor orchestrates the critical-operation pipeline. Safe for concurrent
// use; each Execute call owns its transaction and shares no mutable state
// with other calls beyond the failure counter.
type Executor struct {
	store    domain.PersistentStore
	perms    PermissionChecker
	limiter  Limiter
	trail    AuditRecorder
	lockouts LockoutTracker
	monitor  ThresholdObserver
	metrics  MetricsRecorder
	clock    domain.Clock
	validate *validator.Validate
	timeout  time.Duration
	newID    func() uuid.UUID

	failures atomic.Int64
}

func New(store domain.PersistentStore, perms PermissionChecker, limiter Limiter, trail AuditRecorder, opts Options) *Executor {
	clock := opts.Clock
	if clock == nil {
		clock = domain.SystemClock{}
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.New
	}
	return &Executor{
		store:    store,
		perms:    perms,
		limiter:  limiter,
		trail:    trail,
		lockouts: opts.Lockouts,
		monitor:  opts.Monitor,
		metrics:  opts.Metrics,
		clock:    clock,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		timeout:  opts.OperationTimeout,
		newID:    newID,
	}
}

// Execute runs op under the full guard pipeline and returns its result. The
// returned error, when non-nil, is always a *guard.Error distinguishable
// with errors.Is against the domain error kinds.
func (e *Executor) Execute(ctx context.Context, op domain.UnitOfWork, opCtx domain.OperationContext) (domain.OperationResult, error) {
	opID := e.newID()
	start := e.clock.Now()

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return e.fail(ctx, nil, opCtx, opID, start, domain.ErrOperationFailed, domain.SeverityNormal, err)
	}

	if err := e.validate.Struct(opCtx); err != nil {
		return e.fail(ctx, tx, opCtx, opID, start, domain.ErrValidation, domain.SeverityNormal, err)
	}

	allowed, err := e.perms.Check(ctx, opCtx.ActorID, opCtx.Action, opCtx.RequiredPermissions)
	if err != nil {
		return e.fail(ctx, tx, opCtx, opID, start, domain.ErrOperationFailed, domain.SeverityNormal, err)
	}
	if !allowed {
		// Unauthorized-access attempts are always critical.
		return e.fail(ctx, tx, opCtx, opID, start, domain.ErrUnauthorized, domain.SeverityCritical, nil)
	}

	acquired, err := e.limiter.TryAcquire(ctx, opCtx.ActorID, opCtx.Action)
	if err != nil {
		// Fail closed: a broken counter store denies rather than admits.
		return e.fail(ctx, tx, opCtx, opID, start, domain.ErrRateLimited, domain.SeverityWarning, err)
	}
	if !acquired {
		return e.fail(ctx, tx, opCtx, opID, start, domain.ErrRateLimited, domain.SeverityWarning, nil)
	}

	data, err := e.runOp(ctx, op, tx)
	if err != nil {
		return e.fail(ctx, tx, opCtx, opID, start, domain.ErrOperationFailed, domain.SeverityNormal, err)
	}

	if opCtx.ResultCheck != nil {
		if err := opCtx.ResultCheck(data); err != nil {
			return e.fail(ctx, tx, opCtx, opID, start, domain.ErrResultInvalid, domain.SeverityNormal, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return e.fail(ctx, nil, opCtx, opID, start, domain.ErrOperationFailed, domain.SeverityNormal, err)
	}

	elapsed := e.clock.Now().Sub(start)
	e.trail.Record(ctx, &domain.AuditRecord{
		OperationID: opID,
		ActorID:     opCtx.ActorID,
		Action:      opCtx.Action,
		ResourceID:  opCtx.ResourceID,
		Outcome:     domain.OutcomeSuccess,
		Severity:    domain.SeverityNormal,
		Detail: map[string]any{
			"payload":    opCtx.Payload,
			"elapsed_ms": elapsed.Milliseconds(),
		},
	})

	if e.lockouts != nil && opCtx.LockoutIdentity != "" {
		if err := e.lockouts.RecordSuccess(ctx, opCtx.LockoutIdentity); err != nil {
			log.Warn().Err(err).Str("identity", opCtx.LockoutIdentity).Msg("guard: lockout reset failed")
		}
	}

	e.recordMetrics(opCtx.Action, string(domain.OutcomeSuccess), elapsed)

	return domain.OperationResult{Success: true, Data: data, OperationID: opID}, nil
}

// runOp invokes the unit of work under the configured deadline. A panic from
// the operation is its failure, not a protocol bug.
func (e *Executor) runOp(ctx context.Context, op domain.UnitOfWork, tx domain.Tx) (data any, err error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("guard: unit of work panicked: %v", r)
		}
	}()

	data, err = op(ctx, tx)
	if err == nil && ctx.Err() != nil {
		// The operation returned after its deadline; its work cannot be
		// trusted and must not commit.
		err = ctx.Err()
	}
	return data, err
}

// fail rolls back, audits the failure, feeds lockout and threshold side
// effects, and wraps the cause in the normalized error type. tx may be nil
// when no transaction is open (begin or commit failed).
func (e *Executor) fail(
	ctx context.Context,
	tx domain.Tx,
	opCtx domain.OperationContext,
	opID uuid.UUID,
	start time.Time,
	kind error,
	severity domain.Severity,
	cause error,
) (domain.OperationResult, error) {
	if tx != nil {
		if err := tx.Rollback(ctx); err != nil {
			// Logged, never propagated: the original failure wins.
			log.Error().Err(err).Str("operation_id", opID.String()).Msg("guard: rollback failed")
		}
	}

	elapsed := e.clock.Now().Sub(start)
	detail := map[string]any{
		"payload":    opCtx.Payload,
		"elapsed_ms": elapsed.Milliseconds(),
	}
	if cause != nil {
		detail["error"] = cause.Error()
	}

	e.trail.Record(ctx, &domain.AuditRecord{
		OperationID: opID,
		ActorID:     opCtx.ActorID,
		Action:      opCtx.Action,
		ResourceID:  opCtx.ResourceID,
		Outcome:     domain.OutcomeFailure,
		Severity:    severity,
		Detail:      detail,
	})

	if e.lockouts != nil && opCtx.LockoutIdentity != "" && isAuthFailure(kind) {
		if _, err := e.lockouts.RecordFailure(ctx, opCtx.LockoutIdentity); err != nil {
			log.Warn().Err(err).Str("identity", opCtx.LockoutIdentity).Msg("guard: lockout update failed")
		}
	}

	if e.monitor != nil {
		e.monitor.Observe(ctx, FailureMetricKey, float64(e.failures.Add(1)))
	}

	e.recordMetrics(opCtx.Action, string(domain.OutcomeFailure), elapsed)

	return domain.OperationResult{OperationID: opID}, &Error{Kind: kind, OperationID: opID, Err: cause}
}

// isAuthFailure reports whether kind counts toward lockout accounting:
// permission denials and failed units of work on operations that carry a
// lockout identity, but not malformed requests or exhausted windows.
func isAuthFailure(kind error) bool {
	return kind == domain.ErrUnauthorized || kind == domain.ErrOperationFailed
}

// recordMetrics observes the outcome. It must never throw into the pipeline:
// a panicking recorder is logged at debug and swallowed.
func (e *Executor) recordMetrics(action, outcome string, elapsed time.Duration) {
	if e.metrics == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Debug().Interface("panic", r).Msg("guard: metrics recording failed")
		}
	}()
	e.metrics.ObserveOperation(action, outcome, elapsed)
}
