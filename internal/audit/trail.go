// Package audit records structured, redacted trails of guarded operations.
package audit

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/aegis/internal/domain"
)

// Trail appends audit records to a sink. Two hard rules, neither bypassable:
// sensitive fields are redacted before a record leaves this package, and sink
// failures are swallowed — an audit write error must never mask or replace
// the guarded operation's own outcome. Failed records fall back to the
// process log.
type Trail struct {
	sink     domain.AuditSink
	redactor *Redactor
	clock    domain.Clock
}

func NewTrail(sink domain.AuditSink, clock domain.Clock, extraSensitive ...string) *Trail {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Trail{
		sink:     sink,
		redactor: NewRedactor(extraSensitive...),
		clock:    clock,
	}
}

// Record redacts and persists rec. It never returns and never panics out;
// see the package rules above.
func (t *Trail) Record(ctx context.Context, rec *domain.AuditRecord) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("operation_id", rec.OperationID.String()).
				Msg("audit: sink panicked")
		}
	}()

	if rec.Timestamp.IsZero() {
		rec.Timestamp = t.clock.Now()
	}
	rec.Detail = t.redactor.Redact(rec.Detail)

	if err := t.sink.Record(ctx, rec); err != nil {
		log.Error().Err(err).
			Str("operation_id", rec.OperationID.String()).
			Str("action", rec.Action).
			Msg("audit: record failed, writing to fallback log")
		log.Warn().
			Str("operation_id", rec.OperationID.String()).
			Str("actor_id", rec.ActorID).
			Str("action", rec.Action).
			Str("outcome", string(rec.Outcome)).
			Str("severity", string(rec.Severity)).
			Interface("detail", rec.Detail).
			Msg("audit: fallback record")
	}
}

// List exposes the sink's recent records for the read API.
func (t *Trail) List(ctx context.Context, limit, offset int) ([]*domain.AuditRecord, error) {
	return t.sink.ListRecent(ctx, limit, offset)
}

// ListByActor exposes the sink's per-actor records for the read API.
func (t *Trail) ListByActor(ctx context.Context, actorID string, limit, offset int) ([]*domain.AuditRecord, error) {
	return t.sink.ListByActor(ctx, actorID, limit, offset)
}
