package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Severity classifies audit records. Unauthorized-access attempts are always
// critical; rate-limit rejections are warnings.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Outcome records whether the guarded operation succeeded.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// AuditRecord is an immutable append-only entry. Detail is redacted of
// sensitive fields before it leaves the audit trail; sinks never see raw
// credentials.
type AuditRecord struct {
	OperationID uuid.UUID
	ActorID     string
	Action      string
	ResourceID  string
	Timestamp   time.Time
	Outcome     Outcome
	Severity    Severity
	Detail      map[string]any
}

// AuditSink persists audit records. Implementations may fail; the audit trail
// is responsible for swallowing those failures so they never mask the guarded
// operation's own outcome.
type AuditSink interface {
	Record(ctx context.Context, rec *AuditRecord) error
	ListRecent(ctx context.Context, limit, offset int) ([]*AuditRecord, error)
	ListByActor(ctx context.Context, actorID string, limit, offset int) ([]*AuditRecord, error)
}
