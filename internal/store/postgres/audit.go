package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/aegis/internal/domain"
)

// AuditRepo persists audit records in the audit_log table. Records are
// written outside the guarded transaction on purpose: a rolled-back operation
// must still leave its audit trail behind.
type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

func (r *AuditRepo) Record(ctx context.Context, rec *domain.AuditRecord) error {
	detail, err := json.Marshal(rec.Detail)
	if err != nil {
		return fmt.Errorf("auditRepo.Record: marshal detail: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO audit_log (operation_id, actor_id, action, resource_id, outcome, severity, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.OperationID, rec.ActorID, rec.Action, rec.ResourceID,
		string(rec.Outcome), string(rec.Severity), detail, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("auditRepo.Record: %w", err)
	}

	return nil
}

func (r *AuditRepo) ListRecent(ctx context.Context, limit, offset int) ([]*domain.AuditRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT operation_id, actor_id, action, resource_id, outcome, severity, detail, created_at
		 FROM audit_log
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("auditRepo.ListRecent: %w", err)
	}
	defer rows.Close()

	return scanAuditRecords(rows, "auditRepo.ListRecent")
}

func (r *AuditRepo) ListByActor(ctx context.Context, actorID string, limit, offset int) ([]*domain.AuditRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT operation_id, actor_id, action, resource_id, outcome, severity, detail, created_at
		 FROM audit_log WHERE actor_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		actorID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("auditRepo.ListByActor: %w", err)
	}
	defer rows.Close()

	return scanAuditRecords(rows, "auditRepo.ListByActor")
}

func scanAuditRecords(rows pgx.Rows, caller string) ([]*domain.AuditRecord, error) {
	var records []*domain.AuditRecord
	for rows.Next() {
		var rec domain.AuditRecord
		var outcome, severity string
		var detail []byte

		if err := rows.Scan(
			&rec.OperationID, &rec.ActorID, &rec.Action, &rec.ResourceID,
			&outcome, &severity, &detail, &rec.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		rec.Outcome = domain.Outcome(outcome)
		rec.Severity = domain.Severity(severity)
		if err := json.Unmarshal(detail, &rec.Detail); err != nil {
			return nil, fmt.Errorf("%s: unmarshal detail: %w", caller, err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return records, nil
}
