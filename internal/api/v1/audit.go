package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/aegis/internal/domain"
)

// AuditRecordDTO is the wire shape of one audit record. Detail is already
// redacted by the audit trail before persistence.
type AuditRecordDTO struct {
	OperationID uuid.UUID      `json:"operation_id"`
	ActorID     string         `json:"actor_id"`
	Action      string         `json:"action"`
	ResourceID  string         `json:"resource_id,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	Outcome     string         `json:"outcome"`
	Severity    string         `json:"severity"`
	Detail      map[string]any `json:"detail,omitempty"`
}

type ListAuditInput struct {
	ActorID string `query:"actor_id" doc:"Filter by actor"`
	Limit   int    `query:"limit" default:"50" minimum:"1" maximum:"500" doc:"Page size"`
	Offset  int    `query:"offset" default:"0" minimum:"0" doc:"Page offset"`
}

type ListAuditOutput struct {
	Body struct {
		Records []AuditRecordDTO `json:"records"`
	}
}

// RegisterAuditRoutes mounts the audit read API. Callers must already be
// admins; the router enforces that with role middleware.
func RegisterAuditRoutes(api huma.API, reader AuditReader) {
	huma.Register(api, huma.Operation{
		OperationID: "list-audit-records",
		Method:      http.MethodGet,
		Path:        "/audit",
		Summary:     "List audit records, newest first",
		Tags:        []string{"Audit"},
	}, func(ctx context.Context, input *ListAuditInput) (*ListAuditOutput, error) {
		var (
			records []*domain.AuditRecord
			err     error
		)
		if input.ActorID != "" {
			records, err = reader.ListByActor(ctx, input.ActorID, input.Limit, input.Offset)
		} else {
			records, err = reader.List(ctx, input.Limit, input.Offset)
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list audit records", err)
		}

		out := &ListAuditOutput{}
		out.Body.Records = make([]AuditRecordDTO, 0, len(records))
		for _, rec := range records {
			out.Body.Records = append(out.Body.Records, AuditRecordDTO{
				OperationID: rec.OperationID,
				ActorID:     rec.ActorID,
				Action:      rec.Action,
				ResourceID:  rec.ResourceID,
				Timestamp:   rec.Timestamp,
				Outcome:     string(rec.Outcome),
				Severity:    string(rec.Severity),
				Detail:      rec.Detail,
			})
		}
		return out, nil
	})
}
