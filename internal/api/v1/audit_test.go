package v1_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/aegis/internal/api/v1"
	"github.com/gosuda/aegis/internal/domain"
)

// ---------------------------------------------------------------------------
// GET /audit
// ---------------------------------------------------------------------------

func TestListAudit(t *testing.T) {
	t.Parallel()

	fixtureRecord := &domain.AuditRecord{
		OperationID: uuid.New(),
		ActorID:     "alice",
		Action:      "auth.login",
		Timestamp:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Outcome:     domain.OutcomeFailure,
		Severity:    domain.SeverityWarning,
		Detail:      map[string]any{"reason": "bad password"},
	}

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		reader := &mockAuditReader{
			listFunc: func(_ context.Context, limit, offset int) ([]*domain.AuditRecord, error) {
				assert.Equal(t, 50, limit)
				assert.Equal(t, 0, offset)
				return []*domain.AuditRecord{fixtureRecord}, nil
			},
		}

		v1.RegisterAuditRoutes(api, reader)

		resp := api.Get("/audit")
		require.Equal(t, http.StatusOK, resp.Code)

		var body struct {
			Records []v1.AuditRecordDTO `json:"records"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Len(t, body.Records, 1)
		assert.Equal(t, fixtureRecord.OperationID, body.Records[0].OperationID)
		assert.Equal(t, "alice", body.Records[0].ActorID)
		assert.Equal(t, "failure", body.Records[0].Outcome)
		assert.Equal(t, "warning", body.Records[0].Severity)
		assert.Equal(t, "bad password", body.Records[0].Detail["reason"])
	})

	t.Run("filter_by_actor", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		reader := &mockAuditReader{
			listByActorFunc: func(_ context.Context, actorID string, limit, offset int) ([]*domain.AuditRecord, error) {
				assert.Equal(t, "alice", actorID)
				assert.Equal(t, 10, limit)
				assert.Equal(t, 20, offset)
				return nil, nil
			},
		}

		v1.RegisterAuditRoutes(api, reader)

		resp := api.Get("/audit?actor_id=alice&limit=10&offset=20")
		require.Equal(t, http.StatusOK, resp.Code)

		var body struct {
			Records []v1.AuditRecordDTO `json:"records"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Empty(t, body.Records)
	})

	t.Run("limit_out_of_bounds", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		reader := &mockAuditReader{}

		v1.RegisterAuditRoutes(api, reader)

		resp := api.Get("/audit?limit=10000")
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})

	t.Run("sink_error", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		reader := &mockAuditReader{
			listFunc: func(_ context.Context, _, _ int) ([]*domain.AuditRecord, error) {
				return nil, errors.New("storage unavailable")
			},
		}

		v1.RegisterAuditRoutes(api, reader)

		resp := api.Get("/audit")
		assert.Equal(t, http.StatusInternalServerError, resp.Code)
	})
}
