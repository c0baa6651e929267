package audit

import (
	"context"
	"sync"

	"github.com/gosuda/aegis/internal/domain"
)

// MemorySink is the in-memory reference implementation of domain.AuditSink.
// Records are held newest-last; listings return newest-first.
type MemorySink struct {
	mu      sync.RWMutex
	records []*domain.AuditRecord
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Record(_ context.Context, rec *domain.AuditRecord) error {
	cp := *rec
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, &cp)
	return nil
}

func (s *MemorySink) ListRecent(_ context.Context, limit, offset int) ([]*domain.AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page(s.records, limit, offset), nil
}

func (s *MemorySink) ListByActor(_ context.Context, actorID string, limit, offset int) ([]*domain.AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*domain.AuditRecord
	for _, rec := range s.records {
		if rec.ActorID == actorID {
			matched = append(matched, rec)
		}
	}
	return s.page(matched, limit, offset), nil
}

// Len reports the number of stored records.
func (s *MemorySink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// page returns records newest-first with limit/offset applied. Caller holds
// the read lock.
func (s *MemorySink) page(records []*domain.AuditRecord, limit, offset int) []*domain.AuditRecord {
	if offset < 0 {
		offset = 0
	}
	out := make([]*domain.AuditRecord, 0, limit)
	for i := len(records) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, records[i])
	}
	return out
}
