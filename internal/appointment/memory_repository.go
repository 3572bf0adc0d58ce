package appointment

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository keeps records in process memory. Nothing survives a
// restart.
type MemoryRepository struct {
	mu      sync.RWMutex
	records []Record
	byID    map[uuid.UUID]int
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[uuid.UUID]int)}
}

func (r *MemoryRepository) Insert(_ context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[rec.ID]; ok {
		return ErrDuplicateRecord
	}
	r.byID[rec.ID] = len(r.records)
	r.records = append(r.records, *rec)
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.byID[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	rec := r.records[idx]
	return &rec, nil
}

func (r *MemoryRepository) List(_ context.Context, limit, offset int) ([]Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Record
	for i := len(r.records) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.records[i])
	}
	return out, nil
}

func (r *MemoryRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records), nil
}
