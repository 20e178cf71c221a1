package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/infra/storage"
)

// SubmissionRepo keeps the journal in process memory.
type SubmissionRepo struct {
	records map[string]*domain.SubmissionRecord
	mu      sync.RWMutex
}

func NewSubmissionRepo() *SubmissionRepo {
	return &SubmissionRepo{
		records: make(map[string]*domain.SubmissionRecord),
	}
}

func (r *SubmissionRepo) Save(ctx context.Context, rec *domain.SubmissionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.records[rec.Key] = &cp
	return nil
}

func (r *SubmissionRepo) UpdateStatus(
	ctx context.Context,
	key string,
	status domain.SubmissionStatus,
	errMsg string,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	if !ok {
		return storage.ErrSubmissionNotFound
	}
	rec.Status = status
	rec.Error = errMsg
	rec.UpdatedAt = time.Now()
	return nil
}

func (r *SubmissionRepo) GetByKey(ctx context.Context, key string) (*domain.SubmissionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[key]
	if !ok {
		return nil, storage.ErrSubmissionNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *SubmissionRepo) ListRecent(ctx context.Context, limit int) ([]*domain.SubmissionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.SubmissionRecord, 0, len(r.records))
	for _, rec := range r.records {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
