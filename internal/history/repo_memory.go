package history

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores records in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{records: make(map[string]Record)}
}

// Insert stores the record.
func (r *MemoryRepo) Insert(ctx context.Context, record Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = record
	return nil
}

// Recent returns up to limit records, newest first.
func (r *MemoryRepo) Recent(ctx context.Context, limit int) ([]Record, error) {
	return r.list(ctx, limit, func(Record) bool { return true })
}

// Liked returns up to limit liked records, newest first.
func (r *MemoryRepo) Liked(ctx context.Context, limit int) ([]Record, error) {
	return r.list(ctx, limit, func(rec Record) bool {
		return rec.Liked != nil && *rec.Liked
	})
}

func (r *MemoryRepo) list(ctx context.Context, limit int, keep func(Record) bool) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []Record{}, nil
	}

	r.mu.RLock()
	all := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		if keep(rec) {
			all = append(all, rec)
		}
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// SetLiked updates the feedback flag on an existing record.
func (r *MemoryRepo) SetLiked(ctx context.Context, id string, liked bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok {
		return ErrNotFound
	}
	record.Liked = &liked
	r.records[id] = record
	return nil
}

// Count returns the number of stored records.
func (r *MemoryRepo) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records), nil
}

// DeleteOlderThan removes records created before the cutoff.
func (r *MemoryRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, rec := range r.records {
		if rec.Timestamp.Before(cutoff) {
			delete(r.records, id)
		}
	}
	return nil
}
