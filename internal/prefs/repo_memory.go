package prefs

import (
	"context"
	"sync"
)

// MemoryRepo stores the profile in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu      sync.RWMutex
	profile *Profile
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

// Get returns the saved profile or ErrNotFound.
func (r *MemoryRepo) Get(ctx context.Context) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.profile == nil {
		return Profile{}, ErrNotFound
	}
	return *r.profile, nil
}

// Save replaces the stored profile.
func (r *MemoryRepo) Save(ctx context.Context, profile Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profile = &profile
	return nil
}
