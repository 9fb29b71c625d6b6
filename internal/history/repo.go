package history

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Repo defines persistence operations for food history records.
type Repo interface {
	Insert(ctx context.Context, record Record) error
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)
	// Liked returns up to limit records with Liked set to true, newest first.
	Liked(ctx context.Context, limit int) ([]Record, error)
	SetLiked(ctx context.Context, id string, liked bool) error
	Count(ctx context.Context) (int, error)
	// DeleteOlderThan removes records created before the cutoff. Retention
	// runs outside the recommendation pipeline.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) error
}
