package prefs

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no profile has been saved yet.
var ErrNotFound = errors.New("not found")

// Repo defines persistence operations for the preference profile.
// Save has upsert semantics over the single logical row.
type Repo interface {
	Get(ctx context.Context) (Profile, error)
	Save(ctx context.Context, profile Profile) error
}
