package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLiteRepo implements Repo over a local SQLite database for single-user
// deployments. The schema mirrors the Postgres one with SQLite types.
type SQLiteRepo struct {
	DB *sql.DB
}

// InitSchema creates the user_preferences table if it does not exist.
func (r *SQLiteRepo) InitSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS user_preferences (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	favorite_cuisines TEXT NOT NULL DEFAULT '[]',
	disliked_foods TEXT NOT NULL DEFAULT '[]',
	dietary_restrictions TEXT NOT NULL DEFAULT '[]',
	spice_level INTEGER NOT NULL DEFAULT 2,
	portion_size TEXT NOT NULL DEFAULT 'medium',
	updated_at DATETIME NOT NULL
)`
	if _, err := r.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create user_preferences: %w", err)
	}
	return nil
}

// Get returns the saved profile or ErrNotFound.
func (r *SQLiteRepo) Get(ctx context.Context) (Profile, error) {
	const query = `
SELECT favorite_cuisines, disliked_foods, dietary_restrictions, spice_level, portion_size, updated_at
FROM user_preferences
WHERE id = 1`

	var (
		profile      Profile
		cuisines     []byte
		disliked     []byte
		restrictions []byte
	)
	err := r.DB.QueryRowContext(ctx, query).Scan(
		&cuisines,
		&disliked,
		&restrictions,
		&profile.SpiceLevel,
		&profile.PortionSize,
		&profile.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, err
	}

	if err := unmarshalList(cuisines, &profile.FavoriteCuisines); err != nil {
		return Profile{}, fmt.Errorf("favorite_cuisines: %w", err)
	}
	if err := unmarshalList(disliked, &profile.DislikedFoods); err != nil {
		return Profile{}, fmt.Errorf("disliked_foods: %w", err)
	}
	if err := unmarshalList(restrictions, &profile.DietaryRestrictions); err != nil {
		return Profile{}, fmt.Errorf("dietary_restrictions: %w", err)
	}
	return profile, nil
}

// Save upserts the profile into the single logical row.
func (r *SQLiteRepo) Save(ctx context.Context, profile Profile) error {
	const query = `
INSERT INTO user_preferences (id, favorite_cuisines, disliked_foods, dietary_restrictions, spice_level, portion_size, updated_at)
VALUES (1, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	favorite_cuisines = excluded.favorite_cuisines,
	disliked_foods = excluded.disliked_foods,
	dietary_restrictions = excluded.dietary_restrictions,
	spice_level = excluded.spice_level,
	portion_size = excluded.portion_size,
	updated_at = excluded.updated_at`

	cuisines, err := marshalList(profile.FavoriteCuisines)
	if err != nil {
		return err
	}
	disliked, err := marshalList(profile.DislikedFoods)
	if err != nil {
		return err
	}
	restrictions, err := marshalList(profile.DietaryRestrictions)
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(ctx, query,
		cuisines,
		disliked,
		restrictions,
		profile.SpiceLevel,
		profile.PortionSize,
		profile.UpdatedAt,
	)
	return err
}
