package prefs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres. The user_preferences table is
// constrained to a single row; Save upserts it.
type PGRepo struct {
	DB *sql.DB
}

// Get returns the saved profile or ErrNotFound.
func (r *PGRepo) Get(ctx context.Context) (Profile, error) {
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
func (r *PGRepo) Save(ctx context.Context, profile Profile) error {
	const query = `
INSERT INTO user_preferences (id, favorite_cuisines, disliked_foods, dietary_restrictions, spice_level, portion_size, updated_at)
VALUES (1, $1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
	favorite_cuisines = EXCLUDED.favorite_cuisines,
	disliked_foods = EXCLUDED.disliked_foods,
	dietary_restrictions = EXCLUDED.dietary_restrictions,
	spice_level = EXCLUDED.spice_level,
	portion_size = EXCLUDED.portion_size,
	updated_at = EXCLUDED.updated_at`

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

func marshalList(list []string) ([]byte, error) {
	if list == nil {
		list = []string{}
	}
	return json.Marshal(list)
}

func unmarshalList(raw []byte, dst *[]string) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
