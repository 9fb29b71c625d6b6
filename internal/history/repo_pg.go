package history

import (
	"context"
	"database/sql"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Insert stores a new record.
func (r *PGRepo) Insert(ctx context.Context, record Record) error {
	const query = `
INSERT INTO food_history (id, food_name, cuisine, ts, image_path, liked, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.DB.ExecContext(ctx, query,
		record.ID,
		record.FoodName,
		record.Cuisine,
		record.Timestamp,
		record.ImagePath,
		record.Liked,
		record.Notes,
	)
	return err
}

// Recent returns up to limit records, newest first.
func (r *PGRepo) Recent(ctx context.Context, limit int) ([]Record, error) {
	const query = `
SELECT id, food_name, cuisine, ts, image_path, liked, notes
FROM food_history
ORDER BY ts DESC
LIMIT $1`
	return r.query(ctx, query, limit)
}

// Liked returns up to limit liked records, newest first.
func (r *PGRepo) Liked(ctx context.Context, limit int) ([]Record, error) {
	const query = `
SELECT id, food_name, cuisine, ts, image_path, liked, notes
FROM food_history
WHERE liked = TRUE
ORDER BY ts DESC
LIMIT $1`
	return r.query(ctx, query, limit)
}

func (r *PGRepo) query(ctx context.Context, query string, limit int) ([]Record, error) {
	if limit <= 0 {
		return []Record{}, nil
	}
	rows, err := r.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var record Record
		if err := rows.Scan(
			&record.ID,
			&record.FoodName,
			&record.Cuisine,
			&record.Timestamp,
			&record.ImagePath,
			&record.Liked,
			&record.Notes,
		); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// SetLiked updates the feedback flag on an existing record.
func (r *PGRepo) SetLiked(ctx context.Context, id string, liked bool) error {
	const query = `UPDATE food_history SET liked = $2 WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id, liked)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored records.
func (r *PGRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM food_history`).Scan(&count)
	return count, err
}

// DeleteOlderThan removes records created before the cutoff.
func (r *PGRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM food_history WHERE ts < $1`, cutoff)
	return err
}
