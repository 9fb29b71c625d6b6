package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteRepo implements Repo over a local SQLite database for single-user
// deployments.
type SQLiteRepo struct {
	DB *sql.DB
}

// InitSchema creates the food_history table if it does not exist.
func (r *SQLiteRepo) InitSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS food_history (
	id TEXT PRIMARY KEY,
	food_name TEXT NOT NULL,
	cuisine TEXT NOT NULL,
	ts DATETIME NOT NULL,
	image_path TEXT,
	liked INTEGER,
	notes TEXT
);
CREATE INDEX IF NOT EXISTS idx_food_history_ts ON food_history(ts);`
	if _, err := r.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create food_history: %w", err)
	}
	return nil
}

// Insert stores a new record.
func (r *SQLiteRepo) Insert(ctx context.Context, record Record) error {
	const query = `
INSERT INTO food_history (id, food_name, cuisine, ts, image_path, liked, notes)
VALUES (?, ?, ?, ?, ?, ?, ?)`
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
func (r *SQLiteRepo) Recent(ctx context.Context, limit int) ([]Record, error) {
	const query = `
SELECT id, food_name, cuisine, ts, image_path, liked, notes
FROM food_history
ORDER BY ts DESC
LIMIT ?`
	return r.query(ctx, query, limit)
}

// Liked returns up to limit liked records, newest first.
func (r *SQLiteRepo) Liked(ctx context.Context, limit int) ([]Record, error) {
	const query = `
SELECT id, food_name, cuisine, ts, image_path, liked, notes
FROM food_history
WHERE liked = 1
ORDER BY ts DESC
LIMIT ?`
	return r.query(ctx, query, limit)
}

func (r *SQLiteRepo) query(ctx context.Context, query string, limit int) ([]Record, error) {
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
func (r *SQLiteRepo) SetLiked(ctx context.Context, id string, liked bool) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE food_history SET liked = ? WHERE id = ?`, liked, id)
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
func (r *SQLiteRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM food_history`).Scan(&count)
	return count, err
}

// DeleteOlderThan removes records created before the cutoff.
func (r *SQLiteRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM food_history WHERE ts < ?`, cutoff)
	return err
}
