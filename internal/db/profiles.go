package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SaveProfile inserts or replaces a serialized user profile.
func (d *DB) SaveProfile(ctx context.Context, userID string, profile []byte) error {
	_, err := d.ExecContext(ctx, `
		INSERT INTO profiles (user_id, profile, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(user_id) DO UPDATE SET
			profile = excluded.profile,
			updated_at = excluded.updated_at`,
		userID, string(profile))
	if err != nil {
		return fmt.Errorf("saving profile %s: %w", userID, err)
	}
	return nil
}

// GetProfile returns the serialized profile for userID, or sql.ErrNoRows.
func (d *DB) GetProfile(ctx context.Context, userID string) ([]byte, error) {
	var profile string
	err := d.QueryRowContext(ctx, `SELECT profile FROM profiles WHERE user_id = ?`, userID).Scan(&profile)
	if err != nil {
		return nil, err
	}
	return []byte(profile), nil
}

// DeleteProfile removes a user's profile and reports whether it existed.
func (d *DB) DeleteProfile(ctx context.Context, userID string) (bool, error) {
	res, err := d.ExecContext(ctx, `DELETE FROM profiles WHERE user_id = ?`, userID)
	if err != nil {
		return false, fmt.Errorf("deleting profile %s: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListProfiles returns every stored profile keyed by user id.
func (d *DB) ListProfiles(ctx context.Context) (map[string][]byte, error) {
	rows, err := d.QueryContext(ctx, `SELECT user_id, profile FROM profiles`)
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var userID, profile string
		if err := rows.Scan(&userID, &profile); err != nil {
			return nil, fmt.Errorf("scanning profile row: %w", err)
		}
		out[userID] = []byte(profile)
	}
	return out, rows.Err()
}

// IsNotFound reports whether err is the database's row-missing error.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
