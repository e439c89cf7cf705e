package localdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Setting keys persisted with an expiry.
const (
	SettingSheetURL   = "dsa-sheet-url"
	SettingWebhookURL = "dsa-apps-script-url"
)

// SettingTTL is how long a saved setting stays valid.
const SettingTTL = 365 * 24 * time.Hour

// SetSetting stores value under key. A ttl <= 0 never expires.
func (db *DB) SetSetting(ctx context.Context, key, value string, ttl time.Duration) error {
	var expires sql.NullString
	if ttl > 0 {
		expires = sql.NullString{String: formatTime(db.now().Add(ttl)), Valid: true}
	}

	_, err := db.conn.ExecContext(ctx, `
	INSERT INTO settings (key, value, expires_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		expires_at = excluded.expires_at
	`, key, value, expires)
	if err != nil {
		return fmt.Errorf("failed to store setting %s: %w", key, err)
	}
	return nil
}

// Setting returns the value for key. Expired entries are deleted and
// reported as absent.
func (db *DB) Setting(ctx context.Context, key string) (string, bool, error) {
	var (
		value   string
		expires sql.NullString
	)
	err := db.conn.QueryRowContext(ctx,
		"SELECT value, expires_at FROM settings WHERE key = ?", key,
	).Scan(&value, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}

	if expires.Valid {
		at, err := parseTime(expires.String)
		if err != nil {
			return "", false, err
		}
		if !db.now().Before(at) {
			if err := db.DeleteSetting(ctx, key); err != nil {
				return "", false, err
			}
			return "", false, nil
		}
	}

	return value, true, nil
}

// DeleteSetting removes key. Idempotent.
func (db *DB) DeleteSetting(ctx context.Context, key string) error {
	if _, err := db.conn.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}
