package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrSettingNotFound = errors.New("setting not found")
)

// Setting is one persisted key/value pair.
type Setting struct {
	Key       string
	Value     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SettingsRepository persists room list settings.
type SettingsRepository struct {
	db *DB
}

func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Set writes value under key, replacing any previous value.
func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("key is required")
	}
	now := time.Now().UTC().Format(time.RFC3339)

	return r.db.WriteTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE settings
			SET value = ?, updated_at = ?
			WHERE key = ?
		`, value, now, key)
		if err != nil {
			return fmt.Errorf("failed to update setting: %w", err)
		}
		if rows, _ := result.RowsAffected(); rows > 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO settings (key, value, created_at, updated_at)
			VALUES (?, ?, ?, ?)
		`, key, value, now, now); err != nil {
			return fmt.Errorf("failed to insert setting: %w", err)
		}
		return nil
	})
}

// SetIfAbsent inserts value only when key is not present. It reports whether
// the row was written.
func (r *SettingsRepository) SetIfAbsent(ctx context.Context, key, value string) (bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return false, fmt.Errorf("key is required")
	}
	now := time.Now().UTC().Format(time.RFC3339)

	var inserted bool
	err := r.db.WriteTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO settings (key, value, created_at, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(key) DO NOTHING
		`, key, value, now, now)
		if err != nil {
			return fmt.Errorf("failed to insert setting: %w", err)
		}
		rows, _ := result.RowsAffected()
		inserted = rows > 0
		return nil
	})
	return inserted, err
}

func (r *SettingsRepository) Get(ctx context.Context, key string) (*Setting, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT key, value, created_at, updated_at
		FROM settings
		WHERE key = ?
	`, strings.TrimSpace(key))
	return r.scanSetting(row)
}

// List returns every setting ordered by key.
func (r *SettingsRepository) List(ctx context.Context) ([]*Setting, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT key, value, created_at, updated_at
		FROM settings
		ORDER BY key
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	out := make([]*Setting, 0)
	for rows.Next() {
		entry, err := r.scanSetting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settings: %w", err)
	}
	return out, nil
}

func (r *SettingsRepository) Delete(ctx context.Context, key string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, strings.TrimSpace(key))
	if err != nil {
		return fmt.Errorf("failed to delete setting: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrSettingNotFound
	}
	return nil
}

func (r *SettingsRepository) scanSetting(scanner interface{ Scan(...any) error }) (*Setting, error) {
	var (
		key       string
		value     string
		createdAt string
		updatedAt string
	)
	if err := scanner.Scan(&key, &value, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSettingNotFound
		}
		return nil, fmt.Errorf("failed to scan setting: %w", err)
	}

	entry := &Setting{Key: key, Value: value}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		entry.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		entry.UpdatedAt = t
	}
	return entry, nil
}
