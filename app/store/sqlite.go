package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// SQLiteStore persists the settings bag in the settings table.
type SQLiteStore struct {
	db *DB
	notifier
}

func NewSQLiteStore(db *DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Get(ctx context.Context, keys ...string) (Values, error) {
	query := `SELECT key, value FROM settings`
	args := make([]any, 0, len(keys))

	if len(keys) > 0 {
		placeholders := make([]string, len(keys))
		for i, key := range keys {
			placeholders[i] = "?"
			args = append(args, key)
		}
		query += ` WHERE key IN (` + strings.Join(placeholders, ", ") + `)`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	values := make(Values)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		values[key] = json.RawMessage(value)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	return values, nil
}

func (s *SQLiteStore) Set(ctx context.Context, values Values) error {
	if err := validateValues(values); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	changes := make(Values)
	for key, value := range values {
		var existing string
		err := tx.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&existing)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("failed to read setting %s: %w", key, err)
		}
		if err == nil && sameJSON(json.RawMessage(existing), value) {
			continue
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO settings (key, value, updated_at)
			VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT (key) DO UPDATE SET
				value = excluded.value,
				updated_at = excluded.updated_at
		`, key, string(value))
		if err != nil {
			return fmt.Errorf("failed to store setting %s: %w", key, err)
		}

		changes[key] = value
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settings: %w", err)
	}

	s.notify(changes)
	return nil
}

func (s *SQLiteStore) OnChanged(fn func(changes Values)) func() {
	return s.subscribe(fn)
}
