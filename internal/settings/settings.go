// Package settings stores the small key/value configuration the operator
// edits at runtime, such as the notification channels.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/01moynul/tg-storefront/internal/database"
	"github.com/01moynul/tg-storefront/internal/models"
)

// Store reads and writes the settings table.
type Store struct {
	db *database.DB
}

// New creates a Store.
func New(db *database.DB) *Store {
	return &Store{db: db}
}

// Get returns the value for key, or ErrNotFound when it was never set.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT setting_value FROM settings WHERE setting_key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("setting %s: %w", key, models.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, nil
}

// Set overwrites the value for key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	d := s.db.Dialect
	query := "INSERT INTO settings (setting_key, setting_value) VALUES (?, ?) " +
		d.Upsert("setting_key", "setting_value = "+d.Excluded("setting_value"))

	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}
