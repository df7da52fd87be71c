package store

import (
	"database/sql"
	"errors"
)

// SettingRepository provides access to application settings.
type SettingRepository struct {
	db *sql.DB
}

// Settings returns the setting repository for this store.
func (s *Store) Settings() *SettingRepository {
	return &SettingRepository{db: s.db}
}

// Get retrieves a setting value. Returns ErrNotFound for unknown keys.
func (r *SettingRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

// Set stores a setting value, replacing any existing value.
func (r *SettingRepository) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}
