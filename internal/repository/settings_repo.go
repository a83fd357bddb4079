package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/compsight/compsight-api/internal/crypto"
)

// Setting keys for stored upstream credentials.
const (
	SettingOpenAIKey   = "openai_api_key"
	SettingRapidAPIKey = "rapidapi_key"
)

// SettingsRepository persists key/value settings. Values flagged as
// secret are encrypted at rest.
type SettingsRepository interface {
	// Get returns the value for a key, or empty string when absent.
	Get(ctx context.Context, key string) (string, error)
	// Set stores a value. When secret is true the value is encrypted
	// before it is written.
	Set(ctx context.Context, key, value string, secret bool) error
	// Delete removes a setting. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// SQLiteSettingsRepository implements SettingsRepository using SQLite.
type SQLiteSettingsRepository struct {
	db        *sql.DB
	encryptor *crypto.Encryptor
}

// NewSQLiteSettingsRepository creates a new settings repository.
func NewSQLiteSettingsRepository(db *sql.DB, encryptor *crypto.Encryptor) *SQLiteSettingsRepository {
	return &SQLiteSettingsRepository{db: db, encryptor: encryptor}
}

// Get returns the value for a key, decrypting it when stored encrypted.
func (r *SQLiteSettingsRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	var encrypted int

	err := r.db.QueryRowContext(ctx, `
		SELECT value, encrypted FROM settings WHERE key = ?
	`, key).Scan(&value, &encrypted)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}

	if encrypted == 1 {
		plaintext, err := r.encryptor.Decrypt(value)
		if err != nil {
			return "", fmt.Errorf("failed to decrypt setting %s: %w", key, err)
		}
		return plaintext, nil
	}

	return value, nil
}

// Set stores a value, encrypting it when secret is true.
func (r *SQLiteSettingsRepository) Set(ctx context.Context, key, value string, secret bool) error {
	stored := value
	encrypted := 0

	if secret {
		ciphertext, err := r.encryptor.Encrypt(value)
		if err != nil {
			return fmt.Errorf("failed to encrypt setting %s: %w", key, err)
		}
		stored = ciphertext
		encrypted = 1
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, encrypted, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			encrypted = excluded.encrypted,
			updated_at = excluded.updated_at
	`, key, stored, encrypted, time.Now().UTC().Format(time.RFC3339))

	if err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}

	return nil
}

// Delete removes a setting.
func (r *SQLiteSettingsRepository) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}
