// Package repository provides data access for lookup results and settings.
package repository

import (
	"database/sql"

	"github.com/compsight/compsight-api/internal/crypto"
)

// Repositories bundles all repository implementations.
type Repositories struct {
	Cache    CacheRepository
	Settings SettingsRepository
}

// NewRepositories creates all repositories backed by the given database.
func NewRepositories(db *sql.DB, encryptor *crypto.Encryptor) *Repositories {
	return &Repositories{
		Cache:    NewSQLiteCacheRepository(db),
		Settings: NewSQLiteSettingsRepository(db, encryptor),
	}
}
