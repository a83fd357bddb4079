package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/compsight/compsight-api/internal/models"
)

// cacheKeyPrefix namespaces lookup entries by the page URL they were
// computed for.
const cacheKeyPrefix = "ebay_lookup_"

// CacheRepository persists completed lookup results keyed by page URL.
type CacheRepository interface {
	// Get returns the cached entry for a URL, or nil when absent or
	// older than ttl.
	Get(ctx context.Context, pageURL string, ttl time.Duration) (*models.CacheEntry, error)
	// Set stores an entry for a URL, replacing any existing one.
	Set(ctx context.Context, pageURL string, entry *models.CacheEntry) error
	// Delete removes the entry for a URL. Deleting a missing entry is
	// not an error.
	Delete(ctx context.Context, pageURL string) error
	// PurgeExpired deletes entries older than ttl and reports how many
	// were removed.
	PurgeExpired(ctx context.Context, ttl time.Duration) (int64, error)
	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)
}

// SQLiteCacheRepository implements CacheRepository using SQLite.
type SQLiteCacheRepository struct {
	db *sql.DB
}

// NewSQLiteCacheRepository creates a new cache repository.
func NewSQLiteCacheRepository(db *sql.DB) *SQLiteCacheRepository {
	return &SQLiteCacheRepository{db: db}
}

func cacheKey(pageURL string) string {
	return cacheKeyPrefix + pageURL
}

// Get returns the cached entry for a URL if it is younger than ttl.
func (r *SQLiteCacheRepository) Get(ctx context.Context, pageURL string, ttl time.Duration) (*models.CacheEntry, error) {
	var entryJSON string
	var timestampMs int64

	err := r.db.QueryRowContext(ctx, `
		SELECT entry_json, timestamp_ms FROM lookup_cache
		WHERE cache_key = ?
	`, cacheKey(pageURL)).Scan(&entryJSON, &timestampMs)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	// Stale entries are treated as absent; the caller overwrites them
	// with a fresh lookup.
	age := time.Since(time.UnixMilli(timestampMs))
	if age >= ttl {
		return nil, nil
	}

	var entry models.CacheEntry
	if err := json.Unmarshal([]byte(entryJSON), &entry); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	entry.TimestampMs = timestampMs

	return &entry, nil
}

// Set stores an entry for a URL, replacing any existing one.
func (r *SQLiteCacheRepository) Set(ctx context.Context, pageURL string, entry *models.CacheEntry) error {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO lookup_cache (cache_key, listing_title, entry_json, timestamp_ms)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			listing_title = excluded.listing_title,
			entry_json = excluded.entry_json,
			timestamp_ms = excluded.timestamp_ms
	`, cacheKey(pageURL), entry.ListingTitle, string(entryJSON), entry.TimestampMs)

	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	return nil
}

// Delete removes the entry for a URL.
func (r *SQLiteCacheRepository) Delete(ctx context.Context, pageURL string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM lookup_cache WHERE cache_key = ?
	`, cacheKey(pageURL))

	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}

	return nil
}

// PurgeExpired deletes entries older than ttl.
func (r *SQLiteCacheRepository) PurgeExpired(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := time.Now().Add(-ttl).UnixMilli()

	result, err := r.db.ExecContext(ctx, `
		DELETE FROM lookup_cache WHERE timestamp_ms < ?
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired entries: %w", err)
	}

	return result.RowsAffected()
}

// Count returns the number of stored entries.
func (r *SQLiteCacheRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lookup_cache`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return count, nil
}
