package migrations

func init() {
	Register(Migration{
		Timestamp:   "20260301-000000",
		Description: "initial schema: lookup cache and settings",
		Up: []string{
			`CREATE TABLE IF NOT EXISTS lookup_cache (
				cache_key TEXT PRIMARY KEY,
				listing_title TEXT NOT NULL,
				entry_json TEXT NOT NULL,
				timestamp_ms INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_lookup_cache_timestamp ON lookup_cache(timestamp_ms)`,
			`CREATE TABLE IF NOT EXISTS settings (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL,
				encrypted INTEGER NOT NULL DEFAULT 0,
				updated_at TEXT NOT NULL
			)`,
		},
	})
}
