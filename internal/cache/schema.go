package cache

// SQL schemas for provider cache tables.
// All cache tables use "cache_key" as the primary key column.

// OpenBDCacheSchema defines the schema for the openBD lookup cache
const OpenBDCacheSchema = `
CREATE TABLE IF NOT EXISTS openbd_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_openbd_cached_at ON openbd_cache(cached_at);
`

// GoogleBooksCacheSchema defines the schema for the Google Books lookup cache
const GoogleBooksCacheSchema = `
CREATE TABLE IF NOT EXISTS googlebooks_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_googlebooks_cached_at ON googlebooks_cache(cached_at);
`

var allSchemas = []string{
	OpenBDCacheSchema,
	GoogleBooksCacheSchema,
}

// validTableNames whitelists the provider cache tables
var validTableNames = map[string]bool{
	"openbd_cache":      true,
	"googlebooks_cache": true,
}

// TableNames returns the names of all provider cache tables
func TableNames() []string {
	return []string{"openbd_cache", "googlebooks_cache"}
}
