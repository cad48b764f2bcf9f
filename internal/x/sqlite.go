package x

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const cacheSchema = `
CREATE TABLE IF NOT EXISTS cache (
    key        TEXT PRIMARY KEY,
    content    TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// SQLiteCache keeps entries in a single database file. Entries older than
// ttl are treated as missing; a zero ttl keeps them forever.
type SQLiteCache struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSQLiteCache opens or creates the database at path. ":memory:" works
// for throwaway caches.
func NewSQLiteCache(path string, ttl time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	// one connection so ":memory:" databases are shared
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	return &SQLiteCache{db: db, ttl: ttl}, nil
}

func (c *SQLiteCache) Get(key string) (string, bool) {
	var cutoff int64
	if c.ttl > 0 {
		cutoff = time.Now().Add(-c.ttl).Unix()
	}

	var content string
	err := c.db.QueryRow("SELECT content FROM cache WHERE key = ? AND updated_at >= ?", key, cutoff).Scan(&content)
	if err != nil {
		return "", false
	}
	return content, true
}

func (c *SQLiteCache) Set(key string, content string) error {
	_, err := c.db.Exec(
		`INSERT INTO cache (key, content, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`,
		key, content, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
