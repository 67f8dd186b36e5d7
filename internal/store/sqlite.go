package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a Store backed by a SQLite database, for deployments that
// want the chart cache to survive restarts. Expiry is enforced on read and
// by a periodic sweep.
type SQLiteStore struct {
	db       *sql.DB
	ttl      time.Duration
	stopChan chan struct{}
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cache (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cache_expires ON cache(expires_at);
`

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string, ttl time.Duration) (*SQLiteStore, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store at %s: %w", path, err)
	}
	// modernc.org/sqlite is not safe for concurrent writers on one connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}

	s := &SQLiteStore{db: db, ttl: ttl, stopChan: make(chan struct{})}
	go s.sweep()
	return s, nil
}

// Get retrieves a value, honoring expiry.
func (s *SQLiteStore) Get(key string) (string, bool) {
	var value string
	err := s.db.QueryRow(
		"SELECT value FROM cache WHERE key = ? AND expires_at > ?",
		key, time.Now().Unix(),
	).Scan(&value)
	if err != nil {
		return "", false
	}
	return value, true
}

// Set stores a value with the configured TTL.
func (s *SQLiteStore) Set(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO cache (key, value, expires_at) VALUES (?, ?, ?) "+
			"ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at",
		key, value, time.Now().Add(s.ttl).Unix(),
	)
	if err != nil {
		return fmt.Errorf("sqlite set failed: %w", err)
	}
	return nil
}

// Delete removes a key.
func (s *SQLiteStore) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM cache WHERE key = ?", key); err != nil {
		return fmt.Errorf("sqlite delete failed: %w", err)
	}
	return nil
}

// Len returns the number of unexpired entries.
func (s *SQLiteStore) Len() int {
	var n int
	if err := s.db.QueryRow(
		"SELECT COUNT(*) FROM cache WHERE expires_at > ?", time.Now().Unix(),
	).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Close stops the sweeper and closes the database.
func (s *SQLiteStore) Close() error {
	close(s.stopChan)
	return s.db.Close()
}

// sweep periodically deletes expired rows.
func (s *SQLiteStore) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			_, _ = s.db.Exec("DELETE FROM cache WHERE expires_at <= ?", time.Now().Unix())
		}
	}
}
