// Package sqlite implements db.Store on a single local database file
// via modernc.org/sqlite. Vectors are stored as BLOBs and searched by
// exhaustive cosine scan, which keeps the whole index on local disk
// with no external service to run.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/civicgrid/permitsearch/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Config holds parameters for a sqlite store.
type Config struct {
	// Path is the database file location.
	Path string
}

// Store implements db.Store on a local sqlite file.
type Store struct {
	conn *sql.DB
}

// NewStore opens (or creates) the database file.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.Path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Path, err)
	}

	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY churn under concurrent request load.
	conn.SetMaxOpenConns(1)

	return &Store{conn: conn}, nil
}

// Ping checks the database file is readable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close releases the connection.
func (s *Store) Close() {
	_ = s.conn.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// EnsureIndex creates the document and cache tables. HNSW parameters in
// the definition are ignored: this backend scans exhaustively.
func (s *Store) EnsureIndex(ctx context.Context, def *db.IndexDefinition) error {
	if def.VectorDim <= 0 {
		return fmt.Errorf("vector dimension must be positive")
	}

	const schema = `
CREATE TABLE IF NOT EXISTS documents (
	key      TEXT PRIMARY KEY,
	content  TEXT NOT NULL,
	metadata TEXT NOT NULL DEFAULT '{}',
	vector   BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	expires_at INTEGER
);`

	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// UpsertDocument writes a document row. The "__content" and "__vector"
// fields are stored in their own columns; the rest become metadata JSON.
func (s *Store) UpsertDocument(ctx context.Context, key string, fields map[string]string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	content := fields["__content"]
	vector := []byte(fields["__vector"])
	if len(vector) == 0 {
		return fmt.Errorf("__vector field is required")
	}

	metadata := make(map[string]string, len(fields))
	for k, v := range fields {
		if k == "__content" || k == "__vector" {
			continue
		}
		metadata[k] = v
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	const stmt = `
INSERT INTO documents (key, content, metadata, vector) VALUES (?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET content=excluded.content, metadata=excluded.metadata, vector=excluded.vector`

	if _, err := s.conn.ExecContext(ctx, stmt, key, content, string(metaJSON), vector); err != nil {
		return &db.Error{Op: db.OpUpsert, Err: err}
	}
	return nil
}

// Get retrieves a cache value by key, honoring expiration.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	const stmt = `SELECT value, expires_at FROM kv WHERE key = ?`

	var value []byte
	var expiresAt sql.NullInt64
	err := s.conn.QueryRowContext(ctx, stmt, key).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}

	if expiresAt.Valid && time.Now().Unix() >= expiresAt.Int64 {
		return nil, db.ErrKeyNotFound
	}
	return value, nil
}

// Set stores a cache value. ttl <= 0 means no expiration.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt any
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).Unix()
	}

	const stmt = `
INSERT INTO kv (key, value, expires_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, expires_at=excluded.expires_at`

	if _, err := s.conn.ExecContext(ctx, stmt, key, value, expiresAt); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}
