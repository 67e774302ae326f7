// Package db defines the driver contract for the vector index backend.
package db

import (
	"context"
	"time"

	"github.com/civicgrid/permitsearch/internal/domain/search/predicate"
)

// Store is the backend contract. Implementations must be safe for
// concurrent use: the service issues searches from every request goroutine.
type Store interface {
	// Ping checks connectivity.
	Ping(ctx context.Context) error
	// Close releases the underlying client.
	Close()
	// WaitForReady polls Ping until the store responds or timeout expires.
	WaitForReady(ctx context.Context, timeout time.Duration) error

	// EnsureIndex creates the vector index if it does not exist yet.
	EnsureIndex(ctx context.Context, def *IndexDefinition) error
	// UpsertDocument writes a document as a flat field map under key.
	UpsertDocument(ctx context.Context, key string, fields map[string]string) error
	// SearchKNN runs a K-nearest-neighbor query with optional metadata pre-filter.
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)

	// Get retrieves a cache value by key. Returns ErrKeyNotFound for misses.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores a cache value. ttl <= 0 means no expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// IndexDefinition describes the single vector index this service queries.
type IndexDefinition struct {
	Name      string
	KeyPrefix string
	// MetadataFields are the metadata keys the index can pre-filter on.
	MetadataFields  []string
	VectorDim       int
	HNSWM           int
	HNSWEFConstruct int
}

// KNNQuery is a K-nearest-neighbor search against an index.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	Predicate    predicate.Predicate
	ReturnFields []string
}

// SearchResult is the raw backend response for a search.
type SearchResult struct {
	Total   int64
	Entries []SearchEntry
}

// SearchEntry is a single raw hit. Score is the backend's cosine
// distance for the entry; Fields are the stored flat fields.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
