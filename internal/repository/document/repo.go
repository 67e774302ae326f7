// Package document writes permit documents into the index. Only the
// corpus loader uses this path; the search service itself never writes.
package document

import (
	"context"
	"fmt"

	"github.com/civicgrid/permitsearch/internal/domain"
)

// store is the consumer interface for document writes (ISP).
type store interface {
	UpsertDocument(ctx context.Context, key string, fields map[string]string) error
}

// Repo persists documents under the index key prefix.
type Repo struct {
	store     store
	keyPrefix string
}

// New creates a document repository.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix}
}

// Upsert writes one document as a flat field hash.
func (r *Repo) Upsert(ctx context.Context, doc *domain.Document) error {
	key := r.keyPrefix + doc.ID()
	if err := r.store.UpsertDocument(ctx, key, buildHashFields(doc)); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}
