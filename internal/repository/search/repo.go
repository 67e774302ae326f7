// Package search translates between the db search layer and domain results.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/civicgrid/permitsearch/internal/db"
	"github.com/civicgrid/permitsearch/internal/domain"
	"github.com/civicgrid/permitsearch/internal/domain/search/predicate"
	"github.com/civicgrid/permitsearch/internal/domain/search/result"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo queries the single permit index.
type Repo struct {
	store          store
	indexName      string
	keyPrefix      string
	metadataFields []string
}

// New creates a search repository bound to one index.
func New(s store, indexName, keyPrefix string, metadataFields []string) *Repo {
	return &Repo{
		store:          s,
		indexName:      indexName,
		keyPrefix:      keyPrefix,
		metadataFields: metadataFields,
	}
}

// Search runs a KNN query and shapes the raw entries into domain
// results. Index order is preserved; the only score transformation is
// the 4-decimal rounding applied by result.New.
func (r *Repo) Search(
	ctx context.Context, vector []float32, pred predicate.Predicate, topK int,
) ([]result.Item, error) {
	q := &db.KNNQuery{
		IndexName:    r.indexName,
		Vector:       vector,
		K:            topK,
		Predicate:    pred,
		ReturnFields: append([]string{"__content"}, r.metadataFields...),
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w: %w", r.indexName, domain.ErrIndexUnavailable, err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	items := make([]result.Item, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		items = append(items, r.parseEntry(entry))
	}
	return items, nil
}

// parseEntry splits an entry's flat fields into document text and metadata.
func (r *Repo) parseEntry(entry db.SearchEntry) result.Item {
	docID := strings.TrimPrefix(entry.Key, r.keyPrefix)

	var content string
	metadata := make(map[string]string)
	for k, v := range entry.Fields {
		switch {
		case k == "__content":
			content = v
		case strings.HasPrefix(k, "__"):
			// internal field, not metadata
		default:
			metadata[k] = v
		}
	}

	return result.New(docID, content, metadata, entry.Score)
}
