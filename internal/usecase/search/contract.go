package search

import (
	"context"

	"github.com/civicgrid/permitsearch/internal/domain"
	"github.com/civicgrid/permitsearch/internal/domain/search/predicate"
	"github.com/civicgrid/permitsearch/internal/domain/search/result"
)

// Repository defines the index contract for search operations.
type Repository interface {
	Search(ctx context.Context, vector []float32, pred predicate.Predicate, topK int) ([]result.Item, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// TransactionLog records completed searches, best-effort.
type TransactionLog interface {
	Record(query string, filters map[string]string, results []result.Item)
}
