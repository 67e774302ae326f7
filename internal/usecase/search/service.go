package search

import (
	"context"
	"fmt"
	"time"

	"github.com/civicgrid/permitsearch/internal/domain/search/predicate"
	"github.com/civicgrid/permitsearch/internal/domain/search/request"
	"github.com/civicgrid/permitsearch/internal/domain/search/result"
)

// Default per-call deadlines. Both derive from the request context, so
// a disconnected client cancels the downstream calls too.
const (
	defaultEmbedTimeout = 10 * time.Second
	defaultQueryTimeout = 5 * time.Second
)

// Service orchestrates a search: embed the query, derive the metadata
// predicate, run the KNN query, then log the transaction.
type Service struct {
	repo         Repository
	embed        Embedder
	txlog        TransactionLog
	embedTimeout time.Duration
	queryTimeout time.Duration
}

// New creates a search service. txlog may be nil.
func New(repo Repository, embed Embedder, txlog TransactionLog) *Service {
	return &Service{
		repo:         repo,
		embed:        embed,
		txlog:        txlog,
		embedTimeout: defaultEmbedTimeout,
		queryTimeout: defaultQueryTimeout,
	}
}

// WithTimeouts overrides the per-call deadlines. Zero keeps the default.
func (s *Service) WithTimeouts(embed, query time.Duration) *Service {
	if embed > 0 {
		s.embedTimeout = embed
	}
	if query > 0 {
		s.queryTimeout = query
	}
	return s
}

// Search executes one search transaction and returns results in index
// order, at most req.TopK() items.
func (s *Service) Search(ctx context.Context, req *request.Request) ([]result.Item, error) {
	embedCtx, cancel := context.WithTimeout(ctx, s.embedTimeout)
	defer cancel()

	emb, err := s.embed.Embed(embedCtx, req.Query())
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	pred := predicate.FromMap(req.Filters())

	queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	items, err := s.repo.Search(queryCtx, emb.Embedding, pred, req.TopK())
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	if s.txlog != nil {
		s.txlog.Record(req.Query(), req.Filters(), items)
	}

	return items, nil
}
