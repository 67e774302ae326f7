package search

import (
	"context"
	"errors"
	"testing"

	"github.com/civicgrid/permitsearch/internal/db"
	"github.com/civicgrid/permitsearch/internal/domain"
	"github.com/civicgrid/permitsearch/internal/domain/search/predicate"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchKNNFn func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	lastQuery   *db.KNNQuery
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	m.lastQuery = q
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo() (*Repo, *mockStore) {
	ms := &mockStore{}
	repo := New(ms, "permits:idx", "permits:", []string{"city", "status"})
	return repo, ms
}

func TestSearch_BuildsQuery(t *testing.T) {
	repo, ms := newTestRepo()
	pred := predicate.FromMap(map[string]string{"city": "Austin"})

	_, err := repo.Search(context.Background(), []float32{0.1, 0.2}, pred, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	q := ms.lastQuery
	if q.IndexName != "permits:idx" {
		t.Errorf("IndexName = %q", q.IndexName)
	}
	if q.K != 3 {
		t.Errorf("K = %d, expected 3", q.K)
	}
	if len(q.ReturnFields) != 3 || q.ReturnFields[0] != "__content" {
		t.Errorf("ReturnFields = %v", q.ReturnFields)
	}
	if q.Predicate.IsEmpty() {
		t.Error("expected predicate to be forwarded")
	}
}

func TestSearch_ShapesResults(t *testing.T) {
	repo, ms := newTestRepo()
	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return &db.SearchResult{
			Total: 2,
			Entries: []db.SearchEntry{
				{
					Key:   "permits:p-1",
					Score: 0.123456,
					Fields: map[string]string{
						"__content": "electrical panel upgrade",
						"city":      "Austin",
						"__debug":   "x",
					},
				},
				{
					Key:    "permits:p-2",
					Score:  0.98765,
					Fields: map[string]string{"__content": "water heater replacement"},
				},
			},
		}, nil
	}

	items, err := repo.Search(context.Background(), []float32{1}, predicate.Predicate{}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	first := items[0]
	if first.ID() != "p-1" {
		t.Errorf("ID() = %q, expected key prefix stripped", first.ID())
	}
	if first.Document() != "electrical panel upgrade" {
		t.Errorf("Document() = %q", first.Document())
	}
	if first.Score() != 0.1235 {
		t.Errorf("Score() = %v, expected rounded 0.1235", first.Score())
	}
	if first.Metadata()["city"] != "Austin" {
		t.Errorf("Metadata() = %v", first.Metadata())
	}
	if _, ok := first.Metadata()["__debug"]; ok {
		t.Error("internal fields must not leak into metadata")
	}
}

func TestSearch_WrapsIndexError(t *testing.T) {
	repo, ms := newTestRepo()
	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return nil, &db.Error{Op: db.OpSearch, Err: errors.New("connection refused")}
	}

	_, err := repo.Search(context.Background(), []float32{1}, predicate.Predicate{}, 5)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Errorf("error %v does not wrap ErrIndexUnavailable", err)
	}
}

func TestSearch_EmptyResult(t *testing.T) {
	repo, _ := newTestRepo()

	items, err := repo.Search(context.Background(), []float32{1}, predicate.Predicate{}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no items, got %d", len(items))
	}
}
