package sqlite

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/civicgrid/permitsearch/internal/db"
	"github.com/civicgrid/permitsearch/internal/domain/search/predicate"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(Config{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(s.Close)

	def := db.IndexDefinition{Name: "permits:idx", VectorDim: 3}
	if err := s.EnsureIndex(context.Background(), &def); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	return s
}

func upsertDoc(t *testing.T, s *Store, key, content string, meta map[string]string, vec []float32) {
	t.Helper()

	fields := map[string]string{
		"__content": content,
		"__vector":  string(db.EncodeVector(vec)),
	}
	for k, v := range meta {
		fields[k] = v
	}
	if err := s.UpsertDocument(context.Background(), key, fields); err != nil {
		t.Fatalf("UpsertDocument(%s): %v", key, err)
	}
}

func seedPermits(t *testing.T, s *Store) {
	t.Helper()
	upsertDoc(t, s, "permits:1", "electrical panel upgrade",
		map[string]string{"city": "Austin"}, []float32{1, 0, 0})
	upsertDoc(t, s, "permits:2", "plumbing rough-in",
		map[string]string{"city": "Dallas"}, []float32{0, 1, 0})
	upsertDoc(t, s, "permits:3", "electrical service install",
		map[string]string{"city": "Austin"}, []float32{0.9, 0.1, 0})
}

func TestSearchKNN_OrdersByDistance(t *testing.T) {
	s := newTestStore(t)
	seedPermits(t, s)

	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "permits:idx",
		Vector:    []float32{1, 0, 0},
		K:         3,
	})
	if err != nil {
		t.Fatalf("SearchKNN: %v", err)
	}

	if len(res.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(res.Entries))
	}
	if res.Entries[0].Key != "permits:1" {
		t.Errorf("nearest = %s, expected permits:1", res.Entries[0].Key)
	}
	if res.Entries[0].Score > res.Entries[1].Score || res.Entries[1].Score > res.Entries[2].Score {
		t.Errorf("entries not sorted by distance: %v, %v, %v",
			res.Entries[0].Score, res.Entries[1].Score, res.Entries[2].Score)
	}
	if math.Abs(res.Entries[0].Score) > 1e-9 {
		t.Errorf("identical vector distance = %v, expected 0", res.Entries[0].Score)
	}
	if res.Entries[0].Fields["__content"] != "electrical panel upgrade" {
		t.Errorf("unexpected content: %q", res.Entries[0].Fields["__content"])
	}
}

func TestSearchKNN_MetadataFilter(t *testing.T) {
	s := newTestStore(t)
	seedPermits(t, s)

	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "permits:idx",
		Vector:    []float32{0, 1, 0},
		K:         5,
		Predicate: predicate.FromMap(map[string]string{"city": "Austin"}),
	})
	if err != nil {
		t.Fatalf("SearchKNN: %v", err)
	}

	if len(res.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(res.Entries))
	}
	for _, e := range res.Entries {
		if e.Fields["city"] != "Austin" {
			t.Errorf("entry %s has city %q, expected Austin", e.Key, e.Fields["city"])
		}
	}
}

func TestSearchKNN_TopKLimit(t *testing.T) {
	s := newTestStore(t)
	seedPermits(t, s)

	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "permits:idx",
		Vector:    []float32{1, 0, 0},
		K:         2,
	})
	if err != nil {
		t.Fatalf("SearchKNN: %v", err)
	}
	if len(res.Entries) != 2 {
		t.Errorf("expected 2 entries, got %d", len(res.Entries))
	}
}

func TestSearchKNN_SkipsDimensionMismatch(t *testing.T) {
	s := newTestStore(t)
	upsertDoc(t, s, "permits:bad", "wrong dims", nil, []float32{1, 0})
	upsertDoc(t, s, "permits:good", "right dims", nil, []float32{1, 0, 0})

	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "permits:idx",
		Vector:    []float32{1, 0, 0},
		K:         5,
	})
	if err != nil {
		t.Fatalf("SearchKNN: %v", err)
	}
	if len(res.Entries) != 1 || res.Entries[0].Key != "permits:good" {
		t.Errorf("expected only permits:good, got %v", res.Entries)
	}
}

func TestUpsertDocument_Overwrites(t *testing.T) {
	s := newTestStore(t)
	upsertDoc(t, s, "permits:1", "first", nil, []float32{1, 0, 0})
	upsertDoc(t, s, "permits:1", "second", nil, []float32{1, 0, 0})

	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "permits:idx",
		Vector:    []float32{1, 0, 0},
		K:         5,
	})
	if err != nil {
		t.Fatalf("SearchKNN: %v", err)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("expected 1 entry after overwrite, got %d", len(res.Entries))
	}
	if res.Entries[0].Fields["__content"] != "second" {
		t.Errorf("content = %q, expected overwrite", res.Entries[0].Fields["__content"])
	}
}

func TestKV_GetSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "missing"); err != db.ErrKeyNotFound {
		t.Errorf("Get(missing) = %v, expected ErrKeyNotFound", err)
	}

	if err := s.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("Get = %q, expected v", got)
	}
}

func TestKV_Expiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v"), -time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	// ttl <= 0 means no expiration
	if _, err := s.Get(ctx, "k"); err != nil {
		t.Errorf("Get after non-expiring set: %v", err)
	}

	if err := s.Set(ctx, "exp", []byte("v"), time.Nanosecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)
	if _, err := s.Get(ctx, "exp"); err != db.ErrKeyNotFound {
		t.Errorf("Get(expired) = %v, expected ErrKeyNotFound", err)
	}
}
