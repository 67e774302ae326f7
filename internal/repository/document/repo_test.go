package document

import (
	"context"
	"testing"

	"github.com/civicgrid/permitsearch/internal/db"
	"github.com/civicgrid/permitsearch/internal/domain"
)

type mockStore struct {
	lastKey    string
	lastFields map[string]string
	err        error
}

func (m *mockStore) UpsertDocument(_ context.Context, key string, fields map[string]string) error {
	m.lastKey = key
	m.lastFields = fields
	return m.err
}

func TestUpsert(t *testing.T) {
	ms := &mockStore{}
	repo := New(ms, "permits:")

	doc, err := domain.NewDocument("p-1", "electrical panel upgrade",
		map[string]string{"city": "Austin"}, []float32{0.1, 0.2})
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}

	if err := repo.Upsert(context.Background(), &doc); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if ms.lastKey != "permits:p-1" {
		t.Errorf("key = %q, expected permits:p-1", ms.lastKey)
	}
	if ms.lastFields["__content"] != "electrical panel upgrade" {
		t.Errorf("__content = %q", ms.lastFields["__content"])
	}
	if ms.lastFields["city"] != "Austin" {
		t.Errorf("city = %q", ms.lastFields["city"])
	}

	vec, err := db.DecodeVector([]byte(ms.lastFields["__vector"]))
	if err != nil {
		t.Fatalf("DecodeVector: %v", err)
	}
	if len(vec) != 2 || vec[0] != 0.1 {
		t.Errorf("vector roundtrip = %v", vec)
	}
}
