package request

import (
	"strings"
	"testing"
)

func TestNew_Defaults(t *testing.T) {
	r, err := New("electrical permit", nil, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if r.TopK() != DefaultTopK {
		t.Errorf("TopK() = %d, expected default %d", r.TopK(), DefaultTopK)
	}
	if r.Filters() != nil {
		t.Errorf("Filters() = %v, expected nil", r.Filters())
	}
}

func TestNew_RequiresQuery(t *testing.T) {
	for _, q := range []string{"", "   ", "\t\n"} {
		if _, err := New(q, nil, 5); err == nil {
			t.Errorf("New(%q) succeeded, expected error", q)
		}
	}
}

func TestNew_QueryTooLong(t *testing.T) {
	if _, err := New(strings.Repeat("a", MaxQueryLength+1), nil, 5); err == nil {
		t.Error("expected error for oversized query")
	}
}

func TestNew_ClampsTopK(t *testing.T) {
	r, err := New("plumbing", nil, MaxTopK+50)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if r.TopK() != MaxTopK {
		t.Errorf("TopK() = %d, expected clamp to %d", r.TopK(), MaxTopK)
	}
}
