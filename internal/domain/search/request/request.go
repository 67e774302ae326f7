package request

import (
	"fmt"
	"strings"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultTopK    = 5
	MaxTopK        = 100
)

// Request is a validated search request.
type Request struct {
	query   string
	filters map[string]string
	topK    int
}

// New validates and normalizes search parameters.
// topK <= 0 means "not supplied" and defaults to 5; values above MaxTopK are clamped.
func New(query string, filters map[string]string, topK int) (Request, error) {
	if strings.TrimSpace(query) == "" {
		return Request{}, fmt.Errorf("query is required")
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}
	return Request{query: query, filters: filters, topK: topK}, nil
}

// Query returns the search query text.
func (r *Request) Query() string { return r.query }

// Filters returns the raw filter map as received, which may be nil.
func (r *Request) Filters() map[string]string { return r.filters }

// TopK returns the number of neighbors to request from the index.
func (r *Request) TopK() int { return r.topK }
