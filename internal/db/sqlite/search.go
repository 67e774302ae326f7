package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/civicgrid/permitsearch/internal/db"
	"github.com/civicgrid/permitsearch/internal/domain/search/predicate"
)

// SearchKNN runs an exhaustive cosine-distance scan. The metadata
// predicate is pushed down to SQL as json_extract equality clauses;
// scoring and the top-K cut happen in Go.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	stmt, args := buildScanQuery(q.Predicate)

	rows, err := s.conn.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	defer rows.Close()

	var entries []db.SearchEntry
	for rows.Next() {
		var key, content, metaJSON string
		var blob []byte
		if err := rows.Scan(&key, &content, &metaJSON, &blob); err != nil {
			return nil, &db.Error{Op: db.OpSearch, Err: err}
		}

		vec, err := db.DecodeVector(blob)
		if err != nil || len(vec) != len(q.Vector) {
			continue
		}

		var metadata map[string]string
		if err := json.Unmarshal([]byte(metaJSON), &metadata); err != nil {
			continue
		}

		fields := make(map[string]string, len(metadata)+1)
		fields["__content"] = content
		for k, v := range metadata {
			fields[k] = v
		}

		entries = append(entries, db.SearchEntry{
			Key:    key,
			Score:  cosineDistance(q.Vector, vec),
			Fields: fields,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score < entries[j].Score
	})
	if len(entries) > q.K {
		entries = entries[:q.K]
	}

	return &db.SearchResult{Total: int64(len(entries)), Entries: entries}, nil
}

// buildScanQuery renders the predicate as WHERE clauses over the
// metadata JSON column.
func buildScanQuery(pred predicate.Predicate) (string, []any) {
	stmt := `SELECT key, content, metadata, vector FROM documents`
	if pred.IsEmpty() {
		return stmt, nil
	}

	clauses := make([]string, 0, len(pred.Conditions()))
	args := make([]any, 0, len(pred.Conditions())*2)
	for _, cond := range pred.Conditions() {
		clauses = append(clauses, `json_extract(metadata, ?) = ?`)
		args = append(args, jsonPath(cond.Key()), cond.Value())
	}
	return stmt + " WHERE " + strings.Join(clauses, " AND "), args
}

// jsonPath builds a quoted JSON path for a metadata key.
func jsonPath(key string) string {
	escaped := strings.ReplaceAll(key, `"`, `\"`)
	return `$."` + escaped + `"`
}

// cosineDistance returns 1 - cosine similarity, matching the distance
// metric the HNSW backend reports.
func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
