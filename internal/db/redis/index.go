package redis

import (
	"context"
	"errors"
	"strconv"

	"github.com/civicgrid/permitsearch/internal/db"
)

// EnsureIndex creates the FT index if it does not exist yet.
// "index already exists" from the server is treated as success.
func (s *Store) EnsureIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := buildCreateArgs(def)
	if err != nil {
		return err
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return nil
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

func buildCreateArgs(def *db.IndexDefinition) ([]string, error) {
	if def.Name == "" {
		return nil, errors.New("index name is required")
	}
	if def.VectorDim <= 0 {
		return nil, errors.New("vector dimension must be positive")
	}

	args := []string{def.Name, "ON", "HASH"}

	if def.KeyPrefix != "" {
		args = append(args, "PREFIX", "1", def.KeyPrefix)
	}

	args = append(args, "SCHEMA")

	for _, f := range def.MetadataFields {
		args = append(args, f, "TAG")
	}

	m := def.HNSWM
	if m <= 0 {
		m = 32
	}
	ef := def.HNSWEFConstruct
	if ef <= 0 {
		ef = 400
	}

	args = append(args,
		"__vector", "VECTOR", "HNSW", "10",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(def.VectorDim),
		"DISTANCE_METRIC", "COSINE",
		"M", strconv.Itoa(m),
		"EF_CONSTRUCTION", strconv.Itoa(ef),
	)

	return args, nil
}
