// Package querylog writes the per-search transaction log: one
// timestamped line per search, appended to a local file, never read
// back by the service.
package querylog

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/civicgrid/permitsearch/internal/domain/search/result"
)

// Sink is an append-only search transaction log. Writes are
// best-effort: a failing sink never fails a search.
type Sink struct {
	logger *zap.Logger
	file   *os.File
}

// NewSink opens (or creates) the log file in append mode.
func NewSink(path string) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open query log %s: %w", path, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), zapcore.InfoLevel)
	return &Sink{logger: zap.New(core), file: f}, nil
}

// NewNop returns a sink that discards everything.
func NewNop() *Sink {
	return &Sink{logger: zap.NewNop()}
}

// loggedResult is the raw result shape recorded per transaction.
type loggedResult struct {
	ID       string            `json:"id"`
	Document string            `json:"document"`
	Metadata map[string]string `json:"metadata"`
	Score    float64           `json:"score"`
}

// Record appends one transaction line: the original query, its filter
// map, and the raw result set.
func (s *Sink) Record(query string, filters map[string]string, results []result.Item) {
	logged := make([]loggedResult, len(results))
	for i := range results {
		logged[i] = loggedResult{
			ID:       results[i].ID(),
			Document: results[i].Document(),
			Metadata: results[i].Metadata(),
			Score:    results[i].Score(),
		}
	}

	s.logger.Info("search",
		zap.String("query", query),
		zap.Any("filters", filters),
		zap.Any("results", logged),
	)
}

// Close flushes and closes the underlying file.
func (s *Sink) Close() error {
	_ = s.logger.Sync()
	if s.file == nil {
		return nil
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close query log: %w", err)
	}
	return nil
}
