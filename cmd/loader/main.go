// Corpus loader for the permitsearch index. Reads permit records from
// a JSONL file (one {"id", "document", "metadata"} object per line),
// embeds each document, and upserts it into the configured backend.
//
// Usage:
//
//	loader -file corpus.jsonl -workers 4
//
// The index backend and embedding provider come from the same YAML
// config the API server uses (selected via ENV).
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/civicgrid/permitsearch/internal/config"
	"github.com/civicgrid/permitsearch/internal/db"
	dbRedis "github.com/civicgrid/permitsearch/internal/db/redis"
	dbSqlite "github.com/civicgrid/permitsearch/internal/db/sqlite"
	"github.com/civicgrid/permitsearch/internal/domain"
	logpkg "github.com/civicgrid/permitsearch/internal/logger"
	"github.com/civicgrid/permitsearch/internal/metrics"
	documentrepo "github.com/civicgrid/permitsearch/internal/repository/document"
	openaiEmb "github.com/civicgrid/permitsearch/internal/transport/openai"
)

func main() {
	opts := parseFlags()

	ctx, cancel := signal.NotifyContext(
		context.Background(), syscall.SIGTERM, syscall.SIGINT,
	)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		cancel()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	file    string
	workers int
	maxRows int
}

func parseFlags() options {
	opts := options{}
	flag.StringVar(&opts.file, "file", "", "JSONL corpus file (required)")
	flag.IntVar(&opts.workers, "workers", 4, "number of parallel upsert workers")
	flag.IntVar(&opts.maxRows, "max-rows", 0, "max records to load (0=unlimited)")
	flag.Parse()
	return opts
}

// record is one JSONL corpus line.
type record struct {
	ID       string            `json:"id"`
	Document string            `json:"document"`
	Metadata map[string]string `json:"metadata"`
}

func run(ctx context.Context, opts options) error {
	if opts.file == "" {
		return fmt.Errorf("-file is required")
	}

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("store not ready: %w", err)
	}

	if err := store.EnsureIndex(ctx, &db.IndexDefinition{
		Name:            cfg.Index.Name,
		KeyPrefix:       cfg.Index.KeyPrefix,
		MetadataFields:  cfg.Index.MetadataFields,
		VectorDim:       cfg.Embedding.Dimensions,
		HNSWM:           cfg.Index.HNSWM,
		HNSWEFConstruct: cfg.Index.HNSWEFConstruct,
	}); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}

	metrics.RegisterEmbeddingMetrics()

	embedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	repo := documentrepo.New(store, cfg.Index.KeyPrefix)

	loader := &ingester{
		repo:     repo,
		embedder: embedder,
		workers:  opts.workers,
		logger:   logger,
	}

	start := time.Now()
	result, err := loader.Run(ctx, opts.file, opts.maxRows)

	logger.Info("Ingest finished",
		zap.Int64("processed", result.processed),
		zap.Int64("failed", result.failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return err
}

func openStore(cfg config.Config) (db.Store, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		if dir := filepath.Dir(cfg.Database.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		return dbSqlite.NewStore(dbSqlite.Config{Path: cfg.Database.Path})
	case "redis":
		return dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
		})
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// ingester is the worker pool: reader goroutine -> channel -> N workers.
type ingester struct {
	repo     *documentrepo.Repo
	embedder domain.Embedder
	workers  int
	logger   *zap.Logger
}

type ingestResult struct {
	processed int64
	failed    int64
}

// Run streams the JSONL file through the worker pool.
func (ing *ingester) Run(ctx context.Context, path string, maxRows int) (ingestResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ingestResult{}, fmt.Errorf("open corpus %s: %w", path, err)
	}
	defer f.Close()

	records := make(chan record, ing.workers*2)
	var wg sync.WaitGroup
	var processed, failed atomic.Int64

	for i := 0; i < ing.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ing.worker(ctx, records, &processed, &failed)
		}()
	}

	var readErr error
	go func() {
		defer close(records)
		readErr = ing.produce(ctx, f, maxRows, records, &failed)
	}()

	wg.Wait()

	return ingestResult{processed: processed.Load(), failed: failed.Load()}, readErr
}

// produce reads JSONL lines and feeds the worker channel.
func (ing *ingester) produce(
	ctx context.Context,
	f *os.File,
	maxRows int,
	out chan<- record,
	failed *atomic.Int64,
) error {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	sent := 0
	line := 0
	for scanner.Scan() {
		line++
		if maxRows > 0 && sent >= maxRows {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var rec record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			ing.logger.Warn("Skipping malformed line", zap.Int("line", line), zap.Error(err))
			failed.Add(1)
			continue
		}
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- rec:
			sent++
		}
	}
	return scanner.Err()
}

// worker embeds and upserts records from the channel.
func (ing *ingester) worker(
	ctx context.Context,
	records <-chan record,
	processed, failed *atomic.Int64,
) {
	for rec := range records {
		if err := ing.ingestOne(ctx, rec); err != nil {
			ing.logger.Warn("Record failed", zap.String("id", rec.ID), zap.Error(err))
			failed.Add(1)
			continue
		}

		total := processed.Add(1)
		if total%100 == 0 {
			ing.logger.Info("Progress",
				zap.Int64("processed", total),
				zap.Int64("failed", failed.Load()),
			)
		}
	}
}

func (ing *ingester) ingestOne(ctx context.Context, rec record) error {
	emb, err := ing.embedder.Embed(ctx, rec.Document)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}

	doc, err := domain.NewDocument(rec.ID, rec.Document, rec.Metadata, emb.Embedding)
	if err != nil {
		return err
	}

	return ing.repo.Upsert(ctx, &doc)
}
