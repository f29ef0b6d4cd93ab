package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/matperez/coderag/internal/chunk"
	"github.com/matperez/coderag/internal/retrieve"
	"github.com/matperez/coderag/internal/store"
)

// Reporter is notified at indexing milestones. It mirrors the shape of
// the teacher's ProgressReporter but is scoped to what this engine's
// batching model actually produces: group-level progress rather than a
// discovery/embedding/writing pipeline split.
type Reporter interface {
	OnStart(totalFiles int)
	OnFileProcessed(path string)
	OnGroupCommitted(processedFiles, totalFiles int)
	OnComplete()
}

// CacheInvalidator is bumped once per completed Index call, so a stale
// query-cache entry produced under a prior epoch can detect it.
type CacheInvalidator interface {
	Invalidate()
}

type noopReporter struct{}

func (noopReporter) OnStart(int)                 {}
func (noopReporter) OnFileProcessed(string)      {}
func (noopReporter) OnGroupCommitted(int, int)   {}
func (noopReporter) OnComplete()                 {}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate() {}

// Config controls engine construction.
type Config struct {
	Root           string
	MaxFileSize    int64
	IgnorePatterns []string
	FastMtime      bool
	BatchSize      int
	Workers        int
	ChunkOptions   chunk.Options
	Reporter       Reporter
	Invalidator    CacheInvalidator
	Logger         *log.Logger

	// Embedder and VectorStore are optional; when both are set, Phase B
	// writes a chunk embedding alongside its term vector (§4.8). Either
	// left nil disables the vector side for this engine entirely.
	Embedder    retrieve.EmbeddingProvider
	VectorStore EmbeddingWriter
}

// EmbeddingWriter is the write side of the vector store Phase B needs:
// persist or drop one chunk's embedding. internal/vectorstore.Store
// implements this.
type EmbeddingWriter interface {
	Upsert(ctx context.Context, chunkID int64, embedding []float32) error
	Delete(ctx context.Context, chunkID int64) error
}

// Engine owns the store handle and drives the diff/apply/recompute
// pipeline described in the design: it is the only writer, and it must
// never block readers.
type Engine struct {
	root         string
	store        *store.Store
	ignore       *IgnoreRules
	maxFileSize  int64
	fastMtime    bool
	batchSize    int
	workers      int
	chunkOptions chunk.Options
	reporter     Reporter
	invalidator  CacheInvalidator
	logger       *log.Logger
	embedder     retrieve.EmbeddingProvider
	vectors      EmbeddingWriter
}

// New constructs an Engine. s must already have its schema and migrations
// applied (see store.Open).
func New(cfg Config, s *store.Store) (*Engine, error) {
	ignore, err := NewIgnoreRules(cfg.IgnorePatterns)
	if err != nil {
		return nil, fmt.Errorf("engine: compile ignore patterns: %w", err)
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}

	reporter := cfg.Reporter
	if reporter == nil {
		reporter = noopReporter{}
	}
	invalidator := cfg.Invalidator
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Engine{
		root:         cfg.Root,
		store:        s,
		ignore:       ignore,
		maxFileSize:  cfg.MaxFileSize,
		fastMtime:    cfg.FastMtime,
		batchSize:    batchSize,
		workers:      workers,
		chunkOptions: cfg.ChunkOptions,
		reporter:     reporter,
		invalidator:  invalidator,
		logger:       logger,
		embedder:     cfg.Embedder,
		vectors:      cfg.VectorStore,
	}, nil
}

func (e *Engine) logf(format string, args ...any) {
	e.logger.Printf(format, args...)
}

// Index runs Phase A (diff), Phase B (apply, batched), and Phase C
// (recompute) once. hint restricts Phase A's filesystem walk to a known
// set of candidate paths (the watcher's debounced event set); an empty
// hint triggers a full filesystem walk.
//
// Cancellation is checked between groups, so no new group starts once
// ctx is cancelled. A group is not one transaction: each file is applied
// in its own transaction, so files of the in-flight group that were
// applied before the cancellation stay committed.
func (e *Engine) Index(ctx context.Context, hint []string) error {
	changes, _, err := detectChanges(ctx, e.root, e.ignore, e.maxFileSize, e.fastMtime, e.store, hint)
	if err != nil {
		return fmt.Errorf("engine: detect changes: %w", err)
	}
	if changes.Empty() {
		return nil
	}

	toProcess := append(append([]string{}, changes.Added...), changes.Changed...)
	total := len(toProcess) + len(changes.Deleted)
	e.reporter.OnStart(total)

	processed := 0
	for _, group := range batchPaths(toProcess, e.batchSize) {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Snapshot the terms a changed file's old chunks carried before
		// applyGroup replaces them; otherwise a term dropped by the new
		// content never gets its document_frequency decremented.
		beforeTerms, err := e.store.TermsByFiles(ctx, group)
		if err != nil {
			return fmt.Errorf("engine: terms by files before apply: %w", err)
		}

		prepared, err := e.prepareFiles(ctx, group)
		if err != nil {
			return fmt.Errorf("engine: prepare group: %w", err)
		}

		touched, err := e.applyGroup(ctx, prepared, nil)
		if err != nil {
			return fmt.Errorf("engine: apply group: %w", err)
		}
		afterTerms, err := e.store.TermsByFiles(ctx, touched)
		if err != nil {
			return fmt.Errorf("engine: terms by files after apply: %w", err)
		}
		if err := e.recompute(ctx, mergeTermSets(beforeTerms, afterTerms)); err != nil {
			return fmt.Errorf("engine: recompute after group: %w", err)
		}

		for _, pf := range prepared {
			e.reporter.OnFileProcessed(pf.path)
		}
		processed += len(group)
		e.reporter.OnGroupCommitted(processed, total)
	}

	if len(changes.Deleted) > 0 {
		for _, group := range batchPaths(changes.Deleted, e.batchSize) {
			if err := ctx.Err(); err != nil {
				return err
			}
			// A deleted file owns no chunks once applyGroup removes it, so
			// its terms must be captured beforehand or they silently drop
			// out of the affected set (and document_frequency never
			// decrements for them).
			beforeTerms, err := e.store.TermsByFiles(ctx, group)
			if err != nil {
				return fmt.Errorf("engine: terms by files before delete: %w", err)
			}
			if _, err := e.applyGroup(ctx, nil, group); err != nil {
				return fmt.Errorf("engine: apply deletions: %w", err)
			}
			if err := e.recompute(ctx, beforeTerms); err != nil {
				return fmt.Errorf("engine: recompute after deletions: %w", err)
			}
			for _, p := range group {
				e.reporter.OnFileProcessed(p)
			}
			processed += len(group)
			e.reporter.OnGroupCommitted(processed, total)
		}
	}

	e.invalidator.Invalidate()
	e.reporter.OnComplete()
	return nil
}

func batchPaths(paths []string, size int) [][]string {
	if len(paths) == 0 {
		return nil
	}
	var groups [][]string
	for i := 0; i < len(paths); i += size {
		end := i + size
		if end > len(paths) {
			end = len(paths)
		}
		groups = append(groups, paths[i:end])
	}
	return groups
}
