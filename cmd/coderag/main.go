// Command coderag opens the persistent index for a repository, runs
// pending migrations, starts background indexing, and watches the tree
// for incremental updates. It is a thin shell around internal/engine,
// internal/watch, internal/retrieve, internal/status, and
// internal/querycache: flag parsing and wiring, nothing more. It runs no
// request/response loop; a richer collaborator shell (MCP server, HTTP
// API) is expected to wire against the same packages directly.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/matperez/coderag/internal/config"
	"github.com/matperez/coderag/internal/embedprovider"
	"github.com/matperez/coderag/internal/engine"
	"github.com/matperez/coderag/internal/querycache"
	"github.com/matperez/coderag/internal/retrieve"
	"github.com/matperez/coderag/internal/status"
	"github.com/matperez/coderag/internal/store"
	"github.com/matperez/coderag/internal/vectorstore"
	"github.com/matperez/coderag/internal/watch"
)

func main() {
	root := flag.String("root", "", "repository root to index (default: current working directory)")
	maxSize := flag.Int64("max-size", 1<<20, "per-file size cap in bytes")
	noAutoIndex := flag.Bool("no-auto-index", false, "do not start indexing on startup")
	quiet := flag.Bool("quiet", false, "suppress the progress bar")
	flag.Parse()

	if err := run(*root, *maxSize, *noAutoIndex, *quiet); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func run(root string, maxSize int64, noAutoIndex, quiet bool) error {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("coderag: resolve working directory: %w", err)
		}
		root = wd
	}

	logger := log.New(os.Stderr, "coderag: ", log.LstdFlags)

	cfg, err := config.LoadConfigFromDir(root)
	if err != nil {
		return fmt.Errorf("coderag: load config: %w", err)
	}
	cfg.Index.MaxFileSizeBytes = maxSize

	dbPath, err := config.ResolveStorePath(cfg, root)
	if err != nil {
		return fmt.Errorf("coderag: resolve store path: %w", err)
	}

	s, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("coderag: open store: %w", err)
	}
	defer s.Close()

	cache, err := querycache.New(cfg.Cache.Capacity, cfg.CacheTTL())
	if err != nil {
		return fmt.Errorf("coderag: build query cache: %w", err)
	}
	defer cache.Close()

	embedder, vectors, vectorAvailable := buildVectorStack(cfg, logger)

	tracker := status.New()
	bar := status.NewBarReporter(tracker, quiet)

	engCfg := engine.Config{
		Root:           root,
		MaxFileSize:    cfg.Index.MaxFileSizeBytes,
		IgnorePatterns: cfg.Index.IgnorePatterns,
		FastMtime:      cfg.Index.FastMtimeCheck,
		BatchSize:      cfg.Index.BatchSize,
		Workers:        cfg.Index.Workers,
		ChunkOptions:   cfg.ChunkOptions(),
		Reporter:       bar,
		Invalidator:    cache,
		Logger:         logger,
	}
	// Only set these when a vector stack was actually built: a typed-nil
	// *vectorstore.Store assigned into the EmbeddingWriter interface field
	// would compare non-nil, tripping the engine's nil check.
	if vectorAvailable {
		engCfg.Embedder = embedder
		engCfg.VectorStore = vectors
	}

	eng, err := engine.New(engCfg, s)
	if err != nil {
		return fmt.Errorf("coderag: construct engine: %w", err)
	}

	var vectorRetriever *retrieve.VectorRetriever
	if vectorAvailable {
		vectorRetriever = retrieve.NewVectorRetriever(embedder, vectors, logger)
	}
	retrievalEngine := retrieve.NewEngine(s, vectorRetriever, s)
	_ = retrievalEngine // wired for a collaborator shell to call Search against; unused by this CLI's own loop

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Println("shutting down")
		cancel()
	}()

	if !noAutoIndex {
		if err := eng.Index(ctx, nil); err != nil && ctx.Err() == nil {
			return fmt.Errorf("coderag: initial index: %w", err)
		}
	}

	w, err := watch.New(watch.Options{
		Root:     root,
		Debounce: cfg.WatchDebounce(),
		Queue:    cfg.Watch.QueueSize,
		Logger:   logger,
	}, eng)
	if err != nil {
		return fmt.Errorf("coderag: start watcher: %w", err)
	}

	return w.Run(ctx)
}

// buildVectorStack wires the embedding provider and vector store together
// when the config asks for one. The second return value satisfies both
// engine.EmbeddingWriter and retrieve.VectorStore, so the caller can use
// it for both without a second construction.
func buildVectorStack(cfg *config.Config, logger *log.Logger) (retrieve.EmbeddingProvider, *vectorstore.Store, bool) {
	switch cfg.Embedding.Provider {
	case "openai":
		primary, ok := embedprovider.NewOpenAICompatibleFromEnv()
		if !ok {
			logger.Println("embedding.provider=openai but OPENAI_API_KEY is unset; falling back to mock")
			return newMockVectorStack(cfg.Embedding.MockDimensions, logger)
		}
		fallback := embedprovider.NewFallback(primary, logger)
		vs, err := vectorstore.New()
		if err != nil {
			logger.Printf("vector store unavailable, disabling vector retrieval: %v", err)
			return nil, nil, false
		}
		return fallback, vs, true
	case "mock":
		return newMockVectorStack(cfg.Embedding.MockDimensions, logger)
	default:
		return nil, nil, false
	}
}

func newMockVectorStack(dimensions int, logger *log.Logger) (retrieve.EmbeddingProvider, *vectorstore.Store, bool) {
	vs, err := vectorstore.New()
	if err != nil {
		logger.Printf("vector store unavailable, disabling vector retrieval: %v", err)
		return nil, nil, false
	}
	return embedprovider.NewMock(dimensions), vs, true
}
