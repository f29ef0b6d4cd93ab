package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidProvider indicates an unsupported embedding provider.
	ErrInvalidProvider = errors.New("invalid embedding provider")

	// ErrInvalidDimensions indicates invalid embedding dimensions.
	ErrInvalidDimensions = errors.New("invalid embedding dimensions")

	// ErrInvalidChunkSize indicates invalid chunk size configuration.
	ErrInvalidChunkSize = errors.New("invalid chunk size")

	// ErrInvalidWeight indicates a vector weight outside [0,1].
	ErrInvalidWeight = errors.New("invalid vector weight")

	// ErrInvalidCacheSettings indicates invalid cache configuration.
	ErrInvalidCacheSettings = errors.New("invalid cache settings")

	// ErrInvalidWatchSettings indicates invalid watcher configuration.
	ErrInvalidWatchSettings = errors.New("invalid watch settings")
)

// Validate checks that cfg is complete and internally consistent.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateIndex(&cfg.Index); err != nil {
		errs = append(errs, err)
	}
	if err := validateEmbedding(&cfg.Embedding); err != nil {
		errs = append(errs, err)
	}
	if err := validateRetrieval(&cfg.Retrieval); err != nil {
		errs = append(errs, err)
	}
	if err := validateWatch(&cfg.Watch); err != nil {
		errs = append(errs, err)
	}
	if err := validateCache(&cfg.Cache); err != nil {
		errs = append(errs, err)
	}

	return joinErrors(errs)
}

func validateIndex(cfg *IndexConfig) error {
	var errs []error
	if cfg.MaxFileSizeBytes <= 0 {
		errs = append(errs, fmt.Errorf("%w: max_file_size_bytes must be positive, got %d", ErrInvalidChunkSize, cfg.MaxFileSizeBytes))
	}
	if cfg.MaxChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: max_chunk_size must be positive, got %d", ErrInvalidChunkSize, cfg.MaxChunkSize))
	}
	if cfg.MinChunkSize < 0 {
		errs = append(errs, fmt.Errorf("%w: min_chunk_size cannot be negative, got %d", ErrInvalidChunkSize, cfg.MinChunkSize))
	}
	if cfg.MaxChunkSize > 0 && cfg.MinChunkSize >= cfg.MaxChunkSize {
		errs = append(errs, fmt.Errorf("%w: min_chunk_size (%d) must be less than max_chunk_size (%d)", ErrInvalidChunkSize, cfg.MinChunkSize, cfg.MaxChunkSize))
	}
	if cfg.Workers <= 0 {
		errs = append(errs, fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidChunkSize, cfg.Workers))
	}
	if cfg.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: batch_size must be positive, got %d", ErrInvalidChunkSize, cfg.BatchSize))
	}
	return joinErrors(errs)
}

func validateEmbedding(cfg *EmbeddingConfig) error {
	provider := strings.ToLower(cfg.Provider)
	if provider != "" && provider != "mock" && provider != "openai" {
		return fmt.Errorf("%w: must be 'mock', 'openai', or empty, got %q", ErrInvalidProvider, cfg.Provider)
	}
	if provider == "mock" && cfg.MockDimensions <= 0 {
		return fmt.Errorf("%w: mock_dimensions must be positive, got %d", ErrInvalidDimensions, cfg.MockDimensions)
	}
	return nil
}

func validateRetrieval(cfg *RetrievalConfig) error {
	var errs []error
	if cfg.Limit <= 0 {
		errs = append(errs, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidChunkSize, cfg.Limit))
	}
	if cfg.ContextLines < 0 {
		errs = append(errs, fmt.Errorf("%w: context_lines cannot be negative, got %d", ErrInvalidChunkSize, cfg.ContextLines))
	}
	if cfg.MaxSnippetChars <= 0 {
		errs = append(errs, fmt.Errorf("%w: max_snippet_chars must be positive, got %d", ErrInvalidChunkSize, cfg.MaxSnippetChars))
	}
	if cfg.MaxSnippetBlocks <= 0 {
		errs = append(errs, fmt.Errorf("%w: max_snippet_blocks must be positive, got %d", ErrInvalidChunkSize, cfg.MaxSnippetBlocks))
	}
	if cfg.VectorWeight < 0 || cfg.VectorWeight > 1 {
		errs = append(errs, fmt.Errorf("%w: vector_weight must be within [0,1], got %f", ErrInvalidWeight, cfg.VectorWeight))
	}
	return joinErrors(errs)
}

func validateWatch(cfg *WatchConfig) error {
	var errs []error
	if cfg.DebounceMillis < 0 {
		errs = append(errs, fmt.Errorf("%w: debounce_ms cannot be negative, got %d", ErrInvalidWatchSettings, cfg.DebounceMillis))
	}
	if cfg.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidWatchSettings, cfg.QueueSize))
	}
	return joinErrors(errs)
}

func validateCache(cfg *CacheConfig) error {
	var errs []error
	if cfg.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidCacheSettings, cfg.Capacity))
	}
	if cfg.TTLSeconds <= 0 {
		errs = append(errs, fmt.Errorf("%w: ttl_seconds must be positive, got %d", ErrInvalidCacheSettings, cfg.TTLSeconds))
	}
	return joinErrors(errs)
}

// joinErrors combines multiple errors into one with a clear message, or
// returns nil when errs is empty.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}

	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
