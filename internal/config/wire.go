package config

import (
	"time"

	"github.com/matperez/coderag/internal/chunk"
	"github.com/matperez/coderag/internal/retrieve"
)

// ChunkOptions converts the index-chunking knobs into chunk.Options.
func (c *Config) ChunkOptions() chunk.Options {
	return chunk.Options{
		MaxChunkSize: c.Index.MaxChunkSize,
		MinChunkSize: c.Index.MinChunkSize,
	}
}

// WatchDebounce converts the configured millisecond debounce into a
// time.Duration for watch.Options.
func (c *Config) WatchDebounce() time.Duration {
	return time.Duration(c.Watch.DebounceMillis) * time.Millisecond
}

// CacheTTL converts the configured second-granularity TTL into a
// time.Duration for querycache.New.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// DefaultRetrievalOptions builds the Options a query starts from before a
// caller's per-request overrides are applied.
func (c *Config) DefaultRetrievalOptions(vectorAvailable bool) retrieve.Options {
	opts := retrieve.DefaultOptions(vectorAvailable)
	opts.Limit = c.Retrieval.Limit
	opts.ContextLines = c.Retrieval.ContextLines
	opts.MaxSnippetChars = c.Retrieval.MaxSnippetChars
	opts.MaxSnippetBlocks = c.Retrieval.MaxSnippetBlocks
	if vectorAvailable {
		opts.VectorWeight = c.Retrieval.VectorWeight
	}
	return opts
}
