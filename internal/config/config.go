// Package config loads coderag's configuration from .coderag/config.yml
// with CODERAG_* environment variable overrides, following the same
// layered precedence (defaults -> file -> env) the rest of the stack
// uses for per-call option resolution.
package config

// Config is the complete on-disk configuration for one repository.
type Config struct {
	Index     IndexConfig     `yaml:"index" mapstructure:"index"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Watch     WatchConfig     `yaml:"watch" mapstructure:"watch"`
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval" mapstructure:"retrieval"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
}

// IndexConfig controls what the engine considers a file worth indexing.
type IndexConfig struct {
	MaxFileSizeBytes int64    `yaml:"max_file_size_bytes" mapstructure:"max_file_size_bytes"`
	IgnorePatterns   []string `yaml:"ignore" mapstructure:"ignore"`
	FastMtimeCheck   bool     `yaml:"fast_mtime_check" mapstructure:"fast_mtime_check"`
	BatchSize        int      `yaml:"batch_size" mapstructure:"batch_size"`
	Workers          int      `yaml:"workers" mapstructure:"workers"`
	MaxChunkSize     int      `yaml:"max_chunk_size" mapstructure:"max_chunk_size"`
	MinChunkSize     int      `yaml:"min_chunk_size" mapstructure:"min_chunk_size"`
}

// StoreConfig locates the persistent SQLite database.
type StoreConfig struct {
	// Path overrides the derived default (a hash of the repo root under
	// the user's cache directory). Empty means derive it.
	Path string `yaml:"path" mapstructure:"path"`

	// BranchScoped keys the derived path by the current git branch in
	// addition to the repo root, so switching branches in one worktree
	// doesn't force a full reindex of the other branch's chunks.
	BranchScoped bool `yaml:"branch_scoped" mapstructure:"branch_scoped"`
}

// WatchConfig controls the file-watcher's debounce behavior.
type WatchConfig struct {
	DebounceMillis int `yaml:"debounce_ms" mapstructure:"debounce_ms"`
	QueueSize      int `yaml:"queue_size" mapstructure:"queue_size"`
}

// EmbeddingConfig selects the embedding provider for the vector side of
// retrieval. The OpenAI-compatible provider reads its credentials from
// OPENAI_API_KEY/OPENAI_BASE_URL directly, not from this struct, so secrets
// never round-trip through a config file.
type EmbeddingConfig struct {
	// Provider is "openai", "mock", or "" (disabled: lexical-only retrieval).
	Provider         string `yaml:"provider" mapstructure:"provider"`
	MockDimensions   int    `yaml:"mock_dimensions" mapstructure:"mock_dimensions"`
}

// RetrievalConfig holds the defaults a query can still override per call.
type RetrievalConfig struct {
	Limit            int     `yaml:"limit" mapstructure:"limit"`
	ContextLines     int     `yaml:"context_lines" mapstructure:"context_lines"`
	MaxSnippetChars  int     `yaml:"max_snippet_chars" mapstructure:"max_snippet_chars"`
	MaxSnippetBlocks int     `yaml:"max_snippet_blocks" mapstructure:"max_snippet_blocks"`
	VectorWeight     float64 `yaml:"vector_weight" mapstructure:"vector_weight"`
}

// CacheConfig sizes the query result cache (C11).
type CacheConfig struct {
	Capacity   int `yaml:"capacity" mapstructure:"capacity"`
	TTLSeconds int `yaml:"ttl_seconds" mapstructure:"ttl_seconds"`
}

// Default returns a configuration with sensible defaults, matching the
// defaults §4 of the design names for each component.
func Default() *Config {
	return &Config{
		Index: IndexConfig{
			MaxFileSizeBytes: 1 << 20, // 1MiB
			IgnorePatterns: []string{
				"node_modules/**",
				"vendor/**",
				".git/**",
				"dist/**",
				"build/**",
				"target/**",
				"__pycache__/**",
			},
			FastMtimeCheck: true,
			BatchSize:      50,
			Workers:        4,
			MaxChunkSize:   1000,
			MinChunkSize:   100,
		},
		Store: StoreConfig{
			BranchScoped: false,
		},
		Watch: WatchConfig{
			DebounceMillis: 500,
			QueueSize:      16,
		},
		Embedding: EmbeddingConfig{
			Provider:       "mock",
			MockDimensions: 384,
		},
		Retrieval: RetrievalConfig{
			Limit:            10,
			ContextLines:     3,
			MaxSnippetChars:  2000,
			MaxSnippetBlocks: 4,
			VectorWeight:     0.7,
		},
		Cache: CacheConfig{
			Capacity:   500,
			TTLSeconds: 300,
		},
	}
}
