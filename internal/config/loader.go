package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader loads configuration for one repository root.
type Loader interface {
	// Load reads configuration with priority (highest to lowest):
	// environment variables (CODERAG_*) -> .coderag/config.yml -> defaults.
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a configuration loader rooted at rootDir.
func NewLoader(rootDir string) Loader {
	return &loader{rootDir: rootDir}
}

func (l *loader) Load() (*Config, error) {
	v := viper.New()

	configDir := filepath.Join(l.rootDir, ".coderag")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("CODERAG")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnvKeys(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}

	return cfg, nil
}

func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"index.max_file_size_bytes",
		"index.fast_mtime_check",
		"index.batch_size",
		"index.workers",
		"store.path",
		"store.branch_scoped",
		"watch.debounce_ms",
		"watch.queue_size",
		"embedding.provider",
		"embedding.mock_dimensions",
		"retrieval.limit",
		"retrieval.vector_weight",
		"cache.capacity",
		"cache.ttl_seconds",
	} {
		v.BindEnv(key)
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("index.max_file_size_bytes", d.Index.MaxFileSizeBytes)
	v.SetDefault("index.ignore", d.Index.IgnorePatterns)
	v.SetDefault("index.fast_mtime_check", d.Index.FastMtimeCheck)
	v.SetDefault("index.batch_size", d.Index.BatchSize)
	v.SetDefault("index.workers", d.Index.Workers)
	v.SetDefault("index.max_chunk_size", d.Index.MaxChunkSize)
	v.SetDefault("index.min_chunk_size", d.Index.MinChunkSize)

	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.branch_scoped", d.Store.BranchScoped)

	v.SetDefault("watch.debounce_ms", d.Watch.DebounceMillis)
	v.SetDefault("watch.queue_size", d.Watch.QueueSize)

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.mock_dimensions", d.Embedding.MockDimensions)

	v.SetDefault("retrieval.limit", d.Retrieval.Limit)
	v.SetDefault("retrieval.context_lines", d.Retrieval.ContextLines)
	v.SetDefault("retrieval.max_snippet_chars", d.Retrieval.MaxSnippetChars)
	v.SetDefault("retrieval.max_snippet_blocks", d.Retrieval.MaxSnippetBlocks)
	v.SetDefault("retrieval.vector_weight", d.Retrieval.VectorWeight)

	v.SetDefault("cache.capacity", d.Cache.Capacity)
	v.SetDefault("cache.ttl_seconds", d.Cache.TTLSeconds)
}

// LoadConfigFromDir is a convenience wrapper around NewLoader(rootDir).Load().
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
