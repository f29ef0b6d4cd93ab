package retrieve

import (
	"context"
	"log"
	"sync"
	"time"
)

// EmbeddingProvider turns text into vectors. A real implementation calls
// out to an OpenAI-compatible HTTP endpoint; tests and indexing fallback
// use a deterministic mock. Grounded in the teacher's embed.Provider /
// MCP EmbeddingProvider interface shape.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string, mode string) ([][]float32, error)
	Dimensions() int
}

// VectorStore is the nearest-neighbor lookup surface the vector retriever
// needs, implemented over chromem-go's in-memory collection (see
// internal/vectorstore).
type VectorStore interface {
	Query(ctx context.Context, embedding []float32, topK int) ([]VectorMatch, error)
}

// VectorMatch is one nearest-neighbor hit.
type VectorMatch struct {
	ChunkID    int64
	Similarity float64
}

const (
	vectorOversample = 3
	embedTimeout     = 10 * time.Second
	failureCooldown  = 30 * time.Second
	failureThreshold = 3
)

// VectorRetriever embeds the query and asks the vector store for nearest
// chunks. It tracks consecutive embedding failures and, once the
// threshold is crossed, returns an empty result (degrading the caller's
// fused method to "lexical") for a cooldown window instead of retrying
// every query against a provider that is clearly down.
type VectorRetriever struct {
	provider EmbeddingProvider
	store    VectorStore
	logger   *log.Logger

	mu           sync.Mutex
	failures     int
	cooldownTill time.Time
}

func NewVectorRetriever(provider EmbeddingProvider, store VectorStore, logger *log.Logger) *VectorRetriever {
	if logger == nil {
		logger = log.Default()
	}
	return &VectorRetriever{provider: provider, store: store, logger: logger}
}

// Available reports whether a provider and store are configured at all;
// it does not reflect the cooldown state, which is transient.
func (r *VectorRetriever) Available() bool {
	return r != nil && r.provider != nil && r.store != nil
}

// Search embeds query and returns up to limit*oversample nearest chunks.
// Any failure, including a tripped cooldown, yields an empty result (the
// method returns no error): per the design, the vector side degrades to
// empty rather than failing the whole query.
func (r *VectorRetriever) Search(ctx context.Context, query string, limit int) []VectorMatch {
	if !r.Available() {
		return nil
	}

	r.mu.Lock()
	if time.Now().Before(r.cooldownTill) {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	embedCtx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	embeddings, err := r.provider.Embed(embedCtx, []string{query}, "query")
	if err != nil || len(embeddings) == 0 {
		r.recordFailure(err)
		return nil
	}

	matches, err := r.store.Query(ctx, embeddings[0], limit*vectorOversample)
	if err != nil {
		r.recordFailure(err)
		return nil
	}

	r.recordSuccess()
	return matches
}

func (r *VectorRetriever) recordFailure(err error) {
	r.logger.Printf("retrieve: vector search failed: %v", err)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures++
	if r.failures >= failureThreshold {
		r.cooldownTill = time.Now().Add(failureCooldown)
	}
}

func (r *VectorRetriever) recordSuccess() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = 0
	r.cooldownTill = time.Time{}
}
