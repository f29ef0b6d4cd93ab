// Package embedprovider supplies retrieve.EmbeddingProvider
// implementations: a deterministic mock used as the indexing fallback
// described in §4.8 (so a provider outage never stalls indexing), and a
// thin client for an OpenAI-compatible embeddings endpoint. Grounded in
// the teacher's internal/embed.MockProvider and Provider interface,
// narrowed to the query/passage Embed shape this design's
// retrieve.EmbeddingProvider needs.
package embedprovider

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
)

// Mock generates deterministic embeddings from a content hash, exactly
// the way the teacher's MockProvider does. Used both in tests and as the
// fallback whenever a call to the real provider fails.
type Mock struct {
	dimensions int
}

// NewMock creates a mock provider with the given embedding dimensionality.
// dimensions <= 0 resolves to 384, the teacher's default.
func NewMock(dimensions int) *Mock {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &Mock{dimensions: dimensions}
}

func (m *Mock) Embed(_ context.Context, texts []string, _ string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = deterministicEmbedding(text, m.dimensions)
	}
	return out, nil
}

func (m *Mock) Dimensions() int { return m.dimensions }

func deterministicEmbedding(text string, dimensions int) []float32 {
	hash := sha256.Sum256([]byte(text))
	embedding := make([]float32, dimensions)
	for j := 0; j < dimensions; j++ {
		offset := (j * 4) % len(hash)
		val := binary.BigEndian.Uint32(hash[offset : offset+4])
		embedding[j] = (float32(val)/float32(1<<32))*2.0 - 1.0
	}
	return embedding
}
