package embedprovider

import (
	"context"
	"log"
)

// Fallback wraps a real provider and falls back to a deterministic mock
// on any error, so an embedding-provider outage during Phase B never
// stalls indexing (§4.8). The mock's dimensionality matches the real
// provider's, since both sides write into the same vector store.
type Fallback struct {
	primary Provider
	mock    *Mock
	logger  *log.Logger
}

// Provider is the narrow interface Fallback wraps; retrieve.EmbeddingProvider
// satisfies it structurally.
type Provider interface {
	Embed(ctx context.Context, texts []string, mode string) ([][]float32, error)
	Dimensions() int
}

func NewFallback(primary Provider, logger *log.Logger) *Fallback {
	if logger == nil {
		logger = log.Default()
	}
	return &Fallback{primary: primary, mock: NewMock(primary.Dimensions()), logger: logger}
}

func (f *Fallback) Embed(ctx context.Context, texts []string, mode string) ([][]float32, error) {
	out, err := f.primary.Embed(ctx, texts, mode)
	if err != nil {
		f.logger.Printf("embedprovider: primary embed failed, using mock fallback: %v", err)
		return f.mock.Embed(ctx, texts, mode)
	}
	return out, nil
}

func (f *Fallback) Dimensions() int { return f.primary.Dimensions() }
