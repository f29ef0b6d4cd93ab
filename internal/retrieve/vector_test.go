package retrieve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type failingProvider struct{ err error }

func (f *failingProvider) Embed(_ context.Context, _ []string, _ string) ([][]float32, error) {
	return nil, f.err
}
func (f *failingProvider) Dimensions() int { return 4 }

func TestVectorRetrieverUnavailableWithoutProviderOrStore(t *testing.T) {
	var vr *VectorRetriever
	assert.False(t, vr.Available())

	vr = NewVectorRetriever(nil, nil, nil)
	assert.False(t, vr.Available())
}

func TestVectorRetrieverReturnsEmptyOnEmbedFailure(t *testing.T) {
	vr := NewVectorRetriever(&failingProvider{err: errors.New("boom")}, &fakeVectorStore{}, nil)
	matches := vr.Search(context.Background(), "query", 10)
	assert.Empty(t, matches)
}

func TestVectorRetrieverTripsCooldownAfterRepeatedFailures(t *testing.T) {
	vr := NewVectorRetriever(&failingProvider{err: errors.New("boom")}, &fakeVectorStore{}, nil)
	for i := 0; i < failureThreshold; i++ {
		vr.Search(context.Background(), "query", 10)
	}
	vr.mu.Lock()
	inCooldown := !vr.cooldownTill.IsZero()
	vr.mu.Unlock()
	assert.True(t, inCooldown)
}

func TestVectorRetrieverSucceedsAndResetsFailures(t *testing.T) {
	vr := NewVectorRetriever(&fakeEmbedProvider{dims: 4}, &fakeVectorStore{matches: []VectorMatch{{ChunkID: 1, Similarity: 0.5}}}, nil)
	matches := vr.Search(context.Background(), "query", 10)
	assert.Len(t, matches, 1)

	vr.mu.Lock()
	failures := vr.failures
	vr.mu.Unlock()
	assert.Equal(t, 0, failures)
}
