package embedprovider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedIsDeterministic(t *testing.T) {
	m := NewMock(16)
	a, err := m.Embed(context.Background(), []string{"hello world"}, "passage")
	require.NoError(t, err)
	b, err := m.Embed(context.Background(), []string{"hello world"}, "query")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMockEmbedDiffersForDifferentText(t *testing.T) {
	m := NewMock(16)
	a, _ := m.Embed(context.Background(), []string{"alpha"}, "passage")
	b, _ := m.Embed(context.Background(), []string{"beta"}, "passage")
	assert.NotEqual(t, a, b)
}

func TestMockDefaultsDimensions(t *testing.T) {
	m := NewMock(0)
	assert.Equal(t, 384, m.Dimensions())
}

type failingProvider struct{ calls int }

func (f *failingProvider) Embed(_ context.Context, texts []string, _ string) ([][]float32, error) {
	f.calls++
	return nil, errors.New("provider down")
}
func (f *failingProvider) Dimensions() int { return 8 }

func TestFallbackUsesMockOnPrimaryFailure(t *testing.T) {
	fb := NewFallback(&failingProvider{}, nil)
	out, err := fb.Embed(context.Background(), []string{"text"}, "passage")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Len(t, out[0], 8)
}
