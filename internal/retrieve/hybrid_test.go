package retrieve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matperez/coderag/internal/store"
)

type fakeChunkLookup struct {
	byID map[int64]store.Candidate
}

func (f *fakeChunkLookup) GetChunk(_ context.Context, chunkID int64) (store.Candidate, error) {
	return f.byID[chunkID], nil
}

type fakeEmbedProvider struct{ dims int }

func (f *fakeEmbedProvider) Embed(_ context.Context, texts []string, _ string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dims)
	}
	return out, nil
}
func (f *fakeEmbedProvider) Dimensions() int { return f.dims }

type fakeVectorStore struct{ matches []VectorMatch }

func (f *fakeVectorStore) Query(_ context.Context, _ []float32, topK int) ([]VectorMatch, error) {
	if topK > len(f.matches) {
		topK = len(f.matches)
	}
	return f.matches[:topK], nil
}

func TestEngineSearchPureLexicalWhenNoVectorProvider(t *testing.T) {
	src := &fakeLexicalSource{
		all:       []store.Candidate{candidateWithTerm(1, "a.go", "authenticate", 3, 10, 2.0)},
		avgDocLen: "10",
	}
	lookup := &fakeChunkLookup{byID: map[int64]store.Candidate{}}

	e := NewEngine(src, nil, lookup)
	opts := DefaultOptions(false)
	opts.Limit = 10

	hits, err := e.Search(context.Background(), "authenticate", opts)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "lexical", hits[0].Method)
}

func TestEngineSearchPureVectorWhenWeightIsOne(t *testing.T) {
	src := &fakeLexicalSource{avgDocLen: "10"}
	lookup := &fakeChunkLookup{byID: map[int64]store.Candidate{
		5: {ChunkID: 5, FilePath: "v.go", Content: "vector hit", StartLine: 1, EndLine: 2},
	}}
	vr := NewVectorRetriever(&fakeEmbedProvider{dims: 4}, &fakeVectorStore{matches: []VectorMatch{{ChunkID: 5, Similarity: 0.9}}}, nil)

	e := NewEngine(src, vr, lookup)
	opts := DefaultOptions(true)
	opts.VectorWeight = 1.0
	opts.Limit = 10

	hits, err := e.Search(context.Background(), "anything", opts)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "vector", hits[0].Method)
	assert.Equal(t, "v.go", hits[0].Path)
}

func TestEngineSearchHybridBlendsBothSides(t *testing.T) {
	src := &fakeLexicalSource{
		all:       []store.Candidate{candidateWithTerm(1, "a.go", "authenticate", 3, 10, 2.0)},
		avgDocLen: "10",
	}
	lookup := &fakeChunkLookup{}
	vr := NewVectorRetriever(&fakeEmbedProvider{dims: 4}, &fakeVectorStore{matches: []VectorMatch{{ChunkID: 1, Similarity: 0.8}}}, nil)

	e := NewEngine(src, vr, lookup)
	opts := DefaultOptions(true)
	opts.VectorWeight = 0.5
	opts.Limit = 10

	hits, err := e.Search(context.Background(), "authenticate", opts)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "hybrid", hits[0].Method)
	assert.GreaterOrEqual(t, hits[0].Score, 0.0)
	assert.LessOrEqual(t, hits[0].Score, 1.0)
}

func TestEngineSearchFinalScoreBoundedZeroOne(t *testing.T) {
	src := &fakeLexicalSource{
		all: []store.Candidate{
			candidateWithTerm(1, "a.go", "authenticate", 3, 10, 2.0),
			candidateWithTerm(2, "b.go", "authenticate", 9, 10, 2.0),
		},
		avgDocLen: "10",
	}
	lookup := &fakeChunkLookup{}
	vr := NewVectorRetriever(&fakeEmbedProvider{dims: 4}, &fakeVectorStore{matches: []VectorMatch{{ChunkID: 1, Similarity: 0.3}, {ChunkID: 2, Similarity: 0.95}}}, nil)

	e := NewEngine(src, vr, lookup)
	opts := DefaultOptions(true)
	opts.VectorWeight = 0.5
	opts.Limit = 10

	hits, err := e.Search(context.Background(), "authenticate", opts)
	require.NoError(t, err)
	for _, h := range hits {
		assert.GreaterOrEqual(t, h.Score, 0.0)
		assert.LessOrEqual(t, h.Score, 1.0)
	}
}

func TestEngineSearchAppliesPathFilter(t *testing.T) {
	src := &fakeLexicalSource{
		all: []store.Candidate{
			candidateWithTerm(1, "internal/a.go", "authenticate", 3, 10, 2.0),
			candidateWithTerm(2, "vendor/b.go", "authenticate", 3, 10, 2.0),
		},
		avgDocLen: "10",
	}
	lookup := &fakeChunkLookup{}

	e := NewEngine(src, nil, lookup)
	opts := DefaultOptions(false)
	opts.Limit = 10
	opts.ExcludePaths = []string{"vendor/"}

	hits, err := e.Search(context.Background(), "authenticate", opts)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "internal/a.go", hits[0].Path)
}

func TestEngineSearchBuildsSnippetWhenIncludeContent(t *testing.T) {
	src := &fakeLexicalSource{
		all:       []store.Candidate{candidateWithTerm(1, "a.go", "authenticate", 3, 10, 2.0)},
		avgDocLen: "10",
	}
	lookup := &fakeChunkLookup{}

	e := NewEngine(src, nil, lookup)
	opts := DefaultOptions(false)
	opts.Limit = 10
	opts.IncludeContent = true

	hits, err := e.Search(context.Background(), "authenticate", opts)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.NotEmpty(t, hits[0].Snippet)
	assert.Empty(t, hits[0].Content)
}
