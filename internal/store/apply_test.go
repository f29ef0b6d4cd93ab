package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFileWritesFileChunksAndTerms(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	file, ids, err := s.ApplyFile(ctx, File{
		Path: "a.go", ContentHash: "h1", Size: 10, Mtime: time.Now(), Language: "go", IndexedAt: time.Now(),
	}, []Chunk{
		{Content: "func A(){}", Type: "function", StartLine: 1, EndLine: 1, TokenCount: 2},
	}, [][]ChunkTerms{
		{{Term: "func", RawFreq: 1, TF: 0.5}, {Term: "a", RawFreq: 1, TF: 0.5}},
	})
	require.NoError(t, err)
	require.NotZero(t, file.ID)
	require.Len(t, ids, 1)

	chunks, err := s.GetChunksByFile(ctx, file.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "func A(){}", chunks[0].Content)

	cands, err := s.SearchCandidates(ctx, []string{"func"}, 10)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, ids[0], cands[0].ChunkID)
}

func TestApplyFileReplacesChunksOnRepeatedCall(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	file, _, err := s.ApplyFile(ctx, File{Path: "a.go", ContentHash: "h1", Mtime: time.Now(), Language: "go"},
		[]Chunk{
			{Content: "one", Type: "function", StartLine: 1, EndLine: 1},
			{Content: "two", Type: "function", StartLine: 2, EndLine: 2},
		}, nil)
	require.NoError(t, err)

	chunks, err := s.GetChunksByFile(ctx, file.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	file2, _, err := s.ApplyFile(ctx, File{Path: "a.go", ContentHash: "h2", Mtime: time.Now(), Language: "go"},
		[]Chunk{{Content: "only one now", Type: "function", StartLine: 1, EndLine: 3}}, nil)
	require.NoError(t, err)
	assert.Equal(t, file.ID, file2.ID)

	chunks, err = s.GetChunksByFile(ctx, file2.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
}

func TestApplyFileKeepsStableIDAcrossUpdate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, _, err := s.ApplyFile(ctx, File{Path: "a.go", ContentHash: "h1", Mtime: time.Now(), Language: "go"}, nil, nil)
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	second, _, err := s.ApplyFile(ctx, File{Path: "a.go", ContentHash: "h2", Mtime: time.Now(), Language: "go"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	files, err := s.GetAllFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "h2", files[0].ContentHash)
}
