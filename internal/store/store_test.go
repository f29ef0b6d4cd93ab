package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesSchemaOnFreshFile(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	version, err := s.GetMetadata(ctx, "schema_version")
	require.NoError(t, err)
	assert.Equal(t, "1", version)
}

func TestUpsertFilesAssignsStableIDAcrossUpdate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.UpsertFiles(ctx, []File{{
		Path: "a.go", ContentHash: "h1", Size: 10, Mtime: time.Now(), Language: "go", IndexedAt: time.Now(),
	}})
	require.NoError(t, err)
	require.Len(t, first, 1)
	id := first[0].ID
	require.NotZero(t, id)

	second, err := s.UpsertFiles(ctx, []File{{
		Path: "a.go", ContentHash: "h2", Size: 20, Mtime: time.Now(), Language: "go", IndexedAt: time.Now(),
	}})
	require.NoError(t, err)
	assert.Equal(t, id, second[0].ID)

	files, err := s.GetAllFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "h2", files[0].ContentHash)
}

func TestDeleteFileCascadesChunksAndTerms(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	files, err := s.UpsertFiles(ctx, []File{{Path: "a.go", ContentHash: "h1", Mtime: time.Now(), Language: "go", IndexedAt: time.Now()}})
	require.NoError(t, err)
	fileID := files[0].ID

	ids, err := s.ReplaceChunks(ctx, fileID, []Chunk{{FileID: fileID, Content: "func A(){}", Type: "function", StartLine: 1, EndLine: 1, TokenCount: 2}})
	require.NoError(t, err)
	require.Len(t, ids, 1)

	require.NoError(t, s.WriteVectors(ctx, []TermVector{{ChunkID: ids[0], Term: "func", RawFreq: 1, TF: 1, TFIDF: 1}}))

	require.NoError(t, s.DeleteFile(ctx, "a.go"))

	chunks, err := s.GetChunksByFile(ctx, fileID)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	cands, err := s.SearchCandidates(ctx, []string{"func"}, 10)
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestReplaceChunksIsAtomicAllOrNothing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	files, err := s.UpsertFiles(ctx, []File{{Path: "a.go", ContentHash: "h1", Mtime: time.Now(), Language: "go", IndexedAt: time.Now()}})
	require.NoError(t, err)
	fileID := files[0].ID

	_, err = s.ReplaceChunks(ctx, fileID, []Chunk{
		{FileID: fileID, Content: "one", Type: "function", StartLine: 1, EndLine: 1},
		{FileID: fileID, Content: "two", Type: "function", StartLine: 2, EndLine: 2},
	})
	require.NoError(t, err)

	chunks, err := s.GetChunksByFile(ctx, fileID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	_, err = s.ReplaceChunks(ctx, fileID, []Chunk{
		{FileID: fileID, Content: "only one now", Type: "function", StartLine: 1, EndLine: 3},
	})
	require.NoError(t, err)

	chunks, err = s.GetChunksByFile(ctx, fileID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
}

func TestRecomputeMagnitudesMatchesEuclideanNorm(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	files, err := s.UpsertFiles(ctx, []File{{Path: "a.go", ContentHash: "h1", Mtime: time.Now(), Language: "go", IndexedAt: time.Now()}})
	require.NoError(t, err)
	fileID := files[0].ID

	ids, err := s.ReplaceChunks(ctx, fileID, []Chunk{{FileID: fileID, Content: "c", Type: "function", StartLine: 1, EndLine: 1}})
	require.NoError(t, err)
	chunkID := ids[0]

	require.NoError(t, s.WriteVectors(ctx, []TermVector{
		{ChunkID: chunkID, Term: "alpha", TFIDF: 3, TF: 1, RawFreq: 1},
		{ChunkID: chunkID, Term: "beta", TFIDF: 4, TF: 1, RawFreq: 1},
	}))

	require.NoError(t, s.RecomputeMagnitudes(ctx, []int64{chunkID}))

	chunks, err := s.GetChunksByFile(ctx, fileID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.InDelta(t, 5.0, chunks[0].Magnitude, 1e-9) // sqrt(3^2+4^2) == 5
}

func TestUpdateAverageDocLength(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	files, err := s.UpsertFiles(ctx, []File{{Path: "a.go", ContentHash: "h1", Mtime: time.Now(), Language: "go", IndexedAt: time.Now()}})
	require.NoError(t, err)
	fileID := files[0].ID

	_, err = s.ReplaceChunks(ctx, fileID, []Chunk{
		{FileID: fileID, Content: "c1", Type: "function", StartLine: 1, EndLine: 1, TokenCount: 10},
		{FileID: fileID, Content: "c2", Type: "function", StartLine: 2, EndLine: 2, TokenCount: 20},
	})
	require.NoError(t, err)

	require.NoError(t, s.UpdateAverageDocLength(ctx))

	avg, err := s.GetMetadata(ctx, "avg_doc_length")
	require.NoError(t, err)
	assert.Equal(t, "15", avg)

	corpus, err := s.GetMetadata(ctx, "corpus_size")
	require.NoError(t, err)
	assert.Equal(t, "2", corpus)
}

func TestTermsByFilesReturnsUnionAcrossFiles(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	files, err := s.UpsertFiles(ctx, []File{
		{Path: "a.go", ContentHash: "h1", Mtime: time.Now(), Language: "go", IndexedAt: time.Now()},
		{Path: "b.go", ContentHash: "h2", Mtime: time.Now(), Language: "go", IndexedAt: time.Now()},
	})
	require.NoError(t, err)

	idsA, err := s.ReplaceChunks(ctx, files[0].ID, []Chunk{{FileID: files[0].ID, Content: "c", Type: "function", StartLine: 1, EndLine: 1}})
	require.NoError(t, err)
	idsB, err := s.ReplaceChunks(ctx, files[1].ID, []Chunk{{FileID: files[1].ID, Content: "c", Type: "function", StartLine: 1, EndLine: 1}})
	require.NoError(t, err)

	require.NoError(t, s.WriteVectors(ctx, []TermVector{
		{ChunkID: idsA[0], Term: "alpha", TF: 1, TFIDF: 1, RawFreq: 1},
		{ChunkID: idsB[0], Term: "beta", TF: 1, TFIDF: 1, RawFreq: 1},
	}))

	terms, err := s.TermsByFiles(ctx, []string{"a.go"})
	require.NoError(t, err)
	assert.True(t, terms["alpha"])
	assert.False(t, terms["beta"])

	both, err := s.TermsByFiles(ctx, []string{"a.go", "b.go"})
	require.NoError(t, err)
	assert.True(t, both["alpha"])
	assert.True(t, both["beta"])
}

func TestWriteVectorsIsIdempotentOnChunkAndTerm(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	files, err := s.UpsertFiles(ctx, []File{{Path: "a.go", ContentHash: "h1", Mtime: time.Now(), Language: "go", IndexedAt: time.Now()}})
	require.NoError(t, err)
	ids, err := s.ReplaceChunks(ctx, files[0].ID, []Chunk{{FileID: files[0].ID, Content: "c", Type: "function", StartLine: 1, EndLine: 1}})
	require.NoError(t, err)

	vec := TermVector{ChunkID: ids[0], Term: "alpha", TF: 0.5, TFIDF: 0.75, RawFreq: 2}
	require.NoError(t, s.WriteVectors(ctx, []TermVector{vec}))
	vec.TFIDF = 0.9
	require.NoError(t, s.WriteVectors(ctx, []TermVector{vec}))

	cands, err := s.SearchCandidates(ctx, []string{"alpha"}, 10)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.InDelta(t, 0.9, cands[0].MatchedTerms["alpha"].TFIDF, 1e-9)
}

func TestSearchCandidatesGroupsMatchedTermsPerChunk(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	files, err := s.UpsertFiles(ctx, []File{{Path: "login.go", ContentHash: "h1", Mtime: time.Now(), Language: "go", IndexedAt: time.Now()}})
	require.NoError(t, err)
	ids, err := s.ReplaceChunks(ctx, files[0].ID, []Chunk{{FileID: files[0].ID, Content: "authenticate user", Type: "function", StartLine: 1, EndLine: 1, TokenCount: 4}})
	require.NoError(t, err)

	require.NoError(t, s.WriteVectors(ctx, []TermVector{
		{ChunkID: ids[0], Term: "authenticate", TF: 0.75, TFIDF: 1.2, RawFreq: 3},
		{ChunkID: ids[0], Term: "user", TF: 0.25, TFIDF: 0.4, RawFreq: 1},
	}))

	cands, err := s.SearchCandidates(ctx, []string{"authenticate", "user"}, 10)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Len(t, cands[0].MatchedTerms, 2)
	assert.Equal(t, "login.go", cands[0].FilePath)
}

func TestMagnitudeWithinTolerance(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	files, err := s.UpsertFiles(ctx, []File{{Path: "a.go", ContentHash: "h1", Mtime: time.Now(), Language: "go", IndexedAt: time.Now()}})
	require.NoError(t, err)
	ids, err := s.ReplaceChunks(ctx, files[0].ID, []Chunk{{FileID: files[0].ID, Content: "c", Type: "function", StartLine: 1, EndLine: 1}})
	require.NoError(t, err)

	weights := []float64{1.1, 2.2, 3.3}
	vectors := make([]TermVector, len(weights))
	for i, w := range weights {
		vectors[i] = TermVector{ChunkID: ids[0], Term: string(rune('a' + i)), TFIDF: w, TF: 1, RawFreq: 1}
	}
	require.NoError(t, s.WriteVectors(ctx, vectors))
	require.NoError(t, s.RecomputeMagnitudes(ctx, []int64{ids[0]}))

	var want float64
	for _, w := range weights {
		want += w * w
	}
	want = math.Sqrt(want)

	chunks, err := s.GetChunksByFile(ctx, files[0].ID)
	require.NoError(t, err)
	assert.InDelta(t, want, chunks[0].Magnitude, 1e-9)
}
