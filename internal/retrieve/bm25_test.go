package retrieve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matperez/coderag/internal/store"
)

type fakeLexicalSource struct {
	candidates map[string][]store.Candidate // keyed by a stable join of terms, set per test
	all        []store.Candidate
	avgDocLen  string
}

func (f *fakeLexicalSource) SearchCandidates(_ context.Context, terms []string, limit int) ([]store.Candidate, error) {
	termSet := map[string]bool{}
	for _, t := range terms {
		termSet[t] = true
	}
	var out []store.Candidate
	for _, c := range f.all {
		matched := map[string]store.TermVector{}
		for term, tv := range c.MatchedTerms {
			if termSet[term] {
				matched[term] = tv
			}
		}
		if len(matched) > 0 {
			cc := c
			cc.MatchedTerms = matched
			out = append(out, cc)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeLexicalSource) GetMetadata(_ context.Context, key string) (string, error) {
	if key == "avg_doc_length" {
		return f.avgDocLen, nil
	}
	return "", nil
}

func candidateWithTerm(chunkID int64, path, term string, rawFreq, tokenCount int, idf float64) store.Candidate {
	tf := float64(rawFreq) / float64(tokenCount)
	return store.Candidate{
		ChunkID:    chunkID,
		FilePath:   path,
		Content:    "func Authenticate() {}",
		Type:       "function",
		StartLine:  1,
		EndLine:    3,
		TokenCount: tokenCount,
		MatchedTerms: map[string]store.TermVector{
			term: {ChunkID: chunkID, Term: term, RawFreq: rawFreq, TF: tf, TFIDF: tf * idf},
		},
	}
}

func TestBM25SearchRanksHigherRawFreqAbove(t *testing.T) {
	src := &fakeLexicalSource{
		all: []store.Candidate{
			candidateWithTerm(1, "b.go", "authenticate", 1, 10, 2.0),
			candidateWithTerm(2, "a.go", "authenticate", 5, 10, 2.0),
		},
		avgDocLen: "10",
	}

	scored, err := BM25Search(context.Background(), src, "authenticate", 10, 0)
	require.NoError(t, err)
	require.Len(t, scored, 2)
	assert.Equal(t, int64(2), scored[0].Candidate.ChunkID)
	assert.Greater(t, scored[0].Score, scored[1].Score)
}

func TestBM25SearchDeterministicTiebreak(t *testing.T) {
	src := &fakeLexicalSource{
		all: []store.Candidate{
			candidateWithTerm(1, "z.go", "authenticate", 2, 10, 2.0),
			candidateWithTerm(2, "a.go", "authenticate", 2, 10, 2.0),
		},
		avgDocLen: "10",
	}

	scored, err := BM25Search(context.Background(), src, "authenticate", 10, 0)
	require.NoError(t, err)
	require.Len(t, scored, 2)
	assert.Equal(t, "a.go", scored[0].Candidate.FilePath)
	assert.Equal(t, "z.go", scored[1].Candidate.FilePath)
}

func TestBM25SearchEmptyQueryReturnsNil(t *testing.T) {
	src := &fakeLexicalSource{}
	scored, err := BM25Search(context.Background(), src, "   ", 10, 0)
	require.NoError(t, err)
	assert.Nil(t, scored)
}

func TestBM25SearchMonotonicOnAddedChunk(t *testing.T) {
	// Property 8: adding a chunk containing term t can only keep or
	// increase the set of chunks with score > 0 for a query containing t.
	before := &fakeLexicalSource{
		all:       []store.Candidate{candidateWithTerm(1, "a.go", "authenticate", 2, 10, 2.0)},
		avgDocLen: "10",
	}
	after := &fakeLexicalSource{
		all: []store.Candidate{
			candidateWithTerm(1, "a.go", "authenticate", 2, 10, 2.0),
			candidateWithTerm(2, "b.go", "authenticate", 3, 12, 2.0),
		},
		avgDocLen: "10.5",
	}

	beforeScored, err := BM25Search(context.Background(), before, "authenticate", 10, 0)
	require.NoError(t, err)
	afterScored, err := BM25Search(context.Background(), after, "authenticate", 10, 0)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(beforeScored), len(afterScored))
}
