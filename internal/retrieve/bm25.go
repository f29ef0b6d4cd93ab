package retrieve

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/matperez/coderag/internal/store"
	"github.com/matperez/coderag/internal/token"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75

	defaultCandidateMultiplier = 4
)

// LexicalSource is the store surface BM25 needs, narrowed to an interface
// so tests can supply an in-memory fake.
type LexicalSource interface {
	SearchCandidates(ctx context.Context, terms []string, limit int) ([]store.Candidate, error)
	GetMetadata(ctx context.Context, key string) (string, error)
}

// Scored is a candidate chunk carrying its BM25 score and the query terms
// it actually matched, the unfiltered, unsnippeted unit both the pure
// lexical path and hybrid fusion operate on.
type Scored struct {
	Candidate    store.Candidate
	Score        float64
	MatchedTerms []string
}

// BM25Search runs the lexical retriever described by the design: fetch
// candidates for the query's terms, score each with smoothed-IDF BM25,
// and return them sorted descending with a deterministic tiebreak.
// candidateLimit <= 0 resolves to limit * defaultCandidateMultiplier.
func BM25Search(ctx context.Context, src LexicalSource, query string, limit, candidateLimit int) ([]Scored, error) {
	terms := token.Tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}
	if candidateLimit <= 0 {
		candidateLimit = limit * defaultCandidateMultiplier
	}
	if candidateLimit < limit {
		candidateLimit = limit
	}

	candidates, err := src.SearchCandidates(ctx, terms, candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("retrieve: search candidates: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	avgdl, err := avgDocLength(ctx, src)
	if err != nil {
		return nil, err
	}

	scored := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		score, matched := scoreBM25(c, avgdl)
		if score <= 0 {
			continue
		}
		scored = append(scored, Scored{Candidate: c, Score: score, MatchedTerms: matched})
	}

	sortScored(scored)
	return scored, nil
}

// scoreBM25 computes Σ idf(t)·(f(t,c)(k1+1))/(f(t,c)+k1(1-b+b|c|/avgdl))
// over the terms the chunk and the query share. idf(t) is recovered as
// tfidf/tf from the stored term vector rather than a second store query,
// since tfidf was written as tf*idf at the last rebuild and tf is always
// positive for a term present in MatchedTerms.
func scoreBM25(c store.Candidate, avgdl float64) (float64, []string) {
	if avgdl <= 0 {
		avgdl = float64(c.TokenCount)
		if avgdl <= 0 {
			avgdl = 1
		}
	}

	var score float64
	matched := make([]string, 0, len(c.MatchedTerms))
	for term, tv := range c.MatchedTerms {
		matched = append(matched, term)
		if tv.TF <= 0 {
			continue
		}
		idf := tv.TFIDF / tv.TF
		f := float64(tv.RawFreq)
		denom := f + bm25K1*(1-bm25B+bm25B*float64(c.TokenCount)/avgdl)
		if denom <= 0 {
			continue
		}
		score += idf * (f * (bm25K1 + 1)) / denom
	}
	sort.Strings(matched)
	return score, matched
}

func avgDocLength(ctx context.Context, src LexicalSource) (float64, error) {
	raw, err := src.GetMetadata(ctx, "avg_doc_length")
	if err != nil {
		return 0, fmt.Errorf("retrieve: read avg_doc_length: %w", err)
	}
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("retrieve: parse avg_doc_length: %w", err)
	}
	return v, nil
}

// sortScored ranks descending by score, breaking ties by (file_path,
// start_line) ascending for determinism.
func sortScored(scored []Scored) {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].Candidate.FilePath != scored[j].Candidate.FilePath {
			return scored[i].Candidate.FilePath < scored[j].Candidate.FilePath
		}
		return scored[i].Candidate.StartLine < scored[j].Candidate.StartLine
	})
}
