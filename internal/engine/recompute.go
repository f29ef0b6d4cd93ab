package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/matperez/coderag/internal/store"
)

// recompute performs Phase C for one group: given the affected term set
// (terms_by_files(added ∪ changed ∪ deleted), captured by the caller
// before and after applying the group so that terms a deleted file or a
// changed file's old chunks carried are not lost), recount document
// frequency and IDF for each affected term across the whole corpus,
// recompute tfidf for chunks carrying those terms, refresh their
// magnitudes, and update avg_doc_length.
func (e *Engine) recompute(ctx context.Context, affected map[string]bool) error {
	if len(affected) == 0 {
		return e.store.UpdateAverageDocLength(ctx)
	}

	corpusSize, err := e.store.CountChunks(ctx)
	if err != nil {
		return fmt.Errorf("engine: count chunks: %w", err)
	}

	terms := make([]string, 0, len(affected))
	for term := range affected {
		terms = append(terms, term)
	}

	docFreq, err := e.documentFrequencies(ctx, terms)
	if err != nil {
		return fmt.Errorf("engine: document frequencies: %w", err)
	}

	scores := make(map[string]store.IdfScore, len(terms))
	for _, term := range terms {
		df := docFreq[term]
		scores[term] = store.IdfScore{
			Term:              term,
			DocumentFrequency: df,
			IDF:               smoothedIDF(corpusSize, df),
		}
	}
	if err := e.store.WriteIDF(ctx, scores); err != nil {
		return fmt.Errorf("engine: write idf: %w", err)
	}

	affectedChunkIDs, vectors, err := e.rescoreAffectedChunks(ctx, terms, scores)
	if err != nil {
		return err
	}
	if len(vectors) > 0 {
		if err := e.store.WriteVectors(ctx, vectors); err != nil {
			return fmt.Errorf("engine: rewrite tfidf: %w", err)
		}
	}
	if err := e.store.RecomputeMagnitudes(ctx, affectedChunkIDs); err != nil {
		return fmt.Errorf("engine: recompute magnitudes: %w", err)
	}

	return e.store.UpdateAverageDocLength(ctx)
}

// smoothedIDF implements idf(t) = log((N+1)/(df+1)) + 1.
func smoothedIDF(n, df int) float64 {
	return math.Log(float64(n+1)/float64(df+1)) + 1
}

// documentFrequencies counts, for each term, how many distinct chunks
// carry it, via the store's candidate search (every matching row, grouped
// by chunk).
func (e *Engine) documentFrequencies(ctx context.Context, terms []string) (map[string]int, error) {
	candidates, err := e.store.SearchCandidates(ctx, terms, 0)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(terms))
	for _, c := range candidates {
		for term := range c.MatchedTerms {
			counts[term]++
		}
	}
	return counts, nil
}

// rescoreAffectedChunks recomputes tfidf = tf * idf for every (chunk,
// term) pair touching an affected term, returning the distinct chunk ids
// that need a magnitude refresh.
func (e *Engine) rescoreAffectedChunks(ctx context.Context, terms []string, scores map[string]store.IdfScore) ([]int64, []store.TermVector, error) {
	candidates, err := e.store.SearchCandidates(ctx, terms, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("engine: search candidates for rescore: %w", err)
	}

	var vectors []store.TermVector
	chunkIDs := make(map[int64]bool, len(candidates))
	for _, c := range candidates {
		chunkIDs[c.ChunkID] = true
		for term, tv := range c.MatchedTerms {
			score, ok := scores[term]
			if !ok {
				continue
			}
			vectors = append(vectors, store.TermVector{
				ChunkID: c.ChunkID,
				Term:    term,
				RawFreq: tv.RawFreq,
				TF:      tv.TF,
				TFIDF:   tv.TF * score.IDF,
			})
		}
	}

	ids := make([]int64, 0, len(chunkIDs))
	for id := range chunkIDs {
		ids = append(ids, id)
	}
	return ids, vectors, nil
}
