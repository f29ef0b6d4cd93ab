package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// SearchCandidates returns the chunks that contain at least one of terms,
// in chunk id order and cut to the first limit chunks when limit > 0,
// each carrying the full set of matched terms' weights so the
// retriever can score BM25 without another round trip. The join and
// grouping style mirrors the teacher's squirrel-built sqliteSearcher
// query, adapted from a vector-distance join to a term-match join.
func (s *Store) SearchCandidates(ctx context.Context, terms []string, limit int) ([]Candidate, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	termArgs := make([]any, len(terms))
	for i, t := range terms {
		termArgs[i] = t
	}

	builder := sq.Select(
		"c.id", "f.path", "f.language", "c.content", "c.type", "c.start_line", "c.end_line",
		"c.magnitude", "c.token_count", "ct.term", "ct.raw_freq", "ct.tf", "ct.tfidf",
	).
		From("chunk_terms ct").
		Join("chunks c ON c.id = ct.chunk_id").
		Join("files f ON f.id = c.file_id").
		Where(sq.Eq{"ct.term": terms}).
		OrderBy("c.id")

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: build candidate query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: search candidates: %w", err)
	}
	defer rows.Close()

	byChunk := map[int64]*Candidate{}
	var order []int64

	for rows.Next() {
		var chunkID int64
		var filePath, language, content, ctype, term string
		var startLine, endLine, rawFreq, tokenCount int
		var magnitude, tf, tfidf float64

		if err := rows.Scan(&chunkID, &filePath, &language, &content, &ctype, &startLine, &endLine, &magnitude, &tokenCount, &term, &rawFreq, &tf, &tfidf); err != nil {
			return nil, fmt.Errorf("store: scan candidate row: %w", err)
		}

		cand, ok := byChunk[chunkID]
		if !ok {
			cand = &Candidate{
				ChunkID:      chunkID,
				FilePath:     filePath,
				Language:     language,
				Content:      content,
				Type:         ctype,
				StartLine:    startLine,
				EndLine:      endLine,
				Magnitude:    magnitude,
				TokenCount:   tokenCount,
				MatchedTerms: map[string]TermVector{},
			}
			byChunk[chunkID] = cand
			order = append(order, chunkID)
		}
		cand.MatchedTerms[term] = TermVector{ChunkID: chunkID, Term: term, RawFreq: rawFreq, TF: tf, TFIDF: tfidf}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate candidates: %w", err)
	}

	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}
	out := make([]Candidate, 0, len(order))
	for _, id := range order {
		out = append(out, *byChunk[id])
	}
	return out, nil
}
