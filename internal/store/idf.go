package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

// WriteIDF fully replaces the idf_scores row for every term in scores;
// terms absent from the map are untouched, matching the targeted-recompute
// contract (a global recompute just passes every known term).
func (s *Store) WriteIDF(ctx context.Context, scores map[string]IdfScore) error {
	if len(scores) == 0 {
		return nil
	}
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO idf_scores (term, idf, document_frequency)
			VALUES (?, ?, ?)
			ON CONFLICT(term) DO UPDATE SET
				idf = excluded.idf,
				document_frequency = excluded.document_frequency
		`)
		if err != nil {
			return fmt.Errorf("store: prepare write idf: %w", err)
		}
		defer stmt.Close()

		for term, score := range scores {
			if _, err := stmt.ExecContext(ctx, term, score.IDF, score.DocumentFrequency); err != nil {
				return fmt.Errorf("store: write idf for %s: %w", term, err)
			}
		}
		return nil
	})
}

// TermsByFiles returns the union of terms whose owning chunk belongs to
// one of the given file paths, the input to a targeted IDF recompute
// after an incremental update touches only a handful of files.
func (s *Store) TermsByFiles(ctx context.Context, paths []string) (map[string]bool, error) {
	if len(paths) == 0 {
		return map[string]bool{}, nil
	}

	placeholders := make([]string, len(paths))
	args := make([]any, len(paths))
	for i, p := range paths {
		placeholders[i] = "?"
		args[i] = p
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT ct.term
		FROM chunk_terms ct
		JOIN chunks c ON c.id = ct.chunk_id
		JOIN files f ON f.id = c.file_id
		WHERE f.path IN (%s)
	`, joinPlaceholders(placeholders))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: terms by files: %w", err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var term string
		if err := rows.Scan(&term); err != nil {
			return nil, fmt.Errorf("store: scan term: %w", err)
		}
		out[term] = true
	}
	return out, rows.Err()
}

func joinPlaceholders(ph []string) string {
	out := ph[0]
	for _, p := range ph[1:] {
		out += "," + p
	}
	return out
}

// RecomputeMagnitudes sets chunk.magnitude = sqrt(sum(tfidf^2)) for the
// given chunk ids (or every chunk when ids is empty), run after any write
// that changes TF-IDF values per the cross-entity invariant.
func (s *Store) RecomputeMagnitudes(ctx context.Context, chunkIDs []int64) error {
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		if len(chunkIDs) == 0 {
			_, err := tx.ExecContext(ctx, `
				UPDATE chunks SET magnitude = COALESCE((
					SELECT SQRT(SUM(tfidf * tfidf)) FROM chunk_terms WHERE chunk_terms.chunk_id = chunks.id
				), 0)
			`)
			if err != nil {
				return fmt.Errorf("store: recompute all magnitudes: %w", err)
			}
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `
			UPDATE chunks SET magnitude = COALESCE((
				SELECT SQRT(SUM(tfidf * tfidf)) FROM chunk_terms WHERE chunk_terms.chunk_id = ?
			), 0) WHERE id = ?
		`)
		if err != nil {
			return fmt.Errorf("store: prepare recompute magnitude: %w", err)
		}
		defer stmt.Close()

		for _, id := range chunkIDs {
			if _, err := stmt.ExecContext(ctx, id, id); err != nil {
				return fmt.Errorf("store: recompute magnitude for chunk %d: %w", id, err)
			}
		}
		return nil
	})
}

// UpdateAverageDocLength recomputes avg_doc_length = mean(token_count)
// over all chunks and corpus_size = count(chunks), persisting both into
// index_metadata.
func (s *Store) UpdateAverageDocLength(ctx context.Context) error {
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		var avg sql.NullFloat64
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT AVG(token_count), COUNT(*) FROM chunks`).Scan(&avg, &n); err != nil {
			return fmt.Errorf("store: compute avg doc length: %w", err)
		}
		avgVal := 0.0
		if avg.Valid {
			avgVal = avg.Float64
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO index_metadata (key, value, updated_at) VALUES ('avg_doc_length', ?, datetime('now'))
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, strconv.FormatFloat(avgVal, 'f', -1, 64)); err != nil {
			return fmt.Errorf("store: write avg_doc_length: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO index_metadata (key, value, updated_at) VALUES ('corpus_size', ?, datetime('now'))
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, strconv.Itoa(n)); err != nil {
			return fmt.Errorf("store: write corpus_size: %w", err)
		}
		return nil
	})
}

// GetMetadata reads one index_metadata value, returning "" when absent.
func (s *Store) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM index_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: get metadata %s: %w", key, err)
	}
	return value, nil
}

// AllIDF returns every known term's IDF score, used for a full recompute
// pass or for warming the retriever's in-memory view.
func (s *Store) AllIDF(ctx context.Context) (map[string]IdfScore, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT term, idf, document_frequency FROM idf_scores`)
	if err != nil {
		return nil, fmt.Errorf("store: list idf scores: %w", err)
	}
	defer rows.Close()

	out := map[string]IdfScore{}
	for rows.Next() {
		var score IdfScore
		if err := rows.Scan(&score.Term, &score.IDF, &score.DocumentFrequency); err != nil {
			return nil, fmt.Errorf("store: scan idf score: %w", err)
		}
		out[score.Term] = score
	}
	return out, rows.Err()
}
