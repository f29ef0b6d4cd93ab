package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// ReplaceChunks atomically deletes a file's existing chunks (their
// chunk_terms cascade away with them) and inserts the new set, returning
// the new chunk ids in the same order as the input slice.
func (s *Store) ReplaceChunks(ctx context.Context, fileID int64, chunks []Chunk) ([]int64, error) {
	ids := make([]int64, len(chunks))

	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE file_id = ?`, fileID); err != nil {
			return fmt.Errorf("store: delete chunks for file %d: %w", fileID, err)
		}
		if len(chunks) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (file_id, content, type, start_line, end_line, metadata, magnitude, token_count)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("store: prepare insert chunks: %w", err)
		}
		defer stmt.Close()

		for i, c := range chunks {
			metaBlob, err := json.Marshal(c.Metadata)
			if err != nil {
				return fmt.Errorf("store: marshal chunk metadata: %w", err)
			}
			res, err := stmt.ExecContext(ctx, fileID, c.Content, c.Type, c.StartLine, c.EndLine, metaBlob, c.Magnitude, c.TokenCount)
			if err != nil {
				return fmt.Errorf("store: insert chunk %d: %w", i, err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("store: read chunk id %d: %w", i, err)
			}
			ids[i] = id
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// WriteVectors upserts a batch of per-chunk term weights, idempotent on
// (chunk_id, term): re-running the same batch leaves the row unchanged.
func (s *Store) WriteVectors(ctx context.Context, vectors []TermVector) error {
	if len(vectors) == 0 {
		return nil
	}
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunk_terms (chunk_id, term, raw_freq, tf, tfidf)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(chunk_id, term) DO UPDATE SET
				raw_freq = excluded.raw_freq,
				tf = excluded.tf,
				tfidf = excluded.tfidf
		`)
		if err != nil {
			return fmt.Errorf("store: prepare write vectors: %w", err)
		}
		defer stmt.Close()

		for _, v := range vectors {
			if _, err := stmt.ExecContext(ctx, v.ChunkID, v.Term, v.RawFreq, v.TF, v.TFIDF); err != nil {
				return fmt.Errorf("store: write vector (%d,%s): %w", v.ChunkID, v.Term, err)
			}
		}
		return nil
	})
}

// GetChunksByFile returns a file's chunks ordered by (start_line,
// end_line) ascending, the spec's canonical within-file ordering.
func (s *Store) GetChunksByFile(ctx context.Context, fileID int64) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_id, content, type, start_line, end_line, metadata, magnitude, token_count
		FROM chunks WHERE file_id = ? ORDER BY start_line, end_line
	`, fileID)
	if err != nil {
		return nil, fmt.Errorf("store: list chunks for file %d: %w", fileID, err)
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		var c Chunk
		var metaBlob []byte
		if err := rows.Scan(&c.ID, &c.FileID, &c.Content, &c.Type, &c.StartLine, &c.EndLine, &metaBlob, &c.Magnitude, &c.TokenCount); err != nil {
			return nil, fmt.Errorf("store: scan chunk: %w", err)
		}
		if len(metaBlob) > 0 {
			if err := json.Unmarshal(metaBlob, &c.Metadata); err != nil {
				return nil, fmt.Errorf("store: unmarshal chunk metadata: %w", err)
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetChunk resolves a single chunk id to its file path, language, and
// content, used by the hybrid retriever to materialize a vector-only hit
// that never passed through SearchCandidates.
func (s *Store) GetChunk(ctx context.Context, chunkID int64) (Candidate, error) {
	var c Candidate
	err := s.db.QueryRowContext(ctx, `
		SELECT c.id, f.path, f.language, c.content, c.type, c.start_line, c.end_line, c.magnitude, c.token_count
		FROM chunks c JOIN files f ON f.id = c.file_id
		WHERE c.id = ?
	`, chunkID).Scan(&c.ChunkID, &c.FilePath, &c.Language, &c.Content, &c.Type, &c.StartLine, &c.EndLine, &c.Magnitude, &c.TokenCount)
	if err != nil {
		return Candidate{}, fmt.Errorf("store: get chunk %d: %w", chunkID, err)
	}
	c.MatchedTerms = map[string]TermVector{}
	return c, nil
}

// CountChunks returns the corpus-wide chunk count N used throughout the
// IDF and BM25 formulas.
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count chunks: %w", err)
	}
	return n, nil
}
