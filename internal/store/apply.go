package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// ChunkTerms is the data for one term of one chunk from ApplyFile's chunks
// slice, matched by index (terms[i] belongs to chunks[i]). It carries no
// chunk id: ApplyFile writes each term row against the id of the chunk
// row it has just inserted.
type ChunkTerms struct {
	Term    string
	RawFreq int
	TF      float64
}

// ApplyFile atomically upserts one file row, replaces its chunks, and
// writes their chunk_terms rows in a single transaction. Without this,
// a crash between steps could commit a file whose content_hash already
// matches the filesystem but whose chunks are missing or stale, and the
// diff phase would never re-enqueue it on the next run.
//
// terms[i] holds the term data for chunks[i], in the same order; a chunk
// with no terms (e.g. zero token count) gets nil.
func (s *Store) ApplyFile(ctx context.Context, file File, chunks []Chunk, terms [][]ChunkTerms) (File, []int64, error) {
	out := file
	ids := make([]int64, len(chunks))

	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		indexedAt := out.IndexedAt
		if indexedAt.IsZero() {
			indexedAt = time.Now().UTC()
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO files (path, content, content_hash, size, mtime, language, indexed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET
				content = excluded.content,
				content_hash = excluded.content_hash,
				size = excluded.size,
				mtime = excluded.mtime,
				language = excluded.language,
				indexed_at = excluded.indexed_at
		`, out.Path, out.content(), out.ContentHash, out.Size, out.Mtime.UTC().Format(time.RFC3339Nano), out.Language, indexedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("store: upsert file %s: %w", out.Path, err)
		}

		var fileID int64
		if err := tx.QueryRowContext(ctx, `SELECT id FROM files WHERE path = ?`, out.Path).Scan(&fileID); err != nil {
			return fmt.Errorf("store: read id for %s: %w", out.Path, err)
		}
		out.ID = fileID
		out.IndexedAt = indexedAt

		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE file_id = ?`, fileID); err != nil {
			return fmt.Errorf("store: delete chunks for file %d: %w", fileID, err)
		}
		if len(chunks) == 0 {
			return nil
		}

		chunkStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (file_id, content, type, start_line, end_line, metadata, magnitude, token_count)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("store: prepare insert chunks: %w", err)
		}
		defer chunkStmt.Close()

		termStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunk_terms (chunk_id, term, raw_freq, tf, tfidf)
			VALUES (?, ?, ?, ?, 0)
			ON CONFLICT(chunk_id, term) DO UPDATE SET
				raw_freq = excluded.raw_freq,
				tf = excluded.tf
		`)
		if err != nil {
			return fmt.Errorf("store: prepare write chunk terms: %w", err)
		}
		defer termStmt.Close()

		for i, c := range chunks {
			metaBlob, err := json.Marshal(c.Metadata)
			if err != nil {
				return fmt.Errorf("store: marshal chunk metadata: %w", err)
			}
			res, err := chunkStmt.ExecContext(ctx, fileID, c.Content, c.Type, c.StartLine, c.EndLine, metaBlob, c.Magnitude, c.TokenCount)
			if err != nil {
				return fmt.Errorf("store: insert chunk %d: %w", i, err)
			}
			chunkID, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("store: read chunk id %d: %w", i, err)
			}
			ids[i] = chunkID

			if i >= len(terms) {
				continue
			}
			for _, t := range terms[i] {
				if _, err := termStmt.ExecContext(ctx, chunkID, t.Term, t.RawFreq, t.TF); err != nil {
					return fmt.Errorf("store: write chunk term (%d,%s): %w", chunkID, t.Term, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return File{}, nil, err
	}
	return out, ids, nil
}
