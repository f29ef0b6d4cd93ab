package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// UpsertFiles writes a batch of files in one transaction. A path
// collision updates the existing row in place (content, hash, size,
// mtime, language, indexed_at) and keeps its id stable, so chunks already
// owned by that file_id remain valid until the engine calls ReplaceChunks
// for it. IDs are populated on the returned slice.
func (s *Store) UpsertFiles(ctx context.Context, files []File) ([]File, error) {
	if len(files) == 0 {
		return nil, nil
	}
	out := make([]File, len(files))
	copy(out, files)

	err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO files (path, content, content_hash, size, mtime, language, indexed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(path) DO UPDATE SET
				content = excluded.content,
				content_hash = excluded.content_hash,
				size = excluded.size,
				mtime = excluded.mtime,
				language = excluded.language,
				indexed_at = excluded.indexed_at
		`)
		if err != nil {
			return fmt.Errorf("store: prepare upsert files: %w", err)
		}
		defer stmt.Close()

		for i, f := range out {
			indexedAt := f.IndexedAt
			if indexedAt.IsZero() {
				indexedAt = time.Now().UTC()
			}
			if _, err := stmt.ExecContext(ctx, f.Path, f.content(), f.ContentHash, f.Size, f.Mtime.UTC().Format(time.RFC3339Nano), f.Language, indexedAt.UTC().Format(time.RFC3339Nano)); err != nil {
				return fmt.Errorf("store: upsert file %s: %w", f.Path, err)
			}

			var id int64
			if err := tx.QueryRowContext(ctx, `SELECT id FROM files WHERE path = ?`, f.Path).Scan(&id); err != nil {
				return fmt.Errorf("store: read id for %s: %w", f.Path, err)
			}
			out[i].ID = id
			out[i].IndexedAt = indexedAt
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// content is the value written to the files.content column. It always
// returns nil, so the column is NULL for every row; nothing reads file
// text back from the store, and the engine's diff path uses only the hash.
func (f File) content() any {
	return nil
}

// DeleteFile removes a file row; the chunks and chunk_terms foreign keys
// cascade the corresponding rows away.
func (s *Store) DeleteFile(ctx context.Context, path string) error {
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path); err != nil {
			return fmt.Errorf("store: delete file %s: %w", path, err)
		}
		return nil
	})
}

// GetAllFiles returns every known file, used by the engine's diff phase
// to compare against the current filesystem listing.
func (s *Store) GetAllFiles(ctx context.Context) ([]File, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, path, content_hash, size, mtime, language, indexed_at FROM files`)
	if err != nil {
		return nil, fmt.Errorf("store: list files: %w", err)
	}
	defer rows.Close()

	var out []File
	for rows.Next() {
		var f File
		var mtime, indexedAt string
		if err := rows.Scan(&f.ID, &f.Path, &f.ContentHash, &f.Size, &mtime, &f.Language, &indexedAt); err != nil {
			return nil, fmt.Errorf("store: scan file: %w", err)
		}
		f.Mtime, _ = time.Parse(time.RFC3339Nano, mtime)
		f.IndexedAt, _ = time.Parse(time.RFC3339Nano, indexedAt)
		out = append(out, f)
	}
	return out, rows.Err()
}

// GetFileID resolves a path to its file id, returning sql.ErrNoRows when
// unknown.
func (s *Store) GetFileID(ctx context.Context, path string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM files WHERE path = ?`, path).Scan(&id)
	return id, err
}
