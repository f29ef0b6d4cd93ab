package store

import (
	"database/sql"
	"fmt"
)

// createSchema creates every table, its indexes, and the single bootstrap
// index_metadata row in one transaction, the same all-or-nothing pattern
// the teacher uses for its own cache schema.
func createSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("store: enable foreign keys: %w", err)
	}

	tables := []struct {
		name string
		ddl  string
	}{
		{"files", createFilesTable},
		{"chunks", createChunksTable},
		{"chunk_terms", createChunkTermsTable},
		{"idf_scores", createIdfScoresTable},
		{"index_metadata", createIndexMetadataTable},
		{"migrations", createMigrationsTable},
	}
	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("store: create %s table: %w", table.name, err)
		}
	}

	for i, idx := range getAllIndexes() {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("store: create index %d: %w", i+1, err)
		}
	}

	if _, err := tx.Exec(
		`INSERT INTO index_metadata (key, value, updated_at) VALUES
			('schema_version', '1', datetime('now')),
			('corpus_size', '0', datetime('now')),
			('avg_doc_length', '0', datetime('now'))`,
	); err != nil {
		return fmt.Errorf("store: bootstrap index_metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit schema transaction: %w", err)
	}
	return nil
}

const createFilesTable = `
CREATE TABLE IF NOT EXISTS files (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    path          TEXT NOT NULL UNIQUE,
    content       TEXT,
    content_hash  TEXT NOT NULL,
    size          INTEGER NOT NULL DEFAULT 0,
    mtime         TEXT NOT NULL,
    language      TEXT NOT NULL,
    indexed_at    TEXT NOT NULL
)
`

const createChunksTable = `
CREATE TABLE IF NOT EXISTS chunks (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    file_id     INTEGER NOT NULL,
    content     TEXT NOT NULL,
    type        TEXT NOT NULL,
    start_line  INTEGER NOT NULL,
    end_line    INTEGER NOT NULL,
    metadata    BLOB,
    magnitude   REAL NOT NULL DEFAULT 0,
    token_count INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (file_id) REFERENCES files(id) ON DELETE CASCADE
)
`

const createChunkTermsTable = `
CREATE TABLE IF NOT EXISTS chunk_terms (
    chunk_id  INTEGER NOT NULL,
    term      TEXT NOT NULL,
    raw_freq  INTEGER NOT NULL DEFAULT 0,
    tf        REAL NOT NULL DEFAULT 0,
    tfidf     REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (chunk_id, term),
    FOREIGN KEY (chunk_id) REFERENCES chunks(id) ON DELETE CASCADE
)
`

const createIdfScoresTable = `
CREATE TABLE IF NOT EXISTS idf_scores (
    term               TEXT PRIMARY KEY,
    idf                REAL NOT NULL DEFAULT 0,
    document_frequency INTEGER NOT NULL DEFAULT 0
)
`

const createIndexMetadataTable = `
CREATE TABLE IF NOT EXISTS index_metadata (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TEXT NOT NULL
)
`

const createMigrationsTable = `
CREATE TABLE IF NOT EXISTS migrations (
    hash       TEXT PRIMARY KEY,
    created_at TEXT NOT NULL
)
`

func getAllIndexes() []string {
	return []string{
		"CREATE INDEX IF NOT EXISTS idx_chunks_file_id ON chunks(file_id)",
		"CREATE INDEX IF NOT EXISTS idx_chunk_terms_term_chunk ON chunk_terms(term, chunk_id)",
		"CREATE INDEX IF NOT EXISTS idx_chunk_terms_chunk_id ON chunk_terms(chunk_id)",
		"CREATE INDEX IF NOT EXISTS idx_files_content_hash ON files(content_hash)",
	}
}
