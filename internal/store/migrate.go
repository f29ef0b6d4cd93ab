package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
)

// migration is one forward-only schema change, identified by the hash of
// its own DDL rather than a sequence number, so reordering or renaming a
// migration file never causes it to rerun.
type migration struct {
	name string
	ddl  string
}

// migrations lists every migration beyond the bootstrap schema, in
// application order. The bootstrap schema itself (createSchema) is not a
// migration: it only ever runs against a brand-new database file.
var migrations = []migration{
	{
		name: "index_metadata_last_migrated",
		ddl:  `INSERT OR IGNORE INTO index_metadata (key, value, updated_at) VALUES ('last_migrated', '', datetime('now'))`,
	},
}

func migrationHash(m migration) string {
	sum := sha256.Sum256([]byte(m.ddl))
	return hex.EncodeToString(sum[:])
}

// applyMigrations runs every not-yet-applied migration, recording a
// migration as applied only after its DDL succeeds, per the store's
// migration_failed error policy: a failure here is fatal and the caller
// must refuse to accept writes.
func applyMigrations(db *sql.DB) error {
	for _, m := range migrations {
		hash := migrationHash(m)

		var exists int
		err := db.QueryRow(`SELECT COUNT(*) FROM migrations WHERE hash = ?`, hash).Scan(&exists)
		if err != nil {
			return fmt.Errorf("store: check migration %s: %w", m.name, err)
		}
		if exists > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("store: begin migration %s: %w", m.name, err)
		}

		if _, err := tx.Exec(m.ddl); err != nil {
			tx.Rollback()
			return fmt.Errorf("store: apply migration %s: %w", m.name, err)
		}
		if _, err := tx.Exec(`INSERT INTO migrations (hash, created_at) VALUES (?, datetime('now'))`, hash); err != nil {
			tx.Rollback()
			return fmt.Errorf("store: record migration %s: %w", m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("store: commit migration %s: %w", m.name, err)
		}
	}
	return nil
}
