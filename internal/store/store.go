package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
)

// ErrMigrationFailed wraps any error surfaced while bringing a store's
// schema up to date at Open time. It is fatal: the caller must not accept
// writes against a store that failed to open.
var ErrMigrationFailed = errors.New("store: migration failed")

// Store is the persistent relational index. Writes are serialized by mu,
// matching the single-writer discipline in the design: one exclusive
// writer at a time. The connection pool holds a single connection, so
// reads do not run concurrently with each other or with a write: a read
// issued during a write transaction waits until that transaction ends.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if necessary) the SQLite database at path, runs
// the bootstrap schema on a fresh file, and applies any pending
// migrations. A busy_timeout is set so lock contention blocks briefly
// inside the driver before the retry-with-backoff path in withWriteTx
// takes over.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // sqlite3 driver: one physical connection avoids cross-connection lock churn

	var tableCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='files'`).Scan(&tableCount); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: probe schema: %w", err)
	}
	if tableCount == 0 {
		if err := createSchema(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: %w", ErrMigrationFailed, err)
		}
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// withWriteTx serializes writers behind mu and retries on SQLITE_BUSY with
// capped exponential backoff before surfacing the contention error, per
// the store_busy policy: retry internally, only fail once retries are
// exhausted.
func (s *Store) withWriteTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	backoff := 10 * time.Millisecond
	const maxAttempts = 5

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			lastErr = err
			if isBusy(err) {
				time.Sleep(backoff)
				backoff *= 2
				continue
			}
			return fmt.Errorf("store: begin transaction: %w", err)
		}

		if err := fn(tx); err != nil {
			tx.Rollback()
			if isBusy(err) {
				lastErr = err
				time.Sleep(backoff)
				backoff *= 2
				continue
			}
			return err
		}

		if err := tx.Commit(); err != nil {
			if isBusy(err) {
				lastErr = err
				time.Sleep(backoff)
				backoff *= 2
				continue
			}
			return fmt.Errorf("store: commit transaction: %w", err)
		}
		return nil
	}
	return fmt.Errorf("store: busy after retries: %w", lastErr)
}

func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}
