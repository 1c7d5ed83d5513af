package internal

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	stateProcessed = "processed"
	stateFailed    = "failed"
)

// SQLiteLedger stores one row per id, so an id can only hold one state
type SQLiteLedger struct {
	path string

	mu        sync.RWMutex
	db        *sql.DB
	processed map[string]struct{}
	failed    map[string]struct{}
}

// NewSQLiteLedger creates a ledger backed by the sqlite database at path
func NewSQLiteLedger(path string) *SQLiteLedger {
	return &SQLiteLedger{
		path:      path,
		processed: make(map[string]struct{}),
		failed:    make(map[string]struct{}),
	}
}

// open must be called with mu held
func (l *SQLiteLedger) open() error {
	if l.db != nil {
		return nil
	}
	if err := ensureParentDir(l.path); err != nil {
		return fmt.Errorf("ledger: mkdir: %w", err)
	}
	db, err := sql.Open("sqlite", l.path)
	if err != nil {
		return fmt.Errorf("ledger: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS ledger (
		id         TEXT PRIMARY KEY,
		state      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return fmt.Errorf("ledger: init schema: %w", err)
	}
	l.db = db
	return nil
}

func (l *SQLiteLedger) Load(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.open(); err != nil {
		return err
	}

	rows, err := l.db.QueryContext(ctx, `SELECT id, state FROM ledger`)
	if err != nil {
		return fmt.Errorf("ledger: query: %w", err)
	}
	defer rows.Close()

	processed := make(map[string]struct{})
	failed := make(map[string]struct{})
	for rows.Next() {
		var id, state string
		if err := rows.Scan(&id, &state); err != nil {
			return fmt.Errorf("ledger: scan: %w", err)
		}
		switch state {
		case stateProcessed:
			processed[id] = struct{}{}
		case stateFailed:
			failed[id] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("ledger: rows: %w", err)
	}

	l.processed = processed
	l.failed = failed
	return nil
}

func (l *SQLiteLedger) IsProcessed(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.processed[id]
	return ok
}

func (l *SQLiteLedger) IsFailed(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.failed[id]
	return ok
}

func (l *SQLiteLedger) MarkProcessed(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.open(); err != nil {
		return err
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO ledger (id, state, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		id, stateProcessed, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("ledger: mark processed: %w", err)
	}
	l.processed[id] = struct{}{}
	delete(l.failed, id)
	return nil
}

func (l *SQLiteLedger) MarkFailed(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, processed := l.processed[id]
	_, failed := l.failed[id]
	if processed || failed {
		return nil
	}
	if err := l.open(); err != nil {
		return err
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO ledger (id, state, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		id, stateFailed, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("ledger: mark failed: %w", err)
	}
	l.failed[id] = struct{}{}
	return nil
}

func (l *SQLiteLedger) ForgetFailure(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.failed[id]; !ok {
		return nil
	}
	if err := l.open(); err != nil {
		return err
	}
	if _, err := l.db.ExecContext(ctx, `DELETE FROM ledger WHERE id = ? AND state = ?`, id, stateFailed); err != nil {
		return fmt.Errorf("ledger: forget failure: %w", err)
	}
	delete(l.failed, id)
	return nil
}

func (l *SQLiteLedger) Counts() (int, int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.processed), len(l.failed)
}

func (l *SQLiteLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}

// NewLedger builds the ledger selected by config
func NewLedger(config *Config) Ledger {
	if config.LedgerBackend == "sqlite" {
		return NewSQLiteLedger(config.LedgerDB)
	}
	return NewFileLedger(config.ProcessedIDsFile, config.FailedIDsFile)
}
