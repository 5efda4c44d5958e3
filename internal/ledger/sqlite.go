package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"feedrelay/pkg/logx"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS processed (
	id        TEXT PRIMARY KEY,
	file_name TEXT NOT NULL DEFAULT '',
	at        TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);
`

// sqliteLedger mirrors the file backend's contract on top of SQLite.
// The id set is still held in memory so Has stays a lock-guarded map
// lookup on the hot path.
type sqliteLedger struct {
	log logx.Logger

	mu  sync.RWMutex
	db  *sql.DB
	ids map[string]struct{}
}

func openSQLite(path string, log logx.Logger) (Ledger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ledger schema: %w", err)
	}

	ids := map[string]struct{}{}
	rows, err := db.Query(`SELECT id FROM processed`)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = db.Close()
			return nil, err
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Info("ledger loaded", logx.String("path", path), logx.String("driver", "sqlite"), logx.Int("ids", len(ids)))
	return &sqliteLedger{log: log, db: db, ids: ids}, nil
}

func (l *sqliteLedger) Has(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.ids[id]
	return ok
}

func (l *sqliteLedger) Commit(id, fileName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return ErrClosed
	}
	_, err := l.db.Exec(
		`INSERT INTO processed(id, file_name) VALUES(?,?)
		 ON CONFLICT(id) DO NOTHING`,
		id, fileName,
	)
	if err != nil {
		return fmt.Errorf("ledger insert: %w", err)
	}
	l.ids[id] = struct{}{}
	return nil
}

func (l *sqliteLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ids)
}

func (l *sqliteLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}
