// Package ledger is the durable record of already-delivered entry ids.
// It is the only durable state in the system: append-only, loaded in full
// at startup, never compacted. Memory grows with the processed count,
// which is an accepted scaling limit.
package ledger

import "errors"

var ErrClosed = errors.New("ledger closed")

// Ledger is the dedup contract. Has must return true for every id that
// Commit succeeded for, for the rest of the process lifetime and again
// after a restart reloads the backing store.
type Ledger interface {
	Has(id string) bool
	// Commit durably records (id, fileName) and marks id present.
	// On error the id is NOT marked present in memory: delivery without a
	// durable record is reported as an entry-level failure instead of a
	// silent false "processed" state.
	Commit(id, fileName string) error
	Len() int
	Close() error
}

// Config selects the ledger backend.
//
// Driver values:
//   - "file" (default): line-oriented append-only file, one "id|filename"
//     record per line
//   - "sqlite": SQLite database file with the same contract
type Config struct {
	Driver string
	Path   string
}
