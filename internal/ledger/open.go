package ledger

import (
	"errors"
	"strings"

	"feedrelay/pkg/logx"
)

// Open initializes the configured ledger backend.
func Open(cfg Config, log logx.Logger) (Ledger, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("ledger.path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "file":
		return openFile(cfg.Path, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg.Path, log)
	default:
		return nil, errors.New("unknown ledger driver: " + cfg.Driver)
	}
}
