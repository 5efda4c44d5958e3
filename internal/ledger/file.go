package ledger

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"feedrelay/pkg/logx"
)

// fileLedger is the default backend: a UTF-8 text file with one
// newline-terminated "id|filename" record per line, opened O_APPEND and
// loaded in full into an in-memory id set at startup.
type fileLedger struct {
	log logx.Logger

	mu   sync.RWMutex
	file *os.File
	ids  map[string]struct{}
}

func openFile(path string, log logx.Logger) (Ledger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	ids, err := loadIDs(path)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	log.Info("ledger loaded", logx.String("path", path), logx.Int("ids", len(ids)))
	return &fileLedger{log: log, file: f, ids: ids}, nil
}

// loadIDs parses only the segment before the first '|' as the id.
// Lines without a separator (the legacy bare-id form) count whole.
func loadIDs(path string) (map[string]struct{}, error) {
	ids := map[string]struct{}{}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ids, nil
		}
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		id := line
		if i := strings.IndexByte(line, '|'); i >= 0 {
			id = line[:i]
		}
		if id != "" {
			ids[id] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (l *fileLedger) Has(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.ids[id]
	return ok
}

func (l *fileLedger) Commit(id, fileName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return ErrClosed
	}
	if _, err := fmt.Fprintf(l.file, "%s|%s\n", id, fileName); err != nil {
		return fmt.Errorf("ledger append: %w", err)
	}
	l.ids[id] = struct{}{}
	return nil
}

func (l *fileLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ids)
}

func (l *fileLedger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
