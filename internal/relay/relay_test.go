package relay

import (
	"context"
	"sync"

	"feedrelay/internal/feed"
	"feedrelay/internal/notifier"
)

// memLedger is an in-memory Ledger for tests.
type memLedger struct {
	mu  sync.Mutex
	ids map[string]string
	// commitErr, when set, makes every Commit fail without marking the id.
	commitErr error
}

func newMemLedger() *memLedger {
	return &memLedger{ids: make(map[string]string)}
}

func (l *memLedger) Has(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.ids[id]
	return ok
}

func (l *memLedger) Commit(id, fileName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.commitErr != nil {
		return l.commitErr
	}
	l.ids[id] = fileName
	return nil
}

func (l *memLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ids)
}

func (l *memLedger) Close() error { return nil }

// stubSource serves a fixed batch of entries, or a fixed error.
type stubSource struct {
	mu      sync.Mutex
	entries []feed.Entry
	err     error
	fetches int
}

func (s *stubSource) FetchAll(ctx context.Context) ([]feed.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]feed.Entry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *stubSource) FetchLatest(ctx context.Context) (feed.Entry, bool, error) {
	entries, err := s.FetchAll(ctx)
	if err != nil {
		return feed.Entry{}, false, err
	}
	if len(entries) == 0 {
		return feed.Entry{}, false, nil
	}
	return entries[0], true, nil
}

type notifierCall struct {
	dest    string
	text    string
	docName string
	isDoc   bool
}

// recordingNotifier captures every outbound send for assertions.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifierCall
}

func (n *recordingNotifier) SendText(ctx context.Context, dest, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifierCall{dest: dest, text: text})
	return nil
}

func (n *recordingNotifier) SendDocument(ctx context.Context, dest string, doc notifier.Document, caption string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifierCall{dest: dest, text: caption, docName: doc.Name, isDoc: true})
	return nil
}

func (n *recordingNotifier) snapshot() []notifierCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notifierCall, len(n.calls))
	copy(out, n.calls)
	return out
}
