package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"feedrelay/internal/feed"
	"feedrelay/internal/ledger"
	"feedrelay/internal/queue"
	"feedrelay/internal/relay"
	"feedrelay/pkg/logx"
)

func testLedger(t *testing.T) ledger.Ledger {
	t.Helper()
	led, err := ledger.Open(ledger.Config{Driver: "file", Path: t.TempDir() + "/processed_ids.txt"}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { led.Close() })
	return led
}

func TestHealthz(t *testing.T) {
	s := NewServer("127.0.0.1:0", relay.NewStats(), queue.New(), testLedger(t), logx.Nop())

	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestStatusSnapshot(t *testing.T) {
	stats := relay.NewStats()
	stats.NotePoll(75)
	stats.NoteDelivered("1837065")

	q := queue.New()
	q.Push(feed.Entry{ID: "1"}, feed.Entry{ID: "2"})

	led := testLedger(t)
	if err := led.Commit("1837065", "Show.S01E01.torrent"); err != nil {
		t.Fatal(err)
	}

	s := NewServer("127.0.0.1:0", stats, q, led, logx.Nop())
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var snap relay.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.QueueLen != 2 {
		t.Errorf("QueueLen = %d, want 2", snap.QueueLen)
	}
	if snap.LedgerLen != 1 {
		t.Errorf("LedgerLen = %d, want 1", snap.LedgerLen)
	}
	if snap.LastFeedCount != 75 {
		t.Errorf("LastFeedCount = %d, want 75", snap.LastFeedCount)
	}
	if snap.Delivered != 1 || snap.LastDeliveredID != "1837065" {
		t.Errorf("Delivered = %d/%s", snap.Delivered, snap.LastDeliveredID)
	}
}

func TestRoutesUnknownPath(t *testing.T) {
	s := NewServer("127.0.0.1:0", relay.NewStats(), queue.New(), testLedger(t), logx.Nop())
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
