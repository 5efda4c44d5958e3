package relay

import (
	"context"
	"sync"
	"time"

	"feedrelay/internal/feed"
	"feedrelay/internal/ledger"
	"feedrelay/pkg/logx"
)

// stallThresholds is the escalating ladder the watchdog walks while no
// delivery succeeds. Each step is checked at most once per quiet stretch,
// in ascending order, one per idle tick.
var stallThresholds = []struct {
	after time.Duration
	label string
}{
	{600 * time.Second, "10 minutes"},
	{1200 * time.Second, "20 minutes"},
	{1800 * time.Second, "30 minutes"},
	{3600 * time.Second, "1 hour"},
	{7200 * time.Second, "2 hours"},
	{14400 * time.Second, "4 hours"},
	{21600 * time.Second, "6 hours"},
}

// Watchdog distinguishes "pipeline stuck" from "feed is quiet" while the
// queue sits empty. It re-queries the feed directly (bypassing the queue)
// and compares the newest upstream id against the ledger: an unprocessed
// newest id past a threshold means the pipeline stalled.
//
// State is in-memory only and resets to fresh on restart.
type Watchdog struct {
	source feed.Source
	led    ledger.Ledger
	alert  *Alerter
	log    logx.Logger

	mu              sync.Mutex
	lastSuccess     time.Time
	lastProcessedID string
	next            int // index of the next unchecked threshold
}

func NewWatchdog(source feed.Source, led ledger.Ledger, alert *Alerter, log logx.Logger) *Watchdog {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Watchdog{
		source:      source,
		led:         led,
		alert:       alert,
		log:         log,
		lastSuccess: time.Now(),
	}
}

// NoteSuccess resets the freshness clock. Called by the processor on
// every successful ledger commit.
func (w *Watchdog) NoteSuccess(id string) {
	w.mu.Lock()
	w.lastSuccess = time.Now()
	w.lastProcessedID = id
	w.next = 0
	w.mu.Unlock()
}

// LastSuccess returns the freshness clock for status reporting.
func (w *Watchdog) LastSuccess() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSuccess
}

// IdleTick evaluates at most one threshold. Called from the processor's
// own loop whenever the queue is observed empty, so no extra
// synchronization with the processor is needed beyond the state mutex.
func (w *Watchdog) IdleTick(ctx context.Context) {
	w.mu.Lock()
	if w.next >= len(stallThresholds) {
		w.mu.Unlock()
		return
	}
	th := stallThresholds[w.next]
	elapsed := time.Since(w.lastSuccess)
	lastID := w.lastProcessedID
	w.mu.Unlock()

	if elapsed <= th.after {
		return
	}

	newest, ok, err := w.source.FetchLatest(ctx)
	if err != nil {
		// Can't decide stuck-vs-quiet without the probe; leave the
		// threshold unchecked and retry on a later tick.
		w.log.Warn("stall probe failed", logx.String("threshold", th.label), logx.Err(err))
		return
	}

	w.mu.Lock()
	w.next++
	w.mu.Unlock()

	if !ok || w.led.Has(newest.ID) {
		w.log.Info("feed quiet past threshold",
			logx.String("threshold", th.label),
			logx.Duration("since_last_success", elapsed))
		return
	}

	w.log.Error("pipeline stalled",
		logx.String("threshold", th.label),
		logx.String("newest_id", newest.ID),
		logx.String("last_processed_id", lastID))
	w.alert.Alertf(ctx,
		"no successful delivery for over %s, but the feed has unprocessed entry %s (last processed: %s)",
		th.label, newest.ID, orNone(lastID))
}

func orNone(s string) string {
	if s == "" {
		return "none this run"
	}
	return s
}
