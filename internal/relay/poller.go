package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"feedrelay/internal/feed"
	"feedrelay/internal/ledger"
	"feedrelay/internal/queue"
	"feedrelay/pkg/logx"
)

// Poller periodically pulls the feed and appends newly observed entries,
// oldest-first, to the tail of the ingestion queue. Cycles never overlap:
// a tick that fires while the previous fetch is still running is skipped.
type Poller struct {
	source   feed.Source
	q        *queue.Queue
	led      ledger.Ledger
	alert    *Alerter
	stats    *Stats
	log      logx.Logger
	interval time.Duration
}

func NewPoller(source feed.Source, q *queue.Queue, led ledger.Ledger, alert *Alerter, stats *Stats, interval time.Duration, log logx.Logger) *Poller {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Poller{
		source:   source,
		q:        q,
		led:      led,
		alert:    alert,
		stats:    stats,
		log:      log,
		interval: interval,
	}
}

// Run schedules poll cycles until ctx is done. The first cycle fires
// immediately so a restart doesn't wait a full interval to catch up.
func (p *Poller) Run(ctx context.Context) error {
	p.poll(ctx)

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", p.interval), func() {
		p.poll(ctx)
	}); err != nil {
		return fmt.Errorf("schedule poll: %w", err)
	}
	c.Start()

	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	return ctx.Err()
}

// poll runs one fetch cycle. Failures are reported and swallowed; the
// schedule keeps running regardless.
func (p *Poller) poll(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	entries, err := p.source.FetchAll(ctx)
	if err != nil {
		p.reportFetchError(ctx, err)
		return
	}
	p.stats.NotePoll(len(entries))

	// Feed order is newest-first; enqueue oldest-first to preserve
	// chronological delivery within the batch.
	fresh := make([]feed.Entry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		// Cheap pre-filters only; the processor re-checks the ledger
		// authoritatively on dequeue.
		if p.led.Has(e.ID) || p.q.Contains(e.ID) {
			continue
		}
		fresh = append(fresh, e)
	}
	if len(fresh) == 0 {
		p.log.Debug("poll found nothing new", logx.Int("feed_entries", len(entries)))
		return
	}

	p.q.Push(fresh...)
	p.log.Info("enqueued new entries",
		logx.Int("count", len(fresh)),
		logx.Int("queue_len", p.q.Len()))
}

func (p *Poller) reportFetchError(ctx context.Context, err error) {
	var vErr *feed.ValidationError
	var tErr *feed.TransportError
	switch {
	case errors.As(err, &vErr):
		p.log.Error("feed failed validation", logx.Err(err))
		p.alert.Alertf(ctx, "feed is malformed: %v", vErr.Err)
	case errors.As(err, &tErr):
		p.log.Warn("feed fetch failed", logx.Err(err))
		p.alert.Alertf(ctx, "feed fetch failed: %v", tErr.Err)
	default:
		p.log.Error("feed fetch failed unexpectedly", logx.Err(err))
		p.alert.Alertf(ctx, "feed fetch failed: %v", err)
	}
}
