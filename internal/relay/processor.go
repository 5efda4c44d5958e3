package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"feedrelay/internal/artifact"
	"feedrelay/internal/delivery"
	"feedrelay/internal/feed"
	"feedrelay/internal/ledger"
	"feedrelay/internal/notifier"
	"feedrelay/internal/queue"
	"feedrelay/pkg/logx"
)

const (
	// idleSleep paces the consumer loop while the queue is empty.
	idleSleep = time.Second
	// errCooldown is the pause after an entry-level failure before the
	// loop resumes. The failed entry is NOT re-queued; it comes back
	// only if a later poll still finds it upstream.
	errCooldown = 60 * time.Second
)

// Processor is the consumer side of the pipeline. It owns the dequeue →
// dedup-check → fetch → deliver → commit sequence; its sleeps (pacing,
// cooldown) never block the poller, which keeps filling the queue.
type Processor struct {
	q       *queue.Queue
	led     ledger.Ledger
	fetcher *artifact.Fetcher
	store   *artifact.Store
	gate    *delivery.Gate
	router  *Router
	alert   *Alerter
	dog     *Watchdog
	stats   *Stats
	log     logx.Logger
}

// ProcessorDeps wires the processor's collaborators. All fields are
// required except Stats.
type ProcessorDeps struct {
	Queue    *queue.Queue
	Ledger   ledger.Ledger
	Fetcher  *artifact.Fetcher
	Store    *artifact.Store
	Gate     *delivery.Gate
	Router   *Router
	Alerter  *Alerter
	Watchdog *Watchdog
	Stats    *Stats
	Log      logx.Logger
}

func NewProcessor(d ProcessorDeps) *Processor {
	log := d.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	stats := d.Stats
	if stats == nil {
		stats = NewStats()
	}
	return &Processor{
		q:       d.Queue,
		led:     d.Ledger,
		fetcher: d.Fetcher,
		store:   d.Store,
		gate:    d.Gate,
		router:  d.Router,
		alert:   d.Alerter,
		dog:     d.Watchdog,
		stats:   stats,
		log:     log,
	}
}

// Run loops until ctx is done. Entry-level failures alert the operator,
// cool down and continue; they never stop the loop. Anything that
// escapes (a panic) is the supervisor's restart-with-backoff problem.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		e, ok := p.q.Pop()
		if !ok {
			p.dog.IdleTick(ctx)
			if err := sleepCtx(ctx, idleSleep); err != nil {
				return err
			}
			continue
		}

		if err := p.process(ctx, e); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			p.log.Error("entry dropped", logx.String("id", e.ID), logx.Err(err))
			p.alert.Alertf(ctx, "entry %s dropped: %v", e.ID, err)
			if err := sleepCtx(ctx, errCooldown); err != nil {
				return err
			}
		}
	}
}

// process handles one dequeued entry end to end. A nil return means the
// entry was either delivered-and-committed or skipped as a duplicate.
func (p *Processor) process(ctx context.Context, e feed.Entry) error {
	if p.led.Has(e.ID) {
		p.log.Debug("already processed", logx.String("id", e.ID))
		return nil
	}

	doc, fileName := p.fetchArtifact(ctx, e)
	caption := BuildCaption(e)

	for _, dest := range p.router.Destinations(e.CategoryID) {
		var err error
		if doc != nil {
			err = p.gate.SendDocument(ctx, dest, *doc, caption)
		} else {
			err = p.gate.SendText(ctx, dest, caption)
		}
		if err != nil {
			return fmt.Errorf("deliver to %s: %w", dest, err)
		}
	}

	if err := p.led.Commit(e.ID, fileName); err != nil {
		// Delivered but not durably recorded: surfaced as an entry
		// failure, accepting a duplicate send on a later pass over a
		// silent loss of the dedup record.
		return fmt.Errorf("ledger commit: %w", err)
	}

	p.dog.NoteSuccess(e.ID)
	p.stats.NoteDelivered(e.ID)
	p.log.Info("entry delivered",
		logx.String("id", e.ID),
		logx.String("title", e.Title),
		logx.Bool("with_artifact", doc != nil))
	return nil
}

// fetchArtifact downloads and stores the entry's attachment. On failure
// the notification degrades to text-only rather than failing the entry;
// the error is reported to the operator.
func (p *Processor) fetchArtifact(ctx context.Context, e feed.Entry) (*notifier.Document, string) {
	data, err := p.fetcher.Fetch(ctx, e.ArtifactURL)
	if err != nil {
		p.log.Warn("artifact fetch failed; sending text-only",
			logx.String("id", e.ID), logx.Err(err))
		p.alert.Alertf(ctx, "artifact fetch failed for entry %s: %v", e.ID, err)
		return nil, ""
	}

	_, fileName, err := p.store.Save(e.ID, SuggestedFileName(e), data)
	if err != nil {
		p.log.Warn("artifact save failed; sending text-only",
			logx.String("id", e.ID), logx.Err(err))
		p.alert.Alertf(ctx, "artifact save failed for entry %s: %v", e.ID, err)
		return nil, ""
	}

	return &notifier.Document{Name: e.ID + "-" + fileName, Data: data}, fileName
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
