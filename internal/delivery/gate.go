// Package delivery wraps the notifier with bounded retry, rate-limit
// backoff and inter-send pacing. It is the only path outbound content
// takes; exhausting the attempt budget is an entry-level failure the
// processor decides about, never a process-level one.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"feedrelay/internal/notifier"
	"feedrelay/pkg/logx"
)

// captionLimit is Telegram's media caption cap. Longer captions are
// split into the document send plus a follow-up text message.
const captionLimit = 1024

// ExhaustedError reports that every attempt for one send failed.
type ExhaustedError struct {
	Dest     string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("delivery to %s exhausted after %d attempts: %v", e.Dest, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

type Config struct {
	// MaxAttempts bounds tries per send; every failed attempt consumes
	// one, whatever the failure kind.
	MaxAttempts int
	// Delay is the minimum spacing between consecutive sends.
	Delay time.Duration
}

type Gate struct {
	n   notifier.Notifier
	log logx.Logger

	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter
}

func NewGate(n notifier.Notifier, cfg Config, log logx.Logger) *Gate {
	if log.IsZero() {
		log = logx.Nop()
	}
	g := &Gate{n: n, log: log}
	g.Apply(cfg)
	return g
}

// Apply updates retry and pacing settings at runtime.
func (g *Gate) Apply(cfg Config) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Delay <= 0 {
		cfg.Delay = 2 * time.Second
	}
	g.mu.Lock()
	g.cfg = cfg
	// Burst 1: the first send goes immediately, every following send
	// waits out the configured spacing.
	g.limiter = rate.NewLimiter(rate.Every(cfg.Delay), 1)
	g.mu.Unlock()
}

func (g *Gate) SendText(ctx context.Context, dest, text string) error {
	return g.withRetry(ctx, dest, func(ctx context.Context) error {
		return g.n.SendText(ctx, dest, text)
	})
}

// SendDocument delivers the artifact with its caption. A caption over the
// limit becomes two sends to the same destination, in order: the document
// with the head of the caption, then the remainder as plain text.
func (g *Gate) SendDocument(ctx context.Context, dest string, doc notifier.Document, caption string) error {
	head, rest := splitCaption(caption, captionLimit)
	err := g.withRetry(ctx, dest, func(ctx context.Context) error {
		return g.n.SendDocument(ctx, dest, doc, head)
	})
	if err != nil {
		return err
	}
	if rest == "" {
		return nil
	}
	return g.withRetry(ctx, dest, func(ctx context.Context) error {
		return g.n.SendText(ctx, dest, rest)
	})
}

func (g *Gate) withRetry(ctx context.Context, dest string, op func(ctx context.Context) error) error {
	g.mu.Lock()
	cfg := g.cfg
	lim := g.limiter
	g.mu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		// Pacing: spaces this attempt at least cfg.Delay after the
		// previous send, whether that one succeeded or failed.
		if err := lim.Wait(ctx); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		var rl *notifier.RateLimitError
		if errors.As(err, &rl) {
			g.log.Warn("send rate limited",
				logx.String("dest", dest),
				logx.Duration("retry_after", rl.RetryAfter),
				logx.Int("attempt", attempt))
			if rl.RetryAfter > 0 {
				if err := sleepCtx(ctx, rl.RetryAfter); err != nil {
					return err
				}
			}
			continue
		}
		g.log.Warn("send failed",
			logx.String("dest", dest),
			logx.Err(err),
			logx.Int("attempt", attempt),
			logx.Int("max_attempts", cfg.MaxAttempts))
	}
	return &ExhaustedError{Dest: dest, Attempts: cfg.MaxAttempts, Err: lastErr}
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

// splitCaption cuts caption at the limit (in runes), preferring the last
// newline boundary in the window so a field never tears mid-line.
func splitCaption(caption string, limit int) (string, string) {
	rs := []rune(caption)
	if len(rs) < limit {
		return caption, ""
	}
	cut := limit - 1
	for i := limit - 1; i > limit/3; i-- {
		if rs[i] == '\n' {
			cut = i
			break
		}
	}
	head := strings.TrimRight(string(rs[:cut]), "\n")
	rest := strings.TrimLeft(string(rs[cut:]), "\n")
	return head, rest
}
