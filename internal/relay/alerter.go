package relay

import (
	"context"
	"fmt"
	"time"

	"feedrelay/internal/notifier"
	"feedrelay/pkg/logx"
)

// Alerter sends operator-facing notices to the fixed alert destination.
// All sends are best-effort: a failed alert is logged, never re-raised,
// so a broken alert channel can't wedge the pipeline.
type Alerter struct {
	n    notifier.Notifier
	dest string
	log  logx.Logger
}

func NewAlerter(n notifier.Notifier, dest string, log logx.Logger) *Alerter {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Alerter{n: n, dest: dest, log: log}
}

func (a *Alerter) Alert(ctx context.Context, text string) {
	if a == nil || a.dest == "" {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := a.n.SendText(sctx, a.dest, notifier.Esc(text)); err != nil {
		a.log.Warn("operator alert failed", logx.Err(err), logx.String("text", text))
	}
}

func (a *Alerter) Alertf(ctx context.Context, format string, args ...any) {
	a.Alert(ctx, fmt.Sprintf(format, args...))
}
