// Package app wires the pipeline together: every component gets its
// collaborators passed in explicitly at construction; the queue is the
// only shared-ownership boundary between the poller and the processor.
package app

import (
	"context"
	"fmt"
	"time"

	"feedrelay/internal/artifact"
	"feedrelay/internal/config"
	"feedrelay/internal/delivery"
	"feedrelay/internal/feed"
	"feedrelay/internal/ledger"
	"feedrelay/internal/notifier/telegram"
	"feedrelay/internal/queue"
	"feedrelay/internal/relay"
	"feedrelay/internal/runtime/supervisor"
	"feedrelay/internal/status"
	"feedrelay/pkg/logx"
)

type App struct {
	cfg    *config.Config
	mgr    *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	led   ledger.Ledger
	q     *queue.Queue
	gate  *delivery.Gate
	alert *relay.Alerter
	stats *relay.Stats

	poller *relay.Poller
	proc   *relay.Processor
	stat   *status.Server

	sup *supervisor.Supervisor
}

func New(opts config.Options) (*App, error) {
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: true,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	feedTimeout, _ := config.ParseDurationOrDefault("feed.timeout", cfg.Feed.Timeout, 30*time.Second)
	dlTimeout, _ := config.ParseDurationOrDefault("download.timeout", cfg.Download.Timeout, 60*time.Second)
	interval, _ := config.ParseDurationOrDefault("feed.interval", cfg.Feed.Interval, 5*time.Minute)
	delay, _ := config.ParseDurationOrDefault("delivery.delay", cfg.Delivery.Delay, 2*time.Second)

	tg, err := telegram.New(telegram.Config{Token: cfg.Telegram.Token}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}

	led, err := ledger.Open(ledger.Config{Driver: cfg.Ledger.Driver, Path: cfg.Ledger.Path}, log.With(logx.String("comp", "ledger")))
	if err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}

	store, err := artifact.NewStore(cfg.Download.Dir)
	if err != nil {
		return nil, fmt.Errorf("artifact store: %w", err)
	}

	src := feed.NewFetcher(cfg.Feed.URL, feedTimeout, log.With(logx.String("comp", "feed")))
	q := queue.New()
	stats := relay.NewStats()
	gate := delivery.NewGate(tg, delivery.Config{
		MaxAttempts: cfg.Delivery.MaxAttempts,
		Delay:       delay,
	}, log.With(logx.String("comp", "delivery")))
	alert := relay.NewAlerter(tg, cfg.Telegram.OperatorChat, log.With(logx.String("comp", "alert")))
	router := relay.NewRouter(cfg.Telegram.Channel, cfg.Rules)
	dog := relay.NewWatchdog(src, led, alert, log.With(logx.String("comp", "watchdog")))

	poller := relay.NewPoller(src, q, led, alert, stats, interval, log.With(logx.String("comp", "poller")))
	proc := relay.NewProcessor(relay.ProcessorDeps{
		Queue:    q,
		Ledger:   led,
		Fetcher:  artifact.NewFetcher(dlTimeout),
		Store:    store,
		Gate:     gate,
		Router:   router,
		Alerter:  alert,
		Watchdog: dog,
		Stats:    stats,
		Log:      log.With(logx.String("comp", "processor")),
	})

	a := &App{
		cfg:    cfg,
		logSvc: logSvc,
		log:    log,
		led:    led,
		q:      q,
		gate:   gate,
		alert:  alert,
		stats:  stats,
		poller: poller,
		proc:   proc,
	}

	if cfg.Status.Enabled {
		a.stat = status.NewServer(cfg.Status.Addr, stats, q, led, log.With(logx.String("comp", "status")))
	}

	a.mgr = config.NewManager(opts.ConfigPath, opts, log.With(logx.String("comp", "config")))
	a.mgr.Commit(cfg)

	return a, nil
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log))

	// Long loops self-heal: panics and unexpected returns restart with
	// backoff instead of taking the process down.
	a.sup.GoRestart("processor", a.proc.Run, time.Second, 30*time.Second)
	a.sup.GoRestart("poller", a.poller.Run, time.Second, 30*time.Second)

	a.sup.Go("config.watch", a.mgr.Watch)
	a.sup.Go0("config.apply", func(ctx context.Context) {
		a.applyLoop(ctx)
	})

	if a.stat != nil {
		a.sup.GoRestart("status", a.stat.Run, time.Second, 30*time.Second)
	}

	a.log.Info("started",
		logx.String("feed", a.cfg.Feed.URL),
		logx.String("channel", a.cfg.Telegram.Channel),
		logx.Int("rules", len(a.cfg.Rules)),
		logx.Int("ledger_ids", a.led.Len()))
	a.alert.Alert(ctx, "feedrelay started")
	return nil
}

// applyLoop hot-applies the safe config subset on file reloads: log
// level and delivery pacing. Structural settings (feed URL, routing
// rules, ledger path) stay fixed for the process lifetime.
func (a *App) applyLoop(ctx context.Context) {
	sub := a.mgr.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case cfg := <-sub:
			if cfg == nil {
				continue
			}
			a.logSvc.Apply(logx.Config{
				Level:   cfg.Logging.Level,
				Console: true,
				File: logx.FileConfig{
					Enabled: cfg.Logging.File.Enabled,
					Path:    cfg.Logging.File.Path,
				},
			})
			delay, err := config.ParseDurationOrDefault("delivery.delay", cfg.Delivery.Delay, 2*time.Second)
			if err != nil {
				a.log.Warn("ignoring delivery.delay change", logx.Err(err))
				continue
			}
			a.gate.Apply(delivery.Config{MaxAttempts: cfg.Delivery.MaxAttempts, Delay: delay})
			a.log.Info("applied config changes",
				logx.String("log_level", cfg.Logging.Level),
				logx.Int("max_attempts", cfg.Delivery.MaxAttempts),
				logx.Duration("delay", delay))
		}
	}
}

func (a *App) Stop(ctx context.Context) error {
	a.alert.Alert(ctx, "feedrelay stopping")

	if a.sup != nil {
		a.sup.Cancel()
		if err := a.sup.Wait(ctx); err != nil && ctx.Err() != nil {
			a.log.Warn("shutdown timed out", logx.Err(err))
		}
	}

	if err := a.led.Close(); err != nil {
		a.log.Warn("ledger close failed", logx.Err(err))
	}
	a.log.Info("stopped")
	return a.logSvc.Close()
}
