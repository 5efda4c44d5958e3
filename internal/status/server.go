// Package status exposes a small read-only HTTP surface for operators:
// liveness plus a pipeline snapshot (queue depth, ledger size, last
// delivery). It never mutates pipeline state.
package status

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"feedrelay/internal/ledger"
	"feedrelay/internal/queue"
	"feedrelay/internal/relay"
	"feedrelay/pkg/logx"
)

type Server struct {
	addr  string
	stats *relay.Stats
	q     *queue.Queue
	led   ledger.Ledger
	log   logx.Logger

	srv *http.Server
}

func NewServer(addr string, stats *relay.Stats, q *queue.Queue, led ledger.Ledger, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{addr: addr, stats: stats, q: q, led: led, log: log}
}

func (s *Server) routes() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.stats.Snapshot(s.q.Len(), s.led.Len()))
	})
	return r
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:         s.addr,
		Handler:      s.routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.ListenAndServe()
	}()
	s.log.Info("status server listening", logx.String("addr", s.addr))

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
