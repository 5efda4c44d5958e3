package relay

import (
	"sync"
	"time"
)

// Stats is a read-mostly snapshot source for the status endpoint.
type Stats struct {
	mu              sync.Mutex
	startedAt       time.Time
	lastPollAt      time.Time
	lastFeedCount   int
	lastDeliveredAt time.Time
	lastDeliveredID string
	delivered       uint64
}

// Snapshot is the JSON shape served by /status.
type Snapshot struct {
	StartedAt       time.Time `json:"started_at"`
	Uptime          string    `json:"uptime"`
	LastPollAt      time.Time `json:"last_poll_at,omitempty"`
	LastFeedCount   int       `json:"last_feed_count"`
	LastDeliveredAt time.Time `json:"last_delivered_at,omitempty"`
	LastDeliveredID string    `json:"last_delivered_id,omitempty"`
	Delivered       uint64    `json:"delivered"`
	QueueLen        int       `json:"queue_len"`
	LedgerLen       int       `json:"ledger_len"`
}

func NewStats() *Stats {
	return &Stats{startedAt: time.Now()}
}

func (s *Stats) NotePoll(feedCount int) {
	s.mu.Lock()
	s.lastPollAt = time.Now()
	s.lastFeedCount = feedCount
	s.mu.Unlock()
}

func (s *Stats) NoteDelivered(id string) {
	s.mu.Lock()
	s.lastDeliveredAt = time.Now()
	s.lastDeliveredID = id
	s.delivered++
	s.mu.Unlock()
}

func (s *Stats) Snapshot(queueLen, ledgerLen int) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		StartedAt:       s.startedAt,
		Uptime:          time.Since(s.startedAt).Round(time.Second).String(),
		LastPollAt:      s.lastPollAt,
		LastFeedCount:   s.lastFeedCount,
		LastDeliveredAt: s.lastDeliveredAt,
		LastDeliveredID: s.lastDeliveredID,
		Delivered:       s.delivered,
		QueueLen:        queueLen,
		LedgerLen:       ledgerLen,
	}
}
