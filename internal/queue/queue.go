// Package queue provides the hand-off point between the feed poller and
// the entry processor: an unbounded, order-preserving FIFO that is safe
// for concurrent append and pop without caller-side locking.
package queue

import (
	"sync"

	"feedrelay/internal/feed"
)

type Queue struct {
	mu      sync.Mutex
	entries []feed.Entry
}

func New() *Queue {
	return &Queue{}
}

// Push appends entries to the tail in the given order.
func (q *Queue) Push(entries ...feed.Entry) {
	if len(entries) == 0 {
		return
	}
	q.mu.Lock()
	q.entries = append(q.entries, entries...)
	q.mu.Unlock()
}

// Pop removes and returns the head entry. The entry leaves the queue
// before processing begins; a crash mid-processing does not re-surface it.
func (q *Queue) Pop() (feed.Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return feed.Entry{}, false
	}
	e := q.entries[0]
	q.entries = q.entries[1:]
	return e, true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Contains reports whether an entry with the given id is pending.
// Used by the poller to avoid stacking duplicates across poll cycles
// while the processor is behind.
func (q *Queue) Contains(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.entries {
		if e.ID == id {
			return true
		}
	}
	return false
}
