// Package notifier defines the outbound notification boundary. The
// transport behind it (Telegram) is a collaborator; the pipeline only
// depends on this interface and on the rate-limit error signal.
package notifier

import (
	"context"
	"fmt"
	"time"
)

// Document is a binary attachment sent alongside a caption.
type Document struct {
	Name string
	Data []byte
}

// Notifier sends rendered messages to a destination (a chat id or
// @channel name). Text is HTML-formatted; callers escape feed-supplied
// values before building it.
type Notifier interface {
	SendText(ctx context.Context, dest, text string) error
	SendDocument(ctx context.Context, dest string, doc Document, caption string) error
}

// RateLimitError is the transport's throttle signal, carrying the wait
// the service suggested before the next attempt.
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }
