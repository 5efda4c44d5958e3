// Package artifact downloads entry attachments and stores them under a
// bucketed directory layout with collision-free names.
package artifact

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"feedrelay/internal/feed"
)

const maxArtifactBytes = 64 << 20

// Fetcher performs bounded-time artifact downloads.
type Fetcher struct {
	client *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch downloads the artifact at url. Timeouts, transport failures and
// non-2xx statuses all surface as *feed.TransportError.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &feed.TransportError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", "feedrelay/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &feed.TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &feed.TransportError{URL: url, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArtifactBytes))
	if err != nil {
		return nil, &feed.TransportError{URL: url, Err: err}
	}
	return data, nil
}
