package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"feedrelay/pkg/logx"
)

const maxFeedBytes = 8 << 20

// Source is the pull boundary the pipeline consumes entries through.
type Source interface {
	// FetchAll returns entries in the feed's native order (newest-first).
	FetchAll(ctx context.Context) ([]Entry, error)
	// FetchLatest returns only the most recent entry, if any.
	FetchLatest(ctx context.Context) (Entry, bool, error)
}

// Fetcher retrieves and parses the upstream RSS feed.
type Fetcher struct {
	url    string
	client *http.Client
	parser *gofeed.Parser
	log    logx.Logger
}

func NewFetcher(feedURL string, timeout time.Duration, log logx.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Fetcher{
		url:    feedURL,
		client: &http.Client{Timeout: timeout},
		parser: gofeed.NewParser(),
		log:    log,
	}
}

func (f *Fetcher) FetchAll(ctx context.Context) ([]Entry, error) {
	raw, err := f.download(ctx)
	if err != nil {
		return nil, err
	}

	parsed, err := f.parser.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, &ValidationError{URL: f.url, Err: err}
	}

	entries := make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		e, err := f.toEntry(item)
		if err != nil {
			// A single bad item does not poison the batch.
			f.log.Warn("skipping malformed feed item", logx.String("guid", item.GUID), logx.Err(err))
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (f *Fetcher) FetchLatest(ctx context.Context) (Entry, bool, error) {
	entries, err := f.FetchAll(ctx)
	if err != nil {
		return Entry{}, false, err
	}
	if len(entries) == 0 {
		return Entry{}, false, nil
	}
	return entries[0], true, nil
}

func (f *Fetcher) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, &TransportError{URL: f.url, Err: err}
	}
	req.Header.Set("User-Agent", "feedrelay/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: f.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{URL: f.url, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, &TransportError{URL: f.url, Err: err}
	}
	return raw, nil
}

func (f *Fetcher) toEntry(item *gofeed.Item) (Entry, error) {
	if item == nil {
		return Entry{}, fmt.Errorf("nil item")
	}
	guid := strings.TrimSpace(item.GUID)
	if guid == "" {
		guid = strings.TrimSpace(item.Link)
	}
	id, err := idFromGUID(guid)
	if err != nil {
		return Entry{}, err
	}
	if strings.TrimSpace(item.Link) == "" {
		return Entry{}, fmt.Errorf("item %s: missing download link", id)
	}

	return Entry{
		ID:            id,
		Title:         strings.TrimSpace(item.Title),
		ArtifactURL:   strings.TrimSpace(item.Link),
		OriginURL:     guid,
		PublishedAt:   strings.TrimSpace(item.Published),
		CategoryID:    extValue(item, "categoryId"),
		CategoryLabel: extValue(item, "category"),
		SizeLabel:     extValue(item, "size"),
		ContentHash:   extValue(item, "infoHash"),
	}, nil
}

// idFromGUID extracts the entry id from the GUID's URL form:
// the last path segment.
func idFromGUID(guid string) (string, error) {
	if guid == "" {
		return "", fmt.Errorf("empty guid")
	}
	u, err := url.Parse(guid)
	if err != nil {
		return "", fmt.Errorf("guid %q: %w", guid, err)
	}
	p := strings.TrimRight(u.Path, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	if p == "" {
		return "", fmt.Errorf("guid %q: no path segment", guid)
	}
	return p, nil
}

// extValue reads a namespaced extension element (the nyaa: namespace),
// tolerating case variation in the element name.
func extValue(item *gofeed.Item, name string) string {
	ns, ok := item.Extensions["nyaa"]
	if !ok {
		return ""
	}
	for key, exts := range ns {
		if !strings.EqualFold(key, name) {
			continue
		}
		for _, ext := range exts {
			if v := strings.TrimSpace(ext.Value); v != "" {
				return v
			}
		}
	}
	return ""
}
