package relay

import (
	"net/url"
	"path"
	"strings"

	"feedrelay/internal/feed"
	"feedrelay/internal/notifier"
)

// trackers is the fixed announce list baked into generated magnet links,
// matching what the upstream indexer publishes.
var trackers = []string{
	"http://nyaa.tracker.wf:7777/announce",
	"udp://open.stealth.si:80/announce",
	"udp://tracker.opentrackr.org:1337/announce",
	"udp://exodus.desync.com:6969/announce",
	"udp://tracker.torrent.eu.org:451/announce",
}

// MagnetLink assembles a magnet URI from the entry's infohash, with the
// title as display name and the fixed tracker list.
func MagnetLink(e feed.Entry) string {
	if e.ContentHash == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString("magnet:?xt=urn:btih:")
	b.WriteString(e.ContentHash)
	b.WriteString("&dn=")
	b.WriteString(url.QueryEscape(e.Title))
	for _, tr := range trackers {
		b.WriteString("&tr=")
		b.WriteString(url.QueryEscape(tr))
	}
	return b.String()
}

// BuildCaption renders the HTML caption for one entry. Field order
// matters: the magnet link and publish date come last so that when the
// delivery gate splits an oversized caption, they are what moves into the
// follow-up text message.
func BuildCaption(e feed.Entry) string {
	var b strings.Builder

	b.WriteString("<b>" + notifier.Esc(e.Title) + "</b>\n\n")

	if e.CategoryLabel != "" {
		b.WriteString("Category: " + notifier.Esc(e.CategoryLabel) + "\n")
	}
	if e.SizeLabel != "" {
		b.WriteString("Size: " + notifier.Esc(e.SizeLabel) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(notifier.Link("Download", e.ArtifactURL) + "\n")
	b.WriteString(notifier.Link("View", e.OriginURL) + "\n\n")

	b.WriteString("ID: " + notifier.Esc(e.ID) + "\n")
	if e.ContentHash != "" {
		b.WriteString("InfoHash: " + notifier.Code(e.ContentHash) + "\n")
	}

	if m := MagnetLink(e); m != "" {
		b.WriteString("\n" + notifier.Link("Magnet", m) + "\n")
	}
	if e.PublishedAt != "" {
		b.WriteString("Published: " + notifier.Esc(e.PublishedAt) + "\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// SuggestedFileName derives the artifact's suggested name from the entry:
// the title plus the artifact URL's extension (".torrent" when absent).
func SuggestedFileName(e feed.Entry) string {
	ext := ".torrent"
	if u, err := url.Parse(e.ArtifactURL); err == nil {
		if x := path.Ext(u.Path); x != "" {
			ext = x
		}
	}
	base := strings.TrimSpace(e.Title)
	if base == "" {
		base = e.ID
	}
	return base + ext
}
