package feed

// Entry is one item from the upstream feed. Entries are immutable once
// produced by the fetcher; downstream code never sees a partially
// populated record.
type Entry struct {
	// ID is the last path segment of the item's GUID URL
	// (e.g. "1837065" from "https://nyaa.si/view/1837065").
	ID string

	// Title is raw feed text; escape before sending with HTML parse mode.
	Title string

	// ArtifactURL points at the .torrent file.
	ArtifactURL string

	// OriginURL is the human-viewable page (the GUID URL).
	OriginURL string

	// PublishedAt is the feed-supplied timestamp string, kept verbatim.
	PublishedAt string

	CategoryID    string
	CategoryLabel string
	SizeLabel     string

	// ContentHash is the torrent infohash.
	ContentHash string
}
