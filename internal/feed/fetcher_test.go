package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"feedrelay/pkg/logx"
)

const sampleFeed = `<?xml version="1.0" encoding="utf-8"?>
<rss version="2.0" xmlns:nyaa="https://nyaa.si/xmlns/nyaa">
 <channel>
  <title>release feed</title>
  <item>
   <title>Show.S01E02.1080p</title>
   <link>https://nyaa.si/download/1837066.torrent</link>
   <guid isPermaLink="true">https://nyaa.si/view/1837066</guid>
   <pubDate>Mon, 24 Aug 2026 10:00:00 -0000</pubDate>
   <nyaa:infoHash>bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb</nyaa:infoHash>
   <nyaa:categoryId>1_2</nyaa:categoryId>
   <nyaa:category>Anime - English-translated</nyaa:category>
   <nyaa:size>723.4 MiB</nyaa:size>
  </item>
  <item>
   <title>Show.S01E01.1080p</title>
   <link>https://nyaa.si/download/1837065.torrent</link>
   <guid isPermaLink="true">https://nyaa.si/view/1837065</guid>
   <pubDate>Mon, 24 Aug 2026 09:00:00 -0000</pubDate>
   <nyaa:infoHash>aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa</nyaa:infoHash>
   <nyaa:categoryId>1_2</nyaa:categoryId>
   <nyaa:category>Anime - English-translated</nyaa:category>
   <nyaa:size>721.9 MiB</nyaa:size>
  </item>
  <item>
   <title>broken item without link</title>
   <guid isPermaLink="true">https://nyaa.si/view/1837064</guid>
  </item>
 </channel>
</rss>`

func TestFetchAllParsesEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, 5*time.Second, logx.Nop())
	entries, err := f.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	// The malformed third item is skipped, not fatal.
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}

	e := entries[0]
	if e.ID != "1837066" {
		t.Errorf("ID = %q, want 1837066", e.ID)
	}
	if e.Title != "Show.S01E02.1080p" {
		t.Errorf("Title = %q", e.Title)
	}
	if e.ArtifactURL != "https://nyaa.si/download/1837066.torrent" {
		t.Errorf("ArtifactURL = %q", e.ArtifactURL)
	}
	if e.OriginURL != "https://nyaa.si/view/1837066" {
		t.Errorf("OriginURL = %q", e.OriginURL)
	}
	if e.CategoryID != "1_2" {
		t.Errorf("CategoryID = %q, want 1_2", e.CategoryID)
	}
	if e.CategoryLabel != "Anime - English-translated" {
		t.Errorf("CategoryLabel = %q", e.CategoryLabel)
	}
	if e.SizeLabel != "723.4 MiB" {
		t.Errorf("SizeLabel = %q", e.SizeLabel)
	}
	if e.ContentHash != "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb" {
		t.Errorf("ContentHash = %q", e.ContentHash)
	}

	// Native newest-first order is preserved.
	if entries[1].ID != "1837065" {
		t.Errorf("second entry ID = %q, want 1837065", entries[1].ID)
	}
}

func TestFetchLatest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, 5*time.Second, logx.Nop())
	e, ok, err := f.FetchLatest(context.Background())
	if err != nil {
		t.Fatalf("FetchLatest: %v", err)
	}
	if !ok {
		t.Fatal("ok = false, want true")
	}
	if e.ID != "1837066" {
		t.Errorf("ID = %q, want newest entry 1837066", e.ID)
	}
}

func TestFetchAllTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, 5*time.Second, logx.Nop())
	_, err := f.FetchAll(context.Background())
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want TransportError", err)
	}
}

func TestFetchAllValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not xml at all"))
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, 5*time.Second, logx.Nop())
	_, err := f.FetchAll(context.Background())
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
}

func TestIDFromGUID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		guid    string
		want    string
		wantErr bool
	}{
		{guid: "https://nyaa.si/view/1837065", want: "1837065"},
		{guid: "https://nyaa.si/view/1837065/", want: "1837065"},
		{guid: "https://example.org/a/b/c", want: "c"},
		{guid: "plain-id", want: "plain-id"},
		{guid: "https://example.org/", wantErr: true},
		{guid: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := idFromGUID(tt.guid)
		if tt.wantErr {
			if err == nil {
				t.Errorf("idFromGUID(%q): expected error, got %q", tt.guid, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("idFromGUID(%q): %v", tt.guid, err)
			continue
		}
		if got != tt.want {
			t.Errorf("idFromGUID(%q) = %q, want %q", tt.guid, got, tt.want)
		}
	}
}
