package artifact

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "clean", in: "Show.S01E01.torrent", want: "Show.S01E01.torrent"},
		{name: "illegal chars", in: `a\b/c:d*e?f"g<h>i|j`, want: "abcdefghij"},
		{name: "control chars", in: "a\x00b\x1fc\x7fd", want: "abcd"},
		{name: "leading trailing dots", in: "..hidden.name..", want: "hidden.name"},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Fatalf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestBucketDir(t *testing.T) {
	t.Parallel()
	tests := []struct {
		id   string
		want string
	}{
		{id: "100", want: "0xxx"},
		{id: "999", want: "0xxx"},
		{id: "1000", want: "1xxx"},
		{id: "1837065", want: "1837xxx"},
	}
	for _, tt := range tests {
		if got := bucketDir(tt.id); got != tt.want {
			t.Fatalf("bucketDir(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestSaveLayout(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	path, name, err := s.Save("100", "Show.S01E01.torrent", []byte("data"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if name != "Show.S01E01.torrent" {
		t.Fatalf("record name = %q, want %q", name, "Show.S01E01.torrent")
	}
	if filepath.Base(path) != "100-Show.S01E01.torrent" {
		t.Fatalf("on-disk name = %q, want %q", filepath.Base(path), "100-Show.S01E01.torrent")
	}
	if filepath.Base(filepath.Dir(path)) != "0xxx" {
		t.Fatalf("bucket dir = %q, want 0xxx", filepath.Base(filepath.Dir(path)))
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("saved file missing: %v", err)
	}
}

func TestSaveCollisions(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	// Same suggested name, different ids: never the same path.
	p1, _, err := s.Save("1", "name.torrent", []byte("a"))
	if err != nil {
		t.Fatalf("Save 1: %v", err)
	}
	p2, _, err := s.Save("2", "name.torrent", []byte("b"))
	if err != nil {
		t.Fatalf("Save 2: %v", err)
	}
	if p1 == p2 {
		t.Fatalf("distinct ids aliased to %q", p1)
	}

	// Same id and name (a retry): counter-suffixed second path.
	p3, n3, err := s.Save("1", "name.torrent", []byte("c"))
	if err != nil {
		t.Fatalf("Save retry: %v", err)
	}
	if p3 == p1 {
		t.Fatalf("retry aliased to %q", p1)
	}
	if n3 != "name_1.torrent" {
		t.Fatalf("retry record name = %q, want name_1.torrent", n3)
	}
}

func TestSaveShortensLongNames(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	long := strings.Repeat("x", 400) + ".torrent"
	path, _, err := s.Save("42", long, []byte("d"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n := len(filepath.Base(path)); n > maxNameBytes {
		t.Fatalf("filename is %d bytes, cap is %d", n, maxNameBytes)
	}
	if !strings.HasSuffix(path, ".torrent") {
		t.Fatalf("extension lost: %q", path)
	}
}
