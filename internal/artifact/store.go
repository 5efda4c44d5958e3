package artifact

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// maxNameBytes caps the byte length of a single filename. Most common
// filesystems allow 255; the base name is shortened until the full name
// (id prefix, counter suffix, extension included) fits.
const maxNameBytes = 255

// bucketSize bounds directory fan-out: at most this many artifacts share
// one subdirectory.
const bucketSize = 1000

// Store writes artifacts under root using the layout
// {root}/{bucket}xxx/{id}-{sanitizedBase}[_{counter}]{ext}.
type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("artifact root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

// Save derives a collision-free path for (id, suggestedName), writes data
// there and returns the full path plus the record name (the filename
// without the id prefix, as it goes into the ledger).
func (s *Store) Save(id, suggestedName string, data []byte) (string, string, error) {
	path, name, err := s.deriveName(id, suggestedName)
	if err != nil {
		return "", "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", "", err
	}
	return path, name, nil
}

// deriveName probes the filesystem and loops with an incrementing counter
// until it finds a name that does not exist yet, so repeated calls for the
// same id never alias an earlier file. The on-disk filename is the record
// name prefixed with "{id}-".
func (s *Store) deriveName(id, suggestedName string) (string, string, error) {
	dir := filepath.Join(s.root, bucketDir(id))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}

	base, ext := splitExt(Sanitize(suggestedName))
	if base == "" {
		base = id
	}

	for counter := 0; ; counter++ {
		suffix := ""
		if counter > 0 {
			suffix = "_" + strconv.Itoa(counter)
		}
		prefix := id + "-"
		name := fitName(prefix, base, suffix+ext)
		path := filepath.Join(dir, prefix+name)
		if _, err := os.Lstat(path); err != nil {
			if os.IsNotExist(err) {
				return path, name, nil
			}
			return "", "", err
		}
	}
}

// bucketDir groups ids in blocks of bucketSize: id 1234567 lands in
// "1234xxx". Non-numeric ids (not expected from this feed) hash into a
// stable bucket instead.
func bucketDir(id string) string {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		h := fnv.New32a()
		_, _ = h.Write([]byte(id))
		n = uint64(h.Sum32())
	}
	return fmt.Sprintf("%dxxx", n/bucketSize)
}

// Sanitize strips characters that are illegal on common filesystems
// (\ / : * ? " < > | and control characters) and trims leading/trailing
// periods so the name can't masquerade as a dot-file or break on Windows.
func Sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '\\', '/', ':', '*', '?', '"', '<', '>', '|':
			continue
		}
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Trim(b.String(), ".")
}

func splitExt(name string) (string, string) {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext), ext
}

// fitName shortens base (never prefix or suffix) until prefix+base+suffix
// fits in maxNameBytes, and returns base+suffix.
func fitName(prefix, base, suffix string) string {
	budget := maxNameBytes - len(prefix) - len(suffix)
	if budget < 0 {
		budget = 0
	}
	for len(base) > budget {
		_, size := lastRune(base)
		base = base[:len(base)-size]
	}
	return base + suffix
}

func lastRune(s string) (rune, int) {
	if s == "" {
		return 0, 0
	}
	for i := len(s) - 1; i >= 0; i-- {
		if (s[i] & 0xC0) != 0x80 {
			r := []rune(s[i:])
			return r[0], len(s) - i
		}
	}
	return rune(s[len(s)-1]), 1
}
