package delivery

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"feedrelay/internal/notifier"
	"feedrelay/pkg/logx"
)

type sent struct {
	dest    string
	text    string
	caption string
	isDoc   bool
}

// stubNotifier records sends and fails the first n attempts with a
// configurable error.
type stubNotifier struct {
	mu       sync.Mutex
	sends    []sent
	attempts int
	failN    int
	failWith error
}

func (s *stubNotifier) call(rec sent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.attempts <= s.failN {
		return s.failWith
	}
	s.sends = append(s.sends, rec)
	return nil
}

func (s *stubNotifier) SendText(ctx context.Context, dest, text string) error {
	return s.call(sent{dest: dest, text: text})
}

func (s *stubNotifier) SendDocument(ctx context.Context, dest string, doc notifier.Document, caption string) error {
	return s.call(sent{dest: dest, caption: caption, isDoc: true})
}

func newTestGate(n notifier.Notifier, attempts int) *Gate {
	return NewGate(n, Config{MaxAttempts: attempts, Delay: 5 * time.Millisecond}, logx.Nop())
}

func TestSendTextRetriesThenSucceeds(t *testing.T) {
	stub := &stubNotifier{failN: 1, failWith: errors.New("boom")}
	g := newTestGate(stub, 3)

	if err := g.SendText(context.Background(), "chat", "hi"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if stub.attempts != 2 {
		t.Fatalf("attempts = %d, want 2", stub.attempts)
	}
}

func TestSendTextExhausted(t *testing.T) {
	stub := &stubNotifier{failN: 99, failWith: errors.New("boom")}
	g := newTestGate(stub, 3)

	err := g.SendText(context.Background(), "chat", "hi")
	var ex *ExhaustedError
	if !errors.As(err, &ex) {
		t.Fatalf("error = %v, want ExhaustedError", err)
	}
	if ex.Attempts != 3 || stub.attempts != 3 {
		t.Fatalf("attempts = %d/%d, want 3", ex.Attempts, stub.attempts)
	}
}

func TestRateLimitBackoff(t *testing.T) {
	suggested := 60 * time.Millisecond
	stub := &stubNotifier{
		failN:    1,
		failWith: &notifier.RateLimitError{RetryAfter: suggested, Err: errors.New("429")},
	}
	g := newTestGate(stub, 3)

	start := time.Now()
	if err := g.SendText(context.Background(), "chat", "hi"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if stub.attempts != 2 {
		t.Fatalf("attempts = %d, want 2", stub.attempts)
	}
	if elapsed := time.Since(start); elapsed < suggested {
		t.Fatalf("elapsed %v, want at least the suggested wait %v", elapsed, suggested)
	}
}

func TestSendDocumentShortCaption(t *testing.T) {
	stub := &stubNotifier{}
	g := newTestGate(stub, 3)

	caption := "short caption"
	err := g.SendDocument(context.Background(), "chat", notifier.Document{Name: "a.torrent"}, caption)
	if err != nil {
		t.Fatalf("SendDocument: %v", err)
	}
	if len(stub.sends) != 1 {
		t.Fatalf("sends = %d, want 1", len(stub.sends))
	}
	if !stub.sends[0].isDoc || stub.sends[0].caption != caption {
		t.Fatalf("unexpected send: %+v", stub.sends[0])
	}
}

func TestSendDocumentLongCaptionSplits(t *testing.T) {
	stub := &stubNotifier{}
	g := newTestGate(stub, 3)

	var b strings.Builder
	for b.Len() < captionLimit+200 {
		b.WriteString("line of caption text\n")
	}
	caption := b.String()

	err := g.SendDocument(context.Background(), "chat", notifier.Document{Name: "a.torrent"}, caption)
	if err != nil {
		t.Fatalf("SendDocument: %v", err)
	}
	if len(stub.sends) != 2 {
		t.Fatalf("sends = %d, want 2", len(stub.sends))
	}
	if !stub.sends[0].isDoc {
		t.Fatal("first send must carry the document")
	}
	if stub.sends[1].isDoc {
		t.Fatal("second send must be text-only")
	}
	if stub.sends[0].dest != stub.sends[1].dest {
		t.Fatal("both parts must go to the same destination")
	}
	if got := len([]rune(stub.sends[0].caption)); got >= captionLimit {
		t.Fatalf("document caption is %d runes, cap is %d", got, captionLimit)
	}
	if stub.sends[1].text == "" {
		t.Fatal("follow-up text is empty")
	}
}

func TestSplitCaption(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		caption  string
		wantRest bool
	}{
		{name: "under limit", caption: strings.Repeat("a", captionLimit-1), wantRest: false},
		{name: "at limit", caption: strings.Repeat("a", captionLimit), wantRest: true},
		{name: "over limit", caption: strings.Repeat("a\n", captionLimit), wantRest: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			head, rest := splitCaption(tt.caption, captionLimit)
			if (rest != "") != tt.wantRest {
				t.Fatalf("rest = %q, wantRest = %v", rest, tt.wantRest)
			}
			if got := len([]rune(head)); got >= captionLimit && tt.wantRest {
				t.Fatalf("head is %d runes, cap is %d", got, captionLimit)
			}
		})
	}
}
