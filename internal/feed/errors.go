package feed

import "fmt"

// TransportError is a network-level failure (connect, timeout, non-2xx)
// while retrieving the feed or an artifact. Non-fatal: the next scheduled
// cycle proceeds regardless.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError is a malformed-feed failure: the bytes arrived but did
// not parse as a structurally valid feed. Reported distinctly from
// transport failures.
type ValidationError struct {
	URL string
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %v", e.URL, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
