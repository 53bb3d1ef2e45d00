package fetch

import (
	"context"
	"fmt"
)

// Mode selects the fetch strategy. Callers choose explicitly; nothing here
// inspects the page to decide.
type Mode string

const (
	ModeHTTP    Mode = "http"
	ModeBrowser Mode = "browser"
)

// Kind classifies a fetch failure.
type Kind string

const (
	KindTimeout          Kind = "timeout"
	KindHTTPStatus       Kind = "http_status"
	KindConnectionFailed Kind = "connection_failed"
)

// Error is the failure of a single fetch attempt.
type Error struct {
	Kind   Kind
	URL    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
	case KindTimeout:
		return fmt.Sprintf("fetch %s: timed out", e.URL)
	default:
		return fmt.Sprintf("fetch %s: connection failed: %v", e.URL, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Client retrieves the raw markup of a single page. Implementations make
// exactly one attempt per call; retry policy belongs to the caller.
type Client interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Selector holds the two strategies and hands out one by mode.
type Selector struct {
	HTTP    Client
	Browser Client
}

// ForMode returns the client for the requested mode.
func (s *Selector) ForMode(mode Mode) (Client, error) {
	switch mode {
	case ModeHTTP, "":
		return s.HTTP, nil
	case ModeBrowser:
		return s.Browser, nil
	default:
		return nil, fmt.Errorf("unsupported client mode %q", mode)
	}
}
