package fetch

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPClient is the direct fetch strategy: one plain request, redirects
// followed, fail fast on non-2xx. Resty's built-in retries are disabled so the
// pagination walker owns the retry policy.
type HTTPClient struct {
	client *resty.Client
}

// NewHTTPClient builds the direct strategy with the configured identity
// headers and timeout.
func NewHTTPClient(userAgent string, timeout time.Duration) *HTTPClient {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "uk-UA,uk;q=0.9,en;q=0.8,ru;q=0.7")

	return &HTTPClient{client: client}
}

// Fetch retrieves the page body in a single attempt.
func (h *HTTPClient) Fetch(ctx context.Context, url string) (string, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		Get(url)

	if err != nil {
		return "", &Error{Kind: classifyTransport(err), URL: url, Err: err}
	}

	if !resp.IsSuccess() {
		return "", &Error{Kind: KindHTTPStatus, URL: url, Status: resp.StatusCode()}
	}

	return string(resp.Body()), nil
}

// Classify wraps a transport error into a typed fetch error. It returns nil
// for a nil input so callers can pass errors through unconditionally.
func Classify(err error, url string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: classifyTransport(err), URL: url, Err: err}
}

func classifyTransport(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return KindTimeout
	}
	return KindConnectionFailed
}
