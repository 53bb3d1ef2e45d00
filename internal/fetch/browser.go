package fetch

import (
	"context"
	"errors"
	"time"

	"github.com/chromedp/chromedp"
)

// BrowserClient is the rendered fetch strategy: the page is loaded in a
// headless browser, scripts run, and the settled DOM is extracted. Strictly
// slower than HTTPClient; used for sources that populate content client-side.
type BrowserClient struct {
	userAgent string
	timeout   time.Duration
	settle    time.Duration
}

// NewBrowserClient builds the rendered strategy. settle bounds how long the
// page is given after load before the DOM is captured.
func NewBrowserClient(userAgent string, timeout, settle time.Duration) *BrowserClient {
	return &BrowserClient{
		userAgent: userAgent,
		timeout:   timeout,
		settle:    settle,
	}
}

// Fetch renders the page in an isolated browser context. The allocator and
// tab live only for this call, so no state bleeds between requests.
func (b *BrowserClient) Fetch(ctx context.Context, url string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.UserAgent(b.userAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	runCtx, cancelRun := context.WithTimeout(tabCtx, b.timeout)
	defer cancelRun()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(b.settle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		kind := KindConnectionFailed
		if errors.Is(err, context.DeadlineExceeded) {
			kind = KindTimeout
		}
		return "", &Error{Kind: kind, URL: url, Err: err}
	}

	return html, nil
}
