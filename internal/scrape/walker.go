package scrape

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/olekros/zvistka/internal/fetch"
	"github.com/olekros/zvistka/internal/logger"
	"github.com/olekros/zvistka/internal/models"
	"github.com/olekros/zvistka/internal/sources"
)

// Archiver persists raw listing markup for later replay. Optional.
type Archiver interface {
	Save(ctx context.Context, pageURL, markup string) error
}

// Config bounds a walk. MaxPages is a safety stop for sources whose listings
// never report an end.
type Config struct {
	MaxRetries     int
	RetryDelay     time.Duration
	MaxConcurrency int
	MaxPages       int
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrency < 1 {
		c.MaxConcurrency = 1
	}
	if c.MaxPages < 1 {
		c.MaxPages = 30
	}
	return c
}

// Walker drives paginated listing fetches through an adapter until the date
// cutoff is passed or pages run out. Pages advance sequentially (each page's
// URL is derived from its predecessor); article fetches within a page run
// with a bounded worker budget.
type Walker struct {
	registry *sources.Registry
	clients  *fetch.Selector
	archiver Archiver
	cfg      Config
}

func NewWalker(registry *sources.Registry, clients *fetch.Selector, archiver Archiver, cfg Config) *Walker {
	return &Walker{
		registry: registry,
		clients:  clients,
		archiver: archiver,
		cfg:      cfg.withDefaults(),
	}
}

// Walk ingests the listing at listingURL. With no cutoff only the first page
// is read; an explicit cutoff requests deep pagination back to that date.
// The caller's ctx bounds the entire walk: on expiry the articles already
// normalized are returned as a partial result, not an error. A hard error is
// returned only when the source is unsupported or the first listing page
// yields nothing usable.
func (w *Walker) Walk(ctx context.Context, listingURL string, cutoff *time.Time, mode fetch.Mode) (models.WalkResult, error) {
	log := logger.Get()
	start := time.Now()

	result := models.WalkResult{Source: listingURL, Articles: []models.Article{}}

	adapter, err := w.registry.ForURL(listingURL)
	if err != nil {
		result.Status = models.StatusFailed
		return result, err
	}

	client, err := w.clients.ForMode(mode)
	if err != nil {
		result.Status = models.StatusFailed
		return result, err
	}

	log.Info().
		Str("source", listingURL).
		Str("adapter", adapter.Name()).
		Str("mode", string(mode)).
		Msg("Starting listing walk")

	seen := make(map[string]struct{})
	pageURL := listingURL

	for page := 0; page < w.cfg.MaxPages; page++ {
		markup, err := w.fetchWithRetry(ctx, client, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				break // deadline hit: keep what we have
			}
			if page == 0 {
				result.Status = models.StatusFailed
				return result, err
			}
			result.Failures = append(result.Failures, models.ItemFailure{
				URL: pageURL, Stage: "listing", Reason: err.Error(),
			})
			break
		}

		if w.archiver != nil {
			w.archive(pageURL, markup)
		}

		listing, err := adapter.ExtractListing(markup, pageURL)
		if err != nil {
			if page == 0 {
				result.Status = models.StatusFailed
				return result, err
			}
			result.Failures = append(result.Failures, models.ItemFailure{
				URL: pageURL, Stage: "listing", Reason: err.Error(),
			})
			break
		}
		result.Pages++

		var eligible []models.Stub
		for _, stub := range listing.Stubs {
			if _, dup := seen[stub.URL]; dup {
				continue
			}
			seen[stub.URL] = struct{}{}
			if withinCutoff(stub.PublishedAt, cutoff) {
				eligible = append(eligible, stub)
			}
		}

		w.ingestStubs(ctx, client, adapter, listingURL, eligible, &result)

		if ctx.Err() != nil {
			break
		}
		if cutoff == nil {
			break // a single page is the default "latest" query
		}
		if pagePredatesCutoff(listing.Stubs, cutoff) {
			break
		}
		if listing.NextURL == "" || listing.NextURL == pageURL {
			break
		}
		pageURL = listing.NextURL
	}

	result.Resolve()
	result.FinishedAt = time.Now().UTC()

	log.Info().
		Str("source", listingURL).
		Int("pages", result.Pages).
		Int("articles", len(result.Articles)).
		Int("failures", len(result.Failures)).
		Str("status", result.Status).
		Dur("duration", time.Since(start)).
		Msg("Finished listing walk")

	return result, nil
}

// ingestStubs fetches and normalizes one page's articles with a bounded
// worker budget. A deadline mid-batch stops launching new workers, but the
// ones already in flight are always drained before returning: the caller
// reads result without a lock afterward, so it must be quiescent.
func (w *Walker) ingestStubs(ctx context.Context, client fetch.Client, adapter sources.Adapter, sourceURL string, stubs []models.Stub, result *models.WalkResult) {
	var wg sync.WaitGroup
	var mu sync.Mutex
	semaphore := make(chan struct{}, w.cfg.MaxConcurrency)
	defer wg.Wait()

	for _, stub := range stubs {
		select {
		case <-ctx.Done():
			return
		case semaphore <- struct{}{}:
		}

		wg.Add(1)
		go func(stub models.Stub) {
			defer wg.Done()
			defer func() { <-semaphore }()

			markup, err := w.fetchWithRetry(ctx, client, stub.URL)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				mu.Lock()
				result.Failures = append(result.Failures, models.ItemFailure{
					URL: stub.URL, Stage: "article", Reason: err.Error(),
				})
				mu.Unlock()
				return
			}

			fields, err := adapter.ExtractArticle(markup, stub.URL)
			if err != nil {
				mu.Lock()
				result.Failures = append(result.Failures, models.ItemFailure{
					URL: stub.URL, Stage: "article", Reason: err.Error(),
				})
				mu.Unlock()
				return
			}

			article := BuildArticle(sourceURL, stub, fields, time.Now())
			mu.Lock()
			result.Articles = append(result.Articles, article)
			mu.Unlock()
		}(stub)
	}
}

// fetchWithRetry makes up to MaxRetries+1 attempts with a linear backoff.
// The fetch strategies themselves never retry.
func (w *Walker) fetchWithRetry(ctx context.Context, client fetch.Client, url string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= w.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(w.cfg.RetryDelay * time.Duration(attempt)):
			}
		}
		markup, err := client.Fetch(ctx, url)
		if err == nil {
			return markup, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", err
		}
		var ferr *fetch.Error
		if errors.As(err, &ferr) && ferr.Kind == fetch.KindHTTPStatus && ferr.Status >= 400 && ferr.Status < 500 && ferr.Status != 429 {
			return "", err // 4xx won't heal on retry
		}
	}
	return "", lastErr
}

func (w *Walker) archive(pageURL, markup string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := w.archiver.Save(ctx, pageURL, markup); err != nil {
			logger.Get().Warn().Err(err).Str("url", pageURL).Msg("Raw page archive failed")
		}
	}()
}

// withinCutoff reports whether a stub is eligible: published on the cutoff
// day or later. Undated stubs are included rather than dropped.
func withinCutoff(published, cutoff *time.Time) bool {
	if cutoff == nil || published == nil {
		return true
	}
	return !dateOnly(*published).Before(dateOnly(*cutoff))
}

// pagePredatesCutoff reports whether the oldest dated stub on the page is
// strictly older than the cutoff day, which ends the walk.
func pagePredatesCutoff(stubs []models.Stub, cutoff *time.Time) bool {
	if cutoff == nil {
		return false
	}
	var oldest *time.Time
	for _, stub := range stubs {
		if stub.PublishedAt == nil {
			continue
		}
		if oldest == nil || stub.PublishedAt.Before(*oldest) {
			oldest = stub.PublishedAt
		}
	}
	if oldest == nil {
		return false
	}
	return dateOnly(*oldest).Before(dateOnly(*cutoff))
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
