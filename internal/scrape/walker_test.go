package scrape

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olekros/zvistka/internal/fetch"
	"github.com/olekros/zvistka/internal/models"
	"github.com/olekros/zvistka/internal/sources"
)

// fakeClient serves canned responses keyed by URL and counts fetches.
type fakeClient struct {
	mu        sync.Mutex
	responses map[string]string
	errors    map[string]error
	delays    map[string]time.Duration
	fetched   map[string]int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		responses: make(map[string]string),
		errors:    make(map[string]error),
		delays:    make(map[string]time.Duration),
		fetched:   make(map[string]int),
	}
}

func (f *fakeClient) Fetch(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	if delay, ok := f.delays[url]; ok {
		f.mu.Unlock()
		time.Sleep(delay)
		f.mu.Lock()
	}
	defer f.mu.Unlock()
	f.fetched[url]++
	if err, ok := f.errors[url]; ok {
		return "", err
	}
	if body, ok := f.responses[url]; ok {
		return body, nil
	}
	return "", &fetch.Error{Kind: fetch.KindHTTPStatus, URL: url, Status: 404}
}

func (f *fakeClient) count(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetched[url]
}

// fakeAdapter treats listing markup as lines of "url|title|YYYY-MM-DD" and
// article markup as "title|body".
type fakeAdapter struct{}

func (fakeAdapter) Name() string            { return "fake" }
func (fakeAdapter) Matches(url string) bool { return strings.Contains(url, "fake.test") }

func (fakeAdapter) ExtractListing(markup, pageURL string) (sources.ListingPage, error) {
	var page sources.ListingPage
	for _, line := range strings.Split(strings.TrimSpace(markup), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if after, ok := strings.CutPrefix(line, "next:"); ok {
			page.NextURL = after
			continue
		}
		parts := strings.SplitN(line, "|", 3)
		stub := models.Stub{URL: parts[0], Title: parts[1]}
		if parts[2] != "" {
			d, err := time.Parse("2006-01-02", parts[2])
			if err != nil {
				return sources.ListingPage{}, &sources.ExtractionError{URL: pageURL, Reason: "bad fixture date"}
			}
			stub.PublishedAt = &d
		}
		page.Stubs = append(page.Stubs, stub)
	}
	if len(page.Stubs) == 0 && page.NextURL == "" {
		return sources.ListingPage{}, &sources.ExtractionError{URL: pageURL, Reason: "empty listing"}
	}
	return page, nil
}

func (fakeAdapter) ExtractArticle(markup, articleURL string) (models.ArticleFields, error) {
	parts := strings.SplitN(markup, "|", 2)
	if len(parts) != 2 {
		return models.ArticleFields{}, &sources.ExtractionError{URL: articleURL, Reason: "bad article"}
	}
	return models.ArticleFields{Title: parts[0], BodyText: parts[1]}, nil
}

func newTestWalker(client *fakeClient, cfg Config) *Walker {
	registry := sources.NewRegistry(fakeAdapter{})
	clients := &fetch.Selector{HTTP: client, Browser: client}
	return NewWalker(registry, clients, nil, cfg)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestWalkSinglePageWithoutCutoff(t *testing.T) {
	client := newFakeClient()
	client.responses["https://fake.test/news"] = `
		https://fake.test/a|Alpha|2025-08-18
		https://fake.test/b|Beta|2025-08-18
		next:https://fake.test/news?page=2`
	client.responses["https://fake.test/a"] = "Alpha|Body A"
	client.responses["https://fake.test/b"] = "Beta|Body B"

	walker := newTestWalker(client, Config{})
	result, err := walker.Walk(context.Background(), "https://fake.test/news", nil, fetch.ModeHTTP)
	require.NoError(t, err)

	assert.Equal(t, models.StatusSuccess, result.Status)
	assert.Equal(t, 1, result.Pages)
	assert.Len(t, result.Articles, 2)
	// No cutoff means no deep pagination.
	assert.Zero(t, client.count("https://fake.test/news?page=2"))
}

func TestWalkCutoffFiltersOlderItems(t *testing.T) {
	day1 := time.Date(2025, 8, 16, 0, 0, 0, 0, time.UTC)
	day2 := "2025-08-17"
	day3 := "2025-08-18"

	client := newFakeClient()
	client.responses["https://fake.test/news"] = fmt.Sprintf(`
		https://fake.test/a|Alpha|%s
		https://fake.test/b|Beta|%s
		next:https://fake.test/news?page=2`, day3, day2)
	client.responses["https://fake.test/news?page=2"] = `
		https://fake.test/c|Gamma|2025-08-16
		next:https://fake.test/news?page=3`
	client.responses["https://fake.test/a"] = "Alpha|Body A"
	client.responses["https://fake.test/b"] = "Beta|Body B"
	client.responses["https://fake.test/c"] = "Gamma|Body C"

	cutoff := day1.AddDate(0, 0, 1) // 2025-08-17
	walker := newTestWalker(client, Config{})
	result, err := walker.Walk(context.Background(), "https://fake.test/news", &cutoff, fetch.ModeHTTP)
	require.NoError(t, err)

	urls := make([]string, 0, len(result.Articles))
	for _, a := range result.Articles {
		urls = append(urls, a.ArticleURL)
	}
	assert.ElementsMatch(t, []string{"https://fake.test/a", "https://fake.test/b"}, urls)

	// Page 2 predates the cutoff entirely, so the walk stops there.
	assert.Zero(t, client.count("https://fake.test/news?page=3"))
	assert.Zero(t, client.count("https://fake.test/c"))
}

func TestWalkUndatedStubsIncluded(t *testing.T) {
	client := newFakeClient()
	client.responses["https://fake.test/news"] = `
		https://fake.test/a|Alpha|`
	client.responses["https://fake.test/a"] = "Alpha|Body A"

	cutoff := time.Date(2025, 8, 18, 0, 0, 0, 0, time.UTC)
	walker := newTestWalker(client, Config{})
	result, err := walker.Walk(context.Background(), "https://fake.test/news", &cutoff, fetch.ModeHTTP)
	require.NoError(t, err)

	require.Len(t, result.Articles, 1)
	assert.Nil(t, result.Articles[0].PublishedAt)
}

func TestWalkFirstPageFailureIsHardError(t *testing.T) {
	client := newFakeClient()
	client.errors["https://fake.test/news"] = &fetch.Error{
		Kind: fetch.KindHTTPStatus, URL: "https://fake.test/news", Status: 500,
	}

	walker := newTestWalker(client, Config{MaxRetries: 1, RetryDelay: time.Millisecond})
	result, err := walker.Walk(context.Background(), "https://fake.test/news", nil, fetch.ModeHTTP)

	require.Error(t, err)
	var fetchErr *fetch.Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, models.StatusFailed, result.Status)
	assert.Empty(t, result.Articles)
	// A 500 is retried.
	assert.Equal(t, 2, client.count("https://fake.test/news"))
}

func TestWalkLaterPageFailureYieldsPartialResult(t *testing.T) {
	cutoff := time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC)

	client := newFakeClient()
	client.responses["https://fake.test/news"] = `
		https://fake.test/a|Alpha|2025-08-18
		https://fake.test/b|Beta|2025-08-18
		next:https://fake.test/news?page=2`
	client.responses["https://fake.test/a"] = "Alpha|Body A"
	client.responses["https://fake.test/b"] = "Beta|Body B"
	client.errors["https://fake.test/news?page=2"] = &fetch.Error{
		Kind: fetch.KindConnectionFailed, URL: "https://fake.test/news?page=2",
	}

	walker := newTestWalker(client, Config{MaxRetries: 1, RetryDelay: time.Millisecond})
	result, err := walker.Walk(context.Background(), "https://fake.test/news", &cutoff, fetch.ModeHTTP)

	// Items already collected are kept and the outcome is marked partial.
	require.NoError(t, err)
	assert.Equal(t, models.StatusPartial, result.Status)
	assert.Len(t, result.Articles, 2)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "listing", result.Failures[0].Stage)
	assert.Equal(t, "https://fake.test/news?page=2", result.Failures[0].URL)
}

func TestWalkArticleFailureDoesNotAbortPage(t *testing.T) {
	client := newFakeClient()
	client.responses["https://fake.test/news"] = `
		https://fake.test/a|Alpha|2025-08-18
		https://fake.test/b|Beta|2025-08-18`
	client.responses["https://fake.test/a"] = "Alpha|Body A"
	client.errors["https://fake.test/b"] = &fetch.Error{
		Kind: fetch.KindHTTPStatus, URL: "https://fake.test/b", Status: 404,
	}

	walker := newTestWalker(client, Config{MaxRetries: 2, RetryDelay: time.Millisecond})
	result, err := walker.Walk(context.Background(), "https://fake.test/news", nil, fetch.ModeHTTP)
	require.NoError(t, err)

	assert.Equal(t, models.StatusPartial, result.Status)
	assert.Len(t, result.Articles, 1)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "article", result.Failures[0].Stage)
	// 404 is terminal, no retries.
	assert.Equal(t, 1, client.count("https://fake.test/b"))
}

func TestWalkDeduplicatesRepeatedStubs(t *testing.T) {
	cutoff := time.Date(2025, 8, 18, 0, 0, 0, 0, time.UTC)

	client := newFakeClient()
	client.responses["https://fake.test/news"] = `
		https://fake.test/a|Alpha|2025-08-18
		next:https://fake.test/news?page=2`
	client.responses["https://fake.test/news?page=2"] = `
		https://fake.test/a|Alpha|2025-08-18
		https://fake.test/b|Beta|2025-08-18`
	client.responses["https://fake.test/a"] = "Alpha|Body A"
	client.responses["https://fake.test/b"] = "Beta|Body B"

	walker := newTestWalker(client, Config{})
	result, err := walker.Walk(context.Background(), "https://fake.test/news", &cutoff, fetch.ModeHTTP)
	require.NoError(t, err)

	assert.Len(t, result.Articles, 2)
	assert.Equal(t, 1, client.count("https://fake.test/a"))
}

func TestWalkUnsupportedSource(t *testing.T) {
	walker := newTestWalker(newFakeClient(), Config{})
	result, err := walker.Walk(context.Background(), "https://unknown.example/news", nil, fetch.ModeHTTP)

	require.Error(t, err)
	assert.ErrorIs(t, err, sources.ErrUnsupportedSource)
	assert.Equal(t, models.StatusFailed, result.Status)
}

func TestWalkRetriesOn429(t *testing.T) {
	client := newFakeClient()
	client.errors["https://fake.test/news"] = &fetch.Error{
		Kind: fetch.KindHTTPStatus, URL: "https://fake.test/news", Status: 429,
	}

	walker := newTestWalker(client, Config{MaxRetries: 2, RetryDelay: time.Millisecond})
	_, err := walker.Walk(context.Background(), "https://fake.test/news", nil, fetch.ModeHTTP)

	require.Error(t, err)
	assert.Equal(t, 3, client.count("https://fake.test/news"))
}

func TestWalkStopsAtMaxPages(t *testing.T) {
	cutoff := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	client := newFakeClient()
	// Every page points at itself plus one, forever.
	for i := 0; i < 10; i++ {
		url := fmt.Sprintf("https://fake.test/news?page=%d", i)
		client.responses[url] = fmt.Sprintf(
			"https://fake.test/item%d|Item|2025-08-18\nnext:https://fake.test/news?page=%d", i, i+1)
		client.responses[fmt.Sprintf("https://fake.test/item%d", i)] = "Item|Body"
	}

	walker := newTestWalker(client, Config{MaxPages: 3})
	result, err := walker.Walk(context.Background(), "https://fake.test/news?page=0", &cutoff, fetch.ModeHTTP)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Pages)
	assert.Len(t, result.Articles, 3)
}

// A deadline expiring mid-batch must not leave article workers mutating the
// result after Walk has handed it to the caller. Run with -race.
func TestWalkDeadlineMidBatchLeavesResultQuiescent(t *testing.T) {
	client := newFakeClient()
	client.responses["https://fake.test/news"] = `
		https://fake.test/a|Alpha|2025-08-18
		https://fake.test/b|Beta|2025-08-18
		https://fake.test/c|Gamma|2025-08-18`
	client.responses["https://fake.test/a"] = "Alpha|Body A"
	client.responses["https://fake.test/b"] = "Beta|Body B"
	client.responses["https://fake.test/c"] = "Gamma|Body C"
	// Article fetches outlive the walk deadline and still complete.
	client.delays["https://fake.test/a"] = 60 * time.Millisecond
	client.delays["https://fake.test/b"] = 60 * time.Millisecond
	client.delays["https://fake.test/c"] = 60 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	walker := newTestWalker(client, Config{MaxConcurrency: 2})
	result, err := walker.Walk(ctx, "https://fake.test/news", nil, fetch.ModeHTTP)
	require.NoError(t, err)

	articles := len(result.Articles)
	failures := len(result.Failures)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, articles, len(result.Articles), "workers kept writing after Walk returned")
	assert.Equal(t, failures, len(result.Failures), "workers kept writing after Walk returned")
}

func TestWalkArticleCarriesSourceAndHash(t *testing.T) {
	client := newFakeClient()
	client.responses["https://fake.test/news"] = `
		https://fake.test/a|Alpha|2025-08-18`
	client.responses["https://fake.test/a"] = "Alpha|Body A"

	walker := newTestWalker(client, Config{})
	result, err := walker.Walk(context.Background(), "https://fake.test/news", nil, fetch.ModeHTTP)
	require.NoError(t, err)

	require.Len(t, result.Articles, 1)
	article := result.Articles[0]
	assert.Equal(t, "https://fake.test/news", article.SourceURL)
	assert.Equal(t, ContentHash("Alpha", "Body A"), article.ContentHash)
	assert.False(t, article.FetchedAt.IsZero())
	assert.NotNil(t, article.Images)
	assert.NotNil(t, article.Videos)
}
