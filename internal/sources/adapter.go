package sources

import (
	"errors"
	"fmt"
	"strings"

	"github.com/olekros/zvistka/internal/models"
)

// ErrUnsupportedSource is returned when a URL matches no registered adapter.
var ErrUnsupportedSource = errors.New("no adapter supports this url")

// ExtractionError reports a page the adapter recognized but could not parse.
type ExtractionError struct {
	URL    string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %s", e.URL, e.Reason)
}

// ListingPage is one page of a listing walk. NextURL is derived from the page
// the adapter just saw; empty means the listing is exhausted.
type ListingPage struct {
	Stubs   []models.Stub
	NextURL string
}

// Adapter encodes the structural assumptions of exactly one source: its
// selectors, date formats and pagination scheme. Missing optional fields
// degrade to empty values; a stub without an article URL is skipped.
type Adapter interface {
	Name() string
	Matches(url string) bool
	ExtractListing(markup, pageURL string) (ListingPage, error)
	ExtractArticle(markup, articleURL string) (models.ArticleFields, error)
}

// Registry is the closed set of known adapters, tried in registration order.
type Registry struct {
	adapters []Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	return &Registry{adapters: adapters}
}

// ForURL returns the first adapter whose Matches accepts the URL.
func (r *Registry) ForURL(url string) (Adapter, error) {
	lower := strings.ToLower(url)
	for _, a := range r.adapters {
		if a.Matches(lower) {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, url)
}
