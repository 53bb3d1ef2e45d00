package models

import "time"

// Article is the canonical content unit produced by a listing walk.
// ArticleURL is the identity key: the store keeps exactly one record per URL.
type Article struct {
	SourceURL   string     `bson:"source_url" json:"source_url"`
	ArticleURL  string     `bson:"article_url" json:"article_url"`
	Title       string     `bson:"title" json:"title"`
	BodyText    string     `bson:"body_text" json:"body_text"`
	PublishedAt *time.Time `bson:"published_at,omitempty" json:"published_at,omitempty"`
	Images      []string   `bson:"images" json:"images"`
	Videos      []string   `bson:"videos" json:"videos"`
	FetchedAt   time.Time  `bson:"fetched_at" json:"fetched_at"`
	ContentHash string     `bson:"content_hash" json:"content_hash"`
}

// Stub is a listing entry before the article page itself has been fetched.
type Stub struct {
	URL         string
	Title       string
	PublishedAt *time.Time
}

// ArticleFields holds what an adapter could extract from a single article page.
// Optional fields stay empty when the page does not expose them.
type ArticleFields struct {
	Title       string
	BodyText    string
	PublishedAt *time.Time
	Images      []string
	Videos      []string
}

// ItemFailure describes one article or listing page that could not be ingested.
type ItemFailure struct {
	URL    string `json:"url"`
	Stage  string `json:"stage"` // "listing" or "article"
	Reason string `json:"reason"`
}

// Walk statuses.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// WalkResult is the outcome of one listing walk. A walk that obtained any
// usable data reports partial success instead of failing outright.
type WalkResult struct {
	Source     string        `json:"source"`
	Articles   []Article     `json:"articles"`
	Failures   []ItemFailure `json:"failures,omitempty"`
	Pages      int           `json:"pages"`
	Status     string        `json:"status"`
	FromCache  bool          `json:"from_cache"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Status derives the walk status from what was collected.
func (r *WalkResult) Resolve() {
	switch {
	case len(r.Articles) == 0 && len(r.Failures) > 0:
		r.Status = StatusFailed
	case len(r.Failures) > 0:
		r.Status = StatusPartial
	default:
		r.Status = StatusSuccess
	}
}
