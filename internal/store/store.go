package store

import (
	"context"
	"fmt"
	"time"

	"github.com/olekros/zvistka/internal/models"
)

// StoreError marks the cache store as the failing party. Reads against a
// degraded store surface this instead of empty results, so "no matches" and
// "store down" stay distinguishable.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Store persists Articles and offer snapshots. Articles are keyed by
// article_url: an upsert of an existing URL replaces the record in place,
// last writer (by fetched_at) winning.
type Store interface {
	Upsert(ctx context.Context, article models.Article) error
	Recent(ctx context.Context, since time.Duration, source string, limit int) ([]models.Article, error)
	Search(ctx context.Context, query, source string, limit int) ([]models.Article, error)
	IsStale(ctx context.Context, articleURL string, ttl time.Duration) (bool, error)
	SaveSnapshot(ctx context.Context, snapshot models.OfferSnapshot) error
	Close(ctx context.Context) error
}

// rankSearch orders matches best-effort: an exact or prefix title hit ranks
// above body-only matches; ties keep the newest fetch first.
func rankSearch(articles []models.Article, loweredQuery string, limit int) []models.Article {
	titleHits := make([]models.Article, 0, len(articles))
	bodyHits := make([]models.Article, 0, len(articles))
	for _, a := range articles {
		if containsFold(a.Title, loweredQuery) {
			titleHits = append(titleHits, a)
		} else {
			bodyHits = append(bodyHits, a)
		}
	}
	ranked := append(titleHits, bodyHits...)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
