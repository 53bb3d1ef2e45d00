package news

import (
	"context"
	"fmt"
	"time"

	"github.com/olekros/zvistka/internal/cache"
	"github.com/olekros/zvistka/internal/fetch"
	"github.com/olekros/zvistka/internal/logger"
	"github.com/olekros/zvistka/internal/models"
	"github.com/olekros/zvistka/internal/store"
)

// Window bounds for cache reads.
const (
	MinWindowHours = 1
	MaxWindowHours = 168
	MaxLimit       = 100
	DefaultLimit   = 50
)

// Walker is what the service needs from the ingestion engine.
type Walker interface {
	Walk(ctx context.Context, listingURL string, cutoff *time.Time, mode fetch.Mode) (models.WalkResult, error)
}

// Service is the query facade: it owns the fetch-vs-serve-cached decision,
// keeping that policy out of the adapters and the store.
type Service struct {
	walker    Walker
	store     store.Store
	freshness cache.Freshness
	ttl       time.Duration
	walkLimit time.Duration
}

func NewService(walker Walker, st store.Store, freshness cache.Freshness, ttl, walkLimit time.Duration) *Service {
	return &Service{
		walker:    walker,
		store:     st,
		freshness: freshness,
		ttl:       ttl,
		walkLimit: walkLimit,
	}
}

// GetOrRefresh serves the listing from the store when a walk for this
// (source, mode) pair ran within the TTL; otherwise it triggers a fresh walk
// and persists the outcome.
func (s *Service) GetOrRefresh(ctx context.Context, url string, cutoff *time.Time, mode fetch.Mode) (models.WalkResult, error) {
	fresh, err := s.freshness.IsFresh(ctx, url, string(mode))
	if err != nil {
		// A degraded marker store must not block ingestion.
		logger.Get().Warn().Err(err).Str("source", url).Msg("Freshness check failed, refreshing")
		fresh = false
	}

	if fresh {
		cached, err := s.store.Recent(ctx, s.ttl, url, 0)
		if err != nil {
			return models.WalkResult{}, err
		}
		if len(cached) > 0 {
			result := models.WalkResult{
				Source:     url,
				Articles:   cached,
				Status:     models.StatusSuccess,
				FromCache:  true,
				FinishedAt: time.Now().UTC(),
			}
			return result, nil
		}
	}

	return s.refresh(ctx, url, cutoff, mode)
}

// ForceRefresh bypasses the staleness check unconditionally.
func (s *Service) ForceRefresh(ctx context.Context, url string, cutoff *time.Time, mode fetch.Mode) (models.WalkResult, error) {
	return s.refresh(ctx, url, cutoff, mode)
}

func (s *Service) refresh(ctx context.Context, url string, cutoff *time.Time, mode fetch.Mode) (models.WalkResult, error) {
	walkCtx, cancel := context.WithTimeout(ctx, s.walkLimit)
	defer cancel()

	result, err := s.walker.Walk(walkCtx, url, cutoff, mode)
	if err != nil {
		return result, err
	}

	for _, article := range result.Articles {
		if err := s.store.Upsert(ctx, article); err != nil {
			logger.Get().Error().Err(err).Str("article", article.ArticleURL).Msg("Upsert failed")
			result.Failures = append(result.Failures, models.ItemFailure{
				URL: article.ArticleURL, Stage: "store", Reason: err.Error(),
			})
		}
	}
	result.Resolve()

	if result.Status != models.StatusFailed {
		if err := s.freshness.MarkFresh(ctx, url, string(mode), s.ttl); err != nil {
			logger.Get().Warn().Err(err).Str("source", url).Msg("Freshness mark failed")
		}
	}

	return result, nil
}

// Recent reads the cache window, newest fetch first. The window is clamped
// to [1h, 168h] and the limit to [1, 100].
func (s *Service) Recent(ctx context.Context, hours int, source string, limit int) ([]models.Article, error) {
	hours = clamp(hours, MinWindowHours, MaxWindowHours)
	limit = clampLimit(limit)
	return s.store.Recent(ctx, time.Duration(hours)*time.Hour, source, limit)
}

// Search runs a case-insensitive text match over cached titles and bodies.
func (s *Service) Search(ctx context.Context, query, source string, limit int) ([]models.Article, error) {
	if query == "" {
		return nil, fmt.Errorf("search query must not be empty")
	}
	return s.store.Search(ctx, query, source, clampLimit(limit))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampLimit(limit int) int {
	if limit < 1 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
