package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/olekros/zvistka/internal/models"
)

// MemoryStore is an in-process Store with the same contract as the Mongo
// implementation. Used in tests and for running without a database.
type MemoryStore struct {
	mu        sync.RWMutex
	articles  map[string]models.Article
	snapshots map[string]models.OfferSnapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		articles:  make(map[string]models.Article),
		snapshots: make(map[string]models.OfferSnapshot),
	}
}

func (m *MemoryStore) Upsert(_ context.Context, article models.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.articles[article.ArticleURL]; ok && existing.FetchedAt.After(article.FetchedAt) {
		return nil // a newer write already landed
	}
	m.articles[article.ArticleURL] = article
	return nil
}

func (m *MemoryStore) Recent(_ context.Context, since time.Duration, source string, limit int) ([]models.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	windowStart := time.Now().UTC().Add(-since)
	matches := make([]models.Article, 0)
	for _, a := range m.articles {
		if a.FetchedAt.Before(windowStart) {
			continue
		}
		if source != "" && a.SourceURL != source {
			continue
		}
		matches = append(matches, a)
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].FetchedAt.After(matches[j].FetchedAt)
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (m *MemoryStore) Search(_ context.Context, query, source string, limit int) ([]models.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lowered := strings.ToLower(query)
	matches := make([]models.Article, 0)
	for _, a := range m.articles {
		if source != "" && a.SourceURL != source {
			continue
		}
		if containsFold(a.Title, lowered) || containsFold(a.BodyText, lowered) {
			matches = append(matches, a)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].FetchedAt.After(matches[j].FetchedAt)
	})
	return rankSearch(matches, lowered, limit), nil
}

func (m *MemoryStore) IsStale(_ context.Context, articleURL string, ttl time.Duration) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	article, ok := m.articles[articleURL]
	if !ok {
		return true, nil
	}
	return time.Since(article.FetchedAt) > ttl, nil
}

func (m *MemoryStore) SaveSnapshot(_ context.Context, snapshot models.OfferSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snapshot.ProductURL] = snapshot
	return nil
}

func (m *MemoryStore) Close(context.Context) error { return nil }

// Len reports the number of stored articles. Test helper.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.articles)
}

func containsFold(haystack, loweredNeedle string) bool {
	return strings.Contains(strings.ToLower(haystack), loweredNeedle)
}
