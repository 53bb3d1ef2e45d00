package cache

import (
	"context"
	"sync"
	"time"
)

// MockFreshness provides an in-memory implementation for testing and for
// running without Redis. TTLs are honored.
type MockFreshness struct {
	mu    sync.Mutex
	marks map[string]time.Time
}

func NewMockFreshness() *MockFreshness {
	return &MockFreshness{marks: make(map[string]time.Time)}
}

func (m *MockFreshness) Close() error { return nil }

func (m *MockFreshness) IsFresh(_ context.Context, sourceURL, mode string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, ok := m.marks[sourceURL+"|"+mode]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		delete(m.marks, sourceURL+"|"+mode)
		return false, nil
	}
	return true, nil
}

func (m *MockFreshness) MarkFresh(_ context.Context, sourceURL, mode string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marks[sourceURL+"|"+mode] = time.Now().Add(ttl)
	return nil
}

func (m *MockFreshness) Invalidate(_ context.Context, sourceURL, mode string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.marks, sourceURL+"|"+mode)
	return nil
}
