package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryIdempotencyStore is the single-process fallback used when no Redis
// address is configured. Expired keys are dropped lazily.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	expires map[string]time.Time
	now     func() time.Time
}

func NewMemoryIdempotencyStore(ttl time.Duration) *MemoryIdempotencyStore {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &MemoryIdempotencyStore{
		ttl:     ttl,
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (m *MemoryIdempotencyStore) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if exp, ok := m.expires[key]; ok && now.Before(exp) {
		return false, nil
	}
	m.expires[key] = now.Add(m.ttl)
	return true, nil
}

func (m *MemoryIdempotencyStore) ReleaseIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.expires, key)
	return nil
}

// Sweep removes expired keys and reports how many were dropped.
func (m *MemoryIdempotencyStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, exp := range m.expires {
		if !now.Before(exp) {
			delete(m.expires, key)
			removed++
		}
	}
	return removed
}
