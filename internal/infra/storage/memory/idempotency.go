package memory

import (
	"context"
	"sync"
	"time"

	"hotelbook/internal/app/middleware"
)

// IdempotencyStore keeps booking command outcomes in process. Like the Mongo
// store it forgets a key ttl after the first outcome was saved, so a client
// retrying a create after that window books again.
type IdempotencyStore struct {
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]storedOutcome
}

type storedOutcome struct {
	rec     middleware.IdempotencyRecord
	savedAt time.Time
}

// NewIdempotencyStore keeps records forever when ttl is zero.
func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{ttl: ttl, now: time.Now, items: make(map[string]storedOutcome)}
}

func (s *IdempotencyStore) Get(_ context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[key]
	if !ok || s.expired(item) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	return item.rec, true, nil
}

// Save keeps the first live outcome stored under a key.
func (s *IdempotencyStore) Save(_ context.Context, rec middleware.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, exists := s.items[rec.Key]; exists && !s.expired(item) {
		return nil
	}
	s.items[rec.Key] = storedOutcome{rec: rec, savedAt: s.now()}
	return nil
}

func (s *IdempotencyStore) expired(item storedOutcome) bool {
	return s.ttl > 0 && s.now().Sub(item.savedAt) >= s.ttl
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
