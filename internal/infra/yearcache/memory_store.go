package yearcache

import (
	"context"
	"sync"
	"time"

	"github.com/yanqian/searchcal/internal/domain/calendar"
	"github.com/yanqian/searchcal/pkg/util"
)

type yearsRecord struct {
	years     []int
	expiresAt time.Time
}

// MemoryStore is an in-memory year index cache for tests/dev.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]yearsRecord
	now     util.Clock
}

// NewMemoryStore constructs a store backed by process memory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]yearsRecord),
		now:     util.NowUTC,
	}
}

// GetYears implements calendar.YearCache.
func (s *MemoryStore) GetYears(_ context.Context, key string) ([]int, bool, error) {
	if key == "" {
		return nil, false, nil
	}
	s.mu.RLock()
	record, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if s.hasExpired(record.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false, nil
	}
	return append([]int{}, record.years...), true, nil
}

// PutYears caches the years with optional TTL.
func (s *MemoryStore) PutYears(_ context.Context, key string, years []int, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp := time.Time{}
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}
	s.entries[key] = yearsRecord{
		years:     append([]int{}, years...),
		expiresAt: exp,
	}
	return nil
}

// Invalidate drops every cached entry.
func (s *MemoryStore) Invalidate(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]yearsRecord)
	return nil
}

func (s *MemoryStore) hasExpired(ts time.Time) bool {
	if ts.IsZero() {
		return false
	}
	return ts.Before(s.now())
}

var _ calendar.YearCache = (*MemoryStore)(nil)
