package accounts

import (
	"sync"
	"time"
)

// RevocationStore records consumed single use tokens. Entries carry a
// TTL equal to the token's remaining lifetime; once the token itself
// has expired the record is safe to forget.
type RevocationStore interface {
	// Revoke marks a key consumed for the given TTL. It returns false
	// when the key is already revoked, which makes the first caller in
	// a race the only winner.
	Revoke(key string, ttl time.Duration) bool
	// IsRevoked reports whether the key holds a live revocation entry
	IsRevoked(key string) bool
}

// MemoryRevocationStore is the in-process RevocationStore. Safe for
// concurrent use; expired entries are pruned lazily on access.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// MemoryRevocationOption customizes store construction
type MemoryRevocationOption func(*MemoryRevocationStore)

// WithRevocationClock injects a custom clock (useful for tests)
func WithRevocationClock(clock func() time.Time) MemoryRevocationOption {
	return func(s *MemoryRevocationStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewMemoryRevocationStore creates an empty revocation store
func NewMemoryRevocationStore(opts ...MemoryRevocationOption) *MemoryRevocationStore {
	s := &MemoryRevocationStore{
		entries: map[string]time.Time{},
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *MemoryRevocationStore) Revoke(key string, ttl time.Duration) bool {
	if ttl <= 0 {
		// token already expired, nothing to protect
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)

	if exp, ok := s.entries[key]; ok && exp.After(now) {
		return false
	}

	s.entries[key] = now.Add(ttl)
	return true
}

func (s *MemoryRevocationStore) IsRevoked(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	exp, ok := s.entries[key]
	if !ok {
		return false
	}
	if !exp.After(now) {
		delete(s.entries, key)
		return false
	}
	return true
}

// Len reports the number of live entries, pruning expired ones first
func (s *MemoryRevocationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(s.now())
	return len(s.entries)
}

func (s *MemoryRevocationStore) pruneLocked(now time.Time) {
	for key, exp := range s.entries {
		if !exp.After(now) {
			delete(s.entries, key)
		}
	}
}
