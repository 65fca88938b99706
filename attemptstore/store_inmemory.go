package attemptstore

import (
	"crypto/subtle"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultTTL bounds how long an abandoned attempt survives before the store
// evicts it. Matches the interactive flow deadline with some slack.
const DefaultTTL = 10 * time.Minute

// InMemoryStore is a thread-safe, TTL-bounded implementation of Store.
// Expired attempts are evicted automatically, so an abandoned flow cannot
// leave a validatable state behind indefinitely.
type InMemoryStore struct {
	mu       sync.Mutex
	attempts *cache.Cache
}

// NewInMemoryStore creates an in-memory attempt store. A non-positive ttl
// falls back to DefaultTTL.
func NewInMemoryStore(ttl time.Duration) *InMemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &InMemoryStore{
		attempts: cache.New(ttl, time.Minute),
	}
}

// Begin stores an attempt keyed by provider. A pending attempt for the same
// provider is overwritten; its callback will subsequently fail validation.
func (s *InMemoryStore) Begin(provider string, attempt Attempt) error {
	if provider == "" {
		return errors.New("[Begin] provider cannot be empty")
	}
	if attempt.State == "" {
		return errors.New("[Begin] attempt state cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, pending := s.attempts.Get(provider); pending {
		log.Warn().
			Str("provider", provider).
			Msg("overwriting in-flight authorization attempt; the earlier callback will fail state validation")
	}
	s.attempts.Set(provider, attempt, cache.DefaultExpiration)
	return nil
}

// ValidateAndConsume implements the single-shot state check. The stored
// attempt is removed before the outcome is known.
func (s *InMemoryStore) ValidateAndConsume(provider, state string) (Attempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.attempts.Get(provider)
	s.attempts.Delete(provider)
	if !ok || state == "" {
		return Attempt{}, false
	}
	attempt := stored.(Attempt)
	if subtle.ConstantTimeCompare([]byte(attempt.State), []byte(state)) != 1 {
		return Attempt{}, false
	}
	return attempt, true
}

// Take removes and returns the pending attempt for a provider.
func (s *InMemoryStore) Take(provider string) (Attempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.attempts.Get(provider)
	s.attempts.Delete(provider)
	if !ok {
		return Attempt{}, false
	}
	return stored.(Attempt), true
}

// Clear drops the pending attempt for a provider.
func (s *InMemoryStore) Clear(provider string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts.Delete(provider)
}

// Reset drops every pending attempt.
func (s *InMemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts.Flush()
}
