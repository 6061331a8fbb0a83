// Package store implements the in-memory key/value map with per-key expiry
// and synchronous change observers.
package store

import (
	"log/slog"
	"sync"
	"time"

	"github.com/arpanpaul-gh/InMemory-DB/internal/core/domain"
)

// Store holds the value map and the parallel expiry map under one mutex.
// The two maps are separate so a read can check both with a single lock
// acquisition while the sweeper only has to walk the (small) expiry map.
//
// Invariant: a key in the expiry map is always present in the value map;
// the converse does not hold.
type Store struct {
	data      map[string]string
	expiry    map[string]time.Time
	observers map[uint64]domain.ObserverFunc
	now       func() time.Time
	logger    *slog.Logger
	obsSeq    uint64
	mu        sync.Mutex
}

// New creates an empty store.
func New(logger *slog.Logger) *Store {
	return NewWithClock(logger, time.Now)
}

// NewWithClock creates an empty store reading time from now. Tests use this
// to drive expiry without sleeping.
func NewWithClock(logger *slog.Logger, now func() time.Time) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		data:      make(map[string]string),
		expiry:    make(map[string]time.Time),
		observers: make(map[uint64]domain.ObserverFunc),
		now:       now,
		logger:    logger,
	}
}

// Get returns the value for key and, when an expiry is armed, the whole
// seconds remaining. A key whose expiry instant has passed is removed and
// reported absent in the same critical section, so no caller ever sees an
// expired value.
func (s *Store) Get(key string) (string, *int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.expiry[key]; ok && !now.Before(exp) {
		s.expireLocked(key)
		return "", nil, false
	}

	value, ok := s.data[key]
	if !ok {
		return "", nil, false
	}
	if exp, ok := s.expiry[key]; ok {
		remaining := int64(exp.Sub(now) / time.Second)
		if remaining < 0 {
			remaining = 0
		}
		return value, &remaining, true
	}
	return value, nil, true
}

// Set inserts or overwrites key. Any previous expiry is cleared: a plain
// set always yields a persistent key.
func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	delete(s.expiry, key)
	s.notifyLocked(domain.OperationSet, key, value)
}

// SetWithTTL inserts or overwrites key and arms its expiry at now+ttl,
// replacing any previous expiry.
func (s *Store) SetWithTTL(key, value string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt := s.now().Add(ttl)
	s.data[key] = value
	s.expiry[key] = expiresAt
	s.logger.Debug("armed expiry", "key", key, "expires_at", expiresAt, "ttl", ttl)
	s.notifyLocked(domain.OperationSet, key, value)
}

// Delete removes key and any expiry, reporting whether it was present.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[key]; !ok {
		return false
	}
	delete(s.data, key)
	delete(s.expiry, key)
	s.notifyLocked(domain.OperationDelete, key, "")
	return true
}

// Keys sweeps expired entries, then returns the remaining keys in
// unspecified order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	return keys
}

// Sweep removes every entry whose expiry instant has passed, notifying
// observers once per removal. Returns the number of keys removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

// Clear drops every entry, notifying one delete per key. Returns the number
// of keys removed.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	s.data = make(map[string]string)
	s.expiry = make(map[string]time.Time)
	for _, key := range keys {
		s.notifyLocked(domain.OperationDelete, key, "")
	}
	return len(keys)
}

// Len reports the number of entries without sweeping.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// PersistentItems returns a copy of every entry that carries no expiry.
// Entries whose expiry has already passed are removed on the way through,
// so a snapshot taken from the result never resurrects a TTL key.
func (s *Store) PersistentItems() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	items := make(map[string]string, len(s.data))
	for key, value := range s.data {
		if _, ok := s.expiry[key]; ok {
			continue
		}
		items[key] = value
	}
	return items
}

// Observe registers fn for change notifications and returns the func that
// unregisters it. Observers run synchronously under the store lock; they
// must be fast and must not call back into the store.
func (s *Store) Observe(fn domain.ObserverFunc) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.obsSeq++
	id := s.obsSeq
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

func (s *Store) sweepLocked() int {
	now := s.now()
	var expired []string
	for key, exp := range s.expiry {
		if !now.Before(exp) {
			expired = append(expired, key)
		}
	}
	for _, key := range expired {
		s.expireLocked(key)
	}
	return len(expired)
}

// expireLocked removes key from both maps and emits exactly one expire
// notification for the removal.
func (s *Store) expireLocked(key string) {
	delete(s.data, key)
	delete(s.expiry, key)
	s.logger.Debug("key expired", "key", key)
	s.notifyLocked(domain.OperationExpire, key, "")
}

func (s *Store) notifyLocked(op domain.Operation, key, value string) {
	for _, fn := range s.observers {
		fn(op, key, value)
	}
}
