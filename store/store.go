// Package store implements the process-wide key/value store handler
// scripts use for stateful mocks, grounded on pymock/store.py.
package store

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"mocktun/logger"
)

const (
	sampleSize    = 20
	expiringDelay = 300 * time.Second
	expiredRatio  = 0.25
)

// Unset is the expiresSeconds sentinel for "no TTL was specified" (the item
// never expires), distinct from an explicit 0 which is a no-op. Matches
// pymock's put(key, value, expires=None) vs expires<=0 distinction, which a
// single Go int parameter would otherwise collapse into one case.
const Unset = math.MinInt

// item is one stored value. A zero expiresAt means "never expires" — unlike
// pymock's Store, whose `item.expires_at > time.time()` comparison crashes
// (None vs float) once an item is stored without a TTL, Get here treats the
// zero value as always-live.
type item struct {
	value     any
	expiresAt time.Time
}

func (it item) expired(now time.Time) bool {
	return !it.expiresAt.IsZero() && !it.expiresAt.After(now)
}

// Store is a TTL-aware KV store with a background sweep goroutine sampling
// a bounded number of keys per pass, matching pymock's _expiring_task.
type Store struct {
	mu    sync.Mutex
	items map[string]item

	stop chan struct{}
	done chan struct{}
}

// New creates a Store and starts its background expiry sweep.
func New() *Store {
	s := &Store{
		items: make(map[string]item),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// Close stops the background sweep goroutine.
func (s *Store) Close() {
	close(s.stop)
	<-s.done
}

func (s *Store) sweepLoop() {
	defer close(s.done)
	delay := time.Duration(0)
	for {
		select {
		case <-s.stop:
			return
		case <-time.After(delay):
		}
		ratio := s.sweep()
		if ratio > expiredRatio {
			delay = 0
		} else {
			delay = expiringDelay
		}
	}
}

// sweep samples up to sampleSize keys (or all of them if fewer exist),
// deletes the expired ones, and returns the fraction that were expired —
// the Go analogue of pymock's _expiring_task.
func (s *Store) sweep() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger.LogInfo("store: start expiring keys")

	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	if len(keys) > sampleSize {
		rand.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
		keys = keys[:sampleSize]
	}
	if len(keys) == 0 {
		return 0
	}

	now := time.Now()
	expired := 0
	for _, k := range keys {
		if s.items[k].expired(now) {
			delete(s.items, k)
			expired++
		}
	}
	return float64(expired) / float64(len(keys))
}

// FlushAll removes every stored key.
func (s *Store) FlushAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]item)
}

// Put stores a value. expiresSeconds == Unset means no TTL was given
// (never-expiring); an explicit value <= 0 is a no-op (the key is left
// untouched); > 0 sets a TTL from now. Matches pymock's
// put(key, value, expires=None), where expires<=0 returns without storing.
func (s *Store) Put(key string, value any, expiresSeconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expiresAt time.Time
	switch {
	case expiresSeconds == Unset:
		// never-expiring
	case expiresSeconds <= 0:
		return
	default:
		expiresAt = time.Now().Add(time.Duration(expiresSeconds) * time.Second)
	}
	s.items[key] = item{value: value, expiresAt: expiresAt}
}

// Get returns a live value. A never-expiring item (zero expiresAt) is
// always considered live — see the item type's doc comment for why this
// differs from pymock's Store.get.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[key]
	if !ok || it.expired(time.Now()) {
		return nil, false
	}
	return it.value, true
}

// GetOrPut returns the live value for key, or stores and returns def if
// absent/expired, matching pymock's get(key, default, expires) side effect.
func (s *Store) GetOrPut(key string, def any, expiresSeconds int) any {
	s.mu.Lock()
	it, ok := s.items[key]
	now := time.Now()
	if ok && !it.expired(now) {
		v := it.value
		s.mu.Unlock()
		return v
	}
	s.mu.Unlock()
	s.Put(key, def, expiresSeconds)
	return def
}

// Expire updates a key's TTL, or deletes it immediately if expiresSeconds
// <= 0, matching pymock's expires(key, expires).
func (s *Store) Expire(key string, expiresSeconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expiresSeconds <= 0 {
		delete(s.items, key)
		return
	}
	it, ok := s.items[key]
	if !ok {
		return
	}
	it.expiresAt = time.Now().Add(time.Duration(expiresSeconds) * time.Second)
	s.items[key] = it
}
