package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultTTL is used when neither the caller nor the store specify a duration
	DefaultTTL = 5 * time.Minute

	// DefaultMaxEntries is the entry ceiling when none is configured
	DefaultMaxEntries = 100
)

// Status is a point-in-time view of one store for the administration facade.
type Status struct {
	Name       string        `json:"name"`
	Size       int           `json:"size"`
	MaxEntries int           `json:"max_entries"`
	TTL        time.Duration `json:"ttl"`
	Keys       []string      `json:"keys"`
	NextExpiry time.Time     `json:"next_expiry,omitempty"`
}

// Instance is the type-independent surface of a Store used by Registry.
type Instance interface {
	Name() string
	Len() int
	Keys() []string
	Clear() int
	ClearExpired() int
	Snapshot() Status
}

type options struct {
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	logger     *zerolog.Logger
}

// Option configures a Store.
type Option func(*options)

// WithTTL sets the duration used by Put when the caller passes d <= 0.
func WithTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.ttl = d
		}
	}
}

// WithMaxEntries sets the entry ceiling. Exceeding it evicts the oldest half.
func WithMaxEntries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxEntries = n
		}
	}
}

// WithClock replaces time.Now for expiry checks (used by tests).
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &logger
	}
}

type item[V any] struct {
	entry Entry[V]
	timer *time.Timer
}

// Store is a process-local keyed cache with per-entry expiry and a
// maximum-size eviction policy. Two independent mechanisms bound its
// contents: a deadline timer removes each entry when it expires, and
// a size sweep drops the oldest half (by insertion order) whenever a
// Put pushes the store past its ceiling.
//
// All methods are safe for concurrent use.
type Store[V any] struct {
	name       string
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	logger     zerolog.Logger

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = oldest insertion
}

// NewStore creates an empty store identified by name in metrics and status.
func NewStore[V any](name string, opts ...Option) *Store[V] {
	o := options{
		ttl:        DefaultTTL,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	logger := log.With().Str("component", "cache").Str("cache", name).Logger()
	if o.logger != nil {
		logger = o.logger.With().Str("cache", name).Logger()
	}

	CacheEntries.WithLabelValues(name).Set(0)

	return &Store[V]{
		name:       name,
		ttl:        o.ttl,
		maxEntries: o.maxEntries,
		now:        o.now,
		logger:     logger,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

// Name returns the store name.
func (s *Store[V]) Name() string {
	return s.name
}

// TTL returns the default entry duration.
func (s *Store[V]) TTL() time.Duration {
	return s.ttl
}

// Get returns the value stored under key if it has not expired.
// An expired entry is removed and reported as a miss.
func (s *Store[V]) Get(key string) (V, bool) {
	entry, ok := s.Lookup(key)
	return entry.Value, ok
}

// Lookup is like Get but returns the whole entry.
func (s *Store[V]) Lookup(key string) (Entry[V], bool) {
	s.mu.Lock()
	el, ok := s.entries[key]
	if !ok {
		s.mu.Unlock()
		CacheMisses.WithLabelValues(s.name).Inc()
		s.logger.Debug().Str("key", key).Msg("Cache miss")
		return Entry[V]{}, false
	}

	it := el.Value.(*item[V])
	if it.entry.IsExpired(s.now()) {
		s.removeLocked(el)
		size := len(s.entries)
		s.mu.Unlock()

		CacheEvictions.WithLabelValues(s.name, EvictExpired).Inc()
		CacheEntries.WithLabelValues(s.name).Set(float64(size))
		CacheMisses.WithLabelValues(s.name).Inc()
		s.logger.Debug().Str("key", key).Msg("Cache entry expired")
		return Entry[V]{}, false
	}
	entry := it.entry
	s.mu.Unlock()

	CacheHits.WithLabelValues(s.name).Inc()
	s.logger.Debug().Str("key", key).Msg("Cache hit")
	return entry, true
}

// Put stores value under key for d, replacing any existing entry.
// A non-positive d uses the store TTL. It returns the stored entry.
func (s *Store[V]) Put(key string, value V, d time.Duration) Entry[V] {
	if d <= 0 {
		d = s.ttl
	}

	now := s.now()
	it := &item[V]{
		entry: Entry[V]{
			Key:       key,
			Value:     value,
			StoredAt:  now,
			ExpiresAt: now.Add(d),
		},
	}

	s.mu.Lock()
	if el, ok := s.entries[key]; ok {
		s.removeLocked(el)
	}
	it.timer = time.AfterFunc(d, func() { s.expire(key, it) })
	s.entries[key] = s.order.PushBack(it)

	evicted := 0
	if s.maxEntries > 0 && len(s.entries) > s.maxEntries {
		evicted = s.evictOldestLocked(len(s.entries) / 2)
	}
	size := len(s.entries)
	s.mu.Unlock()

	if evicted > 0 {
		CacheEvictions.WithLabelValues(s.name, EvictCapacity).Add(float64(evicted))
		s.logger.Info().
			Int("evicted", evicted).
			Int("max_entries", s.maxEntries).
			Msg("Cache over capacity, evicted oldest entries")
	}
	CacheEntries.WithLabelValues(s.name).Set(float64(size))
	s.logger.Debug().Str("key", key).Dur("ttl", d).Msg("Cached value")

	return it.entry
}

// Delete removes key. It reports whether an entry was present.
func (s *Store[V]) Delete(key string) bool {
	s.mu.Lock()
	el, ok := s.entries[key]
	if ok {
		s.removeLocked(el)
	}
	size := len(s.entries)
	s.mu.Unlock()

	if ok {
		CacheEvictions.WithLabelValues(s.name, EvictCleared).Inc()
		CacheEntries.WithLabelValues(s.name).Set(float64(size))
	}
	return ok
}

// Len returns the number of resident entries.
func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Keys returns the resident keys, oldest insertion first.
func (s *Store[V]) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.entries))
	for el := s.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*item[V]).entry.Key)
	}
	return keys
}

// Clear removes every entry and returns how many were removed.
func (s *Store[V]) Clear() int {
	s.mu.Lock()
	n := len(s.entries)
	for el := s.order.Front(); el != nil; el = el.Next() {
		el.Value.(*item[V]).timer.Stop()
	}
	s.entries = make(map[string]*list.Element)
	s.order.Init()
	s.mu.Unlock()

	if n > 0 {
		CacheEvictions.WithLabelValues(s.name, EvictCleared).Add(float64(n))
	}
	CacheEntries.WithLabelValues(s.name).Set(0)
	return n
}

// ClearExpired removes every expired entry and returns how many were removed.
func (s *Store[V]) ClearExpired() int {
	now := s.now()

	s.mu.Lock()
	removed := 0
	for el := s.order.Front(); el != nil; {
		next := el.Next()
		if el.Value.(*item[V]).entry.IsExpired(now) {
			s.removeLocked(el)
			removed++
		}
		el = next
	}
	size := len(s.entries)
	s.mu.Unlock()

	if removed > 0 {
		CacheEvictions.WithLabelValues(s.name, EvictExpired).Add(float64(removed))
		CacheEntries.WithLabelValues(s.name).Set(float64(size))
	}
	return removed
}

// Snapshot returns the store status.
func (s *Store[V]) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Name:       s.name,
		Size:       len(s.entries),
		MaxEntries: s.maxEntries,
		TTL:        s.ttl,
		Keys:       make([]string, 0, len(s.entries)),
	}
	for el := s.order.Front(); el != nil; el = el.Next() {
		it := el.Value.(*item[V])
		st.Keys = append(st.Keys, it.entry.Key)
		if st.NextExpiry.IsZero() || it.entry.ExpiresAt.Before(st.NextExpiry) {
			st.NextExpiry = it.entry.ExpiresAt
		}
	}
	return st
}

// expire runs from the deadline timer. It only removes the entry the
// timer was armed for; a newer entry under the same key is left alone.
func (s *Store[V]) expire(key string, it *item[V]) {
	s.mu.Lock()
	el, ok := s.entries[key]
	if !ok || el.Value.(*item[V]) != it {
		s.mu.Unlock()
		return
	}
	s.removeLocked(el)
	size := len(s.entries)
	s.mu.Unlock()

	CacheEvictions.WithLabelValues(s.name, EvictExpired).Inc()
	CacheEntries.WithLabelValues(s.name).Set(float64(size))
	s.logger.Debug().Str("key", key).Msg("Cache entry reached deadline")
}

// evictOldestLocked drops the n oldest entries. Caller holds s.mu.
func (s *Store[V]) evictOldestLocked(n int) int {
	evicted := 0
	for evicted < n {
		el := s.order.Front()
		if el == nil {
			break
		}
		s.removeLocked(el)
		evicted++
	}
	return evicted
}

// removeLocked unlinks el and stops its timer. Caller holds s.mu.
func (s *Store[V]) removeLocked(el *list.Element) {
	it := el.Value.(*item[V])
	if it.timer != nil {
		it.timer.Stop()
	}
	delete(s.entries, it.entry.Key)
	s.order.Remove(el)
}
