package cache

import (
	"container/list"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrUndeclaredKey is returned by Put for a key outside the region's declared key set.
var ErrUndeclaredKey = errors.New("undeclared cache key")

// Stats is a point-in-time snapshot of a region's counters.
type Stats struct {
	Region        Region        `json:"region"`
	TTL           time.Duration `json:"ttl"`
	MaxEntries    int           `json:"max_entries"`
	Entries       int           `json:"entries"`
	Hits          uint64        `json:"hits"`
	Misses        uint64        `json:"misses"`
	Evictions     uint64        `json:"evictions"`
	Expirations   uint64        `json:"expirations"`
	Invalidations uint64        `json:"invalidations"`
	Loads         uint64        `json:"loads"`
	LoadErrors    uint64        `json:"load_errors"`
}

// HitRatio returns hits / (hits + misses), or 0 before the first lookup.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for cache debug output.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Store is a bounded, TTL-expiring key/value store for one region.
//
// A map gives O(1) lookup and a doubly-linked list keeps recency order
// (front = most recently used). Expired entries are treated as absent on
// access; an optional sweeper removes them in the background. Every declared
// key carries a generation that Invalidate bumps, so a read-through load that
// started before an invalidation cannot store its result afterwards.
//
// Store is safe for concurrent use.
type Store struct {
	region Region
	cfg    RegionConfig
	keys   map[string]struct{}
	now    func() time.Time
	logger zerolog.Logger

	mu          sync.Mutex
	items       map[string]*list.Element
	lru         *list.List
	generations map[string]uint64
	stats       Stats

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewStore creates a store for region. The config must already be valid;
// use NewRegistry to build stores from user configuration.
func NewStore(region Region, cfg RegionConfig, opts ...Option) *Store {
	s := &Store{
		region:      region,
		cfg:         cfg,
		keys:        make(map[string]struct{}, len(cfg.Keys)),
		now:         time.Now,
		logger:      zerolog.Nop(),
		items:       make(map[string]*list.Element),
		lru:         list.New(),
		generations: make(map[string]uint64, len(cfg.Keys)),
	}
	for _, k := range cfg.Keys {
		s.keys[k] = struct{}{}
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("region", string(region)).Logger()

	if cfg.SweepInterval > 0 {
		s.stop = make(chan struct{})
		s.done = make(chan struct{})
		go s.sweepLoop()
	}

	CacheEntries.WithLabelValues(string(region)).Set(0)
	return s
}

// Region returns the region this store serves.
func (s *Store) Region() Region {
	return s.region
}

// Config returns the region policy.
func (s *Store) Config() RegionConfig {
	return s.cfg
}

// Get returns the value stored under key. An expired entry is removed and
// reported as absent.
func (s *Store) Get(key string) (any, bool) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[key]
	if !ok {
		s.recordMissLocked()
		return nil, false
	}

	e := el.Value.(*Entry)
	if e.IsExpired(now, s.cfg.TTL) {
		s.removeLocked(el, EvictExpired)
		s.recordMissLocked()
		s.logger.Debug().Str("key", key).Msg("Cache entry expired")
		return nil, false
	}

	s.lru.MoveToFront(el)
	s.stats.Hits++
	CacheHits.WithLabelValues(string(s.region)).Inc()
	return e.Value, true
}

// Put stores value under key, evicting expired and then least recently used
// entries while the region is over its size bound.
func (s *Store) Put(key string, value any) error {
	if _, ok := s.keys[key]; !ok {
		return fmt.Errorf("%w: region %q key %q", ErrUndeclaredKey, s.region, key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.putLocked(key, value)
	return nil
}

// Invalidate removes key and bumps its generation.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generations[key]++
	s.stats.Invalidations++
	if el, ok := s.items[key]; ok {
		s.removeLocked(el, EvictInvalidated)
	}
	s.logger.Debug().Str("key", key).Msg("Cache key invalidated")
}

// InvalidateAll empties the region and bumps every declared key's generation.
func (s *Store) InvalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k := range s.keys {
		s.generations[k]++
	}
	s.stats.Invalidations++
	for el := s.lru.Front(); el != nil; {
		next := el.Next()
		s.removeLocked(el, EvictInvalidated)
		el = next
	}
	s.logger.Debug().Msg("Cache region invalidated")
}

// Len returns the number of held entries, including expired ones not yet removed.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Keys returns held keys in MRU -> LRU order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, s.lru.Len())
	for el := s.lru.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*Entry).Key)
	}
	return out
}

// Stats returns a snapshot of the region counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stats
	st.Region = s.region
	st.TTL = s.cfg.TTL
	st.MaxEntries = s.cfg.MaxEntries
	st.Entries = len(s.items)
	return st
}

// Sweep removes every expired entry and returns how many were removed.
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(now)
}

// Close stops the background sweeper. The store stays usable.
// Close is safe to call multiple times.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		if s.stop == nil {
			return
		}
		close(s.stop)
		<-s.done
	})
}

// generation returns the current generation of key.
func (s *Store) generation(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[key]
}

// putIfGeneration stores value only if key has not been invalidated since gen
// was observed. It reports whether the value was stored.
func (s *Store) putIfGeneration(key string, value any, gen uint64) (bool, error) {
	if _, ok := s.keys[key]; !ok {
		return false, fmt.Errorf("%w: region %q key %q", ErrUndeclaredKey, s.region, key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generations[key] != gen {
		CacheStalePutsDropped.WithLabelValues(string(s.region)).Inc()
		return false, nil
	}
	s.putLocked(key, value)
	return true, nil
}

func (s *Store) recordLoad(err error) {
	s.mu.Lock()
	s.stats.Loads++
	if err != nil {
		s.stats.LoadErrors++
	}
	s.mu.Unlock()

	CacheLoads.WithLabelValues(string(s.region)).Inc()
	if err != nil {
		CacheLoadErrors.WithLabelValues(string(s.region)).Inc()
	}
}

func (s *Store) putLocked(key string, value any) {
	now := s.now()

	if el, ok := s.items[key]; ok {
		e := el.Value.(*Entry)
		e.Value = value
		e.StoredAt = now
		s.lru.MoveToFront(el)
	} else {
		s.items[key] = s.lru.PushFront(&Entry{Key: key, Value: value, StoredAt: now})
	}

	if len(s.items) > s.cfg.MaxEntries {
		// Expired entries go first so live keys keep their LRU position.
		s.sweepLocked(now)
	}
	for len(s.items) > s.cfg.MaxEntries {
		el := s.lru.Back()
		if el == nil {
			break
		}
		s.logger.Debug().Str("key", el.Value.(*Entry).Key).Msg("Evicting least recently used entry")
		s.removeLocked(el, EvictCapacity)
	}
	CacheEntries.WithLabelValues(string(s.region)).Set(float64(len(s.items)))
}

func (s *Store) sweepLocked(now time.Time) int {
	removed := 0
	for el := s.lru.Back(); el != nil; {
		prev := el.Prev()
		if el.Value.(*Entry).IsExpired(now, s.cfg.TTL) {
			s.removeLocked(el, EvictExpired)
			removed++
		}
		el = prev
	}
	return removed
}

func (s *Store) removeLocked(el *list.Element, reason string) {
	e := el.Value.(*Entry)
	delete(s.items, e.Key)
	s.lru.Remove(el)

	switch reason {
	case EvictCapacity:
		s.stats.Evictions++
	case EvictExpired:
		s.stats.Expirations++
	}
	CacheEvictions.WithLabelValues(string(s.region), reason).Inc()
	CacheEntries.WithLabelValues(string(s.region)).Set(float64(len(s.items)))
}

func (s *Store) recordMissLocked() {
	s.stats.Misses++
	CacheMisses.WithLabelValues(string(s.region)).Inc()
}

func (s *Store) sweepLoop() {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debug().Int("removed", n).Msg("Swept expired entries")
			}
		}
	}
}
