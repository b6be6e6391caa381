// Package cache provides LRU caching for decoded TYCHO models.
package cache

import (
	"container/list"
	"strconv"
	"sync"
	"time"

	"github.com/FocuswithJustin/tychomodel/core/tycho"
)

// Cache is a generic LRU cache interface.
type Cache[K comparable, V any] interface {
	// Get retrieves a value from the cache.
	Get(key K) (V, bool)

	// Put stores a value in the cache.
	Put(key K, value V)

	// Remove removes a value from the cache.
	Remove(key K)

	// Clear removes all entries from the cache.
	Clear()

	// Len returns the number of entries in the cache.
	Len() int

	// Stats returns cache statistics.
	Stats() Stats
}

// Stats contains cache statistics.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
	MaxSize   int
}

// Config contains cache configuration options.
type Config struct {
	// MaxSize is the maximum number of entries (0 = unlimited).
	MaxSize int

	// TTL is the time-to-live for entries (0 = no expiration).
	TTL time.Duration

	// OnEvict is called when an entry is evicted or removed.
	OnEvict func(key, value any)
}

// DefaultConfig returns a default cache configuration.
func DefaultConfig() Config {
	return Config{MaxSize: 64}
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

// lruCache is a thread-safe LRU cache; the front of order is the most
// recently used entry.
type lruCache[K comparable, V any] struct {
	mu      sync.Mutex
	config  Config
	entries map[K]*list.Element
	order   *list.List
	stats   Stats
}

// NewLRUCache creates a new LRU cache with the given configuration.
func NewLRUCache[K comparable, V any](config Config) Cache[K, V] {
	if config.MaxSize < 0 {
		config.MaxSize = 0
	}
	return &lruCache[K, V]{
		config:  config,
		entries: make(map[K]*list.Element),
		order:   list.New(),
	}
}

func (c *lruCache[K, V]) expired(e *entry[K, V]) bool {
	return c.config.TTL > 0 && time.Now().After(e.expiresAt)
}

func (c *lruCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return zero, false
	}

	e := el.Value.(*entry[K, V])
	if c.expired(e) {
		c.remove(el)
		c.stats.Misses++
		return zero, false
	}

	c.order.MoveToFront(el)
	c.stats.Hits++
	return e.value, true
}

func (c *lruCache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if c.config.TTL > 0 {
		expiresAt = time.Now().Add(c.config.TTL)
	}

	if el, ok := c.entries[key]; ok {
		e := el.Value.(*entry[K, V])
		e.value = value
		e.expiresAt = expiresAt
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&entry[K, V]{key: key, value: value, expiresAt: expiresAt})

	if c.config.MaxSize > 0 && c.order.Len() > c.config.MaxSize {
		if oldest := c.order.Back(); oldest != nil {
			c.remove(oldest)
			c.stats.Evictions++
		}
	}
}

func (c *lruCache[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.remove(el)
	}
}

func (c *lruCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*list.Element)
	c.order.Init()
}

func (c *lruCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *lruCache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Size = c.order.Len()
	s.MaxSize = c.config.MaxSize
	return s
}

func (c *lruCache[K, V]) remove(el *list.Element) {
	c.order.Remove(el)
	e := el.Value.(*entry[K, V])
	delete(c.entries, e.key)

	if c.config.OnEvict != nil {
		c.config.OnEvict(e.key, e.value)
	}
}

// ModelCache caches decoded models by the BLAKE3 hash of their source bytes
// and the isotope width they were decoded with. Identical dumps stored under
// different names decode once.
//
// Cached models are never handed out directly: Get returns a clone renamed
// to the caller's filename, so callers may extend it freely.
type ModelCache struct {
	cache Cache[string, *tycho.Model]
}

// NewModelCache creates a new model cache.
func NewModelCache(config Config) *ModelCache {
	return &ModelCache{
		cache: NewLRUCache[string, *tycho.Model](config),
	}
}

// NewDefaultModelCache creates a model cache with the default configuration.
func NewDefaultModelCache() *ModelCache {
	return NewModelCache(DefaultConfig())
}

// Key builds the cache key for a source hash and isotope width.
func Key(hash string, isotopeWidth int) string {
	return hash + "/" + strconv.Itoa(isotopeWidth)
}

// Get returns a copy of the model cached under key, renamed to filename.
func (c *ModelCache) Get(key, filename string) (*tycho.Model, bool) {
	m, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	clone := m.Clone()
	clone.Filename = filename
	return clone, true
}

// Put stores a copy of m under key.
func (c *ModelCache) Put(key string, m *tycho.Model) {
	c.cache.Put(key, m.Clone())
}

// Remove removes the model cached under key.
func (c *ModelCache) Remove(key string) {
	c.cache.Remove(key)
}

// Clear removes all cached models.
func (c *ModelCache) Clear() {
	c.cache.Clear()
}

// Len returns the number of cached models.
func (c *ModelCache) Len() int {
	return c.cache.Len()
}

// Stats returns cache statistics.
func (c *ModelCache) Stats() Stats {
	return c.cache.Stats()
}
