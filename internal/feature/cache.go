package feature

import (
	"container/list"
	"sync"

	"github.com/semloc/semloc/internal/models"
)

// PageKey identifies one captured page snapshot within one build.
type PageKey struct {
	URL     string
	BuildID string
}

// PageFeatures holds extracted vectors for a snapshot, keyed by node index,
// so concurrent resolutions of different keys on the same page share work.
type PageFeatures struct {
	mu     sync.RWMutex
	byNode map[int]*models.FeatureVector
}

// Get returns the vector for the node index if already extracted.
func (p *PageFeatures) Get(nodeIndex int) (*models.FeatureVector, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	vec, ok := p.byNode[nodeIndex]
	return vec, ok
}

// Set stores the vector for the node index.
func (p *PageFeatures) Set(nodeIndex int, vec *models.FeatureVector) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byNode[nodeIndex] = vec
}

// Cache is an LRU cache of page feature sets keyed by page URL and build.
type Cache struct {
	capacity int
	cache    map[PageKey]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key   PageKey
	value *PageFeatures
}

// NewCache creates a cache with the given capacity.
func NewCache(capacity int) *Cache {
	return &Cache{
		capacity: capacity,
		cache:    make(map[PageKey]*list.Element),
		lru:      list.New(),
	}
}

// GetOrCreate returns the feature set for key, creating an empty one and
// evicting the oldest page if at capacity.
func (c *Cache) GetOrCreate(key PageKey) *PageFeatures {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).value
	}

	entry := &cacheEntry{
		key:   key,
		value: &PageFeatures{byNode: make(map[int]*models.FeatureVector)},
	}
	elem := c.lru.PushFront(entry)
	c.cache[key] = elem

	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
	return entry.value
}

// Len returns the number of cached pages.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
