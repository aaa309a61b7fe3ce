package embedding

import (
	"container/list"
	"sync"
)

// embedCache is an LRU cache of encoder output keyed by description text.
// Repeated captures of an unchanged page hit the cache instead of the model.
type embedCache struct {
	mu       sync.RWMutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List
}

type embedEntry struct {
	text   string
	vector []float32
}

func newEmbedCache(capacity int) *embedCache {
	return &embedCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns the cached vector for text, marking it recently used.
func (c *embedCache) Get(text string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	elem, ok := c.entries[text]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*embedEntry).vector, true
}

// Set stores the vector for text. When the cache is full the least recently
// used entry is dropped.
func (c *embedCache) Set(text string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[text]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*embedEntry).vector = vector
		return
	}

	c.entries[text] = c.order.PushFront(&embedEntry{text: text, vector: vector})
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*embedEntry).text)
		}
	}
}
