package pager

import (
	"container/list"
	"sync"
)

// DefaultCachePages is the default capacity of the page cache.
const DefaultCachePages = 256

// pageCache is a thread-safe LRU cache of raw page images. Cached slices are
// shared read-only views; callers must not modify them.
type pageCache struct {
	mu        sync.Mutex
	maxSize   int
	entries   map[uint32]*list.Element
	evictList *list.List
}

type cacheEntry struct {
	pgno uint32
	data []byte
}

func newPageCache(maxSize int) *pageCache {
	if maxSize <= 0 {
		maxSize = DefaultCachePages
	}
	return &pageCache{
		maxSize:   maxSize,
		entries:   make(map[uint32]*list.Element),
		evictList: list.New(),
	}
}

// get retrieves a cached page and marks it most recently used.
func (c *pageCache) get(pgno uint32) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[pgno]
	if !ok {
		return nil, false
	}
	c.evictList.MoveToFront(elem)
	return elem.Value.(*cacheEntry).data, true
}

// put stores a page, evicting the least recently used entry when full.
func (c *pageCache) put(pgno uint32, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[pgno]; ok {
		c.evictList.MoveToFront(elem)
		elem.Value.(*cacheEntry).data = data
		return
	}

	elem := c.evictList.PushFront(&cacheEntry{pgno: pgno, data: data})
	c.entries[pgno] = elem

	if c.evictList.Len() > c.maxSize {
		oldest := c.evictList.Back()
		if oldest != nil {
			c.evictList.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).pgno)
		}
	}
}

// clear removes all entries.
func (c *pageCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[uint32]*list.Element)
	c.evictList.Init()
}

// len returns the number of cached pages.
func (c *pageCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}
