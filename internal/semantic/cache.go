package semantic

import (
	"container/list"
	"sync"
)

// DefaultLabelCacheSize bounds the number of normalized labels kept.
const DefaultLabelCacheSize = 4096

// LabelCache memoizes label normalization for one source-document version.
// It is created per build or session and must be invalidated when the
// document version changes.
type LabelCache struct {
	entries map[string]*list.Element
	lruList *list.List
	maxSize int
	version string
	stats   CacheStats
	mutex   sync.Mutex
}

type cacheEntry struct {
	key     string
	segment Segment
}

// CacheStats reports cache effectiveness
type CacheStats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Size      int   `json:"size"`
}

// NewLabelCache creates a cache bound to a document version. A non-positive
// maxSize selects DefaultLabelCacheSize.
func NewLabelCache(version string, maxSize int) *LabelCache {
	if maxSize <= 0 {
		maxSize = DefaultLabelCacheSize
	}
	return &LabelCache{
		entries: make(map[string]*list.Element),
		lruList: list.New(),
		maxSize: maxSize,
		version: version,
	}
}

// Version returns the document version the cache currently holds labels for
func (c *LabelCache) Version() string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.version
}

// Get returns a cached segment
func (c *LabelCache) Get(key string) (Segment, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if node, ok := c.entries[key]; ok {
		c.lruList.MoveToFront(node)
		c.stats.Hits++
		return node.Value.(*cacheEntry).segment, true
	}
	c.stats.Misses++
	return Segment{}, false
}

// Put stores a segment, evicting the least recently used entry when full
func (c *LabelCache) Put(key string, seg Segment) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if node, ok := c.entries[key]; ok {
		node.Value.(*cacheEntry).segment = seg
		c.lruList.MoveToFront(node)
		return
	}

	for c.lruList.Len() >= c.maxSize {
		oldest := c.lruList.Back()
		if oldest == nil {
			break
		}
		c.lruList.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
		c.stats.Evictions++
	}

	c.entries[key] = c.lruList.PushFront(&cacheEntry{key: key, segment: seg})
}

// Invalidate drops every entry if version differs from the cached version.
// It reports whether the cache was cleared.
func (c *LabelCache) Invalidate(version string) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if version == c.version {
		return false
	}
	c.entries = make(map[string]*list.Element)
	c.lruList.Init()
	c.version = version
	return true
}

// Stats returns a snapshot of cache statistics
func (c *LabelCache) Stats() CacheStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	s := c.stats
	s.Size = c.lruList.Len()
	return s
}
