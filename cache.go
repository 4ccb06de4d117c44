package main

import (
	"sync"
	"time"
)

// PageCache provides thread-safe TTL caching of fetched URL content, so
// re-attaching the same case document to a matter doesn't re-fetch it.
type PageCache struct {
	mu      sync.RWMutex
	entries map[string]pageCacheEntry
	ttl     time.Duration
}

type pageCacheEntry struct {
	content   string
	fetchedAt time.Time
}

// NewPageCache creates a page cache with the specified TTL.
func NewPageCache(ttl time.Duration) *PageCache {
	return &PageCache{
		entries: make(map[string]pageCacheEntry),
		ttl:     ttl,
	}
}

// Get returns cached content for a URL if present and unexpired.
func (c *PageCache) Get(url string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[url]
	if !ok || time.Since(entry.fetchedAt) > c.ttl {
		return "", false
	}
	return entry.content, true
}

// Set stores content for a URL.
func (c *PageCache) Set(url, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[url] = pageCacheEntry{
		content:   content,
		fetchedAt: time.Now(),
	}
}

// Clear drops all cached pages.
func (c *PageCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]pageCacheEntry)
}

// Size returns the number of cached pages, expired or not.
func (c *PageCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
