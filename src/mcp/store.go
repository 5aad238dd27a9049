package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"buildtriage/src/store"
)

// DefaultCacheTTL is how long a loaded document is served before it is read again.
const DefaultCacheTTL = 30 * time.Second

const documentKey = "document"

// DocumentCache serves the cache document, reloading it from the store once
// the TTL has passed so a concurrent classify run becomes visible.
type DocumentCache struct {
	store store.Store
	cache *cache.Cache
}

// NewDocumentCache creates a cache over st. A non-positive ttl uses DefaultCacheTTL.
func NewDocumentCache(st store.Store, ttl time.Duration) *DocumentCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &DocumentCache{
		store: st,
		cache: cache.New(ttl, 2*ttl),
	}
}

// Get returns the current document.
func (c *DocumentCache) Get(ctx context.Context) (*store.Document, error) {
	if v, ok := c.cache.Get(documentKey); ok {
		return v.(*store.Document), nil
	}

	doc, err := c.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load cache: %w", err)
	}
	c.cache.SetDefault(documentKey, doc)
	return doc, nil
}

// Invalidate forces the next Get to read the store.
func (c *DocumentCache) Invalidate() {
	c.cache.Delete(documentKey)
}
