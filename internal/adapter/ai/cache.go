// Package ai provides AI client adapters and wrappers used by the application.
package ai

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/fairyhunter13/trendpulse/internal/domain"
)

// MemoryCache is an in-process domain.Cache with FIFO eviction. It backs
// response caching when no Redis instance is configured and is safe for
// concurrent use. Values are stored as JSON so callers get copies.
type MemoryCache struct {
	capacity int
	now      func() time.Time
	mu       sync.Mutex
	m        map[string]*list.Element
	ord      *list.List // of *memoryEntry, oldest at the front
}

type memoryEntry struct {
	key     string
	data    []byte
	expires time.Time
}

// NewMemoryCache returns a cache holding at most capacity entries.
// A non-positive capacity falls back to 256.
func NewMemoryCache(capacity int) *MemoryCache {
	if capacity <= 0 {
		capacity = 256
	}
	return &MemoryCache{capacity: capacity, now: time.Now, m: make(map[string]*list.Element), ord: list.New()}
}

func (c *MemoryCache) Get(_ domain.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	el, ok := c.m[key]
	if !ok {
		c.mu.Unlock()
		return false, nil
	}
	e := el.Value.(*memoryEntry)
	if !e.expires.IsZero() && c.now().After(e.expires) {
		c.ord.Remove(el)
		delete(c.m, key)
		c.mu.Unlock()
		return false, nil
	}
	data := e.data
	c.mu.Unlock()
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *MemoryCache) Set(_ domain.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	e := &memoryEntry{key: key, data: data}
	if ttl > 0 {
		e.expires = c.now().Add(ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, exists := c.m[key]; exists {
		el.Value = e
		return nil
	}
	for c.ord.Len() >= c.capacity {
		oldest := c.ord.Front()
		c.ord.Remove(oldest)
		delete(c.m, oldest.Value.(*memoryEntry).key)
	}
	c.m[key] = c.ord.PushBack(e)
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// KeyFor derives a stable cache key from a namespace and its parts.
func KeyFor(namespace string, parts ...string) string {
	norm := make([]string, len(parts))
	for i, p := range parts {
		norm[i] = strings.ToLower(strings.TrimSpace(p))
	}
	h := sha256.Sum256([]byte(strings.Join(norm, "\x1f")))
	return namespace + ":" + hex.EncodeToString(h[:16])
}
