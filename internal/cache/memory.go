// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryCache is a thread-safe in-memory cache.
type MemoryCache struct {
	mu         sync.Mutex
	data       map[string]memoryEntry
	defaultTTL time.Duration
	maxSize    int
	stopCh     chan struct{}
	closed     atomic.Bool

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// MemoryCacheOptions configures the memory cache.
type MemoryCacheOptions struct {
	DefaultTTL      time.Duration
	MaxSize         int           // 0 = unlimited
	CleanupInterval time.Duration // 0 = no background cleanup
}

// NewMemoryCache creates a new memory cache with the given options.
func NewMemoryCache(opts MemoryCacheOptions) *MemoryCache {
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = time.Hour
	}
	c := &MemoryCache{
		data:       make(map[string]memoryEntry),
		defaultTTL: opts.DefaultTTL,
		maxSize:    opts.MaxSize,
		stopCh:     make(chan struct{}),
	}

	if opts.CleanupInterval > 0 {
		go c.cleanupLoop(opts.CleanupInterval)
	}

	return c
}

// Get retrieves a copy of the cached value.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	if c.closed.Load() {
		return nil, ErrCacheClosed
	}

	c.mu.Lock()
	entry, ok := c.data[key]
	if ok && entry.expired(time.Now()) {
		delete(c.data, key)
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		c.misses.Add(1)
		return nil, ErrCacheMiss
	}

	c.hits.Add(1)
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

// Set stores a value in the cache with the specified TTL.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}

	c.mu.Lock()
	c.store(key, value, ttl)
	c.mu.Unlock()
	return nil
}

// Add stores value only when key is absent or expired.
func (c *MemoryCache) Add(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if c.closed.Load() {
		return false, ErrCacheClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.data[key]; ok && !entry.expired(time.Now()) {
		return false, nil
	}
	c.store(key, value, ttl)
	return true, nil
}

// store must be called with c.mu held.
func (c *MemoryCache) store(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	if _, exists := c.data[key]; !exists && c.maxSize > 0 && len(c.data) >= c.maxSize {
		c.evictLocked()
	}

	v := make([]byte, len(value))
	copy(v, value)
	c.data[key] = memoryEntry{value: v, expiresAt: time.Now().Add(ttl)}
	c.sets.Add(1)
}

// evictLocked drops expired entries, then the entry closest to expiry.
func (c *MemoryCache) evictLocked() {
	now := time.Now()
	var (
		oldestKey string
		oldestAt  time.Time
	)
	for k, e := range c.data {
		if e.expired(now) {
			delete(c.data, k)
			continue
		}
		if oldestKey == "" || e.expiresAt.Before(oldestAt) {
			oldestKey, oldestAt = k, e.expiresAt
		}
	}
	if len(c.data) >= c.maxSize && oldestKey != "" {
		delete(c.data, oldestKey)
	}
}

// Delete removes a key from the cache.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
	return nil
}

// Has reports whether a live entry exists for key.
func (c *MemoryCache) Has(ctx context.Context, key string) (bool, error) {
	if c.closed.Load() {
		return false, ErrCacheClosed
	}
	c.mu.Lock()
	entry, ok := c.data[key]
	c.mu.Unlock()
	return ok && !entry.expired(time.Now()), nil
}

// Stats returns current counters.
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	n := len(c.data)
	c.mu.Unlock()
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Sets:    c.sets.Load(),
		Entries: int64(n),
	}
}

// Close stops the cleanup goroutine.
func (c *MemoryCache) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		close(c.stopCh)
	}
	return nil
}

func (c *MemoryCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for k, e := range c.data {
				if e.expired(now) {
					delete(c.data, k)
				}
			}
			c.mu.Unlock()
		case <-c.stopCh:
			return
		}
	}
}
