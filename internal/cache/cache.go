// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cache provides a small byte-oriented cache with in-memory and
// Redis backends.
package cache

import (
	"context"
	"time"
)

// Cache defines the interface for cache implementations.
// All implementations must be safe for concurrent use.
type Cache interface {
	// Get returns ErrCacheMiss when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value; a zero ttl uses the default TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Add stores value only when key is absent and reports whether it did.
	Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	Delete(ctx context.Context, key string) error

	Has(ctx context.Context, key string) (bool, error)

	Close() error
}

// Stats holds hit/miss counters.
type Stats struct {
	Hits    int64
	Misses  int64
	Sets    int64
	Entries int64
}

// HitRate returns hits as a percentage of lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// Error represents an error type for cache operations.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrCacheMiss indicates the key was not found in cache or has expired.
	ErrCacheMiss Error = "cache miss"

	// ErrCacheClosed indicates the cache has been closed.
	ErrCacheClosed Error = "cache closed"
)
