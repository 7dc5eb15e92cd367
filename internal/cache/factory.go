// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"log/slog"
	"time"
)

// Config selects and tunes the backend.
type Config struct {
	RedisURL   string
	Prefix     string
	DefaultTTL time.Duration
	MaxSize    int
}

// New returns a Redis cache when RedisURL is set and reachable, otherwise an
// in-memory cache. The second value names the backend in use.
func New(cfg Config, logger *slog.Logger) (Cache, string) {
	if cfg.RedisURL != "" {
		opts := DefaultRedisCacheOptions()
		opts.URL = cfg.RedisURL
		if cfg.Prefix != "" {
			opts.Prefix = cfg.Prefix
		}
		opts.DefaultTTL = cfg.DefaultTTL

		rc, err := NewRedisCache(opts)
		if err == nil {
			return rc, "redis"
		}
		if logger != nil {
			logger.Warn("redis unavailable, falling back to memory cache", "error", err)
		}
	}

	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxSize:         cfg.MaxSize,
		CleanupInterval: time.Minute,
	}), "memory"
}
