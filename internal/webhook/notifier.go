// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/olegiv/ocms-translations/internal/util"
)

// Config holds notifier configuration.
type Config struct {
	URLs         []string
	Secret       string
	Workers      int
	QueueSize    int
	Backoff      time.Duration // delay before the first retry
	MaxBackoff   time.Duration
	Timeout      time.Duration // per HTTP attempt
	AllowPrivate bool          // permit loopback and private targets
}

// DefaultConfig returns default notifier configuration.
func DefaultConfig() Config {
	return Config{
		Workers:    2,
		QueueSize:  100,
		Backoff:    30 * time.Second,
		MaxBackoff: 10 * time.Minute,
		Timeout:    15 * time.Second,
	}
}

// Notifier queues lifecycle events and delivers them to every configured
// endpoint from a small worker pool. A nil *Notifier discards events.
type Notifier struct {
	targets    []string
	secret     string
	client     *http.Client
	logger     *slog.Logger
	queue      chan *delivery
	workers    int
	backoff    time.Duration
	maxBackoff time.Duration

	wg      sync.WaitGroup
	done    chan struct{}
	mu      sync.RWMutex
	running bool
}

// NewNotifier validates the target URLs and builds the HTTP client.
// Invalid targets are logged and skipped.
func NewNotifier(ctx context.Context, cfg Config, logger *slog.Logger) *Notifier {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = def.Backoff
	}
	if cfg.MaxBackoff < cfg.Backoff {
		cfg.MaxBackoff = max(def.MaxBackoff, cfg.Backoff)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	var targets []string
	for _, u := range cfg.URLs {
		if u == "" {
			continue
		}
		if err := util.ValidateOutboundURL(ctx, u, cfg.AllowPrivate); err != nil {
			logger.Warn("webhook target rejected", "url", u, "error", err)
			continue
		}
		targets = append(targets, u)
	}

	dialer := &net.Dialer{Timeout: 10 * time.Second}
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
		DialContext:         dialer.DialContext,
	}
	if !cfg.AllowPrivate {
		transport.DialContext = util.SSRFSafeDialContext(dialer)
	}

	return &Notifier{
		targets:    targets,
		secret:     cfg.Secret,
		client:     &http.Client{Timeout: cfg.Timeout, Transport: transport},
		logger:     logger,
		queue:      make(chan *delivery, cfg.QueueSize),
		workers:    cfg.Workers,
		backoff:    cfg.Backoff,
		maxBackoff: cfg.MaxBackoff,
		done:       make(chan struct{}),
	}
}

// Enabled reports whether at least one target is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && len(n.targets) > 0
}

// Start launches the delivery workers.
func (n *Notifier) Start(ctx context.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.running {
		return
	}
	n.running = true

	n.logger.Info("starting webhook notifier", "workers", n.workers, "targets", len(n.targets))
	for i := range n.workers {
		n.wg.Add(1)
		go n.worker(ctx, i)
	}
}

// Stop signals the workers and waits for in-flight attempts to finish.
// Queued deliveries that have not started are dropped.
func (n *Notifier) Stop() {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return
	}
	n.running = false
	n.mu.Unlock()

	close(n.done)
	n.wg.Wait()
	n.logger.Info("webhook notifier stopped")
}

// Notify enqueues an event for every target without blocking.
func (n *Notifier) Notify(_ context.Context, eventType string, data any) error {
	if !n.Enabled() {
		return nil
	}

	n.mu.RLock()
	running := n.running
	n.mu.RUnlock()
	if !running {
		n.logger.Warn("webhook notifier not running, event dropped", "event_type", eventType)
		return nil
	}

	event := NewEvent(eventType, data)
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling webhook event: %w", err)
	}

	for _, target := range n.targets {
		select {
		case n.queue <- &delivery{URL: target, Event: event, Payload: payload}:
		default:
			n.logger.Warn("webhook queue full, event dropped", "event_type", eventType, "delivery_id", event.ID)
		}
	}
	return nil
}

func (n *Notifier) worker(ctx context.Context, id int) {
	defer n.wg.Done()
	n.logger.Debug("webhook worker started", "worker_id", id)
	for {
		select {
		case <-n.done:
			return
		case <-ctx.Done():
			return
		case d := <-n.queue:
			n.deliver(ctx, d)
		}
	}
}

// deliver retries d with exponential backoff until it succeeds, fails
// permanently or the notifier stops.
func (n *Notifier) deliver(ctx context.Context, d *delivery) {
	for {
		d.Attempt++
		res := n.attempt(ctx, d)
		if res.ok() {
			n.logger.Info("webhook delivered",
				"delivery_id", d.Event.ID,
				"event_type", d.Event.Type,
				"status_code", res.StatusCode,
				"attempt", d.Attempt)
			return
		}

		if !res.ShouldRetry || d.Attempt >= MaxAttempts {
			n.logger.Warn("webhook delivery failed",
				"delivery_id", d.Event.ID,
				"event_type", d.Event.Type,
				"url", d.URL,
				"attempts", d.Attempt,
				"error", res.Err)
			return
		}

		wait := backoff(n.backoff, n.maxBackoff, d.Attempt)
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-n.done:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}
