// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Delivery limits.
const (
	MaxAttempts    = 5
	MaxResponseLen = 10 * 1024
	UserAgent      = "oCMS-Translations/1.0"
)

// deliveryResult is the outcome of one HTTP attempt.
type deliveryResult struct {
	StatusCode  int
	Body        string
	Err         error
	ShouldRetry bool
}

func (r deliveryResult) ok() bool { return r.Err == nil }

// delivery is one event bound for one endpoint.
type delivery struct {
	URL     string
	Event   *Event
	Payload []byte
	Attempt int
}

// attempt POSTs the payload once and classifies the result. Network errors,
// 5xx, 408 and 429 are retryable; other 4xx are not.
func (n *Notifier) attempt(ctx context.Context, d *delivery) deliveryResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(d.Payload))
	if err != nil {
		return deliveryResult{Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("X-Webhook-Event", d.Event.Type)
	req.Header.Set("X-Webhook-Delivery-ID", d.Event.ID)
	if n.secret != "" {
		req.Header.Set(SignatureHeader, GenerateSignature(d.Payload, n.secret))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return deliveryResult{Err: fmt.Errorf("request failed: %w", err), ShouldRetry: true}
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseLen))
	res := deliveryResult{StatusCode: resp.StatusCode, Body: string(body)}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return res
	case resp.StatusCode == http.StatusRequestTimeout, resp.StatusCode == http.StatusTooManyRequests:
		res.ShouldRetry = true
	case resp.StatusCode >= 500:
		res.ShouldRetry = true
	}
	res.Err = fmt.Errorf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	return res
}

// backoff doubles base per attempt, capped at limit.
func backoff(base, limit time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= limit {
			return limit
		}
	}
	return d
}
