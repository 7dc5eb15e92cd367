// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGenerateSignature(t *testing.T) {
	sig := GenerateSignature([]byte(`{"event":"test"}`), "mysecret")
	if len(sig) != 64 {
		t.Fatalf("signature length = %d, want 64", len(sig))
	}
	if sig != GenerateSignature([]byte(`{"event":"test"}`), "mysecret") {
		t.Error("signature not deterministic")
	}
	if sig == GenerateSignature([]byte(`{"event":"test"}`), "other") {
		t.Error("different secrets produced the same signature")
	}
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"order_id":"42"}`)
	sig := GenerateSignature(payload, "s3cret")

	tests := []struct {
		name      string
		signature string
		secret    string
		want      bool
	}{
		{"valid", sig, "s3cret", true},
		{"valid with prefix", "sha256=" + sig, "s3cret", true},
		{"wrong secret", sig, "other", false},
		{"tampered", sig[:63] + "0", "s3cret", sig[63] == '0'},
		{"empty", "", "s3cret", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifySignature(payload, tt.signature, tt.secret); got != tt.want {
				t.Errorf("VerifySignature() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{10, 5 * time.Second},
	}
	for _, tt := range tests {
		if got := backoff(time.Second, 5*time.Second, tt.attempt); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestNewEvent(t *testing.T) {
	e := NewEvent(EventTranslationImported, TranslationEventData{RequestID: 7})
	if e.ID == "" {
		t.Error("event id is empty")
	}
	if e.Type != EventTranslationImported {
		t.Errorf("Type = %q", e.Type)
	}
	if e.Timestamp.Location() != time.UTC {
		t.Error("timestamp should be UTC")
	}
	if NewEvent("x", nil).ID == e.ID {
		t.Error("event ids should be unique")
	}
}

func newTestNotifier(t *testing.T, urls ...string) *Notifier {
	t.Helper()
	n := NewNotifier(context.Background(), Config{
		URLs:         urls,
		Secret:       "hook-secret",
		Backoff:      time.Millisecond,
		MaxBackoff:   5 * time.Millisecond,
		Timeout:      2 * time.Second,
		AllowPrivate: true,
	}, testLogger())
	n.Start(context.Background())
	t.Cleanup(n.Stop)
	return n
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestNotifierDeliversSignedEvent(t *testing.T) {
	type received struct {
		event     Event
		signature string
		eventType string
	}
	got := make(chan received, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var e Event
		_ = json.Unmarshal(body, &e)
		if !VerifySignature(body, r.Header.Get(SignatureHeader), "hook-secret") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		got <- received{event: e, signature: r.Header.Get(SignatureHeader), eventType: r.Header.Get("X-Webhook-Event")}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := newTestNotifier(t, srv.URL)
	if !n.Enabled() {
		t.Fatal("notifier should be enabled")
	}

	if err := n.Notify(context.Background(), EventTranslationOrdered, TranslationEventData{RequestID: 3, State: "in_translation"}); err != nil {
		t.Fatal(err)
	}

	select {
	case r := <-got:
		if r.eventType != EventTranslationOrdered || r.event.Type != EventTranslationOrdered {
			t.Errorf("event type = %q / %q", r.eventType, r.event.Type)
		}
		if r.signature == "" {
			t.Error("missing signature header")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestNotifierRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := newTestNotifier(t, srv.URL)
	_ = n.Notify(context.Background(), EventTranslationImported, nil)

	waitFor(t, func() bool { return calls.Load() == 3 })
}

func TestNotifierDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	n := newTestNotifier(t, srv.URL)
	_ = n.Notify(context.Background(), EventTranslationImported, nil)

	waitFor(t, func() bool { return calls.Load() >= 1 })
	time.Sleep(50 * time.Millisecond)
	if c := calls.Load(); c != 1 {
		t.Errorf("calls = %d, want 1", c)
	}
}

func TestNotifierGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	n := newTestNotifier(t, srv.URL)
	_ = n.Notify(context.Background(), EventTranslationStalled, nil)

	waitFor(t, func() bool { return calls.Load() == MaxAttempts })
	time.Sleep(50 * time.Millisecond)
	if c := calls.Load(); c != MaxAttempts {
		t.Errorf("calls = %d, want %d", c, MaxAttempts)
	}
}

func TestNotifierWithoutTargets(t *testing.T) {
	n := NewNotifier(context.Background(), Config{URLs: []string{"", "ftp://example.com"}}, testLogger())
	if n.Enabled() {
		t.Error("notifier without valid targets should be disabled")
	}
	if err := n.Notify(context.Background(), EventTranslationCreated, nil); err != nil {
		t.Errorf("Notify() = %v", err)
	}

	var nilNotifier *Notifier
	if nilNotifier.Enabled() {
		t.Error("nil notifier should be disabled")
	}
	if err := nilNotifier.Notify(context.Background(), EventTranslationCreated, nil); err != nil {
		t.Errorf("nil Notify() = %v", err)
	}
}

func TestNotifierRejectsPrivateTargets(t *testing.T) {
	n := NewNotifier(context.Background(), Config{URLs: []string{"http://127.0.0.1:9/hook"}}, testLogger())
	if n.Enabled() {
		t.Error("loopback target should be rejected without AllowPrivate")
	}
}
