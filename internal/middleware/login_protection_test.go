// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLoginProtection(now *time.Time) *LoginProtection {
	lp := NewLoginProtection(LoginProtectionConfig{
		IPRateLimit:       1,
		IPBurst:           2,
		MaxFailedAttempts: 3,
		LockoutDuration:   time.Minute,
		AttemptWindow:     10 * time.Minute,
	})
	lp.now = func() time.Time { return *now }
	return lp
}

func TestLoginProtectionLocksAfterMaxAttempts(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	lp := newTestLoginProtection(&now)

	for i := range 2 {
		if locked, _ := lp.RecordFailedAttempt("Editor@Example.com"); locked {
			t.Fatalf("locked after %d attempts", i+1)
		}
	}
	if got := lp.RemainingAttempts("editor@example.com"); got != 1 {
		t.Errorf("RemainingAttempts() = %d, want 1", got)
	}

	locked, d := lp.RecordFailedAttempt("editor@example.com")
	if !locked || d != time.Minute {
		t.Fatalf("RecordFailedAttempt() = %v, %v; want locked for 1m", locked, d)
	}
	if locked, _ := lp.IsAccountLocked("editor@example.com"); !locked {
		t.Error("account should be locked")
	}

	now = now.Add(2 * time.Minute)
	if locked, _ := lp.IsAccountLocked("editor@example.com"); locked {
		t.Error("lock should have expired")
	}

	// Second lockout doubles.
	for range 2 {
		lp.RecordFailedAttempt("editor@example.com")
	}
	if _, d := lp.RecordFailedAttempt("editor@example.com"); d != 2*time.Minute {
		t.Errorf("second lockout = %v, want 2m", d)
	}
}

func TestLoginProtectionWindowResets(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	lp := newTestLoginProtection(&now)

	lp.RecordFailedAttempt("a@example.com")
	lp.RecordFailedAttempt("a@example.com")
	now = now.Add(11 * time.Minute)

	if got := lp.RemainingAttempts("a@example.com"); got != 3 {
		t.Errorf("RemainingAttempts() after window = %d, want 3", got)
	}
	if locked, _ := lp.RecordFailedAttempt("a@example.com"); locked {
		t.Error("window should have reset the counter")
	}
}

func TestLoginProtectionSuccessAndPrune(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	lp := newTestLoginProtection(&now)

	lp.RecordFailedAttempt("a@example.com")
	lp.RecordSuccessfulLogin("A@example.com")
	if got := lp.RemainingAttempts("a@example.com"); got != 3 {
		t.Errorf("RemainingAttempts() after success = %d", got)
	}

	lp.RecordFailedAttempt("b@example.com")
	now = now.Add(time.Hour)
	if n := lp.Prune(); n != 1 {
		t.Errorf("Prune() = %d, want 1", n)
	}
}

func TestLoginProtectionMiddleware(t *testing.T) {
	now := time.Now()
	lp := newTestLoginProtection(&now)
	handler := lp.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "203.0.113.9:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	if post() != http.StatusOK || post() != http.StatusOK {
		t.Fatal("burst requests should pass")
	}
	if code := post(); code != http.StatusTooManyRequests {
		t.Errorf("third POST = %d, want 429", code)
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	if w.Code != http.StatusOK {
		t.Errorf("GET = %d, want 200", w.Code)
	}
}
