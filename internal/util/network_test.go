// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
)

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip      string
		private bool
	}{
		{"127.0.0.1", true},
		{"10.0.0.1", true},
		{"172.16.0.1", true},
		{"172.31.255.255", true},
		{"192.168.1.1", true},
		{"169.254.1.1", true},
		{"0.0.0.0", true},
		{"100.64.0.1", true},
		{"198.51.100.1", true},
		{"224.0.0.1", true},
		{"::1", true},
		{"fe80::1", true},
		{"fd00::1", true},
		{"::ffff:10.0.0.1", true},

		{"1.1.1.1", false},
		{"8.8.8.8", false},
		{"172.32.0.1", false},
		{"2001:db8::1", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			if got := IsPrivateIP(net.ParseIP(tt.ip)); got != tt.private {
				t.Errorf("IsPrivateIP(%s) = %v, want %v", tt.ip, got, tt.private)
			}
		})
	}
}

func TestIsPrivateIPNil(t *testing.T) {
	if !IsPrivateIP(nil) {
		t.Error("IsPrivateIP(nil) should deny")
	}
}

func TestValidateOutboundURL(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		allowPrivate bool
		wantErr      string
	}{
		{"public ip", "https://8.8.8.8/hook", false, ""},
		{"bad scheme", "ftp://8.8.8.8/hook", false, "http or https"},
		{"no host", "https:///hook", false, "hostname"},
		{"localhost", "http://localhost:8080/hook", false, "private"},
		{"sub localhost", "http://api.localhost/hook", false, "private"},
		{"loopback ip", "http://127.0.0.1/hook", false, "private"},
		{"private ip", "http://192.168.0.10/hook", false, "private"},
		{"allowed in dev", "http://127.0.0.1:9000/hook", true, ""},
		{"too long", "https://example.com/" + strings.Repeat("a", MaxOutboundURLLength), false, "maximum length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutboundURL(context.Background(), tt.url, tt.allowPrivate)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidateOutboundURL(%q) = %v", tt.url, err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidateOutboundURL(%q) = %v, want error containing %q", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestValidateOutboundURLPrivateSentinel(t *testing.T) {
	err := ValidateOutboundURL(context.Background(), "http://10.1.2.3/", false)
	if !errors.Is(err, ErrPrivateAddress) {
		t.Errorf("error = %v, want ErrPrivateAddress", err)
	}
}

func TestSSRFSafeDialContext(t *testing.T) {
	dial := SSRFSafeDialContext(&net.Dialer{})

	for _, addr := range []string{"127.0.0.1:80", "10.0.0.1:80"} {
		_, err := dial(t.Context(), "tcp", addr)
		if !errors.Is(err, ErrPrivateAddress) {
			t.Errorf("dial(%s) error = %v, want ErrPrivateAddress", addr, err)
		}
	}

	if _, err := dial(t.Context(), "tcp", "no-port"); err == nil {
		t.Error("expected error for address without port")
	}
}
