// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
	"time"
)

// MaxOutboundURLLength is the maximum allowed length for a notification or provider URL.
const MaxOutboundURLLength = 2048

// ErrPrivateAddress is returned when a URL or connection targets a private or reserved address.
var ErrPrivateAddress = errors.New("private or reserved address")

var privatePrefixes = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("224.0.0.0/4"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("::/128"),
	netip.MustParsePrefix("fe80::/10"),
	netip.MustParsePrefix("fc00::/7"),
}

// IsPrivateIP reports whether ip is private, loopback, link-local or otherwise
// reserved. A nil or malformed IP counts as private.
func IsPrivateIP(ip net.IP) bool {
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return true
	}
	addr = addr.Unmap()
	for _, p := range privatePrefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ValidateOutboundURL checks that rawURL is an absolute http(s) URL whose
// host does not resolve to a private address. allowPrivate skips the address
// check (development and tests).
func ValidateOutboundURL(ctx context.Context, rawURL string, allowPrivate bool) error {
	if len(rawURL) > MaxOutboundURLLength {
		return fmt.Errorf("URL exceeds maximum length of %d characters", MaxOutboundURLLength)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("URL must use http or https scheme")
	}
	host := u.Hostname()
	if host == "" {
		return errors.New("URL must have a hostname")
	}
	if allowPrivate {
		return nil
	}

	lower := strings.ToLower(host)
	if lower == "localhost" || strings.HasSuffix(lower, ".localhost") {
		return fmt.Errorf("%w: localhost", ErrPrivateAddress)
	}
	if ip := net.ParseIP(host); ip != nil {
		if IsPrivateIP(ip) {
			return fmt.Errorf("%w: %s", ErrPrivateAddress, ip)
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return fmt.Errorf("resolving %q: %w", host, err)
	}
	if len(ips) == 0 {
		return fmt.Errorf("hostname %q did not resolve to any IP addresses", host)
	}
	for _, ip := range ips {
		if IsPrivateIP(ip.IP) {
			return fmt.Errorf("%w: %q resolves to %s", ErrPrivateAddress, host, ip.IP)
		}
	}
	return nil
}

// SSRFSafeDialContext wraps dialer so that connections to private addresses
// are refused after resolution. The resolved IP is dialed directly.
func SSRFSafeDialContext(dialer *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", addr, err)
		}

		ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("resolving %q: %w", host, err)
		}
		for _, ip := range ips {
			if IsPrivateIP(ip.IP) {
				return nil, fmt.Errorf("%w: connection to %s (from %q) blocked", ErrPrivateAddress, ip.IP, host)
			}
		}

		for _, ip := range ips {
			conn, dialErr := dialer.DialContext(ctx, network, net.JoinHostPort(ip.IP.String(), port))
			if dialErr == nil {
				return conn, nil
			}
			err = dialErr
		}
		return nil, fmt.Errorf("connecting to %q: %w", host, err)
	}
}
