// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body.
const SignatureHeader = "X-Webhook-Signature"

// GenerateSignature returns the hex HMAC-SHA256 of payload.
func GenerateSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks signature against payload in constant time.
// A "sha256=" prefix is accepted.
func VerifySignature(payload []byte, signature, secret string) bool {
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	expected := GenerateSignature(payload, secret)
	return hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected))
}
