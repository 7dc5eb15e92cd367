// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package auth hashes admin passwords with argon2id and checks login
// credentials against the users table.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"

	"github.com/olegiv/ocms-translations/internal/store"
)

// Argon2id parameters (OWASP second choice: m=19456, t=2, p=1).
const (
	argonTime    = 2
	argonMemory  = 19 * 1024
	argonThreads = 1
	argonKeyLen  = 32
	argonSaltLen = 16
)

// ErrInvalidCredentials is returned by Authenticate for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

// decodeHash splits "$argon2id$v=19$m=..,t=..,p=..$salt$key".
func decodeHash(encoded string) (*argonParams, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return nil, errors.New("invalid hash format")
	}
	if parts[1] != "argon2id" {
		return nil, fmt.Errorf("unsupported hash type: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, fmt.Errorf("parsing version: %w", err)
	}
	if version != argon2.Version {
		return nil, fmt.Errorf("unsupported argon2 version: %d", version)
	}

	p := &argonParams{}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return nil, fmt.Errorf("parsing parameters: %w", err)
	}

	var err error
	if p.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, fmt.Errorf("decoding salt: %w", err)
	}
	if p.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, fmt.Errorf("decoding hash: %w", err)
	}
	return p, nil
}

// HashPassword returns an encoded argon2id hash of password.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// CheckPassword reports whether password matches encodedHash.
// The parameters stored in the hash are used, so older hashes keep working.
func CheckPassword(password, encodedHash string) (bool, error) {
	p, err := decodeHash(encodedHash)
	if err != nil {
		return false, err
	}
	key := argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.threads, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(key, p.key) == 1, nil
}

// NeedsRehash reports whether encodedHash was created with other parameters
// than the current ones.
func NeedsRehash(encodedHash string) bool {
	p, err := decodeHash(encodedHash)
	if err != nil {
		return true
	}
	return p.memory != argonMemory || p.time != argonTime || p.threads != argonThreads
}

// Authenticate checks email and password and returns the matching user.
// A successful login updates last_login_at and upgrades stale hashes.
func Authenticate(ctx context.Context, db *sql.DB, email, password string) (*store.User, error) {
	q := store.New(db)

	user, err := q.GetUserByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}

	ok, err := CheckPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("checking password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	if err := q.UpdateUserLastLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("updating last login: %w", err)
	}
	user.LastLoginAt = sql.NullTime{Time: now, Valid: true}

	if NeedsRehash(user.PasswordHash) {
		if hash, err := HashPassword(password); err == nil {
			if _, err := db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, user.ID); err == nil {
				user.PasswordHash = hash
			}
		}
	}

	return &user, nil
}
