// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// PasswordHasher turns a plain password into a storable hash.
type PasswordHasher func(password string) (string, error)

// SeedAdmin creates the initial admin account when no account with the given
// email exists yet. Empty credentials skip seeding.
func SeedAdmin(ctx context.Context, db *sql.DB, email, password string, hash PasswordHasher) error {
	if email == "" || password == "" {
		return nil
	}

	queries := New(db)

	_, err := queries.GetUserByEmail(ctx, email)
	if err == nil {
		slog.Debug("admin user already exists, skipping seed", "email", email)
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checking for admin user: %w", err)
	}

	passwordHash, err := hash(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now()
	user, err := queries.CreateUser(ctx, CreateUserParams{
		Email:        email,
		PasswordHash: passwordHash,
		Role:         "admin",
		Name:         "Administrator",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	slog.Info("created admin user", "id", user.ID, "email", user.Email)
	return nil
}
