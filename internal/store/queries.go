// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries wraps the core SQL statements.
type Queries struct {
	db DBTX
}

// New returns Queries bound to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns Queries bound to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// User is an admin account.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         string
	Name         string
	LastLoginAt  sql.NullTime
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Event is an entry in the event log.
type Event struct {
	ID        int64
	Level     string
	Category  string
	Message   string
	UserID    sql.NullInt64
	Metadata  string
	CreatedAt time.Time
}

const userColumns = `id, email, password_hash, role, name, last_login_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Name, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// CreateUserParams holds the fields for CreateUser.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	Role         string
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateUser inserts a user and returns it.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, role, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING `+userColumns,
		arg.Email, arg.PasswordHash, arg.Role, arg.Name, arg.CreatedAt, arg.UpdatedAt,
	)
	return scanUser(row)
}

// GetUserByID returns the user with the given id.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByEmail returns the user with the given email.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// CountUsers returns the number of users.
func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// UpdateUserLastLogin stamps the last successful login.
func (q *Queries) UpdateUserLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := q.db.ExecContext(ctx, `UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ?`, at, at, id)
	return err
}

// CreateEventParams holds the fields for CreateEvent.
type CreateEventParams struct {
	Level     string
	Category  string
	Message   string
	UserID    sql.NullInt64
	Metadata  string
	CreatedAt time.Time
}

// CreateEvent appends an entry to the event log.
func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (Event, error) {
	if arg.Metadata == "" {
		arg.Metadata = "{}"
	}
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO events (level, category, message, user_id, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id, level, category, message, user_id, metadata, created_at`,
		arg.Level, arg.Category, arg.Message, arg.UserID, arg.Metadata, arg.CreatedAt,
	)
	var e Event
	err := row.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &e.UserID, &e.Metadata, &e.CreatedAt)
	return e, err
}

// ListEventsParams filters ListEvents. An empty Category matches all.
type ListEventsParams struct {
	Category string
	Limit    int64
}

// ListEvents returns the newest events first.
func (q *Queries) ListEvents(ctx context.Context, arg ListEventsParams) ([]Event, error) {
	if arg.Limit <= 0 {
		arg.Limit = 50
	}
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, level, category, message, user_id, metadata, created_at
		FROM events
		WHERE (? = '' OR category = ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		arg.Category, arg.Category, arg.Limit,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &e.UserID, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// DeleteEventsBefore removes events older than the cutoff and returns how many were deleted.
func (q *Queries) DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM events WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
