// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"database/sql"
	"time"
)

// NullInt64FromValue creates a valid sql.NullInt64 from an int64 value.
func NullInt64FromValue(val int64) sql.NullInt64 {
	return sql.NullInt64{Int64: val, Valid: true}
}

// NullTimeFromValue treats the zero time as NULL.
func NullTimeFromValue(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
