// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/ocms-translations/internal/store"
)

// EventRetentionJob deletes event log entries older than days.
func EventRetentionJob(db *sql.DB, days int, logger *slog.Logger) Job {
	return func(ctx context.Context) error {
		if days <= 0 {
			return nil
		}
		cutoff := time.Now().AddDate(0, 0, -days)
		n, err := store.New(db).DeleteEventsBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("purging events: %w", err)
		}
		if n > 0 {
			logger.Info("purged old events", "count", n, "before", cutoff.Format(time.RFC3339))
		}
		return nil
	}
}
