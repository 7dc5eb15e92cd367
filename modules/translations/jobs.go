// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translations

import (
	"context"
	"fmt"
	"time"

	"github.com/olegiv/ocms-translations/internal/model"
	"github.com/olegiv/ocms-translations/internal/scheduler"
	"github.com/olegiv/ocms-translations/internal/webhook"
)

const stalledReportTTL = 24 * time.Hour

// ReportStalled finds requests submitted more than olderThan ago that have
// not been imported. Each request is reported at most once a day when a
// cache is configured. It returns the ids that were reported.
func (c *Controller) ReportStalled(ctx context.Context, olderThan time.Duration) ([]int64, error) {
	cutoff := c.now().Add(-olderThan)
	stalled, err := c.store.ListStalled(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("listing stalled requests: %w", err)
	}

	var ids []int64
	for _, req := range stalled {
		if c.cache != nil {
			fresh, err := c.cache.Add(ctx, fmt.Sprintf("translations:stalled:%d", req.ID), []byte{1}, stalledReportTTL)
			if err == nil && !fresh {
				continue
			}
		}
		ids = append(ids, req.ID)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	c.logger.Warn("translation orders stalled",
		"category", model.EventCategoryTranslation,
		"count", len(ids),
		"request_ids", ids,
		"submitted_before", cutoff,
	)
	if err := c.notifier.Notify(ctx, webhook.EventTranslationStalled, webhook.StalledOrdersData{
		Since:    cutoff,
		Requests: ids,
	}); err != nil {
		c.logger.Warn("queueing stalled orders webhook", "error", err)
	}
	return ids, nil
}

// StalledOrdersJob wraps ReportStalled for the scheduler.
func (c *Controller) StalledOrdersJob(olderThan time.Duration) scheduler.Job {
	return func(ctx context.Context) error {
		_, err := c.ReportStalled(ctx, olderThan)
		return err
	}
}
