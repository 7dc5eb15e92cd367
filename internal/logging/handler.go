// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a slog handler that mirrors WARN and ERROR records
// into the events table.
package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/olegiv/ocms-translations/internal/middleware"
	"github.com/olegiv/ocms-translations/internal/model"
	"github.com/olegiv/ocms-translations/internal/store"
)

// EventLogHandler wraps another handler and also writes records at or above
// its level to the event log.
type EventLogHandler struct {
	inner   slog.Handler
	queries *store.Queries
	level   slog.Level
	attrs   []slog.Attr
	group   string
}

// NewEventLogHandler forwards WARN and above to the event log.
func NewEventLogHandler(inner slog.Handler, db *sql.DB) *EventLogHandler {
	return NewEventLogHandlerWithLevel(inner, db, slog.LevelWarn)
}

// NewEventLogHandlerWithLevel creates a handler with a custom minimum level.
func NewEventLogHandlerWithLevel(inner slog.Handler, db *sql.DB, level slog.Level) *EventLogHandler {
	return &EventLogHandler{
		inner:   inner,
		queries: store.New(db),
		level:   level,
	}
}

// Enabled implements slog.Handler.
func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	if r.Level >= h.level {
		h.writeToEventLog(ctx, r)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.inner = h.inner.WithAttrs(attrs)
	next.attrs = append(append([]slog.Attr{}, h.attrs...), h.qualify(attrs)...)
	return &next
}

// WithGroup implements slog.Handler.
func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	next := *h
	next.inner = h.inner.WithGroup(name)
	if h.group != "" {
		next.group = h.group + "." + name
	} else {
		next.group = name
	}
	return &next
}

func (h *EventLogHandler) qualify(attrs []slog.Attr) []slog.Attr {
	if h.group == "" {
		return attrs
	}
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = slog.Attr{Key: h.group + "." + a.Key, Value: a.Value}
	}
	return out
}

// writeToEventLog uses a background context so events survive request cancellation.
func (h *EventLogHandler) writeToEventLog(ctx context.Context, r slog.Record) {
	attrs := append([]slog.Attr{}, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, h.qualify([]slog.Attr{a})...)
		return true
	})

	category := ""
	var userID sql.NullInt64
	meta := make(map[string]any, len(attrs)+1)
	for _, a := range attrs {
		switch a.Key {
		case "category":
			category = a.Value.String()
			continue
		case "user_id":
			if id, ok := int64Value(a.Value); ok && id > 0 {
				userID = sql.NullInt64{Int64: id, Valid: true}
			}
		}
		meta[a.Key] = attrValue(a.Value)
	}
	if category == "" {
		category = inferCategory(r.Message)
	}
	if path := middleware.GetRequestPath(ctx); path != "" {
		meta["url"] = path
	}

	metadata := "{}"
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			metadata = string(b)
		}
	}

	_, _ = h.queries.CreateEvent(context.Background(), store.CreateEventParams{
		Level:     eventLevel(r.Level),
		Category:  category,
		Message:   r.Message,
		UserID:    userID,
		Metadata:  metadata,
		CreatedAt: r.Time,
	})
}

func eventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return model.EventLevelError
	case level >= slog.LevelWarn:
		return model.EventLevelWarning
	default:
		return model.EventLevelInfo
	}
}

// inferCategory guesses a category from the message when none was given.
func inferCategory(msg string) string {
	msg = strings.ToLower(msg)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(msg, w) {
				return true
			}
		}
		return false
	}

	switch {
	case has("translation", "quote", "order", "callback", "provider"):
		return model.EventCategoryTranslation
	case has("webhook"):
		return model.EventCategoryWebhook
	case has("scheduler", "job"):
		return model.EventCategoryScheduler
	case has("auth", "login", "logout", "csrf", "access denied"):
		return model.EventCategoryAuth
	case has("user"):
		return model.EventCategoryUser
	case has("config", "setting"):
		return model.EventCategoryConfig
	case has("cache", "redis"):
		return model.EventCategoryCache
	default:
		return model.EventCategorySystem
	}
}

func int64Value(v slog.Value) (int64, bool) {
	switch v.Kind() {
	case slog.KindInt64:
		return v.Int64(), true
	case slog.KindUint64:
		return int64(v.Uint64()), true
	default:
		return 0, false
	}
}

func attrValue(v slog.Value) any {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time()
	case slog.KindGroup:
		m := make(map[string]any)
		for _, a := range v.Group() {
			m[a.Key] = attrValue(a.Value)
		}
		return m
	default:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	}
}
