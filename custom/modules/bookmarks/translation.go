// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package bookmarks

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/olegiv/ocms-translations/internal/module"
)

// translatableFields are the bookmark fields sent to translators.
var translatableFields = []string{"title", "description"}

// registerHooks answers the translation export and import hooks for bookmarks.
func (m *Module) registerHooks() {
	m.ctx.Hooks.Register(module.HookTranslationExport, module.HookHandler{
		Name:     "bookmarks_export",
		Module:   m.Name(),
		Priority: 20,
		Fn:       m.exportHook,
	})
	m.ctx.Hooks.Register(module.HookTranslationImport, module.HookHandler{
		Name:     "bookmarks_import",
		Module:   m.Name(),
		Priority: 20,
		Fn:       m.importHook,
	})
}

func (m *Module) owns(appLabel, modelName string) bool {
	return appLabel == AppLabel && modelName == ModelName
}

func (m *Module) exportHook(ctx context.Context, data any) (any, error) {
	exp, ok := data.(*module.TranslationExport)
	if !ok || exp.Found || !m.owns(exp.AppLabel, exp.ModelName) {
		return data, nil
	}
	id, err := strconv.ParseInt(exp.ObjectID, 10, 64)
	if err != nil {
		return data, nil
	}

	b, err := m.getBookmark(ctx, id, exp.Language)
	if errors.Is(err, errBookmarkNotFound) {
		return data, nil
	}
	if err != nil {
		return nil, err
	}

	exp.Content = map[string]any{
		"title":       b.Title,
		"description": b.Description,
	}
	exp.Found = true
	return exp, nil
}

func (m *Module) importHook(ctx context.Context, data any) (any, error) {
	imp, ok := data.(*module.TranslationImport)
	if !ok || !m.owns(imp.AppLabel, imp.ModelName) {
		return data, nil
	}
	id, err := strconv.ParseInt(imp.ObjectID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bookmark id %q: %w", imp.ObjectID, err)
	}

	fields := make(map[string]string, len(translatableFields))
	for _, name := range translatableFields {
		v, present := imp.Fields[name]
		if !present {
			continue
		}
		s, isString := v.(string)
		if !isString {
			return nil, fmt.Errorf("bookmark field %s: expected a string, got %T", name, v)
		}
		fields[name] = strings.TrimSpace(s)
	}
	if fields["title"] == "" {
		return nil, fmt.Errorf("bookmark %d: translation for %s has no title", id, imp.Language)
	}

	if err := m.saveTranslation(ctx, id, imp.Language, fields["title"], fields["description"], imp.RequestID); err != nil {
		return nil, err
	}
	m.ctx.Logger.Info("bookmark translation imported",
		"bookmark_id", id,
		"language", imp.Language,
		"request_id", imp.RequestID,
	)
	imp.Imported++
	return imp, nil
}

var errBookmarkNotFound = errors.New("bookmark not found")

// getBookmark returns bookmark id in lang. The source language is served
// from the bookmark itself, other languages from stored translations.
func (m *Module) getBookmark(ctx context.Context, id int64, lang string) (*Bookmark, error) {
	var b Bookmark
	err := m.ctx.DB.QueryRowContext(ctx, `
		SELECT id, title, url, description, is_favorite, language, created_at
		FROM bookmarks WHERE id = ?`, id,
	).Scan(&b.ID, &b.Title, &b.URL, &b.Description, &b.IsFavorite, &b.Language, &b.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, errBookmarkNotFound
		}
		return nil, fmt.Errorf("loading bookmark %d: %w", id, err)
	}
	if lang == "" || lang == b.Language {
		return &b, nil
	}

	err = m.ctx.DB.QueryRowContext(ctx, `
		SELECT title, description FROM bookmark_translations
		WHERE bookmark_id = ? AND language = ?`, id, lang,
	).Scan(&b.Title, &b.Description)
	if err != nil {
		if isNoRows(err) {
			return nil, errBookmarkNotFound
		}
		return nil, fmt.Errorf("loading bookmark %d in %s: %w", id, lang, err)
	}
	b.Language = lang
	return &b, nil
}

// saveTranslation stores or replaces the translation of a bookmark.
func (m *Module) saveTranslation(ctx context.Context, id int64, lang, title, description string, requestID int64) error {
	_, err := m.ctx.DB.ExecContext(ctx, `
		INSERT INTO bookmark_translations (bookmark_id, language, title, description, request_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (bookmark_id, language) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			request_id = excluded.request_id,
			updated_at = excluded.updated_at`,
		id, lang, title, description, requestID, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("saving bookmark %d translation %s: %w", id, lang, err)
	}
	return nil
}

// translatedLanguages returns the languages each bookmark is translated into.
func (m *Module) translatedLanguages(ctx context.Context) (map[int64][]string, error) {
	rows, err := m.ctx.DB.QueryContext(ctx,
		`SELECT bookmark_id, language FROM bookmark_translations ORDER BY bookmark_id, language`)
	if err != nil {
		return nil, fmt.Errorf("listing bookmark translations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[int64][]string)
	for rows.Next() {
		var id int64
		var lang string
		if err := rows.Scan(&id, &lang); err != nil {
			return nil, err
		}
		out[id] = append(out[id], lang)
	}
	return out, rows.Err()
}
