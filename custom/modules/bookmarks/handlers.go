// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package bookmarks

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-translations/internal/i18n"
	"github.com/olegiv/ocms-translations/internal/middleware"
	"github.com/olegiv/ocms-translations/internal/render"
)

// Bookmark represents a saved bookmark.
type Bookmark struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	IsFavorite  bool      `json:"is_favorite"`
	Language    string    `json:"language"`
	CreatedAt   time.Time `json:"created_at"`
}

// adminRow is a bookmark with the languages it has been translated into.
type adminRow struct {
	Bookmark
	Translations []string
}

// handlePublicList handles GET /bookmarks. With ?lang= each bookmark is
// shown in that language when a translation exists.
func (m *Module) handlePublicList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	items, err := m.listBookmarks()
	if err != nil {
		m.ctx.Logger.Error("failed to list bookmarks", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if lang := r.URL.Query().Get("lang"); lang != "" {
		norm, err := i18n.NormalizeLanguage(lang)
		if err != nil {
			http.Error(w, "Invalid language", http.StatusBadRequest)
			return
		}
		for i := range items {
			if items[i].Language == norm {
				continue
			}
			translated, err := m.getBookmark(ctx, items[i].ID, norm)
			if errors.Is(err, errBookmarkNotFound) {
				continue
			}
			if err != nil {
				m.ctx.Logger.Error("failed to load bookmark translation", "bookmark_id", items[i].ID, "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			items[i] = *translated
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"bookmarks": items,
		"total":     len(items),
	})
}

// handleAdminList handles GET /admin/bookmarks.
func (m *Module) handleAdminList(w http.ResponseWriter, r *http.Request) {
	lang := middleware.GetAdminLang(r)

	items, err := m.listBookmarks()
	if err != nil {
		m.ctx.Logger.Error("failed to list bookmarks", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	translated, err := m.translatedLanguages(r.Context())
	if err != nil {
		m.ctx.Logger.Error("failed to list bookmark translations", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	rows := make([]adminRow, 0, len(items))
	for _, b := range items {
		rows = append(rows, adminRow{Bookmark: b, Translations: translated[b.ID]})
	}

	if err := m.ctx.Render.Render(w, r, "bookmarks/list", render.TemplateData{
		Title: i18n.T(lang, "bookmarks.title"),
		Data: struct {
			Bookmarks []adminRow
			Version   string
		}{
			Bookmarks: rows,
			Version:   m.Version(),
		},
	}); err != nil {
		m.ctx.Logger.Error("render error", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// handleCreate handles POST /admin/bookmarks.
func (m *Module) handleCreate(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.FormValue("title"))
	bookmarkURL := strings.TrimSpace(r.FormValue("url"))
	description := strings.TrimSpace(r.FormValue("description"))
	isFavorite := r.FormValue("is_favorite") == "on"

	if title == "" {
		http.Error(w, "Title is required", http.StatusBadRequest)
		return
	}
	if bookmarkURL == "" {
		http.Error(w, "URL is required", http.StatusBadRequest)
		return
	}
	language := i18n.DefaultLanguage
	if raw := strings.TrimSpace(r.FormValue("language")); raw != "" {
		norm, err := i18n.NormalizeLanguage(raw)
		if err != nil {
			http.Error(w, "Invalid language", http.StatusBadRequest)
			return
		}
		language = norm
	}

	bookmark, err := m.createBookmark(title, bookmarkURL, description, language, isFavorite)
	if err != nil {
		m.ctx.Logger.Error("failed to create bookmark", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if r.Header.Get("Accept") == "application/json" {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(bookmark)
		return
	}

	http.Redirect(w, r, "/admin/bookmarks", http.StatusSeeOther)
}

// handleToggleFavorite handles POST /admin/bookmarks/{id}/toggle.
func (m *Module) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	if err := m.toggleFavorite(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.NotFound(w, r)
			return
		}
		m.ctx.Logger.Error("failed to toggle favorite", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/admin/bookmarks", http.StatusSeeOther)
}

// handleDelete handles POST /admin/bookmarks/{id}/delete.
func (m *Module) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	if err := m.deleteBookmark(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.NotFound(w, r)
			return
		}
		m.ctx.Logger.Error("failed to delete bookmark", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/admin/bookmarks", http.StatusSeeOther)
}

// Database operations

const bookmarkColumns = `id, title, url, description, is_favorite, language, created_at`

func (m *Module) listBookmarks() ([]Bookmark, error) {
	rows, err := m.ctx.DB.Query(`
		SELECT ` + bookmarkColumns + `
		FROM bookmarks
		ORDER BY is_favorite DESC, created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing bookmarks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanBookmarks(rows)
}

func (m *Module) listFavorites() ([]Bookmark, error) {
	rows, err := m.ctx.DB.Query(`
		SELECT ` + bookmarkColumns + `
		FROM bookmarks
		WHERE is_favorite = 1
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanBookmarks(rows)
}

func (m *Module) countBookmarks() (int, error) {
	var count int
	if err := m.ctx.DB.QueryRow("SELECT COUNT(*) FROM bookmarks").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting bookmarks: %w", err)
	}
	return count, nil
}

func (m *Module) createBookmark(title, bookmarkURL, description, language string, isFavorite bool) (*Bookmark, error) {
	now := time.Now()
	result, err := m.ctx.DB.Exec(`
		INSERT INTO bookmarks (title, url, description, is_favorite, language, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, title, bookmarkURL, description, isFavorite, language, now)
	if err != nil {
		return nil, fmt.Errorf("creating bookmark: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting last insert id: %w", err)
	}

	return &Bookmark{
		ID:          id,
		Title:       title,
		URL:         bookmarkURL,
		Description: description,
		IsFavorite:  isFavorite,
		Language:    language,
		CreatedAt:   now,
	}, nil
}

func (m *Module) toggleFavorite(id int64) error {
	result, err := m.ctx.DB.Exec(`UPDATE bookmarks SET is_favorite = NOT is_favorite WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("toggling favorite: %w", err)
	}
	return requireRow(result)
}

func (m *Module) deleteBookmark(id int64) error {
	result, err := m.ctx.DB.Exec(`DELETE FROM bookmarks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting bookmark: %w", err)
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// scanBookmarks scans rows into a slice of Bookmark.
func scanBookmarks(rows *sql.Rows) ([]Bookmark, error) {
	var items []Bookmark
	for rows.Next() {
		var b Bookmark
		if err := rows.Scan(&b.ID, &b.Title, &b.URL, &b.Description, &b.IsFavorite, &b.Language, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning bookmark: %w", err)
		}
		items = append(items, b)
	}
	return items, rows.Err()
}
