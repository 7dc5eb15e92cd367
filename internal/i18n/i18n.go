// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package i18n provides message catalogs for the admin UI and language code
// helpers shared by the translation workflow.
package i18n

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

//go:embed locales
var localesFS embed.FS

// DefaultLanguage is used when no better match exists.
const DefaultLanguage = "en"

// MaxLanguageCodeLength bounds stored language codes.
const MaxLanguageCodeLength = 10

// ErrInvalidLanguage is returned by NormalizeLanguage for codes that are not BCP 47.
var ErrInvalidLanguage = errors.New("invalid language code")

// SupportedLanguages lists the admin UI languages.
var SupportedLanguages = []string{"en", "ru"}

// Message is a single translatable message.
type Message struct {
	ID          string `json:"id"`
	Message     string `json:"message"`
	Translation string `json:"translation"`
}

// MessageFile is the layout of locales/{lang}/messages.json.
type MessageFile struct {
	Language string    `json:"language"`
	Messages []Message `json:"messages"`
}

type catalog struct {
	mu           sync.RWMutex
	translations map[string]map[string]string
	matcher      language.Matcher
	supported    []language.Tag
}

var (
	global   *catalog
	initOnce sync.Once
	initErr  error
)

// Init loads the embedded admin messages. It is safe to call more than once;
// T and MatchLanguage call it lazily.
func Init(logger *slog.Logger) error {
	initOnce.Do(func() {
		c := &catalog{translations: make(map[string]map[string]string)}
		for _, lang := range SupportedLanguages {
			c.supported = append(c.supported, language.MustParse(lang))
		}
		c.matcher = language.NewMatcher(c.supported)
		global = c

		if err := LoadFS(localesFS); err != nil {
			initErr = err
			return
		}
		if logger != nil {
			logger.Info("i18n initialized", "languages", SupportedLanguages)
		}
	})
	return initErr
}

// LoadFS merges message files found at locales/{lang}/messages.json in fsys.
// Modules ship their own files and load them at init.
func LoadFS(fsys fs.FS) error {
	if global == nil {
		if err := Init(nil); err != nil {
			return err
		}
	}

	entries, err := fs.ReadDir(fsys, "locales")
	if err != nil {
		return fmt.Errorf("reading locales: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		p := path.Join("locales", entry.Name(), "messages.json")
		data, err := fs.ReadFile(fsys, p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}

		var file MessageFile
		if err := json.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("parsing %s: %w", p, err)
		}

		lang := entry.Name()
		global.mu.Lock()
		if global.translations[lang] == nil {
			global.translations[lang] = make(map[string]string, len(file.Messages))
		}
		for _, msg := range file.Messages {
			global.translations[lang][msg.ID] = msg.Translation
		}
		global.mu.Unlock()
	}
	return nil
}

// T translates key into lang, falling back to the default language and then
// to the key itself. Args are applied with fmt.Sprintf.
func T(lang, key string, args ...any) string {
	if err := Init(nil); err != nil {
		return key
	}

	global.mu.RLock()
	translation, ok := global.translations[lang][key]
	if !ok {
		translation, ok = global.translations[DefaultLanguage][key]
	}
	global.mu.RUnlock()

	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(translation, args...)
	}
	return translation
}

// MatchLanguage picks the best admin UI language for an Accept-Language
// header or a bare language code.
func MatchLanguage(acceptLang string) string {
	if err := Init(nil); err != nil {
		return DefaultLanguage
	}

	tags, _, err := language.ParseAcceptLanguage(acceptLang)
	if err != nil || len(tags) == 0 {
		return DefaultLanguage
	}

	_, idx, conf := global.matcher.Match(tags...)
	if conf == language.No || idx < 0 || idx >= len(global.supported) {
		return DefaultLanguage
	}
	return global.supported[idx].String()
}

// IsSupported reports whether lang is an admin UI language.
func IsSupported(lang string) bool {
	return slices.Contains(SupportedLanguages, strings.ToLower(lang))
}

// TranslationCount returns the number of messages loaded for lang.
func TranslationCount(lang string) int {
	if err := Init(nil); err != nil {
		return 0
	}
	global.mu.RLock()
	defer global.mu.RUnlock()
	return len(global.translations[lang])
}

// NormalizeLanguage validates a content language code and returns its
// canonical BCP 47 form ("pt_BR" becomes "pt-BR").
func NormalizeLanguage(code string) (string, error) {
	code = strings.TrimSpace(strings.ReplaceAll(code, "_", "-"))
	if code == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidLanguage)
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidLanguage, code)
	}
	s := tag.String()
	if len(s) > MaxLanguageCodeLength {
		return "", fmt.Errorf("%w: %q longer than %d characters", ErrInvalidLanguage, s, MaxLanguageCodeLength)
	}
	return s, nil
}

// NormalizeLanguages normalizes a list of codes, dropping duplicates and
// the excluded source language while keeping the input order.
func NormalizeLanguages(codes []string, exclude string) ([]string, error) {
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		if strings.TrimSpace(code) == "" {
			continue
		}
		norm, err := NormalizeLanguage(code)
		if err != nil {
			return nil, err
		}
		if norm == exclude || slices.Contains(out, norm) {
			continue
		}
		out = append(out, norm)
	}
	return out, nil
}

// LanguageName returns the English display name of a language code, or the
// code itself when unknown.
func LanguageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}
