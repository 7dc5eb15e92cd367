// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translations

import (
	"context"
	"encoding/json"
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-translations/internal/i18n"
	"github.com/olegiv/ocms-translations/internal/scheduler"
	"github.com/olegiv/ocms-translations/internal/testutil"
	"github.com/olegiv/ocms-translations/internal/testutil/moduleutil"
)

var translationTables = []string{
	"translation_directives",
	"translation_directive_inlines",
	"translation_requests",
	"translation_quotes",
	"translation_orders",
	"translation_request_items",
	"translation_callbacks",
}

func TestModuleMetadata(t *testing.T) {
	m := New()

	assert.Equal(t, ModuleName, m.Name())
	assert.NotEmpty(t, m.Version())
	assert.NotEmpty(t, m.Description())
	assert.Equal(t, AdminBasePath, m.AdminURL())
	assert.Equal(t, "Translations", m.SidebarLabel())
	assert.Contains(t, m.TemplateFuncs(), "translateURL")
}

func TestModuleMigrations(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	m := New()
	moduleutil.RunMigrations(t, db, m.Migrations())
	for _, table := range translationTables {
		moduleutil.AssertTableExists(t, db, table)
	}

	moduleutil.RunMigrationsDown(t, db, m.Migrations())
	for _, table := range translationTables {
		moduleutil.AssertTableNotExists(t, db, table)
	}
}

func TestModuleInitWithoutProviders(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	m := New()
	moduleutil.RunMigrations(t, db, m.Migrations())
	ctx, _ := moduleutil.TestModuleContext(t, db)
	ctx.Logger = testutil.TestLoggerSilent()
	require.NoError(t, m.Init(ctx))

	c := m.Controller()
	require.NotNil(t, c)
	assert.Empty(t, c.Backends())

	_, err := c.CreateRequest(context.Background(), CreateParams{
		Content:         map[string]any{"title": "x"},
		AppLabel:        "bookmarks",
		ModelName:       "bookmark",
		ObjectID:        "1",
		SourceLanguage:  "en",
		TargetLanguages: []string{"de"},
	})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestModuleInitDefaultBackend(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	m := NewWithProviders(newFakeProvider())
	moduleutil.RunMigrations(t, db, m.Migrations())
	ctx, _ := moduleutil.TestModuleContext(t, db)
	ctx.Logger = testutil.TestLoggerSilent()
	ctx.Config.TranslationBackend = "vendor"
	require.NoError(t, m.Init(ctx))

	assert.Equal(t, fakeBackend, m.Controller().DefaultBackend(), "an unavailable backend falls back to the first registered one")
}

func TestModuleStalledJob(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	sched := scheduler.New(testutil.TestLoggerSilent(), time.Second)
	m := NewWithProviders(newFakeProvider())
	moduleutil.RunMigrations(t, db, m.Migrations())
	ctx, _ := moduleutil.TestModuleContext(t, db)
	ctx.Logger = testutil.TestLoggerSilent()
	ctx.Scheduler = sched
	ctx.Config.StalledOrderAfter = 72 * time.Hour
	require.NoError(t, m.Init(ctx))

	jobs := sched.List()
	require.Len(t, jobs, 1)
	assert.Equal(t, ModuleName, jobs[0].Source)
	assert.Equal(t, stalledJobName, jobs[0].Name)

	require.NoError(t, sched.Trigger(context.Background(), ModuleName, stalledJobName))

	require.NoError(t, m.Shutdown())
	assert.Empty(t, sched.List())
}

func TestModuleLocales(t *testing.T) {
	m := New()
	fsys := m.LocalesFS()
	require.NotNil(t, fsys)

	keys := map[string]map[string]bool{}
	for _, lang := range []string{"en", "ru"} {
		raw, err := fs.ReadFile(fsys, "locales/"+lang+"/messages.json")
		require.NoError(t, err, lang)

		var file i18n.MessageFile
		require.NoError(t, json.Unmarshal(raw, &file), lang)
		assert.Equal(t, lang, file.Language)

		keys[lang] = map[string]bool{}
		for _, msg := range file.Messages {
			assert.NotEmpty(t, msg.Translation, "%s: %s", lang, msg.ID)
			keys[lang][msg.ID] = true
		}
	}
	assert.Equal(t, keys["en"], keys["ru"], "every language carries the same keys")

	for _, state := range States {
		assert.True(t, keys["en"]["translations.state."+string(state)], "missing label for %s", state)
	}

	require.NoError(t, i18n.LoadFS(fsys))
	assert.NotEqual(t, "translations.title", i18n.T("en", "translations.title"))
}
