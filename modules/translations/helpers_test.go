// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translations

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/olegiv/ocms-translations/internal/module"
	"github.com/olegiv/ocms-translations/internal/testutil"
	"github.com/olegiv/ocms-translations/internal/testutil/moduleutil"
	"github.com/olegiv/ocms-translations/modules/translations/provider"
)

const fakeBackend = "fake"

var errFakeUpstream = &provider.Error{StatusCode: 502, Body: "upstream exploded", Retryable: true}

// fakeProvider is an in-process provider with scripted answers.
type fakeProvider struct {
	mu          sync.Mutex
	quotes      []provider.Quote
	quoteErr    error
	submitErr   error
	orderID     string
	completion  json.RawMessage
	onSubmit    func(provider.OrderRequest) // runs before the response is returned
	quoteCalls  int
	submitCalls int
	lastQuote   provider.QuoteRequest
	lastOrder   provider.OrderRequest
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		quotes: []provider.Quote{{
			ProviderQuoteID: "q-standard",
			Name:            "Standard",
			Description:     "Human translation, **two** reviewers",
			DeliveryDate:    time.Now().Add(72 * time.Hour),
			Price:           1000,
			Currency:        "EUR",
		}},
		orderID: "ord-1",
	}
}

func (p *fakeProvider) Name() string { return fakeBackend }

func (p *fakeProvider) Quote(_ context.Context, req provider.QuoteRequest) ([]provider.Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quoteCalls++
	p.lastQuote = req
	if p.quoteErr != nil {
		return nil, p.quoteErr
	}
	return p.quotes, nil
}

func (p *fakeProvider) Submit(_ context.Context, req provider.OrderRequest) (*provider.OrderResponse, error) {
	p.mu.Lock()
	p.submitCalls++
	p.lastOrder = req
	onSubmit := p.onSubmit
	p.mu.Unlock()

	if onSubmit != nil {
		onSubmit(req)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.submitErr != nil {
		return nil, p.submitErr
	}
	return &provider.OrderResponse{
		ProviderOrderID: p.orderID,
		RequestContent:  json.RawMessage(`{"quote":"` + req.ProviderQuoteID + `"}`),
		ResponseContent: json.RawMessage(`{"Id":"` + p.orderID + `"}`),
		Completion:      p.completion,
	}, nil
}

func (p *fakeProvider) calls() (quotes, submits int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.quoteCalls, p.submitCalls
}

// contentStore plays a content module answering the export and import hooks.
type contentStore struct {
	mu       sync.Mutex
	source   map[string]any
	imported map[string]map[string]any // language -> fields
	imports  int
	failWith error
}

func newContentStore() *contentStore {
	return &contentStore{
		source:   map[string]any{"title": "Hello world", "body": "<p>Welcome</p>"},
		imported: make(map[string]map[string]any),
	}
}

func (cs *contentStore) register(hooks *module.HookRegistry) {
	hooks.RegisterFunc(module.HookTranslationExport, "test_export", "bookmarks", func(_ context.Context, data any) (any, error) {
		exp := data.(*module.TranslationExport)
		if exp.AppLabel == "bookmarks" && exp.ObjectID == "1" {
			exp.Content = cs.source
			exp.Found = true
		}
		return exp, nil
	})
	hooks.RegisterFunc(module.HookTranslationImport, "test_import", "bookmarks", func(_ context.Context, data any) (any, error) {
		imp := data.(*module.TranslationImport)
		cs.mu.Lock()
		defer cs.mu.Unlock()
		if cs.failWith != nil {
			return nil, cs.failWith
		}
		cs.imported[imp.Language] = imp.Fields
		cs.imports++
		imp.Imported++
		return imp, nil
	})
}

func (cs *contentStore) importCount() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.imports
}

type testEnv struct {
	db         *sql.DB
	controller *Controller
	provider   *fakeProvider
	content    *contentStore
	hooks      *module.HookRegistry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)
	moduleutil.RunMigrations(t, db, New().Migrations())

	logger := testutil.TestLoggerSilent()
	hooks := module.NewHookRegistry(logger)
	content := newContentStore()
	content.register(hooks)
	fp := newFakeProvider()

	c := NewController(ControllerConfig{
		DB:        db,
		Providers: provider.NewRegistry(fp),
		Hooks:     hooks,
		Logger:    logger,
		CallbackURL: func(id int64) string {
			return fmt.Sprintf("http://localhost:8080/translations/%d/callback", id)
		},
		DefaultBackend: fakeBackend,
	})
	return &testEnv{db: db, controller: c, provider: fp, content: content, hooks: hooks}
}

func (e *testEnv) createRequest(t *testing.T, targets ...string) *Request {
	t.Helper()
	if len(targets) == 0 {
		targets = []string{"de"}
	}
	req, err := e.controller.CreateRequest(context.Background(), CreateParams{
		Content:         e.content.source,
		AppLabel:        "bookmarks",
		ModelName:       "bookmark",
		ObjectID:        "1",
		SourceLanguage:  "en",
		TargetLanguages: targets,
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	return req
}

// orderedRequest returns a request in in_translation with the fake order placed.
func (e *testEnv) orderedRequest(t *testing.T, targets ...string) *Request {
	t.Helper()
	ctx := context.Background()
	req := e.createRequest(t, targets...)
	quotes, err := e.controller.FetchQuote(ctx, req.ID)
	if err != nil {
		t.Fatalf("FetchQuote: %v", err)
	}
	if _, err := e.controller.ChooseQuote(ctx, req.ID, quotes[0].ID); err != nil {
		t.Fatalf("ChooseQuote: %v", err)
	}
	return e.reload(t, req.ID)
}

func (e *testEnv) reload(t *testing.T, id int64) *Request {
	t.Helper()
	req, err := e.controller.Store().GetRequest(context.Background(), id)
	if err != nil {
		t.Fatalf("GetRequest(%d): %v", id, err)
	}
	return req
}

func completedPayload(orderID string, translations map[string]map[string]any) []byte {
	raw, _ := json.Marshal(map[string]any{
		"order_id":     orderID,
		"status":       CallbackCompleted,
		"translations": translations,
	})
	return raw
}
