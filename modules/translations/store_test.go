// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translations

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-translations/internal/testutil"
	"github.com/olegiv/ocms-translations/internal/testutil/moduleutil"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)
	moduleutil.RunMigrations(t, db, New().Migrations())
	return NewStore(db)
}

func insertRequest(t *testing.T, s *Store) *Request {
	t.Helper()
	now := time.Now()
	req, err := s.CreateRequest(context.Background(), Request{
		ProviderOrderName: "bookmarks-bookmark-abcd1234",
		SourceLanguage:    "en",
		TargetLanguages:   []string{"de", "fr"},
		ProviderBackend:   fakeBackend,
		ProviderOptions:   map[string]any{"tone": "formal"},
		ExportContent:     json.RawMessage(`{"title":"Hello"}`),
		DateCreated:       now,
	})
	require.NoError(t, err)
	return req
}

func TestStoreCreateAndGetRequest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := insertRequest(t, s)
	assert.Equal(t, StatePendingQuote, created.State)

	got, err := s.GetRequest(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"de", "fr"}, got.TargetLanguages)
	assert.Equal(t, "formal", got.ProviderOptions["tone"])
	assert.JSONEq(t, `{"title":"Hello"}`, string(got.ExportContent))
	assert.False(t, got.UserID.Valid)
	assert.False(t, got.DateSubmitted.Valid)

	_, err = s.GetRequest(ctx, created.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreCompareAndSetState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	req := insertRequest(t, s)
	now := time.Now()

	ok, err := s.CompareAndSetState(ctx, req.ID, StateInTranslation, StateImportStarted, now)
	require.NoError(t, err)
	assert.False(t, ok, "transition from a state the request is not in must fail")

	ok, err = s.CompareAndSetState(ctx, req.ID, StatePendingQuote, StatePendingApproval, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.CompareAndSetState(ctx, req.ID, StatePendingApproval, StateInTranslation, now)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := s.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, StateInTranslation, got.State)
	assert.True(t, got.DateSubmitted.Valid)

	// Moving back before the order clears the order dates.
	ok, err = s.CompareAndSetState(ctx, req.ID, StateInTranslation, StatePendingApproval, now)
	require.NoError(t, err)
	require.True(t, ok)

	got, err = s.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.False(t, got.DateSubmitted.Valid)
}

func TestStoreCountByState(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := insertRequest(t, s)
	insertRequest(t, s)
	_, err := s.CompareAndSetState(ctx, first.ID, StatePendingQuote, StatePendingApproval, time.Now())
	require.NoError(t, err)

	counts, err := s.CountByState(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[StatePendingQuote])
	assert.Equal(t, int64(1), counts[StatePendingApproval])

	n, err := s.CountRequests(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	list, err := s.ListRequests(ctx, ListRequestsParams{State: StatePendingApproval, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)
}

func TestStoreReplaceQuotes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	req := insertRequest(t, s)
	now := time.Now()

	first, err := s.ReplaceQuotes(ctx, req.ID, []Quote{
		{ProviderQuoteID: "a", Name: "A", Price: 100, Currency: "EUR", DateCreated: now},
		{ProviderQuoteID: "b", Name: "B", Price: 200, Currency: "EUR", DateCreated: now},
	})
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := s.ReplaceQuotes(ctx, req.ID, []Quote{
		{ProviderQuoteID: "c", Name: "C", Price: 300, Currency: "USD", DateCreated: now},
	})
	require.NoError(t, err)
	require.Len(t, second, 1)

	quotes, err := s.ListQuotes(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "c", quotes[0].ProviderQuoteID)

	_, err = s.GetQuote(ctx, first[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreSingleLiveOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	req := insertRequest(t, s)
	now := time.Now()

	order, err := s.CreateOrder(ctx, Order{RequestID: req.ID, Price: 100, Currency: "EUR", DateCreated: now})
	require.NoError(t, err)
	assert.Equal(t, OrderOpen, order.State)

	_, err = s.CreateOrder(ctx, Order{RequestID: req.ID, DateCreated: now})
	assert.ErrorIs(t, err, ErrInvalidState)

	// A failed order no longer blocks a new one.
	require.NoError(t, s.SetOrderState(ctx, order.ID, OrderFailed, sql.NullTime{}))
	second, err := s.CreateOrder(ctx, Order{RequestID: req.ID, DateCreated: now})
	require.NoError(t, err)

	require.NoError(t, s.MarkOrderSubmitted(ctx, second.ID, "ext-9", json.RawMessage(`{}`), json.RawMessage(`{"Id":"ext-9"}`)))
	active, err := s.GetActiveOrder(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
	assert.Equal(t, OrderPending, active.State)

	byProvider, err := s.GetOrderByProviderID(ctx, req.ID, "ext-9")
	require.NoError(t, err)
	assert.Equal(t, second.ID, byProvider.ID)

	_, err = s.GetOrderByProviderID(ctx, req.ID, "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	n, err := s.SupersedeOrders(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "only the live order is superseded")

	orders, err := s.ListOrders(ctx, req.ID)
	require.NoError(t, err)
	states := map[OrderState]int{}
	for _, o := range orders {
		states[o.State]++
	}
	assert.Equal(t, map[OrderState]int{OrderFailed: 1, OrderSuperseded: 1}, states)
}

func TestStoreEarlyClaimAndSettledOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	req := insertRequest(t, s)

	_, err := s.ClaimOpenOrder(ctx, req.ID, "ext-1")
	assert.ErrorIs(t, err, ErrOrderNotFound, "nothing to claim without an order")

	order, err := s.CreateOrder(ctx, Order{RequestID: req.ID, DateCreated: time.Now()})
	require.NoError(t, err)

	claimed, err := s.ClaimOpenOrder(ctx, req.ID, "ext-1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, claimed.ID)
	assert.Equal(t, "ext-1", claimed.ProviderOrderID)
	assert.Equal(t, OrderOpen, claimed.State)

	_, err = s.ClaimOpenOrder(ctx, req.ID, "ext-2")
	assert.ErrorIs(t, err, ErrOrderNotFound, "a claimed order is not claimed twice")

	_, err = s.GetSettledOrder(ctx, req.ID, "ext-1")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	require.NoError(t, s.SetOrderState(ctx, order.ID, OrderDone, sql.NullTime{Time: time.Now(), Valid: true}))
	require.NoError(t, s.MarkOrderSubmitted(ctx, order.ID, "ext-late", json.RawMessage(`{}`), json.RawMessage(`{"Id":"ext-late"}`)))

	got, err := s.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "ext-1", got.ProviderOrderID, "the late acknowledgement keeps the claimed id")
	assert.Equal(t, OrderDone, got.State)

	settled, err := s.GetSettledOrder(ctx, req.ID, "ext-1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, settled.ID)

	_, err = s.GetSettledOrder(ctx, req.ID, "ext-late")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestStoreCallbackReceipts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	req := insertRequest(t, s)
	hash := PayloadHash([]byte(`{"order_id":"x","status":"failed"}`))

	inserted, err := s.InsertCallback(ctx, Callback{RequestID: req.ID, PayloadSHA256: hash, Status: callbackProcessing, ReceivedAt: time.Now()})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.InsertCallback(ctx, Callback{RequestID: req.ID, PayloadSHA256: hash, Status: callbackProcessing, ReceivedAt: time.Now()})
	require.NoError(t, err)
	assert.False(t, inserted, "same payload for the same request is a duplicate")

	require.NoError(t, s.SetCallbackStatus(ctx, req.ID, hash, CallbackFailed))
	cb, err := s.GetCallback(ctx, req.ID, hash)
	require.NoError(t, err)
	assert.Equal(t, CallbackFailed, cb.Status)

	_, err = s.GetCallback(ctx, req.ID, "other")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := s.ListCallbacks(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestStoreDirectives(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d, err := s.CreateDirective(ctx, Directive{Title: "Europe", MasterLanguage: "en", Languages: []string{"de", "fr"}})
	require.NoError(t, err)
	require.NotZero(t, d.ID)

	got, err := s.GetDirective(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Europe", got.Title)
	assert.Equal(t, []string{"de", "fr"}, got.Languages)

	_, err = s.CreateDirective(ctx, Directive{Title: "Dup", MasterLanguage: "en", Languages: []string{"de", "de"}})
	assert.Error(t, err, "a language may appear once per directive")

	list, err := s.ListDirectives(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, list)

	require.NoError(t, s.DeleteDirective(ctx, d.ID))
	_, err = s.GetDirective(ctx, d.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.ErrorIs(t, s.DeleteDirective(ctx, d.ID), ErrNotFound)

	var inlines int
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM translation_directive_inlines WHERE directive_id = ?`, d.ID).Scan(&inlines))
	assert.Zero(t, inlines, "languages cascade with the directive")
}

func TestStoreListStalled(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	req := insertRequest(t, s)
	old := time.Now().Add(-48 * time.Hour)

	_, err := s.CompareAndSetState(ctx, req.ID, StatePendingQuote, StatePendingApproval, old)
	require.NoError(t, err)
	_, err = s.CompareAndSetState(ctx, req.ID, StatePendingApproval, StateInTranslation, old)
	require.NoError(t, err)

	stalled, err := s.ListStalled(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, stalled, 1)
	assert.Equal(t, req.ID, stalled[0].ID)

	stalled, err = s.ListStalled(ctx, old.Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, stalled)
}
