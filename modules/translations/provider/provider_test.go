// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-translations/internal/util"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry(NewVendor(VendorConfig{BaseURL: "http://vendor.test"}))
	r.Register(NewOpenAI(OpenAIConfig{APIKey: "k", MaxRetries: 0}))

	assert.Equal(t, []string{BackendOpenAI, BackendVendor}, r.Names())

	p, ok := r.Get(BackendVendor)
	require.True(t, ok)
	assert.Equal(t, BackendVendor, p.Name())

	_, ok = r.Get("carrier-pigeon")
	assert.False(t, ok)
}

func TestErrorWrapping(t *testing.T) {
	err := error(&Error{StatusCode: 503, Body: "down", Retryable: true})

	assert.ErrorIs(t, err, ErrProvider)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, "provider responded 503: down", err.Error())

	cause := errors.New("connection refused")
	err = &Error{Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsRetryable(errors.New("plain")))
}

func newVendorServer(t *testing.T, handler http.HandlerFunc) *Vendor {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewVendor(VendorConfig{BaseURL: srv.URL + "/", APIKey: "secret", AllowPrivate: true})
}

func TestVendorRefusesPrivateAddress(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	v := NewVendor(VendorConfig{BaseURL: srv.URL})
	_, err := v.Quote(context.Background(), QuoteRequest{RequestID: 1, OrderName: "x", SourceLanguage: "en", TargetLanguages: []string{"de"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrPrivateAddress)
	assert.Zero(t, hits)
}

func TestVendorQuote(t *testing.T) {
	v := newVendorServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quotes", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var job vendorJob
		require.NoError(t, json.NewDecoder(r.Body).Decode(&job))
		assert.Equal(t, []string{"de", "fr"}, job.TargetLanguages)
		assert.Equal(t, "http://cms.test/translations/1/callback", job.CallbackURL)

		_, _ = io.WriteString(w, `{"quotes":[{"id":"q-1","name":"Standard","description":"Two days","delivery_date":"2026-01-10","price":"10.00","currency":"eur"}]}`)
	})

	quotes, err := v.Quote(context.Background(), QuoteRequest{
		RequestID:       1,
		SourceLanguage:  "en",
		TargetLanguages: []string{"de", "fr"},
		Content:         json.RawMessage(`{"title":"Hello"}`),
		CallbackURL:     "http://cms.test/translations/1/callback",
	})
	require.NoError(t, err)
	require.Len(t, quotes, 1)

	q := quotes[0]
	assert.Equal(t, "q-1", q.ProviderQuoteID)
	assert.Equal(t, int64(1000), q.Price)
	assert.Equal(t, "EUR", q.Currency)
	assert.Equal(t, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), q.DeliveryDate)
	assert.Contains(t, string(q.Raw), `"q-1"`)
}

func TestVendorQuoteErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		retryable bool
	}{
		{"server error", http.StatusBadGateway, "upstream down", true},
		{"rate limited", http.StatusTooManyRequests, "slow down", true},
		{"bad request", http.StatusBadRequest, "unknown language", false},
		{"bad price", http.StatusOK, `{"quotes":[{"id":"q","price":"ten","currency":"EUR"}]}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newVendorServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := v.Quote(context.Background(), QuoteRequest{TargetLanguages: []string{"de"}})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrProvider)
			assert.Equal(t, tt.retryable, IsRetryable(err))
		})
	}
}

func TestVendorSubmit(t *testing.T) {
	v := newVendorServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"quote_id":"q-1"`)
		_, _ = io.WriteString(w, `{"Id":"ord-77","status":"accepted"}`)
	})

	resp, err := v.Submit(context.Background(), OrderRequest{
		ProviderQuoteID: "q-1",
		SourceLanguage:  "en",
		TargetLanguages: []string{"de"},
		Content:         json.RawMessage(`{}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "ord-77", resp.ProviderOrderID)
	assert.Contains(t, string(resp.RequestContent), `"quote_id":"q-1"`)
	assert.JSONEq(t, `{"Id":"ord-77","status":"accepted"}`, string(resp.ResponseContent))
	assert.Nil(t, resp.Completion)
}

func TestExtractOrderID(t *testing.T) {
	assert.Equal(t, "A1", ExtractOrderID([]byte(`{"Id":"A1"}`)))
	assert.Equal(t, "b2", ExtractOrderID([]byte(`{"id":"b2"}`)))
	assert.Equal(t, "42", ExtractOrderID([]byte(`{"id":42}`)))
	assert.Equal(t, "", ExtractOrderID([]byte(`[1,2]`)))
	assert.Equal(t, "", ExtractOrderID([]byte(`{}`)))
}

func newOpenAIServer(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL, MaxRetries: 0})
}

func chatCompletion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(b)
}

func TestOpenAIQuoteIsFree(t *testing.T) {
	p := NewOpenAI(OpenAIConfig{APIKey: "k", MaxRetries: 0})
	quotes, err := p.Quote(context.Background(), QuoteRequest{TargetLanguages: []string{"de"}})
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, int64(0), quotes[0].Price)
	assert.Contains(t, quotes[0].Description, "German")
}

func TestOpenAISubmit(t *testing.T) {
	var calls int
	p := newOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "json_object")

		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(string(body), "German") {
			_, _ = io.WriteString(w, chatCompletion(`{"title":"Hallo"}`))
			return
		}
		_, _ = io.WriteString(w, chatCompletion(`{"title":"Bonjour"}`))
	})

	resp, err := p.Submit(context.Background(), OrderRequest{
		SourceLanguage:  "en",
		TargetLanguages: []string{"de", "fr"},
		Content:         json.RawMessage(`{"title":"Hello"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.True(t, strings.HasPrefix(resp.ProviderOrderID, "mt-"))

	var completion struct {
		OrderID      string                       `json:"order_id"`
		Status       string                       `json:"status"`
		Translations map[string]map[string]string `json:"translations"`
	}
	require.NoError(t, json.Unmarshal(resp.Completion, &completion))
	assert.Equal(t, resp.ProviderOrderID, completion.OrderID)
	assert.Equal(t, "completed", completion.Status)
	assert.Equal(t, "Hallo", completion.Translations["de"]["title"])
	assert.Equal(t, "Bonjour", completion.Translations["fr"]["title"])
}

func TestOpenAISubmitErrors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		p := newOpenAIServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
		})
		_, err := p.Submit(context.Background(), OrderRequest{TargetLanguages: []string{"de"}, Content: json.RawMessage(`{}`)})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrProvider)

		var pe *Error
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)
		assert.False(t, pe.Retryable)
	})

	t.Run("invalid json", func(t *testing.T) {
		p := newOpenAIServer(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, chatCompletion("Sure! Here you go"))
		})
		_, err := p.Submit(context.Background(), OrderRequest{TargetLanguages: []string{"de"}, Content: json.RawMessage(`{}`)})
		assert.ErrorIs(t, err, ErrProvider)
	})
}
