// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/olegiv/ocms-translations/internal/util"
)

const (
	defaultVendorTimeout = 30 * time.Second
	maxResponseBytes     = 4 << 20
	maxErrorBody         = 512
)

// VendorConfig configures the HTTP vendor client.
type VendorConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// AllowPrivate permits a vendor on loopback or private addresses.
	AllowPrivate bool
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Vendor talks to a human translation vendor over JSON and HTTP:
// POST {base}/quotes and POST {base}/orders, authenticated with a bearer key.
type Vendor struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewVendor creates a vendor client.
func NewVendor(cfg VendorConfig) *Vendor {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultVendorTimeout
		}
		dialer := &net.Dialer{Timeout: 10 * time.Second}
		transport := &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     90 * time.Second,
			DialContext:         dialer.DialContext,
		}
		if !cfg.AllowPrivate {
			transport.DialContext = util.SSRFSafeDialContext(dialer)
		}
		client = &http.Client{Timeout: timeout, Transport: transport}
	}
	return &Vendor{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  client,
	}
}

// Name implements Provider.
func (v *Vendor) Name() string { return BackendVendor }

type vendorJob struct {
	OrderName       string          `json:"order_name"`
	QuoteID         string          `json:"quote_id,omitempty"`
	SourceLanguage  string          `json:"source_language"`
	TargetLanguages []string        `json:"target_languages"`
	Content         json.RawMessage `json:"content"`
	Options         map[string]any  `json:"options,omitempty"`
	CallbackURL     string          `json:"callback_url"`
}

type vendorQuote struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	DeliveryDate string `json:"delivery_date"`
	Price        string `json:"price"`
	Currency     string `json:"currency"`
}

// Quote implements Provider.
func (v *Vendor) Quote(ctx context.Context, req QuoteRequest) ([]Quote, error) {
	_, body, err := v.post(ctx, "/quotes", vendorJob{
		OrderName:       req.OrderName,
		SourceLanguage:  req.SourceLanguage,
		TargetLanguages: req.TargetLanguages,
		Content:         req.Content,
		Options:         req.Options,
		CallbackURL:     req.CallbackURL,
	})
	if err != nil {
		return nil, fmt.Errorf("requesting quotes: %w", err)
	}

	var resp struct {
		Quotes []json.RawMessage `json:"quotes"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Error{Body: truncate(string(body)), Err: fmt.Errorf("decoding quotes: %w", err)}
	}

	quotes := make([]Quote, 0, len(resp.Quotes))
	for _, raw := range resp.Quotes {
		var vq vendorQuote
		if err := json.Unmarshal(raw, &vq); err != nil {
			return nil, &Error{Err: fmt.Errorf("decoding quote: %w", err)}
		}
		q, err := vq.toQuote(raw)
		if err != nil {
			return nil, &Error{Err: err}
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

func (vq vendorQuote) toQuote(raw json.RawMessage) (Quote, error) {
	currency, err := util.NormalizeCurrency(vq.Currency)
	if err != nil {
		return Quote{}, fmt.Errorf("quote %s: %w", vq.ID, err)
	}
	price, err := util.ParsePrice(vq.Price, currency)
	if err != nil {
		return Quote{}, fmt.Errorf("quote %s: %w", vq.ID, err)
	}

	var delivery time.Time
	if vq.DeliveryDate != "" {
		for _, layout := range []string{time.RFC3339, time.DateOnly} {
			if t, err := time.Parse(layout, vq.DeliveryDate); err == nil {
				delivery = t
				break
			}
		}
	}

	return Quote{
		ProviderQuoteID: vq.ID,
		Name:            vq.Name,
		Description:     vq.Description,
		DeliveryDate:    delivery,
		Price:           price,
		Currency:        currency,
		Raw:             raw,
	}, nil
}

// Submit implements Provider.
func (v *Vendor) Submit(ctx context.Context, req OrderRequest) (*OrderResponse, error) {
	sent, body, err := v.post(ctx, "/orders", vendorJob{
		OrderName:       req.OrderName,
		QuoteID:         req.ProviderQuoteID,
		SourceLanguage:  req.SourceLanguage,
		TargetLanguages: req.TargetLanguages,
		Content:         req.Content,
		Options:         req.Options,
		CallbackURL:     req.CallbackURL,
	})
	if err != nil {
		return nil, fmt.Errorf("placing order: %w", err)
	}

	return &OrderResponse{
		ProviderOrderID: ExtractOrderID(body),
		RequestContent:  sent,
		ResponseContent: body,
	}, nil
}

// ExtractOrderID returns the "Id" (or "id") member of a JSON object, or "".
func ExtractOrderID(payload []byte) string {
	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		return ""
	}
	for _, key := range []string{"Id", "id", "order_id"} {
		switch v := fields[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}

// post sends payload as JSON and returns the encoded request and the response body.
func (v *Vendor) post(ctx context.Context, path string, payload any) ([]byte, []byte, error) {
	sent, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+path, bytes.NewReader(sent))
	if err != nil {
		return nil, nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if v.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+v.apiKey)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return sent, nil, &Error{Retryable: true, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return sent, nil, &Error{StatusCode: resp.StatusCode, Retryable: true, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return sent, body, &Error{
			StatusCode: resp.StatusCode,
			Body:       truncate(string(body)),
			Retryable:  resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
		}
	}
	return sent, body, nil
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrorBody {
		return s
	}
	return s[:maxErrorBody] + "..."
}
