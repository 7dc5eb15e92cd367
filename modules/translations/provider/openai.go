// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/olegiv/ocms-translations/internal/i18n"
)

const (
	defaultOpenAIModel   = "gpt-4o-mini"
	defaultOpenAITimeout = 120 * time.Second
	machineCurrency      = "USD"
)

// OpenAIConfig configures the machine translation backend.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string // OpenAI-compatible endpoint, empty for api.openai.com
	Timeout time.Duration
	// MaxRetries is passed to the SDK; negative means the SDK default.
	MaxRetries int
}

// OpenAI translates content with a chat completion model. It completes
// orders synchronously, so Submit returns a Completion payload.
type OpenAI struct {
	client openai.Client
	model  string
	now    func() time.Time
}

// NewOpenAI creates the machine translation backend.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultOpenAITimeout
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		opts = append(opts, option.WithBaseURL(base))
	}
	if cfg.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAI{
		client: openai.NewClient(opts...),
		model:  model,
		now:    time.Now,
	}
}

// Name implements Provider.
func (p *OpenAI) Name() string { return BackendOpenAI }

// Quote returns a single free machine translation offer without calling the API.
func (p *OpenAI) Quote(_ context.Context, req QuoteRequest) ([]Quote, error) {
	langs := make([]string, len(req.TargetLanguages))
	for i, l := range req.TargetLanguages {
		langs[i] = i18n.LanguageName(l)
	}
	raw, _ := json.Marshal(map[string]any{"model": p.model, "languages": req.TargetLanguages})

	return []Quote{{
		ProviderQuoteID: "mt-" + p.model,
		Name:            "Machine translation",
		Description:     fmt.Sprintf("Automatic translation with **%s** into %s. Delivered immediately, not reviewed.", p.model, strings.Join(langs, ", ")),
		DeliveryDate:    p.now().UTC(),
		Price:           0,
		Currency:        machineCurrency,
		Raw:             raw,
	}}, nil
}

// Submit translates the content into every target language and returns
// the result as a completed callback payload.
func (p *OpenAI) Submit(ctx context.Context, req OrderRequest) (*OrderResponse, error) {
	orderID := "mt-" + uuid.NewString()

	sent, err := json.Marshal(map[string]any{
		"model":            p.model,
		"source_language":  req.SourceLanguage,
		"target_languages": req.TargetLanguages,
		"order_name":       req.OrderName,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	translations := make(map[string]json.RawMessage, len(req.TargetLanguages))
	for _, lang := range req.TargetLanguages {
		out, err := p.translate(ctx, req.SourceLanguage, lang, req.Content)
		if err != nil {
			return nil, fmt.Errorf("translating into %s: %w", lang, err)
		}
		translations[lang] = out
	}

	completion, err := json.Marshal(map[string]any{
		"order_id":     orderID,
		"status":       "completed",
		"translations": translations,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal completion: %w", err)
	}

	response, _ := json.Marshal(map[string]any{"Id": orderID, "model": p.model})
	return &OrderResponse{
		ProviderOrderID: orderID,
		RequestContent:  sent,
		ResponseContent: response,
		Completion:      completion,
	}, nil
}

const systemPrompt = `You translate website content. The user sends a JSON object whose string values are written in %s.
Reply with a JSON object with exactly the same keys, every string value translated into %s.
Keep HTML markup, Markdown, placeholders and URLs unchanged. Do not add commentary.`

func (p *OpenAI) translate(ctx context.Context, source, target string, content json.RawMessage) (json.RawMessage, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(fmt.Sprintf(systemPrompt, i18n.LanguageName(source), i18n.LanguageName(target))),
			openai.UserMessage(string(content)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return nil, wrapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &Error{Err: errors.New("no choices returned")}
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	var obj map[string]any
	if err := json.Unmarshal([]byte(out), &obj); err != nil {
		return nil, &Error{Body: truncate(out), Err: fmt.Errorf("model returned invalid JSON: %w", err)}
	}
	return json.RawMessage(out), nil
}

func wrapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &Error{
			StatusCode: apiErr.StatusCode,
			Body:       truncate(apiErr.Error()),
			Retryable:  apiErr.StatusCode >= 500 || apiErr.StatusCode == http.StatusTooManyRequests,
		}
	}
	return &Error{Retryable: true, Err: err}
}
