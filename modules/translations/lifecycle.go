// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translations

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/olegiv/ocms-translations/internal/cache"
	"github.com/olegiv/ocms-translations/internal/i18n"
	"github.com/olegiv/ocms-translations/internal/model"
	"github.com/olegiv/ocms-translations/internal/module"
	"github.com/olegiv/ocms-translations/internal/store"
	"github.com/olegiv/ocms-translations/internal/util"
	"github.com/olegiv/ocms-translations/internal/webhook"
	"github.com/olegiv/ocms-translations/modules/translations/provider"
)

const (
	orderNameMaxLength = 40
	receiptTTL         = 24 * time.Hour
)

var errDuplicateCallback = errors.New("callback already received")

// ControllerConfig holds the collaborators of a Controller. Hooks, Cache and
// Notifier are optional.
type ControllerConfig struct {
	DB             *sql.DB
	Providers      *provider.Registry
	Hooks          *module.HookRegistry
	Cache          cache.Cache
	Notifier       *webhook.Notifier
	Logger         *slog.Logger
	CallbackURL    func(requestID int64) string
	DefaultBackend string
}

// Controller drives translation requests through their lifecycle:
//
//	pending_quote -> pending_approval -> in_translation -> import_started -> imported
//	                                                                      \-> import_failed -> pending_quote
//
// Every transition is a compare-and-set on the stored state, so concurrent
// callers racing for the same transition see exactly one winner.
type Controller struct {
	db             *sql.DB
	store          *Store
	events         *store.Queries
	providers      *provider.Registry
	hooks          *module.HookRegistry
	cache          cache.Cache
	notifier       *webhook.Notifier
	logger         *slog.Logger
	sanitizer      *bluemonday.Policy
	callbackURL    func(int64) string
	defaultBackend string
	now            func() time.Time
}

// NewController creates a Controller.
func NewController(cfg ControllerConfig) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	callbackURL := cfg.CallbackURL
	if callbackURL == nil {
		callbackURL = func(int64) string { return "" }
	}
	providers := cfg.Providers
	if providers == nil {
		providers = provider.NewRegistry()
	}
	return &Controller{
		db:             cfg.DB,
		store:          NewStore(cfg.DB),
		events:         store.New(cfg.DB),
		providers:      providers,
		hooks:          cfg.Hooks,
		cache:          cfg.Cache,
		notifier:       cfg.Notifier,
		logger:         logger,
		sanitizer:      bluemonday.UGCPolicy(),
		callbackURL:    callbackURL,
		defaultBackend: cfg.DefaultBackend,
		now:            time.Now,
	}
}

// Store returns the controller's store.
func (c *Controller) Store() *Store { return c.store }

// Backends returns the names of the configured providers.
func (c *Controller) Backends() []string { return c.providers.Names() }

// DefaultBackend returns the backend used when a request names none.
func (c *Controller) DefaultBackend() string { return c.defaultBackend }

// CreateParams describes a new translation request.
type CreateParams struct {
	// Content is the exported source content. It must serialize to JSON.
	Content         any
	AppLabel        string
	ModelName       string
	ObjectID        string
	SourceLanguage  string
	TargetLanguages []string
	Backend         string
	Options         map[string]any
	UserID          int64
	// DirectiveID, when set, overrides the source and target languages.
	DirectiveID int64
}

// CreateRequest stores a new request in pending_quote together with its item.
func (c *Controller) CreateRequest(ctx context.Context, p CreateParams) (*Request, error) {
	if p.AppLabel == "" || p.ModelName == "" || p.ObjectID == "" {
		return nil, fmt.Errorf("%w: source object is not identified", ErrInvalidRequest)
	}
	if p.Content == nil {
		return nil, fmt.Errorf("%w: no content", ErrSerialization)
	}
	content, err := json.Marshal(p.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	source, targets := p.SourceLanguage, p.TargetLanguages
	var directiveID sql.NullInt64
	if p.DirectiveID > 0 {
		d, err := c.store.GetDirective(ctx, p.DirectiveID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: directive %d not found", ErrInvalidRequest, p.DirectiveID)
			}
			return nil, fmt.Errorf("loading directive: %w", err)
		}
		source, targets = d.MasterLanguage, d.Languages
		directiveID = util.NullInt64FromValue(d.ID)
	}

	source, err = i18n.NormalizeLanguage(source)
	if err != nil {
		return nil, fmt.Errorf("%w: source language: %v", ErrInvalidRequest, err)
	}
	targets, err = i18n.NormalizeLanguages(targets, source)
	if err != nil {
		return nil, fmt.Errorf("%w: target languages: %v", ErrInvalidRequest, err)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: no target languages", ErrInvalidRequest)
	}

	backend := p.Backend
	if backend == "" {
		backend = c.defaultBackend
	}
	if _, err := c.provider(backend); err != nil {
		return nil, err
	}

	now := c.now()
	var created *Request
	err = store.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		s := c.store.WithTx(tx)
		r, err := s.CreateRequest(ctx, Request{
			ProviderOrderName: orderName(p.AppLabel, p.ModelName),
			SourceLanguage:    source,
			TargetLanguages:   targets,
			UserID:            nullID(p.UserID),
			State:             StatePendingQuote,
			ProviderBackend:   backend,
			ProviderOptions:   p.Options,
			ExportContent:     content,
			DirectiveID:       directiveID,
			DateCreated:       now,
			UpdatedAt:         now,
		})
		if err != nil {
			return err
		}
		if _, err := s.CreateItem(ctx, Item{
			RequestID:      r.ID,
			AppLabel:       p.AppLabel,
			ModelName:      p.ModelName,
			ObjectID:       p.ObjectID,
			SourceLanguage: source,
			DateCreated:    now,
		}); err != nil {
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating translation request: %w", err)
	}

	c.audit(ctx, created, fmt.Sprintf("Translation request %d created (%s to %s)",
		created.ID, created.SourceLanguage, strings.Join(created.TargetLanguages, ", ")), p.UserID, nil)
	c.notify(ctx, webhook.EventTranslationCreated, created, "", nil, "")
	return created, nil
}

// ExportSource asks the module owning appLabel for the content of one object.
func (c *Controller) ExportSource(ctx context.Context, appLabel, modelName, objectID, lang string) (map[string]any, error) {
	if c.hooks == nil || !c.hooks.HasHandlers(module.HookTranslationExport) {
		return nil, fmt.Errorf("%w: no module exports content", ErrSourceNotFound)
	}
	res, err := c.hooks.Call(ctx, module.HookTranslationExport, &module.TranslationExport{
		AppLabel:  appLabel,
		ModelName: modelName,
		ObjectID:  objectID,
		Language:  lang,
	})
	if err != nil {
		return nil, fmt.Errorf("exporting %s.%s %s: %w", appLabel, modelName, objectID, err)
	}
	exp, ok := res.(*module.TranslationExport)
	if !ok || !exp.Found {
		return nil, fmt.Errorf("%w: %s.%s %s", ErrSourceNotFound, appLabel, modelName, objectID)
	}
	return exp.Content, nil
}

// FetchQuote asks the provider for quotes, replaces the stored quote set and
// moves the request to pending_approval. A provider error leaves the request
// in pending_quote.
func (c *Controller) FetchQuote(ctx context.Context, requestID int64) ([]Quote, error) {
	req, err := c.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.State != StatePendingQuote {
		return nil, invalidState("fetching a quote", StatePendingQuote, req.State)
	}
	p, err := c.provider(req.ProviderBackend)
	if err != nil {
		return nil, err
	}

	offered, err := p.Quote(ctx, provider.QuoteRequest{
		RequestID:       req.ID,
		OrderName:       req.ProviderOrderName,
		SourceLanguage:  req.SourceLanguage,
		TargetLanguages: req.TargetLanguages,
		Content:         req.ExportContent,
		Options:         req.ProviderOptions,
		CallbackURL:     c.callbackURL(req.ID),
	})
	if err == nil && len(offered) == 0 {
		err = &provider.Error{Body: "no quotes returned"}
	}
	if err != nil {
		c.logger.Warn("fetching translation quote failed",
			"category", model.EventCategoryTranslation,
			"request_id", req.ID,
			"backend", req.ProviderBackend,
			"error", err,
		)
		return nil, fmt.Errorf("fetching quote for request %d: %w", req.ID, err)
	}

	now := c.now()
	quotes := make([]Quote, 0, len(offered))
	for _, q := range offered {
		var delivery sql.NullTime
		if !q.DeliveryDate.IsZero() {
			delivery = util.NullTimeFromValue(q.DeliveryDate)
		}
		quotes = append(quotes, Quote{
			RequestID:       req.ID,
			ProviderQuoteID: q.ProviderQuoteID,
			Name:            q.Name,
			Description:     q.Description,
			DeliveryDate:    delivery,
			Price:           q.Price,
			Currency:        q.Currency,
			Raw:             q.Raw,
			DateCreated:     now,
		})
	}

	var saved []Quote
	err = store.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		s := c.store.WithTx(tx)
		ok, err := s.CompareAndSetState(ctx, req.ID, StatePendingQuote, StatePendingApproval, now)
		if err != nil {
			return err
		}
		if !ok {
			return invalidState("fetching a quote", StatePendingQuote, "")
		}
		saved, err = s.ReplaceQuotes(ctx, req.ID, quotes)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.transitioned(ctx, req.ID, StatePendingQuote, 0, webhook.EventTranslationQuoted, nil, "")
	return saved, nil
}

// ChooseQuote selects a quote, places the order with the provider and moves
// the request to in_translation. When the provider rejects the order the
// request returns to pending_approval and the order is marked failed.
func (c *Controller) ChooseQuote(ctx context.Context, requestID, quoteID int64) (*Order, error) {
	req, err := c.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.State != StatePendingApproval {
		return nil, invalidState("choosing a quote", StatePendingApproval, req.State)
	}
	quote, err := c.store.GetQuote(ctx, quoteID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: quote %d does not exist", ErrQuoteMismatch, quoteID)
		}
		return nil, err
	}
	if quote.RequestID != req.ID {
		return nil, fmt.Errorf("%w: quote %d belongs to request %d", ErrQuoteMismatch, quote.ID, quote.RequestID)
	}
	p, err := c.provider(req.ProviderBackend)
	if err != nil {
		return nil, err
	}

	now := c.now()
	var order *Order
	err = store.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		s := c.store.WithTx(tx)
		ok, err := s.CompareAndSetState(ctx, req.ID, StatePendingApproval, StateInTranslation, now)
		if err != nil {
			return err
		}
		if !ok {
			return invalidState("choosing a quote", StatePendingApproval, "")
		}
		if err := s.SetSelectedQuote(ctx, req.ID, util.NullInt64FromValue(quote.ID)); err != nil {
			return err
		}
		order, err = s.CreateOrder(ctx, Order{
			RequestID:       req.ID,
			QuoteID:         util.NullInt64FromValue(quote.ID),
			ProviderOptions: req.ProviderOptions,
			Price:           quote.Price,
			Currency:        quote.Currency,
			State:           OrderOpen,
			DateCreated:     now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	resp, err := p.Submit(ctx, provider.OrderRequest{
		RequestID:       req.ID,
		OrderName:       req.ProviderOrderName,
		ProviderQuoteID: quote.ProviderQuoteID,
		SourceLanguage:  req.SourceLanguage,
		TargetLanguages: req.TargetLanguages,
		Content:         req.ExportContent,
		Options:         req.ProviderOptions,
		CallbackURL:     c.callbackURL(req.ID),
	})
	if err != nil {
		c.logger.Warn("submitting translation order failed",
			"category", model.EventCategoryTranslation,
			"request_id", req.ID,
			"order_id", order.ID,
			"error", err,
		)
		if rbErr := c.releaseOrder(ctx, req.ID, order.ID); rbErr != nil {
			return nil, errors.Join(fmt.Errorf("submitting order for request %d: %w", req.ID, err), rbErr)
		}
		return nil, fmt.Errorf("submitting order for request %d: %w", req.ID, err)
	}

	providerOrderID := resp.ProviderOrderID
	if providerOrderID == "" {
		providerOrderID = provider.ExtractOrderID(resp.ResponseContent)
	}
	if providerOrderID == "" {
		c.logger.Warn("provider returned no order id, using the order name",
			"category", model.EventCategoryTranslation,
			"request_id", req.ID,
		)
		providerOrderID = req.ProviderOrderName
	}
	if err := c.store.MarkOrderSubmitted(ctx, order.ID, providerOrderID, resp.RequestContent, resp.ResponseContent); err != nil {
		return nil, fmt.Errorf("recording submitted order: %w", err)
	}

	c.transitioned(ctx, req.ID, StatePendingApproval, 0, webhook.EventTranslationOrdered, nil, "")

	if len(resp.Completion) > 0 {
		if _, err := c.HandleCallback(ctx, req.ID, resp.Completion); err != nil {
			return nil, fmt.Errorf("applying provider completion: %w", err)
		}
	}
	return c.store.GetOrder(ctx, order.ID)
}

// releaseOrder undoes a claim whose provider submission failed.
func (c *Controller) releaseOrder(ctx context.Context, requestID, orderID int64) error {
	return store.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		s := c.store.WithTx(tx)
		if err := s.SetOrderState(ctx, orderID, OrderFailed, sql.NullTime{}); err != nil {
			return err
		}
		if err := s.SetSelectedQuote(ctx, requestID, sql.NullInt64{}); err != nil {
			return err
		}
		_, err := s.CompareAndSetState(ctx, requestID, StateInTranslation, StatePendingApproval, c.now())
		return err
	})
}

// HandleCallback applies a provider callback. The payload is validated, then
// a receipt keyed by its hash is claimed together with the move to
// import_started. A payload already received returns the current request
// without side effects.
func (c *Controller) HandleCallback(ctx context.Context, requestID int64, payload []byte) (*Request, error) {
	cb, err := ParseCallback(payload)
	if err != nil {
		c.logger.Warn("rejected translation callback",
			"category", model.EventCategoryTranslation,
			"request_id", requestID,
			"error", err,
		)
		return nil, err
	}
	hash := PayloadHash(payload)
	key := receiptKey(requestID, hash)

	if c.seenReceipt(ctx, key) {
		return c.store.GetRequest(ctx, requestID)
	}

	req, err := c.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if _, err := c.store.GetCallback(ctx, requestID, hash); err == nil {
		c.rememberReceipt(ctx, key)
		return req, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	// A finished request answers a repeat of its own order's outcome, even
	// when the provider reformatted the payload.
	if req.State.Terminal() {
		if _, err := c.store.GetSettledOrder(ctx, requestID, cb.OrderID); err == nil {
			c.logger.Info("translation callback for a finished request",
				"request_id", requestID,
				"provider_order_id", cb.OrderID,
				"state", req.State,
			)
			c.rememberReceipt(ctx, key)
			return req, nil
		}
	}

	order, err := c.store.GetOrderByProviderID(ctx, requestID, cb.OrderID)
	if errors.Is(err, ErrOrderNotFound) {
		// The provider may call back before its order response arrives.
		order, err = c.store.ClaimOpenOrder(ctx, requestID, cb.OrderID)
	}
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			c.logger.Warn("translation callback for unknown order",
				"category", model.EventCategoryTranslation,
				"request_id", requestID,
				"provider_order_id", cb.OrderID,
			)
		}
		return nil, err
	}

	now := c.now()
	err = store.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		s := c.store.WithTx(tx)
		inserted, err := s.InsertCallback(ctx, Callback{
			RequestID:     requestID,
			OrderID:       util.NullInt64FromValue(order.ID),
			PayloadSHA256: hash,
			Status:        callbackProcessing,
			ReceivedAt:    now,
		})
		if err != nil {
			return err
		}
		if !inserted {
			return errDuplicateCallback
		}
		ok, err := s.CompareAndSetState(ctx, requestID, StateInTranslation, StateImportStarted, now)
		if err != nil {
			return err
		}
		if !ok {
			return invalidState("importing a translation", StateInTranslation, req.State)
		}
		return nil
	})
	if errors.Is(err, errDuplicateCallback) {
		c.rememberReceipt(ctx, key)
		return c.store.GetRequest(ctx, requestID)
	}
	if err != nil {
		return nil, err
	}
	c.transitioned(ctx, requestID, StateInTranslation, 0, "", order, "")

	final, orderState := StateImported, OrderDone
	var importErr error
	if cb.Status == CallbackFailed {
		final, orderState = StateImportFailed, OrderFailed
		msg := cb.Error
		if msg == "" {
			msg = "provider reported a failed order"
		}
		importErr = errors.New(msg)
	} else if importErr = c.importTranslations(ctx, req, cb.Translations); importErr != nil {
		final = StateImportFailed
	}

	var translatedAt sql.NullTime
	if cb.Status == CallbackCompleted {
		translatedAt = util.NullTimeFromValue(now)
	}
	err = store.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		s := c.store.WithTx(tx)
		if err := s.SetOrderState(ctx, order.ID, orderState, translatedAt); err != nil {
			return err
		}
		ok, err := s.CompareAndSetState(ctx, requestID, StateImportStarted, final, c.now())
		if err != nil {
			return err
		}
		if !ok {
			return invalidState("finishing an import", StateImportStarted, "")
		}
		return s.SetCallbackStatus(ctx, requestID, hash, cb.Status)
	})
	if err != nil {
		return nil, fmt.Errorf("finishing import of request %d: %w", requestID, err)
	}
	c.rememberReceipt(ctx, key)

	order.State = orderState
	if importErr != nil {
		c.logger.Warn("translation import failed",
			"category", model.EventCategoryTranslation,
			"request_id", requestID,
			"error", importErr,
		)
		c.transitioned(ctx, requestID, StateImportStarted, 0, webhook.EventTranslationImportFailed, order, importErr.Error())
	} else {
		c.transitioned(ctx, requestID, StateImportStarted, 0, webhook.EventTranslationImported, order, "")
	}
	return c.store.GetRequest(ctx, requestID)
}

// importTranslations hands every language of every item to the owning module.
func (c *Controller) importTranslations(ctx context.Context, req *Request, translations map[string]map[string]any) error {
	byLang := make(map[string]map[string]any, len(translations))
	for lang, fields := range translations {
		code, err := i18n.NormalizeLanguage(lang)
		if err != nil {
			return fmt.Errorf("callback language %q: %w", lang, err)
		}
		byLang[code] = fields
	}
	var missing []string
	for _, lang := range req.TargetLanguages {
		if _, ok := byLang[lang]; !ok {
			missing = append(missing, lang)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("callback is missing translations for %s", strings.Join(missing, ", "))
	}

	if c.hooks == nil || !c.hooks.HasHandlers(module.HookTranslationImport) {
		return errors.New("no module accepts translation imports")
	}
	items, err := c.store.ListItems(ctx, req.ID)
	if err != nil {
		return fmt.Errorf("listing items: %w", err)
	}
	for _, it := range items {
		for _, lang := range req.TargetLanguages {
			res, err := c.hooks.Call(ctx, module.HookTranslationImport, &module.TranslationImport{
				RequestID: req.ID,
				AppLabel:  it.AppLabel,
				ModelName: it.ModelName,
				ObjectID:  it.ObjectID,
				Language:  lang,
				Fields:    c.sanitizeFields(byLang[lang]),
			})
			if err != nil {
				return fmt.Errorf("importing %s.%s %s (%s): %w", it.AppLabel, it.ModelName, it.ObjectID, lang, err)
			}
			imp, ok := res.(*module.TranslationImport)
			if !ok || imp.Imported == 0 {
				return fmt.Errorf("no module imported %s.%s %s (%s)", it.AppLabel, it.ModelName, it.ObjectID, lang)
			}
		}
	}
	return nil
}

// sanitizeFields strips unsafe markup from string values that contain HTML.
func (c *Controller) sanitizeFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case string:
			if strings.ContainsRune(val, '<') {
				val = c.sanitizer.Sanitize(val)
			}
			out[k] = val
		case map[string]any:
			out[k] = c.sanitizeFields(val)
		default:
			out[k] = v
		}
	}
	return out
}

// Retry moves a failed import back to pending_quote. Live orders are
// superseded and the quote selection is cleared.
func (c *Controller) Retry(ctx context.Context, requestID int64) (*Request, error) {
	req, err := c.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.State != StateImportFailed {
		return nil, invalidState("retrying", StateImportFailed, req.State)
	}

	err = store.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		s := c.store.WithTx(tx)
		ok, err := s.CompareAndSetState(ctx, req.ID, StateImportFailed, StatePendingQuote, c.now())
		if err != nil {
			return err
		}
		if !ok {
			return invalidState("retrying", StateImportFailed, "")
		}
		if _, err := s.SupersedeOrders(ctx, req.ID); err != nil {
			return err
		}
		return s.SetSelectedQuote(ctx, req.ID, sql.NullInt64{})
	})
	if err != nil {
		return nil, err
	}

	c.transitioned(ctx, req.ID, StateImportFailed, 0, webhook.EventTranslationRetried, nil, "")
	return c.store.GetRequest(ctx, req.ID)
}

// transitioned records a completed transition: an audit event, the
// state-changed hook and, when eventType is set, a webhook notification.
func (c *Controller) transitioned(ctx context.Context, requestID int64, from State, userID int64, eventType string, order *Order, errMsg string) {
	req, err := c.store.GetRequest(ctx, requestID)
	if err != nil {
		c.logger.Error("reloading translation request", "request_id", requestID, "error", err)
		return
	}

	meta := map[string]any{"from": string(from), "to": string(req.State)}
	if errMsg != "" {
		meta["error"] = errMsg
	}
	c.audit(ctx, req, fmt.Sprintf("Translation request %d moved from %s to %s", req.ID, from, req.State), userID, meta)

	if c.hooks != nil {
		if err := c.hooks.CallNoResult(ctx, module.HookTranslationStateChanged, module.TranslationStateChange{
			RequestID: req.ID,
			From:      string(from),
			To:        string(req.State),
			UserID:    userID,
		}); err != nil {
			c.logger.Warn("state change hook failed", "request_id", req.ID, "error", err)
		}
	}

	if eventType != "" {
		c.notify(ctx, eventType, req, from, order, errMsg)
	}
}

func (c *Controller) audit(ctx context.Context, req *Request, message string, userID int64, meta map[string]any) {
	if meta == nil {
		meta = map[string]any{}
	}
	meta["request_id"] = req.ID
	meta["state"] = string(req.State)
	raw, _ := json.Marshal(meta)

	if _, err := c.events.CreateEvent(ctx, store.CreateEventParams{
		Level:     model.EventLevelInfo,
		Category:  model.EventCategoryTranslation,
		Message:   message,
		UserID:    nullID(userID),
		Metadata:  string(raw),
		CreatedAt: c.now(),
	}); err != nil {
		c.logger.Error("writing translation audit event", "request_id", req.ID, "error", err)
	}
}

func (c *Controller) notify(ctx context.Context, eventType string, req *Request, from State, order *Order, errMsg string) {
	data := webhook.TranslationEventData{
		RequestID:       req.ID,
		OrderName:       req.ProviderOrderName,
		State:           string(req.State),
		PreviousState:   string(from),
		SourceLanguage:  req.SourceLanguage,
		TargetLanguages: req.TargetLanguages,
		Backend:         req.ProviderBackend,
		Error:           errMsg,
	}
	if order == nil {
		if o, err := c.store.GetActiveOrder(ctx, req.ID); err == nil {
			order = o
		}
	}
	if order != nil {
		data.ProviderOrderID = order.ProviderOrderID
		data.Price = order.Price
		data.Currency = order.Currency
	}
	if err := c.notifier.Notify(ctx, eventType, data); err != nil {
		c.logger.Warn("queueing webhook", "event", eventType, "request_id", req.ID, "error", err)
	}
}

func (c *Controller) provider(name string) (provider.Provider, error) {
	p, ok := c.providers.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	return p, nil
}

func (c *Controller) seenReceipt(ctx context.Context, key string) bool {
	if c.cache == nil {
		return false
	}
	seen, err := c.cache.Has(ctx, key)
	return err == nil && seen
}

func (c *Controller) rememberReceipt(ctx context.Context, key string) {
	if c.cache == nil {
		return
	}
	if _, err := c.cache.Add(ctx, key, []byte{1}, receiptTTL); err != nil {
		c.logger.Debug("caching callback receipt", "key", key, "error", err)
	}
}

func receiptKey(requestID int64, hash string) string {
	return fmt.Sprintf("translations:callback:%d:%s", requestID, hash)
}

// orderName builds the human-readable order name sent to providers.
func orderName(appLabel, modelName string) string {
	return util.SlugifyMax(appLabel+" "+modelName, orderNameMaxLength) + "-" + uuid.NewString()[:8]
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id > 0}
}

func invalidState(action string, want, got State) error {
	if got == "" {
		return fmt.Errorf("%w: %s requires %s", ErrInvalidState, action, want)
	}
	return fmt.Errorf("%w: %s requires %s, request is %s", ErrInvalidState, action, want, got)
}
