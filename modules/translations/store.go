// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translations

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olegiv/ocms-translations/internal/store"
)

// Store persists requests, quotes, orders, items, receipts and directives.
type Store struct {
	db store.DBTX
}

// NewStore returns a Store bound to db.
func NewStore(db store.DBTX) *Store {
	return &Store{db: db}
}

// WithTx returns a Store bound to tx.
func (s *Store) WithTx(tx *sql.Tx) *Store {
	return &Store{db: tx}
}

type scanner interface{ Scan(...any) error }

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func encodeJSON(v any, empty string) (string, error) {
	if v == nil {
		return empty, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// --- requests ---

const requestColumns = `id, provider_order_name, source_language, target_languages, user_id, state,
	provider_backend, provider_options, export_content, selected_quote_id, directive_id,
	date_created, date_submitted, date_received, date_imported, updated_at`

func scanRequest(row scanner) (*Request, error) {
	var (
		r       Request
		targets string
		options string
		content string
		state   string
	)
	err := row.Scan(&r.ID, &r.ProviderOrderName, &r.SourceLanguage, &targets, &r.UserID, &state,
		&r.ProviderBackend, &options, &content, &r.SelectedQuoteID, &r.DirectiveID,
		&r.DateCreated, &r.DateSubmitted, &r.DateReceived, &r.DateImported, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.State = State(state)
	r.ExportContent = json.RawMessage(content)
	if err := json.Unmarshal([]byte(targets), &r.TargetLanguages); err != nil {
		return nil, fmt.Errorf("decoding target languages of request %d: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(options), &r.ProviderOptions); err != nil {
		return nil, fmt.Errorf("decoding provider options of request %d: %w", r.ID, err)
	}
	return &r, nil
}

// CreateRequest inserts r and returns it with its id.
func (s *Store) CreateRequest(ctx context.Context, r Request) (*Request, error) {
	targets, err := encodeJSON(r.TargetLanguages, "[]")
	if err != nil {
		return nil, err
	}
	options, err := encodeJSON(r.ProviderOptions, "{}")
	if err != nil {
		return nil, err
	}
	if r.State == "" {
		r.State = StatePendingQuote
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO translation_requests (provider_order_name, source_language, target_languages, user_id,
			state, provider_backend, provider_options, export_content, directive_id, date_created, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+requestColumns,
		r.ProviderOrderName, r.SourceLanguage, targets, r.UserID,
		string(r.State), r.ProviderBackend, options, string(r.ExportContent), r.DirectiveID, r.DateCreated, r.DateCreated,
	)
	return scanRequest(row)
}

// GetRequest returns the request with id or ErrNotFound.
func (s *Store) GetRequest(ctx context.Context, id int64) (*Request, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM translation_requests WHERE id = ?`, id)
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

// ListRequestsParams filters ListRequests. An empty State matches all.
type ListRequestsParams struct {
	State  State
	Limit  int64
	Offset int64
}

// ListRequests returns requests newest first.
func (s *Store) ListRequests(ctx context.Context, arg ListRequestsParams) ([]*Request, error) {
	if arg.Limit <= 0 {
		arg.Limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+requestColumns+` FROM translation_requests
		WHERE (? = '' OR state = ?)
		ORDER BY date_created DESC, id DESC
		LIMIT ? OFFSET ?`,
		string(arg.State), string(arg.State), arg.Limit, arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []*Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

// CountRequests counts requests in state, or all when state is empty.
func (s *Store) CountRequests(ctx context.Context, state State) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM translation_requests WHERE (? = '' OR state = ?)`,
		string(state), string(state),
	).Scan(&n)
	return n, err
}

// CountByState returns the number of requests per state.
func (s *Store) CountByState(ctx context.Context) (map[State]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM translation_requests GROUP BY state`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[State]int64)
	for rows.Next() {
		var (
			state string
			n     int64
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, err
		}
		counts[State(state)] = n
	}
	return counts, rows.Err()
}

// dateColumn is the timestamp stamped when a request enters state.
func dateColumn(state State) string {
	switch state {
	case StateInTranslation:
		return "date_submitted"
	case StateImportStarted:
		return "date_received"
	case StateImported:
		return "date_imported"
	default:
		return ""
	}
}

// CompareAndSetState moves request id from one state to another and stamps
// the matching date column. Moving back before the order clears the order
// dates. It reports false when the request was not in from.
func (s *Store) CompareAndSetState(ctx context.Context, id int64, from, to State, at time.Time) (bool, error) {
	query := `UPDATE translation_requests SET state = ?, updated_at = ?`
	args := []any{string(to), at}
	if col := dateColumn(to); col != "" {
		query += `, ` + col + ` = ?`
		args = append(args, at)
	}
	if to == StatePendingQuote || to == StatePendingApproval {
		query += `, date_submitted = NULL, date_received = NULL, date_imported = NULL`
	}
	query += ` WHERE id = ? AND state = ?`
	args = append(args, id, string(from))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// SetSelectedQuote records the chosen quote; an invalid quoteID clears it.
func (s *Store) SetSelectedQuote(ctx context.Context, requestID int64, quoteID sql.NullInt64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE translation_requests SET selected_quote_id = ?, updated_at = ? WHERE id = ?`,
		quoteID, time.Now(), requestID,
	)
	return err
}

// ListStalled returns requests that were submitted before cutoff and are
// still waiting for, or stuck in, the import.
func (s *Store) ListStalled(ctx context.Context, cutoff time.Time) ([]*Request, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+requestColumns+` FROM translation_requests
		WHERE state IN (?, ?) AND date_submitted IS NOT NULL AND date_submitted < ?
		ORDER BY date_submitted`,
		string(StateInTranslation), string(StateImportStarted), cutoff,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []*Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

// --- items ---

// CreateItem inserts a request item.
func (s *Store) CreateItem(ctx context.Context, it Item) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO translation_request_items (request_id, app_label, model_name, object_id, source_language, date_created)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id, request_id, app_label, model_name, object_id, source_language, date_created`,
		it.RequestID, it.AppLabel, it.ModelName, it.ObjectID, it.SourceLanguage, it.DateCreated,
	)
	var out Item
	if err := row.Scan(&out.ID, &out.RequestID, &out.AppLabel, &out.ModelName, &out.ObjectID, &out.SourceLanguage, &out.DateCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListItems returns the items of a request.
func (s *Store) ListItems(ctx context.Context, requestID int64) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, app_label, model_name, object_id, source_language, date_created
		FROM translation_request_items WHERE request_id = ? ORDER BY id`, requestID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.RequestID, &it.AppLabel, &it.ModelName, &it.ObjectID, &it.SourceLanguage, &it.DateCreated); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// --- quotes ---

const quoteColumns = `id, request_id, provider_quote_id, name, description, delivery_date, price, currency, raw, date_created`

func scanQuote(row scanner) (*Quote, error) {
	var (
		q   Quote
		raw string
	)
	if err := row.Scan(&q.ID, &q.RequestID, &q.ProviderQuoteID, &q.Name, &q.Description, &q.DeliveryDate,
		&q.Price, &q.Currency, &raw, &q.DateCreated); err != nil {
		return nil, err
	}
	q.Raw = json.RawMessage(raw)
	return &q, nil
}

// ReplaceQuotes deletes the quotes of a request and inserts quotes.
func (s *Store) ReplaceQuotes(ctx context.Context, requestID int64, quotes []Quote) ([]Quote, error) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM translation_quotes WHERE request_id = ?`, requestID); err != nil {
		return nil, fmt.Errorf("deleting quotes: %w", err)
	}

	out := make([]Quote, 0, len(quotes))
	for _, q := range quotes {
		raw := string(q.Raw)
		if raw == "" {
			raw = "{}"
		}
		row := s.db.QueryRowContext(ctx, `
			INSERT INTO translation_quotes (request_id, provider_quote_id, name, description, delivery_date, price, currency, raw, date_created)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING `+quoteColumns,
			requestID, q.ProviderQuoteID, q.Name, q.Description, q.DeliveryDate, q.Price, q.Currency, raw, q.DateCreated,
		)
		saved, err := scanQuote(row)
		if err != nil {
			return nil, fmt.Errorf("inserting quote: %w", err)
		}
		out = append(out, *saved)
	}
	return out, nil
}

// GetQuote returns the quote with id or ErrNotFound.
func (s *Store) GetQuote(ctx context.Context, id int64) (*Quote, error) {
	q, err := scanQuote(s.db.QueryRowContext(ctx, `SELECT `+quoteColumns+` FROM translation_quotes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return q, err
}

// ListQuotes returns the quotes of a request, cheapest first.
func (s *Store) ListQuotes(ctx context.Context, requestID int64) ([]Quote, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+quoteColumns+` FROM translation_quotes WHERE request_id = ? ORDER BY price, id`, requestID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var quotes []Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, *q)
	}
	return quotes, rows.Err()
}

// --- orders ---

const orderColumns = `id, request_id, quote_id, provider_order_id, provider_options, request_content,
	response_content, price, currency, state, date_created, date_translated`

func scanOrder(row scanner) (*Order, error) {
	var (
		o        Order
		options  string
		request  string
		response string
		state    string
	)
	if err := row.Scan(&o.ID, &o.RequestID, &o.QuoteID, &o.ProviderOrderID, &options, &request,
		&response, &o.Price, &o.Currency, &state, &o.DateCreated, &o.DateTranslated); err != nil {
		return nil, err
	}
	o.State = OrderState(state)
	o.RequestContent = json.RawMessage(request)
	o.ResponseContent = json.RawMessage(response)
	if err := json.Unmarshal([]byte(options), &o.ProviderOptions); err != nil {
		return nil, fmt.Errorf("decoding provider options of order %d: %w", o.ID, err)
	}
	return &o, nil
}

// CreateOrder inserts an order. A second live order for the same request
// violates the partial unique index and yields ErrInvalidState.
func (s *Store) CreateOrder(ctx context.Context, o Order) (*Order, error) {
	options, err := encodeJSON(o.ProviderOptions, "{}")
	if err != nil {
		return nil, err
	}
	if o.State == "" {
		o.State = OrderOpen
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO translation_orders (request_id, quote_id, provider_order_id, provider_options,
			request_content, response_content, price, currency, state, date_created)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+orderColumns,
		o.RequestID, o.QuoteID, o.ProviderOrderID, options,
		string(o.RequestContent), string(o.ResponseContent), o.Price, o.Currency, string(o.State), o.DateCreated,
	)
	saved, err := scanOrder(row)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: request %d already has an active order", ErrInvalidState, o.RequestID)
	}
	return saved, err
}

// MarkOrderSubmitted stores the provider acknowledgement of an order. An
// order already claimed by an early callback keeps its provider id and state.
func (s *Store) MarkOrderSubmitted(ctx context.Context, id int64, providerOrderID string, request, response json.RawMessage) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE translation_orders
		SET provider_order_id = CASE WHEN provider_order_id = '' THEN ? ELSE provider_order_id END,
			request_content = ?,
			response_content = ?,
			state = CASE WHEN state = ? THEN ? ELSE state END
		WHERE id = ?`,
		providerOrderID, string(request), string(response), string(OrderOpen), string(OrderPending), id,
	)
	return err
}

// ClaimOpenOrder attaches providerOrderID to the request's open order when
// the provider has not acknowledged it yet. It returns ErrOrderNotFound when
// no such order exists.
func (s *Store) ClaimOpenOrder(ctx context.Context, requestID int64, providerOrderID string) (*Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, `
		UPDATE translation_orders SET provider_order_id = ?
		WHERE request_id = ? AND state = ? AND provider_order_id = ''
		RETURNING `+orderColumns,
		providerOrderID, requestID, string(OrderOpen),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	return o, err
}

// SetOrderState updates the state of an order and, when translatedAt is
// valid, its translation date.
func (s *Store) SetOrderState(ctx context.Context, id int64, state OrderState, translatedAt sql.NullTime) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE translation_orders
		SET state = ?, date_translated = COALESCE(?, date_translated)
		WHERE id = ?`,
		string(state), translatedAt, id,
	)
	return err
}

// GetOrder returns the order with id, or ErrOrderNotFound.
func (s *Store) GetOrder(ctx context.Context, id int64) (*Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM translation_orders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	return o, err
}

// GetOrderByProviderID returns the live order of a request carrying the
// provider's order id, or ErrOrderNotFound.
func (s *Store) GetOrderByProviderID(ctx context.Context, requestID int64, providerOrderID string) (*Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+` FROM translation_orders
		WHERE request_id = ? AND provider_order_id = ? AND state NOT IN (?, ?)
		ORDER BY id DESC LIMIT 1`,
		requestID, providerOrderID, string(OrderFailed), string(OrderSuperseded),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	return o, err
}

// GetSettledOrder returns the done or failed order of a request carrying the
// provider's order id, or ErrOrderNotFound.
func (s *Store) GetSettledOrder(ctx context.Context, requestID int64, providerOrderID string) (*Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+` FROM translation_orders
		WHERE request_id = ? AND provider_order_id = ? AND state IN (?, ?)
		ORDER BY id DESC LIMIT 1`,
		requestID, providerOrderID, string(OrderDone), string(OrderFailed),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	return o, err
}

// GetActiveOrder returns the live order of a request, or ErrOrderNotFound.
func (s *Store) GetActiveOrder(ctx context.Context, requestID int64) (*Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+` FROM translation_orders
		WHERE request_id = ? AND state NOT IN (?, ?)`,
		requestID, string(OrderFailed), string(OrderSuperseded),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	return o, err
}

// ListOrders returns every order of a request, newest first.
func (s *Store) ListOrders(ctx context.Context, requestID int64) ([]Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM translation_orders WHERE request_id = ? ORDER BY id DESC`, requestID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// SupersedeOrders retires every live order of a request.
func (s *Store) SupersedeOrders(ctx context.Context, requestID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE translation_orders SET state = ?
		WHERE request_id = ? AND state NOT IN (?, ?)`,
		string(OrderSuperseded), requestID, string(OrderFailed), string(OrderSuperseded),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// --- callback receipts ---

// InsertCallback records a receipt. It reports false when a receipt with
// the same request and payload hash already exists.
func (s *Store) InsertCallback(ctx context.Context, c Callback) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO translation_callbacks (request_id, order_id, payload_sha256, status, received_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (request_id, payload_sha256) DO NOTHING`,
		c.RequestID, c.OrderID, c.PayloadSHA256, c.Status, c.ReceivedAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// SetCallbackStatus updates the status of a receipt.
func (s *Store) SetCallbackStatus(ctx context.Context, requestID int64, hash, status string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE translation_callbacks SET status = ? WHERE request_id = ? AND payload_sha256 = ?`,
		status, requestID, hash,
	)
	return err
}

// GetCallback returns a receipt, or ErrNotFound.
func (s *Store) GetCallback(ctx context.Context, requestID int64, hash string) (*Callback, error) {
	var c Callback
	err := s.db.QueryRowContext(ctx, `
		SELECT id, request_id, order_id, payload_sha256, status, received_at
		FROM translation_callbacks WHERE request_id = ? AND payload_sha256 = ?`,
		requestID, hash,
	).Scan(&c.ID, &c.RequestID, &c.OrderID, &c.PayloadSHA256, &c.Status, &c.ReceivedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCallbacks returns the receipts of a request, newest first.
func (s *Store) ListCallbacks(ctx context.Context, requestID int64) ([]Callback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, order_id, payload_sha256, status, received_at
		FROM translation_callbacks WHERE request_id = ? ORDER BY id DESC`, requestID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Callback
	for rows.Next() {
		var c Callback
		if err := rows.Scan(&c.ID, &c.RequestID, &c.OrderID, &c.PayloadSHA256, &c.Status, &c.ReceivedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- directives ---

// CreateDirective inserts a directive and its languages.
func (s *Store) CreateDirective(ctx context.Context, d Directive) (*Directive, error) {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO translation_directives (title, master_language, created_at)
		VALUES (?, ?, ?) RETURNING id`,
		d.Title, d.MasterLanguage, d.CreatedAt,
	).Scan(&d.ID)
	if err != nil {
		return nil, err
	}

	for _, lang := range d.Languages {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO translation_directive_inlines (directive_id, language) VALUES (?, ?)`,
			d.ID, lang,
		); err != nil {
			return nil, fmt.Errorf("inserting directive language %s: %w", lang, err)
		}
	}
	return &d, nil
}

func (s *Store) directiveLanguages(ctx context.Context, id int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT language FROM translation_directive_inlines WHERE directive_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var langs []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		langs = append(langs, l)
	}
	return langs, rows.Err()
}

// GetDirective returns a directive with its languages, or ErrNotFound.
func (s *Store) GetDirective(ctx context.Context, id int64) (*Directive, error) {
	var d Directive
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, master_language, created_at FROM translation_directives WHERE id = ?`, id,
	).Scan(&d.ID, &d.Title, &d.MasterLanguage, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if d.Languages, err = s.directiveLanguages(ctx, id); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDirectives returns every directive with its languages, ordered by title.
func (s *Store) ListDirectives(ctx context.Context) ([]Directive, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, master_language, created_at FROM translation_directives ORDER BY title, id`)
	if err != nil {
		return nil, err
	}

	var out []Directive
	for rows.Next() {
		var d Directive
		if err := rows.Scan(&d.ID, &d.Title, &d.MasterLanguage, &d.CreatedAt); err != nil {
			_ = rows.Close()
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	for i := range out {
		if out[i].Languages, err = s.directiveLanguages(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DeleteDirective removes a directive; its languages cascade.
func (s *Store) DeleteDirective(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM translation_directives WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
