// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translations

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/olegiv/ocms-translations/internal/i18n"
	"github.com/olegiv/ocms-translations/internal/util"
	"github.com/olegiv/ocms-translations/modules/translations/provider"
)

// Status actions offered next to a request.
const (
	ActionRefresh     = "refresh"
	ActionChooseQuote = "choose-quote"
	ActionRetry       = "retry"
)

// StatusView is how a request's state is shown to an editor.
type StatusView struct {
	State State
	Label string
	// Action is empty when the editor has nothing to do.
	Action      string
	ActionLabel string
	// ActionURL is relative to the admin root; refresh and retry are POSTs.
	ActionURL string
}

// PrettyStatus describes req in lang.
func PrettyStatus(req *Request, lang string) StatusView {
	v := StatusView{
		State: req.State,
		Label: i18n.T(lang, "translations.state."+string(req.State)),
	}
	switch req.State {
	case StatePendingQuote:
		v.Action = ActionRefresh
		v.ActionURL = fmt.Sprintf("%s/%d/get-quote-from-provider", AdminBasePath, req.ID)
	case StatePendingApproval:
		v.Action = ActionChooseQuote
		v.ActionURL = fmt.Sprintf("%s/%d/choose-quote", AdminBasePath, req.ID)
	case StateImportFailed:
		v.Action = ActionRetry
		v.ActionURL = fmt.Sprintf("%s/%d/retry", AdminBasePath, req.ID)
	}
	if v.Action != "" {
		v.ActionLabel = i18n.T(lang, "translations.action."+v.Action)
	}
	return v
}

// Method returns the HTTP method that triggers the action.
func (v StatusView) Method() string {
	if v.Action == ActionChooseQuote {
		return "GET"
	}
	return "POST"
}

// PrettyJSON indents raw JSON for display. Invalid input is returned as is.
func PrettyJSON(raw []byte) string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// PrettyOptions renders provider options as indented JSON.
func PrettyOptions(opts map[string]any) string {
	if len(opts) == 0 {
		return ""
	}
	raw, err := json.MarshalIndent(opts, "", "  ")
	if err != nil {
		return fmt.Sprint(opts)
	}
	return string(raw)
}

// DisplayPrice formats a price held in minor units.
func DisplayPrice(minor int64, currency string) string {
	if currency == "" {
		return ""
	}
	return util.FormatPrice(minor, currency)
}

// ProviderOrderID returns the provider's id for o, falling back to the id
// found in the stored provider response.
func ProviderOrderID(o *Order) string {
	if o == nil {
		return ""
	}
	if o.ProviderOrderID != "" {
		return o.ProviderOrderID
	}
	return provider.ExtractOrderID(o.ResponseContent)
}
