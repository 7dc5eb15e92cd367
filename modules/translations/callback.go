// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translations

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Callback statuses sent by providers.
const (
	CallbackCompleted = "completed"
	CallbackFailed    = "failed"
)

// Receipt status while the import runs.
const callbackProcessing = "processing"

//go:embed callback.schema.json
var callbackSchemaJSON string

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// CallbackPayload is the body a provider posts when an order finishes.
type CallbackPayload struct {
	OrderID      string                    `json:"order_id"`
	Status       string                    `json:"status"`
	Translations map[string]map[string]any `json:"translations"`
	Error        string                    `json:"error"`
}

// ParseCallback validates a callback body against the callback schema.
// Every failure wraps ErrMalformedCallback.
func ParseCallback(payload []byte) (*CallbackPayload, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}

	schema, err := loadCallbackSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}

	var cb CallbackPayload
	if err := json.Unmarshal(payload, &cb); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}
	cb.OrderID = strings.TrimSpace(cb.OrderID)
	if cb.OrderID == "" {
		return nil, fmt.Errorf("%w: order_id must not be blank", ErrMalformedCallback)
	}
	return &cb, nil
}

// PayloadHash is the hex SHA-256 of a callback body, the receipt key.
func PayloadHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func loadCallbackSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource("callback.schema.json", strings.NewReader(callbackSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, compiledSchemaErr = compiler.Compile("callback.schema.json")
	})
	return compiledSchema, compiledSchemaErr
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, errors.New("payload contains trailing content")
	}
	return value, nil
}
