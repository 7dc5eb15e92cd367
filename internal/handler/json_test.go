// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSONError(w, http.StatusConflict, "busy")

	assertStatus(t, w.Code, http.StatusConflict)
	resp := decodeBody(t, w)
	if resp["success"] != false || resp["error"] != "busy" {
		t.Errorf("resp = %v", resp)
	}
}

func TestWriteJSONSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSONSuccess(w, nil)

	assertStatus(t, w.Code, http.StatusOK)
	if decodeBody(t, w)["success"] != true {
		t.Error("want success=true")
	}
}

func TestWantsJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if wantsJSON(req) {
		t.Error("no Accept header should not want JSON")
	}
	req.Header.Set("Accept", "application/json, text/plain")
	if !wantsJSON(req) {
		t.Error("want JSON")
	}
}
