// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package module

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHookRegistryRegister(t *testing.T) {
	h := NewHookRegistry(newTestLogger())

	if h.HasHandlers("test.hook") {
		t.Fatal("HasHandlers() = true on empty registry")
	}

	h.RegisterFunc("test.hook", "handler", "mod", func(_ context.Context, data any) (any, error) {
		return data, nil
	})

	if !h.HasHandlers("test.hook") {
		t.Error("HasHandlers() = false, want true")
	}
	if n := h.HandlerCount("test.hook"); n != 1 {
		t.Errorf("HandlerCount() = %d, want 1", n)
	}
}

func TestHookRegistryCallPriorityOrder(t *testing.T) {
	h := NewHookRegistry(newTestLogger())

	appendTag := func(tag string) HookFunc {
		return func(_ context.Context, data any) (any, error) {
			return data.(string) + tag, nil
		}
	}
	h.Register("test.hook", HookHandler{Name: "late", Module: "m", Priority: 10, Fn: appendTag("c")})
	h.Register("test.hook", HookHandler{Name: "first", Module: "m", Priority: -1, Fn: appendTag("a")})
	h.Register("test.hook", HookHandler{Name: "mid1", Module: "m", Fn: appendTag("b1")})
	h.Register("test.hook", HookHandler{Name: "mid2", Module: "m", Fn: appendTag("b2")})

	got, err := h.Call(context.Background(), "test.hook", "")
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got != "ab1b2c" {
		t.Errorf("Call() = %q, want ab1b2c", got)
	}
}

func TestHookRegistryCallNoHandlers(t *testing.T) {
	h := NewHookRegistry(newTestLogger())

	got, err := h.Call(context.Background(), "missing", 42)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got != 42 {
		t.Errorf("Call() = %v, want data unchanged", got)
	}
}

func TestHookRegistryCallStopsOnError(t *testing.T) {
	h := NewHookRegistry(newTestLogger())
	errBoom := errors.New("boom")

	called := false
	h.Register("test.hook", HookHandler{Name: "fails", Module: "m", Priority: 0, Fn: func(context.Context, any) (any, error) {
		return nil, errBoom
	}})
	h.Register("test.hook", HookHandler{Name: "after", Module: "m", Priority: 1, Fn: func(_ context.Context, d any) (any, error) {
		called = true
		return d, nil
	}})

	err := h.CallNoResult(context.Background(), "test.hook", nil)
	if !errors.Is(err, errBoom) {
		t.Fatalf("CallNoResult() error = %v, want boom", err)
	}
	if called {
		t.Error("handler after the failing one was called")
	}
}

func TestHookRegistrySkipsInactiveModules(t *testing.T) {
	h := NewHookRegistry(newTestLogger())
	h.SetIsModuleActive(func(name string) bool { return name != "off" })

	var calls []string
	record := func(name string) HookFunc {
		return func(_ context.Context, d any) (any, error) {
			calls = append(calls, name)
			return d, nil
		}
	}
	h.RegisterFunc("test.hook", "on", "on", record("on"))
	h.RegisterFunc("test.hook", "off", "off", record("off"))

	if err := h.CallNoResult(context.Background(), "test.hook", nil); err != nil {
		t.Fatal(err)
	}
	if len(calls) != 1 || calls[0] != "on" {
		t.Errorf("calls = %v, want [on]", calls)
	}
}

func TestHookRegistryUnregisterAll(t *testing.T) {
	h := NewHookRegistry(newTestLogger())
	noop := func(_ context.Context, d any) (any, error) { return d, nil }

	h.RegisterFunc(HookTranslationExport, "a", "bookmarks", noop)
	h.RegisterFunc(HookTranslationImport, "b", "bookmarks", noop)
	h.RegisterFunc(HookTranslationImport, "c", "other", noop)

	h.UnregisterAll("bookmarks")

	if h.HasHandlers(HookTranslationExport) {
		t.Error("export handlers should be gone")
	}
	if n := h.HandlerCount(HookTranslationImport); n != 1 {
		t.Errorf("import handlers = %d, want 1", n)
	}
}

func TestTranslationHookPayloadsArePassedByPointer(t *testing.T) {
	h := NewHookRegistry(newTestLogger())
	h.RegisterFunc(HookTranslationExport, "fill", "bookmarks", func(_ context.Context, d any) (any, error) {
		req := d.(*TranslationExport)
		if req.AppLabel == "bookmarks" {
			req.Content = map[string]any{"title": "Go"}
			req.Found = true
		}
		return req, nil
	})

	req := &TranslationExport{AppLabel: "bookmarks", ModelName: "bookmark", ObjectID: "1"}
	if err := h.CallNoResult(context.Background(), HookTranslationExport, req); err != nil {
		t.Fatal(err)
	}
	if !req.Found || req.Content["title"] != "Go" {
		t.Errorf("export payload not filled: %+v", req)
	}
}

func TestHookRegistryCallKeepsItsHandlerList(t *testing.T) {
	h := NewHookRegistry(newTestLogger())

	entered := make(chan struct{})
	release := make(chan struct{})
	appendTag := func(tag string) HookFunc {
		return func(_ context.Context, data any) (any, error) {
			return data.(string) + tag, nil
		}
	}
	var once sync.Once
	h.Register("test.hook", HookHandler{Name: "a", Module: "m", Fn: func(_ context.Context, data any) (any, error) {
		once.Do(func() {
			close(entered)
			<-release
		})
		return data.(string) + "a", nil
	}})
	h.Register("test.hook", HookHandler{Name: "b", Module: "other", Fn: appendTag("b")})
	h.Register("test.hook", HookHandler{Name: "c", Module: "m", Fn: appendTag("c")})

	type result struct {
		out any
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := h.Call(context.Background(), "test.hook", "")
		done <- result{out, err}
	}()

	<-entered
	h.Register("test.hook", HookHandler{Name: "z", Module: "m", Priority: -5, Fn: appendTag("z")})
	h.UnregisterAll("other")
	close(release)

	res := <-done
	if res.err != nil {
		t.Fatalf("Call() error = %v", res.err)
	}
	if res.out != "abc" {
		t.Errorf("in-flight Call() = %q, want abc", res.out)
	}

	got, err := h.Call(context.Background(), "test.hook", "")
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got != "zac" {
		t.Errorf("Call() = %q, want zac", got)
	}
}
