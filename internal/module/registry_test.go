// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package module

import (
	"database/sql"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/go-chi/chi/v5"
	_ "github.com/mattn/go-sqlite3"

	"github.com/olegiv/ocms-translations/internal/i18n"
)

type mockModule struct {
	name         string
	version      string
	dependencies []string
	migrations   []Migration
	adminURL     string
	label        string
	locales      fs.FS
	funcMap      template.FuncMap
	initErr      error
	shutdownErr  error
	initCalled   bool
}

func newMockModule(name string) *mockModule {
	return &mockModule{name: name, version: "1.0.0"}
}

func (m *mockModule) Name() string                    { return m.name }
func (m *mockModule) Version() string                 { return m.version }
func (m *mockModule) Description() string             { return m.name + " module" }
func (m *mockModule) Dependencies() []string          { return m.dependencies }
func (m *mockModule) Migrations() []Migration         { return m.migrations }
func (m *mockModule) Init(_ *Context) error           { m.initCalled = true; return m.initErr }
func (m *mockModule) Shutdown() error                 { return m.shutdownErr }
func (m *mockModule) TemplateFuncs() template.FuncMap { return m.funcMap }
func (m *mockModule) AdminURL() string                { return m.adminURL }
func (m *mockModule) SidebarLabel() string            { return m.label }
func (m *mockModule) LocalesFS() fs.FS                { return m.locales }

func (m *mockModule) RegisterRoutes(r chi.Router) {
	r.Get("/"+m.name, func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
}

func (m *mockModule) RegisterAdminRoutes(r chi.Router) {
	r.Get("/admin/"+m.name, func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
}

func createTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func tableMigration(version int64, table string) Migration {
	return Migration{
		Version:     version,
		Description: "create " + table,
		Up: func(db *sql.DB) error {
			_, err := db.Exec(`CREATE TABLE ` + table + ` (id INTEGER PRIMARY KEY)`)
			return err
		},
		Down: func(db *sql.DB) error {
			_, err := db.Exec(`DROP TABLE ` + table)
			return err
		},
	}
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry(newTestLogger())

	if err := r.Register(newMockModule("a")); err != nil {
		t.Fatalf("Register() = %v", err)
	}
	if err := r.Register(newMockModule("a")); err == nil {
		t.Error("duplicate Register() should fail")
	}
	if err := r.Register(newMockModule("b")); err != nil {
		t.Fatal(err)
	}

	if r.Count() != 2 {
		t.Errorf("Count() = %d, want 2", r.Count())
	}
	list := r.List()
	if list[0].Name() != "a" || list[1].Name() != "b" {
		t.Error("List() lost registration order")
	}
	if _, ok := r.Get("b"); !ok {
		t.Error("Get(b) not found")
	}
	if _, ok := r.Get("zzz"); ok {
		t.Error("Get(zzz) found")
	}
}

func TestRegistryInitAllMissingDependency(t *testing.T) {
	r := NewRegistry(newTestLogger())
	m := newMockModule("a")
	m.dependencies = []string{"missing"}
	_ = r.Register(m)

	err := r.InitAll(&Context{DB: createTestDB(t), Logger: newTestLogger()})
	if err == nil {
		t.Fatal("InitAll() should fail on missing dependency")
	}
	if m.initCalled {
		t.Error("Init called despite missing dependency")
	}
}

func TestRegistryInitAllRunsMigrationsOnce(t *testing.T) {
	db := createTestDB(t)
	logger := newTestLogger()

	m := newMockModule("a")
	m.migrations = []Migration{tableMigration(1, "a_one"), tableMigration(2, "a_two")}

	r := NewRegistry(logger)
	_ = r.Register(m)
	if err := r.InitAll(&Context{DB: db, Logger: logger}); err != nil {
		t.Fatalf("InitAll() = %v", err)
	}
	if !m.initCalled {
		t.Error("Init not called")
	}

	// A second registry over the same database must not re-run migrations.
	r2 := NewRegistry(logger)
	_ = r2.Register(m)
	if err := r2.InitAll(&Context{DB: db, Logger: logger}); err != nil {
		t.Fatalf("second InitAll() = %v", err)
	}

	infos := r2.ListInfo()
	if len(infos) != 1 {
		t.Fatalf("ListInfo() = %d entries", len(infos))
	}
	if infos[0].MigrationCount != 2 || infos[0].MigrationsApplied != 2 {
		t.Errorf("migrations = %d/%d, want 2/2", infos[0].MigrationsApplied, infos[0].MigrationCount)
	}
}

func TestRegistryInitAllPropagatesInitError(t *testing.T) {
	m := newMockModule("a")
	m.initErr = errors.New("nope")

	r := NewRegistry(newTestLogger())
	_ = r.Register(m)

	if err := r.InitAll(&Context{DB: createTestDB(t), Logger: newTestLogger()}); !errors.Is(err, m.initErr) {
		t.Errorf("InitAll() = %v, want wrapped init error", err)
	}
}

func TestRegistryInitAllLoadsLocales(t *testing.T) {
	m := newMockModule("a")
	m.locales = fstest.MapFS{
		"locales/en/messages.json": {Data: []byte(`{"language":"en","messages":[{"id":"mock.hello","message":"Hello","translation":"Hello from mock"}]}`)},
	}

	r := NewRegistry(newTestLogger())
	_ = r.Register(m)
	if err := r.InitAll(&Context{DB: createTestDB(t), Logger: newTestLogger()}); err != nil {
		t.Fatal(err)
	}

	if got := i18n.T("en", "mock.hello"); got != "Hello from mock" {
		t.Errorf("T(mock.hello) = %q", got)
	}
}

func TestRegistrySetActive(t *testing.T) {
	db := createTestDB(t)
	logger := newTestLogger()
	hooks := NewHookRegistry(logger)

	m := newMockModule("a")
	m.adminURL = "/admin/a"
	m.label = "Module A"

	r := NewRegistry(logger)
	_ = r.Register(m)

	if err := r.SetActive("a", false); err == nil {
		t.Error("SetActive before InitAll should fail")
	}
	if err := r.InitAll(&Context{DB: db, Logger: logger, Hooks: hooks}); err != nil {
		t.Fatal(err)
	}

	if !r.IsActive("a") {
		t.Fatal("new module should be active")
	}
	if items := r.ListSidebarModules(); len(items) != 1 || items[0].Label != "Module A" {
		t.Errorf("ListSidebarModules() = %+v", items)
	}

	if err := r.SetActive("a", false); err != nil {
		t.Fatal(err)
	}
	if r.IsActive("a") {
		t.Error("module still active")
	}
	if items := r.ListSidebarModules(); len(items) != 0 {
		t.Errorf("inactive module in sidebar: %+v", items)
	}
	if err := r.SetActive("zzz", true); err == nil {
		t.Error("SetActive on unknown module should fail")
	}

	var active bool
	if err := db.QueryRow(`SELECT is_active FROM modules WHERE name = 'a'`).Scan(&active); err != nil {
		t.Fatal(err)
	}
	if active {
		t.Error("status not persisted")
	}

	// Status survives a restart.
	r2 := NewRegistry(logger)
	_ = r2.Register(newMockModule("a"))
	if err := r2.InitAll(&Context{DB: db, Logger: logger}); err != nil {
		t.Fatal(err)
	}
	if r2.IsActive("a") {
		t.Error("persisted inactive status ignored")
	}
}

func TestRegistryRoutesRespectActiveStatus(t *testing.T) {
	db := createTestDB(t)
	logger := newTestLogger()

	r := NewRegistry(logger)
	_ = r.Register(newMockModule("a"))
	if err := r.InitAll(&Context{DB: db, Logger: logger}); err != nil {
		t.Fatal(err)
	}

	router := chi.NewRouter()
	r.RouteAll(router)
	r.AdminRouteAll(router)

	serve := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	if w := serve("/a"); w.Code != http.StatusOK {
		t.Errorf("GET /a = %d, want 200", w.Code)
	}

	_ = r.SetActive("a", false)

	if w := serve("/a"); w.Code != http.StatusNotFound {
		t.Errorf("inactive GET /a = %d, want 404", w.Code)
	}
	w := serve("/admin/a")
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/admin" {
		t.Errorf("inactive admin route = %d %q", w.Code, w.Header().Get("Location"))
	}
}

func TestRegistryAllTemplateFuncs(t *testing.T) {
	a := newMockModule("a")
	a.funcMap = template.FuncMap{"fromA": func() string { return "a" }}
	b := newMockModule("b")
	b.funcMap = template.FuncMap{"fromB": func() string { return "b" }}

	r := NewRegistry(newTestLogger())
	_ = r.Register(a)
	_ = r.Register(b)

	funcs := r.AllTemplateFuncs()
	if _, ok := funcs["fromA"]; !ok {
		t.Error("fromA missing")
	}
	if _, ok := funcs["fromB"]; !ok {
		t.Error("fromB missing")
	}
}

func TestRegistryShutdownAllJoinsErrors(t *testing.T) {
	a := newMockModule("a")
	a.shutdownErr = errors.New("a failed")
	b := newMockModule("b")

	r := NewRegistry(newTestLogger())
	_ = r.Register(a)
	_ = r.Register(b)

	err := r.ShutdownAll()
	if !errors.Is(err, a.shutdownErr) {
		t.Errorf("ShutdownAll() = %v, want a's error", err)
	}
}
