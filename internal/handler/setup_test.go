// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/mesa-go/internal/auth"
	"github.com/olegiv/mesa-go/internal/handler"
	"github.com/olegiv/mesa-go/internal/middleware"
	"github.com/olegiv/mesa-go/internal/model"
	"github.com/olegiv/mesa-go/internal/notify"
	"github.com/olegiv/mesa-go/internal/service"
	"github.com/olegiv/mesa-go/internal/session"
	"github.com/olegiv/mesa-go/internal/store"
	"github.com/olegiv/mesa-go/internal/testutil"
)

// fixture assembles the full HTTP surface against a throwaway database,
// wired the same way the server binary wires it.
type fixture struct {
	t        *testing.T
	db       *sql.DB
	queries  *store.Queries
	eventLog *notify.Log
	server   *httptest.Server
	client   *http.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.TestDB(t)
	queries := store.New(db)
	sm := session.New(db, true)

	dir := t.TempDir()
	eventLog, err := notify.OpenLog(notify.DefaultLogPath(dir))
	require.NoError(t, err)
	snapshots, err := notify.NewSnapshotStore(notify.DefaultSnapshotDir(dir))
	require.NoError(t, err)
	publisher := notify.NewPublisher(db, eventLog, snapshots)
	stream := notify.NewStreamHandler(eventLog, snapshots, notify.StreamConfig{
		PollInterval:      20 * time.Millisecond,
		KeepAliveInterval: time.Hour,
		TickInterval:      5 * time.Millisecond,
	})

	auditService := service.NewAuditService(db)
	orderService := service.NewOrderService(db, publisher, auditService)
	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())

	authHandler := handler.NewAuthHandler(db, sm, auditService, loginProtection)
	menuHandler := handler.NewMenuHandler(db, auditService)
	cartHandler := handler.NewCartHandler(db, sm)
	orderHandler := handler.NewOrderHandler(orderService, sm)
	eventsHandler := handler.NewEventsHandler(publisher, stream, sm, auditService)
	settingsHandler := handler.NewSettingsHandler(db, auditService)
	auditHandler := handler.NewAuditHandler(db)
	healthHandler := handler.NewHealthHandler(db, sm, eventLog, dir)

	r := chi.NewRouter()
	r.Use(middleware.RequestPath)
	r.Use(sm.LoadAndSave)

	r.Get("/api/events/stream", eventsHandler.Stream)

	r.Get("/health", healthHandler.Health)
	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)

	r.Route("/api", func(r chi.Router) {
		r.Get("/menu", menuHandler.List)
		r.Get("/cart", cartHandler.Get)
		r.Delete("/cart", cartHandler.Clear)
		r.Post("/cart/items", cartHandler.AddItem)
		r.Put("/cart/items/{id}", cartHandler.UpdateItem)
		r.Delete("/cart/items/{id}", cartHandler.RemoveItem)
		r.Post("/orders", orderHandler.Place)
		r.Get("/orders/{reference}", orderHandler.Track)
	})

	r.Route("/admin/api", func(r chi.Router) {
		r.With(loginProtection.Middleware()).Post("/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.StaffAuth(sm))
			r.Use(middleware.LoadStaffUser(sm, db))

			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)

			r.Get("/orders", orderHandler.AdminList)
			r.Get("/orders/{id}", orderHandler.AdminGet)
			r.Put("/orders/{id}/status", orderHandler.UpdateStatus)

			r.Get("/menu", menuHandler.AdminList)
			r.Post("/menu", menuHandler.Create)
			r.Put("/menu/{id}", menuHandler.Update)
			r.Delete("/menu/{id}", menuHandler.Delete)

			r.Post("/events", eventsHandler.Publish)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireManager())
				r.Get("/settings", settingsHandler.List)
				r.Put("/settings", settingsHandler.Update)
				r.Get("/audit", auditHandler.List)
			})
		})
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &fixture{
		t:        t,
		db:       db,
		queries:  queries,
		eventLog: eventLog,
		server:   server,
		client:   &http.Client{Jar: jar},
	}
}

// do performs a JSON request and decodes the JSON response body.
func (f *fixture) do(method, path string, body any) (int, map[string]any) {
	f.t.Helper()

	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(f.t, err)
		rdr = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, f.server.URL+path, rdr)
	require.NoError(f.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.client.Do(req)
	require.NoError(f.t, err)
	defer func() { _ = resp.Body.Close() }()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

// createStaff inserts a staff user directly with a real password hash.
func (f *fixture) createStaff(email, password, role string) model.StaffUser {
	f.t.Helper()

	hash, err := auth.HashPassword(password)
	require.NoError(f.t, err)

	now := time.Now()
	user, err := f.queries.CreateStaffUser(context.Background(), store.CreateStaffUserParams{
		Email:        email,
		Name:         "Test Staff",
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(f.t, err)
	return user
}

// login authenticates through the real endpoint so the session cookie
// lands in the fixture's cookie jar.
func (f *fixture) login(email, password string) {
	f.t.Helper()

	status, body := f.do(http.MethodPost, "/admin/api/login", map[string]any{
		"email":    email,
		"password": password,
	})
	require.Equal(f.t, http.StatusOK, status, "login failed: %v", body)
}

// addMenuItem inserts a menu item directly into the store.
func (f *fixture) addMenuItem(name, category string, priceCents int64, active bool) model.MenuItem {
	f.t.Helper()

	now := time.Now()
	item, err := f.queries.CreateMenuItem(context.Background(), store.CreateMenuItemParams{
		Name:       name,
		Category:   category,
		PriceCents: priceCents,
		Active:     active,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	require.NoError(f.t, err)
	return item
}
