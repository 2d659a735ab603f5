// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/olegiv/mesa-go/internal/cache"
	"github.com/olegiv/mesa-go/internal/middleware"
	"github.com/olegiv/mesa-go/internal/model"
	"github.com/olegiv/mesa-go/internal/service"
	"github.com/olegiv/mesa-go/internal/store"
)

// MenuHandler serves the customer menu and the staff menu editor API.
type MenuHandler struct {
	queries *store.Queries
	menu    *cache.MenuCache
	audit   *service.AuditService
}

// NewMenuHandler creates a new menu handler.
func NewMenuHandler(db *sql.DB, audit *service.AuditService) *MenuHandler {
	queries := store.New(db)
	return &MenuHandler{
		queries: queries,
		menu:    cache.NewMenuCache(queries),
		audit:   audit,
	}
}

// menuItemJSON is the wire shape of a menu item.
type menuItemJSON struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`
	PriceCents  int64  `json:"price_cents"`
	Active      bool   `json:"active"`
	SortOrder   int64  `json:"sort_order"`
}

func toMenuItemJSON(m model.MenuItem) menuItemJSON {
	return menuItemJSON{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Category:    m.Category,
		PriceCents:  m.PriceCents,
		Active:      m.Active,
		SortOrder:   m.SortOrder,
	}
}

// List handles GET /api/menu. Customers only see active items. The list is
// served from an in-memory cache that menu mutations invalidate.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.menu.ActiveItems(r.Context())
	if err != nil {
		slog.Error("failed to list menu", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to load menu")
		return
	}

	out := make([]menuItemJSON, 0, len(items))
	for _, item := range items {
		out = append(out, toMenuItemJSON(item))
	}
	writeJSONSuccess(w, map[string]any{"items": out})
}

// AdminList handles GET /admin/api/menu, including inactive items.
func (h *MenuHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	items, err := h.queries.ListMenuItems(r.Context())
	if err != nil {
		slog.Error("failed to list menu", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to load menu")
		return
	}

	out := make([]menuItemJSON, 0, len(items))
	for _, item := range items {
		out = append(out, toMenuItemJSON(item))
	}
	writeJSONSuccess(w, map[string]any{"items": out})
}

type menuItemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	PriceCents  int64  `json:"price_cents"`
	Active      bool   `json:"active"`
	SortOrder   int64  `json:"sort_order"`
}

func (req *menuItemRequest) validate() string {
	if strings.TrimSpace(req.Name) == "" {
		return "name is required"
	}
	if strings.TrimSpace(req.Category) == "" {
		return "category is required"
	}
	if req.PriceCents < 0 {
		return "price must not be negative"
	}
	return ""
}

// Create handles POST /admin/api/menu.
func (h *MenuHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req menuItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSONError(w, http.StatusBadRequest, msg)
		return
	}

	now := time.Now()
	item, err := h.queries.CreateMenuItem(r.Context(), store.CreateMenuItemParams{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		PriceCents:  req.PriceCents,
		Active:      req.Active,
		SortOrder:   req.SortOrder,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		slog.Error("failed to create menu item", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to create menu item")
		return
	}

	h.menu.Invalidate()

	staffID := middleware.GetStaffUserID(r)
	_ = h.audit.LogMenu(r.Context(), model.AuditLevelInfo, "menu item created", &staffID, map[string]any{
		"item_id": item.ID,
		"name":    item.Name,
	})

	w.WriteHeader(http.StatusCreated)
	writeJSONSuccess(w, map[string]any{"item": toMenuItemJSON(item)})
}

// Update handles PUT /admin/api/menu/{id}.
func (h *MenuHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid menu item id")
		return
	}

	var req menuItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSONError(w, http.StatusBadRequest, msg)
		return
	}

	item, err := h.queries.UpdateMenuItem(r.Context(), store.UpdateMenuItemParams{
		ID:          id,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		PriceCents:  req.PriceCents,
		Active:      req.Active,
		SortOrder:   req.SortOrder,
		UpdatedAt:   time.Now(),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, "menu item not found")
			return
		}
		slog.Error("failed to update menu item", "error", err, "item_id", id)
		writeJSONError(w, http.StatusInternalServerError, "failed to update menu item")
		return
	}

	h.menu.Invalidate()

	staffID := middleware.GetStaffUserID(r)
	_ = h.audit.LogMenu(r.Context(), model.AuditLevelInfo, "menu item updated", &staffID, map[string]any{
		"item_id": item.ID,
		"name":    item.Name,
	})

	writeJSONSuccess(w, map[string]any{"item": toMenuItemJSON(item)})
}

// Delete handles DELETE /admin/api/menu/{id}.
func (h *MenuHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid menu item id")
		return
	}

	if err := h.queries.DeleteMenuItem(r.Context(), id); err != nil {
		slog.Error("failed to delete menu item", "error", err, "item_id", id)
		writeJSONError(w, http.StatusInternalServerError, "failed to delete menu item")
		return
	}

	h.menu.Invalidate()

	staffID := middleware.GetStaffUserID(r)
	_ = h.audit.LogMenu(r.Context(), model.AuditLevelInfo, "menu item deleted", &staffID, map[string]any{
		"item_id": id,
	})

	writeJSONSuccess(w, nil)
}
