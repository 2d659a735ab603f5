// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/mesa-go/internal/service"
	"github.com/olegiv/mesa-go/internal/store"
)

// sessionKeyCart stores the cart lines as a JSON string. JSON avoids
// registering cart types with the session codec.
const sessionKeyCart = "cart"

const maxCartLines = 30

// CartHandler manages the customer's session cart.
type CartHandler struct {
	queries *store.Queries
	sm      *scs.SessionManager
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(db *sql.DB, sm *scs.SessionManager) *CartHandler {
	return &CartHandler{queries: store.New(db), sm: sm}
}

// cartLineJSON is one cart line enriched with current menu data.
type cartLineJSON struct {
	MenuItemID int64  `json:"menu_item_id"`
	Name       string `json:"name"`
	Quantity   int64  `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
	Subtotal   int64  `json:"subtotal"`
}

// decodeCartLines parses the JSON cart blob stored in the session.
func decodeCartLines(raw string, dst *[]service.CartLine) error {
	return json.Unmarshal([]byte(raw), dst)
}

// readCart loads the session cart. A corrupt cart is treated as empty.
func (h *CartHandler) readCart(r *http.Request) []service.CartLine {
	raw := h.sm.GetString(r.Context(), sessionKeyCart)
	if raw == "" {
		return nil
	}
	var lines []service.CartLine
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		slog.Warn("discarding corrupt session cart", "error", err)
		return nil
	}
	return lines
}

func (h *CartHandler) writeCart(r *http.Request, lines []service.CartLine) {
	if len(lines) == 0 {
		h.sm.Remove(r.Context(), sessionKeyCart)
		return
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		slog.Error("failed to encode cart", "error", err)
		return
	}
	h.sm.Put(r.Context(), sessionKeyCart, string(raw))
}

// respondCart renders the cart against the current menu. Lines whose menu
// item vanished or went inactive are dropped and the cart is rewritten.
func (h *CartHandler) respondCart(w http.ResponseWriter, r *http.Request, lines []service.CartLine) {
	kept := make([]service.CartLine, 0, len(lines))
	out := make([]cartLineJSON, 0, len(lines))
	var total int64

	for _, line := range lines {
		item, err := h.queries.GetMenuItemByID(r.Context(), line.MenuItemID)
		if err != nil || !item.Active {
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				slog.Error("failed to load cart item", "error", err, "item_id", line.MenuItemID)
			}
			continue
		}
		subtotal := item.PriceCents * line.Quantity
		total += subtotal
		kept = append(kept, line)
		out = append(out, cartLineJSON{
			MenuItemID: item.ID,
			Name:       item.Name,
			Quantity:   line.Quantity,
			PriceCents: item.PriceCents,
			Subtotal:   subtotal,
		})
	}

	if len(kept) != len(lines) {
		h.writeCart(r, kept)
	}

	writeJSONSuccess(w, map[string]any{
		"items":       out,
		"total_cents": total,
	})
}

// Get handles GET /api/cart.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respondCart(w, r, h.readCart(r))
}

type cartAddRequest struct {
	MenuItemID int64 `json:"menu_item_id"`
	Quantity   int64 `json:"quantity"`
}

// AddItem handles POST /api/cart/items. Adding an item already in the
// cart increases its quantity.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req cartAddRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity < 1 {
		writeJSONError(w, http.StatusBadRequest, "quantity must be at least 1")
		return
	}

	item, err := h.queries.GetMenuItemByID(r.Context(), req.MenuItemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, "menu item not found")
			return
		}
		slog.Error("failed to load menu item", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to update cart")
		return
	}
	if !item.Active {
		writeJSONError(w, http.StatusConflict, "menu item is unavailable")
		return
	}

	lines := h.readCart(r)
	merged := false
	for i := range lines {
		if lines[i].MenuItemID == req.MenuItemID {
			lines[i].Quantity += req.Quantity
			merged = true
			break
		}
	}
	if !merged {
		if len(lines) >= maxCartLines {
			writeJSONError(w, http.StatusBadRequest, "cart is full")
			return
		}
		lines = append(lines, service.CartLine{MenuItemID: req.MenuItemID, Quantity: req.Quantity})
	}

	h.writeCart(r, lines)
	h.respondCart(w, r, lines)
}

type cartUpdateRequest struct {
	Quantity int64 `json:"quantity"`
}

// UpdateItem handles PUT /api/cart/items/{id}. Quantity 0 removes the line.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid menu item id")
		return
	}

	var req cartUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity < 0 {
		writeJSONError(w, http.StatusBadRequest, "quantity must not be negative")
		return
	}

	lines := h.readCart(r)
	updated := make([]service.CartLine, 0, len(lines))
	found := false
	for _, line := range lines {
		if line.MenuItemID == id {
			found = true
			if req.Quantity == 0 {
				continue
			}
			line.Quantity = req.Quantity
		}
		updated = append(updated, line)
	}
	if !found {
		writeJSONError(w, http.StatusNotFound, "item not in cart")
		return
	}

	h.writeCart(r, updated)
	h.respondCart(w, r, updated)
}

// RemoveItem handles DELETE /api/cart/items/{id}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid menu item id")
		return
	}

	lines := h.readCart(r)
	kept := lines[:0]
	for _, line := range lines {
		if line.MenuItemID != id {
			kept = append(kept, line)
		}
	}

	h.writeCart(r, kept)
	h.respondCart(w, r, kept)
}

// Clear handles DELETE /api/cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.sm.Remove(r.Context(), sessionKeyCart)
	h.respondCart(w, r, nil)
}
