// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/olegiv/mesa-go/internal/middleware"
	"github.com/olegiv/mesa-go/internal/model"
	"github.com/olegiv/mesa-go/internal/service"
)

// OrderHandler serves order placement for customers and the order console
// for staff.
type OrderHandler struct {
	orders *service.OrderService
	sm     *scs.SessionManager
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(orders *service.OrderService, sm *scs.SessionManager) *OrderHandler {
	return &OrderHandler{orders: orders, sm: sm}
}

// orderJSON is the wire shape of an order.
type orderJSON struct {
	ID            int64           `json:"id"`
	Reference     string          `json:"reference"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	Status        string          `json:"status"`
	StatusText    string          `json:"status_text"`
	TotalCents    int64           `json:"total_cents"`
	Note          string          `json:"note,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Items         []orderItemJSON `json:"items,omitempty"`
}

type orderItemJSON struct {
	Name       string `json:"name"`
	Quantity   int64  `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
	Subtotal   int64  `json:"subtotal"`
}

func toOrderJSON(order model.Order, items []model.OrderItem) orderJSON {
	out := orderJSON{
		ID:            order.ID,
		Reference:     order.Reference,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		Status:        order.Status,
		StatusText:    model.StatusText(order.Status),
		TotalCents:    order.TotalCents,
		Note:          order.Note,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
	for _, item := range items {
		out.Items = append(out.Items, orderItemJSON{
			Name:       item.Name,
			Quantity:   item.Quantity,
			PriceCents: item.PriceCents,
			Subtotal:   item.Subtotal(),
		})
	}
	return out
}

type placeOrderRequest struct {
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	Note          string `json:"note"`
}

// Place handles POST /api/orders. The cart comes from the session; a
// successful placement clears it.
func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var lines []service.CartLine
	if raw := h.sm.GetString(r.Context(), sessionKeyCart); raw != "" {
		if err := decodeCartLines(raw, &lines); err != nil {
			slog.Warn("discarding corrupt session cart at checkout", "error", err)
		}
	}

	order, items, err := h.orders.PlaceOrder(r.Context(), service.PlaceOrderParams{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Note:          req.Note,
		Lines:         lines,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyOrder),
			errors.Is(err, service.ErrInvalidQuantity),
			errors.Is(err, service.ErrCustomerRequired):
			writeJSONError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrItemUnavailable):
			writeJSONError(w, http.StatusConflict, err.Error())
		default:
			slog.Error("order placement failed", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "failed to place order")
		}
		return
	}

	h.sm.Remove(r.Context(), sessionKeyCart)
	// Remember the order so this browser can watch its status stream.
	h.sm.Put(r.Context(), sessionKeyLastOrderID, order.ID)

	w.WriteHeader(http.StatusCreated)
	writeJSONSuccess(w, map[string]any{"order": toOrderJSON(order, items)})
}

// sessionKeyLastOrderID remembers the customer's most recent order.
const sessionKeyLastOrderID = "last_order_id"

// Track handles GET /api/orders/{reference} for customers.
func (h *OrderHandler) Track(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	if reference == "" {
		writeJSONError(w, http.StatusBadRequest, "order reference is required")
		return
	}

	order, items, err := h.orders.GetOrderByReference(r.Context(), reference)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, "order not found")
			return
		}
		slog.Error("order lookup failed", "error", err, "reference", reference)
		writeJSONError(w, http.StatusInternalServerError, "failed to load order")
		return
	}

	writeJSONSuccess(w, map[string]any{"order": toOrderJSON(order, items)})
}

// AdminList handles GET /admin/api/orders with optional ?status= filter.
func (h *OrderHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r, 50, 200)
	status := r.URL.Query().Get("status")

	orders, err := h.orders.ListOrders(r.Context(), status, limit, offset)
	if err != nil {
		if errors.Is(err, service.ErrInvalidStatus) {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("failed to list orders", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	out := make([]orderJSON, 0, len(orders))
	for _, order := range orders {
		out = append(out, toOrderJSON(order, nil))
	}
	writeJSONSuccess(w, map[string]any{
		"orders": out,
		"limit":  limit,
		"offset": offset,
	})
}

// AdminGet handles GET /admin/api/orders/{id} with full line detail.
func (h *OrderHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, items, err := h.orders.GetOrderWithItems(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSONError(w, http.StatusNotFound, "order not found")
			return
		}
		slog.Error("failed to load order", "error", err, "order_id", id)
		writeJSONError(w, http.StatusInternalServerError, "failed to load order")
		return
	}

	writeJSONSuccess(w, map[string]any{"order": toOrderJSON(order, items)})
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles PUT /admin/api/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req statusUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), id, req.Status, middleware.GetStaffUserID(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus):
			writeJSONError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrOrderFinalized):
			writeJSONError(w, http.StatusConflict, err.Error())
		case errors.Is(err, sql.ErrNoRows):
			writeJSONError(w, http.StatusNotFound, "order not found")
		default:
			slog.Error("status update failed", "error", err, "order_id", id)
			writeJSONError(w, http.StatusInternalServerError, "failed to update order")
		}
		return
	}

	writeJSONSuccess(w, map[string]any{"order": toOrderJSON(order, nil)})
}
