// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/mesa-go/internal/middleware"
	"github.com/olegiv/mesa-go/internal/model"
	"github.com/olegiv/mesa-go/internal/notify"
	"github.com/olegiv/mesa-go/internal/service"
)

// EventsHandler exposes the notification pipeline over HTTP: the SSE
// stream for subscribers and a manual publish endpoint for staff.
type EventsHandler struct {
	publisher *notify.Publisher
	stream    *notify.StreamHandler
	sm        *scs.SessionManager
	audit     *service.AuditService
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(publisher *notify.Publisher, stream *notify.StreamHandler, sm *scs.SessionManager, audit *service.AuditService) *EventsHandler {
	return &EventsHandler{
		publisher: publisher,
		stream:    stream,
		sm:        sm,
		audit:     audit,
	}
}

// Stream handles GET /api/events/stream. The staff view is only granted
// when the session actually belongs to a staff user; otherwise the
// request is downgraded to an (order-scoped or unscoped) customer stream.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("client") == "staff" {
		if h.sm.GetInt64(r.Context(), middleware.SessionKeyStaffUserID) == 0 {
			q := r.URL.Query()
			q.Del("client")
			r.URL.RawQuery = q.Encode()
			slog.Warn("staff stream requested without staff session", "remote_addr", r.RemoteAddr)
		}
	}
	h.stream.ServeHTTP(w, r)
}

type publishRequest struct {
	OrderID   int64  `json:"order_id"`
	Status    string `json:"status"`
	EventType string `json:"event_type"`
}

// Publish handles POST /admin/api/events, letting staff re-announce an
// order. Used when a customer reports a stuck tracking page.
func (h *EventsHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrderID <= 0 {
		writeJSONError(w, http.StatusBadRequest, "order_id is required")
		return
	}
	if !model.IsValidStatus(req.Status) {
		writeJSONError(w, http.StatusBadRequest, "invalid order status")
		return
	}
	if req.EventType != "" && req.EventType != model.EventTypeStatusChange && req.EventType != model.EventTypeNewOrder {
		writeJSONError(w, http.StatusBadRequest, "invalid event type")
		return
	}

	rec, err := h.publisher.Emit(r.Context(), req.OrderID, req.Status, req.EventType)
	if err != nil {
		slog.Error("manual event publish failed", "error", err, "order_id", req.OrderID)
		writeJSONError(w, http.StatusInternalServerError, "failed to publish event")
		return
	}

	staffID := middleware.GetStaffUserID(r)
	_ = h.audit.LogOrder(r.Context(), model.AuditLevelInfo, "event published manually", &staffID, map[string]any{
		"order_id": req.OrderID,
		"event_id": rec.EventID,
		"status":   req.Status,
	})

	writeJSONSuccess(w, map[string]any{"event": rec})
}
