// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/olegiv/mesa-go/internal/middleware"
	"github.com/olegiv/mesa-go/internal/model"
	"github.com/olegiv/mesa-go/internal/service"
	"github.com/olegiv/mesa-go/internal/store"
)

// Settings keys known to the application.
const (
	SettingRestaurantName = "restaurant_name"
	SettingCurrency       = "currency"
	SettingOrderingOpen   = "ordering_open"
)

// editableSettings is the closed set of keys staff may change.
var editableSettings = map[string]bool{
	SettingRestaurantName: true,
	SettingCurrency:       true,
	SettingOrderingOpen:   true,
}

// SettingsHandler serves restaurant settings for managers.
type SettingsHandler struct {
	queries *store.Queries
	audit   *service.AuditService
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(db *sql.DB, audit *service.AuditService) *SettingsHandler {
	return &SettingsHandler{queries: store.New(db), audit: audit}
}

// List handles GET /admin/api/settings.
func (h *SettingsHandler) List(w http.ResponseWriter, r *http.Request) {
	settings, err := h.queries.ListSettings(r.Context())
	if err != nil {
		slog.Error("failed to list settings", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	writeJSONSuccess(w, map[string]any{"settings": settings})
}

// Update handles PUT /admin/api/settings with a key/value map.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req) == 0 {
		writeJSONError(w, http.StatusBadRequest, "no settings provided")
		return
	}
	for key := range req {
		if !editableSettings[key] {
			writeJSONError(w, http.StatusBadRequest, "unknown setting: "+key)
			return
		}
	}

	now := time.Now()
	for key, value := range req {
		if err := h.queries.UpsertSetting(r.Context(), key, value, now); err != nil {
			slog.Error("failed to update setting", "error", err, "key", key)
			writeJSONError(w, http.StatusInternalServerError, "failed to update settings")
			return
		}
	}

	staffID := middleware.GetStaffUserID(r)
	keys := make([]string, 0, len(req))
	for key := range req {
		keys = append(keys, key)
	}
	_ = h.audit.LogConfig(r.Context(), model.AuditLevelInfo, "settings updated", &staffID, map[string]any{
		"keys": keys,
	})

	settings, err := h.queries.ListSettings(r.Context())
	if err != nil {
		slog.Error("failed to reload settings", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	writeJSONSuccess(w, map[string]any{"settings": settings})
}
