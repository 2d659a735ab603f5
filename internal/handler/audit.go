// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/olegiv/mesa-go/internal/store"
)

// AuditHandler lets managers browse the audit log.
type AuditHandler struct {
	queries *store.Queries
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(db *sql.DB) *AuditHandler {
	return &AuditHandler{queries: store.New(db)}
}

// List handles GET /admin/api/audit.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r, 50, 500)

	entries, err := h.queries.ListAuditEntries(r.Context(), store.ListAuditEntriesParams{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		slog.Error("failed to list audit entries", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to load audit log")
		return
	}

	total, err := h.queries.CountAuditEntries(r.Context())
	if err != nil {
		slog.Error("failed to count audit entries", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to load audit log")
		return
	}

	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		entry := map[string]any{
			"id":         e.ID,
			"level":      e.Level,
			"category":   e.Category,
			"message":    e.Message,
			"metadata":   e.Metadata,
			"created_at": e.CreatedAt,
		}
		if e.UserID.Valid {
			entry["user_id"] = e.UserID.Int64
		}
		out = append(out, entry)
	}

	writeJSONSuccess(w, map[string]any{
		"entries": out,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}
