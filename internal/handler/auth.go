// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/mesa-go/internal/auth"
	"github.com/olegiv/mesa-go/internal/middleware"
	"github.com/olegiv/mesa-go/internal/model"
	"github.com/olegiv/mesa-go/internal/service"
	"github.com/olegiv/mesa-go/internal/store"
)

// AuthHandler handles staff login and logout.
type AuthHandler struct {
	queries    *store.Queries
	sm         *scs.SessionManager
	audit      *service.AuditService
	protection *middleware.LoginProtection
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(db *sql.DB, sm *scs.SessionManager, audit *service.AuditService, protection *middleware.LoginProtection) *AuthHandler {
	return &AuthHandler{
		queries:    store.New(db),
		sm:         sm,
		audit:      audit,
		protection: protection,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /admin/api/login.
// Failures are reported identically for unknown accounts and wrong
// passwords so the endpoint cannot be used to enumerate staff emails.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		writeJSONError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	if locked, remaining := h.protection.IsAccountLocked(email); locked {
		writeJSONError(w, http.StatusTooManyRequests,
			fmt.Sprintf("account temporarily locked, try again in %s", remaining.Round(time.Second)))
		return
	}

	user, err := h.queries.GetStaffUserByEmail(r.Context(), email)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("staff lookup failed", "error", err)
		}
		h.recordFailure(r, email)
		writeJSONError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	ok, err := auth.CheckPassword(req.Password, user.PasswordHash)
	if err != nil || !ok {
		if err != nil {
			slog.Error("password verification failed", "error", err, "user_id", user.ID)
		}
		h.recordFailure(r, email)
		writeJSONError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	h.protection.RecordSuccessfulLogin(email)

	// New session token on privilege change.
	if err := h.sm.RenewToken(r.Context()); err != nil {
		slog.Error("session renew failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "login failed")
		return
	}
	h.sm.Put(r.Context(), middleware.SessionKeyStaffUserID, user.ID)

	_ = h.audit.LogAuth(r.Context(), model.AuditLevelInfo, "staff login", &user.ID, map[string]any{
		"email": user.Email,
	})

	writeJSONSuccess(w, map[string]any{
		"user": map[string]any{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}

// Logout handles POST /admin/api/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := h.sm.GetInt64(r.Context(), middleware.SessionKeyStaffUserID)

	if err := h.sm.Destroy(r.Context()); err != nil {
		slog.Error("session destroy failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "logout failed")
		return
	}

	if userID != 0 {
		_ = h.audit.LogAuth(r.Context(), model.AuditLevelInfo, "staff logout", &userID, nil)
	}

	writeJSONSuccess(w, nil)
}

// Me handles GET /admin/api/me, returning the logged-in staff user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetStaffUser(r)
	if user == nil {
		writeJSONError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	writeJSONSuccess(w, map[string]any{
		"user": map[string]any{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}

func (h *AuthHandler) recordFailure(r *http.Request, email string) {
	locked, dur := h.protection.RecordFailedAttempt(email)
	_ = h.audit.LogAuth(r.Context(), model.AuditLevelWarning, "failed staff login", nil, map[string]any{
		"email":  email,
		"locked": locked,
	})
	if locked {
		slog.Warn("staff account locked", "email", email, "duration", dur)
	}
}
