// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for staff authentication,
// rate limiting, and request context handling.
package middleware

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/mesa-go/internal/model"
	"github.com/olegiv/mesa-go/internal/store"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys for request-scoped data.
const (
	ContextKeyStaffUser   ContextKey = "staff_user"
	ContextKeyRequestPath ContextKey = "request_path"
)

// SessionKeyStaffUserID stores the authenticated staff user's id.
const SessionKeyStaffUserID = "staff_user_id"

// StaffAuth requires an authenticated staff session. Browser requests are
// redirected to the login page; API requests get a JSON 401.
func StaffAuth(sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := sm.GetInt64(r.Context(), SessionKeyStaffUserID)
			if userID == 0 {
				if isAPIRequest(r) {
					writeJSONError(w, http.StatusUnauthorized, "staff authentication required")
					return
				}
				http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoadStaffUser loads the current staff user into the request context.
// Should run after StaffAuth. A stale session (user deleted) is destroyed.
func LoadStaffUser(sm *scs.SessionManager, db *sql.DB) func(http.Handler) http.Handler {
	queries := store.New(db)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := sm.GetInt64(r.Context(), SessionKeyStaffUserID)
			if userID == 0 {
				next.ServeHTTP(w, r)
				return
			}

			user, err := queries.GetStaffUserByID(r.Context(), userID)
			if err != nil {
				_ = sm.Destroy(r.Context())
				if isAPIRequest(r) {
					writeJSONError(w, http.StatusUnauthorized, "staff authentication required")
					return
				}
				http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyStaffUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetStaffUser retrieves the current staff user from the request context.
// Returns nil if no staff user is in context.
func GetStaffUser(r *http.Request) *model.StaffUser {
	user, ok := r.Context().Value(ContextKeyStaffUser).(model.StaffUser)
	if !ok {
		return nil
	}
	return &user
}

// GetStaffUserID returns the current staff user's id, or 0 if not found.
func GetStaffUserID(r *http.Request) int64 {
	if user := GetStaffUser(r); user != nil {
		return user.ID
	}
	return 0
}

// roleLevel returns a numeric level for the role hierarchy.
// Higher level = more permissions.
func roleLevel(role string) int {
	switch role {
	case model.RoleManager:
		return 2
	case model.RoleServer:
		return 1
	default:
		return 0
	}
}

// RequireRole requires a minimum staff role. Roles are hierarchical:
// manager > server, so RequireRole(model.RoleServer) admits both.
func RequireRole(minRole string) func(http.Handler) http.Handler {
	minLevel := roleLevel(minRole)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetStaffUser(r)
			if user == nil {
				if isAPIRequest(r) {
					writeJSONError(w, http.StatusUnauthorized, "staff authentication required")
					return
				}
				http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
				return
			}

			if roleLevel(user.Role) < minLevel {
				slog.Warn("access denied",
					"status", http.StatusForbidden,
					"method", r.Method,
					"path", r.URL.Path,
					"user_id", user.ID,
					"user_role", user.Role,
					"required_role", minRole,
					"remote_addr", r.RemoteAddr,
				)
				if isAPIRequest(r) {
					writeJSONError(w, http.StatusForbidden, "insufficient permissions")
					return
				}
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireManager requires the manager role.
func RequireManager() func(http.Handler) http.Handler {
	return RequireRole(model.RoleManager)
}

// RequestPath stores the request path in the context so the audit log
// handler can include the URL in error entries.
func RequestPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ContextKeyRequestPath, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestPath retrieves the request path from the context.
func GetRequestPath(ctx context.Context) string {
	path, ok := ctx.Value(ContextKeyRequestPath).(string)
	if !ok {
		return ""
	}
	return path
}

func isAPIRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/admin/api/")
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
