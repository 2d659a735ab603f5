// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/olegiv/mesa-go/internal/model"
)

func withStaffUser(r *http.Request, user model.StaffUser) *http.Request {
	ctx := context.WithValue(r.Context(), ContextKeyStaffUser, user)
	return r.WithContext(ctx)
}

func okHandler() (http.Handler, *bool) {
	called := false
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}), &called
}

func TestRequireRoleHierarchy(t *testing.T) {
	tests := []struct {
		name       string
		userRole   string
		minRole    string
		wantStatus int
	}{
		{"manager passes manager gate", model.RoleManager, model.RoleManager, http.StatusOK},
		{"manager passes server gate", model.RoleManager, model.RoleServer, http.StatusOK},
		{"server passes server gate", model.RoleServer, model.RoleServer, http.StatusOK},
		{"server blocked at manager gate", model.RoleServer, model.RoleManager, http.StatusForbidden},
		{"unknown role blocked", "intern", model.RoleServer, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, called := okHandler()
			handler := RequireRole(tt.minRole)(next)

			r := httptest.NewRequest(http.MethodGet, "/admin/settings", nil)
			r = withStaffUser(r, model.StaffUser{ID: 1, Role: tt.userRole})
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantStatus == http.StatusOK, *called)
		})
	}
}

func TestRequireRoleRedirectsAnonymousBrowser(t *testing.T) {
	next, called := okHandler()
	handler := RequireManager()(next)

	r := httptest.NewRequest(http.MethodGet, "/admin/settings", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/admin/login", w.Header().Get("Location"))
	assert.False(t, *called)
}

func TestRequireRoleReturnsJSONForAPIRequests(t *testing.T) {
	next, _ := okHandler()
	handler := RequireManager()(next)

	r := httptest.NewRequest(http.MethodPost, "/admin/api/events", nil)
	r = withStaffUser(r, model.StaffUser{ID: 2, Role: model.RoleServer})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "insufficient permissions")
}

func TestGetStaffUser(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, GetStaffUser(r))
	assert.Zero(t, GetStaffUserID(r))

	r = withStaffUser(r, model.StaffUser{ID: 42, Email: "chef@example.com"})
	user := GetStaffUser(r)
	assert.NotNil(t, user)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, int64(42), GetStaffUserID(r))
}

func TestRequestPath(t *testing.T) {
	var got string
	handler := RequestPath(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetRequestPath(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/orders/7", nil)
	handler.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, "/api/orders/7", got)
}
