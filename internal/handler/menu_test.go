// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/mesa-go/internal/model"
)

func TestMenuListShowsOnlyActiveItems(t *testing.T) {
	f := newFixture(t)
	f.addMenuItem("Tortilla", "Tapas", 650, true)
	f.addMenuItem("Seasonal Special", "Tapas", 900, false)

	status, body := f.do(http.MethodGet, "/api/menu", nil)
	require.Equal(t, http.StatusOK, status)

	items := body["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Tortilla", items[0].(map[string]any)["name"])
}

func TestMenuAdminListIncludesInactive(t *testing.T) {
	f := newFixture(t)
	f.addMenuItem("Tortilla", "Tapas", 650, true)
	f.addMenuItem("Seasonal Special", "Tapas", 900, false)
	f.createStaff("chef@example.com", "kitchen-secret-1", model.RoleServer)
	f.login("chef@example.com", "kitchen-secret-1")

	status, body := f.do(http.MethodGet, "/admin/api/menu", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["items"].([]any), 2)
}

func TestMenuCreateUpdateDelete(t *testing.T) {
	f := newFixture(t)
	f.createStaff("chef@example.com", "kitchen-secret-1", model.RoleManager)
	f.login("chef@example.com", "kitchen-secret-1")

	status, body := f.do(http.MethodPost, "/admin/api/menu", map[string]any{
		"name":        "Gazpacho",
		"category":    "Starters",
		"price_cents": 550,
		"active":      true,
	})
	require.Equal(t, http.StatusCreated, status)
	item := body["item"].(map[string]any)
	id := int64(item["id"].(float64))
	assert.Equal(t, "Gazpacho", item["name"])

	status, body = f.do(http.MethodPut, fmt.Sprintf("/admin/api/menu/%d", id), map[string]any{
		"name":        "Gazpacho Andaluz",
		"category":    "Starters",
		"price_cents": 600,
		"active":      false,
	})
	require.Equal(t, http.StatusOK, status)
	item = body["item"].(map[string]any)
	assert.Equal(t, "Gazpacho Andaluz", item["name"])
	assert.Equal(t, false, item["active"])

	status, _ = f.do(http.MethodDelete, fmt.Sprintf("/admin/api/menu/%d", id), nil)
	require.Equal(t, http.StatusOK, status)

	status, body = f.do(http.MethodGet, "/admin/api/menu", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["items"])
}

func TestMenuCreateValidation(t *testing.T) {
	f := newFixture(t)
	f.createStaff("chef@example.com", "kitchen-secret-1", model.RoleManager)
	f.login("chef@example.com", "kitchen-secret-1")

	tests := []struct {
		name string
		req  map[string]any
	}{
		{"missing name", map[string]any{"category": "Tapas", "price_cents": 100}},
		{"missing category", map[string]any{"name": "Olives", "price_cents": 100}},
		{"negative price", map[string]any{"name": "Olives", "category": "Tapas", "price_cents": -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := f.do(http.MethodPost, "/admin/api/menu", tt.req)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, false, body["success"])
		})
	}
}

func TestMenuUpdateMissingItem(t *testing.T) {
	f := newFixture(t)
	f.createStaff("chef@example.com", "kitchen-secret-1", model.RoleManager)
	f.login("chef@example.com", "kitchen-secret-1")

	status, _ := f.do(http.MethodPut, "/admin/api/menu/9999", map[string]any{
		"name":        "Ghost Dish",
		"category":    "Nowhere",
		"price_cents": 100,
	})
	assert.Equal(t, http.StatusNotFound, status)
}
