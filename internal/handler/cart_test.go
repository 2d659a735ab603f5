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

func TestCartAddAndGet(t *testing.T) {
	f := newFixture(t)
	item := f.addMenuItem("Patatas Bravas", "Tapas", 450, true)

	status, body := f.do(http.MethodPost, "/api/cart/items", map[string]any{
		"menu_item_id": item.ID,
		"quantity":     2,
	})
	require.Equal(t, http.StatusOK, status)

	lines := body["items"].([]any)
	require.Len(t, lines, 1)
	line := lines[0].(map[string]any)
	assert.Equal(t, float64(2), line["quantity"])
	assert.Equal(t, float64(900), line["subtotal"])
	assert.Equal(t, float64(900), body["total_cents"])

	// The cart rides on the session cookie.
	status, body = f.do(http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["items"].([]any), 1)
}

func TestCartAddMergesQuantities(t *testing.T) {
	f := newFixture(t)
	item := f.addMenuItem("Patatas Bravas", "Tapas", 450, true)

	for i := 0; i < 2; i++ {
		status, _ := f.do(http.MethodPost, "/api/cart/items", map[string]any{
			"menu_item_id": item.ID,
			"quantity":     1,
		})
		require.Equal(t, http.StatusOK, status)
	}

	_, body := f.do(http.MethodGet, "/api/cart", nil)
	lines := body["items"].([]any)
	require.Len(t, lines, 1)
	assert.Equal(t, float64(2), lines[0].(map[string]any)["quantity"])
}

func TestCartRejectsUnknownAndInactiveItems(t *testing.T) {
	f := newFixture(t)
	inactive := f.addMenuItem("Off Menu", "Tapas", 450, false)

	status, _ := f.do(http.MethodPost, "/api/cart/items", map[string]any{
		"menu_item_id": 9999,
		"quantity":     1,
	})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = f.do(http.MethodPost, "/api/cart/items", map[string]any{
		"menu_item_id": inactive.ID,
		"quantity":     1,
	})
	assert.Equal(t, http.StatusConflict, status)
}

func TestCartUpdateAndRemove(t *testing.T) {
	f := newFixture(t)
	item := f.addMenuItem("Croquetas", "Tapas", 700, true)

	_, _ = f.do(http.MethodPost, "/api/cart/items", map[string]any{
		"menu_item_id": item.ID,
		"quantity":     1,
	})

	status, body := f.do(http.MethodPut, fmt.Sprintf("/api/cart/items/%d", item.ID), map[string]any{
		"quantity": 3,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2100), body["total_cents"])

	// Quantity zero removes the line.
	status, body = f.do(http.MethodPut, fmt.Sprintf("/api/cart/items/%d", item.ID), map[string]any{
		"quantity": 0,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["items"])

	status, _ = f.do(http.MethodPut, fmt.Sprintf("/api/cart/items/%d", item.ID), map[string]any{
		"quantity": 1,
	})
	assert.Equal(t, http.StatusNotFound, status, "updating an absent line")
}

func TestCartDropsVanishedItems(t *testing.T) {
	f := newFixture(t)
	item := f.addMenuItem("Croquetas", "Tapas", 700, true)

	_, _ = f.do(http.MethodPost, "/api/cart/items", map[string]any{
		"menu_item_id": item.ID,
		"quantity":     1,
	})

	f.createStaff("chef@example.com", "kitchen-secret-1", model.RoleManager)
	f.login("chef@example.com", "kitchen-secret-1")
	status, _ := f.do(http.MethodDelete, fmt.Sprintf("/admin/api/menu/%d", item.ID), nil)
	require.Equal(t, http.StatusOK, status)

	status, body := f.do(http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["items"])
	assert.Equal(t, float64(0), body["total_cents"])
}

func TestCartClear(t *testing.T) {
	f := newFixture(t)
	item := f.addMenuItem("Croquetas", "Tapas", 700, true)

	_, _ = f.do(http.MethodPost, "/api/cart/items", map[string]any{
		"menu_item_id": item.ID,
		"quantity":     2,
	})

	status, body := f.do(http.MethodDelete, "/api/cart", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["items"])
}
