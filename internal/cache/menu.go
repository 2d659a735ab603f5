// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"time"

	"github.com/olegiv/mesa-go/internal/model"
	"github.com/olegiv/mesa-go/internal/store"
)

// menuTTL bounds how stale the customer menu may get when an invalidation
// is missed (another process, direct DB edit).
const menuTTL = 30 * time.Second

const menuKey = "menu:active"

// MenuCache caches the active menu item list. The customer menu is read on
// every page load and by polling fallback clients, but changes only when
// staff edit it, so mutations invalidate explicitly.
type MenuCache struct {
	queries *store.Queries
	cache   *SimpleCache
}

// NewMenuCache creates a menu cache over the given queries.
func NewMenuCache(queries *store.Queries) *MenuCache {
	return &MenuCache{
		queries: queries,
		cache:   New(menuTTL),
	}
}

// ActiveItems returns the active menu items, from cache when fresh.
func (m *MenuCache) ActiveItems(ctx context.Context) ([]model.MenuItem, error) {
	if cached, ok := m.cache.Get(menuKey); ok {
		return cached.([]model.MenuItem), nil
	}

	items, err := m.queries.ListActiveMenuItems(ctx)
	if err != nil {
		return nil, err
	}
	m.cache.Set(menuKey, items)
	return items, nil
}

// Invalidate drops the cached menu. Called after any menu mutation.
func (m *MenuCache) Invalidate() {
	m.cache.Delete(menuKey)
}
