// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/mesa-go/internal/store"
	"github.com/olegiv/mesa-go/internal/testutil"
)

func TestSimpleCacheSetGet(t *testing.T) {
	c := New(time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("key", "value")
	got, ok := c.Get("key")
	require.True(t, ok)
	assert.Equal(t, "value", got)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestSimpleCacheExpiry(t *testing.T) {
	c := New(10 * time.Millisecond)
	c.Set("key", "value")

	time.Sleep(20 * time.Millisecond)
	_, ok := c.Get("key")
	assert.False(t, ok)
}

func TestSimpleCacheDeleteAndClear(t *testing.T) {
	c := New(time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Clear()
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestMenuCacheServesFromCacheUntilInvalidated(t *testing.T) {
	db := testutil.TestDB(t)
	queries := store.New(db)
	ctx := context.Background()

	now := time.Now()
	_, err := queries.CreateMenuItem(ctx, store.CreateMenuItemParams{
		Name:       "Tortilla",
		Category:   "Tapas",
		PriceCents: 650,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	require.NoError(t, err)

	m := NewMenuCache(queries)
	items, err := m.ActiveItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)

	// A direct DB write is invisible until invalidation.
	_, err = queries.CreateMenuItem(ctx, store.CreateMenuItemParams{
		Name:       "Gazpacho",
		Category:   "Starters",
		PriceCents: 550,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	require.NoError(t, err)

	items, err = m.ActiveItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	m.Invalidate()
	items, err = m.ActiveItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}
