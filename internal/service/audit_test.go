// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/mesa-go/internal/model"
	"github.com/olegiv/mesa-go/internal/store"
	"github.com/olegiv/mesa-go/internal/testutil"
)

func TestAuditServiceLog(t *testing.T) {
	db := testutil.TestDB(t)
	svc := NewAuditService(db)
	queries := store.New(db)
	ctx := context.Background()

	userID := int64(3)
	err := svc.LogOrder(ctx, model.AuditLevelInfo, "order placed", &userID, map[string]any{
		"order_id": 7,
	})
	require.NoError(t, err)

	entries, err := queries.ListAuditEntries(ctx, store.ListAuditEntriesParams{Limit: 10, Offset: 0})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, model.AuditCategoryOrder, entry.Category)
	assert.Equal(t, "order placed", entry.Message)
	assert.True(t, entry.UserID.Valid)
	assert.Equal(t, int64(3), entry.UserID.Int64)
	assert.Contains(t, entry.Metadata, `"order_id":7`)
}

func TestAuditServiceNilMetadataAndUser(t *testing.T) {
	db := testutil.TestDB(t)
	svc := NewAuditService(db)
	queries := store.New(db)
	ctx := context.Background()

	require.NoError(t, svc.LogSystem(ctx, model.AuditLevelWarning, "disk almost full", nil))

	entries, err := queries.ListAuditEntries(ctx, store.ListAuditEntriesParams{Limit: 10, Offset: 0})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].UserID.Valid)
	assert.Equal(t, "{}", entries[0].Metadata)
}

func TestAuditServiceDeleteOldEntries(t *testing.T) {
	db := testutil.TestDB(t)
	svc := NewAuditService(db)
	queries := store.New(db)
	ctx := context.Background()

	require.NoError(t, svc.LogSystem(ctx, model.AuditLevelInfo, "startup", nil))

	// Entries younger than the retention window survive.
	require.NoError(t, svc.DeleteOldEntries(ctx, time.Hour))
	count, err := queries.CountAuditEntries(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, svc.DeleteOldEntries(ctx, -time.Hour))
	count, err = queries.CountAuditEntries(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
