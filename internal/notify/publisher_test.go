// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package notify

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/mesa-go/internal/model"
	"github.com/olegiv/mesa-go/internal/store"
	"github.com/olegiv/mesa-go/internal/testutil"
)

func testPublisher(t *testing.T) (*Publisher, *Log, *SnapshotStore, *sql.DB) {
	t.Helper()
	db := testutil.TestDB(t)
	l := testLog(t)
	snaps, err := NewSnapshotStore(t.TempDir())
	require.NoError(t, err)
	return NewPublisher(db, l, snaps), l, snaps, db
}

func createTestOrder(t *testing.T, db *sql.DB) model.Order {
	t.Helper()
	ctx := context.Background()
	queries := store.New(db)
	now := time.Now()

	order, err := queries.CreateOrder(ctx, store.CreateOrderParams{
		Reference:     "test-ref-1",
		CustomerName:  "Ada Lovelace",
		CustomerEmail: "ada@example.com",
		Status:        model.OrderStatusPending,
		TotalCents:    2150,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	require.NoError(t, err)

	_, err = queries.CreateOrderItem(ctx, store.CreateOrderItemParams{
		OrderID: order.ID, MenuItemID: 1, Name: "Margherita Pizza", Quantity: 1, PriceCents: 1250,
	})
	require.NoError(t, err)
	_, err = queries.CreateOrderItem(ctx, store.CreateOrderItemParams{
		OrderID: order.ID, MenuItemID: 3, Name: "Caesar Salad", Quantity: 1, PriceCents: 950,
	})
	require.NoError(t, err)

	return order
}

func TestEmitAppendsEventAndWritesSnapshot(t *testing.T) {
	p, l, snaps, db := testPublisher(t)
	order := createTestOrder(t, db)

	rec, err := p.Emit(context.Background(), order.ID, model.OrderStatusConfirmed, model.EventTypeStatusChange)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.EventID)
	assert.Equal(t, order.ID, rec.OrderID)
	assert.Equal(t, model.OrderStatusConfirmed, rec.Status)
	assert.Equal(t, int64(1), l.LastID())

	snap, err := snaps.Read(order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, snap.Status)
	assert.Equal(t, "Confirmed by kitchen", snap.StatusText)
	assert.Equal(t, "Ada Lovelace", snap.CustomerName)
	assert.False(t, snap.Degraded)

	require.Len(t, snap.Items, 2)
	assert.Equal(t, int64(1250), snap.Items[0].Subtotal)
	assert.Equal(t, int64(2200), snap.TotalCents)
}

func TestEmitDefaultsEventType(t *testing.T) {
	p, _, _, db := testPublisher(t)
	order := createTestOrder(t, db)

	rec, err := p.Emit(context.Background(), order.ID, model.OrderStatusReady, "")
	require.NoError(t, err)
	assert.Equal(t, model.EventTypeStatusChange, rec.EventType)
}

func TestEmitDegradesWhenOrderMissing(t *testing.T) {
	p, l, snaps, _ := testPublisher(t)

	// Order 999 does not exist: emission must still succeed and subscribers
	// must still get a snapshot carrying the status.
	rec, err := p.Emit(context.Background(), 999, model.OrderStatusCancelled, model.EventTypeStatusChange)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.EventID)
	assert.Equal(t, int64(1), l.LastID())

	snap, err := snaps.Read(999)
	require.NoError(t, err)
	assert.True(t, snap.Degraded)
	assert.Equal(t, model.OrderStatusCancelled, snap.Status)
	assert.Equal(t, "Cancelled", snap.StatusText)
	assert.Empty(t, snap.Items)
}

func TestSnapshotReflectsMostRecentEmit(t *testing.T) {
	p, _, snaps, db := testPublisher(t)
	order := createTestOrder(t, db)
	ctx := context.Background()

	for _, status := range []string{
		model.OrderStatusConfirmed,
		model.OrderStatusPreparing,
		model.OrderStatusReady,
	} {
		_, err := p.Emit(ctx, order.ID, status, model.EventTypeStatusChange)
		require.NoError(t, err)
	}

	snap, err := snaps.Read(order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusReady, snap.Status)
}
