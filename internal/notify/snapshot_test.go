// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/mesa-go/internal/model"
)

func TestSnapshotStoreRoundTrip(t *testing.T) {
	s, err := NewSnapshotStore(t.TempDir())
	require.NoError(t, err)

	snap := model.OrderSnapshot{
		OrderID:    42,
		Status:     model.OrderStatusReady,
		StatusText: model.StatusText(model.OrderStatusReady),
		Items: []model.SnapshotItem{
			{ItemID: 1, Name: "Carbonara", Quantity: 2, PriceEach: 1450, Subtotal: 2900},
		},
		TotalCents:   2900,
		CustomerName: "Ada",
		UpdatedAt:    1700000000,
	}
	require.NoError(t, s.Write(snap))

	got, err := s.Read(42)
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestSnapshotStoreOverwriteLastWriteWins(t *testing.T) {
	s, err := NewSnapshotStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Write(model.OrderSnapshot{OrderID: 7, Status: model.OrderStatusPending}))
	require.NoError(t, s.Write(model.OrderSnapshot{OrderID: 7, Status: model.OrderStatusReady}))

	got, err := s.Read(7)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusReady, got.Status)
}

func TestSnapshotStoreMissing(t *testing.T) {
	s, err := NewSnapshotStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Read(999)
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestSnapshotStoreStats(t *testing.T) {
	s, err := NewSnapshotStore(t.TempDir())
	require.NoError(t, err)

	count, bytes, err := s.Stats()
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, bytes)

	require.NoError(t, s.Write(model.OrderSnapshot{OrderID: 1, Status: model.OrderStatusPending}))
	require.NoError(t, s.Write(model.OrderSnapshot{OrderID: 2, Status: model.OrderStatusReady}))

	count, bytes, err = s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Positive(t, bytes)
}
