// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package notify

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/olegiv/mesa-go/internal/model"
	"github.com/olegiv/mesa-go/internal/store"
)

// snapshotDateFormat is the customer-facing order date format.
const snapshotDateFormat = "Jan 2, 2006 15:04"

// Publisher appends order events to the log and regenerates the affected
// order's snapshot. Emission is best-effort: a failed snapshot rebuild
// degrades to a minimal snapshot rather than failing the caller, and callers
// are expected to treat Emit errors as log-and-continue.
type Publisher struct {
	queries   *store.Queries
	log       *Log
	snapshots *SnapshotStore
}

// NewPublisher creates a Publisher over the given database and stores.
func NewPublisher(db *sql.DB, log *Log, snapshots *SnapshotStore) *Publisher {
	return &Publisher{
		queries:   store.New(db),
		log:       log,
		snapshots: snapshots,
	}
}

// Emit appends an event for the order and rebuilds its snapshot.
// The status string is not validated here; validation happens upstream so
// the publish endpoint can carry free-form statuses through unchanged.
func (p *Publisher) Emit(ctx context.Context, orderID int64, status, eventType string) (model.EventRecord, error) {
	if eventType == "" {
		eventType = model.EventTypeStatusChange
	}

	rec, err := p.log.Append(orderID, status, eventType)
	if err != nil {
		return model.EventRecord{}, err
	}

	snap, err := p.BuildSnapshot(ctx, orderID, status)
	if err != nil {
		// Source-of-truth lookup failed: write a degraded snapshot so
		// subscribers still see the status move.
		slog.Warn("snapshot rebuild degraded", "order_id", orderID, "error", err)
		snap = model.OrderSnapshot{
			OrderID:    orderID,
			Status:     status,
			StatusText: model.StatusText(status),
			UpdatedAt:  rec.Timestamp,
			Degraded:   true,
		}
	}

	if err := p.snapshots.Write(snap); err != nil {
		// The event is already in the log; a stale snapshot is tolerated
		// and will be corrected by the next emit for this order.
		slog.Error("failed to write order snapshot", "order_id", orderID, "error", err)
	}

	return rec, nil
}

// BuildSnapshot assembles the denormalized projection of an order from the
// database, enriched with line subtotals, the order total, the human status
// label and a formatted date. The status argument wins over the stored row
// so the snapshot always reflects the most recent publish call.
func (p *Publisher) BuildSnapshot(ctx context.Context, orderID int64, status string) (model.OrderSnapshot, error) {
	order, err := p.queries.GetOrderByID(ctx, orderID)
	if err != nil {
		return model.OrderSnapshot{}, err
	}

	items, err := p.queries.ListOrderItems(ctx, orderID)
	if err != nil {
		return model.OrderSnapshot{}, err
	}

	snap := model.OrderSnapshot{
		OrderID:       order.ID,
		Status:        status,
		StatusText:    model.StatusText(status),
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		FormattedDate: order.CreatedAt.Format(snapshotDateFormat),
		UpdatedAt:     time.Now().Unix(),
	}

	var total int64
	for _, item := range items {
		subtotal := item.Subtotal()
		total += subtotal
		snap.Items = append(snap.Items, model.SnapshotItem{
			ItemID:    item.MenuItemID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			PriceEach: item.PriceCents,
			Subtotal:  subtotal,
		})
	}
	snap.TotalCents = total

	return snap, nil
}
