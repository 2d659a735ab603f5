// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Order event types carried on the notification stream.
const (
	EventTypeStatusChange = "status_change"
	EventTypeNewOrder     = "new_order"
)

// EventRecord is one entry of the bounded order-event log.
// EventID is strictly increasing in insertion order within the log.
type EventRecord struct {
	EventID   int64  `json:"event_id"`
	OrderID   int64  `json:"order_id"`
	Status    string `json:"status"`
	EventType string `json:"event_type"`
	Timestamp int64  `json:"timestamp"`
}

// SnapshotItem is one denormalized order line inside a snapshot.
type SnapshotItem struct {
	ItemID    int64  `json:"item_id"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
	PriceEach int64  `json:"price_each"`
	Subtotal  int64  `json:"subtotal"`
}

// OrderSnapshot is the last-known denormalized projection of one order,
// rebuilt on every relevant event and overwritten in place. It carries no
// history: concurrent writers are last-write-wins.
type OrderSnapshot struct {
	OrderID       int64          `json:"order_id"`
	Status        string         `json:"status"`
	StatusText    string         `json:"status_text"`
	Items         []SnapshotItem `json:"items,omitempty"`
	TotalCents    int64          `json:"total,omitempty"`
	CustomerName  string         `json:"customer_name,omitempty"`
	CustomerEmail string         `json:"customer_email,omitempty"`
	FormattedDate string         `json:"formatted_date,omitempty"`
	UpdatedAt     int64          `json:"updated_at"`
	// Degraded is set when the source-of-truth lookup failed and only the
	// fields known from the triggering event are present.
	Degraded bool `json:"degraded,omitempty"`
}
