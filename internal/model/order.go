// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the domain types shared across the application:
// menu items, orders, order events and their status vocabulary.
package model

import "time"

// Order statuses. Transitions run pending → confirmed → preparing → ready →
// completed; cancelled is reachable from any non-terminal status.
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// OrderStatuses lists all valid statuses in display order.
var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// statusLabels maps a status to its human-readable label.
var statusLabels = map[string]string{
	OrderStatusPending:   "Order received",
	OrderStatusConfirmed: "Confirmed by kitchen",
	OrderStatusPreparing: "Being prepared",
	OrderStatusReady:     "Ready for pickup",
	OrderStatusCompleted: "Completed",
	OrderStatusCancelled: "Cancelled",
}

// StatusText returns the human-readable label for a status.
// Unknown statuses are returned as-is so free-form statuses from the publish
// endpoint still render something sensible.
func StatusText(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return status
}

// IsValidStatus reports whether status is one of the known order statuses.
func IsValidStatus(status string) bool {
	_, ok := statusLabels[status]
	return ok
}

// IsTerminalStatus reports whether no further transitions are allowed.
func IsTerminalStatus(status string) bool {
	return status == OrderStatusCompleted || status == OrderStatusCancelled
}

// Order represents a customer order.
type Order struct {
	ID            int64
	Reference     string // public UUID reference printed on receipts
	CustomerName  string
	CustomerEmail string
	Status        string
	TotalCents    int64
	Note          string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OrderItem is a single line of an order. PriceCents is captured at order
// time so later menu edits don't rewrite history.
type OrderItem struct {
	ID         int64
	OrderID    int64
	MenuItemID int64
	Name       string
	Quantity   int64
	PriceCents int64
}

// Subtotal returns the line total in cents.
func (i OrderItem) Subtotal() int64 {
	return i.PriceCents * i.Quantity
}
