// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/mesa-go/internal/model"
	"github.com/olegiv/mesa-go/internal/notify"
	"github.com/olegiv/mesa-go/internal/store"
)

// Order placement errors surfaced to the API layer.
var (
	ErrEmptyOrder       = errors.New("order has no items")
	ErrInvalidQuantity  = errors.New("item quantity must be between 1 and 50")
	ErrItemUnavailable  = errors.New("menu item is unavailable")
	ErrInvalidStatus    = errors.New("invalid order status")
	ErrOrderFinalized   = errors.New("order is already in a terminal status")
	ErrCustomerRequired = errors.New("customer name is required")
)

const maxItemQuantity = 50

// OrderService owns the order lifecycle: placement, status changes,
// and the notification side effects of both.
type OrderService struct {
	db        *sql.DB
	queries   *store.Queries
	publisher *notify.Publisher
	audit     *AuditService
}

// NewOrderService creates a new OrderService.
func NewOrderService(db *sql.DB, publisher *notify.Publisher, audit *AuditService) *OrderService {
	return &OrderService{
		db:        db,
		queries:   store.New(db),
		publisher: publisher,
		audit:     audit,
	}
}

// CartLine is one requested item in an order being placed.
type CartLine struct {
	MenuItemID int64 `json:"menu_item_id"`
	Quantity   int64 `json:"quantity"`
}

// PlaceOrderParams holds the input for placing a new order.
type PlaceOrderParams struct {
	CustomerName  string
	CustomerEmail string
	Note          string
	Lines         []CartLine
}

// PlaceOrder validates the cart against the current menu, creates the order
// and its lines in one transaction, and publishes a new_order event.
// Publishing is best effort: a notification failure never fails the order.
func (s *OrderService) PlaceOrder(ctx context.Context, arg PlaceOrderParams) (model.Order, []model.OrderItem, error) {
	if strings.TrimSpace(arg.CustomerName) == "" {
		return model.Order{}, nil, ErrCustomerRequired
	}
	if len(arg.Lines) == 0 {
		return model.Order{}, nil, ErrEmptyOrder
	}
	for _, line := range arg.Lines {
		if line.Quantity < 1 || line.Quantity > maxItemQuantity {
			return model.Order{}, nil, ErrInvalidQuantity
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Order{}, nil, fmt.Errorf("begin order transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	qtx := s.queries.WithTx(tx)

	// Snapshot names and prices at order time so later menu edits never
	// change what the customer agreed to pay.
	var total int64
	menuItems := make([]model.MenuItem, 0, len(arg.Lines))
	for _, line := range arg.Lines {
		item, err := qtx.GetMenuItemByID(ctx, line.MenuItemID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return model.Order{}, nil, fmt.Errorf("%w: item %d", ErrItemUnavailable, line.MenuItemID)
			}
			return model.Order{}, nil, fmt.Errorf("load menu item %d: %w", line.MenuItemID, err)
		}
		if !item.Active {
			return model.Order{}, nil, fmt.Errorf("%w: %s", ErrItemUnavailable, item.Name)
		}
		menuItems = append(menuItems, item)
		total += item.PriceCents * line.Quantity
	}

	now := time.Now()
	order, err := qtx.CreateOrder(ctx, store.CreateOrderParams{
		Reference:     newOrderReference(),
		CustomerName:  strings.TrimSpace(arg.CustomerName),
		CustomerEmail: strings.TrimSpace(arg.CustomerEmail),
		Status:        model.OrderStatusPending,
		TotalCents:    total,
		Note:          strings.TrimSpace(arg.Note),
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return model.Order{}, nil, fmt.Errorf("create order: %w", err)
	}

	items := make([]model.OrderItem, 0, len(arg.Lines))
	for i, line := range arg.Lines {
		item, err := qtx.CreateOrderItem(ctx, store.CreateOrderItemParams{
			OrderID:    order.ID,
			MenuItemID: menuItems[i].ID,
			Name:       menuItems[i].Name,
			Quantity:   line.Quantity,
			PriceCents: menuItems[i].PriceCents,
		})
		if err != nil {
			return model.Order{}, nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}

	if err := tx.Commit(); err != nil {
		return model.Order{}, nil, fmt.Errorf("commit order: %w", err)
	}

	s.emit(ctx, order.ID, order.Status, model.EventTypeNewOrder)

	_ = s.audit.LogOrder(ctx, model.AuditLevelInfo, "order placed", nil, map[string]any{
		"order_id":    order.ID,
		"reference":   order.Reference,
		"total_cents": order.TotalCents,
		"items":       len(items),
	})

	return order, items, nil
}

// UpdateStatus moves an order to a new status and publishes a status_change
// event. Terminal orders cannot be moved again.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, status string, staffUserID int64) (model.Order, error) {
	if !model.IsValidStatus(status) {
		return model.Order{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	current, err := s.queries.GetOrderByID(ctx, orderID)
	if err != nil {
		return model.Order{}, fmt.Errorf("load order %d: %w", orderID, err)
	}
	if model.IsTerminalStatus(current.Status) {
		return model.Order{}, fmt.Errorf("%w: %s", ErrOrderFinalized, current.Status)
	}

	order, err := s.queries.UpdateOrderStatus(ctx, store.UpdateOrderStatusParams{
		ID:        orderID,
		Status:    status,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		return model.Order{}, fmt.Errorf("update order %d status: %w", orderID, err)
	}

	s.emit(ctx, order.ID, order.Status, model.EventTypeStatusChange)

	_ = s.audit.LogOrder(ctx, model.AuditLevelInfo, "order status changed", &staffUserID, map[string]any{
		"order_id": order.ID,
		"from":     current.Status,
		"to":       order.Status,
	})

	return order, nil
}

// GetOrderWithItems returns an order and its lines by id.
func (s *OrderService) GetOrderWithItems(ctx context.Context, orderID int64) (model.Order, []model.OrderItem, error) {
	order, err := s.queries.GetOrderByID(ctx, orderID)
	if err != nil {
		return model.Order{}, nil, err
	}
	items, err := s.queries.ListOrderItems(ctx, orderID)
	if err != nil {
		return model.Order{}, nil, err
	}
	return order, items, nil
}

// GetOrderByReference returns an order and its lines by public reference.
func (s *OrderService) GetOrderByReference(ctx context.Context, reference string) (model.Order, []model.OrderItem, error) {
	order, err := s.queries.GetOrderByReference(ctx, reference)
	if err != nil {
		return model.Order{}, nil, err
	}
	items, err := s.queries.ListOrderItems(ctx, order.ID)
	if err != nil {
		return model.Order{}, nil, err
	}
	return order, items, nil
}

// ListOrders returns orders newest first, optionally filtered by status.
func (s *OrderService) ListOrders(ctx context.Context, status string, limit, offset int64) ([]model.Order, error) {
	if status != "" {
		if !model.IsValidStatus(status) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
		}
		return s.queries.ListOrdersByStatus(ctx, store.ListOrdersByStatusParams{
			Status: status, Limit: limit, Offset: offset,
		})
	}
	return s.queries.ListOrders(ctx, store.ListOrdersParams{Limit: limit, Offset: offset})
}

// emit publishes a notification and only logs on failure.
func (s *OrderService) emit(ctx context.Context, orderID int64, status, eventType string) {
	if s.publisher == nil {
		return
	}
	if _, err := s.publisher.Emit(ctx, orderID, status, eventType); err != nil {
		slog.Error("order event publish failed",
			"order_id", orderID,
			"status", status,
			"event_type", eventType,
			"error", err,
		)
	}
}

// newOrderReference generates a short public reference like M-3F2A9C1D.
func newOrderReference() string {
	id := uuid.New()
	return "M-" + strings.ToUpper(id.String()[:8])
}
