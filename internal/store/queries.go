// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/olegiv/mesa-go/internal/model"
)

// DBTX is the subset of database/sql used by Queries, so queries can run
// against either a *sql.DB or a *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries provides typed access to the database.
type Queries struct {
	db DBTX
}

// New creates a Queries instance bound to the given database or transaction.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries instance bound to the given transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// =============================================================================
// STAFF USERS
// =============================================================================

// CreateStaffUserParams holds the fields for creating a staff user.
type CreateStaffUserParams struct {
	Email        string
	Name         string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const createStaffUser = `
INSERT INTO staff_users (email, name, password_hash, role, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, email, name, password_hash, role, created_at, updated_at`

// CreateStaffUser inserts a new staff user and returns the created row.
func (q *Queries) CreateStaffUser(ctx context.Context, arg CreateStaffUserParams) (model.StaffUser, error) {
	row := q.db.QueryRowContext(ctx, createStaffUser,
		arg.Email, arg.Name, arg.PasswordHash, arg.Role, arg.CreatedAt, arg.UpdatedAt)
	return scanStaffUser(row)
}

const getStaffUserByEmail = `
SELECT id, email, name, password_hash, role, created_at, updated_at
FROM staff_users WHERE email = ?`

// GetStaffUserByEmail looks up a staff user by email address.
func (q *Queries) GetStaffUserByEmail(ctx context.Context, email string) (model.StaffUser, error) {
	return scanStaffUser(q.db.QueryRowContext(ctx, getStaffUserByEmail, email))
}

const getStaffUserByID = `
SELECT id, email, name, password_hash, role, created_at, updated_at
FROM staff_users WHERE id = ?`

// GetStaffUserByID looks up a staff user by primary key.
func (q *Queries) GetStaffUserByID(ctx context.Context, id int64) (model.StaffUser, error) {
	return scanStaffUser(q.db.QueryRowContext(ctx, getStaffUserByID, id))
}

func scanStaffUser(row *sql.Row) (model.StaffUser, error) {
	var u model.StaffUser
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// =============================================================================
// MENU ITEMS
// =============================================================================

// CreateMenuItemParams holds the fields for creating a menu item.
type CreateMenuItemParams struct {
	Name        string
	Description string
	Category    string
	PriceCents  int64
	Active      bool
	SortOrder   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const createMenuItem = `
INSERT INTO menu_items (name, description, category, price_cents, active, sort_order, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, name, description, category, price_cents, active, sort_order, created_at, updated_at`

// CreateMenuItem inserts a new menu item and returns the created row.
func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (model.MenuItem, error) {
	row := q.db.QueryRowContext(ctx, createMenuItem,
		arg.Name, arg.Description, arg.Category, arg.PriceCents, arg.Active, arg.SortOrder,
		arg.CreatedAt, arg.UpdatedAt)
	return scanMenuItemRow(row)
}

const getMenuItemByID = `
SELECT id, name, description, category, price_cents, active, sort_order, created_at, updated_at
FROM menu_items WHERE id = ?`

// GetMenuItemByID looks up a menu item by primary key.
func (q *Queries) GetMenuItemByID(ctx context.Context, id int64) (model.MenuItem, error) {
	return scanMenuItemRow(q.db.QueryRowContext(ctx, getMenuItemByID, id))
}

const listMenuItems = `
SELECT id, name, description, category, price_cents, active, sort_order, created_at, updated_at
FROM menu_items ORDER BY sort_order, name`

// ListMenuItems returns all menu items, including inactive ones.
func (q *Queries) ListMenuItems(ctx context.Context) ([]model.MenuItem, error) {
	rows, err := q.db.QueryContext(ctx, listMenuItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMenuItems(rows)
}

const listActiveMenuItems = `
SELECT id, name, description, category, price_cents, active, sort_order, created_at, updated_at
FROM menu_items WHERE active = 1 ORDER BY sort_order, name`

// ListActiveMenuItems returns menu items visible to customers.
func (q *Queries) ListActiveMenuItems(ctx context.Context) ([]model.MenuItem, error) {
	rows, err := q.db.QueryContext(ctx, listActiveMenuItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMenuItems(rows)
}

// UpdateMenuItemParams holds the fields for updating a menu item.
type UpdateMenuItemParams struct {
	ID          int64
	Name        string
	Description string
	Category    string
	PriceCents  int64
	Active      bool
	SortOrder   int64
	UpdatedAt   time.Time
}

const updateMenuItem = `
UPDATE menu_items
SET name = ?, description = ?, category = ?, price_cents = ?, active = ?, sort_order = ?, updated_at = ?
WHERE id = ?
RETURNING id, name, description, category, price_cents, active, sort_order, created_at, updated_at`

// UpdateMenuItem updates a menu item and returns the updated row.
func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (model.MenuItem, error) {
	row := q.db.QueryRowContext(ctx, updateMenuItem,
		arg.Name, arg.Description, arg.Category, arg.PriceCents, arg.Active, arg.SortOrder,
		arg.UpdatedAt, arg.ID)
	return scanMenuItemRow(row)
}

const deleteMenuItem = `DELETE FROM menu_items WHERE id = ?`

// DeleteMenuItem removes a menu item.
func (q *Queries) DeleteMenuItem(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteMenuItem, id)
	return err
}

func scanMenuItemRow(row *sql.Row) (model.MenuItem, error) {
	var m model.MenuItem
	err := row.Scan(&m.ID, &m.Name, &m.Description, &m.Category, &m.PriceCents,
		&m.Active, &m.SortOrder, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func collectMenuItems(rows *sql.Rows) ([]model.MenuItem, error) {
	var items []model.MenuItem
	for rows.Next() {
		var m model.MenuItem
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.Category, &m.PriceCents,
			&m.Active, &m.SortOrder, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// =============================================================================
// ORDERS
// =============================================================================

// CreateOrderParams holds the fields for creating an order.
type CreateOrderParams struct {
	Reference     string
	CustomerName  string
	CustomerEmail string
	Status        string
	TotalCents    int64
	Note          string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

const createOrder = `
INSERT INTO orders (reference, customer_name, customer_email, status, total_cents, note, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, reference, customer_name, customer_email, status, total_cents, note, created_at, updated_at`

// CreateOrder inserts a new order and returns the created row.
func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (model.Order, error) {
	row := q.db.QueryRowContext(ctx, createOrder,
		arg.Reference, arg.CustomerName, arg.CustomerEmail, arg.Status, arg.TotalCents,
		arg.Note, arg.CreatedAt, arg.UpdatedAt)
	return scanOrderRow(row)
}

const getOrderByID = `
SELECT id, reference, customer_name, customer_email, status, total_cents, note, created_at, updated_at
FROM orders WHERE id = ?`

// GetOrderByID looks up an order by primary key.
func (q *Queries) GetOrderByID(ctx context.Context, id int64) (model.Order, error) {
	return scanOrderRow(q.db.QueryRowContext(ctx, getOrderByID, id))
}

const getOrderByReference = `
SELECT id, reference, customer_name, customer_email, status, total_cents, note, created_at, updated_at
FROM orders WHERE reference = ?`

// GetOrderByReference looks up an order by its public reference code.
func (q *Queries) GetOrderByReference(ctx context.Context, reference string) (model.Order, error) {
	return scanOrderRow(q.db.QueryRowContext(ctx, getOrderByReference, reference))
}

const listOrders = `
SELECT id, reference, customer_name, customer_email, status, total_cents, note, created_at, updated_at
FROM orders ORDER BY created_at DESC LIMIT ? OFFSET ?`

// ListOrdersParams holds pagination for listing orders.
type ListOrdersParams struct {
	Limit  int64
	Offset int64
}

// ListOrders returns orders newest first.
func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]model.Order, error) {
	rows, err := q.db.QueryContext(ctx, listOrders, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

const listOrdersByStatus = `
SELECT id, reference, customer_name, customer_email, status, total_cents, note, created_at, updated_at
FROM orders WHERE status = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`

// ListOrdersByStatusParams holds the filter and pagination for listing orders by status.
type ListOrdersByStatusParams struct {
	Status string
	Limit  int64
	Offset int64
}

// ListOrdersByStatus returns orders in the given status, newest first.
func (q *Queries) ListOrdersByStatus(ctx context.Context, arg ListOrdersByStatusParams) ([]model.Order, error) {
	rows, err := q.db.QueryContext(ctx, listOrdersByStatus, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

const countOrders = `SELECT COUNT(*) FROM orders`

// CountOrders returns the total number of orders.
func (q *Queries) CountOrders(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countOrders).Scan(&n)
	return n, err
}

// UpdateOrderStatusParams holds the fields for an order status update.
type UpdateOrderStatusParams struct {
	ID        int64
	Status    string
	UpdatedAt time.Time
}

const updateOrderStatus = `
UPDATE orders SET status = ?, updated_at = ? WHERE id = ?
RETURNING id, reference, customer_name, customer_email, status, total_cents, note, created_at, updated_at`

// UpdateOrderStatus sets an order's status and returns the updated row.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (model.Order, error) {
	row := q.db.QueryRowContext(ctx, updateOrderStatus, arg.Status, arg.UpdatedAt, arg.ID)
	return scanOrderRow(row)
}

func scanOrderRow(row *sql.Row) (model.Order, error) {
	var o model.Order
	err := row.Scan(&o.ID, &o.Reference, &o.CustomerName, &o.CustomerEmail, &o.Status,
		&o.TotalCents, &o.Note, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func collectOrders(rows *sql.Rows) ([]model.Order, error) {
	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.Reference, &o.CustomerName, &o.CustomerEmail, &o.Status,
			&o.TotalCents, &o.Note, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// =============================================================================
// ORDER ITEMS
// =============================================================================

// CreateOrderItemParams holds the fields for creating an order line.
type CreateOrderItemParams struct {
	OrderID    int64
	MenuItemID int64
	Name       string
	Quantity   int64
	PriceCents int64
}

const createOrderItem = `
INSERT INTO order_items (order_id, menu_item_id, name, quantity, price_cents)
VALUES (?, ?, ?, ?, ?)
RETURNING id, order_id, menu_item_id, name, quantity, price_cents`

// CreateOrderItem inserts one order line and returns the created row.
func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (model.OrderItem, error) {
	row := q.db.QueryRowContext(ctx, createOrderItem,
		arg.OrderID, arg.MenuItemID, arg.Name, arg.Quantity, arg.PriceCents)
	var i model.OrderItem
	err := row.Scan(&i.ID, &i.OrderID, &i.MenuItemID, &i.Name, &i.Quantity, &i.PriceCents)
	return i, err
}

const listOrderItems = `
SELECT id, order_id, menu_item_id, name, quantity, price_cents
FROM order_items WHERE order_id = ? ORDER BY id`

// ListOrderItems returns the lines of an order.
func (q *Queries) ListOrderItems(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	rows, err := q.db.QueryContext(ctx, listOrderItems, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var i model.OrderItem
		if err := rows.Scan(&i.ID, &i.OrderID, &i.MenuItemID, &i.Name, &i.Quantity, &i.PriceCents); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// =============================================================================
// SETTINGS
// =============================================================================

const getSetting = `SELECT value FROM settings WHERE key = ?`

// GetSetting returns the value for a settings key.
func (q *Queries) GetSetting(ctx context.Context, key string) (string, error) {
	var v string
	err := q.db.QueryRowContext(ctx, getSetting, key).Scan(&v)
	return v, err
}

const upsertSetting = `
INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// UpsertSetting creates or replaces a settings key.
func (q *Queries) UpsertSetting(ctx context.Context, key, value string, updatedAt time.Time) error {
	_, err := q.db.ExecContext(ctx, upsertSetting, key, value, updatedAt)
	return err
}

const listSettings = `SELECT key, value FROM settings ORDER BY key`

// ListSettings returns all settings as a key/value map.
func (q *Queries) ListSettings(ctx context.Context) (map[string]string, error) {
	rows, err := q.db.QueryContext(ctx, listSettings)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		settings[k] = v
	}
	return settings, rows.Err()
}

// =============================================================================
// AUDIT LOG
// =============================================================================

// CreateAuditEntryParams holds the fields for one audit log row.
type CreateAuditEntryParams struct {
	Level     string
	Category  string
	Message   string
	UserID    sql.NullInt64
	Metadata  string
	CreatedAt time.Time
}

const createAuditEntry = `
INSERT INTO audit_log (level, category, message, user_id, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, level, category, message, user_id, metadata, created_at`

// CreateAuditEntry inserts an audit log row and returns it.
func (q *Queries) CreateAuditEntry(ctx context.Context, arg CreateAuditEntryParams) (model.AuditEntry, error) {
	row := q.db.QueryRowContext(ctx, createAuditEntry,
		arg.Level, arg.Category, arg.Message, arg.UserID, arg.Metadata, arg.CreatedAt)
	var e model.AuditEntry
	err := row.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &e.UserID, &e.Metadata, &e.CreatedAt)
	return e, err
}

// ListAuditEntriesParams holds pagination for the audit log.
type ListAuditEntriesParams struct {
	Limit  int64
	Offset int64
}

const listAuditEntries = `
SELECT id, level, category, message, user_id, metadata, created_at
FROM audit_log ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`

// ListAuditEntries returns audit log rows, newest first.
func (q *Queries) ListAuditEntries(ctx context.Context, arg ListAuditEntriesParams) ([]model.AuditEntry, error) {
	rows, err := q.db.QueryContext(ctx, listAuditEntries, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &e.UserID, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

const countAuditEntries = `SELECT COUNT(*) FROM audit_log`

// CountAuditEntries returns the total number of audit log rows.
func (q *Queries) CountAuditEntries(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countAuditEntries).Scan(&n)
	return n, err
}

const deleteOldAuditEntries = `DELETE FROM audit_log WHERE created_at < ?`

// DeleteOldAuditEntries removes audit log rows older than the cutoff.
func (q *Queries) DeleteOldAuditEntries(ctx context.Context, cutoff time.Time) error {
	_, err := q.db.ExecContext(ctx, deleteOldAuditEntries, cutoff)
	return err
}
