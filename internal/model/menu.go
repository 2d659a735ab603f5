// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// MenuItem represents a dish on the restaurant menu.
// Prices are stored in integer cents to keep cart arithmetic exact.
type MenuItem struct {
	ID          int64
	Name        string
	Description string
	Category    string
	PriceCents  int64
	Active      bool
	SortOrder   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
