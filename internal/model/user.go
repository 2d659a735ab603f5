// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Staff roles. Managers can edit the menu and settings; servers can only
// work the order board.
const (
	RoleManager = "manager"
	RoleServer  = "server"
)

// StaffUser represents a staff account that can access the console.
type StaffUser struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
