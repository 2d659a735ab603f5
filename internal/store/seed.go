// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/olegiv/mesa-go/internal/auth"
	"github.com/olegiv/mesa-go/internal/model"
)

// Default manager credentials, replaced on first login in any real deployment.
const (
	DefaultManagerEmail    = "manager@example.com"
	DefaultManagerPassword = "changeme"
	DefaultManagerName     = "Manager"
)

// Seed creates the initial staff account and default settings.
// When demoMenu is true, a small sample menu is inserted as well.
func Seed(ctx context.Context, db *sql.DB, demoMenu bool) error {
	queries := New(db)
	now := time.Now()

	_, err := queries.GetStaffUserByEmail(ctx, DefaultManagerEmail)
	switch {
	case err == nil:
		slog.Info("manager user already exists, skipping seed")
	case errors.Is(err, sql.ErrNoRows):
		passwordHash, err := auth.HashPassword(DefaultManagerPassword)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}
		user, err := queries.CreateStaffUser(ctx, CreateStaffUserParams{
			Email:        DefaultManagerEmail,
			Name:         DefaultManagerName,
			PasswordHash: passwordHash,
			Role:         model.RoleManager,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			return fmt.Errorf("creating manager user: %w", err)
		}
		slog.Info("created default manager user", "id", user.ID, "email", user.Email)
	default:
		return fmt.Errorf("checking for manager user: %w", err)
	}

	defaults := map[string]string{
		"restaurant_name": "Mesa",
		"currency":        "USD",
		"ordering_open":   "true",
	}
	for key, value := range defaults {
		if _, err := queries.GetSetting(ctx, key); errors.Is(err, sql.ErrNoRows) {
			if err := queries.UpsertSetting(ctx, key, value, now); err != nil {
				return fmt.Errorf("seeding setting %q: %w", key, err)
			}
		}
	}

	if demoMenu {
		if err := seedDemoMenu(ctx, queries, now); err != nil {
			return fmt.Errorf("seeding demo menu: %w", err)
		}
	}

	return nil
}

// seedDemoMenu inserts a small sample menu if the menu is empty.
func seedDemoMenu(ctx context.Context, queries *Queries, now time.Time) error {
	existing, err := queries.ListMenuItems(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		slog.Info("menu already populated, skipping demo seed", "items", len(existing))
		return nil
	}

	demo := []CreateMenuItemParams{
		{Name: "Margherita Pizza", Description: "Tomato, mozzarella, basil", Category: "Mains", PriceCents: 1250, Active: true, SortOrder: 10},
		{Name: "Carbonara", Description: "Guanciale, pecorino, egg yolk", Category: "Mains", PriceCents: 1450, Active: true, SortOrder: 20},
		{Name: "Caesar Salad", Description: "Romaine, parmesan, croutons", Category: "Starters", PriceCents: 950, Active: true, SortOrder: 30},
		{Name: "Tiramisu", Description: "Espresso-soaked ladyfingers", Category: "Desserts", PriceCents: 750, Active: true, SortOrder: 40},
		{Name: "Sparkling Water", Description: "750ml bottle", Category: "Drinks", PriceCents: 400, Active: true, SortOrder: 50},
	}
	for _, item := range demo {
		item.CreatedAt = now
		item.UpdatedAt = now
		if _, err := queries.CreateMenuItem(ctx, item); err != nil {
			return err
		}
	}
	slog.Info("seeded demo menu", "items", len(demo))
	return nil
}
