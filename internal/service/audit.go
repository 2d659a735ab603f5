// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service provides business logic for orders and audit logging.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/olegiv/mesa-go/internal/model"
	"github.com/olegiv/mesa-go/internal/store"
)

// AuditService writes audit trail entries to the database.
type AuditService struct {
	queries *store.Queries
}

// NewAuditService creates a new AuditService.
func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{queries: store.New(db)}
}

// Log creates a new audit log entry.
func (s *AuditService) Log(ctx context.Context, level, category, message string, userID *int64, metadata map[string]any) error {
	var nullUserID sql.NullInt64
	if userID != nil {
		nullUserID = sql.NullInt64{Int64: *userID, Valid: true}
	}

	metadataJSON := "{}"
	if metadata != nil {
		if jsonBytes, err := json.Marshal(metadata); err == nil {
			metadataJSON = string(jsonBytes)
		}
	}

	_, err := s.queries.CreateAuditEntry(ctx, store.CreateAuditEntryParams{
		Level:     level,
		Category:  category,
		Message:   message,
		UserID:    nullUserID,
		Metadata:  metadataJSON,
		CreatedAt: time.Now(),
	})
	if err != nil {
		slog.Error("failed to write audit entry", "error", err, "category", category)
		return err
	}
	return nil
}

// LogAuth logs an authentication event.
func (s *AuditService) LogAuth(ctx context.Context, level, message string, userID *int64, metadata map[string]any) error {
	return s.Log(ctx, level, model.AuditCategoryAuth, message, userID, metadata)
}

// LogOrder logs an order lifecycle event.
func (s *AuditService) LogOrder(ctx context.Context, level, message string, userID *int64, metadata map[string]any) error {
	return s.Log(ctx, level, model.AuditCategoryOrder, message, userID, metadata)
}

// LogMenu logs a menu change.
func (s *AuditService) LogMenu(ctx context.Context, level, message string, userID *int64, metadata map[string]any) error {
	return s.Log(ctx, level, model.AuditCategoryMenu, message, userID, metadata)
}

// LogConfig logs a settings change.
func (s *AuditService) LogConfig(ctx context.Context, level, message string, userID *int64, metadata map[string]any) error {
	return s.Log(ctx, level, model.AuditCategoryConfig, message, userID, metadata)
}

// LogSystem logs a system event.
func (s *AuditService) LogSystem(ctx context.Context, level, message string, metadata map[string]any) error {
	return s.Log(ctx, level, model.AuditCategorySystem, message, nil, metadata)
}

// DeleteOldEntries removes audit entries older than the given duration.
func (s *AuditService) DeleteOldEntries(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	return s.queries.DeleteOldAuditEntries(ctx, cutoff)
}
