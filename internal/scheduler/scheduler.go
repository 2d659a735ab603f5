// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/mesa-go/internal/model"
	"github.com/olegiv/mesa-go/internal/notify"
	"github.com/olegiv/mesa-go/internal/service"
	"github.com/olegiv/mesa-go/internal/store"
)

const (
	// auditRetention is how long audit log entries are kept.
	auditRetention = 90 * 24 * time.Hour

	// staleReadyAge is how long an order may sit in "ready" before it is
	// auto-completed. Covers shifts where staff forget to close orders.
	staleReadyAge = 2 * time.Hour
)

// Scheduler handles periodic maintenance: audit log retention,
// auto-completion of forgotten ready orders and snapshot disk accounting.
type Scheduler struct {
	db        *sql.DB
	orders    *service.OrderService
	audit     *service.AuditService
	snapshots *notify.SnapshotStore
	cron      *cron.Cron
	logger    *slog.Logger
}

// New creates a new scheduler instance. snapshots may be nil in tests that
// do not exercise the sweep job.
func New(db *sql.DB, orders *service.OrderService, audit *service.AuditService, snapshots *notify.SnapshotStore, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		db:        db,
		orders:    orders,
		audit:     audit,
		snapshots: snapshots,
		cron:      cron.New(),
		logger:    logger,
	}
}

// Start registers the maintenance jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	// Purge old audit entries nightly.
	if _, err := s.cron.AddFunc("0 3 * * *", func() {
		if err := s.PurgeOldAuditEntries(context.Background()); err != nil {
			s.logger.Error("audit purge failed", "error", err)
		}
	}); err != nil {
		return err
	}

	// Sweep for stale ready orders every 15 minutes.
	if _, err := s.cron.AddFunc("*/15 * * * *", func() {
		if err := s.CompleteStaleReadyOrders(context.Background()); err != nil {
			s.logger.Error("stale order sweep failed", "error", err)
		}
	}); err != nil {
		return err
	}

	// Log snapshot directory growth hourly. Snapshot files are never
	// deleted, so this is the only visibility into their disk usage.
	if s.snapshots != nil {
		if _, err := s.cron.AddFunc("0 * * * *", func() {
			s.SweepSnapshotStats()
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// SweepSnapshotStats logs the snapshot file count and combined size.
func (s *Scheduler) SweepSnapshotStats() {
	count, totalBytes, err := s.snapshots.Stats()
	if err != nil {
		s.logger.Error("snapshot sweep failed", "error", err)
		return
	}
	s.logger.Info("snapshot directory stats", "files", count, "bytes", totalBytes)
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// PurgeOldAuditEntries removes audit entries past the retention window.
func (s *Scheduler) PurgeOldAuditEntries(ctx context.Context) error {
	if err := s.audit.DeleteOldEntries(ctx, auditRetention); err != nil {
		return err
	}
	s.logger.Debug("audit log purged", "retention", auditRetention)
	return nil
}

// CompleteStaleReadyOrders auto-completes orders that have been ready for
// longer than staleReadyAge. Each completion publishes a status_change
// event so open dashboards update.
func (s *Scheduler) CompleteStaleReadyOrders(ctx context.Context) error {
	queries := store.New(s.db)

	ready, err := queries.ListOrdersByStatus(ctx, store.ListOrdersByStatusParams{
		Status: model.OrderStatusReady,
		Limit:  200,
		Offset: 0,
	})
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-staleReadyAge)
	for _, order := range ready {
		if order.UpdatedAt.After(cutoff) {
			continue
		}
		if _, err := s.orders.UpdateStatus(ctx, order.ID, model.OrderStatusCompleted, 0); err != nil {
			s.logger.Error("failed to auto-complete order",
				"order_id", order.ID,
				"reference", order.Reference,
				"error", err,
			)
			continue
		}
		s.logger.Info("auto-completed stale ready order",
			"order_id", order.ID,
			"reference", order.Reference,
		)
	}

	return nil
}
