// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package notify implements the order notification pipeline: a bounded,
// file-backed event log, per-order snapshot projections, a best-effort
// publisher invoked after state-changing operations, and a long-lived
// Server-Sent-Events stream handler that polls the log and pushes deltas to
// connected browsers.
//
// Delivery is at-least-once with bounded history: the log keeps only the most
// recent MaxLogRecords events, subscribers resume via a client-supplied
// cursor, and duplicates after processed-set truncation are expected to be
// deduplicated client-side.
package notify
