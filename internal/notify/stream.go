// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/mesa-go/internal/model"
)

const (
	// maxProcessedIDs bounds the per-connection duplicate-suppression set.
	// After truncation a rare redelivery is possible; clients dedup by id.
	maxProcessedIDs = 100

	// snapshotDriftSeconds is the minimum timestamp drift that triggers a
	// push from the secondary snapshot check when the status is unchanged.
	snapshotDriftSeconds = 5

	// clientStaff is the query parameter value that grants the unscoped,
	// all-orders view.
	clientStaff = "staff"
)

// StreamConfig tunes the per-connection loop cadence.
type StreamConfig struct {
	// PollInterval is how often the shared event log is re-read. Delivery
	// latency is bounded by this interval.
	PollInterval time.Duration
	// KeepAliveInterval is how often a ping frame is emitted to defeat
	// idle-connection timeouts in intermediary proxies.
	KeepAliveInterval time.Duration
	// TickInterval is the loop's sleep between checks; must be no longer
	// than PollInterval.
	TickInterval time.Duration
}

// DefaultStreamConfig returns the production cadence: 1s polls, 15s pings.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		PollInterval:      time.Second,
		KeepAliveInterval: 15 * time.Second,
		TickInterval:      250 * time.Millisecond,
	}
}

// StreamHandler serves one long-lived Server-Sent-Events response per
// connected client, polling the event log on a fixed cadence and pushing
// newly observed events that match the subscriber's scope. The connection is
// held open until the client disconnects; there is no server-initiated close.
type StreamHandler struct {
	log       *Log
	snapshots *SnapshotStore
	cfg       StreamConfig
}

// NewStreamHandler creates a StreamHandler. Zero config fields fall back to
// DefaultStreamConfig values.
func NewStreamHandler(log *Log, snapshots *SnapshotStore, cfg StreamConfig) *StreamHandler {
	def := DefaultStreamConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.KeepAliveInterval <= 0 {
		cfg.KeepAliveInterval = def.KeepAliveInterval
	}
	if cfg.TickInterval <= 0 || cfg.TickInterval > cfg.PollInterval {
		cfg.TickInterval = def.TickInterval
		if cfg.TickInterval > cfg.PollInterval {
			cfg.TickInterval = cfg.PollInterval
		}
	}
	return &StreamHandler{log: log, snapshots: snapshots, cfg: cfg}
}

// subscription is the connection-scoped subscriber state. It lives only for
// the lifetime of one stream connection and is never persisted; reconnecting
// clients resume via the last_event_id cursor.
type subscription struct {
	cursor      int64
	orderFilter int64 // 0 = all orders (staff only; unscoped customers get no pushes)
	isStaff     bool

	processed      map[int64]struct{}
	processedOrder []int64 // insertion order, for trimming

	// Last snapshot state announced to this connection for the watched
	// order, used by the secondary drift check.
	lastStatus string
	lastSnapTS int64
}

// observe records an event id in the bounded processed set. Returns false if
// the id was already present.
func (s *subscription) observe(id int64) bool {
	if _, seen := s.processed[id]; seen {
		return false
	}
	s.processed[id] = struct{}{}
	s.processedOrder = append(s.processedOrder, id)
	if len(s.processedOrder) > maxProcessedIDs {
		evict := s.processedOrder[0]
		s.processedOrder = s.processedOrder[1:]
		delete(s.processed, evict)
	}
	return true
}

// wantsOrder reports whether an event for orderID should be forwarded to
// this subscriber. Staff see everything; customers only their single watched
// order. Unscoped (order_id=0) customer subscriptions receive no pushes.
func (s *subscription) wantsOrder(orderID int64) bool {
	if s.isStaff {
		return true
	}
	return s.orderFilter != 0 && orderID == s.orderFilter
}

// ServeHTTP implements the stream endpoint:
//
//	GET /api/events/stream?order_id=&client=&last_event_id=
//
// The resume cursor is also honored via the Last-Event-ID request header,
// which browsers send automatically on EventSource reconnection.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub := &subscription{
		processed: make(map[int64]struct{}),
	}
	sub.orderFilter, _ = strconv.ParseInt(r.URL.Query().Get("order_id"), 10, 64)
	sub.isStaff = r.URL.Query().Get("client") == clientStaff
	sub.cursor, _ = strconv.ParseInt(r.URL.Query().Get("last_event_id"), 10, 64)
	if header := r.Header.Get("Last-Event-ID"); header != "" {
		if id, err := strconv.ParseInt(header, 10, 64); err == nil {
			sub.cursor = id
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx proxy buffering

	connID := uuid.NewString()
	slog.Debug("stream connected",
		"conn_id", connID,
		"order_id", sub.orderFilter,
		"staff", sub.isStaff,
		"cursor", sub.cursor,
	)

	now := time.Now()
	writeFrame(w, flusher, 0, "connection", map[string]any{
		"status": "connected",
		"time":   now.Unix(),
	})

	ticker := time.NewTicker(h.cfg.TickInterval)
	defer ticker.Stop()

	lastPing := now
	lastPoll := time.Time{} // poll immediately on the first tick

	for {
		select {
		case <-r.Context().Done():
			slog.Debug("stream disconnected", "conn_id", connID, "cursor", sub.cursor)
			return
		case <-ticker.C:
		}

		now = time.Now()

		if now.Sub(lastPing) >= h.cfg.KeepAliveInterval {
			writeFrame(w, flusher, 0, "ping", map[string]any{"time": now.Unix()})
			lastPing = now
		}

		if now.Sub(lastPoll) >= h.cfg.PollInterval {
			h.poll(w, flusher, sub)
			lastPoll = now
		}
	}
}

// poll re-reads the shared event log, forwards qualifying events past the
// subscriber's cursor, and runs the secondary snapshot drift check for
// single-order customer watchers.
func (h *StreamHandler) poll(w http.ResponseWriter, flusher http.Flusher, sub *subscription) {
	events := h.log.ReadSince(sub.cursor)

	maxID := sub.cursor
	for _, ev := range events {
		if ev.EventID > maxID {
			maxID = ev.EventID
		}
		// Every observed id enters the processed set, forwarded or not,
		// so a cursor rewind cannot cause redelivery within the window.
		if !sub.observe(ev.EventID) {
			continue
		}
		if !sub.wantsOrder(ev.OrderID) {
			continue
		}

		snap, err := h.snapshots.Read(ev.OrderID)
		if err != nil {
			// Snapshot file missing or unreadable: fall back to a
			// minimal inline snapshot built from the event itself.
			snap = model.OrderSnapshot{
				OrderID:    ev.OrderID,
				Status:     ev.Status,
				StatusText: model.StatusText(ev.Status),
				UpdatedAt:  ev.Timestamp,
				Degraded:   true,
			}
		}

		writeFrame(w, flusher, ev.EventID, "order_update", map[string]any{
			"event_id":   ev.EventID,
			"event_type": ev.EventType,
			"order":      snap,
		})

		if !sub.isStaff && ev.OrderID == sub.orderFilter {
			sub.lastStatus = snap.Status
			sub.lastSnapTS = snap.UpdatedAt
		}
	}
	sub.cursor = maxID

	// Secondary path for single-order customer watchers: diff the snapshot
	// file directly so a status change whose event was already evicted from
	// the log window is still delivered.
	if !sub.isStaff && sub.orderFilter != 0 {
		h.checkSnapshotDrift(w, flusher, sub)
	}
}

// checkSnapshotDrift pushes the watched order's snapshot when its status or
// timestamp moved relative to what this connection last announced. The first
// observation only records a baseline; the tracking page fetched the current
// state itself on load.
func (h *StreamHandler) checkSnapshotDrift(w http.ResponseWriter, flusher http.Flusher, sub *subscription) {
	snap, err := h.snapshots.Read(sub.orderFilter)
	if err != nil {
		return
	}

	if sub.lastStatus == "" {
		sub.lastStatus = snap.Status
		sub.lastSnapTS = snap.UpdatedAt
		return
	}

	changed := snap.Status != sub.lastStatus ||
		snap.UpdatedAt-sub.lastSnapTS > snapshotDriftSeconds
	if !changed {
		return
	}

	// Drift pushes carry the snapshot timestamp as their frame id: there is
	// no log event id to use, and distinct updates get distinct ids.
	writeFrame(w, flusher, snap.UpdatedAt, "order_update", map[string]any{
		"event_id":   snap.UpdatedAt,
		"event_type": model.EventTypeStatusChange,
		"order":      snap,
	})
	sub.lastStatus = snap.Status
	sub.lastSnapTS = snap.UpdatedAt
}

// writeFrame emits one SSE frame (id/event/data lines, blank-line terminated)
// and flushes it to the client. A zero id omits the id line.
func writeFrame(w http.ResponseWriter, flusher http.Flusher, id int64, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		slog.Error("failed to encode stream frame", "event", event, "error", err)
		return
	}

	if id > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", id)
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	flusher.Flush()
}
