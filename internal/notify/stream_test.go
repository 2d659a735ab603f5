// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package notify

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/mesa-go/internal/model"
)

// fastConfig keeps stream tests quick: 20ms polls instead of 1s.
func fastConfig() StreamConfig {
	return StreamConfig{
		PollInterval:      20 * time.Millisecond,
		KeepAliveInterval: time.Hour, // no pings unless a test wants them
		TickInterval:      5 * time.Millisecond,
	}
}

type sseFrame struct {
	id    string
	event string
	data  string
}

// orderID decodes the order id carried in an order_update frame.
func (f sseFrame) orderID(t *testing.T) int64 {
	t.Helper()
	var payload struct {
		Order model.OrderSnapshot `json:"order"`
	}
	require.NoError(t, json.Unmarshal([]byte(f.data), &payload))
	return payload.Order.OrderID
}

func (f sseFrame) snapshot(t *testing.T) model.OrderSnapshot {
	t.Helper()
	var payload struct {
		Order model.OrderSnapshot `json:"order"`
	}
	require.NoError(t, json.Unmarshal([]byte(f.data), &payload))
	return payload.Order
}

// openStream connects to the test server and decodes SSE frames into a
// channel until the connection is cancelled.
func openStream(t *testing.T, srv *httptest.Server, query string) <-chan sseFrame {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/?"+query, nil)
	require.NoError(t, err)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	frames := make(chan sseFrame, 64)
	go func() {
		defer func() { _ = resp.Body.Close() }()
		defer close(frames)

		scanner := bufio.NewScanner(resp.Body)
		var f sseFrame
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case line == "":
				if f.event != "" {
					frames <- f
				}
				f = sseFrame{}
			case strings.HasPrefix(line, "id: "):
				f.id = strings.TrimPrefix(line, "id: ")
			case strings.HasPrefix(line, "event: "):
				f.event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				f.data = strings.TrimPrefix(line, "data: ")
			}
		}
	}()

	return frames
}

// nextFrame waits for the next frame of the given event type, skipping pings.
func nextFrame(t *testing.T, frames <-chan sseFrame, event string, timeout time.Duration) sseFrame {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case f, ok := <-frames:
			require.True(t, ok, "stream closed while waiting for %q frame", event)
			if f.event == "ping" && event != "ping" {
				continue
			}
			require.Equal(t, event, f.event)
			return f
		case <-deadline:
			t.Fatalf("timed out waiting for %q frame", event)
		}
	}
}

// expectNoOrderUpdate asserts no order_update frame arrives within d.
func expectNoOrderUpdate(t *testing.T, frames <-chan sseFrame, d time.Duration) {
	t.Helper()
	deadline := time.After(d)
	for {
		select {
		case f, ok := <-frames:
			if !ok {
				return
			}
			assert.NotEqual(t, "order_update", f.event, "unexpected order_update: %s", f.data)
		case <-deadline:
			return
		}
	}
}

func streamFixture(t *testing.T, cfg StreamConfig) (*httptest.Server, *Log, *SnapshotStore) {
	t.Helper()
	l := testLog(t)
	snaps, err := NewSnapshotStore(t.TempDir())
	require.NoError(t, err)
	srv := httptest.NewServer(NewStreamHandler(l, snaps, cfg))
	t.Cleanup(srv.Close)
	return srv, l, snaps
}

// appendWithSnapshot publishes an event the way Publisher does: log append
// plus snapshot write.
func appendWithSnapshot(t *testing.T, l *Log, snaps *SnapshotStore, orderID int64, status string) model.EventRecord {
	t.Helper()
	rec, err := l.Append(orderID, status, model.EventTypeStatusChange)
	require.NoError(t, err)
	require.NoError(t, snaps.Write(model.OrderSnapshot{
		OrderID:    orderID,
		Status:     status,
		StatusText: model.StatusText(status),
		UpdatedAt:  rec.Timestamp,
	}))
	return rec
}

func TestStreamSendsConnectionAck(t *testing.T) {
	srv, _, _ := streamFixture(t, fastConfig())

	frames := openStream(t, srv, "client=staff")
	f := nextFrame(t, frames, "connection", time.Second)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(f.data), &payload))
	assert.Equal(t, "connected", payload["status"])
	assert.Contains(t, payload, "time")
}

func TestStreamStaffReceivesAllOrders(t *testing.T) {
	srv, l, snaps := streamFixture(t, fastConfig())

	frames := openStream(t, srv, "client=staff")
	nextFrame(t, frames, "connection", time.Second)

	appendWithSnapshot(t, l, snaps, 7, model.OrderStatusReady)
	appendWithSnapshot(t, l, snaps, 8, model.OrderStatusPreparing)

	first := nextFrame(t, frames, "order_update", time.Second)
	second := nextFrame(t, frames, "order_update", time.Second)

	assert.Equal(t, int64(7), first.orderID(t))
	assert.Equal(t, model.OrderStatusReady, first.snapshot(t).Status)
	assert.Equal(t, int64(8), second.orderID(t))
}

func TestStreamCustomerSeesOnlyWatchedOrder(t *testing.T) {
	srv, l, snaps := streamFixture(t, fastConfig())

	frames := openStream(t, srv, "order_id=7")
	nextFrame(t, frames, "connection", time.Second)

	appendWithSnapshot(t, l, snaps, 8, model.OrderStatusReady)
	appendWithSnapshot(t, l, snaps, 7, model.OrderStatusConfirmed)

	f := nextFrame(t, frames, "order_update", time.Second)
	assert.Equal(t, int64(7), f.orderID(t))

	expectNoOrderUpdate(t, frames, 100*time.Millisecond)
}

func TestStreamUnscopedCustomerGetsNoPushes(t *testing.T) {
	srv, l, snaps := streamFixture(t, fastConfig())

	frames := openStream(t, srv, "order_id=0")
	nextFrame(t, frames, "connection", time.Second)

	appendWithSnapshot(t, l, snaps, 7, model.OrderStatusReady)
	appendWithSnapshot(t, l, snaps, 8, model.OrderStatusReady)

	expectNoOrderUpdate(t, frames, 150*time.Millisecond)
}

func TestStreamResumesFromCursor(t *testing.T) {
	srv, l, snaps := streamFixture(t, fastConfig())

	for i := 0; i < 5; i++ {
		appendWithSnapshot(t, l, snaps, int64(i+1), model.OrderStatusConfirmed)
	}

	frames := openStream(t, srv, "client=staff&last_event_id=3")
	nextFrame(t, frames, "connection", time.Second)

	first := nextFrame(t, frames, "order_update", time.Second)
	second := nextFrame(t, frames, "order_update", time.Second)
	assert.Equal(t, "4", first.id)
	assert.Equal(t, "5", second.id)

	expectNoOrderUpdate(t, frames, 100*time.Millisecond)
}

func TestStreamHonorsLastEventIDHeader(t *testing.T) {
	l := testLog(t)
	snaps, err := NewSnapshotStore(t.TempDir())
	require.NoError(t, err)
	srv := httptest.NewServer(NewStreamHandler(l, snaps, fastConfig()))
	t.Cleanup(srv.Close)

	for i := 0; i < 3; i++ {
		appendWithSnapshot(t, l, snaps, int64(i+1), model.OrderStatusConfirmed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/?client=staff", nil)
	require.NoError(t, err)
	req.Header.Set("Last-Event-ID", "2")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	scanner := bufio.NewScanner(resp.Body)
	var ids []string
	deadline := time.Now().Add(time.Second)
	for scanner.Scan() && time.Now().Before(deadline) {
		line := scanner.Text()
		if strings.HasPrefix(line, "id: ") {
			ids = append(ids, strings.TrimPrefix(line, "id: "))
		}
		if len(ids) >= 1 {
			break
		}
	}
	require.NotEmpty(t, ids)
	assert.Equal(t, "3", ids[0])
}

func TestStreamDeliversEachEventOnce(t *testing.T) {
	srv, l, snaps := streamFixture(t, fastConfig())

	frames := openStream(t, srv, "client=staff")
	nextFrame(t, frames, "connection", time.Second)

	for i := 0; i < 5; i++ {
		appendWithSnapshot(t, l, snaps, int64(i+1), model.OrderStatusReady)
	}

	seen := make(map[string]int)
	deadline := time.After(300 * time.Millisecond)
collect:
	for {
		select {
		case f, ok := <-frames:
			if !ok {
				break collect
			}
			if f.event == "order_update" {
				seen[f.id]++
			}
		case <-deadline:
			break collect
		}
	}

	assert.Len(t, seen, 5)
	for id, count := range seen {
		assert.Equal(t, 1, count, "event %s delivered %d times", id, count)
	}
}

func TestStreamSnapshotDriftPush(t *testing.T) {
	srv, _, snaps := streamFixture(t, fastConfig())

	// Baseline snapshot present before the customer connects.
	require.NoError(t, snaps.Write(model.OrderSnapshot{
		OrderID:    7,
		Status:     model.OrderStatusPending,
		StatusText: model.StatusText(model.OrderStatusPending),
		UpdatedAt:  time.Now().Unix(),
	}))

	frames := openStream(t, srv, "order_id=7")
	nextFrame(t, frames, "connection", time.Second)

	// Let a couple of polls establish the baseline.
	time.Sleep(100 * time.Millisecond)

	// Status moves via a snapshot write alone: the corresponding event is
	// assumed already evicted from the log window.
	require.NoError(t, snaps.Write(model.OrderSnapshot{
		OrderID:    7,
		Status:     model.OrderStatusReady,
		StatusText: model.StatusText(model.OrderStatusReady),
		UpdatedAt:  time.Now().Unix(),
	}))

	f := nextFrame(t, frames, "order_update", time.Second)
	assert.Equal(t, model.OrderStatusReady, f.snapshot(t).Status)
}

func TestStreamKeepAlivePing(t *testing.T) {
	cfg := fastConfig()
	cfg.KeepAliveInterval = 40 * time.Millisecond
	srv, _, _ := streamFixture(t, cfg)

	frames := openStream(t, srv, "client=staff")
	nextFrame(t, frames, "connection", time.Second)

	f := nextFrame(t, frames, "ping", time.Second)
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(f.data), &payload))
	assert.Contains(t, payload, "time")
}

func TestStreamResumeAfterEviction(t *testing.T) {
	srv, l, snaps := streamFixture(t, fastConfig())

	// Overflow the window by one: event 1 is evicted.
	for i := 0; i < MaxLogRecords+1; i++ {
		appendWithSnapshot(t, l, snaps, int64(i%10+1), model.OrderStatusConfirmed)
	}

	frames := openStream(t, srv, "client=staff&last_event_id=0")
	nextFrame(t, frames, "connection", time.Second)

	var ids []string
	deadline := time.After(2 * time.Second)
	for len(ids) < MaxLogRecords {
		select {
		case f, ok := <-frames:
			require.True(t, ok)
			if f.event == "order_update" {
				ids = append(ids, f.id)
			}
		case <-deadline:
			t.Fatalf("received %d of %d expected frames", len(ids), MaxLogRecords)
		}
	}

	// The evicted first event is missed; delivery starts at the eviction
	// boundary with no duplicates and no gaps.
	assert.Equal(t, "2", ids[0])
	unique := make(map[string]bool)
	for _, id := range ids {
		assert.False(t, unique[id], "duplicate id %s", id)
		unique[id] = true
	}
}
