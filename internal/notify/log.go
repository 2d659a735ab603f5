// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/olegiv/mesa-go/internal/model"
)

// MaxLogRecords is the sliding-window size of the event log. Once exceeded,
// the oldest records are evicted; subscribers that fall further behind than
// this window miss events and must rely on the snapshot drift check.
const MaxLogRecords = 100

// Log is a bounded, append-only order-event log persisted to a single JSON
// file. All access goes through one in-process Log guarded by a mutex, so
// concurrent appenders cannot lose each other's writes.
type Log struct {
	path string

	mu      sync.Mutex
	records []model.EventRecord
	lastID  int64
}

// logFile is the on-disk representation of the event log.
type logFile struct {
	LastID  int64               `json:"last_id"`
	Records []model.EventRecord `json:"records"`
}

// OpenLog opens (or creates) the event log file at path.
func OpenLog(path string) (*Log, error) {
	l := &Log{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return l, nil
		}
		return nil, fmt.Errorf("reading event log: %w", err)
	}

	var f logFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding event log: %w", err)
	}
	l.records = f.Records
	l.lastID = f.LastID
	// Older log files predate the last_id field; recover it from the tail.
	if l.lastID == 0 && len(l.records) > 0 {
		l.lastID = l.records[len(l.records)-1].EventID
	}
	return l, nil
}

// Append assigns the next event id, appends a record, trims the window and
// flushes the log to disk. The returned record carries the assigned id.
func (l *Log) Append(orderID int64, status, eventType string) (model.EventRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lastID++
	rec := model.EventRecord{
		EventID:   l.lastID,
		OrderID:   orderID,
		Status:    status,
		EventType: eventType,
		Timestamp: time.Now().Unix(),
	}
	l.records = append(l.records, rec)
	if len(l.records) > MaxLogRecords {
		l.records = l.records[len(l.records)-MaxLogRecords:]
	}

	if err := l.flushLocked(); err != nil {
		return model.EventRecord{}, err
	}
	return rec, nil
}

// ReadSince returns a copy of all records with EventID > cursor, in id order.
func (l *Log) ReadSince(cursor int64) []model.EventRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []model.EventRecord
	for _, rec := range l.records {
		if rec.EventID > cursor {
			out = append(out, rec)
		}
	}
	return out
}

// LastID returns the most recently assigned event id.
func (l *Log) LastID() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastID
}

// Len returns the number of retained records.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// flushLocked writes the log file. Callers must hold l.mu. The write goes
// through a temp file and rename so readers never observe a torn file.
func (l *Log) flushLocked() error {
	data, err := json.Marshal(logFile{LastID: l.lastID, Records: l.records})
	if err != nil {
		return fmt.Errorf("encoding event log: %w", err)
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing event log: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("replacing event log: %w", err)
	}
	return nil
}

// DefaultLogPath returns the event log location inside a data directory.
func DefaultLogPath(dataDir string) string {
	return filepath.Join(dataDir, "order_events.json")
}
