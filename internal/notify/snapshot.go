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

	"github.com/olegiv/mesa-go/internal/model"
)

// ErrNoSnapshot is returned when no snapshot file exists for an order.
var ErrNoSnapshot = errors.New("no snapshot for order")

// SnapshotStore holds one JSON file per order with the order's last-known
// denormalized state. Files are overwritten in place on every status change
// (last-write-wins, no history) and never deleted.
type SnapshotStore struct {
	dir string
}

// NewSnapshotStore creates the snapshot directory if needed.
func NewSnapshotStore(dir string) (*SnapshotStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}
	return &SnapshotStore{dir: dir}, nil
}

// Write replaces the snapshot for snap.OrderID.
func (s *SnapshotStore) Write(snap model.OrderSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	path := s.path(snap.OrderID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// Read returns the last-known snapshot for orderID, or ErrNoSnapshot.
func (s *SnapshotStore) Read(orderID int64) (model.OrderSnapshot, error) {
	data, err := os.ReadFile(s.path(orderID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.OrderSnapshot{}, ErrNoSnapshot
		}
		return model.OrderSnapshot{}, fmt.Errorf("reading snapshot: %w", err)
	}

	var snap model.OrderSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return model.OrderSnapshot{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	return snap, nil
}

// Stats reports how many snapshot files exist and their combined size.
// Snapshots are never deleted, so the numbers only grow; they are logged
// periodically to keep disk usage visible.
func (s *SnapshotStore) Stats() (count int, totalBytes int64, err error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, 0, fmt.Errorf("reading snapshot directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		count++
		totalBytes += info.Size()
	}
	return count, totalBytes, nil
}

func (s *SnapshotStore) path(orderID int64) string {
	return filepath.Join(s.dir, fmt.Sprintf("order_%d.json", orderID))
}

// DefaultSnapshotDir returns the snapshot directory inside a data directory.
func DefaultSnapshotDir(dataDir string) string {
	return filepath.Join(dataDir, "snapshots")
}
