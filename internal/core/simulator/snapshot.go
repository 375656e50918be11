package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/frostdev-ops/pma-simulator/internal/core/devices"
	"github.com/frostdev-ops/pma-simulator/internal/core/environment"
	"github.com/frostdev-ops/pma-simulator/pkg/errors"
	"github.com/frostdev-ops/pma-simulator/pkg/version"
)

// FleetSnapshot is the portable representation of a simulation: every
// device with its full state plus the ambient conditions. Statistics
// ride along for inspection but are ignored on import.
type FleetSnapshot struct {
	Version     string                 `json:"version"`
	ExportedAt  time.Time              `json:"exported_at"`
	Environment environment.Conditions `json:"environment"`
	Devices     []devices.Snapshot     `json:"devices"`
	Statistics  map[string]interface{} `json:"statistics,omitempty"`
}

// ExportConfiguration captures the current fleet and environment.
func (m *Manager) ExportConfiguration(ctx context.Context) *FleetSnapshot {
	list := m.ListDevices()
	snaps := make([]devices.Snapshot, 0, len(list))
	for _, dev := range list {
		snaps = append(snaps, dev.Snapshot())
	}
	return &FleetSnapshot{
		Version:     version.GetVersion(),
		ExportedAt:  time.Now().UTC(),
		Environment: m.env.GetConditions(),
		Devices:     snaps,
		Statistics:  m.GetStatistics(ctx),
	}
}

// ImportConfiguration replaces the current fleet with the snapshot's
// devices and applies its environment. The snapshot is validated in
// full before any existing device is touched, so a malformed import
// leaves the running simulation intact.
func (m *Manager) ImportConfiguration(snapshot *FleetSnapshot) error {
	if snapshot == nil {
		return errors.WithDetails(errors.ErrImportFailed, "snapshot is nil")
	}
	type staged struct {
		snap     devices.Snapshot
		behavior devices.Behavior
	}
	plan := make([]staged, 0, len(snapshot.Devices))
	seen := make(map[string]struct{}, len(snapshot.Devices))
	for i, snap := range snapshot.Devices {
		if snap.ID == "" {
			return errors.Detailsf(errors.ErrImportFailed, "device %d has no id", i)
		}
		if snap.Name == "" {
			return errors.Detailsf(errors.ErrImportFailed, "device %s has no name", snap.ID)
		}
		if _, dup := seen[snap.ID]; dup {
			return errors.Detailsf(errors.ErrImportFailed, "duplicate device id %s", snap.ID)
		}
		seen[snap.ID] = struct{}{}
		behavior, err := devices.NewBehavior(snap.Type)
		if err != nil {
			return errors.Detailsf(errors.ErrImportFailed, "device %s: unsupported type %q", snap.ID, snap.Type)
		}
		plan = append(plan, staged{snap: snap, behavior: behavior})
	}

	for _, dev := range m.ListDevices() {
		m.RemoveDevice(dev.ID())
	}
	m.env.SetConditions(snapshot.Environment)

	imported := 0
	for _, item := range plan {
		opts := CreateOptions{
			ID:       item.snap.ID,
			Brand:    item.snap.Brand,
			Model:    item.snap.Model,
			Location: item.snap.Location,
			State:    item.snap.State,
		}
		if _, err := m.CreateDevice(item.snap.Type, item.snap.Name, opts); err != nil {
			m.log.WithError(err).WithField("device_id", item.snap.ID).Error("Failed to recreate device from snapshot")
			continue
		}
		imported++
	}
	m.log.WithFields(map[string]interface{}{
		"devices":  imported,
		"exported": snapshot.ExportedAt,
	}).Info("Configuration imported")
	return nil
}

// SaveConfiguration writes the current snapshot to disk as JSON. Paths
// ending in .zst are compressed with zstd.
func (m *Manager) SaveConfiguration(ctx context.Context, path string) error {
	if path == "" {
		return errors.WithDetails(errors.ErrInvalidParameter, "snapshot path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer file.Close()

	var writer io.Writer = file
	var zw *zstd.Encoder
	if strings.HasSuffix(path, ".zst") {
		zw, err = zstd.NewWriter(file)
		if err != nil {
			return fmt.Errorf("failed to create zstd writer: %w", err)
		}
		writer = zw
	}

	enc := json.NewEncoder(writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m.ExportConfiguration(ctx)); err != nil {
		if zw != nil {
			zw.Close()
		}
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return fmt.Errorf("failed to finalize compressed snapshot: %w", err)
		}
	}
	m.log.WithFields(map[string]interface{}{"path": path}).Info("Configuration saved")
	return nil
}

// LoadConfiguration reads a snapshot from disk and imports it.
func (m *Manager) LoadConfiguration(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(path, ".zst") {
		zr, err := zstd.NewReader(file)
		if err != nil {
			return fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer zr.Close()
		reader = zr
	}

	var snapshot FleetSnapshot
	if err := json.NewDecoder(reader).Decode(&snapshot); err != nil {
		return errors.Detailsf(errors.ErrImportFailed, "invalid snapshot JSON: %v", err)
	}
	return m.ImportConfiguration(&snapshot)
}
