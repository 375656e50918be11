package simulator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostdev-ops/pma-simulator/internal/core/devices"
	"github.com/frostdev-ops/pma-simulator/pkg/errors"
)

// seedFleet builds a small fleet with recognizable state to round-trip.
func seedFleet(t *testing.T, m *Manager) {
	t.Helper()
	ctx := context.Background()

	_, err := m.CreateDevice("light", "Kitchen Light", CreateOptions{ID: "kitchen-light", Location: "kitchen"})
	require.NoError(t, err)
	require.True(t, m.SendCommand(ctx, "kitchen-light", devices.Command{Name: "turn_on"}).Success)
	require.True(t, m.SendCommand(ctx, "kitchen-light", devices.Command{
		Name:       "set_brightness",
		Parameters: map[string]interface{}{"brightness": 25},
	}).Success)

	_, err = m.CreateDevice("sensor_door", "Back Door", CreateOptions{ID: "back-door", Location: "garden"})
	require.NoError(t, err)

	require.NoError(t, m.Environment().SetCondition("temperature", 19.5))
}

func TestExportCapturesFleetAndEnvironment(t *testing.T) {
	m := newTestManager(t, testOptions())
	seedFleet(t, m)

	snapshot := m.ExportConfiguration(context.Background())

	require.NotNil(t, snapshot)
	assert.NotEmpty(t, snapshot.Version)
	assert.False(t, snapshot.ExportedAt.IsZero())
	assert.Equal(t, 19.5, snapshot.Environment.Temperature)
	assert.NotNil(t, snapshot.Statistics["state"])

	require.Len(t, snapshot.Devices, 2)
	// ListDevices orders by name, Back Door sorts first.
	assert.Equal(t, "back-door", snapshot.Devices[0].ID)
	assert.Equal(t, "sensor_door", snapshot.Devices[0].Type)
	assert.Equal(t, "kitchen-light", snapshot.Devices[1].ID)
	assert.Equal(t, true, snapshot.Devices[1].State["power"])
	assert.Equal(t, 25.0, snapshot.Devices[1].State["brightness"])
}

func TestImportRestoresFleetAndEnvironment(t *testing.T) {
	m := newTestManager(t, testOptions())
	seedFleet(t, m)
	ctx := context.Background()

	snapshot := m.ExportConfiguration(ctx)

	// Drift the live simulation away from the snapshot.
	assert.True(t, m.RemoveDevice("back-door"))
	require.True(t, m.SendCommand(ctx, "kitchen-light", devices.Command{Name: "turn_off"}).Success)
	require.NoError(t, m.Environment().SetCondition("temperature", 30.0))
	_, err := m.CreateDevice("switch", "Stray Plug", CreateOptions{ID: "stray-plug"})
	require.NoError(t, err)

	require.NoError(t, m.ImportConfiguration(snapshot))

	assert.Equal(t, 2, m.CountDevices())
	assert.Equal(t, 19.5, m.Environment().GetConditions().Temperature)

	_, stray := m.GetDevice("stray-plug")
	assert.False(t, stray, "devices outside the snapshot are gone")

	light, ok := m.GetDevice("kitchen-light")
	require.True(t, ok)
	assert.Equal(t, "Kitchen Light", light.Name())
	assert.Equal(t, "kitchen", light.Info().Location)
	assert.Equal(t, true, light.State()["power"])
	assert.Equal(t, 25.0, light.State()["brightness"])

	door, ok := m.GetDevice("back-door")
	require.True(t, ok)
	assert.Equal(t, "sensor_door", door.TypeTag(), "sensor subtype survives the round trip")
	assert.True(t, m.SendCommand(ctx, "back-door", devices.Command{Name: "open"}).Success)
}

func TestImportStartsDevicesOnRunningManager(t *testing.T) {
	opts := testOptions()
	opts.AutoStartDevices = true
	m := newTestManager(t, opts)
	seedFleet(t, m)
	require.NoError(t, m.Start())

	snapshot := m.ExportConfiguration(context.Background())
	require.NoError(t, m.ImportConfiguration(snapshot))

	light, ok := m.GetDevice("kitchen-light")
	require.True(t, ok)
	assert.True(t, light.IsRunning(), "imported devices join the running fleet")
}

func TestImportRejectsMalformedSnapshot(t *testing.T) {
	tests := []struct {
		name     string
		snapshot *FleetSnapshot
		wantErr  string
	}{
		{
			name:     "nil snapshot",
			snapshot: nil,
			wantErr:  "snapshot is nil",
		},
		{
			name: "device without id",
			snapshot: &FleetSnapshot{Devices: []devices.Snapshot{
				{ID: "", Name: "Nameless", Type: "light"},
			}},
			wantErr: "device 0 has no id",
		},
		{
			name: "device without name",
			snapshot: &FleetSnapshot{Devices: []devices.Snapshot{
				{ID: "dev-1", Name: "", Type: "light"},
			}},
			wantErr: "has no name",
		},
		{
			name: "duplicate device ids",
			snapshot: &FleetSnapshot{Devices: []devices.Snapshot{
				{ID: "dev-1", Name: "First", Type: "light"},
				{ID: "dev-1", Name: "Second", Type: "lock"},
			}},
			wantErr: "duplicate device id dev-1",
		},
		{
			name: "unsupported device type",
			snapshot: &FleetSnapshot{Devices: []devices.Snapshot{
				{ID: "dev-1", Name: "Odd", Type: "toaster"},
			}},
			wantErr: `unsupported type "toaster"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t, testOptions())
			seedFleet(t, m)

			err := m.ImportConfiguration(tt.snapshot)

			require.Error(t, err)
			assert.Equal(t, "import_failed", errors.CodeOf(err))
			assert.Contains(t, err.Error(), tt.wantErr)

			// A rejected import leaves the running fleet untouched.
			assert.Equal(t, 2, m.CountDevices())
			light, ok := m.GetDevice("kitchen-light")
			require.True(t, ok)
			assert.Equal(t, true, light.State()["power"])
		})
	}
}

func TestSaveAndLoadConfiguration(t *testing.T) {
	for _, filename := range []string{"fleet.json", "fleet.json.zst"} {
		t.Run(filename, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "snapshots", filename)

			source := newTestManager(t, testOptions())
			seedFleet(t, source)
			require.NoError(t, source.SaveConfiguration(context.Background(), path))

			target := newTestManager(t, testOptions())
			require.NoError(t, target.LoadConfiguration(path))

			assert.Equal(t, 2, target.CountDevices())
			assert.Equal(t, 19.5, target.Environment().GetConditions().Temperature)

			light, ok := target.GetDevice("kitchen-light")
			require.True(t, ok)
			assert.Equal(t, true, light.State()["power"])
			assert.Equal(t, 25.0, light.State()["brightness"])
		})
	}
}

func TestSaveConfigurationRequiresPath(t *testing.T) {
	m := newTestManager(t, testOptions())

	err := m.SaveConfiguration(context.Background(), "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot path is required")
}

func TestLoadConfigurationMissingFile(t *testing.T) {
	m := newTestManager(t, testOptions())

	err := m.LoadConfiguration(filepath.Join(t.TempDir(), "absent.json"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open snapshot file")
}

func TestLoadConfigurationRejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	m := newTestManager(t, testOptions())
	err := m.LoadConfiguration(path)

	require.Error(t, err)
	assert.Equal(t, "import_failed", errors.CodeOf(err))
	assert.Contains(t, err.Error(), "invalid snapshot JSON")
}
