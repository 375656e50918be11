package simulator

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostdev-ops/pma-simulator/internal/config"
	"github.com/frostdev-ops/pma-simulator/internal/core/devices"
	"github.com/frostdev-ops/pma-simulator/internal/core/environment"
	"github.com/frostdev-ops/pma-simulator/internal/database"
	"github.com/frostdev-ops/pma-simulator/internal/database/sqlite"
)

func TestEventPersistenceFlush(t *testing.T) {
	db, err := database.Initialize(config.DatabaseConfig{
		Path:           filepath.Join(t.TempDir(), "events.db"),
		MaxConnections: 2,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db, ""))

	repo := sqlite.NewEventRepository(db, quietLogger())

	opts := testOptions()
	opts.AutoStartDevices = true
	opts.PersistEvents = true
	log := quietLogger()
	m := NewManager(opts, environment.NewSimulator(time.Hour, log), repo, nil, log)
	t.Cleanup(func() { m.Stop() })
	require.NoError(t, m.Start())

	dev, err := m.CreateDevice("light", "Persisted Light", CreateOptions{})
	require.NoError(t, err)
	require.True(t, m.SendCommand(context.Background(), dev.ID(), devices.Command{Name: "turn_on"}).Success)

	// The dispatch loop buffers the event before the flush job can
	// write it out.
	require.Eventually(t, func() bool {
		m.eventMu.Lock()
		defer m.eventMu.Unlock()
		return len(m.pending) > 0
	}, 2*time.Second, 10*time.Millisecond)

	m.flushEvents()

	count, err := repo.CountAll(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, int64(1))

	records, err := repo.RecentByDevice(context.Background(), dev.ID(), 10)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Equal(t, "state_change", records[0].Type)

	m.eventMu.Lock()
	assert.Empty(t, m.pending, "flushed events leave the buffer")
	m.eventMu.Unlock()
}

func TestStopFlushesPendingEvents(t *testing.T) {
	db, err := database.Initialize(config.DatabaseConfig{
		Path:           filepath.Join(t.TempDir(), "events.db"),
		MaxConnections: 2,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db, ""))

	repo := sqlite.NewEventRepository(db, quietLogger())

	opts := testOptions()
	opts.AutoStartDevices = true
	opts.PersistEvents = true
	log := quietLogger()
	m := NewManager(opts, environment.NewSimulator(time.Hour, log), repo, nil, log)
	require.NoError(t, m.Start())

	dev, err := m.CreateDevice("light", "Final Light", CreateOptions{})
	require.NoError(t, err)
	require.True(t, m.SendCommand(context.Background(), dev.ID(), devices.Command{Name: "turn_on"}).Success)

	require.Eventually(t, func() bool {
		m.eventMu.Lock()
		defer m.eventMu.Unlock()
		return len(m.pending) > 0
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, m.Stop())

	count, err := repo.CountAll(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, int64(1), "shutdown writes the outstanding batch")
}
