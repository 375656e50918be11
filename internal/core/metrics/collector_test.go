package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorNilReceiverIsSafe(t *testing.T) {
	var c *Collector

	c.RecordCommand("light", "turn_on", true)
	c.RecordEvent("state_change")
	c.RecordFailureInjection()
	c.AddDroppedEvents(3)
	c.SetDevicesOnline("light", 5)
	c.SetDevicesRegistered(7)
	c.RecordEnvironmentRefresh()
	c.SetEventLogSize(42)
}

func TestCollectorDisabledRecordsNothing(t *testing.T) {
	c := NewCollector(Config{Enabled: false, Prefix: "test_sim"}, prometheus.NewRegistry())

	c.RecordCommand("light", "turn_on", true)
	c.RecordFailureInjection()
	c.AddDroppedEvents(3)
	c.SetEventLogSize(42)

	assert.Equal(t, 0.0, testutil.ToFloat64(c.failuresTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.eventsDropped))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.eventLogSize))
}

func TestCollectorRecordsWhenEnabled(t *testing.T) {
	c := NewCollector(Config{Enabled: true, Prefix: "test_sim"}, prometheus.NewRegistry())

	c.RecordCommand("light", "turn_on", true)
	c.RecordCommand("light", "turn_on", true)
	c.RecordCommand("lock", "unlock", false)
	c.RecordEvent("state_change")
	c.RecordFailureInjection()
	c.AddDroppedEvents(3)
	c.SetDevicesOnline("light", 5)
	c.SetDevicesRegistered(7)
	c.RecordEnvironmentRefresh()
	c.SetEventLogSize(42)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.commandsTotal.WithLabelValues("light", "turn_on", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.commandsTotal.WithLabelValues("lock", "unlock", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.eventsTotal.WithLabelValues("state_change")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.failuresTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.eventsDropped))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.devicesOnline.WithLabelValues("light")))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.devicesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.environmentTicks))
	assert.Equal(t, 42.0, testutil.ToFloat64(c.eventLogSize))
}

func TestCollectorIgnoresNonPositiveDrops(t *testing.T) {
	c := NewCollector(Config{Enabled: true, Prefix: "test_sim"}, prometheus.NewRegistry())

	c.AddDroppedEvents(0)
	c.AddDroppedEvents(-5)

	assert.Equal(t, 0.0, testutil.ToFloat64(c.eventsDropped))
}

func TestCollectorMetricNamesCarryPrefix(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(Config{Enabled: true, Prefix: "custom"}, reg)
	c.SetDevicesRegistered(1)

	families, err := reg.Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range families {
		if mf.GetName() == "custom_devices_registered" {
			found = true
		}
	}
	assert.True(t, found, "gauge should be registered under the configured prefix")
}

func TestCollectorDefaultPrefix(t *testing.T) {
	c := NewCollector(Config{Enabled: true}, prometheus.NewRegistry())

	assert.Equal(t, "pma_sim", c.config.Prefix)
}
