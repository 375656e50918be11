package devices

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostdev-ops/pma-simulator/internal/core/environment"
)

func TestMotionSensorTriggerAutoClears(t *testing.T) {
	d := newTestDevice(t, "sensor_motion", Options{})
	// Sensitivity 0.5 scales the 0.1s base window to 0.1s.
	d.MergeAttributes(map[string]interface{}{"motion_clear_seconds": 0.1})

	result := d.ExecuteCommand(context.Background(), Command{Name: "trigger"})
	require.True(t, result.Success)
	assert.True(t, d.State()["motion"].(bool))
	assert.NotEmpty(t, d.State()["last_triggered"])

	require.Eventually(t, func() bool {
		return !d.State()["motion"].(bool)
	}, 2*time.Second, 10*time.Millisecond, "motion should clear on its own")
}

func TestMotionSensorRetriggerExtendsWindow(t *testing.T) {
	d := newTestDevice(t, "sensor_motion", Options{})
	d.MergeAttributes(map[string]interface{}{"motion_clear_seconds": 0.2})
	ctx := context.Background()

	require.True(t, d.ExecuteCommand(ctx, Command{Name: "trigger"}).Success)
	time.Sleep(120 * time.Millisecond)
	require.True(t, d.ExecuteCommand(ctx, Command{Name: "trigger"}).Success)

	// Past the first timer's deadline the re-armed window keeps motion active.
	time.Sleep(120 * time.Millisecond)
	assert.True(t, d.State()["motion"].(bool), "second trigger must extend the window")

	require.Eventually(t, func() bool {
		return !d.State()["motion"].(bool)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMotionSensorSensitivityScalesClearDelay(t *testing.T) {
	base := newTestDevice(t, "sensor_motion", Options{})
	behavior := base.behavior.(*sensorBehavior)

	base.MergeState(map[string]interface{}{"sensitivity": 0.0})
	lazy := behavior.motionClearDelay(base)

	base.MergeState(map[string]interface{}{"sensitivity": 1.0})
	eager := behavior.motionClearDelay(base)

	assert.Equal(t, 45*time.Second, lazy)
	assert.Equal(t, 15*time.Second, eager)
}

func TestMotionSensorSetSensitivityClamps(t *testing.T) {
	d := newTestDevice(t, "sensor_motion", Options{})

	result := d.ExecuteCommand(context.Background(), Command{
		Name:       "set_sensitivity",
		Parameters: map[string]interface{}{"sensitivity": 1.7},
	})

	require.True(t, result.Success)
	assert.Equal(t, 1.0, d.State()["sensitivity"])
}

func TestDoorSensorContactCommands(t *testing.T) {
	d := newTestDevice(t, "sensor_door", Options{})
	ctx := context.Background()

	result := d.ExecuteCommand(ctx, Command{Name: "open"})
	require.True(t, result.Success)
	assert.True(t, d.State()["open"].(bool))

	ev := nextEvent(t, d)
	assert.Equal(t, EventSensorTriggered, ev.Type)

	require.True(t, d.ExecuteCommand(ctx, Command{Name: "close"}).Success)
	assert.False(t, d.State()["open"].(bool))

	require.True(t, d.ExecuteCommand(ctx, Command{Name: "toggle"}).Success)
	assert.True(t, d.State()["open"].(bool))
}

func TestSensorCommandTablesAreClosedPerSubtype(t *testing.T) {
	tests := []struct {
		typeTag string
		command string
	}{
		{typeTag: "sensor_door", command: "trigger"},
		{typeTag: "sensor_motion", command: "open"},
		{typeTag: "sensor_temperature", command: "trigger"},
		{typeTag: "sensor_humidity", command: "open"},
	}
	for _, tt := range tests {
		t.Run(tt.typeTag+"_"+tt.command, func(t *testing.T) {
			d := newTestDevice(t, tt.typeTag, Options{})
			result := d.ExecuteCommand(context.Background(), Command{Name: tt.command})
			assert.False(t, result.Success)
			assert.Equal(t, "unknown command: "+tt.command, result.Error)
		})
	}
}

func TestContinuousSensorsApproachAmbient(t *testing.T) {
	env := environment.DefaultConditions()
	env.Temperature = 30.0
	env.Humidity = 60.0
	env.LightLevel = 800.0

	tests := []struct {
		typeTag  string
		key      string
		expected float64
	}{
		// Each reading closes its configured fraction of the gap per tick.
		{typeTag: "sensor_temperature", key: "temperature", expected: 23.7},
		{typeTag: "sensor_humidity", key: "humidity", expected: 49.5},
		{typeTag: "sensor_light", key: "illuminance", expected: 550},
	}
	for _, tt := range tests {
		t.Run(tt.typeTag, func(t *testing.T) {
			d := newTestDevice(t, tt.typeTag, Options{})
			d.UpdateEnvironment(env)

			d.ForceUpdate()

			assert.Equal(t, tt.expected, d.State()[tt.key])
			ev := nextEvent(t, d)
			assert.Equal(t, EventEnvironmentalChange, ev.Type)
		})
	}
}

func TestSensorCalibrationOffsetShiftsReading(t *testing.T) {
	d := newTestDevice(t, "sensor_temperature", Options{})
	ctx := context.Background()

	result := d.ExecuteCommand(ctx, Command{
		Name:       "calibrate",
		Parameters: map[string]interface{}{"offset": 2.0},
	})
	require.True(t, result.Success)

	env := environment.DefaultConditions()
	env.Temperature = 21.0
	d.UpdateEnvironment(env)
	d.ForceUpdate()

	// Reading chases ambient plus the offset: 21 + (23-21)*0.3.
	assert.Equal(t, 21.6, d.State()["temperature"])
}

func TestSensorCalibrateRequiresNumericOffset(t *testing.T) {
	d := newTestDevice(t, "sensor_humidity", Options{})

	result := d.ExecuteCommand(context.Background(), Command{
		Name:       "calibrate",
		Parameters: map[string]interface{}{"offset": "two"},
	})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "invalid_parameter")
}

func TestDrainBatteryEmitsLowEventOnce(t *testing.T) {
	d := newTestDevice(t, "sensor_motion", Options{})
	d.MergeState(map[string]interface{}{"battery_level": 16.0})

	drainBattery(d, 2.0)
	assert.Equal(t, 14.0, d.State()["battery_level"])

	ev := nextEvent(t, d)
	assert.Equal(t, EventBatteryLow, ev.Type)
	assert.Equal(t, 14.0, ev.Data["battery_level"])

	drainBattery(d, 2.0)
	assert.Equal(t, 12.0, d.State()["battery_level"])
	assert.Empty(t, drainEvents(d), "threshold crossing fires exactly once")
}

func TestDrainBatteryStopsAtZero(t *testing.T) {
	d := newTestDevice(t, "sensor_motion", Options{})
	d.MergeState(map[string]interface{}{"battery_level": 1.0})

	drainBattery(d, 5.0)
	assert.Equal(t, 0.0, d.State()["battery_level"])

	drainEvents(d)
	drainBattery(d, 5.0)
	assert.Equal(t, 0.0, d.State()["battery_level"])
	assert.Empty(t, drainEvents(d))
}
