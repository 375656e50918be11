package devices

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostdev-ops/pma-simulator/internal/core/environment"
)

func TestThermostatHeatingEngagesBelowDeadband(t *testing.T) {
	d := newTestDevice(t, "thermostat", Options{})
	d.MergeState(map[string]interface{}{
		"mode":                "heat",
		"target_temperature":  22.0,
		"current_temperature": 21.5,
	})
	env := environment.DefaultConditions()
	env.Temperature = 18.0
	d.UpdateEnvironment(env)

	d.ForceUpdate()

	state := d.State()
	assert.True(t, state["is_heating"].(bool), "half a degree below target engages heating")
	assert.False(t, state["is_cooling"].(bool))
	assert.Equal(t, 21.8, state["current_temperature"])
}

func TestThermostatHeatingReleasesAtTarget(t *testing.T) {
	d := newTestDevice(t, "thermostat", Options{})
	d.MergeState(map[string]interface{}{
		"mode":                "heat",
		"target_temperature":  22.0,
		"current_temperature": 21.5,
	})
	env := environment.DefaultConditions()
	env.Temperature = 18.0
	d.UpdateEnvironment(env)

	// 21.5 -> 21.8 -> 22.1, then the burner shuts off.
	d.ForceUpdate()
	d.ForceUpdate()
	require.Equal(t, 22.1, d.State()["current_temperature"])
	require.True(t, d.State()["is_heating"].(bool))

	d.ForceUpdate()
	assert.False(t, d.State()["is_heating"].(bool), "reaching target releases heating")
}

func TestThermostatNeverHeatsAndCoolsTogether(t *testing.T) {
	d := newTestDevice(t, "thermostat", Options{})
	d.MergeState(map[string]interface{}{"mode": "auto"})
	ctx := context.Background()

	targets := []float64{30, 5, 22, 35, 10}
	for _, target := range targets {
		result := d.ExecuteCommand(ctx, Command{
			Name:       "set_temperature",
			Parameters: map[string]interface{}{"temperature": target},
		})
		require.True(t, result.Success)
		for i := 0; i < 8; i++ {
			d.ForceUpdate()
			state := d.State()
			heating := state["is_heating"].(bool)
			cooling := state["is_cooling"].(bool)
			assert.False(t, heating && cooling, "heating and cooling are mutually exclusive")
		}
	}
}

func TestThermostatCoolingMirrorsHeating(t *testing.T) {
	d := newTestDevice(t, "thermostat", Options{})
	d.MergeState(map[string]interface{}{
		"mode":                "cool",
		"target_temperature":  20.0,
		"current_temperature": 24.0,
	})

	d.ForceUpdate()

	state := d.State()
	assert.True(t, state["is_cooling"].(bool))
	assert.False(t, state["is_heating"].(bool))
	assert.Equal(t, 23.7, state["current_temperature"])
}

func TestThermostatIdleDriftsTowardAmbient(t *testing.T) {
	d := newTestDevice(t, "thermostat", Options{})
	d.MergeState(map[string]interface{}{
		"mode":                "off",
		"current_temperature": 25.0,
	})
	env := environment.DefaultConditions()
	env.Temperature = 20.0
	d.UpdateEnvironment(env)

	d.ForceUpdate()

	// Drift is a tenth of the gap per tick.
	assert.Equal(t, 24.5, d.State()["current_temperature"])
	assert.False(t, d.State()["is_heating"].(bool))
	assert.False(t, d.State()["is_cooling"].(bool))
}

func TestThermostatSetTemperatureClampsAndClearsPreset(t *testing.T) {
	d := newTestDevice(t, "thermostat", Options{})
	ctx := context.Background()

	result := d.ExecuteCommand(ctx, Command{
		Name:       "set_preset",
		Parameters: map[string]interface{}{"preset": "eco"},
	})
	require.True(t, result.Success)
	assert.Equal(t, 18.0, d.State()["target_temperature"])
	assert.Equal(t, "eco", d.State()["preset"])

	result = d.ExecuteCommand(ctx, Command{
		Name:       "set_temperature",
		Parameters: map[string]interface{}{"temperature": 50},
	})
	require.True(t, result.Success)
	assert.Equal(t, 35.0, d.State()["target_temperature"], "clamped to max_temp")
	assert.Equal(t, "none", d.State()["preset"], "manual target clears the preset")
}

func TestThermostatPresetTargets(t *testing.T) {
	tests := []struct {
		preset string
		target float64
	}{
		{preset: "eco", target: 18},
		{preset: "comfort", target: 22},
		{preset: "away", target: 16},
		{preset: "boost", target: 24},
	}
	for _, tt := range tests {
		t.Run(tt.preset, func(t *testing.T) {
			d := newTestDevice(t, "thermostat", Options{})
			result := d.ExecuteCommand(context.Background(), Command{
				Name:       "set_preset",
				Parameters: map[string]interface{}{"preset": tt.preset},
			})
			require.True(t, result.Success)
			assert.Equal(t, tt.target, d.State()["target_temperature"])
		})
	}
}

func TestThermostatSetModeOffStopsConditioning(t *testing.T) {
	d := newTestDevice(t, "thermostat", Options{})
	d.MergeState(map[string]interface{}{"is_heating": true})

	result := d.ExecuteCommand(context.Background(), Command{
		Name:       "set_mode",
		Parameters: map[string]interface{}{"mode": "off"},
	})

	require.True(t, result.Success)
	assert.False(t, d.State()["is_heating"].(bool))
	assert.False(t, d.State()["is_cooling"].(bool))
}

func TestThermostatRejectsInvalidMode(t *testing.T) {
	d := newTestDevice(t, "thermostat", Options{})

	result := d.ExecuteCommand(context.Background(), Command{
		Name:       "set_mode",
		Parameters: map[string]interface{}{"mode": "turbo"},
	})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "invalid_parameter")
}
