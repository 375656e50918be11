package devices

import (
	"math"
	"time"

	"github.com/frostdev-ops/pma-simulator/internal/core/environment"
	"github.com/frostdev-ops/pma-simulator/pkg/errors"
)

// thermostatDeadband is the hysteresis band around the target that keeps
// heating and cooling from oscillating on every tick.
const thermostatDeadband = 0.5

var thermostatPresets = map[string]float64{
	"eco":     18.0,
	"comfort": 22.0,
	"away":    16.0,
	"boost":   24.0,
}

type thermostatBehavior struct{}

func newThermostatBehavior() Behavior { return &thermostatBehavior{} }

func (b *thermostatBehavior) Type() DeviceType { return TypeThermostat }
func (b *thermostatBehavior) TypeTag() string  { return string(TypeThermostat) }

func (b *thermostatBehavior) Defaults() Defaults {
	return Defaults{Brand: "Tado", Model: "Smart Thermostat V3+", Integration: "wifi"}
}

func (b *thermostatBehavior) InitialState() map[string]interface{} {
	return map[string]interface{}{
		"mode":                "off",
		"target_temperature":  21.0,
		"current_temperature": 21.0,
		"is_heating":          false,
		"is_cooling":          false,
		"fan_mode":            "auto",
		"swing_mode":          "off",
		"preset":              "none",
		"humidity":            45.0,
	}
}

func (b *thermostatBehavior) Attributes() map[string]interface{} {
	return map[string]interface{}{
		"min_temp":  5.0,
		"max_temp":  35.0,
		"modes":     []interface{}{"off", "heat", "cool", "auto"},
		"fan_modes": []interface{}{"auto", "low", "medium", "high"},
		"presets":   []interface{}{"none", "eco", "comfort", "away", "boost"},
	}
}

func (b *thermostatBehavior) Features() []string {
	return []string{"temperature", "mode", "fan_mode", "swing", "presets", "humidity"}
}

func (b *thermostatBehavior) Commands() []string {
	return []string{"set_mode", "set_temperature", "set_fan_mode", "set_swing", "set_preset"}
}

func (b *thermostatBehavior) UpdateInterval() time.Duration { return 30 * time.Second }

func (b *thermostatBehavior) HandleCommand(d *Device, cmd Command) (map[string]interface{}, error) {
	switch cmd.Name {
	case "set_mode":
		mode, ok := asString(cmd.Parameters["mode"])
		if !ok || !attrListContains(d, "modes", mode) {
			return nil, errors.Detailsf(errors.ErrInvalidParameter, "invalid thermostat mode %v", cmd.Parameters["mode"])
		}
		changes := map[string]interface{}{"mode": mode}
		if mode == "off" {
			changes["is_heating"] = false
			changes["is_cooling"] = false
		}
		d.applyState(EventStateChange, changes, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{"mode": mode}, nil

	case "set_temperature":
		f, ok := asFloat(cmd.Parameters["temperature"])
		if !ok {
			return nil, errors.WithDetails(errors.ErrInvalidParameter, "set_temperature requires a numeric temperature")
		}
		target := clamp(f, d.attrFloat("min_temp", 5), d.attrFloat("max_temp", 35))
		d.applyState(EventStateChange, map[string]interface{}{
			"target_temperature": target,
			"preset":             "none",
		}, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{"target_temperature": target}, nil

	case "set_fan_mode":
		mode, ok := asString(cmd.Parameters["fan_mode"])
		if !ok || !attrListContains(d, "fan_modes", mode) {
			return nil, errors.Detailsf(errors.ErrInvalidParameter, "invalid fan mode %v", cmd.Parameters["fan_mode"])
		}
		d.applyState(EventStateChange, map[string]interface{}{"fan_mode": mode}, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{"fan_mode": mode}, nil

	case "set_swing":
		enabled, ok := asBool(cmd.Parameters["enabled"])
		if !ok {
			return nil, errors.WithDetails(errors.ErrInvalidParameter, "set_swing requires a boolean enabled flag")
		}
		mode := "off"
		if enabled {
			mode = "on"
		}
		d.applyState(EventStateChange, map[string]interface{}{"swing_mode": mode}, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{"swing_mode": mode}, nil

	case "set_preset":
		preset, ok := asString(cmd.Parameters["preset"])
		if !ok || !attrListContains(d, "presets", preset) {
			return nil, errors.Detailsf(errors.ErrInvalidParameter, "invalid preset %v", cmd.Parameters["preset"])
		}
		changes := map[string]interface{}{"preset": preset}
		if target, found := thermostatPresets[preset]; found {
			changes["target_temperature"] = target
		}
		d.applyState(EventStateChange, changes, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{"preset": preset}, nil
	}
	return nil, errors.Detailsf(errors.ErrUnknownCommand, "thermostat cannot handle %s", cmd.Name)
}

func (b *thermostatBehavior) RandomEvent(d *Device) *Event {
	roll := d.randomFloat()
	switch {
	case roll < 0.25:
		return &Event{
			Type: EventMaintenanceRequired,
			Data: map[string]interface{}{"reason": "air filter replacement due"},
		}
	case roll < 0.4:
		return &Event{
			Type: EventFirmwareUpdate,
			Data: map[string]interface{}{"status": "available"},
		}
	}
	return nil
}

// UpdateTick applies the hysteresis control loop and the room physics.
// Heating engages when the room drops a full deadband below target and
// stays engaged until the target is reached; cooling mirrors that above
// target. With both idle the room drifts toward ambient at a rate
// proportional to the difference.
func (b *thermostatBehavior) UpdateTick(d *Device, env environment.Conditions) {
	state := d.State()
	mode, _ := asString(state["mode"])
	cur, _ := asFloat(state["current_temperature"])
	target, _ := asFloat(state["target_temperature"])
	heating, _ := asBool(state["is_heating"])
	cooling, _ := asBool(state["is_cooling"])

	switch mode {
	case "heat":
		cooling = false
		if cur <= target-thermostatDeadband {
			heating = true
		} else if cur >= target {
			heating = false
		}
	case "cool":
		heating = false
		if cur >= target+thermostatDeadband {
			cooling = true
		} else if cur <= target {
			cooling = false
		}
	case "auto":
		if cur <= target-thermostatDeadband {
			heating, cooling = true, false
		} else if cur >= target+thermostatDeadband {
			heating, cooling = false, true
		} else {
			if heating && cur >= target {
				heating = false
			}
			if cooling && cur <= target {
				cooling = false
			}
		}
	default:
		heating, cooling = false, false
	}

	next := cur
	switch {
	case heating:
		next = cur + 0.3
	case cooling:
		next = cur - 0.3
	default:
		next = cur + (env.Temperature-cur)*0.1
	}
	next = math.Round(next*10) / 10

	humidity, _ := asFloat(state["humidity"])
	humidity = math.Round((humidity+(env.Humidity-humidity)*0.05)*10) / 10

	d.applyState(EventStateChange, map[string]interface{}{
		"current_temperature": next,
		"is_heating":          heating,
		"is_cooling":          cooling,
		"humidity":            humidity,
	}, map[string]interface{}{"trigger": "climate_tick"})
}
