package devices

import (
	"math"
	"time"

	"github.com/frostdev-ops/pma-simulator/internal/core/environment"
	"github.com/frostdev-ops/pma-simulator/pkg/errors"
)

type switchBehavior struct{}

func newSwitchBehavior() Behavior { return &switchBehavior{} }

func (b *switchBehavior) Type() DeviceType { return TypeSwitch }
func (b *switchBehavior) TypeTag() string  { return string(TypeSwitch) }

func (b *switchBehavior) Defaults() Defaults {
	return Defaults{Brand: "Shelly", Model: "Plus Plug S", Integration: "wifi"}
}

func (b *switchBehavior) InitialState() map[string]interface{} {
	return map[string]interface{}{
		"on":         false,
		"power_w":    0.0,
		"voltage":    230.0,
		"current_a":  0.0,
		"energy_kwh": 0.0,
		"child_lock": false,
	}
}

func (b *switchBehavior) Attributes() map[string]interface{} {
	return map[string]interface{}{
		"max_load_w":    1800.0,
		"base_load_w":   120.0,
		"load_jitter_w": 40.0,
	}
}

func (b *switchBehavior) Features() []string {
	return []string{"power", "energy_monitoring", "child_lock"}
}

func (b *switchBehavior) Commands() []string {
	return []string{"turn_on", "turn_off", "toggle", "set_child_lock", "reset_energy"}
}

func (b *switchBehavior) UpdateInterval() time.Duration { return 15 * time.Second }

func (b *switchBehavior) HandleCommand(d *Device, cmd Command) (map[string]interface{}, error) {
	switch cmd.Name {
	case "turn_on":
		if d.stateBool("child_lock") {
			return nil, errors.WithDetails(errors.ErrChildLockActive, "relay is locked")
		}
		load := math.Round(b.sampleLoad(d)*10) / 10
		voltage := math.Round(d.randomBetween(228, 232)*10) / 10
		current := math.Round(load/voltage*100) / 100
		maxLoad := d.attrFloat("max_load_w", 1800)
		if load > maxLoad {
			// Overload protection trips the relay straight back off.
			d.applyState(EventError, map[string]interface{}{
				"on":        false,
				"power_w":   0.0,
				"current_a": 0.0,
			}, map[string]interface{}{
				"reason":     "overload_protection",
				"load_w":     load,
				"max_load_w": maxLoad,
			})
			return map[string]interface{}{"on": false, "tripped": true, "load_w": load}, nil
		}
		d.applyState(EventStateChange, map[string]interface{}{
			"on":        true,
			"power_w":   load,
			"voltage":   voltage,
			"current_a": current,
		}, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{"on": true, "power_w": load}, nil

	case "turn_off":
		if d.stateBool("child_lock") {
			return nil, errors.WithDetails(errors.ErrChildLockActive, "relay is locked")
		}
		d.applyState(EventStateChange, map[string]interface{}{
			"on":        false,
			"power_w":   0.0,
			"current_a": 0.0,
		}, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{"on": false}, nil

	case "toggle":
		next := "turn_on"
		if d.stateBool("on") {
			next = "turn_off"
		}
		return b.HandleCommand(d, Command{Name: next})

	case "set_child_lock":
		enabled, ok := asBool(cmd.Parameters["enabled"])
		if !ok {
			return nil, errors.WithDetails(errors.ErrInvalidParameter, "set_child_lock requires a boolean enabled flag")
		}
		d.applyState(EventStateChange, map[string]interface{}{"child_lock": enabled}, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{"child_lock": enabled}, nil

	case "reset_energy":
		d.applyState(EventStateChange, map[string]interface{}{"energy_kwh": 0.0}, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{"energy_kwh": 0.0}, nil
	}
	return nil, errors.Detailsf(errors.ErrUnknownCommand, "switch cannot handle %s", cmd.Name)
}

func (b *switchBehavior) sampleLoad(d *Device) float64 {
	base := d.attrFloat("base_load_w", 120)
	jitter := d.attrFloat("load_jitter_w", 40)
	return math.Max(0, base+d.randomBetween(-jitter, jitter))
}

func (b *switchBehavior) RandomEvent(d *Device) *Event {
	roll := d.randomFloat()
	switch {
	case roll < 0.35 && !d.stateBool("child_lock"):
		next := "turn_on"
		if d.stateBool("on") {
			next = "turn_off"
		}
		// Physical button press, runs the same relay path as the command.
		if _, err := b.HandleCommand(d, Command{Name: next}); err == nil {
			d.EmitEvent(EventUserInteraction, map[string]interface{}{"source": "button", "action": next})
		}
		return nil
	case roll < 0.45 && d.stateBool("on"):
		sag := math.Round(d.randomBetween(200, 215)*10) / 10
		d.applyState(EventStateChange, map[string]interface{}{"voltage": sag}, map[string]interface{}{"trigger": "voltage_sag"})
		return nil
	}
	return nil
}

// UpdateTick accumulates energy and wobbles the live power reading while
// the relay is closed. The wobble stays silent; a wobble past the load
// limit still trips protection.
func (b *switchBehavior) UpdateTick(d *Device, env environment.Conditions) {
	if !d.stateBool("on") {
		return
	}
	power := d.stateFloat("power_w")
	hours := b.UpdateInterval().Hours()
	energy := d.stateFloat("energy_kwh") + power*hours/1000

	next := math.Round(power*d.randomBetween(0.98, 1.02)*10) / 10
	voltage := d.stateFloat("voltage")
	current := 0.0
	if voltage > 0 {
		current = math.Round(next/voltage*100) / 100
	}
	maxLoad := d.attrFloat("max_load_w", 1800)
	if next > maxLoad {
		d.applyState(EventError, map[string]interface{}{
			"on":        false,
			"power_w":   0.0,
			"current_a": 0.0,
		}, map[string]interface{}{
			"reason":     "overload_protection",
			"load_w":     next,
			"max_load_w": maxLoad,
		})
		return
	}
	d.setState(map[string]interface{}{
		"power_w":    next,
		"current_a":  current,
		"energy_kwh": energy,
	})
}
