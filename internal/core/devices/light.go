package devices

import (
	"math"
	"time"

	"github.com/frostdev-ops/pma-simulator/internal/core/environment"
	"github.com/frostdev-ops/pma-simulator/pkg/errors"
)

const (
	lightMinColorTemp = 2700.0
	lightMaxColorTemp = 6500.0
)

type lightBehavior struct{}

func newLightBehavior() Behavior { return &lightBehavior{} }

func (b *lightBehavior) Type() DeviceType { return TypeLight }
func (b *lightBehavior) TypeTag() string  { return string(TypeLight) }

func (b *lightBehavior) Defaults() Defaults {
	return Defaults{Brand: "Philips", Model: "Hue White Ambiance", Integration: "zigbee"}
}

func (b *lightBehavior) InitialState() map[string]interface{} {
	return map[string]interface{}{
		"power":       false,
		"brightness":  100.0,
		"color_temp":  2700.0,
		"rgb_color":   []interface{}{255.0, 255.0, 255.0},
		"effect":      "none",
		"auto_adjust": false,
	}
}

func (b *lightBehavior) Attributes() map[string]interface{} {
	return map[string]interface{}{
		"supports_color":      true,
		"supports_color_temp": true,
		"supports_effects":    true,
		"min_color_temp":      lightMinColorTemp,
		"max_color_temp":      lightMaxColorTemp,
		"effects":             []interface{}{"none", "blink", "breathe", "colorloop"},
	}
}

func (b *lightBehavior) Features() []string {
	return []string{"power", "brightness", "color_temp", "rgb_color", "effects"}
}

func (b *lightBehavior) Commands() []string {
	return []string{
		"turn_on", "turn_off", "toggle",
		"set_brightness", "set_color_temp", "set_color",
		"set_effect", "set_auto_adjust",
	}
}

func (b *lightBehavior) UpdateInterval() time.Duration { return 45 * time.Second }

func (b *lightBehavior) HandleCommand(d *Device, cmd Command) (map[string]interface{}, error) {
	switch cmd.Name {
	case "turn_on":
		changes := map[string]interface{}{"power": true}
		if raw, given := cmd.Parameters["brightness"]; given {
			f, ok := asFloat(raw)
			if !ok {
				return nil, errors.WithDetails(errors.ErrInvalidParameter, "turn_on brightness must be numeric")
			}
			// Zero means "on at full", not "on but dark".
			if f == 0 {
				f = 100
			}
			changes["brightness"] = math.Round(clamp(f, 1, 100))
		}
		d.applyState(EventStateChange, changes, map[string]interface{}{"command": cmd.Name})
		return changes, nil

	case "turn_off":
		d.applyState(EventStateChange, map[string]interface{}{"power": false}, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{"power": false}, nil

	case "toggle":
		next := !d.stateBool("power")
		d.applyState(EventStateChange, map[string]interface{}{"power": next}, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{"power": next}, nil

	case "set_brightness":
		f, ok := asFloat(cmd.Parameters["brightness"])
		if !ok {
			return nil, errors.WithDetails(errors.ErrInvalidParameter, "set_brightness requires a numeric brightness")
		}
		level := math.Round(clamp(f, 1, 100))
		d.applyState(EventStateChange, map[string]interface{}{
			"brightness": level,
			"power":      true,
		}, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{"brightness": level}, nil

	case "set_color_temp":
		f, ok := asFloat(cmd.Parameters["color_temp"])
		if !ok {
			return nil, errors.WithDetails(errors.ErrInvalidParameter, "set_color_temp requires a numeric color_temp")
		}
		min := d.attrFloat("min_color_temp", lightMinColorTemp)
		max := d.attrFloat("max_color_temp", lightMaxColorTemp)
		kelvin := math.Round(clamp(f, min, max))
		d.applyState(EventStateChange, map[string]interface{}{"color_temp": kelvin}, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{"color_temp": kelvin}, nil

	case "set_color":
		raw, ok := cmd.Parameters["color"].([]interface{})
		if !ok || len(raw) != 3 {
			return nil, errors.WithDetails(errors.ErrInvalidParameter, "set_color requires a color array of three channel values")
		}
		rgb := make([]interface{}, 3)
		for i, ch := range raw {
			f, ok := asFloat(ch)
			if !ok {
				return nil, errors.WithDetails(errors.ErrInvalidParameter, "set_color channels must be numeric")
			}
			rgb[i] = math.Round(clamp(f, 0, 255))
		}
		d.applyState(EventStateChange, map[string]interface{}{"rgb_color": rgb}, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{"rgb_color": rgb}, nil

	case "set_effect":
		effect, ok := asString(cmd.Parameters["effect"])
		if !ok {
			return nil, errors.WithDetails(errors.ErrInvalidParameter, "set_effect requires an effect name")
		}
		if !attrListContains(d, "effects", effect) {
			return nil, errors.Detailsf(errors.ErrInvalidParameter, "unsupported effect %q", effect)
		}
		d.applyState(EventStateChange, map[string]interface{}{"effect": effect}, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{"effect": effect}, nil

	case "set_auto_adjust":
		enabled, ok := asBool(cmd.Parameters["enabled"])
		if !ok {
			return nil, errors.WithDetails(errors.ErrInvalidParameter, "set_auto_adjust requires a boolean enabled flag")
		}
		d.applyState(EventStateChange, map[string]interface{}{"auto_adjust": enabled}, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{"auto_adjust": enabled}, nil
	}
	return nil, errors.Detailsf(errors.ErrUnknownCommand, "light cannot handle %s", cmd.Name)
}

func (b *lightBehavior) RandomEvent(d *Device) *Event {
	roll := d.randomFloat()
	switch {
	case roll < 0.45:
		// Someone flips the wall switch.
		next := !d.stateBool("power")
		d.applyState(EventUserInteraction, map[string]interface{}{"power": next}, map[string]interface{}{"source": "physical_switch"})
		return nil
	case roll < 0.55:
		return &Event{
			Type: EventMaintenanceRequired,
			Data: map[string]interface{}{"reason": "bulb nearing end of rated life"},
		}
	}
	return nil
}

// UpdateTick moves the color temperature toward the time-of-day preset
// when auto adjust is enabled and the light is on.
func (b *lightBehavior) UpdateTick(d *Device, env environment.Conditions) {
	if !d.stateBool("auto_adjust") || !d.stateBool("power") {
		return
	}
	var target float64
	switch env.TimeOfDay {
	case environment.TimeDay:
		target = 5000
	case environment.TimeEvening:
		target = 3500
	default:
		target = 2700
	}
	cur := d.stateFloat("color_temp")
	if cur == target {
		return
	}
	const step = 500.0
	next := cur
	switch {
	case math.Abs(target-cur) <= step:
		next = target
	case target > cur:
		next = cur + step
	default:
		next = cur - step
	}
	d.applyState(EventStateChange, map[string]interface{}{"color_temp": next}, map[string]interface{}{"trigger": "auto_adjust"})
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// attrListContains checks membership of a value in a list attribute.
func attrListContains(d *Device, key, value string) bool {
	raw, ok := d.Attributes()[key]
	if !ok {
		return false
	}
	list, ok := asStringSlice(raw)
	if !ok {
		return false
	}
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
