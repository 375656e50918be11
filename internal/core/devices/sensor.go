package devices

import (
	"fmt"
	"math"
	"time"

	"github.com/frostdev-ops/pma-simulator/internal/core/environment"
	"github.com/frostdev-ops/pma-simulator/pkg/errors"
)

// batteryLowThreshold is the level at which a battery powered device
// raises its one-time low battery event.
const batteryLowThreshold = 15.0

type sensorBehavior struct {
	subtype SensorType
}

func newSensorBehavior(subtype SensorType) Behavior {
	return &sensorBehavior{subtype: subtype}
}

func (b *sensorBehavior) Type() DeviceType { return TypeSensor }

func (b *sensorBehavior) TypeTag() string {
	return fmt.Sprintf("sensor_%s", b.subtype)
}

func (b *sensorBehavior) Defaults() Defaults {
	model := map[SensorType]string{
		SensorMotion:      "Motion Sensor P1",
		SensorDoor:        "Door and Window Sensor",
		SensorTemperature: "Temperature Sensor T1",
		SensorHumidity:    "Humidity Sensor H1",
		SensorLight:       "Light Sensor T1",
	}[b.subtype]
	return Defaults{Brand: "Aqara", Model: model, Integration: "zigbee"}
}

func (b *sensorBehavior) InitialState() map[string]interface{} {
	switch b.subtype {
	case SensorDoor:
		return map[string]interface{}{
			"open":           false,
			"battery_level":  100.0,
			"last_triggered": "",
		}
	case SensorTemperature:
		return map[string]interface{}{
			"temperature":        21.0,
			"calibration_offset": 0.0,
			"battery_level":      100.0,
		}
	case SensorHumidity:
		return map[string]interface{}{
			"humidity":           45.0,
			"calibration_offset": 0.0,
			"battery_level":      100.0,
		}
	case SensorLight:
		return map[string]interface{}{
			"illuminance":        300.0,
			"calibration_offset": 0.0,
			"battery_level":      100.0,
		}
	default:
		return map[string]interface{}{
			"motion":         false,
			"sensitivity":    0.5,
			"battery_level":  100.0,
			"last_triggered": "",
		}
	}
}

func (b *sensorBehavior) Attributes() map[string]interface{} {
	attrs := map[string]interface{}{
		"battery_powered": true,
	}
	switch b.subtype {
	case SensorMotion:
		attrs["motion_clear_seconds"] = 30.0
	case SensorTemperature:
		attrs["unit"] = "°C"
	case SensorHumidity:
		attrs["unit"] = "%"
	case SensorLight:
		attrs["unit"] = "lx"
	}
	return attrs
}

func (b *sensorBehavior) Features() []string {
	switch b.subtype {
	case SensorDoor:
		return []string{"contact", "battery"}
	case SensorTemperature:
		return []string{"temperature", "battery"}
	case SensorHumidity:
		return []string{"humidity", "battery"}
	case SensorLight:
		return []string{"illuminance", "battery"}
	default:
		return []string{"motion", "battery"}
	}
}

func (b *sensorBehavior) Commands() []string {
	switch b.subtype {
	case SensorMotion:
		return []string{"trigger", "set_sensitivity"}
	case SensorDoor:
		return []string{"open", "close", "toggle"}
	default:
		return []string{"calibrate"}
	}
}

func (b *sensorBehavior) UpdateInterval() time.Duration { return 30 * time.Second }

func (b *sensorBehavior) HandleCommand(d *Device, cmd Command) (map[string]interface{}, error) {
	switch cmd.Name {
	case "trigger":
		b.triggerMotion(d)
		return map[string]interface{}{"motion": true}, nil

	case "set_sensitivity":
		f, ok := asFloat(cmd.Parameters["sensitivity"])
		if !ok {
			return nil, errors.WithDetails(errors.ErrInvalidParameter, "set_sensitivity requires a numeric sensitivity")
		}
		sens := clamp(f, 0, 1)
		d.applyState(EventStateChange, map[string]interface{}{"sensitivity": sens}, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{"sensitivity": sens}, nil

	case "open", "close", "toggle":
		target := true
		switch cmd.Name {
		case "close":
			target = false
		case "toggle":
			target = !d.stateBool("open")
		}
		d.applyState(EventSensorTriggered, map[string]interface{}{
			"open":           target,
			"last_triggered": time.Now().Format(time.RFC3339),
		}, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{"open": target}, nil

	case "calibrate":
		f, ok := asFloat(cmd.Parameters["offset"])
		if !ok {
			return nil, errors.WithDetails(errors.ErrInvalidParameter, "calibrate requires a numeric offset")
		}
		d.applyState(EventStateChange, map[string]interface{}{"calibration_offset": f}, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{"calibration_offset": f}, nil
	}
	return nil, errors.Detailsf(errors.ErrUnknownCommand, "%s sensor cannot handle %s", b.subtype, cmd.Name)
}

// triggerMotion raises the motion flag and arms the sensitivity scaled
// auto-clear timer. Re-triggering extends the active window.
func (b *sensorBehavior) triggerMotion(d *Device) {
	d.applyState(EventSensorTriggered, map[string]interface{}{
		"motion":         true,
		"last_triggered": time.Now().Format(time.RFC3339),
	}, nil)
	d.scheduleAction("motion_clear", b.motionClearDelay(d), func() {
		d.applyState(EventStateChange, map[string]interface{}{"motion": false}, map[string]interface{}{"trigger": "auto_clear"})
	})
}

// motionClearDelay scales the base clear window by sensitivity: a more
// sensitive sensor re-arms faster.
func (b *sensorBehavior) motionClearDelay(d *Device) time.Duration {
	base := d.attrFloat("motion_clear_seconds", 30)
	sens := clamp(d.stateFloat("sensitivity"), 0, 1)
	return time.Duration(base * (1.5 - sens) * float64(time.Second))
}

func (b *sensorBehavior) RandomEvent(d *Device) *Event {
	roll := d.randomFloat()
	switch b.subtype {
	case SensorMotion:
		if roll < 0.3 && !d.stateBool("motion") {
			b.triggerMotion(d)
			return nil
		}
	case SensorDoor:
		if roll < 0.3 {
			next := !d.stateBool("open")
			d.applyState(EventSensorTriggered, map[string]interface{}{
				"open":           next,
				"last_triggered": time.Now().Format(time.RFC3339),
			}, map[string]interface{}{"source": "resident"})
			return nil
		}
	default:
		if roll < 0.25 {
			drift := math.Round(d.randomBetween(-0.3, 0.3)*100) / 100
			offset := d.stateFloat("calibration_offset") + drift
			d.applyState(EventStateChange, map[string]interface{}{
				"calibration_offset": math.Round(offset*100) / 100,
			}, map[string]interface{}{"trigger": "sensor_drift"})
			return nil
		}
	}
	if roll > 0.8 {
		drainBattery(d, d.randomBetween(0.5, 2.0))
	}
	return nil
}

func (b *sensorBehavior) UpdateTick(d *Device, env environment.Conditions) {
	switch b.subtype {
	case SensorMotion:
		if env.Motion && !d.stateBool("motion") {
			sens := clamp(d.stateFloat("sensitivity"), 0, 1)
			if d.randomFloat() < 0.3+0.6*sens {
				b.triggerMotion(d)
			}
		}
	case SensorDoor:
		// Contact state only moves on commands and random events.
	case SensorTemperature:
		b.approach(d, "temperature", env.Temperature, 0.3, 1)
	case SensorHumidity:
		b.approach(d, "humidity", env.Humidity, 0.3, 1)
	case SensorLight:
		b.approach(d, "illuminance", env.LightLevel, 0.5, 0)
	}
	drainBattery(d, 0.02)
}

// approach moves a continuous reading toward the ambient target plus the
// calibration offset. Sub-epsilon movement is absorbed by rounding and
// emits nothing.
func (b *sensorBehavior) approach(d *Device, key string, ambient, rate float64, decimals int) {
	target := ambient + d.stateFloat("calibration_offset")
	cur := d.stateFloat(key)
	next := cur + (target-cur)*rate
	scale := math.Pow(10, float64(decimals))
	next = math.Round(next*scale) / scale
	if next == cur {
		return
	}
	d.applyState(EventEnvironmentalChange, map[string]interface{}{key: next}, nil)
}

// drainBattery lowers battery_level on battery powered devices, emitting
// a single low battery event when the threshold is first crossed.
func drainBattery(d *Device, amount float64) {
	raw, ok := d.StateValue("battery_level")
	if !ok {
		return
	}
	old, ok := asFloat(raw)
	if !ok || old <= 0 {
		return
	}
	next := math.Round(math.Max(0, old-amount)*100) / 100
	if next == old {
		return
	}
	d.setState(map[string]interface{}{"battery_level": next})
	if old > batteryLowThreshold && next <= batteryLowThreshold {
		d.EmitEvent(EventBatteryLow, map[string]interface{}{"battery_level": next})
	}
}
