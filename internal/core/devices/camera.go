package devices

import (
	"fmt"
	"time"

	"github.com/frostdev-ops/pma-simulator/internal/core/environment"
	"github.com/frostdev-ops/pma-simulator/pkg/errors"
)

type cameraBehavior struct{}

func newCameraBehavior() Behavior { return &cameraBehavior{} }

func (b *cameraBehavior) Type() DeviceType { return TypeCamera }
func (b *cameraBehavior) TypeTag() string  { return string(TypeCamera) }

func (b *cameraBehavior) Defaults() Defaults {
	return Defaults{Brand: "Reolink", Model: "E1 Outdoor Pro", Integration: "wifi"}
}

func (b *cameraBehavior) InitialState() map[string]interface{} {
	return map[string]interface{}{
		"recording":           false,
		"streaming":           false,
		"privacy_mode":        false,
		"night_vision":        "auto",
		"night_vision_active": false,
		"resolution":          "1080p",
		"pan":                 0.0,
		"tilt":                0.0,
		"zoom":                1.0,
		"motion_detection":    true,
	}
}

func (b *cameraBehavior) Attributes() map[string]interface{} {
	return map[string]interface{}{
		"resolutions":      []interface{}{"720p", "1080p", "2k", "4k"},
		"pan_min":          -180.0,
		"pan_max":          180.0,
		"tilt_min":         -90.0,
		"tilt_max":         90.0,
		"zoom_min":         1.0,
		"zoom_max":         10.0,
		"night_vision_lux": 10.0,
	}
}

func (b *cameraBehavior) Features() []string {
	return []string{"recording", "streaming", "snapshot", "ptz", "night_vision", "privacy", "motion_detection"}
}

func (b *cameraBehavior) Commands() []string {
	return []string{
		"start_recording", "stop_recording",
		"start_streaming", "stop_streaming",
		"set_privacy", "set_night_vision", "set_resolution",
		"ptz_move", "snapshot", "set_motion_detection",
	}
}

func (b *cameraBehavior) UpdateInterval() time.Duration { return 30 * time.Second }

func (b *cameraBehavior) HandleCommand(d *Device, cmd Command) (map[string]interface{}, error) {
	switch cmd.Name {
	case "start_recording":
		if d.stateBool("privacy_mode") {
			return nil, errors.WithDetails(errors.ErrPrivacyMode, "recording blocked while privacy mode is active")
		}
		d.applyState(EventStateChange, map[string]interface{}{"recording": true}, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{"recording": true}, nil

	case "stop_recording":
		d.applyState(EventStateChange, map[string]interface{}{"recording": false}, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{"recording": false}, nil

	case "start_streaming":
		if d.stateBool("privacy_mode") {
			return nil, errors.WithDetails(errors.ErrPrivacyMode, "streaming blocked while privacy mode is active")
		}
		d.applyState(EventStateChange, map[string]interface{}{"streaming": true}, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{
			"streaming":  true,
			"stream_url": fmt.Sprintf("rtsp://sim.local/%s/live", d.ID()),
		}, nil

	case "stop_streaming":
		d.applyState(EventStateChange, map[string]interface{}{"streaming": false}, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{"streaming": false}, nil

	case "set_privacy":
		enabled, ok := asBool(cmd.Parameters["enabled"])
		if !ok {
			return nil, errors.WithDetails(errors.ErrInvalidParameter, "set_privacy requires a boolean enabled flag")
		}
		changes := map[string]interface{}{"privacy_mode": enabled}
		if enabled {
			// Privacy shutters everything that captures the room.
			changes["recording"] = false
			changes["streaming"] = false
		}
		d.applyState(EventStateChange, changes, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{"privacy_mode": enabled}, nil

	case "set_night_vision":
		mode, ok := asString(cmd.Parameters["mode"])
		if !ok || (mode != "auto" && mode != "on" && mode != "off") {
			return nil, errors.Detailsf(errors.ErrInvalidParameter, "invalid night vision mode %v", cmd.Parameters["mode"])
		}
		changes := map[string]interface{}{"night_vision": mode}
		switch mode {
		case "on":
			changes["night_vision_active"] = true
		case "off":
			changes["night_vision_active"] = false
		default:
			changes["night_vision_active"] = d.Environment().LightLevel < d.attrFloat("night_vision_lux", 10)
		}
		d.applyState(EventStateChange, changes, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{"night_vision": mode}, nil

	case "set_resolution":
		res, ok := asString(cmd.Parameters["resolution"])
		if !ok || !attrListContains(d, "resolutions", res) {
			return nil, errors.Detailsf(errors.ErrInvalidParameter, "unsupported resolution %v", cmd.Parameters["resolution"])
		}
		d.applyState(EventStateChange, map[string]interface{}{"resolution": res}, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{"resolution": res}, nil

	case "ptz_move":
		changes := make(map[string]interface{})
		if raw, ok := cmd.Parameters["pan"]; ok {
			f, numeric := asFloat(raw)
			if !numeric {
				return nil, errors.WithDetails(errors.ErrInvalidParameter, "pan must be numeric")
			}
			changes["pan"] = clamp(f, d.attrFloat("pan_min", -180), d.attrFloat("pan_max", 180))
		}
		if raw, ok := cmd.Parameters["tilt"]; ok {
			f, numeric := asFloat(raw)
			if !numeric {
				return nil, errors.WithDetails(errors.ErrInvalidParameter, "tilt must be numeric")
			}
			changes["tilt"] = clamp(f, d.attrFloat("tilt_min", -90), d.attrFloat("tilt_max", 90))
		}
		if raw, ok := cmd.Parameters["zoom"]; ok {
			f, numeric := asFloat(raw)
			if !numeric {
				return nil, errors.WithDetails(errors.ErrInvalidParameter, "zoom must be numeric")
			}
			changes["zoom"] = clamp(f, d.attrFloat("zoom_min", 1), d.attrFloat("zoom_max", 10))
		}
		if len(changes) == 0 {
			return nil, errors.WithDetails(errors.ErrInvalidParameter, "ptz_move requires at least one of pan, tilt, zoom")
		}
		d.applyState(EventStateChange, changes, map[string]interface{}{"command": cmd.Name})
		return changes, nil

	case "snapshot":
		if d.stateBool("privacy_mode") {
			return nil, errors.WithDetails(errors.ErrPrivacyMode, "snapshot blocked while privacy mode is active")
		}
		return map[string]interface{}{
			"snapshot_url": fmt.Sprintf("simulated://%s/snapshot_%d.jpg", d.ID(), time.Now().Unix()),
			"resolution":   d.stateString("resolution"),
		}, nil

	case "set_motion_detection":
		enabled, ok := asBool(cmd.Parameters["enabled"])
		if !ok {
			return nil, errors.WithDetails(errors.ErrInvalidParameter, "set_motion_detection requires a boolean enabled flag")
		}
		d.applyState(EventStateChange, map[string]interface{}{"motion_detection": enabled}, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{"motion_detection": enabled}, nil
	}
	return nil, errors.Detailsf(errors.ErrUnknownCommand, "camera cannot handle %s", cmd.Name)
}

func (b *cameraBehavior) RandomEvent(d *Device) *Event {
	roll := d.randomFloat()
	switch {
	case roll < 0.3 && d.stateBool("motion_detection") && !d.stateBool("privacy_mode"):
		return &Event{
			Type: EventSensorTriggered,
			Data: map[string]interface{}{"detection": "motion", "zone": "default"},
		}
	case roll < 0.45:
		return &Event{
			Type: EventFirmwareUpdate,
			Data: map[string]interface{}{"status": "available"},
		}
	case roll < 0.55:
		return &Event{
			Type: EventMaintenanceRequired,
			Data: map[string]interface{}{"reason": "lens cleaning recommended"},
		}
	}
	return nil
}

// UpdateTick toggles night vision against ambient light when the mode is
// auto.
func (b *cameraBehavior) UpdateTick(d *Device, env environment.Conditions) {
	if d.stateString("night_vision") != "auto" {
		return
	}
	active := env.LightLevel < d.attrFloat("night_vision_lux", 10)
	if active == d.stateBool("night_vision_active") {
		return
	}
	d.applyState(EventStateChange, map[string]interface{}{"night_vision_active": active}, map[string]interface{}{"trigger": "ambient_light"})
}
