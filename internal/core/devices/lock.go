package devices

import (
	"time"

	"github.com/frostdev-ops/pma-simulator/internal/core/environment"
	"github.com/frostdev-ops/pma-simulator/pkg/errors"
)

type lockBehavior struct{}

func newLockBehavior() Behavior { return &lockBehavior{} }

func (b *lockBehavior) Type() DeviceType { return TypeLock }
func (b *lockBehavior) TypeTag() string  { return string(TypeLock) }

func (b *lockBehavior) Defaults() Defaults {
	return Defaults{Brand: "Nuki", Model: "Smart Lock 3.0 Pro", Integration: "wifi"}
}

func (b *lockBehavior) InitialState() map[string]interface{} {
	return map[string]interface{}{
		"locked":          true,
		"jammed":          false,
		"auto_lock":       true,
		"auto_lock_delay": 30.0,
		"vacation_mode":   false,
		"battery_level":   100.0,
		"codes":           map[string]interface{}{"1234": "default"},
		"last_user":       "",
	}
}

func (b *lockBehavior) Attributes() map[string]interface{} {
	return map[string]interface{}{
		"battery_powered": true,
		"max_codes":       10.0,
	}
}

func (b *lockBehavior) Features() []string {
	return []string{"lock", "access_codes", "auto_lock", "vacation_mode", "battery"}
}

func (b *lockBehavior) Commands() []string {
	return []string{
		"lock", "unlock", "add_code", "remove_code",
		"set_auto_lock", "set_vacation_mode", "clear_jam",
	}
}

func (b *lockBehavior) UpdateInterval() time.Duration { return time.Minute }

func (b *lockBehavior) HandleCommand(d *Device, cmd Command) (map[string]interface{}, error) {
	switch cmd.Name {
	case "lock":
		if d.stateBool("jammed") {
			return nil, errors.WithDetails(errors.ErrDeviceJammed, "bolt is jammed, clear the jam first")
		}
		d.cancelAction("auto_relock")
		d.applyState(EventStateChange, map[string]interface{}{"locked": true}, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{"locked": true}, nil

	case "unlock":
		return b.handleUnlock(d, cmd)

	case "add_code":
		code, ok := asString(cmd.Parameters["code"])
		if !ok || code == "" {
			return nil, errors.WithDetails(errors.ErrInvalidParameter, "add_code requires a non-empty code")
		}
		name, _ := asString(cmd.Parameters["name"])
		if name == "" {
			name = "user"
		}
		codes := b.codes(d)
		if _, exists := codes[code]; !exists && float64(len(codes)) >= d.attrFloat("max_codes", 10) {
			return nil, errors.WithDetails(errors.ErrInvalidParameter, "access code slots exhausted")
		}
		codes[code] = name
		d.applyState(EventStateChange, map[string]interface{}{"codes": toCodeMap(codes)}, map[string]interface{}{"command": cmd.Name, "user": name})
		return map[string]interface{}{"codes": len(codes)}, nil

	case "remove_code":
		code, ok := asString(cmd.Parameters["code"])
		if !ok || code == "" {
			return nil, errors.WithDetails(errors.ErrInvalidParameter, "remove_code requires a code")
		}
		codes := b.codes(d)
		if _, exists := codes[code]; !exists {
			return nil, errors.WithDetails(errors.ErrInvalidParameter, "unknown access code")
		}
		delete(codes, code)
		d.applyState(EventStateChange, map[string]interface{}{"codes": toCodeMap(codes)}, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{"codes": len(codes)}, nil

	case "set_auto_lock":
		enabled, ok := asBool(cmd.Parameters["enabled"])
		if !ok {
			return nil, errors.WithDetails(errors.ErrInvalidParameter, "set_auto_lock requires a boolean enabled flag")
		}
		changes := map[string]interface{}{"auto_lock": enabled}
		if raw, given := cmd.Parameters["delay"]; given {
			delay, numeric := asFloat(raw)
			if !numeric || delay <= 0 {
				return nil, errors.WithDetails(errors.ErrInvalidParameter, "delay must be a positive number of seconds")
			}
			changes["auto_lock_delay"] = delay
		}
		if !enabled {
			d.cancelAction("auto_relock")
		}
		d.applyState(EventStateChange, changes, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{"auto_lock": enabled}, nil

	case "set_vacation_mode":
		enabled, ok := asBool(cmd.Parameters["enabled"])
		if !ok {
			return nil, errors.WithDetails(errors.ErrInvalidParameter, "set_vacation_mode requires a boolean enabled flag")
		}
		changes := map[string]interface{}{"vacation_mode": enabled}
		if enabled {
			changes["locked"] = true
			d.cancelAction("auto_relock")
		}
		d.applyState(EventStateChange, changes, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{"vacation_mode": enabled}, nil

	case "clear_jam":
		d.applyState(EventStateChange, map[string]interface{}{"jammed": false}, map[string]interface{}{"command": cmd.Name})
		return map[string]interface{}{"jammed": false}, nil
	}
	return nil, errors.Detailsf(errors.ErrUnknownCommand, "lock cannot handle %s", cmd.Name)
}

func (b *lockBehavior) handleUnlock(d *Device, cmd Command) (map[string]interface{}, error) {
	if d.stateBool("jammed") {
		return nil, errors.WithDetails(errors.ErrDeviceJammed, "bolt is jammed, clear the jam first")
	}
	if d.stateBool("vacation_mode") {
		return nil, errors.New("vacation_mode_active", "unlock rejected while vacation mode is active")
	}
	// A supplied code is validated against the code table. Without one
	// the caller-supplied identity is trusted as-is.
	user := "api"
	if raw, given := cmd.Parameters["code"]; given {
		code, ok := asString(raw)
		if !ok || code == "" {
			return nil, errors.WithDetails(errors.ErrInvalidParameter, "unlock code must be a non-empty string")
		}
		name, valid := b.codes(d)[code]
		if !valid {
			d.EmitEvent(EventError, map[string]interface{}{
				"command": cmd.Name,
				"reason":  "invalid_code",
			})
			return nil, errors.WithDetails(errors.ErrInvalidParameter, "invalid access code")
		}
		user = name
	} else if caller, _ := asString(cmd.Parameters["user"]); caller != "" {
		user = caller
	}
	d.applyState(EventStateChange, map[string]interface{}{
		"locked":    false,
		"last_user": user,
	}, map[string]interface{}{"command": cmd.Name, "user": user})
	if d.stateBool("auto_lock") {
		delay := time.Duration(d.stateFloat("auto_lock_delay") * float64(time.Second))
		if delay <= 0 {
			delay = 30 * time.Second
		}
		d.scheduleAction("auto_relock", delay, func() {
			if d.stateBool("locked") || d.stateBool("jammed") {
				return
			}
			d.applyState(EventStateChange, map[string]interface{}{"locked": true}, map[string]interface{}{"trigger": "auto_lock"})
		})
	}
	return map[string]interface{}{"locked": false, "user": user}, nil
}

// codes reads the access code table as a plain map.
func (b *lockBehavior) codes(d *Device) map[string]string {
	raw, ok := d.StateValue("codes")
	if !ok {
		return map[string]string{}
	}
	codes, ok := asStringMap(raw)
	if !ok {
		return map[string]string{}
	}
	return codes
}

func toCodeMap(codes map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(codes))
	for code, name := range codes {
		out[code] = name
	}
	return out
}

func (b *lockBehavior) RandomEvent(d *Device) *Event {
	roll := d.randomFloat()
	switch {
	case roll < 0.08:
		if !d.stateBool("jammed") {
			d.applyState(EventError, map[string]interface{}{"jammed": true}, map[string]interface{}{"reason": "mechanical_jam"})
		}
		return nil
	case roll < 0.3:
		if !d.stateBool("locked") && !d.stateBool("jammed") {
			// Someone throws the thumb turn from inside.
			d.cancelAction("auto_relock")
			d.applyState(EventUserInteraction, map[string]interface{}{
				"locked":    true,
				"last_user": "manual",
			}, map[string]interface{}{"source": "thumb_turn"})
		}
		return nil
	case roll > 0.85:
		drainBattery(d, d.randomBetween(0.5, 1.5))
	}
	return nil
}

func (b *lockBehavior) UpdateTick(d *Device, env environment.Conditions) {
	drainBattery(d, 0.05)
}
