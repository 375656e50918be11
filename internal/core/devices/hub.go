package devices

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/frostdev-ops/pma-simulator/internal/core/environment"
	"github.com/frostdev-ops/pma-simulator/pkg/errors"
)

// DeviceResolver looks up registered devices so the hub can manage the
// connectivity of its children.
type DeviceResolver func(id string) (*Device, bool)

// HubBehavior bridges child devices: it tracks membership, simulates
// gateway resource usage and can briefly drop a child's connectivity.
type HubBehavior struct {
	mu       sync.RWMutex
	resolver DeviceResolver
}

func newHubBehavior() *HubBehavior { return &HubBehavior{} }

// SetResolver wires the registry lookup used to validate and toggle
// children.
func (b *HubBehavior) SetResolver(r DeviceResolver) {
	b.mu.Lock()
	b.resolver = r
	b.mu.Unlock()
}

func (b *HubBehavior) lookup(id string) (*Device, bool) {
	b.mu.RLock()
	r := b.resolver
	b.mu.RUnlock()
	if r == nil {
		return nil, false
	}
	return r(id)
}

func (b *HubBehavior) hasResolver() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.resolver != nil
}

func (b *HubBehavior) Type() DeviceType { return TypeHub }
func (b *HubBehavior) TypeTag() string  { return string(TypeHub) }

func (b *HubBehavior) Defaults() Defaults {
	return Defaults{Brand: "PMA", Model: "Gateway G2", Integration: "ethernet"}
}

func (b *HubBehavior) InitialState() map[string]interface{} {
	return map[string]interface{}{
		"child_devices":    []interface{}{},
		"cpu_usage":        12.0,
		"memory_usage":     34.0,
		"temperature":      38.0,
		"firmware_version": "2.4.1",
		"uptime_seconds":   0.0,
	}
}

func (b *HubBehavior) Attributes() map[string]interface{} {
	return map[string]interface{}{
		"max_children":             32.0,
		"restart_seconds":          5.0,
		"firmware_stage_seconds":   2.0,
		"child_outage_min_seconds": 5.0,
		"child_outage_max_seconds": 15.0,
	}
}

func (b *HubBehavior) Features() []string {
	return []string{"bridge", "firmware", "diagnostics"}
}

func (b *HubBehavior) Commands() []string {
	return []string{"add_device", "remove_device", "list_devices", "restart", "update_firmware"}
}

func (b *HubBehavior) UpdateInterval() time.Duration { return 20 * time.Second }

func (b *HubBehavior) HandleCommand(d *Device, cmd Command) (map[string]interface{}, error) {
	switch cmd.Name {
	case "add_device":
		id, ok := asString(cmd.Parameters["device_id"])
		if !ok || id == "" {
			return nil, errors.WithDetails(errors.ErrInvalidParameter, "add_device requires a device_id")
		}
		if id == d.ID() {
			return nil, errors.WithDetails(errors.ErrInvalidParameter, "hub cannot bridge itself")
		}
		if b.hasResolver() {
			if _, found := b.lookup(id); !found {
				return nil, errors.Detailsf(errors.ErrDeviceNotFound, "no registered device %s", id)
			}
		}
		children := b.children(d)
		for _, child := range children {
			if child == id {
				return map[string]interface{}{"child_devices": children, "count": len(children)}, nil
			}
		}
		if float64(len(children)) >= d.attrFloat("max_children", 32) {
			return nil, errors.WithDetails(errors.ErrInvalidParameter, "hub capacity reached")
		}
		children = append(children, id)
		d.applyState(EventStateChange, map[string]interface{}{"child_devices": toValueList(children)}, map[string]interface{}{
			"command":   cmd.Name,
			"device_id": id,
		})
		return map[string]interface{}{"child_devices": children, "count": len(children)}, nil

	case "remove_device":
		id, ok := asString(cmd.Parameters["device_id"])
		if !ok || id == "" {
			return nil, errors.WithDetails(errors.ErrInvalidParameter, "remove_device requires a device_id")
		}
		children := b.children(d)
		kept := make([]string, 0, len(children))
		removed := false
		for _, child := range children {
			if child == id {
				removed = true
				continue
			}
			kept = append(kept, child)
		}
		if !removed {
			return nil, errors.Detailsf(errors.ErrInvalidParameter, "device %s is not bridged by this hub", id)
		}
		d.applyState(EventStateChange, map[string]interface{}{"child_devices": toValueList(kept)}, map[string]interface{}{
			"command":   cmd.Name,
			"device_id": id,
		})
		return map[string]interface{}{"child_devices": kept, "count": len(kept)}, nil

	case "list_devices":
		children := b.children(d)
		return map[string]interface{}{"devices": children, "count": len(children)}, nil

	case "restart":
		downtime := d.attrFloat("restart_seconds", 5)
		d.EmitEvent(EventMaintenanceRequired, map[string]interface{}{"status": "restart_initiated"})
		d.SetOnline(false)
		d.scheduleAction("restart_complete", time.Duration(downtime*float64(time.Second)), func() {
			d.setState(map[string]interface{}{"uptime_seconds": 0.0, "cpu_usage": 10.0})
			d.SetOnline(true)
			d.EmitEvent(EventMaintenanceRequired, map[string]interface{}{"status": "restart_complete"})
		})
		return map[string]interface{}{"status": "restarting", "expected_downtime_seconds": downtime}, nil

	case "update_firmware":
		current := d.stateString("firmware_version")
		next, _ := asString(cmd.Parameters["version"])
		if next == "" {
			next = bumpPatch(current)
		}
		if next == current {
			return map[string]interface{}{"status": "up_to_date", "firmware_version": current}, nil
		}
		stage := time.Duration(d.attrFloat("firmware_stage_seconds", 2) * float64(time.Second))
		d.EmitEvent(EventFirmwareUpdate, map[string]interface{}{"status": "downloading", "version": next})
		d.scheduleAction("firmware_install", stage, func() {
			d.EmitEvent(EventFirmwareUpdate, map[string]interface{}{"status": "installing", "version": next})
		})
		d.scheduleAction("firmware_complete", 2*stage, func() {
			d.applyState(EventFirmwareUpdate, map[string]interface{}{"firmware_version": next}, map[string]interface{}{"status": "complete"})
		})
		return map[string]interface{}{"status": "updating", "version": next}, nil
	}
	return nil, errors.Detailsf(errors.ErrUnknownCommand, "hub cannot handle %s", cmd.Name)
}

func (b *HubBehavior) children(d *Device) []string {
	raw, ok := d.StateValue("child_devices")
	if !ok {
		return nil
	}
	list, ok := asStringSlice(raw)
	if !ok {
		return nil
	}
	return list
}

func toValueList(items []string) []interface{} {
	out := make([]interface{}, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

func bumpPatch(version string) string {
	parts := strings.Split(version, ".")
	if len(parts) == 3 {
		if patch, err := strconv.Atoi(parts[2]); err == nil {
			return fmt.Sprintf("%s.%s.%d", parts[0], parts[1], patch+1)
		}
	}
	return version + ".1"
}

// RandomEvent occasionally drops one child off the network for a short
// window; the child emits its own connection events.
func (b *HubBehavior) RandomEvent(d *Device) *Event {
	roll := d.randomFloat()
	switch {
	case roll < 0.35:
		children := b.children(d)
		if len(children) == 0 {
			return nil
		}
		id := children[d.randomIndex(len(children))]
		child, found := b.lookup(id)
		if !found || !child.Online() {
			return nil
		}
		child.SetOnline(false)
		minOut := d.attrFloat("child_outage_min_seconds", 5)
		maxOut := d.attrFloat("child_outage_max_seconds", 15)
		restoreAfter := time.Duration(d.randomBetween(minOut, maxOut) * float64(time.Second))
		d.scheduleAction("child_restore_"+id, restoreAfter, func() {
			child.SetOnline(true)
		})
		return nil
	case roll < 0.45:
		return &Event{
			Type: EventMaintenanceRequired,
			Data: map[string]interface{}{"reason": "diagnostics recommended"},
		}
	}
	return nil
}

// UpdateTick wanders the gateway resource readings and accumulates
// uptime. A spike past 90% CPU raises a one-time maintenance event.
func (b *HubBehavior) UpdateTick(d *Device, env environment.Conditions) {
	cpu := d.stateFloat("cpu_usage")
	nextCPU := math.Round(clamp(cpu+d.randomBetween(-5, 5), 3, 95)*10) / 10
	mem := math.Round(clamp(d.stateFloat("memory_usage")+d.randomBetween(-3, 3), 10, 90)*10) / 10
	temp := math.Round((30+nextCPU*0.25+d.randomBetween(-1, 1))*10) / 10
	uptime := d.stateFloat("uptime_seconds") + b.UpdateInterval().Seconds()

	d.setState(map[string]interface{}{
		"cpu_usage":      nextCPU,
		"memory_usage":   mem,
		"temperature":    temp,
		"uptime_seconds": uptime,
	})
	if cpu <= 90 && nextCPU > 90 {
		d.EmitEvent(EventMaintenanceRequired, map[string]interface{}{
			"reason":    "sustained high cpu",
			"cpu_usage": nextCPU,
		})
	}
}
