package devices

import (
	"time"

	"github.com/frostdev-ops/pma-simulator/internal/core/environment"
)

// Defaults supplies identity fields the caller did not set explicitly.
type Defaults struct {
	Brand       string
	Model       string
	Integration string
}

// Behavior is the per-variant capability contract. The Device engine owns
// the loops, the command pipeline, locking and event delivery; a Behavior
// only contributes the variant-specific pieces. Handlers and ticks are
// always invoked from a single goroutine at a time and use the Device
// accessors for state access.
type Behavior interface {
	// Type reports the base variant.
	Type() DeviceType
	// TypeTag reports the external type tag, which carries the sensor
	// subtype ("sensor_motion") where applicable.
	TypeTag() string
	// Defaults supplies brand, model and integration fallbacks.
	Defaults() Defaults
	// InitialState returns the variant's initial state map.
	InitialState() map[string]interface{}
	// Attributes returns static capability metadata.
	Attributes() map[string]interface{}
	// Features lists supported capability names.
	Features() []string
	// Commands lists the closed set of accepted command names.
	Commands() []string
	// HandleCommand executes a single validated command and returns a
	// result payload. Returning an error marks the command as failed.
	HandleCommand(d *Device, cmd Command) (map[string]interface{}, error)
	// RandomEvent produces a spontaneous device-appropriate event, or nil
	// for no event this round. The engine stamps identity and timestamp.
	RandomEvent(d *Device) *Event
	// UpdateTick advances continuous state one step against the ambient
	// conditions.
	UpdateTick(d *Device, env environment.Conditions)
	// UpdateInterval is the period of the state update loop.
	UpdateInterval() time.Duration
}
