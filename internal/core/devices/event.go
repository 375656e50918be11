package devices

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies events emitted by simulated devices
type EventType string

const (
	EventStateChange         EventType = "state_change"
	EventConnectionLost      EventType = "connection_lost"
	EventConnectionRestored  EventType = "connection_restored"
	EventBatteryLow          EventType = "battery_low"
	EventSensorTriggered     EventType = "sensor_triggered"
	EventError               EventType = "error"
	EventMaintenanceRequired EventType = "maintenance_required"
	EventFirmwareUpdate      EventType = "firmware_update"
	EventEnvironmentalChange EventType = "environmental_change"
	EventUserInteraction     EventType = "user_interaction"
)

// Event is an immutable record of something that happened on a device.
// Events are created by the emitting device only and are never mutated
// after creation.
type Event struct {
	ID        string                 `json:"id"`
	DeviceID  string                 `json:"device_id"`
	Type      EventType              `json:"type"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// EventListener receives events as they are dispatched. Listeners run
// inline in the per-device dispatch loop and should not block for long.
type EventListener func(Event)

func newEvent(deviceID string, eventType EventType, data map[string]interface{}) Event {
	return Event{
		ID:        uuid.New().String(),
		DeviceID:  deviceID,
		Type:      eventType,
		Data:      copyMap(data),
		Timestamp: time.Now(),
	}
}
