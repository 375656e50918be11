package devices

import (
	"fmt"
	"strings"
	"time"

	"github.com/frostdev-ops/pma-simulator/pkg/errors"
)

// DeviceType identifies a simulated device variant.
type DeviceType string

const (
	TypeLight      DeviceType = "light"
	TypeThermostat DeviceType = "thermostat"
	TypeSensor     DeviceType = "sensor"
	TypeCamera     DeviceType = "camera"
	TypeLock       DeviceType = "lock"
	TypeSwitch     DeviceType = "switch"
	TypeHub        DeviceType = "hub"
)

// SensorType narrows the sensor variant to a measured quantity.
type SensorType string

const (
	SensorMotion      SensorType = "motion"
	SensorDoor        SensorType = "door"
	SensorTemperature SensorType = "temperature"
	SensorHumidity    SensorType = "humidity"
	SensorLight       SensorType = "light"
)

// Info carries the immutable identity of a device. It is fixed at
// creation time and safe to read without locking.
type Info struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Type        DeviceType `json:"type"`
	Brand       string     `json:"brand"`
	Model       string     `json:"model"`
	Integration string     `json:"integration"`
	Location    string     `json:"location"`
}

// Snapshot is the portable representation of a device used for
// configuration export and import.
type Snapshot struct {
	ID       string                 `json:"id"`
	Type     string                 `json:"type"`
	Name     string                 `json:"name"`
	Brand    string                 `json:"brand,omitempty"`
	Model    string                 `json:"model,omitempty"`
	Location string                 `json:"location,omitempty"`
	State    map[string]interface{} `json:"state"`
}

// Options tunes the simulation behavior of a single device.
type Options struct {
	ResponseDelay  time.Duration
	FailureRate    float64
	RandomEvents   bool
	RandomEventMin time.Duration
	RandomEventMax time.Duration
	QueueSize      int
}

// NewBehavior builds the behavior implementation for a type tag. Sensor
// subtypes are addressed as "sensor_<subtype>"; a bare "sensor" defaults
// to a motion sensor.
func NewBehavior(typeTag string) (Behavior, error) {
	switch DeviceType(typeTag) {
	case TypeLight:
		return newLightBehavior(), nil
	case TypeThermostat:
		return newThermostatBehavior(), nil
	case TypeSensor:
		return newSensorBehavior(SensorMotion), nil
	case TypeCamera:
		return newCameraBehavior(), nil
	case TypeLock:
		return newLockBehavior(), nil
	case TypeSwitch:
		return newSwitchBehavior(), nil
	case TypeHub:
		return newHubBehavior(), nil
	}
	if sub, ok := strings.CutPrefix(typeTag, "sensor_"); ok {
		switch SensorType(sub) {
		case SensorMotion, SensorDoor, SensorTemperature, SensorHumidity, SensorLight:
			return newSensorBehavior(SensorType(sub)), nil
		}
	}
	return nil, errors.Detailsf(errors.ErrUnknownDeviceType, "unsupported device type %q", typeTag)
}

// ValidTypeTags lists every type tag accepted by NewBehavior, used for
// error messages and configuration validation.
func ValidTypeTags() []string {
	return []string{
		string(TypeLight), string(TypeThermostat), string(TypeSensor),
		string(TypeCamera), string(TypeLock), string(TypeSwitch), string(TypeHub),
		fmt.Sprintf("sensor_%s", SensorMotion), fmt.Sprintf("sensor_%s", SensorDoor),
		fmt.Sprintf("sensor_%s", SensorTemperature), fmt.Sprintf("sensor_%s", SensorHumidity),
		fmt.Sprintf("sensor_%s", SensorLight),
	}
}
