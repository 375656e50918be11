// Package models defines the database representations of simulator
// records.
package models

import (
	"encoding/json"
	"time"
)

// EventRecord is a persisted device event.
type EventRecord struct {
	ID        string          `db:"id" json:"id"`
	DeviceID  string          `db:"device_id" json:"device_id"`
	Type      string          `db:"type" json:"type"`
	Data      json.RawMessage `db:"data" json:"data,omitempty"`
	Timestamp time.Time       `db:"timestamp" json:"timestamp"`
}
