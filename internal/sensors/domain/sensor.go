package domain

import (
	"errors"
	"time"
)

// Sensor statuses persisted on the sensor row. The persisted status is a cache
// written by the inactivity sweep; the computed status is derived fresh from
// recent readings and the two may disagree between sweeps.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

var (
	// ErrNotFound indicates the sensor does not exist.
	ErrNotFound = errors.New("sensor not found")
	// ErrNameTaken indicates the sensor name is already registered.
	ErrNameTaken = errors.New("sensor name already exists")
)

// Location groups sensors by physical placement.
type Location struct {
	ID        string    `json:"location_id"`
	Name      string    `json:"location_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Sensor is a registered virtual sensor.
type Sensor struct {
	ID         string    `json:"sensor_id"`
	Name       string    `json:"sensor_name"`
	Type       string    `json:"sensor_type"`
	LocationID string    `json:"sensor_location_id,omitempty"`
	Status     string    `json:"sensor_status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Location *Location `json:"location,omitempty"`

	// ComputedStatus is derived from reading timestamps at query time and is
	// never persisted. It is the source of truth for alerting.
	ComputedStatus string `json:"computed_status,omitempty"`
}

// LocationName returns the location name or a fallback.
func (s Sensor) LocationName() string {
	if s.Location != nil && s.Location.Name != "" {
		return s.Location.Name
	}
	return "Unknown"
}
