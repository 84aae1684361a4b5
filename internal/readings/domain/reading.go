package domain

import "time"

// Reading is one immutable sensor measurement. Rows are append-only.
type Reading struct {
	ID        string    `json:"id"`
	SensorID  string    `json:"sensor_id"`
	Value     float64   `json:"data_value"`
	Type      string    `json:"data_type"`
	Timestamp time.Time `json:"data_timestamp"`
	CreatedAt time.Time `json:"created_at"`
}

// Stamp is the (sensor_id, timestamp) projection used for activity checks. The
// value is deliberately dropped; classification only needs existence.
type Stamp struct {
	SensorID  string
	Timestamp time.Time
}
