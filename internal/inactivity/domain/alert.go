package domain

import "time"

// KindInactiveSensor is the only alert kind currently recorded.
const KindInactiveSensor = "inactive_sensor"

// AlertRecord is one row of the append-only alert ledger. The ledger exists
// solely to suppress duplicate notifications within the rolling window; rows
// are never updated or deleted.
type AlertRecord struct {
	ID        string    `json:"id"`
	SensorID  string    `json:"sensor_id"`
	Kind      string    `json:"alert_type"`
	Recipient string    `json:"recipient_email"`
	SentAt    time.Time `json:"alert_sent_at"`
}
