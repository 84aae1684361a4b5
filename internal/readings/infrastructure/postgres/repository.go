package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	readings "sensor-cloud/internal/readings/domain"
)

// ReadingRepository stores sensor readings.
type ReadingRepository struct {
	db *sql.DB
}

// NewReadingRepository constructs a repository.
func NewReadingRepository(db *sql.DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// Insert appends one reading.
func (r *ReadingRepository) Insert(ctx context.Context, reading *readings.Reading) error {
	if r == nil || r.db == nil {
		return errors.New("reading repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO sensor_data (id, sensor_id, data_value, data_type, data_timestamp, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		reading.ID, reading.SensorID, reading.Value, reading.Type, reading.Timestamp, reading.CreatedAt)
	return err
}

// ListBySensorSince returns a sensor's readings with timestamp >= since,
// ascending.
func (r *ReadingRepository) ListBySensorSince(ctx context.Context, sensorID string, since time.Time) ([]readings.Reading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("reading repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, sensor_id, data_value, data_type, data_timestamp, created_at
FROM sensor_data
WHERE sensor_id = $1 AND data_timestamp >= $2
ORDER BY data_timestamp ASC`, sensorID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []readings.Reading
	for rows.Next() {
		var reading readings.Reading
		if err := rows.Scan(&reading.ID, &reading.SensorID, &reading.Value, &reading.Type, &reading.Timestamp, &reading.CreatedAt); err != nil {
			return nil, err
		}
		reading.Timestamp = reading.Timestamp.UTC()
		reading.CreatedAt = reading.CreatedAt.UTC()
		list = append(list, reading)
	}
	return list, rows.Err()
}

// RecentStamps returns every (sensor_id, timestamp) pair with timestamp >=
// since, across all sensors, in one query. The lower bound is inclusive.
func (r *ReadingRepository) RecentStamps(ctx context.Context, since time.Time) ([]readings.Stamp, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("reading repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT sensor_id, data_timestamp
FROM sensor_data
WHERE data_timestamp >= $1`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stamps []readings.Stamp
	for rows.Next() {
		var stamp readings.Stamp
		if err := rows.Scan(&stamp.SensorID, &stamp.Timestamp); err != nil {
			return nil, err
		}
		stamp.Timestamp = stamp.Timestamp.UTC()
		stamps = append(stamps, stamp)
	}
	return stamps, rows.Err()
}
