package apihttp

import (
	"context"
	"database/sql"
	"time"
)

// Store runs the dashboard and export queries against Postgres.
type Store struct {
	db *sql.DB
}

// NewStore constructs a Store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const dashboardStatsQuery = `
SELECT
	(SELECT COUNT(*) FROM sensors),
	(SELECT COUNT(*) FROM sensors WHERE sensor_status = 'active'),
	(SELECT COUNT(*) FROM sensors WHERE sensor_status = 'inactive'),
	(SELECT COUNT(*) FROM locations),
	(SELECT COUNT(*) FROM sensor_data WHERE data_timestamp >= NOW() - INTERVAL '24 hours'),
	(SELECT COUNT(*) FROM alert_history WHERE alert_sent_at >= NOW() - INTERVAL '24 hours')`

// DashboardStats returns the aggregate counters in one round trip.
func (s *Store) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}
	err := s.db.QueryRowContext(ctx, dashboardStatsQuery).Scan(
		&stats.TotalSensors,
		&stats.ActiveSensors,
		&stats.InactiveSensors,
		&stats.TotalLocations,
		&stats.ReadingsLastDay,
		&stats.AlertsLastDay,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

const readingsRangeQuery = `
SELECT
	d.sensor_id,
	s.sensor_name,
	s.sensor_type,
	COALESCE(l.location_name, ''),
	d.data_value,
	d.data_type,
	d.data_timestamp
FROM sensor_data d
JOIN sensors s ON s.sensor_id = d.sensor_id
LEFT JOIN locations l ON l.location_id = s.sensor_location_id
WHERE d.data_timestamp >= $1
	AND d.data_timestamp < $2`

// ListRange returns readings in [from, to), ascending, optionally filtered
// to one sensor.
func (s *Store) ListRange(ctx context.Context, sensorID string, from, to time.Time) ([]ReadingRow, error) {
	query := readingsRangeQuery
	args := []any{from.UTC(), to.UTC()}
	if sensorID != "" {
		query += " AND d.sensor_id = $3"
		args = append(args, sensorID)
	}
	query += " ORDER BY d.data_timestamp ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ReadingRow
	for rows.Next() {
		var row ReadingRow
		if err := rows.Scan(
			&row.SensorID,
			&row.SensorName,
			&row.SensorType,
			&row.Location,
			&row.Value,
			&row.DataType,
			&row.Timestamp,
		); err != nil {
			return nil, err
		}
		row.Timestamp = row.Timestamp.UTC()
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
