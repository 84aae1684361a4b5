package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	sensors "sensor-cloud/internal/sensors/domain"
)

// SensorRepository stores sensor rows.
type SensorRepository struct {
	db *sql.DB
}

// NewSensorRepository constructs a repository.
func NewSensorRepository(db *sql.DB) *SensorRepository {
	return &SensorRepository{db: db}
}

const sensorColumns = `
s.sensor_id, s.sensor_name, s.sensor_type, s.sensor_location_id, s.sensor_status,
s.created_at, s.updated_at,
l.location_id, l.location_name, l.created_at, l.updated_at`

// ListWithLocations returns the full roster with the location join, newest first.
// This is the single roster query used by both the dashboard and the sweep.
func (r *SensorRepository) ListWithLocations(ctx context.Context) ([]sensors.Sensor, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("sensor repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+sensorColumns+`
FROM sensors s
LEFT JOIN locations l ON l.location_id = s.sensor_location_id
ORDER BY s.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []sensors.Sensor
	for rows.Next() {
		sensor, err := scanSensor(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, sensor)
	}
	return list, rows.Err()
}

// GetByID fetches one sensor with its location.
func (r *SensorRepository) GetByID(ctx context.Context, id string) (*sensors.Sensor, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("sensor repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+sensorColumns+`
FROM sensors s
LEFT JOIN locations l ON l.location_id = s.sensor_location_id
WHERE s.sensor_id = $1`, id)
	sensor, err := scanSensor(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &sensor, nil
}

// Create inserts a sensor row. Returns ErrNameTaken on a unique violation.
func (r *SensorRepository) Create(ctx context.Context, sensor *sensors.Sensor) error {
	if r == nil || r.db == nil {
		return errors.New("sensor repo: nil db")
	}
	var locationID any
	if sensor.LocationID != "" {
		locationID = sensor.LocationID
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO sensors (sensor_id, sensor_name, sensor_type, sensor_location_id, sensor_status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sensor.ID, sensor.Name, sensor.Type, locationID, sensor.Status, sensor.CreatedAt, sensor.UpdatedAt)
	if isUniqueViolation(err) {
		return sensors.ErrNameTaken
	}
	return err
}

// Update rewrites the mutable sensor fields.
func (r *SensorRepository) Update(ctx context.Context, sensor *sensors.Sensor) error {
	if r == nil || r.db == nil {
		return errors.New("sensor repo: nil db")
	}
	var locationID any
	if sensor.LocationID != "" {
		locationID = sensor.LocationID
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE sensors
SET sensor_name = $2, sensor_type = $3, sensor_location_id = $4, sensor_status = $5, updated_at = $6
WHERE sensor_id = $1`,
		sensor.ID, sensor.Name, sensor.Type, locationID, sensor.Status, sensor.UpdatedAt)
	if isUniqueViolation(err) {
		return sensors.ErrNameTaken
	}
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sensors.ErrNotFound
	}
	return nil
}

// Delete removes a sensor; readings cascade via the foreign key.
func (r *SensorRepository) Delete(ctx context.Context, id string) error {
	if r == nil || r.db == nil {
		return errors.New("sensor repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM sensors WHERE sensor_id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sensors.ErrNotFound
	}
	return nil
}

// UpdateStatusByIDs bulk-writes the persisted status for a set of sensors in a
// single statement.
func (r *SensorRepository) UpdateStatusByIDs(ctx context.Context, ids []string, status string, now time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("sensor repo: nil db")
	}
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
UPDATE sensors SET sensor_status = $1, updated_at = $2 WHERE sensor_id = ANY($3)`,
		status, now, ids)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSensor(row rowScanner) (sensors.Sensor, error) {
	var sensor sensors.Sensor
	var locationID sql.NullString
	var locID, locName sql.NullString
	var locCreated, locUpdated sql.NullTime
	if err := row.Scan(
		&sensor.ID,
		&sensor.Name,
		&sensor.Type,
		&locationID,
		&sensor.Status,
		&sensor.CreatedAt,
		&sensor.UpdatedAt,
		&locID,
		&locName,
		&locCreated,
		&locUpdated,
	); err != nil {
		return sensors.Sensor{}, err
	}
	if locationID.Valid {
		sensor.LocationID = locationID.String
	}
	if locID.Valid {
		sensor.Location = &sensors.Location{
			ID:        locID.String,
			Name:      locName.String,
			CreatedAt: locCreated.Time.UTC(),
			UpdatedAt: locUpdated.Time.UTC(),
		}
	}
	sensor.CreatedAt = sensor.CreatedAt.UTC()
	sensor.UpdatedAt = sensor.UpdatedAt.UTC()
	return sensor, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	// pgx wraps server errors with the SQLSTATE; 23505 is unique_violation.
	return strings.Contains(err.Error(), "23505")
}
