package postgres

import (
	"context"
	"database/sql"
	"errors"

	sensors "sensor-cloud/internal/sensors/domain"
)

// LocationRepository stores location rows.
type LocationRepository struct {
	db *sql.DB
}

// NewLocationRepository constructs a repository.
func NewLocationRepository(db *sql.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// List returns all locations ordered by name.
func (r *LocationRepository) List(ctx context.Context) ([]sensors.Location, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("location repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT location_id, location_name, created_at, updated_at
FROM locations
ORDER BY location_name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []sensors.Location
	for rows.Next() {
		var loc sensors.Location
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.CreatedAt, &loc.UpdatedAt); err != nil {
			return nil, err
		}
		loc.CreatedAt = loc.CreatedAt.UTC()
		loc.UpdatedAt = loc.UpdatedAt.UTC()
		list = append(list, loc)
	}
	return list, rows.Err()
}

// GetByName fetches a location by its unique name.
func (r *LocationRepository) GetByName(ctx context.Context, name string) (*sensors.Location, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("location repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT location_id, location_name, created_at, updated_at
FROM locations
WHERE location_name = $1`, name)
	var loc sensors.Location
	if err := row.Scan(&loc.ID, &loc.Name, &loc.CreatedAt, &loc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	loc.CreatedAt = loc.CreatedAt.UTC()
	loc.UpdatedAt = loc.UpdatedAt.UTC()
	return &loc, nil
}

// Create inserts a location row.
func (r *LocationRepository) Create(ctx context.Context, loc *sensors.Location) error {
	if r == nil || r.db == nil {
		return errors.New("location repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO locations (location_id, location_name, created_at, updated_at)
VALUES ($1, $2, $3, $4)`,
		loc.ID, loc.Name, loc.CreatedAt, loc.UpdatedAt)
	return err
}
