package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	readings "sensor-cloud/internal/readings/domain"
	sensors "sensor-cloud/internal/sensors/domain"
)

// ErrValidation wraps request validation failures.
var ErrValidation = errors.New("validation failed")

// SensorStore persists sensor rows.
type SensorStore interface {
	ListWithLocations(ctx context.Context) ([]sensors.Sensor, error)
	GetByID(ctx context.Context, id string) (*sensors.Sensor, error)
	Create(ctx context.Context, sensor *sensors.Sensor) error
	Update(ctx context.Context, sensor *sensors.Sensor) error
	Delete(ctx context.Context, id string) error
}

// LocationStore persists location rows.
type LocationStore interface {
	List(ctx context.Context) ([]sensors.Location, error)
	GetByName(ctx context.Context, name string) (*sensors.Location, error)
	Create(ctx context.Context, loc *sensors.Location) error
}

// RecentReadingSource returns reading stamps within the trailing window.
type RecentReadingSource interface {
	RecentStamps(ctx context.Context, since time.Time) ([]readings.Stamp, error)
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Service handles sensor registration and roster queries.
type Service struct {
	store     SensorStore
	locations LocationStore
	recent    RecentReadingSource
	clock     Clock
	window    time.Duration
}

// ServiceOption customizes the service.
type ServiceOption func(*Service)

// WithClock assigns a clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithWindow overrides the activity window.
func WithWindow(window time.Duration) ServiceOption {
	return func(s *Service) {
		if window > 0 {
			s.window = window
		}
	}
}

// NewService constructs a sensor service.
func NewService(store SensorStore, locations LocationStore, recent RecentReadingSource, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("sensors: nil sensor store")
	}
	if locations == nil {
		return nil, errors.New("sensors: nil location store")
	}
	service := &Service{
		store:     store,
		locations: locations,
		recent:    recent,
		clock:     systemClock{},
		window:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// RegisterRequest is a device registration payload.
type RegisterRequest struct {
	SensorName   string `json:"sensorName"`
	SensorType   string `json:"sensorType"`
	LocationName string `json:"locationName"`
}

// Validate checks field constraints.
func (r RegisterRequest) Validate() error {
	name := strings.TrimSpace(r.SensorName)
	if len(name) < 3 || len(name) > 255 {
		return fmt.Errorf("%w: sensor name must be 3-255 characters", ErrValidation)
	}
	if len(strings.TrimSpace(r.SensorType)) < 3 {
		return fmt.Errorf("%w: sensor type must be at least 3 characters", ErrValidation)
	}
	if len(strings.TrimSpace(r.LocationName)) < 2 {
		return fmt.Errorf("%w: location name must be at least 2 characters", ErrValidation)
	}
	return nil
}

// Register creates a sensor, creating its location on demand.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*sensors.Sensor, error) {
	if s == nil {
		return nil, errors.New("sensors: nil service")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	locationName := strings.TrimSpace(req.LocationName)
	location, err := s.locations.GetByName(ctx, locationName)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	if location == nil {
		location = &sensors.Location{
			ID:        uuid.NewString(),
			Name:      locationName,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.locations.Create(ctx, location); err != nil {
			return nil, err
		}
	}
	sensor := &sensors.Sensor{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(req.SensorName),
		Type:       strings.TrimSpace(req.SensorType),
		LocationID: location.ID,
		Status:     sensors.StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
		Location:   location,
	}
	if err := s.store.Create(ctx, sensor); err != nil {
		return nil, err
	}
	return sensor, nil
}

// List returns the roster with a computed status attached to every sensor. The
// persisted status field is returned untouched so callers can see both.
func (s *Service) List(ctx context.Context) ([]sensors.Sensor, error) {
	if s == nil {
		return nil, errors.New("sensors: nil service")
	}
	list, err := s.store.ListWithLocations(ctx)
	if err != nil {
		return nil, err
	}
	recent := make(map[string]struct{})
	if s.recent != nil {
		since := s.clock.Now().UTC().Add(-s.window)
		stamps, err := s.recent.RecentStamps(ctx, since)
		if err == nil {
			for _, stamp := range stamps {
				recent[stamp.SensorID] = struct{}{}
			}
		}
	}
	for i := range list {
		if _, ok := recent[list[i].ID]; ok {
			list[i].ComputedStatus = sensors.StatusActive
		} else {
			list[i].ComputedStatus = sensors.StatusInactive
		}
	}
	return list, nil
}

// Get fetches one sensor.
func (s *Service) Get(ctx context.Context, id string) (*sensors.Sensor, error) {
	if s == nil {
		return nil, errors.New("sensors: nil service")
	}
	if id == "" {
		return nil, sensors.ErrNotFound
	}
	sensor, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sensor == nil {
		return nil, sensors.ErrNotFound
	}
	return sensor, nil
}

// UpdateRequest carries editable sensor fields.
type UpdateRequest struct {
	SensorName string `json:"sensorName"`
	SensorType string `json:"sensorType"`
	Status     string `json:"sensorStatus"`
}

// Update edits a sensor's name, type or persisted status.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*sensors.Sensor, error) {
	if s == nil {
		return nil, errors.New("sensors: nil service")
	}
	sensor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(req.SensorName); name != "" {
		if len(name) < 3 || len(name) > 255 {
			return nil, fmt.Errorf("%w: sensor name must be 3-255 characters", ErrValidation)
		}
		sensor.Name = name
	}
	if typ := strings.TrimSpace(req.SensorType); typ != "" {
		if len(typ) < 3 {
			return nil, fmt.Errorf("%w: sensor type must be at least 3 characters", ErrValidation)
		}
		sensor.Type = typ
	}
	if req.Status != "" {
		if req.Status != sensors.StatusActive && req.Status != sensors.StatusInactive {
			return nil, fmt.Errorf("%w: status must be active or inactive", ErrValidation)
		}
		sensor.Status = req.Status
	}
	sensor.UpdatedAt = s.clock.Now().UTC()
	if err := s.store.Update(ctx, sensor); err != nil {
		return nil, err
	}
	return sensor, nil
}

// Delete removes a sensor and, via the schema cascade, its readings.
func (s *Service) Delete(ctx context.Context, id string) error {
	if s == nil {
		return errors.New("sensors: nil service")
	}
	if id == "" {
		return sensors.ErrNotFound
	}
	return s.store.Delete(ctx, id)
}

// Locations lists all known locations.
func (s *Service) Locations(ctx context.Context) ([]sensors.Location, error) {
	if s == nil {
		return nil, errors.New("sensors: nil service")
	}
	return s.locations.List(ctx)
}
