package application

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	readings "sensor-cloud/internal/readings/domain"
	sensors "sensor-cloud/internal/sensors/domain"
)

// ErrInvalidValue indicates a non-finite reading value.
var ErrInvalidValue = errors.New("value must be a finite number")

// ReadingStore persists readings.
type ReadingStore interface {
	Insert(ctx context.Context, reading *readings.Reading) error
	ListBySensorSince(ctx context.Context, sensorID string, since time.Time) ([]readings.Reading, error)
}

// SensorReader resolves sensors for type tagging.
type SensorReader interface {
	GetByID(ctx context.Context, id string) (*sensors.Sensor, error)
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Service handles reading submission and history queries.
type Service struct {
	store   ReadingStore
	sensors SensorReader
	clock   Clock
	window  time.Duration
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

// NewService constructs a readings service.
func NewService(store ReadingStore, sensorReader SensorReader, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("readings: nil store")
	}
	if sensorReader == nil {
		return nil, errors.New("readings: nil sensor reader")
	}
	service := &Service{
		store:   store,
		sensors: sensorReader,
		clock:   systemClock{},
		window:  24 * time.Hour,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Submit validates and appends one reading, copying the type tag from the
// sensor. A zero timestamp defaults to the insert time.
func (s *Service) Submit(ctx context.Context, sensorID string, value float64, at time.Time) (*readings.Reading, error) {
	if s == nil {
		return nil, errors.New("readings: nil service")
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, ErrInvalidValue
	}
	sensor, err := s.sensors.GetByID(ctx, sensorID)
	if err != nil {
		return nil, err
	}
	if sensor == nil {
		return nil, sensors.ErrNotFound
	}
	now := s.clock.Now().UTC()
	if at.IsZero() {
		at = now
	}
	reading := &readings.Reading{
		ID:        uuid.NewString(),
		SensorID:  sensor.ID,
		Value:     value,
		Type:      sensor.Type,
		Timestamp: at.UTC(),
		CreatedAt: now,
	}
	if err := s.store.Insert(ctx, reading); err != nil {
		return nil, err
	}
	return reading, nil
}

// History returns the trailing-window readings for one sensor, ascending.
func (s *Service) History(ctx context.Context, sensorID string) ([]readings.Reading, error) {
	if s == nil {
		return nil, errors.New("readings: nil service")
	}
	since := s.clock.Now().UTC().Add(-s.window)
	return s.store.ListBySensorSince(ctx, sensorID, since)
}
