package application

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	readings "sensor-cloud/internal/readings/domain"
	sensors "sensor-cloud/internal/sensors/domain"
)

type memStore struct {
	inserted []*readings.Reading
	since    time.Time
}

func (m *memStore) Insert(_ context.Context, reading *readings.Reading) error {
	m.inserted = append(m.inserted, reading)
	return nil
}

func (m *memStore) ListBySensorSince(_ context.Context, _ string, since time.Time) ([]readings.Reading, error) {
	m.since = since
	return nil, nil
}

type memReader struct {
	sensors map[string]*sensors.Sensor
}

func (m *memReader) GetByID(_ context.Context, id string) (*sensors.Sensor, error) {
	return m.sensors[id], nil
}

type fixedClock struct {
	at time.Time
}

func (c fixedClock) Now() time.Time { return c.at }

var serviceNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newFixedService(t *testing.T, store *memStore, reader *memReader) *Service {
	t.Helper()
	service, err := NewService(store, reader, WithClock(fixedClock{at: serviceNow}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func TestSubmitDefaultsTimestampToClock(t *testing.T) {
	store := &memStore{}
	reader := &memReader{sensors: map[string]*sensors.Sensor{
		"s-1": {ID: "s-1", Type: "temperature"},
	}}
	service := newFixedService(t, store, reader)

	reading, err := service.Submit(context.Background(), "s-1", 21.5, time.Time{})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !reading.Timestamp.Equal(serviceNow) {
		t.Fatalf("expected timestamp %v, got %v", serviceNow, reading.Timestamp)
	}
	if !reading.CreatedAt.Equal(serviceNow) {
		t.Fatalf("expected created_at %v, got %v", serviceNow, reading.CreatedAt)
	}
	if reading.Type != "temperature" {
		t.Fatalf("expected type copied from sensor, got %q", reading.Type)
	}
}

func TestSubmitKeepsExplicitTimestamp(t *testing.T) {
	store := &memStore{}
	reader := &memReader{sensors: map[string]*sensors.Sensor{"s-1": {ID: "s-1"}}}
	service := newFixedService(t, store, reader)

	at := serviceNow.Add(-2 * time.Hour)
	reading, err := service.Submit(context.Background(), "s-1", 5, at)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !reading.Timestamp.Equal(at) {
		t.Fatalf("expected timestamp %v, got %v", at, reading.Timestamp)
	}
}

func TestSubmitRejectsNonFiniteValue(t *testing.T) {
	reader := &memReader{sensors: map[string]*sensors.Sensor{"s-1": {ID: "s-1"}}}
	service := newFixedService(t, &memStore{}, reader)

	for _, value := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := service.Submit(context.Background(), "s-1", value, time.Time{}); !errors.Is(err, ErrInvalidValue) {
			t.Fatalf("value %v: expected ErrInvalidValue, got %v", value, err)
		}
	}
}

func TestSubmitUnknownSensor(t *testing.T) {
	service := newFixedService(t, &memStore{}, &memReader{})
	if _, err := service.Submit(context.Background(), "ghost", 1, time.Time{}); !errors.Is(err, sensors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHistoryWindowFromClock(t *testing.T) {
	store := &memStore{}
	reader := &memReader{sensors: map[string]*sensors.Sensor{"s-1": {ID: "s-1"}}}
	service := newFixedService(t, store, reader)

	if _, err := service.History(context.Background(), "s-1"); err != nil {
		t.Fatalf("history: %v", err)
	}
	want := serviceNow.Add(-24 * time.Hour)
	if !store.since.Equal(want) {
		t.Fatalf("expected since %v, got %v", want, store.since)
	}
}
