package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sensor-cloud/internal/audit"
	readingapp "sensor-cloud/internal/readings/application"
	readings "sensor-cloud/internal/readings/domain"
	readinghttp "sensor-cloud/internal/readings/interfaces/http"
	sensorapp "sensor-cloud/internal/sensors/application"
	sensors "sensor-cloud/internal/sensors/domain"
)

type fakeSensorStore struct {
	byID    map[string]*sensors.Sensor
	roster  []sensors.Sensor
	created []*sensors.Sensor
	deleted []string
	err     error
}

func (f *fakeSensorStore) ListWithLocations(_ context.Context) ([]sensors.Sensor, error) {
	return f.roster, f.err
}

func (f *fakeSensorStore) GetByID(_ context.Context, id string) (*sensors.Sensor, error) {
	if f.byID == nil {
		return nil, nil
	}
	return f.byID[id], nil
}

func (f *fakeSensorStore) Create(_ context.Context, sensor *sensors.Sensor) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, sensor)
	return nil
}

func (f *fakeSensorStore) Update(_ context.Context, _ *sensors.Sensor) error { return nil }

func (f *fakeSensorStore) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeLocationStore struct {
	byName map[string]*sensors.Location
}

func (f *fakeLocationStore) List(_ context.Context) ([]sensors.Location, error) {
	var list []sensors.Location
	for _, loc := range f.byName {
		list = append(list, *loc)
	}
	return list, nil
}

func (f *fakeLocationStore) GetByName(_ context.Context, name string) (*sensors.Location, error) {
	return f.byName[name], nil
}

func (f *fakeLocationStore) Create(_ context.Context, loc *sensors.Location) error {
	if f.byName == nil {
		f.byName = map[string]*sensors.Location{}
	}
	f.byName[loc.Name] = loc
	return nil
}

type fakeReadingStore struct {
	inserted []*readings.Reading
	history  []readings.Reading
}

func (f *fakeReadingStore) Insert(_ context.Context, reading *readings.Reading) error {
	f.inserted = append(f.inserted, reading)
	return nil
}

func (f *fakeReadingStore) ListBySensorSince(_ context.Context, _ string, _ time.Time) ([]readings.Reading, error) {
	return f.history, nil
}

func (f *fakeReadingStore) RecentStamps(_ context.Context, _ time.Time) ([]readings.Stamp, error) {
	return nil, nil
}

type captureAuditor struct {
	entries []audit.Entry
}

func (c *captureAuditor) Log(_ context.Context, entry audit.Entry) error {
	c.entries = append(c.entries, entry)
	return nil
}

type handlerFixture struct {
	handler  *Handler
	sensors  *fakeSensorStore
	readings *fakeReadingStore
	auditor  *captureAuditor
}

func newFixture(t *testing.T) *handlerFixture {
	t.Helper()
	sensorStore := &fakeSensorStore{}
	readingStore := &fakeReadingStore{}
	locationStore := &fakeLocationStore{}
	auditor := &captureAuditor{}
	logger := log.New(tLog{t}, "", 0)

	sensorService, err := sensorapp.NewService(sensorStore, locationStore, readingStore)
	if err != nil {
		t.Fatalf("sensor service: %v", err)
	}
	readingService, err := readingapp.NewService(readingStore, sensorStore)
	if err != nil {
		t.Fatalf("reading service: %v", err)
	}
	dataHandler, err := readinghttp.NewHandler(readingService, logger)
	if err != nil {
		t.Fatalf("data handler: %v", err)
	}
	handler, err := NewHandler(sensorService, readingService, dataHandler, auditor, logger)
	if err != nil {
		t.Fatalf("sensors handler: %v", err)
	}
	return &handlerFixture{handler: handler, sensors: sensorStore, readings: readingStore, auditor: auditor}
}

type tLog struct {
	t *testing.T
}

func (w tLog) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestRegisterEndpoint(t *testing.T) {
	fx := newFixture(t)

	body := `{"sensorName":"temp-roof","sensorType":"temperature","locationName":"Rooftop"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sensor", strings.NewReader(body))
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp["status"] != "registered" || resp["sensorID"] == "" {
		t.Fatalf("unexpected response: %v", resp)
	}
	if len(fx.auditor.entries) != 1 || fx.auditor.entries[0].Action != "sensor.register" {
		t.Fatalf("expected audit entry, got %+v", fx.auditor.entries)
	}
}

func TestRegisterValidationError(t *testing.T) {
	fx := newFixture(t)

	body := `{"sensorName":"ab","sensorType":"temperature","locationName":"Rooftop"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sensor", strings.NewReader(body))
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRegisterNameConflict(t *testing.T) {
	fx := newFixture(t)
	fx.sensors.err = sensors.ErrNameTaken

	body := `{"sensorName":"temp-roof","sensorType":"temperature","locationName":"Rooftop"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sensor", strings.NewReader(body))
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestListEndpoint(t *testing.T) {
	fx := newFixture(t)
	fx.sensors.roster = []sensors.Sensor{
		{ID: "s-1", Name: "temp-roof", Status: sensors.StatusActive},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sensors", nil)
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Data) != 1 {
		t.Fatalf("expected 1 sensor, got %d", len(body.Data))
	}
	// No recent readings, so the computed status disagrees with the cache.
	if body.Data[0]["sensor_status"] != "active" || body.Data[0]["computed_status"] != "inactive" {
		t.Fatalf("unexpected statuses: %v", body.Data[0])
	}
}

func TestGetUnknownSensorReturns404(t *testing.T) {
	fx := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sensors/ghost", nil)
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDeleteEndpointAudits(t *testing.T) {
	fx := newFixture(t)
	fx.sensors.byID = map[string]*sensors.Sensor{"s-1": {ID: "s-1"}}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/sensors/s-1", nil)
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(fx.sensors.deleted) != 1 || fx.sensors.deleted[0] != "s-1" {
		t.Fatalf("expected delete call, got %v", fx.sensors.deleted)
	}
	if len(fx.auditor.entries) != 1 || fx.auditor.entries[0].Action != "sensor.delete" {
		t.Fatalf("expected audit entry, got %+v", fx.auditor.entries)
	}
}

func TestDataSubrouteDelegates(t *testing.T) {
	fx := newFixture(t)
	fx.sensors.byID = map[string]*sensors.Sensor{"s-1": {ID: "s-1", Type: "temperature"}}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sensors/s-1/data", strings.NewReader(`{"value": 19.2}`))
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(fx.readings.inserted) != 1 {
		t.Fatalf("expected reading inserted, got %d", len(fx.readings.inserted))
	}
}

func TestReportSubroute(t *testing.T) {
	fx := newFixture(t)
	fx.sensors.byID = map[string]*sensors.Sensor{"s-1": {ID: "s-1", Name: "temp-roof", Type: "temperature"}}
	fx.readings.history = []readings.Reading{
		{ID: "r-1", SensorID: "s-1", Value: 20.5, Type: "temperature", Timestamp: time.Now().UTC()},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sensors/s-1/report", nil)
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("expected pdf bytes")
	}
}

func TestUnknownSubroute(t *testing.T) {
	fx := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sensors/s-1/frobnicate", nil)
	rec := httptest.NewRecorder()
	fx.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
