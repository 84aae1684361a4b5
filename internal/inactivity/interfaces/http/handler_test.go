package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	inactivityapp "sensor-cloud/internal/inactivity/application"
	inactivity "sensor-cloud/internal/inactivity/domain"
	readings "sensor-cloud/internal/readings/domain"
	sensors "sensor-cloud/internal/sensors/domain"
)

type fakeStore struct {
	roster    []sensors.Sensor
	rosterErr error
	stamps    []readings.Stamp
	emails    []string
}

func (f *fakeStore) ListWithLocations(_ context.Context) ([]sensors.Sensor, error) {
	return f.roster, f.rosterErr
}

func (f *fakeStore) RecentStamps(_ context.Context, _ time.Time) ([]readings.Stamp, error) {
	return f.stamps, nil
}

func (f *fakeStore) UpdateStatusByIDs(_ context.Context, _ []string, _ string, _ time.Time) error {
	return nil
}

func (f *fakeStore) HasRecent(_ context.Context, _, _ string, _ time.Time) (bool, error) {
	return false, nil
}

func (f *fakeStore) Append(_ context.Context, _ *inactivity.AlertRecord) error {
	return nil
}

func (f *fakeStore) ListEmails(_ context.Context) ([]string, error) {
	return f.emails, nil
}

func (f *fakeStore) Send(_ context.Context, _ sensors.Sensor, _ string) error {
	return nil
}

type fixedClock struct {
	at time.Time
}

func (c fixedClock) Now() time.Time { return c.at }

var handlerNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newHandler(t *testing.T, store *fakeStore, secret string) *TriggerHandler {
	t.Helper()
	logger := log.New(testLogWriter{t}, "", 0)
	sweeper, err := inactivityapp.NewSweeper(store, store, store, store, store, store, logger)
	if err != nil {
		t.Fatalf("new sweeper: %v", err)
	}
	handler, err := NewTriggerHandler(sweeper, secret, logger, WithClock(fixedClock{at: handlerNow}))
	if err != nil {
		t.Fatalf("new trigger handler: %v", err)
	}
	return handler
}

type testLogWriter struct {
	t *testing.T
}

func (w testLogWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestTriggerRejectsNonGet(t *testing.T) {
	handler := newHandler(t, &fakeStore{}, "")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cron/check-inactive-sensors", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestTriggerSecretRequired(t *testing.T) {
	handler := newHandler(t, &fakeStore{}, "cron-secret")

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Token cron-secret", want: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "correct secret", header: "Bearer cron-secret", want: http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cron/check-inactive-sensors", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
		if tc.want == http.StatusUnauthorized {
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("%s: decode body: %v", tc.name, err)
			}
			if body["error"] != "Unauthorized" {
				t.Fatalf("%s: unexpected body: %v", tc.name, body)
			}
		}
	}
}

func TestTriggerNoSecretAllowsAll(t *testing.T) {
	handler := newHandler(t, &fakeStore{}, "")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cron/check-inactive-sensors", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestTriggerResponseShape(t *testing.T) {
	store := &fakeStore{
		roster: []sensors.Sensor{
			{ID: "s-1", Name: "temp-roof"},
			{ID: "s-2", Name: "humidity-lab"},
		},
		stamps: []readings.Stamp{{SensorID: "s-1", Timestamp: handlerNow.Add(-time.Hour)}},
		emails: []string{"ops@example.com"},
	}
	handler := newHandler(t, store, "")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cron/check-inactive-sensors", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["message"] != "Inactive sensor check completed" {
		t.Fatalf("unexpected message: %v", body["message"])
	}
	if body["sensorsChecked"] != float64(2) {
		t.Fatalf("unexpected sensorsChecked: %v", body["sensorsChecked"])
	}
	if body["inactiveSensors"] != float64(1) {
		t.Fatalf("unexpected inactiveSensors: %v", body["inactiveSensors"])
	}
	if body["alertsSent"] != float64(1) {
		t.Fatalf("unexpected alertsSent: %v", body["alertsSent"])
	}
	if _, present := body["errors"]; present {
		t.Fatalf("expected errors omitted when empty, got %v", body["errors"])
	}
	if body["timestamp"] == nil {
		t.Fatal("expected timestamp in body")
	}
}

func TestTriggerRosterFailureReturns500(t *testing.T) {
	store := &fakeStore{rosterErr: errors.New("connection refused")}
	handler := newHandler(t, store, "")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cron/check-inactive-sensors", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "Failed to fetch sensors" {
		t.Fatalf("unexpected error field: %v", body)
	}
	if body["message"] == "" {
		t.Fatal("expected message detail")
	}
}
