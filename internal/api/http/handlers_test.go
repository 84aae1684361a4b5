package apihttp

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

type stubStatsSource struct {
	stats *DashboardStats
	err   error
}

func (s *stubStatsSource) DashboardStats(_ context.Context) (*DashboardStats, error) {
	return s.stats, s.err
}

type stubExportSource struct {
	rows []ReadingRow
	err  error

	sensorID string
	from     time.Time
	to       time.Time
}

func (s *stubExportSource) ListRange(_ context.Context, sensorID string, from, to time.Time) ([]ReadingRow, error) {
	s.sensorID = sensorID
	s.from = from
	s.to = to
	return s.rows, s.err
}

var exportAt = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func exportFixtureRows() []ReadingRow {
	return []ReadingRow{
		{SensorID: "s-1", SensorName: "temp-roof", SensorType: "temperature", Location: "Rooftop", Value: 21.5, DataType: "temperature", Timestamp: exportAt},
		{SensorID: "s-2", SensorName: "hum-cellar", SensorType: "humidity", Location: "", Value: 63, DataType: "humidity", Timestamp: exportAt.Add(time.Minute)},
	}
}

func TestStatsResponseShape(t *testing.T) {
	source := &stubStatsSource{stats: &DashboardStats{
		TotalSensors:    5,
		ActiveSensors:   3,
		InactiveSensors: 2,
		TotalLocations:  2,
		ReadingsLastDay: 40,
		AlertsLastDay:   1,
	}}
	handler := NewStatsHandler(source)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["total_sensors"] != 5 || body["active_sensors"] != 3 || body["inactive_sensors"] != 2 {
		t.Fatalf("unexpected sensor counters: %v", body)
	}
	if body["readings_last_day"] != 40 || body["alerts_last_day"] != 1 {
		t.Fatalf("unexpected day counters: %v", body)
	}
}

func TestStatsQueryErrorReturns500(t *testing.T) {
	handler := NewStatsHandler(&stubStatsSource{err: errors.New("boom")})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestStatsMethodNotAllowed(t *testing.T) {
	handler := NewStatsHandler(&stubStatsSource{stats: &DashboardStats{}})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/stats", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestExportCSVWritesRows(t *testing.T) {
	source := &stubExportSource{rows: exportFixtureRows()}
	handler := NewExportReadingsCSVHandler(source)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/exports/readings.csv", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "readings.csv") {
		t.Fatalf("unexpected disposition %q", cd)
	}

	records, err := csv.NewReader(bytes.NewReader(rec.Body.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(records))
	}
	if records[0][0] != "sensor_id" || records[0][6] != "data_timestamp" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	if records[1][0] != "s-1" || records[1][3] != "Rooftop" || records[1][4] != "21.5" {
		t.Fatalf("unexpected row: %v", records[1])
	}
	if records[1][6] != exportAt.Format(time.RFC3339) {
		t.Fatalf("unexpected timestamp: %v", records[1][6])
	}
}

func TestExportRangeDefaultsToTrailingDay(t *testing.T) {
	source := &stubExportSource{}
	handler := NewExportReadingsCSVHandler(source)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/exports/readings.csv", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := source.to.Sub(source.from); got != 24*time.Hour {
		t.Fatalf("expected 24h window, got %v", got)
	}
	if drift := time.Since(source.to); drift < 0 || drift > time.Minute {
		t.Fatalf("expected upper bound near now, got %v", source.to)
	}
}

func TestExportExplicitRangeAndSensorFilter(t *testing.T) {
	source := &stubExportSource{}
	handler := NewExportReadingsCSVHandler(source)

	from := exportAt.Add(-2 * time.Hour)
	target := "/api/v1/exports/readings.csv?sensor_id=s-1" +
		"&from=" + from.Format(time.RFC3339) +
		"&to=" + exportAt.Format(time.RFC3339)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if source.sensorID != "s-1" {
		t.Fatalf("expected sensor filter forwarded, got %q", source.sensorID)
	}
	if !source.from.Equal(from) || !source.to.Equal(exportAt) {
		t.Fatalf("unexpected range: %v .. %v", source.from, source.to)
	}
}

func TestExportOpenLowerBoundDefaults(t *testing.T) {
	source := &stubExportSource{}
	handler := NewExportReadingsCSVHandler(source)

	target := "/api/v1/exports/readings.csv?to=" + exportAt.Format(time.RFC3339)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !source.to.Equal(exportAt) {
		t.Fatalf("expected explicit upper bound, got %v", source.to)
	}
	if !source.from.Equal(exportAt.Add(-24 * time.Hour)) {
		t.Fatalf("expected lower bound 24h before to, got %v", source.from)
	}
}

func TestExportRejectsBadRange(t *testing.T) {
	handler := NewExportReadingsCSVHandler(&stubExportSource{})

	cases := []struct {
		name  string
		query string
	}{
		{name: "not RFC3339", query: "?from=yesterday"},
		{name: "inverted range", query: "?from=" + exportAt.Format(time.RFC3339) + "&to=" + exportAt.Add(-time.Hour).Format(time.RFC3339)},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/exports/readings.csv"+tc.query, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.name, rec.Code)
		}
	}
}

func TestExportQueryErrorReturns500(t *testing.T) {
	handler := NewExportReadingsCSVHandler(&stubExportSource{err: errors.New("boom")})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/exports/readings.csv", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestExportXLSXWorkbook(t *testing.T) {
	source := &stubExportSource{rows: exportFixtureRows()}
	handler := NewExportReadingsXLSXHandler(source)

	target := "/api/v1/exports/readings.xlsx?from=" + exportAt.Add(-time.Hour).Format(time.RFC3339) +
		"&to=" + exportAt.Add(time.Hour).Format(time.RFC3339)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Fatalf("unexpected content type %q", ct)
	}

	workbook, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer workbook.Close()

	rows, err := workbook.GetRows("readings")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[1][0] != "s-1" || rows[1][3] != "Rooftop" {
		t.Fatalf("unexpected row: %v", rows[1])
	}
	count, err := workbook.GetCellValue("summary", "B5")
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if count != "2" {
		t.Fatalf("expected row count 2, got %q", count)
	}
}
