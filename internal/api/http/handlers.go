package apihttp

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"sensor-cloud/internal/observability/metrics"
)

const timeLayout = time.RFC3339

// defaultExportWindow is the range exported when from/to are omitted.
const defaultExportWindow = 24 * time.Hour

// DashboardStats aggregates the counters shown on the dashboard.
type DashboardStats struct {
	TotalSensors    int `json:"total_sensors"`
	ActiveSensors   int `json:"active_sensors"`
	InactiveSensors int `json:"inactive_sensors"`
	TotalLocations  int `json:"total_locations"`
	ReadingsLastDay int `json:"readings_last_day"`
	AlertsLastDay   int `json:"alerts_last_day"`
}

// ReadingRow is one exported reading joined with its sensor metadata.
type ReadingRow struct {
	SensorID   string
	SensorName string
	SensorType string
	Location   string
	Value      float64
	DataType   string
	Timestamp  time.Time
}

// StatsSource provides dashboard aggregates.
type StatsSource interface {
	DashboardStats(ctx context.Context) (*DashboardStats, error)
}

// ReadingExportSource lists readings for export, ascending by timestamp.
type ReadingExportSource interface {
	ListRange(ctx context.Context, sensorID string, from, to time.Time) ([]ReadingRow, error)
}

// StatsHandler serves dashboard statistics queries.
type StatsHandler struct {
	source StatsSource
}

// NewStatsHandler constructs a StatsHandler.
func NewStatsHandler(source StatsSource) *StatsHandler {
	return &StatsHandler{source: source}
}

// ServeHTTP handles GET /api/v1/stats.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.source == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	stats, err := h.source.DashboardStats(r.Context())
	if err != nil {
		http.Error(w, "query stats error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats)
}

// ExportReadingsCSVHandler serves reading history CSV exports.
type ExportReadingsCSVHandler struct {
	source ReadingExportSource
}

// NewExportReadingsCSVHandler constructs a ExportReadingsCSVHandler.
func NewExportReadingsCSVHandler(source ReadingExportSource) *ExportReadingsCSVHandler {
	return &ExportReadingsCSVHandler{source: source}
}

// ServeHTTP handles GET /api/v1/exports/readings.csv.
func (h *ExportReadingsCSVHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.source == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	started := time.Now()
	from, to, sensorID, err := parseReadingRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rows, err := h.source.ListRange(r.Context(), sensorID, from, to)
	if err != nil {
		metrics.ObserveExport("csv", metrics.ResultError, time.Since(started))
		http.Error(w, "query readings error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="readings.csv"`)
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{
		"sensor_id",
		"sensor_name",
		"sensor_type",
		"location",
		"data_value",
		"data_type",
		"data_timestamp",
	})
	for _, row := range rows {
		_ = writer.Write([]string{
			row.SensorID,
			row.SensorName,
			row.SensorType,
			row.Location,
			formatFloat(row.Value),
			row.DataType,
			row.Timestamp.Format(timeLayout),
		})
	}
	writer.Flush()
	metrics.ObserveExport("csv", metrics.ResultSuccess, time.Since(started))
}

// ExportReadingsXLSXHandler serves reading history XLSX exports.
type ExportReadingsXLSXHandler struct {
	source ReadingExportSource
}

// NewExportReadingsXLSXHandler constructs a ExportReadingsXLSXHandler.
func NewExportReadingsXLSXHandler(source ReadingExportSource) *ExportReadingsXLSXHandler {
	return &ExportReadingsXLSXHandler{source: source}
}

// ServeHTTP handles GET /api/v1/exports/readings.xlsx.
func (h *ExportReadingsXLSXHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.source == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	started := time.Now()
	from, to, sensorID, err := parseReadingRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rows, err := h.source.ListRange(r.Context(), sensorID, from, to)
	if err != nil {
		metrics.ObserveExport("xlsx", metrics.ResultError, time.Since(started))
		http.Error(w, "query readings error", http.StatusInternalServerError)
		return
	}

	payload, err := buildReadingsXLSX(rows, from, to)
	if err != nil {
		metrics.ObserveExport("xlsx", metrics.ResultError, time.Since(started))
		http.Error(w, "render workbook error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="readings.xlsx"`)
	_, _ = w.Write(payload)
	metrics.ObserveExport("xlsx", metrics.ResultSuccess, time.Since(started))
}

func buildReadingsXLSX(rows []ReadingRow, from, to time.Time) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	dataSheet := "readings"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(dataSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Sensor Readings Export")
	_ = f.SetCellValue(summarySheet, "A3", "From")
	_ = f.SetCellValue(summarySheet, "B3", from.Format(timeLayout))
	_ = f.SetCellValue(summarySheet, "A4", "To")
	_ = f.SetCellValue(summarySheet, "B4", to.Format(timeLayout))
	_ = f.SetCellValue(summarySheet, "A5", "Rows")
	_ = f.SetCellValue(summarySheet, "B5", len(rows))

	_ = f.SetCellValue(dataSheet, "A1", "Sensor ID")
	_ = f.SetCellValue(dataSheet, "B1", "Sensor Name")
	_ = f.SetCellValue(dataSheet, "C1", "Type")
	_ = f.SetCellValue(dataSheet, "D1", "Location")
	_ = f.SetCellValue(dataSheet, "E1", "Value")
	_ = f.SetCellValue(dataSheet, "F1", "Data Type")
	_ = f.SetCellValue(dataSheet, "G1", "Timestamp")
	for i, row := range rows {
		line := i + 2
		_ = f.SetCellValue(dataSheet, fmt.Sprintf("A%d", line), row.SensorID)
		_ = f.SetCellValue(dataSheet, fmt.Sprintf("B%d", line), row.SensorName)
		_ = f.SetCellValue(dataSheet, fmt.Sprintf("C%d", line), row.SensorType)
		_ = f.SetCellValue(dataSheet, fmt.Sprintf("D%d", line), row.Location)
		_ = f.SetCellValue(dataSheet, fmt.Sprintf("E%d", line), row.Value)
		_ = f.SetCellValue(dataSheet, fmt.Sprintf("F%d", line), row.DataType)
		_ = f.SetCellValue(dataSheet, fmt.Sprintf("G%d", line), row.Timestamp.Format(timeLayout))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// parseReadingRange reads the optional from/to/sensor_id query parameters.
// When both bounds are absent the range defaults to the trailing 24 hours.
func parseReadingRange(r *http.Request) (from, to time.Time, sensorID string, err error) {
	from, err = parseTimeQuery(r, "from")
	if err != nil {
		return time.Time{}, time.Time{}, "", err
	}
	to, err = parseTimeQuery(r, "to")
	if err != nil {
		return time.Time{}, time.Time{}, "", err
	}
	now := time.Now().UTC()
	if to.IsZero() {
		to = now
	}
	if from.IsZero() {
		from = to.Add(-defaultExportWindow)
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, "", errors.New("to must be after from")
	}
	return from, to, r.URL.Query().Get("sensor_id"), nil
}

func parseTimeQuery(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339")
	}
	return parsed.UTC(), nil
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
