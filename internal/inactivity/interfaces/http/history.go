package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	inactivity "sensor-cloud/internal/inactivity/domain"
)

// AlertHistorySource reads the alert ledger.
type AlertHistorySource interface {
	ListBySensor(ctx context.Context, sensorID string, limit int) ([]inactivity.AlertRecord, error)
}

// HistoryHandler serves GET /api/v1/alerts?sensor_id=...&limit=N.
type HistoryHandler struct {
	ledger AlertHistorySource
	logger *log.Logger
}

// NewHistoryHandler constructs an alert history handler.
func NewHistoryHandler(ledger AlertHistorySource, logger *log.Logger) (*HistoryHandler, error) {
	if ledger == nil {
		return nil, errors.New("history handler: nil ledger")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &HistoryHandler{ledger: ledger, logger: logger}, nil
}

// ServeHTTP lists alert rows for one sensor, newest first.
func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sensorID := r.URL.Query().Get("sensor_id")
	if sensorID == "" {
		http.Error(w, "sensor_id is required", http.StatusBadRequest)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	list, err := h.ledger.ListBySensor(r.Context(), sensorID, limit)
	if err != nil {
		h.logger.Printf("alert history error: sensor=%s err=%v", sensorID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": list})
}
