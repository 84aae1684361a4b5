package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"sensor-cloud/internal/observability/metrics"
	readingapp "sensor-cloud/internal/readings/application"
	sensors "sensor-cloud/internal/sensors/domain"
)

// Handler serves reading submission and history for one sensor.
type Handler struct {
	service *readingapp.Service
	logger  *log.Logger
}

// NewHandler constructs a readings handler.
func NewHandler(service *readingapp.Service, logger *log.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("readings handler: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{service: service, logger: logger}, nil
}

type submitRequest struct {
	Value json.Number `json:"value"`
}

// ServeSensorData handles POST (submit) and GET (24h history) for
// /api/v1/sensors/{sensorID}/data.
func (h *Handler) ServeSensorData(w http.ResponseWriter, r *http.Request, sensorID string) {
	switch r.Method {
	case http.MethodPost:
		h.handleSubmit(w, r, sensorID)
	case http.MethodGet:
		h.handleHistory(w, r, sensorID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request, sensorID string) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveIngest(result, time.Since(start))
	}()

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		result = metrics.ResultError
		metrics.IncIngestError("invalid_json")
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	value, err := strconv.ParseFloat(req.Value.String(), 64)
	if err != nil {
		result = metrics.ResultError
		metrics.IncIngestError("invalid_value")
		http.Error(w, "value must be a number", http.StatusBadRequest)
		return
	}

	_, err = h.service.Submit(r.Context(), sensorID, value, time.Time{})
	if err != nil {
		result = metrics.ResultError
		switch {
		case errors.Is(err, sensors.ErrNotFound):
			metrics.IncIngestError("unknown_sensor")
			http.Error(w, "sensor not found", http.StatusNotFound)
		case errors.Is(err, readingapp.ErrInvalidValue):
			metrics.IncIngestError("invalid_value")
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			metrics.IncIngestError("insert_error")
			h.logger.Printf("reading submit: sensor=%s err=%v", sensorID, err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request, sensorID string) {
	list, err := h.service.History(r.Context(), sensorID)
	if err != nil {
		h.logger.Printf("reading history: sensor=%s err=%v", sensorID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": list})
}
