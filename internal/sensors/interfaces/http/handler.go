package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"sensor-cloud/internal/audit"
	"sensor-cloud/internal/auth"
	"sensor-cloud/internal/observability/metrics"
	readingapp "sensor-cloud/internal/readings/application"
	readings "sensor-cloud/internal/readings/domain"
	readinghttp "sensor-cloud/internal/readings/interfaces/http"
	sensorapp "sensor-cloud/internal/sensors/application"
	sensors "sensor-cloud/internal/sensors/domain"
	"sensor-cloud/internal/sensors/interfaces"
)

// Handler serves sensor registration, roster and subroutes.
type Handler struct {
	service  *sensorapp.Service
	readings *readingapp.Service
	data     *readinghttp.Handler
	auditor  audit.Logger
	logger   *log.Logger
}

// NewHandler constructs a sensors handler.
func NewHandler(service *sensorapp.Service, readingService *readingapp.Service, dataHandler *readinghttp.Handler, auditor audit.Logger, logger *log.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("sensors handler: nil service")
	}
	if dataHandler == nil {
		return nil, errors.New("sensors handler: nil data handler")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		service:  service,
		readings: readingService,
		data:     dataHandler,
		auditor:  auditor,
		logger:   logger,
	}, nil
}

// ServeHTTP routes /api/v1/sensor, /api/v1/sensors and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/sensor":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleRegister(w, r)
	case r.URL.Path == "/api/v1/sensors":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleList(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/sensors/"):
		h.handleSubroute(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleSubroute(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/sensors/")
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		h.handleOne(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "data":
		h.data.ServeSensorData(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "report":
		h.handleReport(w, r, parts[0])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req sensorapp.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	sensor, err := h.service.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, sensorapp.ErrValidation):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, sensors.ErrNameTaken):
			http.Error(w, "sensor name already exists", http.StatusConflict)
		default:
			h.logger.Printf("sensor register error: %v", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}
	h.auditLog(r, "sensor.register", sensor.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"sensorID": sensor.ID,
		"status":   "registered",
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Printf("sensor list error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": list})
}

func (h *Handler) handleOne(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		sensor, err := h.service.Get(r.Context(), id)
		if err != nil {
			h.respondSensorError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": sensor})
	case http.MethodPut:
		var req sensorapp.UpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		sensor, err := h.service.Update(r.Context(), id, req)
		if err != nil {
			h.respondSensorError(w, err)
			return
		}
		h.auditLog(r, "sensor.update", id)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": sensor})
	case http.MethodDelete:
		if err := h.service.Delete(r.Context(), id); err != nil {
			h.respondSensorError(w, err)
			return
		}
		h.auditLog(r, "sensor.delete", id)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()
	sensor, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondSensorError(w, err)
		return
	}
	var history []readings.Reading
	if h.readings != nil {
		history, err = h.readings.History(r.Context(), id)
		if err != nil {
			metrics.ObserveExport("pdf", metrics.ResultError, time.Since(start))
			h.logger.Printf("sensor report history error: %v", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
	}
	pdf, err := interfaces.BuildSensorReportPDF(sensor, history, time.Now().UTC())
	if err != nil {
		metrics.ObserveExport("pdf", metrics.ResultError, time.Since(start))
		h.logger.Printf("sensor report render error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	metrics.ObserveExport("pdf", metrics.ResultSuccess, time.Since(start))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sensor.Name+".pdf"))
	_, _ = w.Write(pdf)
}

// ServeLocations handles GET /api/v1/locations.
func (h *Handler) ServeLocations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	list, err := h.service.Locations(r.Context())
	if err != nil {
		h.logger.Printf("location list error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": list})
}

func (h *Handler) respondSensorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sensors.ErrNotFound):
		http.Error(w, "sensor not found", http.StatusNotFound)
	case errors.Is(err, sensors.ErrNameTaken):
		http.Error(w, "sensor name already exists", http.StatusConflict)
	case errors.Is(err, sensorapp.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Printf("sensor error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) auditLog(r *http.Request, action, resourceID string) {
	if h.auditor == nil {
		return
	}
	entry := audit.Entry{
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: "sensor",
		ResourceID:   resourceID,
		IP:           r.RemoteAddr,
		UserAgent:    r.UserAgent(),
	}
	if err := h.auditor.Log(r.Context(), entry); err != nil {
		h.logger.Printf("audit log error: %v", err)
	}
}
