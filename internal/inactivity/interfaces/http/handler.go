package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	inactivityapp "sensor-cloud/internal/inactivity/application"
)

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// TriggerHandler runs the inactivity sweep. It is invoked by an external
// scheduler on a fixed cadence (every 10 minutes) and optionally guarded by a
// shared bearer secret checked before any storage access.
type TriggerHandler struct {
	sweeper *inactivityapp.Sweeper
	secret  string
	clock   Clock
	logger  *log.Logger
}

// TriggerOption customizes the handler.
type TriggerOption func(*TriggerHandler)

// WithClock assigns a clock.
func WithClock(clock Clock) TriggerOption {
	return func(h *TriggerHandler) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// NewTriggerHandler constructs a trigger handler.
func NewTriggerHandler(sweeper *inactivityapp.Sweeper, secret string, logger *log.Logger, opts ...TriggerOption) (*TriggerHandler, error) {
	if sweeper == nil {
		return nil, errors.New("trigger handler: nil sweeper")
	}
	if logger == nil {
		logger = log.Default()
	}
	handler := &TriggerHandler{
		sweeper: sweeper,
		secret:  secret,
		clock:   systemClock{},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(handler)
	}
	return handler, nil
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ServeHTTP runs one sweep.
func (h *TriggerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h.secret != "" && !h.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
		return
	}

	result, err := h.sweeper.Run(r.Context(), h.clock.Now())
	if err != nil {
		h.logger.Printf("inactivity sweep failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Failed to fetch sensors",
			Message: err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *TriggerHandler) authorized(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) == 1
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
