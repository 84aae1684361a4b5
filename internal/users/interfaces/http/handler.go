package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"sensor-cloud/internal/observability/metrics"
	userapp "sensor-cloud/internal/users/application"
	users "sensor-cloud/internal/users/domain"
)

// Handler serves /api/v1/auth routes.
type Handler struct {
	service *userapp.Service
	logger  *log.Logger
}

// NewHandler constructs an auth handler.
func NewHandler(service *userapp.Service, logger *log.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("users handler: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{service: service, logger: logger}, nil
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ServeHTTP routes signup and login.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch r.URL.Path {
	case "/api/v1/auth/signup":
		h.handleSignup(w, r)
	case "/api/v1/auth/login":
		h.handleLogin(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	user, err := h.service.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, userapp.ErrValidation):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, users.ErrEmailTaken):
			http.Error(w, "email already registered", http.StatusConflict)
		default:
			h.logger.Printf("signup error: %v", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(user)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	token, user, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		metrics.IncAuthAttempt(metrics.ResultError)
		if errors.Is(err, users.ErrBadCredentials) {
			http.Error(w, "invalid email or password", http.StatusUnauthorized)
			return
		}
		h.logger.Printf("login error: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	metrics.IncAuthAttempt(metrics.ResultSuccess)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"token": token, "user": user})
}
