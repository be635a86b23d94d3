package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/metroplanner/internal/cache"
	"github.com/metroplanner/internal/common/logger"
	"github.com/metroplanner/internal/planner"
)

// Planner is the part of the route planner the handlers need.
type Planner interface {
	Plan(ctx context.Context, from, to string) (*planner.Journey, error)
	Stations(ctx context.Context) ([]planner.StationInfo, error)
	Lines(ctx context.Context) ([]planner.LineInfo, error)
	Ready() bool
}

type Handler struct {
	planner  Planner
	cache    cache.Cache
	ttl      time.Duration
	logger   logger.Logger
	validate *validator.Validate
}

type pathQuery struct {
	From string `validate:"required"`
	To   string `validate:"required"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type ReadyResponse struct {
	Ready      bool      `json:"ready"`
	ServerTime time.Time `json:"serverTime"`
}

// NewHandler wires the handlers. A nil cache disables response caching.
func NewHandler(p Planner, c cache.Cache, ttl time.Duration, logger logger.Logger) *Handler {
	return &Handler{
		planner:  p,
		cache:    c,
		ttl:      ttl,
		logger:   logger,
		validate: validator.New(),
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/path", h.GetPath).Methods(http.MethodGet)
	router.HandleFunc("/api/stations", h.ListStations).Methods(http.MethodGet)
	router.HandleFunc("/api/lines", h.ListLines).Methods(http.MethodGet)
	router.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet)
	router.HandleFunc("/readyz", h.Readyz).Methods(http.MethodGet)
}

func (h *Handler) GetPath(w http.ResponseWriter, r *http.Request) {
	q := pathQuery{
		From: r.URL.Query().Get("from"),
		To:   r.URL.Query().Get("to"),
	}
	if err := h.validate.Struct(q); err != nil {
		respondError(w, http.StatusBadRequest, "Missing from or to station parameter")
		return
	}

	ctx := r.Context()
	key := cache.KeyPath(q.From, q.To)

	if h.cache != nil {
		cached, err := h.cache.Get(ctx, key)
		if err != nil {
			h.logger.Warn("Path cache read failed", "key", key, "error", err)
		} else if cached != nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "HIT")
			w.WriteHeader(http.StatusOK)
			w.Write(cached)
			return
		}
	}

	journey, err := h.planner.Plan(ctx, q.From, q.To)
	if errors.Is(err, planner.ErrStationNotFound) {
		respondError(w, http.StatusNotFound, "Station not found")
		return
	}
	if err != nil {
		h.logger.Error("Error finding path", "from", q.From, "to", q.To, "error", err, "request_id", RequestID(ctx))
		respondError(w, http.StatusInternalServerError, "Failed to find path")
		return
	}
	if !journey.Found() {
		respondError(w, http.StatusNotFound, "No path found between stations")
		return
	}

	body, err := json.Marshal(journey)
	if err != nil {
		h.logger.Error("Encoding path response", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to find path")
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, key, body, h.ttl); err != nil {
			h.logger.Warn("Path cache write failed", "key", key, "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "MISS")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (h *Handler) ListStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.planner.Stations(r.Context())
	if err != nil {
		h.logger.Error("Error fetching stations", "error", err, "request_id", RequestID(r.Context()))
		respondError(w, http.StatusInternalServerError, "Failed to fetch stations")
		return
	}
	respondJSON(w, http.StatusOK, stations)
}

func (h *Handler) ListLines(w http.ResponseWriter, r *http.Request) {
	lines, err := h.planner.Lines(r.Context())
	if err != nil {
		h.logger.Error("Error fetching lines", "error", err, "request_id", RequestID(r.Context()))
		respondError(w, http.StatusInternalServerError, "Failed to fetch lines")
		return
	}
	respondJSON(w, http.StatusOK, lines)
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ready := h.planner.Ready()
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, ReadyResponse{Ready: ready, ServerTime: time.Now()})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}
