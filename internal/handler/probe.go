package handler

import (
	"net/http"
	"sync/atomic"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Probe statuses.
const (
	StatusHealthy  = "healthy"
	StatusReady    = "ready"
	StatusNotReady = "not ready"
)

// ProbeResponse is the body of the liveness and readiness endpoints.
type ProbeResponse struct {
	Status string `json:"status"`
}

// ProbeHandler serves liveness and readiness checks. Readiness starts
// false and is switched by the server around startup and shutdown.
type ProbeHandler struct {
	ready  atomic.Bool
	logger *zap.Logger
}

// NewProbeHandler creates a new ProbeHandler instance.
func NewProbeHandler(logger *zap.Logger) *ProbeHandler {
	return &ProbeHandler{logger: logger}
}

// RegisterRoutes registers the probe routes with the router.
func (h *ProbeHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.Liveness).Methods(http.MethodGet)
	router.HandleFunc("/ready", h.Readiness).Methods(http.MethodGet)
}

// SetReady marks the service as ready or not ready for traffic.
func (h *ProbeHandler) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Ready reports the current readiness.
func (h *ProbeHandler) Ready() bool {
	return h.ready.Load()
}

// Liveness handles GET /health requests.
func (h *ProbeHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	h.write(w, http.StatusOK, StatusHealthy)
}

// Readiness handles GET /ready requests.
func (h *ProbeHandler) Readiness(w http.ResponseWriter, _ *http.Request) {
	if !h.ready.Load() {
		h.write(w, http.StatusServiceUnavailable, StatusNotReady)
		return
	}
	h.write(w, http.StatusOK, StatusReady)
}

func (h *ProbeHandler) write(w http.ResponseWriter, status int, probeStatus string) {
	if err := WriteJSON(w, status, ProbeResponse{Status: probeStatus}); err != nil {
		h.logger.Error("failed to encode probe response", zap.Error(err))
	}
}
