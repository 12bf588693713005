package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/traceforge/traceforge/pkg/storage"
)

// Endpoints serves health probes for a storage manager's backend topology.
type Endpoints struct {
	manager      *storage.Manager
	checkTimeout time.Duration
}

// livenessResponse is the body returned by the liveness endpoint.
type livenessResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// readinessResponse is the body returned by the readiness endpoint.
type readinessResponse struct {
	Status    string               `json:"status"`
	Storage   storage.HealthStatus `json:"storage"`
	Timestamp time.Time            `json:"timestamp"`
}

// NewEndpoints creates health endpoints over the given manager. If timeout
// is 0, probes default to 5 seconds.
func NewEndpoints(manager *storage.Manager, checkTimeout time.Duration) *Endpoints {
	if checkTimeout == 0 {
		checkTimeout = 5 * time.Second
	}
	return &Endpoints{
		manager:      manager,
		checkTimeout: checkTimeout,
	}
}

// Register mounts the health endpoints on the given mux:
// /healthz (liveness) and /readyz (readiness).
func (e *Endpoints) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", e.LivenessHandler())
	mux.HandleFunc("/readyz", e.ReadinessHandler())
}

// LivenessHandler returns an HTTP handler reporting process liveness.
// It always returns 200 while the process is running.
func (e *Endpoints) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		if r.Method != http.MethodHead {
			_ = json.NewEncoder(w).Encode(livenessResponse{
				Status:    "ok",
				Timestamp: time.Now(),
			})
		}
	}
}

// ReadinessHandler returns an HTTP handler that probes every storage
// backend. It returns 200 when the primary is healthy and 503 otherwise;
// fallback health is reported in the body but does not affect the status
// code, since reads and first-choice writes only need the primary.
func (e *Endpoints) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), e.checkTimeout)
		defer cancel()

		status := e.manager.HealthCheck(ctx)

		overall := "ready"
		code := http.StatusOK
		if status.Primary != storage.StatusHealthy {
			overall = "degraded"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)

		if r.Method != http.MethodHead {
			_ = json.NewEncoder(w).Encode(readinessResponse{
				Status:    overall,
				Storage:   status,
				Timestamp: time.Now(),
			})
		}
	}
}
