// Package health serves the storage manager's composite health status over
// HTTP for liveness and readiness probes.
//
//	endpoints := health.NewEndpoints(mgr, 5*time.Second)
//	mux := http.NewServeMux()
//	endpoints.Register(mux)
//
// GET /healthz reports process liveness; GET /readyz probes every backend
// and returns 503 when the primary is unhealthy.
package health
