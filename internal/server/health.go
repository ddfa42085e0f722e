package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// Health status constants for health check responses.
const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
	healthStatusNoCalendar   = "no calendar resolved"
	healthStatusAwaitingAuth = "awaiting authorization"
)

// HealthChecker provides health check endpoints for Kubernetes probes.
type HealthChecker struct {
	// ready indicates whether the server is ready to receive traffic
	ready atomic.Bool
	// serverContext provides access to the orchestrator for health checks
	serverContext *ServerContext
	// startTime tracks when the server started
	startTime time.Time
}

// NewHealthChecker creates a new HealthChecker.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{
		serverContext: sc,
		startTime:     time.Now(),
	}
	h.ready.Store(true)
	return h
}

// SetReady sets the readiness state of the server.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady returns whether the server is ready to receive traffic.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// isServerShuttingDown checks if the server context is shutting down.
// Returns false if serverContext is nil (safe for testing).
func (h *HealthChecker) isServerShuttingDown() bool {
	return h.serverContext != nil && h.serverContext.IsShutdown()
}

// calendarResolved reports whether the orchestrator knows its calendar.
// Without a server context there is nothing to wait for.
func (h *HealthChecker) calendarResolved() bool {
	if h.serverContext == nil {
		return true
	}
	return h.serverContext.Runner().View().CalendarID != ""
}

func (h *HealthChecker) awaitingAuth() bool {
	if h.serverContext == nil || h.serverContext.Authenticator() == nil {
		return false
	}
	return h.serverContext.Authenticator().Waiting()
}

// HealthResponse represents the JSON response for health endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse provides comprehensive health information.
type DetailedHealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`

	State           string `json:"state,omitempty"`
	Week            string `json:"week,omitempty"`
	Clients         int    `json:"clients"`
	PendingChanges  int    `json:"pending_changes"`
	AwaitingAuth    bool   `json:"awaiting_auth"`
	LastError       string `json:"last_error,omitempty"`
	DroppedEvents   int    `json:"dropped_events"`
	CalendarPresent bool   `json:"calendar_resolved"`
}

// LivenessHandler returns an HTTP handler for the /healthz endpoint.
// Liveness probes indicate whether the process should be restarted.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler returns an HTTP handler for the /readyz endpoint.
// The server is ready once the orchestrator has resolved a calendar.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		checks := make(map[string]string)
		allOk := true

		if !h.ready.Load() {
			checks["ready"] = healthStatusNotReady
			allOk = false
		} else {
			checks["ready"] = healthStatusOK
		}

		if h.isServerShuttingDown() {
			checks["shutdown"] = healthStatusShuttingDown
			allOk = false
		} else {
			checks["shutdown"] = healthStatusOK
		}

		switch {
		case h.calendarResolved():
			checks["calendar"] = healthStatusOK
		case h.awaitingAuth():
			checks["calendar"] = healthStatusAwaitingAuth
			allOk = false
		default:
			checks["calendar"] = healthStatusNoCalendar
			allOk = false
		}

		response := HealthResponse{Checks: checks}
		if allOk {
			response.Status = healthStatusOK
			writeHealth(w, http.StatusOK, response)
			return
		}
		response.Status = healthStatusNotReady
		writeHealth(w, http.StatusServiceUnavailable, response)
	})
}

// RegisterHealthEndpoints registers health check endpoints on the given mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}

// DetailedHealthHandler returns an HTTP handler for the /healthz/detailed
// endpoint, reporting the orchestrator state alongside uptime.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		response := DetailedHealthResponse{
			Status:          healthStatusOK,
			Uptime:          time.Since(h.startTime).Truncate(time.Second).String(),
			AwaitingAuth:    h.awaitingAuth(),
			CalendarPresent: h.calendarResolved(),
		}

		if h.serverContext != nil {
			v := h.serverContext.Runner().View()
			response.State = v.State.String()
			response.Week = v.Label
			response.PendingChanges = v.Pending
			response.LastError = v.Reason()
			response.DroppedEvents = v.Dropped
			if v.Loaded() && len(v.Rows) > 0 {
				response.Clients = len(v.Rows) - 1
			}
		}

		status := http.StatusOK
		switch {
		case !h.ready.Load():
			response.Status = healthStatusNotReady
			status = http.StatusServiceUnavailable
		case h.isServerShuttingDown():
			response.Status = healthStatusShuttingDown
			status = http.StatusServiceUnavailable
		}

		writeHealth(w, status, response)
	})
}

func writeHealth(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
