package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/SyntheticEdelweiss/ClientServerExample/pkg/cache"
)

// Response is the JSON envelope every management endpoint answers with.
// Status is "ok" or "error"; Data carries the endpoint payload and Error the
// failure detail, whichever applies.
type Response struct {
	Status    string      `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

func okResponse(data interface{}) Response {
	return Response{Status: "ok", Timestamp: time.Now().UTC(), Data: data}
}

func errorResponse(errMsg string) Response {
	return Response{Status: "error", Timestamp: time.Now().UTC(), Error: errMsg}
}

// writeJSON renders the envelope with the given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// The status line is already sent; nothing left to salvage.
		http.Error(w, `{"status":"error","error":"failed to encode response"}`, http.StatusInternalServerError)
	}
}

// StatusSource supplies the live server state rendered by GET /status.
//
// The dispatcher implements this through an adapter in the server command;
// the snapshot is taken on the scheduler goroutine, so the values in it are
// mutually consistent.
type StatusSource interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Snapshot is the dynamic server state reported by a StatusSource.
type Snapshot struct {
	// StartedAt is when the server began accepting connections
	StartedAt time.Time

	// ActiveConnections counts the authenticated client sockets
	ActiveConnections int

	// AuthorizedUsers lists the usernames currently logged in
	AuthorizedUsers []string

	// RunningTasks lists the in-flight tasks
	RunningTasks []TaskStatus

	// Cache reports result cache occupancy and traffic
	Cache cache.Stats
}

// TaskStatus describes one in-flight task.
type TaskStatus struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Username string `json:"username"`
	Remote   string `json:"remote"`
	State    string `json:"state"`
	Chunks   int    `json:"chunks"`
}

// StatusData is the payload of GET /status.
type StatusData struct {
	Service           string       `json:"service"`
	Version           string       `json:"version,omitempty"`
	Uptime            string       `json:"uptime"`
	ActiveConnections int          `json:"active_connections"`
	AuthorizedUsers   []string     `json:"authorized_users"`
	RunningTasks      []TaskStatus `json:"running_tasks"`
	Cache             cache.Stats  `json:"cache"`
}

// HealthHandler handles the liveness endpoint.
type HealthHandler struct{}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Liveness handles GET /health - simple liveness probe.
//
// Returns 200 OK if the server process is running. This endpoint should
// always succeed as long as the HTTP server is responsive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, okResponse(map[string]string{
		"service": "computeserver",
	}))
}

// StatusHandler handles the status endpoint.
type StatusHandler struct {
	source  StatusSource
	version string
}

// NewStatusHandler creates a new status handler.
//
// The source parameter may be nil, in which case the endpoint reports
// service unavailable.
func NewStatusHandler(source StatusSource, version string) *StatusHandler {
	return &StatusHandler{source: source, version: version}
}

// Status handles GET /status - live server state.
//
// Reports uptime, the authenticated connections, the in-flight tasks, and
// result cache statistics. Returns 503 Service Unavailable when the
// dispatcher is not reachable (starting up or shutting down).
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.source == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse("dispatcher not initialized"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	snap, err := h.source.Snapshot(ctx)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse(err.Error()))
		return
	}

	data := StatusData{
		Service:           "computeserver",
		Version:           h.version,
		Uptime:            time.Since(snap.StartedAt).Round(time.Second).String(),
		ActiveConnections: snap.ActiveConnections,
		AuthorizedUsers:   snap.AuthorizedUsers,
		RunningTasks:      snap.RunningTasks,
		Cache:             snap.Cache,
	}
	if data.AuthorizedUsers == nil {
		data.AuthorizedUsers = []string{}
	}
	if data.RunningTasks == nil {
		data.RunningTasks = []TaskStatus{}
	}

	writeJSON(w, http.StatusOK, okResponse(data))
}
