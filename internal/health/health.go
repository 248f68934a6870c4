// Package health provides HTTP liveness and readiness handlers for the
// station's ops listener.
//
//   - /healthz — liveness; a process that can serve HTTP is alive.
//   - /readyz  — readiness; 200 only when every registered [Checker] passes.
//
// Responses are JSON with a top-level "status" ("ok" or "fail") and a
// "checks" map naming each probe's result.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// checkTimeout bounds a single readiness probe.
const checkTimeout = 5 * time.Second

// Checker is a named readiness probe. Check returns nil when the dependency
// is usable and must respect context cancellation.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

// DatasetWritable probes that the directory holding the dataset file accepts
// writes. The dataset itself may not exist yet; an unwritable directory is
// what would make the very first append fail.
func DatasetWritable(datasetPath string) Checker {
	return Checker{
		Name: "dataset",
		Check: func(ctx context.Context) error {
			dir := filepath.Dir(datasetPath)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("dataset dir: %w", err)
			}
			probe, err := os.CreateTemp(dir, ".ready-*")
			if err != nil {
				return fmt.Errorf("dataset dir not writable: %w", err)
			}
			probe.Close()
			return os.Remove(probe.Name())
		},
	}
}

// Pinger matches anything with a Ping method, such as the capture journal.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependency probes a named [Pinger].
func Dependency(name string, p Pinger) Checker {
	return Checker{Name: name, Check: p.Ping}
}

// result is the JSON response body.
type result struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves the two probe endpoints. The checker list is fixed at
// construction time, so the handler is safe for concurrent use.
type Handler struct {
	checkers []Checker
}

// New creates a [Handler] evaluating the given checkers, in order, on each
// /readyz request.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c}
}

// Healthz always returns 200 OK.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: "ok"})
}

// Readyz returns 200 only when every checker passes. Each probe runs under a
// [checkTimeout] deadline derived from the request context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.checkers))
	allOK := true

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			checks[c.Name] = "fail: " + err.Error()
			allOK = false
		} else {
			checks[c.Name] = "ok"
		}
	}

	res := result{Status: "ok", Checks: checks}
	status := http.StatusOK
	if !allOK {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

// Register adds the probe routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
