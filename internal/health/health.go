// Package health serves the liveness, readiness and service-info endpoints.
//
//   - /healthz: liveness; 200 whenever the process can serve HTTP.
//   - /readyz: readiness; 200 only when every registered [Checker] passes.
//   - /health: service identity plus caller-supplied details such as the
//     supported languages.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"sync"
	"time"
)

// checkTimeout bounds a single readiness check.
const checkTimeout = 5 * time.Second

// Checker is a named readiness check. Check returns nil when the dependency
// is usable.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

// BreakerChecker reports not-ready while open returns true. It suits circuit
// breakers guarding a provider without which the service cannot work.
func BreakerChecker(name string, open func() bool) Checker {
	return Checker{
		Name: name,
		Check: func(context.Context) error {
			if open() {
				return fmt.Errorf("%s circuit open", name)
			}
			return nil
		},
	}
}

type result struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Info identifies the service on /health.
type Info struct {
	Service string
	Version string
	// Details returns extra top-level fields merged into the /health body.
	// May be nil.
	Details func() map[string]any
}

// Handler serves the health endpoints. The checker list is fixed at
// construction time.
type Handler struct {
	info     Info
	checkers []Checker
}

// New creates a [Handler].
func New(info Info, checkers ...Checker) *Handler {
	return &Handler{info: info, checkers: append([]Checker(nil), checkers...)}
}

// Healthz always returns 200.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: "ok"})
}

// Readyz runs every checker concurrently, each under a [checkTimeout]
// deadline, and returns 503 if any fails.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]string, len(h.checkers))
		allOK  = true
	)
	for _, c := range h.checkers {
		wg.Go(func() {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			defer cancel()
			err := c.Check(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				checks[c.Name] = "fail: " + err.Error()
				allOK = false
				return
			}
			checks[c.Name] = "ok"
		})
	}
	wg.Wait()

	res := result{Status: "ok", Checks: checks}
	status := http.StatusOK
	if !allOK {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

// Health reports service identity with status "healthy".
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{}
	if h.info.Details != nil {
		maps.Copy(body, h.info.Details())
	}
	body["status"] = "healthy"
	body["service"] = h.info.Service
	body["version"] = h.info.Version
	writeJSON(w, http.StatusOK, body)
}

// Register adds the health routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
