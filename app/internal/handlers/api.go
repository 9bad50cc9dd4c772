package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"statuspage/app/internal/aggregator"
	"statuspage/app/internal/monitor"
	"statuspage/app/internal/security"
)

// StatusRunner produces the per-service summaries.
type StatusRunner interface {
	Run(ctx context.Context) ([]aggregator.Result, error)
}

// FailureReporter lists services whose log fetches keep failing.
type FailureReporter interface {
	Failing() map[string]monitor.FailureState
}

// StatusResponse is the body of a successful GET /api/status.
type StatusResponse struct {
	Status string              `json:"status"`
	Data   []aggregator.Result `json:"data"`
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

const aggregateFailed = "failed to aggregate status"

// HandleStatus returns the 30-day uptime summary of every service.
func HandleStatus(runner StatusRunner, timeout time.Duration, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Status: "error", Message: "method not allowed"})
			return
		}

		ctx := r.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		results, err := runSafely(ctx, runner)
		if err != nil {
			log.Error().Err(err).Str("request_id", security.RequestIDFrom(r.Context())).Msg("status aggregation failed")
			w.Header().Set("Cache-Control", "no-store")
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Status: "error", Message: aggregateFailed})
			return
		}
		if results == nil {
			results = []aggregator.Result{}
		}
		w.Header().Set("Cache-Control", "public, max-age=60")
		writeJSON(w, http.StatusOK, StatusResponse{Status: "success", Data: results})
	}
}

func runSafely(ctx context.Context, runner StatusRunner) (results []aggregator.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			results, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return runner.Run(ctx)
}

// HandleHealth reports liveness plus the services whose fetches are failing.
func HandleHealth(failures FailureReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := map[string]any{"ok": true}
		if failures != nil {
			if failing := failures.Failing(); len(failing) > 0 {
				out["failing"] = failing
			}
		}
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, out)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
