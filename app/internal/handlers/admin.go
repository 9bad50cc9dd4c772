package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Purger drops cached log text.
type Purger interface {
	Purge(ctx context.Context) error
}

// ProbeRunner runs one probe round over the registry.
type ProbeRunner interface {
	RunOnce(ctx context.Context) (int, error)
}

// HandlePurgeCache empties the log cache so the next status request refetches.
func HandlePurgeCache(p Purger, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Status: "error", Message: "method not allowed"})
			return
		}
		if err := p.Purge(r.Context()); err != nil {
			log.Error().Err(err).Msg("cache purge failed")
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Status: "error", Message: "cache purge failed"})
			return
		}
		log.Info().Msg("log cache purged")
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "purged": true})
	}
}

// HandleProbeNow forces an immediate probe of all services
func HandleProbeNow(p ProbeRunner, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Status: "error", Message: "method not allowed"})
			return
		}
		now := time.Now().UTC()
		n, err := p.RunOnce(r.Context())
		if err != nil {
			log.Error().Err(err).Int("stored", n).Msg("manual probe incomplete")
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Status: "error", Message: "probe failed"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "saved": n, "t": now})
	}
}
