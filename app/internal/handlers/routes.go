package handlers

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"statuspage/app/internal/auth"
	"statuspage/app/internal/ratelimit"
	"statuspage/app/internal/security"
)

// Deps are the collaborators the HTTP surface is built from. Optional
// fields may be nil and switch their routes off.
type Deps struct {
	Status        StatusRunner
	StatusTimeout time.Duration
	Failures      FailureReporter
	Cache         Purger
	Prober        ProbeRunner
	Auth          *auth.Auth
	Limiter       *ratelimit.Limiter
	Gatherer      prometheus.Gatherer
	Log           zerolog.Logger
}

// SetupRoutes configures all HTTP routes and middlewares
func SetupRoutes(d Deps) http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/api/status", HandleStatus(d.Status, d.StatusTimeout, d.Log))

	admin := http.NewServeMux()
	if d.Cache != nil {
		admin.HandleFunc("/api/admin/cache/purge", d.Auth.RequireAuth(HandlePurgeCache(d.Cache, d.Log)))
	}
	if d.Prober != nil {
		admin.HandleFunc("/api/admin/probe", d.Auth.RequireAuth(HandleProbeNow(d.Prober, d.Log)))
	}

	var public http.Handler = api
	if d.Limiter != nil {
		public = security.RateLimit(d.Limiter)(api)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/admin/", admin)
	mux.Handle("/api/", public)
	mux.HandleFunc("/healthz", HandleHealth(d.Failures))
	if d.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	return security.Chain(mux,
		security.RequestID,
		security.Logging(d.Log),
		security.SecureHeaders,
		GzipMiddleware,
	)
}
