package source

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"statuspage/app/internal/metrics"
	"statuspage/app/internal/monitor"
)

// escalateAfter is the number of consecutive failures after which a
// service's fetch errors are logged at error level.
const escalateAfter = 3

// Alerter is told when a service enters and leaves an escalated failure run.
type Alerter interface {
	FetchFailing(key string, st monitor.FailureState)
	FetchRecovered(key string)
}

// Fetcher is the boundary between the aggregator and a Source: it never
// returns an error. A missing log and a failed fetch both come back as
// ok=false; failures are logged.
type Fetcher struct {
	src      Source
	log      zerolog.Logger
	metrics  *metrics.Metrics
	failures *monitor.FailureTracker

	// Alerts, when set, is notified once per escalated failure run.
	Alerts Alerter
}

// NewFetcher wraps src. m may be nil.
func NewFetcher(src Source, log zerolog.Logger, m *metrics.Metrics) *Fetcher {
	return &Fetcher{
		src:      src,
		log:      log,
		metrics:  m,
		failures: monitor.NewFailureTracker(),
	}
}

// Load returns the log text for key, or ok=false when there is no usable data.
func (f *Fetcher) Load(ctx context.Context, key string) (text string, ok bool) {
	start := time.Now()
	text, err := f.src.Fetch(ctx, key)
	if f.metrics != nil {
		f.metrics.FetchDuration.WithLabelValues(f.src.Name()).Observe(time.Since(start).Seconds())
	}

	switch {
	case err == nil:
		f.succeeded(key)
		f.count(metrics.OutcomeOK)
		return text, true

	case errors.Is(err, ErrNotFound):
		f.succeeded(key)
		f.count(metrics.OutcomeNotFound)
		f.log.Debug().Str("service", key).Msg("no log for service")
		return "", false

	case ctx.Err() != nil:
		// The caller gave up; that says nothing about the store.
		f.log.Debug().Err(ctx.Err()).Str("service", key).Msg("log fetch abandoned")
		return "", false

	default:
		n := f.failures.Failed(key, err)
		f.count(metrics.OutcomeError)
		ev := f.log.Warn()
		if n >= escalateAfter {
			ev = f.log.Error()
		}
		ev.Err(err).
			Str("service", key).
			Str("source", f.src.Name()).
			Int("consecutive_failures", n).
			Msg("log fetch failed")
		if n == escalateAfter && f.Alerts != nil {
			if st, ok := f.failures.Snapshot()[key]; ok {
				f.Alerts.FetchFailing(key, st)
			}
		}
		return "", false
	}
}

// Failures reports the consecutive failure count for key.
func (f *Fetcher) Failures(key string) int {
	return f.failures.Count(key)
}

// Failing returns the services currently in a failure run.
func (f *Fetcher) Failing() map[string]monitor.FailureState {
	return f.failures.Snapshot()
}

func (f *Fetcher) succeeded(key string) {
	if n := f.failures.Succeeded(key); n >= escalateAfter {
		f.log.Info().Str("service", key).Int("failures", n).Msg("log fetch recovered")
		if f.Alerts != nil {
			f.Alerts.FetchRecovered(key)
		}
	}
}

func (f *Fetcher) count(outcome string) {
	if f.metrics != nil {
		f.metrics.Fetches.WithLabelValues(f.src.Name(), outcome).Inc()
	}
}
