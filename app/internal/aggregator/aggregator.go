// Package aggregator computes uptime summaries for every registered service.
package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"statuspage/app/internal/metrics"
	"statuspage/app/internal/models"
	"statuspage/app/internal/uptime"
)

// Loader is the fetch boundary: it never fails, it only reports whether
// usable text exists.
type Loader interface {
	Load(ctx context.Context, key string) (string, bool)
}

// Result is one service's entry in the status response.
type Result struct {
	Key     string         `json:"key"`
	URL     string         `json:"url"`
	Summary uptime.Summary `json:"data"`
}

// Options tunes an Aggregator.
type Options struct {
	// Concurrency bounds the number of in-flight fetches. Defaults to 8.
	Concurrency int
	Parse       uptime.ParseOptions
	// Now supplies "today"; defaults to time.Now.
	Now     func() time.Time
	Metrics *metrics.Metrics
	Log     zerolog.Logger
}

// Aggregator fans out over the registry.
type Aggregator struct {
	loader   Loader
	services []models.Service
	opts     Options
}

// New creates an Aggregator over a fixed service list.
func New(loader Loader, services []models.Service, opts Options) *Aggregator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Aggregator{loader: loader, services: services, opts: opts}
}

// Services returns the registry the aggregator runs over.
func (a *Aggregator) Services() []models.Service {
	return a.services
}

// Run summarizes every service concurrently. Results keep registry order.
// A service without usable data gets the empty summary; only cancellation
// of ctx or a panic in a service pipeline makes Run fail, and then no
// partial results are returned.
func (a *Aggregator) Run(ctx context.Context) (results []Result, err error) {
	start := time.Now()
	defer func() {
		if a.opts.Metrics == nil {
			return
		}
		a.opts.Metrics.AggregationDuration.Observe(time.Since(start).Seconds())
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		a.opts.Metrics.Aggregations.WithLabelValues(outcome).Inc()
	}()

	now := a.opts.Now()
	out := make([]Result, len(a.services))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Concurrency)
	for i, svc := range a.services {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("service %s: panic: %v", svc.Key, r)
				}
			}()
			out[i] = Result{
				Key:     svc.Key,
				URL:     svc.URL,
				Summary: a.summarize(gctx, svc.Key, now),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// summarize runs Fetch → Parse → Bucketize for one service.
func (a *Aggregator) summarize(ctx context.Context, key string, now time.Time) uptime.Summary {
	text, ok := a.loader.Load(ctx, key)
	if !ok {
		a.observeUptime(key, uptime.EmptySummary())
		return uptime.EmptySummary()
	}

	summary, stats, err := uptime.Aggregate(text, now, a.opts.Parse)
	if stats.Malformed > 0 {
		if a.opts.Metrics != nil {
			a.opts.Metrics.MalformedLines.WithLabelValues(key).Add(float64(stats.Malformed))
		}
		a.opts.Log.Warn().
			Str("service", key).
			Int("malformed", stats.Malformed).
			Int("lines", stats.Lines).
			Msg("skipped malformed log lines")
	}
	if err != nil {
		a.opts.Log.Warn().Err(err).Str("service", key).Msg("log rejected by strict parser")
	}
	a.observeUptime(key, summary)
	return summary
}

func (a *Aggregator) observeUptime(key string, s uptime.Summary) {
	if a.opts.Metrics == nil {
		return
	}
	if s.Up+s.Down == 0 {
		a.opts.Metrics.ServiceUptime.DeleteLabelValues(key)
		return
	}
	a.opts.Metrics.ServiceUptime.WithLabelValues(key).Set(float64(s.Up) / float64(s.Up+s.Down))
}
