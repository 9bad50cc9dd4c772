package checker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"statuspage/app/internal/metrics"
	"statuspage/app/internal/models"
)

// SampleStore persists probe outcomes.
type SampleStore interface {
	InsertSample(ctx context.Context, s models.Sample) error
	PruneSamples(ctx context.Context, cutoff time.Time) (int64, error)
}

// Prober checks every registered service and records one sample each.
type Prober struct {
	Store     SampleStore
	Services  []models.Service
	Retention time.Duration // zero keeps samples forever
	Metrics   *metrics.Metrics
	Log       zerolog.Logger
	Now       func() time.Time

	// CheckFunc defaults to Check.
	CheckFunc func(ctx context.Context, svc models.Service) Result
}

// RunOnce probes all services concurrently and stores the samples. It
// returns how many samples were stored; insert failures are joined into err.
func (p *Prober) RunOnce(ctx context.Context) (int, error) {
	check := p.CheckFunc
	if check == nil {
		check = Check
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	takenAt := now().UTC()

	var (
		mu     sync.Mutex
		stored int
		errs   []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, svc := range p.Services {
		g.Go(func() error {
			res := check(gctx, svc)
			sm := models.Sample{
				TakenAt:    takenAt,
				ServiceKey: svc.Key,
				OK:         res.OK,
				HTTPStatus: res.Code,
				LatencyMS:  res.MS,
			}
			if p.Metrics != nil {
				p.Metrics.ProbeChecks.WithLabelValues(svc.Key, sm.Result()).Inc()
			}
			if !res.OK {
				p.Log.Warn().Str("service", svc.Key).Int("status", res.Code).Str("error", res.ErrMsg).Msg("probe failed")
			}
			err := p.Store.InsertSample(ctx, sm)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			stored++
			return nil
		})
	}
	_ = g.Wait()

	if p.Retention > 0 {
		n, err := p.Store.PruneSamples(ctx, takenAt.Add(-p.Retention))
		if err != nil {
			errs = append(errs, err)
		} else if n > 0 {
			p.Log.Debug().Int64("deleted", n).Msg("pruned old samples")
		}
	}
	return stored, errors.Join(errs...)
}

// Run probes immediately and then every interval until ctx is done.
func (p *Prober) Run(ctx context.Context, interval time.Duration) error {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		if n, err := p.RunOnce(ctx); err != nil {
			p.Log.Error().Err(err).Int("stored", n).Msg("probe round incomplete")
		} else {
			p.Log.Info().Int("stored", n).Msg("probe round complete")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
		}
	}
}
