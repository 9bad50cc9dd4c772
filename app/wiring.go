package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"statuspage/app/internal/aggregator"
	"statuspage/app/internal/alerts"
	"statuspage/app/internal/cache"
	"statuspage/app/internal/config"
	"statuspage/app/internal/database"
	"statuspage/app/internal/metrics"
	"statuspage/app/internal/source"
	"statuspage/app/internal/uptime"
)

// redisNamespace prefixes every key this service writes to Redis.
const redisNamespace = "statuspage"

// pipeline is everything between a log store and the aggregator.
type pipeline struct {
	Cached     *source.Cached
	Fetcher    *source.Fetcher
	Aggregator *aggregator.Aggregator
	DB         *database.Store

	closers []func() error
}

func (p *pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		_ = p.closers[i]()
	}
}

// buildPipeline wires source, cache, fetcher and aggregator from cfg.
func buildPipeline(cfg *config.Config, m *metrics.Metrics, log zerolog.Logger) (*pipeline, error) {
	p := &pipeline{}

	src, err := buildSource(cfg, p)
	if err != nil {
		p.Close()
		return nil, err
	}

	store, err := buildCacheStore(cfg, p)
	if err != nil {
		p.Close()
		return nil, err
	}

	p.Cached = source.NewCached(src, store, cfg.CacheTTL, log.With().Str("component", "cache").Logger())
	p.Cached.Timeout = cfg.FetchTimeout
	if m != nil {
		name := src.Name()
		p.Cached.OnHit = func(string) {
			m.Fetches.WithLabelValues(name, metrics.OutcomeCacheHit).Inc()
		}
	}
	p.Fetcher = source.NewFetcher(p.Cached, log.With().Str("component", "fetcher").Logger(), m)
	if hook := alerts.NewWebhook(cfg.AlertWebhookURL, cfg.AlertWebhookSecret, log.With().Str("component", "alerts").Logger()); hook != nil {
		p.Fetcher.Alerts = hook
	}
	p.Aggregator = aggregator.New(p.Fetcher, cfg.Services, aggregator.Options{
		Concurrency: cfg.Concurrency,
		Parse:       uptime.ParseOptions{Strict: cfg.StrictParse},
		Metrics:     m,
		Log:         log.With().Str("component", "aggregator").Logger(),
	})
	return p, nil
}

func buildSource(cfg *config.Config, p *pipeline) (source.Source, error) {
	switch cfg.LogSource {
	case "http":
		return source.NewHTTP(cfg.LogURLTemplate, cfg.FetchTimeout), nil
	case "s3":
		return source.NewBucket(source.BucketConfig{
			Endpoint:  cfg.S3.Endpoint,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			UseSSL:    cfg.S3.UseSSL,
			Prefix:    cfg.S3.Prefix,
		})
	case "sqlite":
		db, err := openDB(cfg, p)
		if err != nil {
			return nil, err
		}
		return &source.SQLite{Store: db}, nil
	default:
		return nil, fmt.Errorf("unknown LOG_SOURCE %q", cfg.LogSource)
	}
}

func openDB(cfg *config.Config, p *pipeline) (*database.Store, error) {
	if p.DB != nil {
		return p.DB, nil
	}
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	p.DB = db
	p.closers = append(p.closers, db.Close)
	return db, nil
}

func buildCacheStore(cfg *config.Config, p *pipeline) (cache.Store, error) {
	switch cfg.CacheBackend {
	case "memory":
		c := cache.New(cfg.CacheTTL)
		p.closers = append(p.closers, func() error { c.Stop(); return nil })
		return c, nil
	case "redis":
		rs := cache.NewRedisStore(cache.NewRedisPool(cfg.RedisAddr), redisNamespace, cfg.CacheTTL)
		p.closers = append(p.closers, rs.Close)
		return rs, nil
	default:
		return nil, fmt.Errorf("unknown CACHE_BACKEND %q", cfg.CacheBackend)
	}
}

// statusTimeout bounds one aggregation so a hung store cannot hold a request forever.
func statusTimeout(cfg *config.Config) time.Duration {
	return cfg.FetchTimeout + 5*time.Second
}
