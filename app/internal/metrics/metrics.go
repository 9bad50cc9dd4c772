package metrics

import "github.com/prometheus/client_golang/prometheus"

// Fetch outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
	OutcomeCacheHit = "cache_hit"
)

type Metrics struct {
	Fetches             *prometheus.CounterVec
	FetchDuration       *prometheus.HistogramVec
	MalformedLines      *prometheus.CounterVec
	Aggregations        *prometheus.CounterVec
	AggregationDuration prometheus.Histogram
	ServiceUptime       *prometheus.GaugeVec
	ProbeChecks         *prometheus.CounterVec
}

// NewMetrics initializes and returns a Metrics struct with the necessary Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statuspage_log_fetches_total",
			Help: "Log fetches per source and outcome",
		}, []string{"source", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "statuspage_log_fetch_duration_seconds",
			Help:    "Duration of log fetches from the backing source",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		MalformedLines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statuspage_malformed_lines_total",
			Help: "Log lines skipped because they could not be parsed",
		}, []string{"service"}),
		Aggregations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statuspage_aggregations_total",
			Help: "Aggregation runs by result",
		}, []string{"result"}),
		AggregationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "statuspage_aggregation_duration_seconds",
			Help:    "Duration of a full aggregation over all services",
			Buckets: prometheus.DefBuckets,
		}),
		ServiceUptime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "statuspage_service_uptime_ratio",
			Help: "Overall uptime ratio of each service's log, absent when there is no data",
		}, []string{"service"}),
		ProbeChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "statuspage_probe_checks_total",
			Help: "Probe checks by service and result",
		}, []string{"service", "result"}),
	}
}

// RegisterMetrics registers the metrics with Prometheus.
func (m *Metrics) RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.Fetches,
		m.FetchDuration,
		m.MalformedLines,
		m.Aggregations,
		m.AggregationDuration,
		m.ServiceUptime,
		m.ProbeChecks,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
