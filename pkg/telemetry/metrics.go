package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for typescope.
type Metrics struct {
	config MetricsConfig

	// Scan metrics
	scans        *prometheus.CounterVec
	typesLoaded  *prometheus.CounterVec
	typesFailed  *prometheus.CounterVec
	scanDuration *prometheus.HistogramVec

	// Load metrics
	loads        *prometheus.CounterVec
	loadDuration *prometheus.HistogramVec

	// Invocation metrics
	invocations *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		scans: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scans_total",
				Help:      "Total number of module scans",
			},
			[]string{"module", "result"},
		),
		typesLoaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "types_loaded_total",
				Help:      "Total number of exported types that loaded",
			},
			[]string{"module"},
		),
		typesFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "types_failed_total",
				Help:      "Total number of exported types that failed to load",
			},
			[]string{"module"},
		),
		scanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scan_duration_seconds",
				Help:      "Duration of module scans in seconds",
				Buckets:   buckets,
			},
			[]string{"module"},
		),

		loads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "binary_loads_total",
				Help:      "Total number of binary loads",
			},
			[]string{"profile", "result"},
		),
		loadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "binary_load_duration_seconds",
				Help:      "Duration of binary loads in seconds",
				Buckets:   buckets,
			},
			[]string{"profile"},
		),

		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "invocations_total",
				Help:      "Total number of static method invocations",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		m.scans,
		m.typesLoaded,
		m.typesFailed,
		m.scanDuration,
		m.loads,
		m.loadDuration,
		m.invocations,
	)

	return m, nil
}

// RecordScan records a completed or failed scan.
func (m *Metrics) RecordScan(module string, loaded, failed int, duration time.Duration, err error) {
	if m == nil || m.scans == nil {
		return
	}
	result := "ok"
	switch {
	case err != nil:
		result = "error"
	case failed > 0:
		result = "partial"
	}
	m.scans.WithLabelValues(module, result).Inc()
	m.typesLoaded.WithLabelValues(module).Add(float64(loaded))
	m.typesFailed.WithLabelValues(module).Add(float64(failed))
	m.scanDuration.WithLabelValues(module).Observe(duration.Seconds())
}

// RecordLoad records a binary load attempt.
func (m *Metrics) RecordLoad(profile string, duration time.Duration, err error) {
	if m == nil || m.loads == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.loads.WithLabelValues(profile, result).Inc()
	m.loadDuration.WithLabelValues(profile).Observe(duration.Seconds())
}

// RecordInvocation records a static method invocation.
func (m *Metrics) RecordInvocation(err error) {
	if m == nil || m.invocations == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.invocations.WithLabelValues(result).Inc()
}

// Registry returns the registry backing the metrics, or nil when disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server exposing the metrics. The server
// stops when ctx is done. Errors after startup are sent to errFn.
func (m *Metrics) StartMetricsServer(ctx context.Context, errFn func(error)) error {
	if !m.config.Enabled {
		return nil
	}

	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) && errFn != nil {
			errFn(err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	return nil
}
