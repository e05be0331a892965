// Package telemetry exposes Prometheus metrics for the HTTP server and the
// scan lifecycle. Each Provider owns its registry so tests and multiple
// servers in one process stay isolated.
package telemetry

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oralvis/oralvis/internal/platform/db"
)

const namespace = "oralvis"

// Config holds telemetry settings.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// RuntimeCollectors adds the Go runtime and process collectors.
	RuntimeCollectors bool
}

func (c *Config) applyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "oralvis"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "dev"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
}

// Provider holds the metric registry and the HTTP request collectors.
type Provider struct {
	cfg      Config
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

func NewProvider(cfg Config) *Provider {
	cfg.applyDefaults()
	reg := prometheus.NewRegistry()
	if cfg.RuntimeCollectors {
		reg.MustRegister(collectors.NewGoCollector())
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	f := promauto.With(reg)
	f.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build and environment information",
	}, []string{"service", "version", "environment"}).
		WithLabelValues(cfg.ServiceName, cfg.ServiceVersion, cfg.Environment).Set(1)

	return &Provider{
		cfg:      cfg,
		registry: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"method", "route"}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "HTTP requests currently being served",
		}),
	}
}

// Registry returns the provider's registry.
func (p *Provider) Registry() *prometheus.Registry {
	return p.registry
}

// MetricsMiddleware records request counts and latency, labelled with the
// matched route pattern rather than the raw path.
func (p *Provider) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Path() == "/metrics" {
				return next(c)
			}
			p.inFlight.Inc()
			defer p.inFlight.Dec()

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			} else if err != nil {
				status = http.StatusInternalServerError
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			p.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			p.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Provider) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry}))
}

// RegisterDBStats exports connection pool statistics read from checker at
// scrape time.
func (p *Provider) RegisterDBStats(checker db.Checker) {
	stat := func(pick func(*db.PoolStats) int32) func() float64 {
		return func() float64 {
			s := checker.Stats()
			if s == nil {
				return 0
			}
			return float64(pick(s))
		}
	}
	f := promauto.With(p.registry)
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "db", Name: "connections_total",
		Help: "Open database connections",
	}, stat(func(s *db.PoolStats) int32 { return s.TotalConns }))
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "db", Name: "connections_idle",
		Help: "Idle database connections",
	}, stat(func(s *db.PoolStats) int32 { return s.IdleConns }))
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "db", Name: "connections_in_use",
		Help: "Database connections in use",
	}, stat(func(s *db.PoolStats) int32 { return s.AcquiredConns }))
}
