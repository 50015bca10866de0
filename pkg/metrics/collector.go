// Package metrics exposes Prometheus metrics for B2 API requests.
package metrics

import (
	stderr "errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/objectfs/b2/pkg/errors"
)

// Config represents metrics configuration
type Config struct {
	Enabled   bool              `yaml:"enabled"`
	Labels    map[string]string `yaml:"labels"`
	Namespace string            `yaml:"namespace"`
	Subsystem string            `yaml:"subsystem"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() *Config {
	return &Config{
		Enabled:   true,
		Namespace: "b2",
		Subsystem: "client",
		Labels:    make(map[string]string),
	}
}

// OperationStats is the in-process summary kept next to the Prometheus series.
type OperationStats struct {
	Count         int64         `json:"count"`
	Errors        int64         `json:"errors"`
	TotalDuration time.Duration `json:"total_duration"`
	BytesSent     int64         `json:"bytes_sent"`
	BytesReceived int64         `json:"bytes_received"`
	LastRequest   time.Time     `json:"last_request"`
	AvgDuration   time.Duration `json:"avg_duration"`
}

// Collector records per-operation request metrics.
type Collector struct {
	mu       sync.RWMutex
	config   *Config
	registry *prometheus.Registry

	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	bytesCounter    *prometheus.CounterVec
	errorCounter    *prometheus.CounterVec
	inFlight        prometheus.Gauge

	operations map[string]*OperationStats
}

// NewCollector creates a new metrics collector. A nil config means DefaultConfig.
func NewCollector(config *Config) (*Collector, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if !config.Enabled {
		return &Collector{config: config}, nil
	}

	c := &Collector{
		config:     config,
		registry:   prometheus.NewRegistry(),
		operations: make(map[string]*OperationStats),
	}
	c.initMetrics()

	for _, metric := range []prometheus.Collector{
		c.requestCounter,
		c.requestDuration,
		c.bytesCounter,
		c.errorCounter,
		c.inFlight,
	} {
		if err := c.registry.Register(metric); err != nil {
			return nil, errors.NewError(errors.ErrCodeInternalError, "failed to register metrics").
				WithComponent("metrics").
				WithCause(err)
		}
	}

	return c, nil
}

func (c *Collector) initMetrics() {
	constLabels := prometheus.Labels(c.config.Labels)

	c.requestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   c.config.Namespace,
			Subsystem:   c.config.Subsystem,
			Name:        "requests_total",
			Help:        "Total number of B2 API requests",
			ConstLabels: constLabels,
		},
		[]string{"operation", "status"},
	)

	c.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   c.config.Namespace,
			Subsystem:   c.config.Subsystem,
			Name:        "request_duration_seconds",
			Help:        "Duration of B2 API requests in seconds",
			Buckets:     prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~40s
			ConstLabels: constLabels,
		},
		[]string{"operation"},
	)

	c.bytesCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   c.config.Namespace,
			Subsystem:   c.config.Subsystem,
			Name:        "bytes_total",
			Help:        "Payload bytes sent and received",
			ConstLabels: constLabels,
		},
		[]string{"operation", "direction"},
	)

	c.errorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   c.config.Namespace,
			Subsystem:   c.config.Subsystem,
			Name:        "errors_total",
			Help:        "Total number of failed B2 API requests",
			ConstLabels: constLabels,
		},
		[]string{"operation", "type"},
	)

	c.inFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   c.config.Namespace,
			Subsystem:   c.config.Subsystem,
			Name:        "requests_in_flight",
			Help:        "Number of B2 API requests currently in flight",
			ConstLabels: constLabels,
		},
	)
}

// Enabled reports whether the collector records anything.
func (c *Collector) Enabled() bool {
	return c != nil && c.config.Enabled
}

// Registry returns the registry the collector's series live in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if !c.Enabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Begin marks a request as in flight and returns the func that ends it.
func (c *Collector) Begin() func() {
	if !c.Enabled() {
		return func() {}
	}
	c.inFlight.Inc()
	return c.inFlight.Dec
}

// RecordRequest records one finished request. status is the HTTP status, or 0 when
// no response was received.
func (c *Collector) RecordRequest(operation string, duration time.Duration, status int, sent, received int64, err error) {
	if !c.Enabled() {
		return
	}

	c.mu.Lock()
	stats, ok := c.operations[operation]
	if !ok {
		stats = &OperationStats{}
		c.operations[operation] = stats
	}
	stats.Count++
	stats.TotalDuration += duration
	stats.BytesSent += sent
	stats.BytesReceived += received
	if err != nil {
		stats.Errors++
	}
	stats.LastRequest = time.Now()
	stats.AvgDuration = time.Duration(int64(stats.TotalDuration) / stats.Count)
	c.mu.Unlock()

	statusLabel := "error"
	if status > 0 {
		statusLabel = strconv.Itoa(status)
	}
	c.requestCounter.With(prometheus.Labels{"operation": operation, "status": statusLabel}).Inc()
	c.requestDuration.With(prometheus.Labels{"operation": operation}).Observe(duration.Seconds())

	if sent > 0 {
		c.bytesCounter.With(prometheus.Labels{"operation": operation, "direction": "sent"}).Add(float64(sent))
	}
	if received > 0 {
		c.bytesCounter.With(prometheus.Labels{"operation": operation, "direction": "received"}).Add(float64(received))
	}

	if err != nil {
		c.errorCounter.With(prometheus.Labels{"operation": operation, "type": ClassifyError(err)}).Inc()
	}
}

// Operation returns a copy of the summary for one operation.
func (c *Collector) Operation(operation string) (OperationStats, bool) {
	if !c.Enabled() {
		return OperationStats{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	stats, ok := c.operations[operation]
	if !ok {
		return OperationStats{}, false
	}
	return *stats, true
}

// Reset clears the in-process summaries. Prometheus series are cumulative and stay.
func (c *Collector) Reset() {
	if !c.Enabled() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.operations = make(map[string]*OperationStats)
}

// ClassifyError maps an error onto a low-cardinality label value.
func ClassifyError(err error) string {
	if b2Err, ok := errors.As(err); ok {
		if b2Err.APICode != "" {
			return b2Err.APICode
		}
		return strings.ToLower(string(b2Err.Code))
	}

	var netErr net.Error
	if stderr.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	return "transport"
}
