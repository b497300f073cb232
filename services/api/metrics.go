package apisvc

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/trezcool/schooladmin/core"
)

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer, logger core.Logger) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "schooladmin",
			Name:      "api_requests_total",
			Help:      "Requests sent to the school platform API.",
		}, []string{"method", "endpoint", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "schooladmin",
			Name:      "api_request_duration_seconds",
			Help:      "Latency of the school platform API.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
	if reg == nil {
		return m
	}
	m.requests = register(reg, m.requests, logger).(*prometheus.CounterVec)
	m.duration = register(reg, m.duration, logger).(*prometheus.HistogramVec)
	return m
}

// register returns the collector already registered under the same name, if any.
func register(reg prometheus.Registerer, c prometheus.Collector, logger core.Logger) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector
		}
		logger.Warn("registering api metrics", err)
	}
	return c
}

// observe records one request. code is the HTTP status, or "error" when no response came back.
func (m *metrics) observe(method, endpoint, code string, elapsed time.Duration) {
	m.requests.WithLabelValues(method, endpoint, code).Inc()
	m.duration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}
