package restapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts and times the requests sent to the REST API.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the client metrics on reg, reusing collectors already registered
// by another client.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "schoolhealth",
		Subsystem: "restapi",
		Name:      "requests_total",
		Help:      "Requests sent to the school health REST API.",
	}, []string{"method", "collection", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "schoolhealth",
		Subsystem: "restapi",
		Name:      "request_duration_seconds",
		Help:      "Latency of the requests sent to the school health REST API.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "collection"})

	var err error
	if requests, err = register(reg, requests); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	return &Metrics{requests: requests, duration: duration}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, errors.Wrap(err, "registering restapi metrics")
	}
	return c, nil
}

func (m *Metrics) observe(method, path string, status int, start time.Time) {
	if m == nil {
		return
	}
	coll := collection(path)
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.requests.WithLabelValues(method, coll, code).Inc()
	m.duration.WithLabelValues(method, coll).Observe(time.Since(start).Seconds())
}

// collection returns the first segment of path, ids never make it into labels.
func collection(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}
