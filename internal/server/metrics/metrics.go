// Package metrics exposes Prometheus collectors for the TCP server. All
// methods are safe on a nil *Metrics, which records nothing.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Options controls construction of the collectors.
type Options struct {
	Registerer prometheus.Registerer
	Namespace  string
	Buckets    []float64
}

type Metrics struct {
	requests          *prometheus.CounterVec
	duration          *prometheus.HistogramVec
	connections       prometheus.Counter
	activeConnections prometheus.Gauge
	overCapacity      prometheus.Counter
	framingErrors     prometheus.Counter
	refreshes         *prometheus.CounterVec
}

// New constructs collectors and registers them with the supplied
// registerer. Collectors already registered under the same name are reused.
func New(opts Options) (*Metrics, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "pledgeboard"
	}

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	buckets := opts.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	m := &Metrics{}
	var err error

	if m.requests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_total",
		Help:      "Total number of protocol requests partitioned by message type and status code.",
	}, []string{"type", "status"})); err != nil {
		return nil, err
	}

	if m.duration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "request_duration_seconds",
		Help:      "Histogram of request handling latencies in seconds partitioned by message type.",
		Buckets:   buckets,
	}, []string{"type"})); err != nil {
		return nil, err
	}

	if m.connections, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "connections_total",
		Help:      "Total number of accepted client connections.",
	})); err != nil {
		return nil, err
	}

	if m.activeConnections, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connections_active",
		Help:      "Current number of connected clients.",
	})); err != nil {
		return nil, err
	}

	if m.overCapacity, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "connections_over_capacity_total",
		Help:      "Connections accepted while more than the configured max clients were connected.",
	})); err != nil {
		return nil, err
	}

	if m.framingErrors, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "framing_errors_total",
		Help:      "Connections closed because a frame had the wrong size.",
	})); err != nil {
		return nil, err
	}

	if m.refreshes, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refreshes_total",
		Help:      "Open-data refreshes partitioned by scope and result.",
	}, []string{"scope", "result"})); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) ObserveRequest(msgType string, status int32, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(msgType, strconv.Itoa(int(status))).Inc()
	m.duration.WithLabelValues(msgType).Observe(d.Seconds())
}

func (m *Metrics) ConnectionOpened(overCapacity bool) {
	if m == nil {
		return
	}
	m.connections.Inc()
	m.activeConnections.Inc()
	if overCapacity {
		m.overCapacity.Inc()
	}
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.activeConnections.Dec()
}

func (m *Metrics) FramingError() {
	if m == nil {
		return
	}
	m.framingErrors.Inc()
}

func (m *Metrics) Refresh(scope string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.refreshes.WithLabelValues(scope, result).Inc()
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := already.ExistingCollector.(C)
			if !ok {
				return c, fmt.Errorf("existing collector has wrong type %T", already.ExistingCollector)
			}
			return existing, nil
		}
		return c, fmt.Errorf("register collector: %w", err)
	}
	return c, nil
}
