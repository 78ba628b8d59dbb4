package events

import (
	"errors"

	"github.com/avatarctic/timecache/internal/core/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsSink counts events and records remote operation latencies.
type MetricsSink struct {
	eventsTotal *prometheus.CounterVec
	opDuration  *prometheus.HistogramVec
}

// NewMetricsSink creates the collectors and registers them on reg.
// Collectors that are already registered are reused.
func NewMetricsSink(reg prometheus.Registerer) (*MetricsSink, error) {
	eventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timecache_events_total",
			Help: "Cache events by layer, operation and kind",
		},
		[]string{"layer", "op", "kind"},
	)
	opDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timecache_remote_op_duration_seconds",
			Help:    "Remote cache operation latencies in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op"},
	)

	var err error
	if eventsTotal, err = register(reg, eventsTotal); err != nil {
		return nil, err
	}
	if opDuration, err = register(reg, opDuration); err != nil {
		return nil, err
	}
	return &MetricsSink{eventsTotal: eventsTotal, opDuration: opDuration}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *MetricsSink) Emit(e ports.Event) {
	m.eventsTotal.WithLabelValues(e.Layer, e.Op, string(e.Kind)).Inc()
	if e.Layer == "remote" && e.Elapsed > 0 {
		m.opDuration.WithLabelValues(e.Op).Observe(e.Elapsed.Seconds())
	}
}
