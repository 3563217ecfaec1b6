// Package metrics exposes the Prometheus instrumentation for the pieces of
// the runtime whose health isn't otherwise observable from the outside:
// how full the event queue is, how many events got dropped, how long a
// flush takes, and a data-source staleness gauge.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles every metric this module emits. Callers either use
// prometheus's default registry implicitly (the metrics self-register on
// construction) or pass a dedicated *prometheus.Registry via NewWith
// for test isolation.
type Registry struct {
	QueueDepth    prometheus.Gauge
	EventsDropped prometheus.Counter
	FlushDuration prometheus.Histogram
	// DataSourceStale is set to 0 by the Poll, Stream and File data
	// sources on each successful store update; nothing in this module
	// increases it between updates.
	DataSourceStale prometheus.Gauge
}

// New registers metrics against the global default registerer.
func New() *Registry {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers metrics against a caller-supplied registerer, so tests
// and multi-instance processes don't collide on the default registry.
func NewWith(reg prometheus.Registerer) *Registry {
	r := &Registry{
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flagcore",
			Subsystem: "events",
			Name:      "queue_depth",
			Help:      "Number of analytics events currently buffered in the outbound queue.",
		}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flagcore",
			Subsystem: "events",
			Name:      "dropped_total",
			Help:      "Total analytics events dropped because the queue was at capacity.",
		}),
		FlushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flagcore",
			Subsystem: "events",
			Name:      "flush_duration_seconds",
			Help:      "Time spent encoding and posting one flushed event batch.",
			Buckets:   prometheus.DefBuckets,
		}),
		DataSourceStale: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flagcore",
			Subsystem: "datasource",
			Name:      "seconds_since_last_update",
			Help:      "Seconds since the feature store last received a successful update.",
		}),
	}
	reg.MustRegister(r.QueueDepth, r.EventsDropped, r.FlushDuration, r.DataSourceStale)
	return r
}

// ObserveFlush records how long a flush's encode+post took.
func (r *Registry) ObserveFlush(start time.Time) {
	r.FlushDuration.Observe(time.Since(start).Seconds())
}
