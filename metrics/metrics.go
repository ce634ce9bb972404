// Package metrics records nest dispatch outcomes as Prometheus metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bjaus/nest"
)

// Collector holds the Prometheus metrics for one API.
type Collector struct {
	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Failure metrics
	ErrorsTotal *prometheus.CounterVec
}

// New creates a collector registered with the default registry.
func New(namespace string) *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer, namespace)
}

// NewWithRegistry creates a collector registered with reg.
func NewWithRegistry(reg prometheus.Registerer, namespace string) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of dispatched requests",
			},
			[]string{"method", "route", "version", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Dispatch duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route", "version"},
		),
		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of failed requests by error kind",
			},
			[]string{"method", "route", "kind"},
		),
	}
}

// Observe records ev. Pass it to nest.WithObserver. Unrouted requests are
// labelled with route "unmatched" to bound label cardinality.
func (c *Collector) Observe(ev nest.Event) {
	route := ev.Route
	if route == "" {
		route = "unmatched"
	}

	c.RequestsTotal.WithLabelValues(ev.Method, route, ev.Version, strconv.Itoa(ev.Status)).Inc()
	c.RequestDuration.WithLabelValues(ev.Method, route, ev.Version).Observe(ev.Duration.Seconds())
	if ev.Err != nil {
		c.ErrorsTotal.WithLabelValues(ev.Method, route, ev.Kind.String()).Inc()
	}
}
