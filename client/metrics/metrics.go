// Package metrics records attempt and call outcomes of the API client
// as Prometheus series. A nil *Collector is valid and records nothing.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutcomeSuccess labels attempts and calls that ended with a 2xx.
const OutcomeSuccess = "success"

// Collector holds the client series.
type Collector struct {
	attempts *prometheus.CounterVec
	retries  *prometheus.CounterVec
	calls    *prometheus.HistogramVec
}

// New registers the client series with reg. Series already registered
// by another Collector on the same registerer are shared.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		return nil, errors.New("registerer must not be nil")
	}

	c := &Collector{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apiclient",
			Name:      "attempts_total",
			Help:      "Total number of HTTP attempts by outcome.",
		}, []string{"method", "outcome"}),

		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apiclient",
			Name:      "retries_total",
			Help:      "Total number of retries scheduled, by the error kind that caused them.",
		}, []string{"kind"}),

		calls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "apiclient",
			Name:      "call_duration_seconds",
			Help:      "Duration of logical calls including retries and waits.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"method", "outcome"}),
	}

	var err error
	if c.attempts, err = register(reg, c.attempts); err != nil {
		return nil, err
	}
	if c.retries, err = register(reg, c.retries); err != nil {
		return nil, err
	}
	if c.calls, err = register(reg, c.calls); err != nil {
		return nil, err
	}

	return c, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, col T) (T, error) {
	if err := reg.Register(col); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, fmt.Errorf("registering collector: %w", err)
	}

	return col, nil
}

// Attempt counts one finished attempt.
func (c *Collector) Attempt(method, outcome string) {
	if c == nil {
		return
	}
	c.attempts.WithLabelValues(method, outcome).Inc()
}

// Retry counts one scheduled retry.
func (c *Collector) Retry(kind string) {
	if c == nil {
		return
	}
	c.retries.WithLabelValues(kind).Inc()
}

// Call observes the duration of one logical call.
func (c *Collector) Call(method, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.calls.WithLabelValues(method, outcome).Observe(d.Seconds())
}
