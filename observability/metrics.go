/*
Package observability collects metrics of the chain queries made during a
run. Most commands are short lived so the metrics are dumped in Prometheus
text format when the command finishes, the chain collector exports the
chain state for a long running exporter.
*/
package observability

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "stakeaudit"

type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	legs     prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "requests_total",
			Help:      "Number of requests made to the chain query service.",
		}, []string{"endpoint", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "request_duration_seconds",
			Help:      "Duration of requests made to the chain query service.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),
		legs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "disburse",
			Name:      "legs_submitted_total",
			Help:      "Number of transfer legs submitted.",
		}),
	}
	m.registry.MustRegister(m.requests, m.duration, m.legs)
	return m
}

// ObserveRequest records outcome and duration of the request to "endpoint"
// which was started at "start".
func (m *Metrics) ObserveRequest(endpoint string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(endpoint, ErrStatus(err)).Inc()
	m.duration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func (m *Metrics) LegsSubmitted(n int) {
	if m == nil {
		return
	}
	m.legs.Add(float64(n))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteText writes current values of the metrics in Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	mfs, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	var errs []error
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			errs = append(errs, fmt.Errorf("writing metric %s: %w", mf.GetName(), err))
		}
	}
	return errors.Join(errs...)
}

/*
ErrStatus returns "ok" if the param err is nil and "err" when it is not,
meant to be used as value of the "status" label.
*/
func ErrStatus(err error) string {
	if err != nil {
		return "err"
	}
	return "ok"
}
