// Package prompush implements metrics.Backend on top of a private Prometheus
// registry that is pushed to a Pushgateway on Flush.
package prompush

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"housingprep/internal/metrics"
)

// Backend buffers pipeline metrics in Prometheus collectors.
// Unknown metric names are ignored.
type Backend struct {
	pusher *push.Pusher

	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	labelNames map[string][]string
}

// NewBackend registers the pipeline collectors and targets gatewayURL under
// the given job name.
func NewBackend(job, gatewayURL string) (*Backend, error) {
	if strings.TrimSpace(gatewayURL) == "" {
		return nil, fmt.Errorf("prompush: empty pushgateway url")
	}
	if job == "" {
		job = "housingprep"
	}

	reg := prometheus.NewRegistry()
	b := &Backend{
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		labelNames: make(map[string][]string),
	}

	b.addCounter(reg, metrics.StepTotal, "Pipeline stages executed.", "step", "status")
	b.addCounter(reg, metrics.RecordsTotal, "Records by outcome kind.", "kind")
	b.addCounter(reg, metrics.RunsTotal, "Pipeline runs by status.", "status")
	b.addHistogram(reg, metrics.StepDurationSeconds, "Stage wall time.", prometheus.DefBuckets, "step", "status")
	b.addHistogram(reg, metrics.StageRows, "Records remaining after a stage.",
		prometheus.ExponentialBuckets(1, 10, 8), "stage")

	b.pusher = push.New(gatewayURL, job).Gatherer(reg)
	return b, nil
}

func (b *Backend) addCounter(reg *prometheus.Registry, name, help string, labels ...string) {
	v := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
	reg.MustRegister(v)
	b.counters[name] = v
	b.labelNames[name] = labels
}

func (b *Backend) addHistogram(reg *prometheus.Registry, name, help string, buckets []float64, labels ...string) {
	v := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: help, Buckets: buckets}, labels)
	reg.MustRegister(v)
	b.histograms[name] = v
	b.labelNames[name] = labels
}

// values orders labels as the collector expects; absent labels become "".
func (b *Backend) values(name string, labels metrics.Labels) []string {
	names := b.labelNames[name]
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = labels[n]
	}
	return out
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	v, ok := b.counters[name]
	if !ok || delta <= 0 {
		return
	}
	v.WithLabelValues(b.values(name, labels)...).Add(delta)
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	v, ok := b.histograms[name]
	if !ok {
		return
	}
	v.WithLabelValues(b.values(name, labels)...).Observe(value)
}

// Flush pushes the registry, replacing the job's previous group.
func (b *Backend) Flush() error {
	if err := b.pusher.Push(); err != nil {
		return fmt.Errorf("prompush: push: %w", err)
	}
	return nil
}

var _ metrics.Backend = (*Backend)(nil)
