// Package metrics is the process-wide metrics facade used by the pipeline.
//
// Pipeline code only calls the package-level helpers. A concrete backend
// (Pushgateway, Datadog) is installed once at startup with SetBackend; until
// then every call goes to a no-op backend.
package metrics

import (
	"sync"
	"time"
)

// Labels are metric dimensions, e.g. {"step": "impute", "status": "ok"}.
type Labels map[string]string

// Backend receives metric events.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

// Metric names emitted by the pipeline.
const (
	StepTotal           = "etl_step_total"
	StepDurationSeconds = "etl_step_duration_seconds"
	RecordsTotal        = "etl_records_total"
	RunsTotal           = "etl_runs_total"
	StageRows           = "etl_stage_rows"
)

// Record kinds for RecordsTotal.
const (
	KindLoaded            = "loaded"
	KindImputed           = "imputed"
	KindDroppedOutlier    = "dropped_outlier"
	KindDivisionUndefined = "division_undefined"
	KindPersisted         = "persisted"
)

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b. A nil b restores the no-op backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		b = nopBackend{}
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush asks the active backend to submit buffered data.
func Flush() error {
	return current().Flush()
}

// RecordStep emits the step counter and duration for one pipeline stage.
func RecordStep(step string, err error, d time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	l := Labels{"step": step, "status": status}
	IncCounter(StepTotal, 1, l)
	ObserveHistogram(StepDurationSeconds, d.Seconds(), l)
}

// AddRecords increments RecordsTotal for kind. Non-positive n is ignored.
func AddRecords(kind string, n int) {
	if n <= 0 {
		return
	}
	IncCounter(RecordsTotal, float64(n), Labels{"kind": kind})
}
