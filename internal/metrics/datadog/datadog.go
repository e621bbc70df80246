// Package datadog implements a Datadog backend for the internal/metrics package.
//
// Flushing:
// A pipeline run over a large extract can take minutes, so the backend buffers
// metrics in memory, submits them on a ticker (default once per minute) and
// submits one final time on Close.
//
// Concurrency model:
//   - stages (including the parallel imputer workers) may call
//     IncCounter/ObserveHistogram at any time
//   - Flush snapshots and resets buffers under a mutex, then submits out-of-lock
//   - the flush loop calls Flush periodically; Close stops the loop
//
// If the process is killed with SIGKILL/OOM, Close won't run.
package datadog

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"housingprep/internal/metrics"
)

// Options controls Datadog backend configuration.
type Options struct {
	// JobName becomes tag "job:<name>" on every metric.
	// If empty, defaults to "housingprep".
	JobName string

	// Tags are extra Datadog tags (e.g. []string{"env:prod", "team:data"}).
	Tags []string

	// FlushEvery controls how often buffered metrics are submitted.
	// If <= 0, defaults to 60 seconds.
	FlushEvery time.Duration

	// Unexported test seams. Production code never sets them.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

// metricsSubmitter is the subset of *datadogV2.MetricsApi the backend uses,
// so tests can stub submission without HTTP.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api metricsSubmitter
	ctx context.Context

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}

	baseTags []string

	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu sync.Mutex

	stepCounts      map[string]float64 // step\x00status -> count
	recordCounts    map[string]float64 // kind -> count
	runCounts       map[string]float64 // status -> count
	durationSamples map[string][]float64
	stageRows       map[string][]float64 // stage -> rows after stage
}

func resolveEnvTag() string {
	if v := strings.TrimSpace(os.Getenv("ENV")); v != "" {
		return "env:" + v
	}
	if v := strings.TrimSpace(os.Getenv("DD_ENV")); v != "" {
		return "env:" + v
	}
	return "env:unknown"
}

func (b *Backend) loop() {
	defer close(b.doneCh)

	t := b.newTicker(b.flushEvery)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// Close stops the background flush loop and performs one final Flush.
// It must be called at most once.
func (b *Backend) Close() error {
	close(b.stopCh)
	<-b.doneCh
	return b.Flush()
}

// NewBackend constructs a Datadog backend using the official client and
// starts its periodic flush loop.
//
// Credentials come from the client's standard environment (DD_API_KEY,
// DD_SITE). Environment tag selection uses ENV then DD_ENV, otherwise
// env:unknown. Network errors surface from Flush, not here.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	job := opts.JobName
	if job == "" {
		job = "housingprep"
	}
	if strings.ContainsAny(job, " ,") {
		return nil, wrapInitErr(fmt.Errorf("job name %q is not a valid tag value", job))
	}

	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	baseTags := make([]string, 0, 2+len(opts.Tags))
	baseTags = append(baseTags, resolveEnvTag(), "job:"+job)
	baseTags = append(baseTags, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}

	submitter := opts.submitter
	if submitter == nil {
		client := dd.NewAPIClient(dd.NewConfiguration())
		submitter = datadogV2.NewMetricsApi(client)
	}

	b := &Backend{
		api:        submitter,
		ctx:        dd.NewDefaultContext(parent),
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),

		baseTags: baseTags,

		now:       nowFn,
		newTicker: newTicker,

		stepCounts:      make(map[string]float64),
		recordCounts:    make(map[string]float64),
		runCounts:       make(map[string]float64),
		durationSamples: make(map[string][]float64),
		stageRows:       make(map[string][]float64),
	}

	go b.loop()
	return b, nil
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch name {
	case metrics.StepTotal:
		b.stepCounts[stepStatusKey(labels["step"], labels["status"])] += delta

	case metrics.RecordsTotal:
		kind := labels["kind"]
		if kind == "" {
			return
		}
		b.recordCounts[kind] += delta

	case metrics.RunsTotal:
		status := labels["status"]
		if status == "" {
			status = "unknown"
		}
		b.runCounts[status] += delta

	default:
		// Unknown metrics are ignored.
	}
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch name {
	case metrics.StepDurationSeconds:
		k := stepStatusKey(labels["step"], labels["status"])
		b.durationSamples[k] = append(b.durationSamples[k], value)

	case metrics.StageRows:
		stage := labels["stage"]
		if stage == "" {
			stage = "unknown"
		}
		b.stageRows[stage] = append(b.stageRows[stage], value)

	default:
		// Unknown histograms are ignored.
	}
}

// snapshot is the detached buffer state of one flush window.
type snapshot struct {
	stepCounts      map[string]float64
	recordCounts    map[string]float64
	runCounts       map[string]float64
	durationSamples map[string][]float64
	stageRows       map[string][]float64
}

// snapshotAndReset takes the lock, detaches the buffers and installs fresh ones.
func (b *Backend) snapshotAndReset() snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := snapshot{
		stepCounts:      b.stepCounts,
		recordCounts:    b.recordCounts,
		runCounts:       b.runCounts,
		durationSamples: b.durationSamples,
		stageRows:       b.stageRows,
	}

	b.stepCounts = make(map[string]float64)
	b.recordCounts = make(map[string]float64)
	b.runCounts = make(map[string]float64)
	b.durationSamples = make(map[string][]float64)
	b.stageRows = make(map[string][]float64)

	return s
}

func (s snapshot) isEmpty() bool {
	return len(s.stepCounts) == 0 &&
		len(s.recordCounts) == 0 &&
		len(s.runCounts) == 0 &&
		len(s.durationSamples) == 0 &&
		len(s.stageRows) == 0
}

// Flush submits buffered metrics to Datadog and resets local buffers.
//
// It returns nil without submitting when nothing was buffered. Buffers are
// reset even if submission fails; delivery is at most once.
func (b *Backend) Flush() error {
	snap := b.snapshotAndReset()
	if snap.isEmpty() {
		return nil
	}

	series := b.buildSeries(snap, b.now().Unix())
	payload := datadogV2.MetricPayload{Series: series}

	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

// buildSeries converts a snapshot into Datadog series at a fixed timestamp.
// It is pure: no locks, no network, no clocks.
func (b *Backend) buildSeries(s snapshot, nowUnix int64) []datadogV2.MetricSeries {
	addCount := func(metric string, value float64, tags []string) datadogV2.MetricSeries {
		return datadogV2.MetricSeries{
			Metric: metric,
			Type:   datadogV2.METRICINTAKETYPE_COUNT.Ptr(),
			Points: []datadogV2.MetricPoint{
				{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
			},
			Tags: tags,
		}
	}

	series := make([]datadogV2.MetricSeries, 0, len(s.stepCounts)+len(s.recordCounts)+32)

	for k, v := range s.stepCounts {
		if v == 0 {
			continue
		}
		step, status := splitStepStatusKey(k)
		series = append(series, addCount("housingprep.step.total", v, withTags(b.baseTags, "step:"+step, "status:"+status)))
	}

	for kind, v := range s.recordCounts {
		if v == 0 {
			continue
		}
		series = append(series, addCount("housingprep.records.total", v, withTags(b.baseTags, "kind:"+kind)))
	}

	for status, v := range s.runCounts {
		if v == 0 {
			continue
		}
		series = append(series, addCount("housingprep.runs.total", v, withTags(b.baseTags, "status:"+status)))
	}

	for k, samples := range s.durationSamples {
		step, status := splitStepStatusKey(k)
		addPercentiles(&series, withTags(b.baseTags, "step:"+step, "status:"+status),
			"housingprep.step.duration_seconds", samples, nowUnix)
	}

	for stage, samples := range s.stageRows {
		addPercentiles(&series, withTags(b.baseTags, "stage:"+stage),
			"housingprep.stage.rows", samples, nowUnix)
	}

	return series
}

// addPercentiles appends p50/p90/p95/p99/max/samples gauges for samples.
// It sorts a copy; samples is not modified. Empty samples add nothing.
func addPercentiles(series *[]datadogV2.MetricSeries, tags []string, metricPrefix string, samples []float64, nowUnix int64) {
	if len(samples) == 0 {
		return
	}
	cp := append([]float64(nil), samples...)
	sort.Float64s(cp)

	*series = append(*series,
		gaugeSeries(metricPrefix+".p50", percentileNearestRank(cp, 0.50), tags, nowUnix),
		gaugeSeries(metricPrefix+".p90", percentileNearestRank(cp, 0.90), tags, nowUnix),
		gaugeSeries(metricPrefix+".p95", percentileNearestRank(cp, 0.95), tags, nowUnix),
		gaugeSeries(metricPrefix+".p99", percentileNearestRank(cp, 0.99), tags, nowUnix),
		gaugeSeries(metricPrefix+".max", cp[len(cp)-1], tags, nowUnix),
		gaugeSeries(metricPrefix+".samples", float64(len(cp)), tags, nowUnix),
	)
}

func gaugeSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_GAUGE.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

func stepStatusKey(step, status string) string {
	return step + "\x00" + status
}

func splitStepStatusKey(k string) (step, status string) {
	parts := strings.SplitN(k, "\x00", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return k, "unknown"
}

func withTags(base []string, extras ...string) []string {
	out := make([]string, 0, len(base)+len(extras))
	out = append(out, base...)
	out = append(out, extras...)
	return out
}

// percentileNearestRank expects s sorted ascending.
func percentileNearestRank(s []float64, p float64) float64 {
	n := len(s)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return s[0]
	}
	if p >= 1 {
		return s[n-1]
	}
	idx := int(p*float64(n-1) + 0.5)
	if idx >= n {
		idx = n - 1
	}
	return s[idx]
}

var _ metrics.Backend = (*Backend)(nil)

// ParseTagsCSV parses comma-separated tags like "env:prod,team:data".
func ParseTagsCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func wrapInitErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("datadog metrics init: %w", err)
}
