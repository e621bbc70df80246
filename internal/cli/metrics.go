package cli

import (
	"context"
	"os"

	"go.uber.org/zap"

	"housingprep/internal/config"
	"housingprep/internal/metrics"
	"housingprep/internal/metrics/datadog"
	"housingprep/internal/metrics/prompush"
)

const defaultPushgatewayURL = "http://localhost:9091"

// firstNonEmpty implements flag -> env -> config -> default precedence.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// setupMetrics installs the selected backend and returns a function that
// flushes it and restores the no-op backend. A backend that fails to start is
// logged and metrics stay disabled.
func setupMetrics(ctx context.Context, p config.Pipeline, opts *RootOptions, log *zap.Logger) func() {
	backendName := firstNonEmpty(opts.MetricsBackend, os.Getenv("METRICS_BACKEND"), p.Metrics.Backend)

	jobName := p.Job
	if jobName == "" {
		jobName = "housingprep"
	}

	switch backendName {
	case "pushgateway":
		gwURL := firstNonEmpty(opts.PushgatewayURL, os.Getenv("PUSHGATEWAY_URL"), p.Metrics.PushgatewayURL, defaultPushgatewayURL)
		b, err := prompush.NewBackend(jobName, gwURL)
		if err != nil {
			log.Warn("metrics: pushgateway backend unavailable; using nop", zap.Error(err))
			return func() {}
		}
		log.Info("metrics", zap.String("backend", backendName), zap.String("url", gwURL), zap.String("job_name", jobName))
		metrics.SetBackend(b)
		return func() {
			if err := metrics.Flush(); err != nil {
				log.Warn("metrics: flush error", zap.Error(err))
			}
			metrics.SetBackend(nil)
		}

	case "datadog":
		tags := append(append([]string(nil), p.Metrics.Tags...), datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS"))...)
		b, err := datadog.NewBackend(ctx, datadog.Options{
			JobName:    jobName,
			Tags:       tags,
			FlushEvery: p.Metrics.FlushEvery,
		})
		if err != nil {
			log.Warn("metrics: datadog backend unavailable; using nop", zap.Error(err))
			return func() {}
		}
		log.Info("metrics", zap.String("backend", backendName), zap.String("job_name", jobName), zap.Strings("tags", tags))
		metrics.SetBackend(b)
		return func() {
			// Close stops the flush loop and submits what is still buffered.
			if err := b.Close(); err != nil {
				log.Warn("metrics: datadog close/flush error", zap.Error(err))
			}
			metrics.SetBackend(nil)
		}

	case "", "none":
		log.Debug("metrics: disabled")
	default:
		log.Warn("metrics: unknown backend; metrics disabled", zap.String("backend", backendName))
	}
	return func() {}
}
