// Package pipeline runs the housing preparation stages in order: load,
// impute, filter outliers, derive features, encode the category, attach the
// group mean, persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"housingprep/internal/config"
	"housingprep/internal/dataset"
	"housingprep/internal/housing"
	"housingprep/internal/logging"
	"housingprep/internal/metrics"
	"housingprep/internal/prep"
	"housingprep/internal/report"
	"housingprep/internal/sink"
	"housingprep/internal/source"
)

// Runner executes one configured pipeline. The factory fields are seams for
// tests; NewRunner fills them with the production implementations.
type Runner struct {
	Config config.Pipeline
	Logger *zap.Logger

	NewLoader func(cfg config.Source, schema dataset.Schema) (source.Loader, error)
	// NewSink is only called once every transform stage has succeeded.
	NewSink  func(ctx context.Context, cfg config.Sink) (sink.Sink, error)
	NewRunID func() string
	Now      func() time.Time
}

func NewRunner(cfg config.Pipeline, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		Config:    cfg,
		Logger:    logger,
		NewLoader: source.New,
		NewSink:   sink.New,
		NewRunID:  uuid.NewString,
		Now:       time.Now,
	}
}

// Result describes a finished or halted run.
type Result struct {
	RunID string
	State State
	// Output is the aggregated dataset, nil if a transform stage failed.
	Output *dataset.Dataset
	Report *report.Run
}

// Run executes every stage. On failure it returns the partial Result and a
// *StageError; loader and sink failures also match dataset.ErrIO.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	cfg := r.Config
	runID := r.NewRunID()
	log := logging.ForRun(r.Logger, runID, cfg.Job)

	if cfg.Runtime.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Runtime.Timeout)
		defer cancel()
	}

	start := r.Now()
	res := &Result{
		RunID:  runID,
		Report: &report.Run{RunID: runID, Job: cfg.Job, StartedAt: start.UTC()},
	}
	log.Info("run start",
		zap.String("source", cfg.Source.Kind),
		zap.String("sink", cfg.Sink.Kind),
		zap.Int("workers", cfg.Runtime.Workers),
	)

	err := r.run(ctx, log, res)

	rep := res.Report
	rep.Duration = r.Now().Sub(start).Truncate(time.Millisecond)
	rep.Status = "ok"
	if err != nil {
		rep.Status = "error"
		rep.Error = err.Error()
		var se *StageError
		if errors.As(err, &se) {
			rep.FailedStage = se.Stage.String()
		}
	}
	metrics.IncCounter(metrics.RunsTotal, 1, metrics.Labels{"status": rep.Status})

	if path := cfg.Report.Path; path != "" {
		if werr := rep.WriteFile(path); werr != nil {
			log.Warn("report not written", zap.String("path", path), zap.Error(werr))
		}
	}

	if err != nil {
		log.Error("run failed", zap.Stringer("state", res.State), zap.Duration("duration", rep.Duration), zap.Error(err))
		return res, err
	}
	log.Info("run ok", zap.Duration("duration", rep.Duration), zap.Int("rows", res.Output.Len()))
	return res, nil
}

func (r *Runner) run(ctx context.Context, log *zap.Logger, res *Result) error {
	cfg := r.Config
	t := cfg.Transform
	rep := res.Report
	var ds *dataset.Dataset

	if err := r.step(ctx, log, res, StageLoad, func() (int, error) {
		loader, err := r.NewLoader(cfg.Source, housing.InputSchema())
		if err != nil {
			return 0, ioError(err)
		}
		out, err := loader.Load(ctx)
		if err != nil {
			return 0, ioError(err)
		}
		ds = out
		metrics.AddRecords(metrics.KindLoaded, ds.Len())
		return ds.Len(), nil
	}); err != nil {
		return err
	}

	if err := r.step(ctx, log, res, StageImpute, func() (int, error) {
		out, ir, err := prep.Impute(ctx, ds, prep.ImputeOptions{
			Columns:       t.ImputeColumns,
			RelativeError: t.ImputeRelativeError,
			OnEmpty:       prep.EmptyPolicy(t.OnEmptyColumn),
			Workers:       cfg.Runtime.Workers,
		})
		if err != nil {
			return 0, err
		}
		ds = out
		rep.Medians, rep.Imputed = ir.Medians, ir.Filled
		filled := 0
		for col, n := range ir.Filled {
			filled += n
			if n > 0 {
				log.Debug("imputed", zap.String("column", col), zap.Int("cells", n), zap.Float64("median", ir.Medians[col]))
			}
		}
		metrics.AddRecords(metrics.KindImputed, filled)
		return ds.Len(), nil
	}); err != nil {
		return err
	}

	if err := r.step(ctx, log, res, StageFilter, func() (int, error) {
		out, bounds, err := prep.FilterOutliers(ctx, ds, t.OutlierColumns, t.IQRMultiplier, t.OutlierRelativeError)
		if err != nil {
			return 0, err
		}
		ds = out
		dropped := 0
		for _, b := range bounds {
			dropped += b.Dropped
			rep.Bounds = append(rep.Bounds, report.Bounds(b))
			log.Debug("outlier bounds",
				zap.String("column", b.Column),
				zap.Float64("lower", b.Lower),
				zap.Float64("upper", b.Upper),
				zap.Int("dropped", b.Dropped),
			)
		}
		metrics.AddRecords(metrics.KindDroppedOutlier, dropped)
		if ds.Len() == 0 {
			log.Warn("no records survived outlier filtering")
		}
		return ds.Len(), nil
	}); err != nil {
		return err
	}

	if err := r.step(ctx, log, res, StageEnrich, func() (int, error) {
		out, stats, err := prep.DeriveFeatures(ds)
		if err != nil {
			return 0, err
		}
		ds = out
		rep.DivisionUndefined, rep.DivisionMissing = nonZero(stats.Undefined), nonZero(stats.MissingInput)
		undefined := 0
		for col, n := range stats.Undefined {
			undefined += n
			if n > 0 {
				log.Warn("zero denominator", zap.String("column", col), zap.Int("records", n))
			}
		}
		metrics.AddRecords(metrics.KindDivisionUndefined, undefined)
		return ds.Len(), nil
	}); err != nil {
		return err
	}

	if err := r.step(ctx, log, res, StageEncode, func() (int, error) {
		out, ci, err := prep.EncodeCategory(ds, t.Category.SourceColumn, t.Category.TargetColumn)
		if err != nil {
			return 0, err
		}
		ds = out
		for i, c := range ci.Categories {
			rep.Categories = append(rep.Categories, report.Category{Value: c, Index: i, Count: ci.Counts[i]})
		}
		return ds.Len(), nil
	}); err != nil {
		return err
	}

	if err := r.step(ctx, log, res, StageAggregate, func() (int, error) {
		out, groups, err := prep.AttachGroupMean(ds, t.Aggregate.GroupColumn, t.Aggregate.TargetColumn, t.Aggregate.OutputColumn)
		if err != nil {
			return 0, err
		}
		ds = out
		rep.Groups = groups
		return ds.Len(), nil
	}); err != nil {
		return err
	}
	res.Output = ds

	return r.step(ctx, log, res, StagePersist, func() (int, error) {
		if err := r.persist(ctx, ds); err != nil {
			return 0, ioError(err)
		}
		metrics.AddRecords(metrics.KindPersisted, ds.Len())
		return ds.Len(), nil
	})
}

func (r *Runner) persist(ctx context.Context, ds *dataset.Dataset) error {
	s, err := r.NewSink(ctx, r.Config.Sink)
	if err != nil {
		return err
	}
	werr := s.Write(ctx, ds)
	cerr := s.Close()
	if werr != nil {
		return werr
	}
	if cerr != nil {
		return fmt.Errorf("close sink: %w", cerr)
	}
	return nil
}

// step runs fn as stage s, advancing res.State on success. fn returns the
// record count after the stage.
func (r *Runner) step(ctx context.Context, log *zap.Logger, res *Result, s Stage, fn func() (int, error)) error {
	if err := ctx.Err(); err != nil {
		return &StageError{Stage: s, Err: err}
	}

	start := time.Now()
	rows, err := fn()
	d := time.Since(start)
	metrics.RecordStep(s.String(), err, d)

	if err != nil {
		log.Error("stage failed", zap.Stringer("stage", s), zap.Duration("duration", d), zap.Error(err))
		return &StageError{Stage: s, Err: err}
	}

	res.State = s.Target()
	res.Report.Stages = append(res.Report.Stages, report.StageRows{Stage: s.String(), Rows: rows, Duration: d})
	metrics.ObserveHistogram(metrics.StageRows, float64(rows), metrics.Labels{"stage": s.String()})
	log.Info("stage ok", zap.Stringer("stage", s), zap.Duration("duration", d), zap.Int("rows", rows))
	return nil
}

func ioError(err error) error {
	if errors.Is(err, dataset.ErrIO) {
		return err
	}
	return fmt.Errorf("%w: %w", dataset.ErrIO, err)
}

func nonZero(m map[string]int) map[string]int {
	var out map[string]int
	for k, v := range m {
		if v == 0 {
			continue
		}
		if out == nil {
			out = make(map[string]int)
		}
		out[k] = v
	}
	return out
}
