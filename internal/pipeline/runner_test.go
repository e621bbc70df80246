package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"housingprep/internal/config"
	"housingprep/internal/dataset"
	"housingprep/internal/housing"
	"housingprep/internal/metrics"
	"housingprep/internal/report"
	"housingprep/internal/sink"
	"housingprep/internal/source"
	"housingprep/internal/storage"
)

const sampleCSV = "longitude,latitude,housing_median_age,total_rooms,total_bedrooms,population,households,median_income,median_house_value,ocean_proximity\n" +
	"-122.23,37.88,41,880,129,322,126,8.3252,452600,NEAR BAY\n" +
	"-122.22,37.86,21,7099,1106,2401,1138,8.3014,358500,NEAR BAY\n" +
	"-122.24,37.85,52,1467,190,496,177,7.2574,352100,NEAR BAY\n" +
	"-122.25,37.85,52,1274,235,558,219,5.6431,341300,NEAR BAY\n" +
	"-122.25,37.85,52,1627,280,565,259,3.8462,342200,NEAR BAY\n"

type loaderFunc func(ctx context.Context) (*dataset.Dataset, error)

func (f loaderFunc) Load(ctx context.Context) (*dataset.Dataset, error) { return f(ctx) }

type fakeSink struct {
	written  *dataset.Dataset
	writeErr error
	closed   bool
}

func (s *fakeSink) Write(_ context.Context, ds *dataset.Dataset) error {
	s.written = ds
	return s.writeErr
}

func (s *fakeSink) Close() error {
	s.closed = true
	return nil
}

type recordingBackend struct {
	mu       sync.Mutex
	counters map[string]float64
}

func (b *recordingBackend) IncCounter(name string, delta float64, l metrics.Labels) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := name
	if k, ok := l["kind"]; ok {
		key += "/" + k
	}
	if st, ok := l["status"]; ok && name == metrics.RunsTotal {
		key += "/" + st
	}
	b.counters[key] += delta
}

func (b *recordingBackend) ObserveHistogram(string, float64, metrics.Labels) {}
func (b *recordingBackend) Flush() error                                   { return nil }

func writeSample(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "housing.csv")
	require.NoError(t, os.WriteFile(p, []byte(sampleCSV), 0o644))
	return p
}

func sampleConfig(t *testing.T) config.Pipeline {
	t.Helper()
	cfg := config.Default()
	cfg.Source = config.Source{Kind: "csv", Path: writeSample(t)}
	cfg.Sink = config.Sink{Kind: "csv", Path: filepath.Join(t.TempDir(), "out", "features.csv")}
	return cfg
}

func newTestRunner(t *testing.T, cfg config.Pipeline) *Runner {
	t.Helper()
	r := NewRunner(cfg, zaptest.NewLogger(t))
	r.NewRunID = func() string { return "run-1" }
	return r
}

func TestRun_SampleEndToEnd(t *testing.T) {
	cfg := sampleConfig(t)
	cfg.Report.Path = filepath.Join(t.TempDir(), "report.yaml")

	res, err := newTestRunner(t, cfg).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, StatePersisted, res.State)
	require.Equal(t, 3, res.Output.Len())
	assert.Equal(t, housing.OutputColumns(), res.Output.Schema().Names())

	idx, err := res.Output.Float64(housing.OceanProximityIndex)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, idx.Values)

	rooms, err := res.Output.Float64(housing.RoomsPerHousehold)
	require.NoError(t, err)
	assert.InDelta(t, 1627.0/259.0, rooms.Values[2], 1e-9)

	got, err := os.ReadFile(cfg.Sink.Path)
	require.NoError(t, err)
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "sample_csv", got)

	rep, err := report.Read(cfg.Report.Path)
	require.NoError(t, err)
	assert.Equal(t, "ok", rep.Status)
	assert.Equal(t, "run-1", rep.RunID)
	require.Len(t, rep.Stages, 7)
	assert.Equal(t, 5, rep.Stages[0].Rows)
	assert.Equal(t, 3, rep.Stages[2].Rows)
	assert.Equal(t, 1, rep.Groups)
	assert.Equal(t, []report.Category{{Value: "NEAR BAY", Index: 0, Count: 3}}, rep.Categories)
	require.Len(t, rep.Bounds, len(housing.DefaultOutlierColumns()))
	assert.Equal(t, housing.HousingMedianAge, rep.Bounds[1].Column)
	assert.Equal(t, 24.5, rep.Bounds[1].Lower)
	assert.Equal(t, 1, rep.Bounds[1].Dropped)
}

func TestRun_Metrics(t *testing.T) {
	rec := &recordingBackend{counters: map[string]float64{}}
	metrics.SetBackend(rec)
	t.Cleanup(func() { metrics.SetBackend(nil) })

	_, err := newTestRunner(t, sampleConfig(t)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5.0, rec.counters[metrics.RecordsTotal+"/"+metrics.KindLoaded])
	assert.Equal(t, 2.0, rec.counters[metrics.RecordsTotal+"/"+metrics.KindDroppedOutlier])
	assert.Equal(t, 3.0, rec.counters[metrics.RecordsTotal+"/"+metrics.KindPersisted])
	assert.Zero(t, rec.counters[metrics.RecordsTotal+"/"+metrics.KindImputed])
	assert.Equal(t, 7.0, rec.counters[metrics.StepTotal])
	assert.Equal(t, 1.0, rec.counters[metrics.RunsTotal+"/ok"])
}

func TestRun_LogsStages(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	r := NewRunner(sampleConfig(t), zap.New(core))
	r.NewRunID = func() string { return "run-logs" }
	_, err := r.Run(context.Background())
	require.NoError(t, err)

	ok := logs.FilterMessage("stage ok").All()
	require.Len(t, ok, 7)
	assert.Equal(t, "load", ok[0].ContextMap()["stage"])
	assert.Equal(t, "persist", ok[6].ContextMap()["stage"])
	assert.Equal(t, "run-logs", ok[0].ContextMap()["run_id"])
	assert.Equal(t, 1, logs.FilterMessage("run ok").Len())
}

func TestRun_LoaderFailureNeverReachesSink(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk gone")
	r := newTestRunner(t, sampleConfig(t))
	r.NewLoader = func(config.Source, dataset.Schema) (source.Loader, error) {
		return loaderFunc(func(context.Context) (*dataset.Dataset, error) { return nil, boom }), nil
	}
	sinkCalled := false
	r.NewSink = func(context.Context, config.Sink) (sink.Sink, error) {
		sinkCalled = true
		return &fakeSink{}, nil
	}

	res, err := r.Run(context.Background())
	require.Error(t, err)
	assert.False(t, sinkCalled)
	assert.Equal(t, StateInitial, res.State)
	assert.Nil(t, res.Output)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageLoad, se.Stage)
	assert.ErrorIs(t, err, dataset.ErrIO)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "load", res.Report.FailedStage)
	assert.Equal(t, "error", res.Report.Status)
}

func TestRun_TransformFailureNeverReachesSink(t *testing.T) {
	t.Parallel()

	cfg := sampleConfig(t)
	cfg.Transform.OutlierColumns = []string{housing.MedianIncome, "nope"}
	r := newTestRunner(t, cfg)
	sinkCalled := false
	r.NewSink = func(context.Context, config.Sink) (sink.Sink, error) {
		sinkCalled = true
		return &fakeSink{}, nil
	}

	res, err := r.Run(context.Background())
	require.Error(t, err)
	assert.False(t, sinkCalled)
	assert.Equal(t, StateImputed, res.State)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageFilter, se.Stage)
	assert.ErrorIs(t, err, dataset.ErrMissingColumn)
	assert.NotErrorIs(t, err, dataset.ErrIO)
}

func TestRun_EmptyColumnFails(t *testing.T) {
	t.Parallel()

	cfg := sampleConfig(t)
	r := newTestRunner(t, cfg)
	r.NewLoader = func(_ config.Source, schema dataset.Schema) (source.Loader, error) {
		return loaderFunc(func(context.Context) (*dataset.Dataset, error) {
			b := dataset.NewBuilder(schema)
			if err := b.AppendRaw([]string{"-122.23", "37.88", "41", "880", "", "322", "126", "8.3252", "452600", "NEAR BAY"}); err != nil {
				return nil, err
			}
			return b.Build(), nil
		}), nil
	}

	_, err := r.Run(context.Background())
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageImpute, se.Stage)
	assert.ErrorIs(t, err, dataset.ErrEmptyColumn)
}

func TestRun_SinkFailure(t *testing.T) {
	t.Parallel()

	fs := &fakeSink{writeErr: errors.New("permission denied")}
	r := newTestRunner(t, sampleConfig(t))
	r.NewSink = func(context.Context, config.Sink) (sink.Sink, error) { return fs, nil }

	res, err := r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, fs.closed)
	assert.Equal(t, StateAggregated, res.State)
	assert.NotNil(t, res.Output)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StagePersist, se.Stage)
	assert.ErrorIs(t, err, dataset.ErrIO)
}

// failingRepo fails the failOn-th InsertRows of each transaction.
type failingRepo struct {
	storage.Repository
	failOn int
}

func (r failingRepo) Begin(ctx context.Context) (storage.Tx, error) {
	tx, err := r.Repository.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &failingTx{Tx: tx, failOn: r.failOn}, nil
}

type failingTx struct {
	storage.Tx
	calls, failOn int
}

func (t *failingTx) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	t.calls++
	if t.calls == t.failOn {
		return 0, errors.New("connection reset")
	}
	return t.Tx.InsertRows(ctx, table, columns, rows)
}

func TestRun_FailedTableRewriteKeepsPreviousRows(t *testing.T) {
	t.Parallel()

	cfg := sampleConfig(t)
	dsn := filepath.Join(t.TempDir(), "housing.db")
	cfg.Sink = config.Sink{
		Kind:    "sqlite",
		DSN:     dsn,
		Table:   "housing_features",
		Options: config.Options{"truncate": true, "batch_size": 1},
	}

	_, err := newTestRunner(t, cfg).Run(context.Background())
	require.NoError(t, err)

	snapshot := func() (count int, total float64) {
		db, err := sql.Open("sqlite", dsn)
		require.NoError(t, err)
		defer db.Close()
		require.NoError(t, db.QueryRow(`SELECT COUNT(*), SUM(median_house_value) FROM housing_features`).Scan(&count, &total))
		return count, total
	}
	count, total := snapshot()
	require.Equal(t, 3, count)

	r := newTestRunner(t, cfg)
	r.NewSink = func(ctx context.Context, c config.Sink) (sink.Sink, error) {
		s, err := sink.New(ctx, c)
		if err != nil {
			return nil, err
		}
		tbl := s.(*sink.Table)
		tbl.Repo = failingRepo{Repository: tbl.Repo, failOn: 2}
		return tbl, nil
	}
	_, err = r.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, dataset.ErrIO)
	assert.ErrorContains(t, err, "after 1 rows: connection reset")

	gotCount, gotTotal := snapshot()
	assert.Equal(t, count, gotCount)
	assert.Equal(t, total, gotTotal)
}

func TestRun_FailedFileWriteKeepsPreviousOutput(t *testing.T) {
	t.Parallel()

	cfg := sampleConfig(t)
	_, err := newTestRunner(t, cfg).Run(context.Background())
	require.NoError(t, err)
	before, err := os.ReadFile(cfg.Sink.Path)
	require.NoError(t, err)

	// The rerun's context ends as soon as the sink starts writing.
	r := newTestRunner(t, cfg)
	r.NewSink = func(ctx context.Context, c config.Sink) (sink.Sink, error) {
		s, err := sink.New(ctx, c)
		if err != nil {
			return nil, err
		}
		return cancelingSink{Sink: s}, nil
	}
	_, err = r.Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)

	after, err := os.ReadFile(cfg.Sink.Path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	entries, err := os.ReadDir(filepath.Dir(cfg.Sink.Path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

type cancelingSink struct{ sink.Sink }

func (s cancelingSink) Write(ctx context.Context, ds *dataset.Dataset) error {
	ctx, cancel := context.WithCancel(ctx)
	cancel()
	return s.Sink.Write(ctx, ds)
}

func TestRun_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newTestRunner(t, sampleConfig(t)).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateInitial, res.State)
}

func TestRun_Timeout(t *testing.T) {
	t.Parallel()

	cfg := sampleConfig(t)
	cfg.Runtime.Timeout = 10 * time.Millisecond
	r := newTestRunner(t, cfg)
	r.NewLoader = func(config.Source, dataset.Schema) (source.Loader, error) {
		return loaderFunc(func(ctx context.Context) (*dataset.Dataset, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}), nil
	}

	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, dataset.ErrIO)
}

func TestStageAndStateNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "filter_outliers", StageFilter.String())
	assert.Equal(t, StateEnriched, StageEnrich.Target())
	assert.Equal(t, StatePersisted, StagePersist.Target())
	assert.Equal(t, "aggregated", StateAggregated.String())
	assert.Equal(t, "stage(42)", Stage(42).String())

	err := &StageError{Stage: StageEncode, Err: dataset.ErrColumnType}
	assert.Equal(t, "stage encode_category: "+dataset.ErrColumnType.Error(), err.Error())
	assert.ErrorIs(t, err, dataset.ErrColumnType)
}
