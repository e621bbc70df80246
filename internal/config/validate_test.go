package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPipeline() Pipeline {
	p := Default()
	p.Source.Path = "in.csv"
	p.Sink.Path = "out.csv"
	return p
}

func issuePaths(issues []Issue, sev Severity) []string {
	var out []string
	for _, iss := range issues {
		if iss.Severity == sev {
			out = append(out, iss.Path)
		}
	}
	return out
}

func TestValidatePipeline_Valid(t *testing.T) {
	t.Parallel()

	issues := ValidatePipeline(validPipeline())
	assert.Empty(t, issues)
	assert.NoError(t, Validate(validPipeline()))
}

func TestValidatePipeline_SourceKinds(t *testing.T) {
	t.Parallel()

	for _, kind := range []string{"csv", "html", "xlsx", "json"} {
		p := validPipeline()
		p.Source.Kind = kind
		assert.False(t, HasErrors(ValidatePipeline(p)), kind)
	}
}

func TestValidatePipeline_FieldConstraints(t *testing.T) {
	t.Parallel()

	p := validPipeline()
	p.Job = ""
	p.Source.Kind = "parquet"
	p.Transform.IQRMultiplier = -1
	p.Transform.ImputeRelativeError = 1
	p.Transform.OnEmptyColumn = "skip"
	p.Runtime.Workers = 0
	p.Logging.Format = "xml"

	issues := ValidatePipeline(p)
	require.True(t, HasErrors(issues))

	errs := issuePaths(issues, SeverityError)
	for _, want := range []string{
		"job",
		"source.kind",
		"transform.iqr_multiplier",
		"transform.impute_relative_error",
		"transform.on_empty_column",
		"runtime.workers",
		"logging.format",
	} {
		assert.Contains(t, errs, want)
	}
	assert.Error(t, Validate(p))
}

func TestValidatePipeline_CrossField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mutate   func(*Pipeline)
		severity Severity
		path     string
	}{
		{
			name:     "table_sink_needs_dsn_and_table",
			mutate:   func(p *Pipeline) { p.Sink = Sink{Kind: "postgres"} },
			severity: SeverityError,
			path:     "sink.dsn",
		},
		{
			name:     "file_sink_needs_path",
			mutate:   func(p *Pipeline) { p.Sink = Sink{Kind: "arrow"} },
			severity: SeverityError,
			path:     "sink.path",
		},
		{
			name:     "unknown_outlier_column",
			mutate:   func(p *Pipeline) { p.Transform.OutlierColumns = []string{"price"} },
			severity: SeverityError,
			path:     "transform.outlier_columns[0]",
		},
		{
			name:     "string_outlier_column",
			mutate:   func(p *Pipeline) { p.Transform.OutlierColumns = []string{"ocean_proximity"} },
			severity: SeverityError,
			path:     "transform.outlier_columns[0]",
		},
		{
			name:     "duplicate_outlier_column",
			mutate:   func(p *Pipeline) { p.Transform.OutlierColumns = []string{"population", "population"} },
			severity: SeverityWarning,
			path:     "transform.outlier_columns[1]",
		},
		{
			name:     "empty_outlier_columns",
			mutate:   func(p *Pipeline) { p.Transform.OutlierColumns = nil },
			severity: SeverityWarning,
			path:     "transform.outlier_columns",
		},
		{
			name:     "numeric_category_source",
			mutate:   func(p *Pipeline) { p.Transform.Category.SourceColumn = "population" },
			severity: SeverityError,
			path:     "transform.category.source_column",
		},
		{
			name:     "output_overwrites_string",
			mutate:   func(p *Pipeline) { p.Transform.Aggregate.OutputColumn = "ocean_proximity" },
			severity: SeverityError,
			path:     "transform.aggregate.output_column",
		},
		{
			name:     "output_overwrites_numeric",
			mutate:   func(p *Pipeline) { p.Transform.Category.TargetColumn = "population" },
			severity: SeverityWarning,
			path:     "transform.category.target_column",
		},
		{
			name: "outputs_collide",
			mutate: func(p *Pipeline) {
				p.Transform.Category.TargetColumn = "x"
				p.Transform.Aggregate.OutputColumn = "x"
			},
			severity: SeverityError,
			path:     "transform.aggregate.output_column",
		},
		{
			name:     "category_target_overwrites_ratio",
			mutate:   func(p *Pipeline) { p.Transform.Category.TargetColumn = "bedrooms_per_room" },
			severity: SeverityError,
			path:     "transform.category.target_column",
		},
		{
			name:     "aggregate_output_overwrites_ratio",
			mutate:   func(p *Pipeline) { p.Transform.Aggregate.OutputColumn = "rooms_per_household" },
			severity: SeverityError,
			path:     "transform.aggregate.output_column",
		},
		{
			name:     "unknown_group_column",
			mutate:   func(p *Pipeline) { p.Transform.Aggregate.GroupColumn = "region" },
			severity: SeverityError,
			path:     "transform.aggregate.group_column",
		},
		{
			name:     "string_group_column",
			mutate:   func(p *Pipeline) { p.Transform.Aggregate.GroupColumn = "ocean_proximity" },
			severity: SeverityError,
			path:     "transform.aggregate.group_column",
		},
		{
			name:     "pushgateway_without_url",
			mutate:   func(p *Pipeline) { p.Metrics.Backend = "pushgateway" },
			severity: SeverityWarning,
			path:     "metrics.pushgateway_url",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p := validPipeline()
			tc.mutate(&p)
			assert.Contains(t, issuePaths(ValidatePipeline(p), tc.severity), tc.path)
		})
	}
}

func TestValidatePipeline_AggregateOverAttachedColumns(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct{ group, target string }{
		{"ocean_proximity_index", "median_house_value"},
		{"rooms_per_household", "median_house_value"},
		{"housing_median_age", "bedrooms_per_room"},
	} {
		p := validPipeline()
		p.Transform.Aggregate.GroupColumn = tc.group
		p.Transform.Aggregate.TargetColumn = tc.target
		assert.Empty(t, ValidatePipeline(p), "%s/%s", tc.group, tc.target)
	}

	// A renamed category index is what the aggregate sees.
	p := validPipeline()
	p.Transform.Category.TargetColumn = "proximity_code"
	p.Transform.Aggregate.GroupColumn = "proximity_code"
	assert.Empty(t, ValidatePipeline(p))

	p.Transform.Aggregate.GroupColumn = "ocean_proximity_index"
	assert.Contains(t, issuePaths(ValidatePipeline(p), SeverityError), "transform.aggregate.group_column")
}

func TestIssueString(t *testing.T) {
	t.Parallel()

	iss := Issue{Severity: SeverityWarning, Path: "a.b", Message: "careful"}
	assert.Equal(t, "warning: a.b: careful", iss.String())
}
