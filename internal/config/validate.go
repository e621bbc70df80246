package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"housingprep/internal/dataset"
	"housingprep/internal/housing"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding of ValidatePipeline. Path is the dotted config key.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidatePipeline checks field constraints and cross-field rules.
// Issues with SeverityError make the configuration unusable.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue
	errorf := func(path, format string, a ...any) {
		issues = append(issues, Issue{SeverityError, path, fmt.Sprintf(format, a...)})
	}
	warnf := func(path, format string, a ...any) {
		issues = append(issues, Issue{SeverityWarning, path, fmt.Sprintf(format, a...)})
	}

	if err := validate.Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			errorf("", "%v", err)
			return issues
		}
		for _, fe := range fieldErrs {
			errorf(fieldPath(fe.Namespace()), "failed %q constraint%s (value %v)", fe.Tag(), paramSuffix(fe.Param()), fe.Value())
		}
	}

	input := housing.InputSchema()

	// Sink target.
	if p.Sink.IsTable() {
		if strings.TrimSpace(p.Sink.DSN) == "" {
			errorf("sink.dsn", "required for sink kind %q", p.Sink.Kind)
		}
		if strings.TrimSpace(p.Sink.Table) == "" {
			errorf("sink.table", "required for sink kind %q", p.Sink.Kind)
		}
	} else if p.Sink.Kind != "" && strings.TrimSpace(p.Sink.Path) == "" {
		errorf("sink.path", "required for sink kind %q", p.Sink.Kind)
	}

	// Column references. Impute and outlier columns are resolved before any
	// column is attached; the aggregate runs after the ratios and the category
	// index exist.
	checkFloat := func(path, name string, available map[string]dataset.Type) {
		typ, ok := available[name]
		switch {
		case name == "":
		case !ok:
			errorf(path, "unknown column %q", name)
		case typ != dataset.Float64:
			errorf(path, "column %q is %s, want float64", name, typ)
		}
	}
	inputCols := make(map[string]dataset.Type, input.Len())
	for _, f := range input.Fields() {
		inputCols[f.Name] = f.Type
	}

	seen := map[string]bool{}
	for i, c := range p.Transform.OutlierColumns {
		checkFloat(fmt.Sprintf("transform.outlier_columns[%d]", i), c, inputCols)
		if seen[c] {
			warnf(fmt.Sprintf("transform.outlier_columns[%d]", i), "column %q listed twice; the second pass re-filters", c)
		}
		seen[c] = true
	}
	if len(p.Transform.OutlierColumns) == 0 {
		warnf("transform.outlier_columns", "empty; no outlier filtering will happen")
	}
	for i, c := range p.Transform.ImputeColumns {
		checkFloat(fmt.Sprintf("transform.impute_columns[%d]", i), c, inputCols)
	}

	aggregateCols := make(map[string]dataset.Type, len(inputCols)+4)
	for name, typ := range inputCols {
		aggregateCols[name] = typ
	}
	derived := map[string]bool{}
	for _, c := range housing.DerivedColumns() {
		aggregateCols[c] = dataset.Float64
		derived[c] = true
	}
	if c := p.Transform.Category.TargetColumn; c != "" {
		aggregateCols[c] = dataset.Float64
	}
	checkFloat("transform.aggregate.group_column", p.Transform.Aggregate.GroupColumn, aggregateCols)
	checkFloat("transform.aggregate.target_column", p.Transform.Aggregate.TargetColumn, aggregateCols)

	if c := p.Transform.Category.SourceColumn; c != "" {
		if f, ok := input.Lookup(c); !ok {
			errorf("transform.category.source_column", "unknown column %q", c)
		} else if f.Type != dataset.String {
			errorf("transform.category.source_column", "column %q is %s, want string", c, f.Type)
		}
	}

	// Attached columns must not overwrite string inputs, derived ratios or
	// each other.
	outputs := map[string]string{
		"transform.category.target_column":  p.Transform.Category.TargetColumn,
		"transform.aggregate.output_column": p.Transform.Aggregate.OutputColumn,
	}
	for path, name := range outputs {
		if derived[name] {
			errorf(path, "cannot overwrite derived column %q", name)
			continue
		}
		if f, ok := input.Lookup(name); ok {
			if f.Type == dataset.String {
				errorf(path, "cannot overwrite string column %q", name)
			} else {
				warnf(path, "overwrites input column %q", name)
			}
		}
	}
	if t, o := p.Transform.Category.TargetColumn, p.Transform.Aggregate.OutputColumn; t != "" && t == o {
		errorf("transform.aggregate.output_column", "same as transform.category.target_column (%q)", o)
	}

	if p.Transform.IQRMultiplier == 0 {
		warnf("transform.iqr_multiplier", "0 keeps only values inside [Q1, Q3]")
	}

	if p.Metrics.Backend == "pushgateway" && p.Metrics.PushgatewayURL == "" {
		warnf("metrics.pushgateway_url", "empty; defaults to http://localhost:9091")
	}

	return issues
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate returns the error issues joined into one error, or nil.
func Validate(p Pipeline) error {
	var errs []error
	for _, iss := range ValidatePipeline(p) {
		if iss.Severity == SeverityError {
			errs = append(errs, errors.New(iss.String()))
		}
	}
	return errors.Join(errs...)
}

// fieldPath turns "Pipeline.transform.iqr_multiplier" into "transform.iqr_multiplier".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func paramSuffix(p string) string {
	if p == "" {
		return ""
	}
	return "=" + p
}
