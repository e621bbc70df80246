// Package config loads and validates the pipeline configuration.
//
// A configuration file (JSON or YAML) is read with viper. Every key can be
// overridden from the environment with the HOUSING_ prefix, dots replaced by
// underscores: HOUSING_TRANSFORM_IQR_MULTIPLIER=3.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"housingprep/internal/housing"
)

// EnvPrefix is the environment prefix for overrides.
const EnvPrefix = "HOUSING"

type Pipeline struct {
	Job       string    `mapstructure:"job" json:"job" yaml:"job" validate:"required"`
	Source    Source    `mapstructure:"source" json:"source" yaml:"source"`
	Transform Transform `mapstructure:"transform" json:"transform" yaml:"transform"`
	Sink      Sink      `mapstructure:"sink" json:"sink" yaml:"sink"`
	Runtime   Runtime   `mapstructure:"runtime" json:"runtime" yaml:"runtime"`
	Metrics   Metrics   `mapstructure:"metrics" json:"metrics" yaml:"metrics"`
	Logging   Logging   `mapstructure:"logging" json:"logging" yaml:"logging"`
	Report    Report    `mapstructure:"report" json:"report" yaml:"report"`
}

// Source selects the loader. Kind is csv, html or xlsx.
type Source struct {
	Kind    string  `mapstructure:"kind" json:"kind" yaml:"kind" validate:"required,oneof=csv html xlsx json"`
	Path    string  `mapstructure:"path" json:"path" yaml:"path" validate:"required"`
	Options Options `mapstructure:"options" json:"options,omitempty" yaml:"options,omitempty"`
}

type Transform struct {
	ImputeColumns        []string `mapstructure:"impute_columns" json:"impute_columns" yaml:"impute_columns"`
	ImputeRelativeError  float64  `mapstructure:"impute_relative_error" json:"impute_relative_error" yaml:"impute_relative_error" validate:"gte=0,lt=1"`
	OnEmptyColumn        string   `mapstructure:"on_empty_column" json:"on_empty_column" yaml:"on_empty_column" validate:"oneof=fail zero"`
	OutlierColumns       []string `mapstructure:"outlier_columns" json:"outlier_columns" yaml:"outlier_columns" validate:"dive,required"`
	IQRMultiplier        float64  `mapstructure:"iqr_multiplier" json:"iqr_multiplier" yaml:"iqr_multiplier" validate:"gte=0"`
	OutlierRelativeError float64  `mapstructure:"outlier_relative_error" json:"outlier_relative_error" yaml:"outlier_relative_error" validate:"gte=0,lt=1"`
	Category             Category `mapstructure:"category" json:"category" yaml:"category"`
	Aggregate            Aggregate `mapstructure:"aggregate" json:"aggregate" yaml:"aggregate"`
}

type Category struct {
	SourceColumn string `mapstructure:"source_column" json:"source_column" yaml:"source_column" validate:"required"`
	TargetColumn string `mapstructure:"target_column" json:"target_column" yaml:"target_column" validate:"required"`
}

type Aggregate struct {
	GroupColumn  string `mapstructure:"group_column" json:"group_column" yaml:"group_column" validate:"required"`
	TargetColumn string `mapstructure:"target_column" json:"target_column" yaml:"target_column" validate:"required"`
	OutputColumn string `mapstructure:"output_column" json:"output_column" yaml:"output_column" validate:"required"`
}

// Sink selects where the cleaned dataset goes. File kinds (csv, xlsx, arrow)
// use Path; table kinds (sqlite, postgres, mssql) use DSN and Table.
type Sink struct {
	Kind    string  `mapstructure:"kind" json:"kind" yaml:"kind" validate:"required,oneof=csv xlsx arrow sqlite postgres mssql"`
	Path    string  `mapstructure:"path" json:"path,omitempty" yaml:"path,omitempty"`
	DSN     string  `mapstructure:"dsn" json:"dsn,omitempty" yaml:"dsn,omitempty"`
	Table   string  `mapstructure:"table" json:"table,omitempty" yaml:"table,omitempty"`
	Options Options `mapstructure:"options" json:"options,omitempty" yaml:"options,omitempty"`
}

// IsTable reports whether the sink writes to a database table.
func (s Sink) IsTable() bool {
	switch s.Kind {
	case "sqlite", "postgres", "mssql":
		return true
	}
	return false
}

type Runtime struct {
	Workers int           `mapstructure:"workers" json:"workers" yaml:"workers" validate:"gte=1"`
	Timeout time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout" validate:"gte=0"`
}

type Metrics struct {
	Backend        string        `mapstructure:"backend" json:"backend" yaml:"backend" validate:"oneof=none pushgateway datadog"`
	PushgatewayURL string        `mapstructure:"pushgateway_url" json:"pushgateway_url,omitempty" yaml:"pushgateway_url,omitempty" validate:"omitempty,url"`
	Tags           []string      `mapstructure:"tags" json:"tags,omitempty" yaml:"tags,omitempty"`
	FlushEvery     time.Duration `mapstructure:"flush_every" json:"flush_every,omitempty" yaml:"flush_every,omitempty"`
}

type Logging struct {
	Level  string `mapstructure:"level" json:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" json:"format" yaml:"format" validate:"oneof=console json"`
}

type Report struct {
	Path string `mapstructure:"path" json:"path,omitempty" yaml:"path,omitempty"`
}

// SetDefaults registers every key with its default so env overrides apply
// even when the file omits the key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("job", "housing")

	v.SetDefault("source.kind", "csv")
	v.SetDefault("source.path", "")
	v.SetDefault("source.options", map[string]any{})

	v.SetDefault("transform.impute_columns", []string{})
	v.SetDefault("transform.impute_relative_error", 0.25)
	v.SetDefault("transform.on_empty_column", "fail")
	v.SetDefault("transform.outlier_columns", housing.DefaultOutlierColumns())
	v.SetDefault("transform.iqr_multiplier", 1.5)
	v.SetDefault("transform.outlier_relative_error", 0.05)
	v.SetDefault("transform.category.source_column", housing.OceanProximity)
	v.SetDefault("transform.category.target_column", housing.OceanProximityIndex)
	v.SetDefault("transform.aggregate.group_column", housing.HousingMedianAge)
	v.SetDefault("transform.aggregate.target_column", housing.MedianHouseValue)
	v.SetDefault("transform.aggregate.output_column", housing.AvgPriceByAge)

	v.SetDefault("sink.kind", "csv")
	v.SetDefault("sink.path", "")
	v.SetDefault("sink.dsn", "")
	v.SetDefault("sink.table", "")
	v.SetDefault("sink.options", map[string]any{})

	v.SetDefault("runtime.workers", 4)
	v.SetDefault("runtime.timeout", time.Duration(0))

	v.SetDefault("metrics.backend", "none")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.tags", []string{})
	v.SetDefault("metrics.flush_every", 60*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("report.path", "")
}

// Default returns the configuration with every default applied and no file.
func Default() Pipeline {
	v := viper.New()
	SetDefaults(v)
	var p Pipeline
	_ = v.Unmarshal(&p)
	return p
}

// LoadOptions controls Load.
type LoadOptions struct {
	// Path of the JSON or YAML file. Empty means defaults plus environment.
	Path string
	// EnvFile is a dotenv file loaded into the process environment first.
	// Variables already set in the environment win.
	EnvFile string
}

// Load reads the configuration. It does not validate; see ValidatePipeline.
func Load(opts LoadOptions) (Pipeline, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil {
			return Pipeline{}, fmt.Errorf("load env file %s: %w", opts.EnvFile, err)
		}
	}

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.Path != "" {
		v.SetConfigFile(opts.Path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return Pipeline{}, fmt.Errorf("config %s not found: %w", opts.Path, err)
			}
			return Pipeline{}, fmt.Errorf("read config %s: %w", opts.Path, err)
		}
	}

	var p Pipeline
	if err := v.Unmarshal(&p); err != nil {
		return Pipeline{}, fmt.Errorf("decode config: %w", err)
	}
	return p, nil
}
