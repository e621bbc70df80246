// Package report writes a YAML summary of one pipeline run.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Run is the summary of a single run. Maps are emitted with sorted keys.
type Run struct {
	RunID       string        `yaml:"run_id"`
	Job         string        `yaml:"job"`
	StartedAt   time.Time     `yaml:"started_at"`
	Duration    time.Duration `yaml:"duration"`
	Status      string        `yaml:"status"`
	FailedStage string        `yaml:"failed_stage,omitempty"`
	Error       string        `yaml:"error,omitempty"`

	Stages []StageRows `yaml:"stages"`

	Medians map[string]float64 `yaml:"medians,omitempty"`
	Imputed map[string]int     `yaml:"imputed,omitempty"`

	Bounds []Bounds `yaml:"outlier_bounds,omitempty"`

	Categories []Category `yaml:"categories,omitempty"`
	Groups     int        `yaml:"groups,omitempty"`

	DivisionUndefined map[string]int `yaml:"division_undefined,omitempty"`
	DivisionMissing   map[string]int `yaml:"division_missing_input,omitempty"`
}

// StageRows is the record count after a stage completed.
type StageRows struct {
	Stage    string        `yaml:"stage"`
	Rows     int           `yaml:"rows"`
	Duration time.Duration `yaml:"duration"`
}

// Bounds are the outlier limits used for one column.
type Bounds struct {
	Column  string  `yaml:"column"`
	Q1      float64 `yaml:"q1"`
	Q3      float64 `yaml:"q3"`
	Lower   float64 `yaml:"lower"`
	Upper   float64 `yaml:"upper"`
	Before  int     `yaml:"before"`
	Dropped int     `yaml:"dropped"`
}

// Category is one entry of the categorical index.
type Category struct {
	Value string `yaml:"value"`
	Index int    `yaml:"index"`
	Count int    `yaml:"count"`
}

// Encode writes r as YAML.
func (r *Run) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("report: encode: %w", err)
	}
	return enc.Close()
}

// WriteFile writes r to path, creating parent directories.
func (r *Run) WriteFile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("report: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := r.Encode(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Read decodes a report written by WriteFile.
func Read(path string) (*Run, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	var r Run
	if err := yaml.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("report: decode %s: %w", path, err)
	}
	return &r, nil
}
