// Package probe samples a delimited input and reports how it maps onto the
// housing schema. It also proposes a pipeline configuration for the file.
//
// Sampling is bounded by Options.MaxBytes. Inference is best-effort: rows
// with the wrong field count are skipped and never fail the probe.
package probe

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"housingprep/internal/config"
	"housingprep/internal/dataset"
	"housingprep/internal/housing"
	"housingprep/internal/source"
)

// DefaultMaxBytes is the sample size when Options.MaxBytes is unset.
const DefaultMaxBytes = 20000

// Inferred column types.
const (
	TypeFloat = "float64"
	TypeText  = "string"
	TypeEmpty = "empty"
)

// Options control sampling.
type Options struct {
	// Path is a local file or an http(s) URL.
	Path string
	// MaxBytes to sample from the start of the input.
	MaxBytes int
	// Delimiter. Zero sniffs one of , ; tab | from the header line.
	Delimiter rune
	// HeaderMap is passed through to header normalisation.
	HeaderMap map[string]string
	Client    *http.Client
}

// Column describes one input column as seen in the sample.
type Column struct {
	Header     string
	Normalized string
	Type       string
	Missing    int
	// Expected is the schema type when the column is required, else "".
	Expected string
}

// Mismatch reports a required numeric column holding non-numeric text.
// String columns accept anything.
func (c Column) Mismatch() bool {
	return c.Expected == TypeFloat && c.Type == TypeText
}

// Result is the outcome of Probe.
type Result struct {
	Delimiter       rune
	SampleRows      int
	SkippedRows     int
	Columns         []Column
	MissingRequired []string
	Suggested       config.Pipeline
}

// Ready reports whether the input can be loaded with the suggested config.
func (r Result) Ready() bool {
	if len(r.MissingRequired) > 0 {
		return false
	}
	for _, c := range r.Columns {
		if c.Mismatch() {
			return false
		}
	}
	return true
}

// httpPeekFn is overridable in tests.
var httpPeekFn = source.Peek

// Probe samples opt.Path and infers delimiter, header mapping and column
// types.
func Probe(ctx context.Context, opt Options) (Result, error) {
	n := opt.MaxBytes
	if n <= 0 {
		n = DefaultMaxBytes
	}
	b, err := httpPeekFn(ctx, opt.Path, n, opt.Client)
	if err != nil {
		return Result{}, fmt.Errorf("peek: %w", err)
	}
	// Cut at the last newline to avoid a half-line record at the end.
	if len(b) == n {
		if i := bytes.LastIndexByte(b, '\n'); i > 0 {
			b = b[:i+1]
		}
	}

	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(b)
	}
	headers, rows, skipped, err := readSample(b, delim)
	if err != nil {
		return Result{}, fmt.Errorf("read sample: %w", err)
	}
	if len(headers) == 0 {
		return Result{}, errors.New("read sample: empty input")
	}

	res := Result{Delimiter: delim, SampleRows: len(rows), SkippedRows: skipped}
	normalized := source.NormalizeHeaders(headers, opt.HeaderMap)
	schema := housing.InputSchema()
	present := make(map[string]bool, len(normalized))
	for i, h := range headers {
		c := Column{Header: h, Normalized: normalized[i]}
		c.Type, c.Missing = inferColumn(rows, i)
		if f, ok := schema.Lookup(c.Normalized); ok {
			c.Expected = f.Type.String()
			present[c.Normalized] = true
		}
		res.Columns = append(res.Columns, c)
	}
	for _, name := range schema.Names() {
		if !present[name] {
			res.MissingRequired = append(res.MissingRequired, name)
		}
	}

	res.Suggested = suggest(opt, delim)
	return res, nil
}

// sniffDelimiter picks the candidate occurring most often in the first line.
func sniffDelimiter(b []byte) rune {
	line := b
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		line = b[:i]
	}
	best, bestN := ',', 0
	for _, c := range []rune{',', ';', '\t', '|'} {
		if n := bytes.Count(line, []byte(string(c))); n > bestN {
			best, bestN = c, n
		}
	}
	return best
}

// readSample parses the header and the well-formed data rows.
func readSample(data []byte, delim rune) (headers []string, rows [][]string, skipped int, err error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil, 0, nil
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.FieldsPerRecord = -1 // we validate manually
	r.LazyQuotes = true

	headers, err = r.Read()
	if err != nil {
		return nil, nil, 0, err
	}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return headers, rows, skipped, err
		}
		if len(rec) != len(headers) {
			skipped++
			continue
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		rows = append(rows, rec)
	}
	return headers, rows, skipped, nil
}

func inferColumn(rows [][]string, col int) (typ string, missing int) {
	seen, allFloat := false, true
	for _, r := range rows {
		v := r[col]
		if dataset.IsMissingToken(v) {
			missing++
			continue
		}
		seen = true
		if allFloat {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				allFloat = false
			}
		}
	}
	switch {
	case !seen:
		return TypeEmpty, missing
	case allFloat:
		return TypeFloat, missing
	default:
		return TypeText, missing
	}
}

func suggest(opt Options, delim rune) config.Pipeline {
	p := config.Default()
	p.Source.Kind = "csv"
	p.Source.Path = opt.Path
	p.Source.Options = config.Options{}
	if delim != ',' {
		comma := string(delim)
		if delim == '\t' {
			comma = "tab"
		}
		p.Source.Options["comma"] = comma
	}
	if len(opt.HeaderMap) > 0 {
		hm := make(map[string]any, len(opt.HeaderMap))
		for k, v := range opt.HeaderMap {
			hm[k] = v
		}
		p.Source.Options["header_map"] = hm
	}
	p.Sink.Path = "housing_features.csv"
	return p
}

// Summary renders a small human-readable report.
func (r Result) Summary() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "sample_rows=%d skipped_rows=%d delimiter=%q\n", r.SampleRows, r.SkippedRows, r.Delimiter)
	fmt.Fprintf(&b, "header,normalized,type,expected,missing\n")
	for _, c := range r.Columns {
		fmt.Fprintf(&b, "%s,%s,%s,%s,%d\n", c.Header, c.Normalized, c.Type, c.Expected, c.Missing)
	}
	for _, name := range r.MissingRequired {
		fmt.Fprintf(&b, "missing required column: %s\n", name)
	}
	for _, c := range r.Columns {
		if c.Mismatch() {
			fmt.Fprintf(&b, "type mismatch: %s is %s, want %s\n", c.Normalized, c.Type, c.Expected)
		}
	}
	fmt.Fprintf(&b, "ready=%t\n", r.Ready())
	return []byte(b.String())
}

// SuggestedYAML renders the proposed pipeline config.
func (r Result) SuggestedYAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r.Suggested); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
