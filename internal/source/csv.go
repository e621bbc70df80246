package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/sync/errgroup"

	"housingprep/internal/config"
	"housingprep/internal/dataset"
)

// CSV loads a delimited file.
//
// Options:
//
//	comma             field separator (default ",")
//	has_header        first record is a header (default true)
//	header_map        source header -> column name
//	trim_space        trim cells (default true)
//	lazy_quotes       tolerate bare quotes (default false)
//	fields_per_record 0 means variable
//	encoding          input charset, WHATWG label (default utf-8)
//	skip_bad_rows     skip unreadable or unparsable records (default false)
//	channel_buffer    rows buffered between reader and builder (default 256)
type CSV struct {
	Path    string
	Schema  dataset.Schema
	Options config.Options

	// OnSkip observes records dropped under skip_bad_rows.
	OnSkip func(line int, err error)

	// Client is used for http(s) paths. Nil means http.DefaultClient.
	Client *http.Client
}

// Load streams the file through a reader goroutine into a Builder.
func (c *CSV) Load(ctx context.Context) (*dataset.Dataset, error) {
	src, err := opener{client: c.Client}.open(ctx, c.Path)
	if err != nil {
		return nil, fmt.Errorf("csv source: %w", err)
	}
	r, err := decoding(src, c.Options.String("encoding", ""))
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("csv source: %w", err)
	}

	skip := c.Options.Bool("skip_bad_rows", false)
	rows := make(chan *dataset.Row, c.Options.Int("channel_buffer", 256))
	b := dataset.NewBuilder(c.Schema)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(rows)
		return StreamRows(gctx, readCloser{r, src}, c.Schema, c.Options, rows, c.onSkip(skip))
	})
	g.Go(func() error {
		for row := range rows {
			if err := b.AppendRow(row); err != nil {
				if skip {
					c.onSkip(true)(row.Line, err)
					row.Free()
					continue
				}
				row.Drop()
				return err
			}
			row.Free()
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("csv source %s: %w", c.Path, err)
	}
	return b.Build(), nil
}

// onSkip returns the skip callback, or nil when skipping is disabled.
func (c *CSV) onSkip(enabled bool) func(int, error) {
	if !enabled {
		return nil
	}
	if c.OnSkip == nil {
		return func(int, error) {}
	}
	return c.OnSkip
}

// StreamRows reads CSV from src into pooled rows aligned to schema order and
// sends them on out. src is closed on return.
//
// Read errors are fatal unless onSkip is non-nil, in which case the record is
// reported and skipped. On ctx cancellation the in-flight row is dropped,
// not re-pooled, because the consumer may still hold it.
func StreamRows(
	ctx context.Context,
	src io.ReadCloser,
	schema dataset.Schema,
	opt config.Options,
	out chan<- *dataset.Row,
	onSkip func(line int, err error),
) error {
	defer src.Close()

	hasHeader := opt.Bool("has_header", true)
	trim := opt.Bool("trim_space", true)

	cr := csv.NewReader(src)
	cr.Comma = opt.Rune("comma", ',')
	cr.ReuseRecord = true
	cr.LazyQuotes = opt.Bool("lazy_quotes", false)
	if n := opt.Int("fields_per_record", 0); n != 0 {
		cr.FieldsPerRecord = n
	} else {
		cr.FieldsPerRecord = -1
	}

	ix := positional(schema.Len())
	if hasHeader {
		hdr, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("read header: empty input")
			}
			return fmt.Errorf("read header: %w", err)
		}
		if ix, err = columnIndex(hdr, schema, opt.StringMap("header_map")); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.StartLine
			}
			if onSkip != nil {
				onSkip(line, err)
				continue
			}
			return fmt.Errorf("line %d: csv read: %w", line, err)
		}

		row := dataset.GetRow(schema.Len())
		row.Line, _ = cr.FieldPos(0)
		align(row.V, rec, ix, trim)

		select {
		case out <- row:
		case <-ctx.Done():
			row.Drop()
			return ctx.Err()
		}
	}
}
