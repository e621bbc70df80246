package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"golang.org/x/sync/errgroup"

	"housingprep/internal/config"
	"housingprep/internal/dataset"
)

// JSON loads records from a JSON document. Accepted shapes:
//
//   - a root array of objects
//   - a root object whose first array field holds the objects (envelope)
//   - a stream of objects (JSON Lines), also allowed after either of the above
//
// Object keys are normalised like CSV headers. A key absent from a record
// loads as Missing; a required column absent from every record fails with
// dataset.ErrMissingColumn.
//
// Options: header_map, encoding, channel_buffer.
type JSON struct {
	Path    string
	Schema  dataset.Schema
	Options config.Options
	Client  *http.Client
}

func (j *JSON) Load(ctx context.Context) (*dataset.Dataset, error) {
	src, err := opener{client: j.Client}.open(ctx, j.Path)
	if err != nil {
		return nil, fmt.Errorf("json source: %w", err)
	}
	r, err := decoding(src, j.Options.String("encoding", ""))
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("json source: %w", err)
	}

	rows := make(chan *dataset.Row, j.Options.Int("channel_buffer", 256))
	b := dataset.NewBuilder(j.Schema)
	seen := make([]bool, j.Schema.Len())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(rows)
		defer src.Close()
		return StreamJSONRows(gctx, r, j.Schema, j.Options, rows, seen)
	})
	g.Go(func() error {
		for row := range rows {
			if err := b.AppendRow(row); err != nil {
				row.Drop()
				return err
			}
			row.Free()
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("json source %s: %w", j.Path, err)
	}

	if b.Len() > 0 {
		for i, f := range j.Schema.Fields() {
			if !seen[i] {
				return nil, fmt.Errorf("json source %s: %w", j.Path,
					&dataset.ColumnError{Op: "load", Column: f.Name, Err: dataset.ErrMissingColumn})
			}
		}
	}
	return b.Build(), nil
}

// StreamJSONRows decodes objects from r and sends them on out as rows
// aligned to schema. seen[i] is set once any record carries field i; the
// slice is only written by this goroutine.
func StreamJSONRows(
	ctx context.Context,
	r io.Reader,
	schema dataset.Schema,
	opt config.Options,
	out chan<- *dataset.Row,
	seen []bool,
) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	hm := lowerKeys(opt.StringMap("header_map"))
	line := 0

	emit := func(obj map[string]any) error {
		line++
		row := dataset.GetRow(schema.Len())
		row.Line = line
		for k, v := range obj {
			i := schema.Index(normalizeHeader(k, false, hm))
			if i < 0 {
				continue
			}
			row.V[i] = jsonCell(v)
			seen[i] = true
		}
		select {
		case out <- row:
			return nil
		case <-ctx.Done():
			row.Drop()
			return ctx.Err()
		}
	}

	// Arrays, including an envelope's record array, stream element by element.
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("json: read first token: %w", err)
	}

	switch tok {
	case json.Delim('['):
		if err := streamArray(ctx, dec, emit, &line); err != nil {
			return err
		}
		if err := expectDelim(dec, ']'); err != nil {
			return err
		}
	case json.Delim('{'):
		single, err := streamEnvelope(ctx, dec, emit, &line)
		if err != nil {
			return err
		}
		if err := expectDelim(dec, '}'); err != nil {
			return err
		}
		if single != nil {
			if err := emit(single); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("json: unsupported root token %v (want object or array)", tok)
	}

	// Trailing objects (JSON Lines).
	for {
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("record %d: json decode: %w", line+1, err)
		}
		if err := emit(obj); err != nil {
			return err
		}
	}
}

// streamArray emits each element of the current array (after '['). Null
// elements are skipped; any other non-object element is an error.
func streamArray(ctx context.Context, dec *json.Decoder, emit func(map[string]any) error, line *int) error {
	for dec.More() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("record %d: json decode: %w", *line+1, err)
		}
		if raw == nil {
			continue
		}
		obj, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("record %d: array element is %T, want object", *line+1, raw)
		}
		if err := emit(obj); err != nil {
			return err
		}
	}
	return nil
}

// streamEnvelope walks a root object (after '{'). The first array value is
// streamed element by element from dec as the records and the remaining
// fields are skipped. Without any array the object itself is returned as a
// single record.
func streamEnvelope(ctx context.Context, dec *json.Decoder, emit func(map[string]any) error, line *int) (map[string]any, error) {
	single := make(map[string]any)
	streamed := false
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("json: read object key: %w", err)
		}
		key, _ := keyTok.(string)

		if streamed {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("json: read value of %q: %w", key, err)
			}
			continue
		}

		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("json: read value of %q: %w", key, err)
		}
		if tok == json.Delim('[') {
			if err := streamArray(ctx, dec, emit, line); err != nil {
				return nil, err
			}
			if err := expectDelim(dec, ']'); err != nil {
				return nil, err
			}
			streamed = true
			continue
		}
		v, err := valueFrom(dec, tok)
		if err != nil {
			return nil, fmt.Errorf("json: read value of %q: %w", key, err)
		}
		single[key] = v
	}
	if streamed {
		return nil, nil
	}
	return single, nil
}

// valueFrom decodes the rest of the value whose first token is tok.
func valueFrom(dec *json.Decoder, tok json.Token) (any, error) {
	switch tok {
	case json.Delim('{'):
		obj := make(map[string]any)
		for dec.More() {
			k, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, _ := k.(string)
			var v any
			if err := dec.Decode(&v); err != nil {
				return nil, err
			}
			obj[key] = v
		}
		return obj, expectDelim(dec, '}')
	case json.Delim('['):
		var arr []any
		for dec.More() {
			var v any
			if err := dec.Decode(&v); err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, expectDelim(dec, ']')
	default:
		return tok, nil
	}
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("json: read %q: %w", want, err)
	}
	if tok != want {
		return fmt.Errorf("json: expected %q, got %v", want, tok)
	}
	return nil
}

// jsonCell renders a decoded JSON value as a raw cell. null is Missing.
func jsonCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
