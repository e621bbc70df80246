package sink

import (
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"housingprep/internal/dataset"
)

// Arrow writes the dataset as a single record batch in an Arrow IPC file.
// Float64 columns become nullable float64 fields; Missing is null.
type Arrow struct {
	Path string
	// Alloc defaults to memory.DefaultAllocator.
	Alloc memory.Allocator
}

// ArrowSchema maps a dataset schema to Arrow fields.
func ArrowSchema(s dataset.Schema) *arrow.Schema {
	fields := make([]arrow.Field, 0, s.Len())
	for _, f := range s.Fields() {
		var dt arrow.DataType = arrow.BinaryTypes.String
		if f.Type == dataset.Float64 {
			dt = arrow.PrimitiveTypes.Float64
		}
		fields = append(fields, arrow.Field{Name: f.Name, Type: dt, Nullable: true})
	}
	return arrow.NewSchema(fields, nil)
}

func (s *Arrow) record(ds *dataset.Dataset, mem memory.Allocator) (arrow.Record, error) {
	schema := ArrowSchema(ds.Schema())
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for j, f := range ds.Schema().Fields() {
		switch f.Type {
		case dataset.Float64:
			col, err := ds.Float64(f.Name)
			if err != nil {
				return nil, err
			}
			fb := b.Field(j).(*array.Float64Builder)
			fb.Reserve(col.Len())
			for i := 0; i < col.Len(); i++ {
				if v, ok := col.Get(i); ok {
					fb.Append(v)
				} else {
					fb.AppendNull()
				}
			}
		case dataset.String:
			vals, err := ds.String(f.Name)
			if err != nil {
				return nil, err
			}
			b.Field(j).(*array.StringBuilder).AppendValues(vals, nil)
		}
	}
	return b.NewRecord(), nil
}

func (s *Arrow) Write(ctx context.Context, ds *dataset.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	mem := s.Alloc
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	rec, err := s.record(ds, mem)
	if err != nil {
		return fmt.Errorf("arrow sink: %w", err)
	}
	defer rec.Release()

	err = writeFile(s.Path, func(out io.Writer) error {
		w, err := ipc.NewFileWriter(out, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem))
		if err != nil {
			return err
		}
		if err := w.Write(rec); err != nil {
			_ = w.Close()
			return fmt.Errorf("write record: %w", err)
		}
		return w.Close()
	})
	if err != nil {
		return fmt.Errorf("arrow sink: %w", err)
	}
	return nil
}

func (s *Arrow) Close() error { return nil }
