package sink

import (
	"context"
	"fmt"

	"housingprep/internal/dataset"
	"housingprep/internal/storage"
)

// Table inserts every record into a database table through a storage
// backend. Missing cells become SQL NULL. The optional truncate and every
// batch run in one transaction, so a failed write leaves the table as it was.
type Table struct {
	Repo       storage.Repository
	Name       string
	AutoCreate bool
	Truncate   bool
	BatchSize  int

	// OnBatch, when set, is called after each inserted batch.
	OnBatch func(inserted int64)
}

func (s *Table) Write(ctx context.Context, ds *dataset.Dataset) (err error) {
	spec, err := storage.TableSpecFor(s.Name, ds.Schema())
	if err != nil {
		return fmt.Errorf("table sink: %w", err)
	}
	if s.AutoCreate {
		if err := s.Repo.EnsureTable(ctx, spec); err != nil {
			return fmt.Errorf("table sink: %w", err)
		}
	}

	tx, err := s.Repo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("table sink: %w", err)
	}
	defer func() {
		if err != nil {
			// ctx may be done already; the rollback must still reach the server.
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if s.Truncate {
		if err := tx.Truncate(ctx, spec.Name); err != nil {
			return fmt.Errorf("table sink: %w", err)
		}
	}

	rows := make([][]any, ds.Len())
	for i := range rows {
		rows[i] = ds.Row(i)
	}

	size := s.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	columns := spec.ColumnNames()
	var total int64
	for _, batch := range storage.Batches(rows, size) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := tx.InsertRows(ctx, spec.Name, columns, batch)
		if err != nil {
			return fmt.Errorf("table sink: after %d rows: %w", total, err)
		}
		total += n
		if s.OnBatch != nil {
			s.OnBatch(n)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("table sink: %w", err)
	}
	return nil
}

func (s *Table) Close() error {
	if s.Repo != nil {
		s.Repo.Close()
	}
	return nil
}
