package sink

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrow_Write(t *testing.T) {
	t.Parallel()

	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	path := filepath.Join(t.TempDir(), "out.arrow")
	require.NoError(t, (&Arrow{Path: path, Alloc: mem}).Write(context.Background(), smallDataset(t)))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	r, err := ipc.NewFileReader(f)
	require.NoError(t, err)
	defer r.Close()

	require.Equal(t, 1, r.NumRecords())
	rec, err := r.Record(0)
	require.NoError(t, err)

	assert.Equal(t, int64(2), rec.NumRows())
	assert.Equal(t, arrow.FLOAT64, rec.Schema().Field(0).Type.ID())
	assert.Equal(t, arrow.STRING, rec.Schema().Field(1).Type.ID())
	assert.True(t, rec.Schema().Field(0).Nullable)

	income := rec.Column(0).(*array.Float64)
	assert.Equal(t, 1, income.NullN())
	assert.Equal(t, 8.3252, income.Value(0))
	assert.True(t, income.IsNull(1))

	labels := rec.Column(1).(*array.String)
	assert.Equal(t, "INLAND, CA", labels.Value(1))
}

func TestArrowSchema(t *testing.T) {
	t.Parallel()

	s := ArrowSchema(smallDataset(t).Schema())
	require.Equal(t, 3, s.NumFields())
	assert.Equal(t, "median_house_value", s.Field(2).Name)
}
