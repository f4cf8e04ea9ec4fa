package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() *Dataset {
	ds := NewDataset(Schema{
		Name: "sample",
		Columns: []Column{
			{Name: "id", Type: ColumnTypeInt, Bounds: AtLeast(1)},
			{Name: "score", Type: ColumnTypeFloat, Bounds: Between(0, 100), Nullable: true},
		},
	}, 2)
	ds.Append(Record{int64(1), 12.5})
	ds.Append(Record{int64(2), nil})
	return ds
}

func TestDataset_Value(t *testing.T) {
	ds := sampleDataset()

	v, ok := ds.Value(0, "score")
	require.True(t, ok)
	assert.Equal(t, 12.5, v)

	v, ok = ds.Value(1, "score")
	require.True(t, ok)
	assert.Nil(t, v)

	_, ok = ds.Value(0, "missing")
	assert.False(t, ok)
	_, ok = ds.Value(2, "id")
	assert.False(t, ok)
	_, ok = ds.Value(-1, "id")
	assert.False(t, ok)
}

func TestDataset_ShapeAndColumn(t *testing.T) {
	ds := sampleDataset()
	rows, cols := ds.Shape()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 2, cols)
	assert.Equal(t, []any{int64(1), int64(2)}, ds.Column("id"))
	assert.Nil(t, ds.Column("missing"))
}

func TestNewDataset_ClampsCapacity(t *testing.T) {
	ds := NewDataset(Schema{Name: "big"}, 1<<60)
	assert.Equal(t, 0, ds.Len())
	assert.LessOrEqual(t, cap(ds.Records), maxCapacityHint)

	ds = NewDataset(Schema{Name: "neg"}, -5)
	assert.Equal(t, 0, cap(ds.Records))
}

func TestBounds_MarshalJSONInfiniteSidesAreNull(t *testing.T) {
	b, err := json.Marshal(AtLeast(1000))
	require.NoError(t, err)
	assert.JSONEq(t, `{"min":1000,"max":null}`, string(b))

	b, err = json.Marshal(Unbounded())
	require.NoError(t, err)
	assert.JSONEq(t, `{"min":null,"max":null}`, string(b))

	assert.True(t, Between(0, 1).Contains(1))
	assert.False(t, AtLeast(0).Contains(math.Inf(-1)))
}

func TestCheckCountRange(t *testing.T) {
	require.NoError(t, CheckCountRange("x", 0))
	require.NoError(t, CheckCountRange("x", MaxCount))
	for _, n := range []int64{-1, MaxCount + 1, 1 << 60} {
		err := CheckCountRange("x", n)
		require.Errorf(t, err, "n=%d", n)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	}
}
