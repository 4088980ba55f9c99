package mutation

import (
	"context"
	"testing"
	"time"

	"github.com/litetable/litetable-kit/pkg/codec"
	"github.com/litetable/litetable-kit/pkg/litetable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	firstRowKey  int32 = 1
	secondRowKey int32 = 2

	columnA = "columnA"
	columnB = "columnB"
	columnC = "columnC"
	columnD = "columnD"

	valueA = "valueA"
	valueB = "valueB"
	valueC = "valueC"
	valueD = "valueD"

	foo = "foo"
	eek = "eek"
)

// captureBatch expects exactly one Put call and returns the cells it received.
func captureBatch(t *testing.T, ctrl *gomock.Controller) (*Mockwriter, *[]litetable.Cell) {
	t.Helper()
	var captured []litetable.Cell
	m := NewMockwriter(ctrl)
	m.EXPECT().
		Put(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cells []litetable.Cell) error {
			captured = cells
			return nil
		}).
		Times(1)
	return m, &captured
}

func TestBasics(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	table, captured := captureBatch(t, ctrl)
	batch := New(table)

	err := batch.Builder().WithRowKeyInt32(firstRowKey).WithColumnFamily(foo).PutInt32(columnA, 1)
	req.NoError(err)
	req.NoError(batch.PutAll(context.Background()))

	cells := *captured
	req.Len(cells, 1)
	req.Equal(codec.EncodeInt32(firstRowKey), cells[0].RowKey)
	req.Equal(foo, cells[0].Family)
	req.Equal([]byte(columnA), cells[0].Qualifier)
	req.Equal(codec.EncodeInt32(1), cells[0].Value)
	req.Equal(litetable.LatestTimestamp, cells[0].Timestamp)
}

func TestThatStringPutWorks(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	table, captured := captureBatch(t, ctrl)
	batch := New(table)

	// first row
	first := batch.Builder().WithRowKeyInt32(firstRowKey).WithColumnFamily(foo)
	req.NoError(first.PutString(columnA, valueA))
	req.NoError(first.PutString(columnB, valueB))

	// second row
	second := first.WithRowKeyInt32(secondRowKey).WithColumnFamily(eek)
	req.NoError(second.PutString(columnC, valueC))
	req.NoError(second.PutString(columnD, valueD))

	req.NoError(batch.PutAll(context.Background()))

	cells := *captured
	req.Len(cells, 4)

	expected := []struct {
		row       int32
		family    string
		qualifier string
		value     string
	}{
		{firstRowKey, foo, columnA, valueA},
		{firstRowKey, foo, columnB, valueB},
		{secondRowKey, eek, columnC, valueC},
		{secondRowKey, eek, columnD, valueD},
	}
	for i, e := range expected {
		req.Equal(codec.EncodeInt32(e.row), cells[i].RowKey, "row of cell %d", i)
		req.Equal(e.family, cells[i].Family, "family of cell %d", i)
		req.Equal([]byte(e.qualifier), cells[i].Qualifier, "qualifier of cell %d", i)
		req.Equal([]byte(e.value), cells[i].Value, "value of cell %d", i)
	}
}

func TestPut_RequiresContext(t *testing.T) {
	batch := New(nil)

	tests := map[string]struct {
		builder  Builder
		errorMsg string
	}{
		"nothing set": {
			builder:  batch.Builder(),
			errorMsg: "column family not set",
		},
		"row key only": {
			builder:  batch.Builder().WithRowKeyString("r1"),
			errorMsg: "column family not set",
		},
		"family only": {
			builder:  batch.Builder().WithColumnFamily(foo),
			errorMsg: "row key not set",
		},
		"family then timestamp": {
			builder:  batch.Builder().WithColumnFamily(foo).WithTimestamp(10),
			errorMsg: "row key not set",
		},
		"reset clears everything": {
			builder:  batch.Builder().WithColumnFamily(foo).WithRowKeyString("r1").Reset(),
			errorMsg: "column family not set",
		},
		"unbound builder": {
			builder:  Builder{},
			errorMsg: "not bound to a batch",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			err := tc.builder.PutString(columnA, valueA)
			require.Error(t, err)
			require.ErrorIs(t, err, litetable.ErrBuilderState)
			require.Contains(t, err.Error(), tc.errorMsg)
		})
	}

	require.Equal(t, 0, batch.Len())
}

func TestPut_ContextChangesAreNotRetroactive(t *testing.T) {
	req := require.New(t)
	batch := New(nil)

	b := batch.Builder().WithRowKeyString("r1").WithColumnFamily(foo).WithTimestamp(100)
	req.NoError(b.PutString(columnA, valueA))

	b = b.WithRowKeyString("r2").WithColumnFamily(eek).WithTimestamp(200)
	req.NoError(b.PutString(columnB, valueB))

	b = b.Reset().WithRowKeyString("r3").WithColumnFamily(foo)
	req.NoError(b.PutString(columnC, valueC))

	cells := batch.Cells()
	req.Len(cells, 3)

	req.Equal([]byte("r1"), cells[0].RowKey)
	req.Equal(foo, cells[0].Family)
	req.Equal(int64(100), cells[0].Timestamp)

	req.Equal([]byte("r2"), cells[1].RowKey)
	req.Equal(eek, cells[1].Family)
	req.Equal(int64(200), cells[1].Timestamp)

	// reset restores the latest sentinel
	req.Equal([]byte("r3"), cells[2].RowKey)
	req.Equal(litetable.LatestTimestamp, cells[2].Timestamp)
}

func TestPut_CallerBuffersAreCopied(t *testing.T) {
	req := require.New(t)
	batch := New(nil)

	key := []byte("row")
	value := []byte("value")
	req.NoError(batch.Builder().WithRowKey(key).WithColumnFamily(foo).Put(columnA, value))

	key[0] = 'X'
	value[0] = 'X'

	cells := batch.Cells()
	req.Equal([]byte("row"), cells[0].RowKey)
	req.Equal([]byte("value"), cells[0].Value)
}

func TestPut_TypedOverloads(t *testing.T) {
	req := require.New(t)
	batch := New(nil)
	now := time.UnixMilli(1_700_000_000_123)

	b := batch.Builder().WithRowKeyInt64(7).WithColumnFamilyBytes([]byte(foo)).WithTime(now)
	req.NoError(b.PutInt64("i64", -5))
	req.NoError(b.PutFloat64("f64", 2.5))
	req.NoError(b.PutBytes([]byte{0x00, 0x01}, []byte{0xff}))

	cells := batch.Cells()
	req.Len(cells, 3)
	req.Equal(codec.EncodeInt64(7), cells[0].RowKey)
	req.Equal(codec.EncodeInt64(-5), cells[0].Value)
	req.Equal(codec.EncodeFloat64(2.5), cells[1].Value)
	req.Equal([]byte{0x00, 0x01}, cells[2].Qualifier)
	for _, c := range cells {
		req.Equal(now.UnixMilli(), c.Timestamp)
		req.Equal(foo, c.Family)
	}
}

func TestPut_DuplicateCoordinatesStaySeparate(t *testing.T) {
	req := require.New(t)
	batch := New(nil)

	b := batch.Builder().WithRowKeyString("r1").WithColumnFamily(foo).WithTimestamp(5)
	req.NoError(b.PutString(columnA, "first"))
	req.NoError(b.PutString(columnA, "second"))

	cells := batch.Cells()
	req.Len(cells, 2)
	req.Equal([]byte("first"), cells[0].Value)
	req.Equal([]byte("second"), cells[1].Value)
}

func TestBatch_PutAll(t *testing.T) {
	tests := map[string]struct {
		storeErr error
	}{
		"successful write": {},
		"store failure":    {storeErr: assert.AnError},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			table := NewMockwriter(ctrl)
			table.EXPECT().
				Put(gomock.Any(), gomock.Len(2)).
				Return(tc.storeErr).
				Times(1)

			batch := New(table)
			b := batch.Builder().WithRowKeyString("r1").WithColumnFamily(foo)
			req.NoError(b.PutString(columnA, valueA))
			req.NoError(b.PutString(columnB, valueB))

			err := batch.PutAll(context.Background())
			if tc.storeErr != nil {
				req.Error(err)
				req.ErrorIs(err, litetable.ErrStoreWrite)
				req.ErrorIs(err, tc.storeErr)
			} else {
				req.NoError(err)
			}

			// the batch is never cleared by PutAll
			req.Equal(2, batch.Len())
		})
	}
}
