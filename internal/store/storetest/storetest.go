// Package storetest holds the behavioural checks every store backend must pass. The checks drive
// a backend through the public builders the way an application would.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/litetable/litetable-kit/pkg/filter"
	"github.com/litetable/litetable-kit/pkg/litetable"
	"github.com/litetable/litetable-kit/pkg/mutation"
	"github.com/litetable/litetable-kit/pkg/projection"
	"github.com/litetable/litetable-kit/pkg/scan"
	"github.com/litetable/litetable-kit/pkg/schema"
	"github.com/stretchr/testify/require"
)

// Backend is what the checks need from a store.
type Backend interface {
	litetable.Admin
	Table(name string) litetable.Table
}

// Run executes every check. open is called once per check and must return a ready backend.
func Run(t *testing.T, open func(t *testing.T) Backend) {
	tests := map[string]func(t *testing.T, b Backend){
		"put and scan":          testPutAndScan,
		"range bounds":          testRangeBounds,
		"binary keys":           testBinaryKeys,
		"predicate":             testPredicate,
		"family projection":     testFamilyProjection,
		"max versions":          testMaxVersions,
		"latest timestamp":      testLatestTimestamp,
		"schema lifecycle":      testSchemaLifecycle,
		"unknown family":        testUnknownFamily,
		"unknown table":         testUnknownTable,
		"negative timestamp":    testNegativeTimestamp,
		"empty batch is a noop": testEmptyBatch,
	}

	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			fn(t, open(t))
		})
	}
}

// provision creates a uniquely named table whose families keep maxVersions versions.
func provision(t *testing.T, b Backend, maxVersions int, families ...string) string {
	t.Helper()
	name := "tbl-" + uuid.NewString()[:8]

	p := schema.New(b).WithTableName(name).WithMaxVersions(maxVersions)
	require.NoError(t, p.WithSimpleColumnFamilies(families...).Create(context.Background()))
	return name
}

func collect(t *testing.T, b scan.Builder) []litetable.Row {
	t.Helper()
	it, err := b.Build(context.Background())
	require.NoError(t, err)
	rows, err := scan.Collect(it)
	require.NoError(t, err)
	return rows
}

func keys(rows []litetable.Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, string(r.Key))
	}
	return out
}

func testPutAndScan(t *testing.T, b Backend) {
	ctx := context.Background()
	name := provision(t, b, 1, "cf1", "cf2")

	batch := mutation.New(b.Table(name))
	row1 := batch.Builder().WithRowKeyString("row1")
	require.NoError(t, row1.WithColumnFamily("cf1").PutString("a", "1"))
	require.NoError(t, row1.WithColumnFamily("cf1").PutString("b", "2"))
	require.NoError(t, row1.WithColumnFamily("cf2").PutString("c", "3"))
	require.NoError(t, batch.Builder().WithRowKeyString("row0").WithColumnFamily("cf1").
		PutString("a", "0"))
	require.NoError(t, batch.PutAll(ctx))

	rows := collect(t, scan.New(b.Table(name)))
	require.Equal(t, []string{"row0", "row1"}, keys(rows))

	v, ok := rows[1].Latest("cf2", []byte("c"))
	require.True(t, ok)
	require.Equal(t, "3", string(v))

	p, err := projection.ForStrings(rows[1], "cf1")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"a": "1", "b": "2"}, p.Transform().Map())
}

func testRangeBounds(t *testing.T, b Backend) {
	ctx := context.Background()
	name := provision(t, b, 1, "cf1")

	batch := mutation.New(b.Table(name))
	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, batch.Builder().WithRowKeyString(k).WithColumnFamily("cf1").
			PutString("q", k))
	}
	require.NoError(t, batch.PutAll(ctx))

	tests := map[string]struct {
		start, stop string
		want        []string
	}{
		"unbounded":        {want: []string{"a", "b", "c", "d"}},
		"start inclusive":  {start: "c", want: []string{"c", "d"}},
		"stop exclusive":   {stop: "b", want: []string{"a"}},
		"both bounds":      {start: "b", stop: "d", want: []string{"b", "c"}},
		"between keys":     {start: "bb", stop: "zz", want: []string{"c", "d"}},
		"start after stop": {start: "c", stop: "a", want: []string{}},
		"empty range":      {start: "b", stop: "b", want: []string{}},
	}

	for tn, tc := range tests {
		t.Run(tn, func(t *testing.T) {
			q := scan.New(b.Table(name))
			if tc.start != "" {
				q = q.StartAtString(tc.start)
			}
			if tc.stop != "" {
				q = q.StopAtString(tc.stop)
			}
			require.Equal(t, tc.want, keys(collect(t, q)))
		})
	}
}

func testBinaryKeys(t *testing.T, b Backend) {
	ctx := context.Background()
	name := provision(t, b, 1, "cf1")

	rowKeys := [][]byte{{0xff}, {0x00, 0x01}, {0x01}, {0x00, 0x00}, {0x00}}
	batch := mutation.New(b.Table(name))
	for _, k := range rowKeys {
		require.NoError(t, batch.Builder().WithRowKey(k).WithColumnFamily("cf1").
			PutBytes([]byte{0x00, 'q'}, k))
	}
	require.NoError(t, batch.PutAll(ctx))

	rows := collect(t, scan.New(b.Table(name)).StartAt([]byte{0x00, 0x00}))
	require.Equal(t, []string{"\x00\x00", "\x00\x01", "\x01", "\xff"}, keys(rows))
	for _, r := range rows {
		v, ok := r.Latest("cf1", []byte{0x00, 'q'})
		require.True(t, ok)
		require.Equal(t, r.Key, v)
	}
}

func testPredicate(t *testing.T, b Backend) {
	ctx := context.Background()
	name := provision(t, b, 2, "cf1")

	batch := mutation.New(b.Table(name))
	put := func(row, qualifier, value string, ts int64) {
		require.NoError(t, batch.Builder().WithRowKeyString(row).WithColumnFamily("cf1").
			WithTimestamp(ts).PutString(qualifier, value))
	}
	put("r1", "status", "active", 1000)
	put("r1", "tier", "gold", 1000)
	put("r2", "status", "inactive", 1000)
	put("r2", "tier", "gold", 1000)
	put("r3", "tier", "gold", 1000)
	put("r4", "status", "active", 1000)
	put("r4", "tier", "silver", 1000)
	put("r5", "status", "active", 1000)
	put("r5", "status", "inactive", 2000)
	require.NoError(t, batch.PutAll(ctx))

	status, err := filter.New().WithColumnFamily("cf1").Column("status").
		ValueMustEqualString("active")
	require.NoError(t, err)
	statusAndTier, err := status.Column("tier").ValueMustEqualString("gold")
	require.NoError(t, err)

	tests := map[string]struct {
		predicate litetable.Predicate
		want      []string
	}{
		"no conditions":        {predicate: filter.New().Build(), want: []string{"r1", "r2", "r3", "r4", "r5"}},
		"single condition":     {predicate: status.Build(), want: []string{"r1", "r4"}},
		"conditions are anded": {predicate: statusAndTier.Build(), want: []string{"r1"}},
	}

	for tn, tc := range tests {
		t.Run(tn, func(t *testing.T) {
			rows := collect(t, scan.New(b.Table(name)).WithFilter(tc.predicate))
			require.Equal(t, tc.want, keys(rows))
		})
	}
}

func testFamilyProjection(t *testing.T, b Backend) {
	ctx := context.Background()
	name := provision(t, b, 1, "cf1", "cf2")

	batch := mutation.New(b.Table(name))
	r1 := batch.Builder().WithRowKeyString("r1")
	require.NoError(t, r1.WithColumnFamily("cf1").PutString("status", "active"))
	require.NoError(t, r1.WithColumnFamily("cf2").PutString("name", "one"))
	require.NoError(t, batch.Builder().WithRowKeyString("r2").WithColumnFamily("cf1").
		PutString("status", "active"))
	require.NoError(t, batch.PutAll(ctx))

	rows := collect(t, scan.New(b.Table(name)).WithColumnFamilies("cf2"))
	require.Equal(t, []string{"r1"}, keys(rows))
	require.Nil(t, rows[0].Family("cf1"))
	require.Len(t, rows[0].Family("cf2"), 1)

	// the predicate may look at a family that is not returned
	active, err := filter.New().WithColumnFamily("cf1").Column("status").
		ValueMustEqualString("active")
	require.NoError(t, err)
	rows = collect(t, scan.New(b.Table(name)).WithColumnFamilies("cf2").
		WithFilter(active.Build()))
	require.Equal(t, []string{"r1"}, keys(rows))
	require.Nil(t, rows[0].Family("cf1"))
}

func testMaxVersions(t *testing.T, b Backend) {
	ctx := context.Background()
	name := "tbl-" + uuid.NewString()[:8]
	require.NoError(t, schema.New(b).
		WithTableName(name).
		WithSimpleColumnFamilies("single").
		WithMaxVersions(2).
		WithSimpleColumnFamilies("double").
		Create(ctx))

	batch := mutation.New(b.Table(name))
	row := batch.Builder().WithRowKeyString("row")
	for i, v := range []string{"v1", "v2", "v3"} {
		ts := int64(i+1) * 1000
		require.NoError(t, row.WithColumnFamily("single").WithTimestamp(ts).PutString("q", v))
		require.NoError(t, row.WithColumnFamily("double").WithTimestamp(ts).PutString("q", v))
	}
	require.NoError(t, batch.PutAll(ctx))

	rows := collect(t, scan.New(b.Table(name)))
	require.Len(t, rows, 1)
	require.Equal(t, []litetable.TimestampedValue{
		{Value: []byte("v3"), Timestamp: 3000},
	}, rows[0].Family("single")["q"])
	require.Equal(t, []litetable.TimestampedValue{
		{Value: []byte("v3"), Timestamp: 3000},
		{Value: []byte("v2"), Timestamp: 2000},
	}, rows[0].Family("double")["q"])
}

func testLatestTimestamp(t *testing.T, b Backend) {
	ctx := context.Background()
	name := provision(t, b, 1, "cf1")

	before := time.Now().UnixMilli()
	batch := mutation.New(b.Table(name))
	require.NoError(t, batch.Builder().WithRowKeyString("row").WithColumnFamily("cf1").
		PutString("q", "v"))
	require.NoError(t, batch.PutAll(ctx))
	after := time.Now().UnixMilli()

	rows := collect(t, scan.New(b.Table(name)))
	require.Len(t, rows, 1)
	versions := rows[0].Family("cf1")["q"]
	require.Len(t, versions, 1)
	require.GreaterOrEqual(t, versions[0].Timestamp, before)
	require.LessOrEqual(t, versions[0].Timestamp, after)
}

func testSchemaLifecycle(t *testing.T, b Backend) {
	ctx := context.Background()
	name := "tbl-" + uuid.NewString()[:8]
	p := schema.New(b).WithTableName(name).WithSimpleColumnFamilies("cf1")

	exists, err := b.TableExists(ctx, name)
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, p.Create(ctx))
	require.ErrorIs(t, p.Create(ctx), litetable.ErrSchemaConflict)

	batch := mutation.New(b.Table(name))
	require.NoError(t, batch.Builder().WithRowKeyString("row").WithColumnFamily("cf1").
		PutString("q", "v"))
	require.NoError(t, batch.PutAll(ctx))
	require.Len(t, collect(t, scan.New(b.Table(name))), 1)

	require.NoError(t, p.DeleteAndRecreate(ctx))
	require.Empty(t, collect(t, scan.New(b.Table(name))))

	require.NoError(t, b.DropTable(ctx, name))
	exists, err = b.TableExists(ctx, name)
	require.NoError(t, err)
	require.False(t, exists)
}

func testUnknownFamily(t *testing.T, b Backend) {
	name := provision(t, b, 1, "cf1")

	batch := mutation.New(b.Table(name))
	require.NoError(t, batch.Builder().WithRowKeyString("row").WithColumnFamily("nope").
		PutString("q", "v"))
	require.ErrorIs(t, batch.PutAll(context.Background()), litetable.ErrStoreWrite)
}

func testNegativeTimestamp(t *testing.T, b Backend) {
	name := provision(t, b, 1, "cf1")

	batch := mutation.New(b.Table(name))
	row := batch.Builder().WithRowKeyString("row").WithColumnFamily("cf1")
	require.NoError(t, row.WithTimestamp(1).PutString("ok", "v"))
	require.NoError(t, row.WithTimestamp(-1).PutString("q", "v"))

	err := batch.PutAll(context.Background())
	require.ErrorIs(t, err, litetable.ErrStoreWrite)
	require.ErrorContains(t, err, "negative timestamp -1")
	require.Empty(t, collect(t, scan.New(b.Table(name))))
}

func testUnknownTable(t *testing.T, b Backend) {
	name := "missing-" + uuid.NewString()[:8]

	it, err := scan.New(b.Table(name)).Build(context.Background())
	if err == nil {
		_, err = scan.Collect(it)
	}
	require.ErrorIs(t, err, litetable.ErrStoreRead)

	batch := mutation.New(b.Table(name))
	require.NoError(t, batch.Builder().WithRowKeyString("row").WithColumnFamily("cf1").
		PutString("q", "v"))
	require.ErrorIs(t, batch.PutAll(context.Background()), litetable.ErrStoreWrite)
}

func testEmptyBatch(t *testing.T, b Backend) {
	name := provision(t, b, 1, "cf1")
	require.NoError(t, mutation.New(b.Table(name)).PutAll(context.Background()))
	require.Empty(t, collect(t, scan.New(b.Table(name))))
}
