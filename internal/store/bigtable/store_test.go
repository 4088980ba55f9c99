package bigtable

import (
	"context"
	"testing"

	"cloud.google.com/go/bigtable"
	"cloud.google.com/go/bigtable/bttest"
	"github.com/litetable/litetable-kit/internal/store/storetest"
	"github.com/litetable/litetable-kit/pkg/litetable"
	"github.com/litetable/litetable-kit/pkg/mutation"
	"github.com/litetable/litetable-kit/pkg/scan"
	"github.com/litetable/litetable-kit/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newStore starts an in-process Bigtable emulator and connects a store to it.
func newStore(t *testing.T) *Store {
	t.Helper()
	srv, err := bttest.NewServer("localhost:0")
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	s, err := New(&Config{Project: "project", Instance: "instance", EmulatorHost: srv.Addr})
	require.NoError(t, err)
	require.NoError(t, s.Start())
	t.Cleanup(func() {
		_ = s.Stop()
	})
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Backend {
		return newStore(t)
	})
}

func TestNew(t *testing.T) {
	tests := map[string]struct {
		cfg     *Config
		wantErr bool
	}{
		"valid":            {cfg: &Config{Project: "p", Instance: "i"}},
		"missing project":  {cfg: &Config{Instance: "i"}, wantErr: true},
		"missing instance": {cfg: &Config{Project: "p"}, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := New(tc.cfg)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, got)
		})
	}
}

func TestDisableAndDrop(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.ErrorIs(t, s.DisableTable(ctx, "missing"), litetable.ErrTableNotFound)
	require.ErrorIs(t, s.DropTable(ctx, "missing"), litetable.ErrTableNotFound)

	require.NoError(t, schema.New(s).WithTableName("t").WithSimpleColumnFamilies("cf").Create(ctx))
	require.NoError(t, s.DisableTable(ctx, "t"))
	require.NoError(t, s.DropTable(ctx, "t"))
}

func TestFamilyLimitsFromTableInfo(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, schema.New(s).WithTableName("t").WithMaxVersions(3).
		WithSimpleColumnFamilies("cf").Create(ctx))

	// forget what was created so the limits are read back from the emulator
	s.mu.Lock()
	delete(s.maxVersions, "t")
	s.mu.Unlock()

	limits, err := s.familyLimits(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"cf": 3}, limits)
}

func TestConditionWithoutFilterIfMissing(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, schema.New(s).WithTableName("t").WithSimpleColumnFamilies("cf").Create(ctx))

	batch := mutation.New(s.Table("t"))
	require.NoError(t, batch.Builder().WithRowKeyString("match").WithColumnFamily("cf").
		PutString("status", "active"))
	require.NoError(t, batch.Builder().WithRowKeyString("other").WithColumnFamily("cf").
		PutString("status", "inactive"))
	require.NoError(t, batch.Builder().WithRowKeyString("missing").WithColumnFamily("cf").
		PutString("name", "x"))
	require.NoError(t, batch.PutAll(ctx))

	it, err := s.Table("t").Scan(ctx, litetable.ScanQuery{
		Predicate: &litetable.Predicate{Conditions: []litetable.Condition{{
			Family:    "cf",
			Qualifier: []byte("status"),
			Value:     []byte("active"),
		}}},
	})
	require.NoError(t, err)
	rows, err := scan.Collect(it)
	require.NoError(t, err)

	var keys []string
	for _, r := range rows {
		keys = append(keys, string(r.Key))
	}
	assert.Equal(t, []string{"match", "missing"}, keys)
}

func TestCloseBeforeDrain(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, schema.New(s).WithTableName("t").WithSimpleColumnFamilies("cf").Create(ctx))

	batch := mutation.New(s.Table("t"))
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, batch.Builder().WithRowKeyString(k).WithColumnFamily("cf").
			PutString("q", k))
	}
	require.NoError(t, batch.PutAll(ctx))

	it, err := s.Table("t").Scan(ctx, litetable.ScanQuery{})
	require.NoError(t, err)
	require.True(t, it.Next())
	require.Equal(t, []byte("a"), it.Row().Key)

	require.NoError(t, it.Close())
	require.False(t, it.Next())
	require.NoError(t, it.Close())
}

func TestReadFilter(t *testing.T) {
	assert.Nil(t, readFilter(litetable.ScanQuery{}))
	assert.Nil(t, readFilter(litetable.ScanQuery{Predicate: &litetable.Predicate{}}))

	f := readFilter(litetable.ScanQuery{Families: []string{"a.b", "c"}})
	require.NotNil(t, f)
	assert.Contains(t, f.String(), `^(?:a\.b|c)$`)

	f = readFilter(litetable.ScanQuery{
		Families: []string{"c"},
		Predicate: &litetable.Predicate{Conditions: []litetable.Condition{
			{Family: "a", Qualifier: []byte("q"), Value: []byte("v"), FilterIfMissing: true},
		}},
	})
	require.NotNil(t, f)
}

func TestConvertRow(t *testing.T) {
	r := bigtable.Row{
		"cf": {
			{Row: "row", Column: "cf:q", Timestamp: 3_000_000, Value: []byte("v3")},
			{Row: "row", Column: "cf:q", Timestamp: 2_000_000, Value: []byte("v2")},
			{Row: "row", Column: "cf:q", Timestamp: 1_000_000, Value: []byte("v1")},
			{Row: "row", Column: "cf:a:b", Timestamp: 1_000, Value: []byte("x")},
		},
	}

	got := convertRow(r, map[string]int{"cf": 2})
	assert.Equal(t, []byte("row"), got.Key)
	assert.Equal(t, []litetable.TimestampedValue{
		{Value: []byte("v3"), Timestamp: 3000},
		{Value: []byte("v2"), Timestamp: 2000},
	}, got.Family("cf")["q"])
	assert.Equal(t, []litetable.TimestampedValue{
		{Value: []byte("x"), Timestamp: 1},
	}, got.Family("cf")["a:b"])
}

func TestTimestampOutOfRange(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, schema.New(s).WithTableName("t").WithSimpleColumnFamilies("cf").Create(ctx))

	tests := map[string]struct {
		ts      int64
		wantErr string
	}{
		"largest representable": {ts: maxMillis},
		"beyond microseconds":   {ts: 9_300_000_000_000_000, wantErr: "out of range"},
		"one past the limit":    {ts: maxMillis + 1, wantErr: "out of range"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			batch := mutation.New(s.Table("t"))
			require.NoError(t, batch.Builder().WithRowKeyString(name).WithColumnFamily("cf").
				WithTimestamp(tc.ts).PutString("q", "v"))
			err := batch.PutAll(ctx)
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, litetable.ErrStoreWrite)
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}
