package pebble

import (
	"bytes"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellKeyRoundTrip(t *testing.T) {
	tests := map[string]struct {
		row       []byte
		family    string
		qualifier []byte
		ts        int64
	}{
		"plain":            {row: []byte("row"), family: "cf", qualifier: []byte("q"), ts: 1000},
		"zero bytes":       {row: []byte{0x00, 0x00}, family: "cf", qualifier: []byte{0x00, 0x01}, ts: 1},
		"high bytes":       {row: []byte{0xff, 0x00, 0xff}, family: "cf", qualifier: []byte{0xff}, ts: 0},
		"empty qualifier":  {row: []byte("r"), family: "cf", ts: 42},
		"largest instants": {row: []byte("r"), family: "cf", qualifier: []byte("q"), ts: 1<<62 + 7},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			key := cellKey("table", tc.row, tc.family, tc.qualifier, tc.ts)
			prefix := tablePrefix("table")
			require.True(t, bytes.HasPrefix(key, prefix))

			got, err := decodeCellKey(key[len(prefix):])
			require.NoError(t, err)
			assert.Equal(t, tc.row, got.row)
			assert.Equal(t, tc.family, got.family)
			assert.Equal(t, string(tc.qualifier), string(got.qualifier))
			assert.Equal(t, tc.ts, got.timestamp)
		})
	}
}

func TestCellKeyOrdering(t *testing.T) {
	rows := [][]byte{
		{0x00},
		{0x00, 0x00},
		{0x00, 0x01},
		{0x00, 0xff},
		[]byte("a"),
		[]byte("a\x00"),
		[]byte("ab"),
		{0xff},
	}
	require.True(t, slices.IsSortedFunc(rows, bytes.Compare))

	var keys [][]byte
	for _, r := range rows {
		keys = append(keys, cellKey("t", r, "cf", []byte("q"), 5))
	}
	assert.True(t, slices.IsSortedFunc(keys, bytes.Compare), "row order must be preserved")

	// newer versions sort first
	older := cellKey("t", []byte("r"), "cf", []byte("q"), 1)
	newer := cellKey("t", []byte("r"), "cf", []byte("q"), 2)
	assert.Negative(t, bytes.Compare(newer, older))

	// a family never interleaves with the next row
	assert.Negative(t, bytes.Compare(
		cellKey("t", []byte("a"), "zz", []byte("zz"), 0),
		cellKey("t", []byte("a\x00"), "aa", []byte("aa"), 0),
	))
}

func TestRowBound(t *testing.T) {
	bound := rowBound("t", []byte("b"))

	assert.Negative(t, bytes.Compare(cellKey("t", []byte("a"), "cf", nil, 0), bound))
	assert.Negative(t, bytes.Compare(cellKey("t", []byte("a\xff"), "cf", nil, 0), bound))
	assert.Positive(t, bytes.Compare(cellKey("t", []byte("b"), "cf", nil, 0), bound))
	assert.Positive(t, bytes.Compare(cellKey("t", []byte("b\x00"), "cf", nil, 0), bound))
}

func TestTablesDoNotOverlap(t *testing.T) {
	short := tablePrefix("tbl")
	long := tablePrefix("tbl2")
	end := prefixEnd(short)

	key := cellKey("tbl2", []byte("r"), "cf", nil, 0)
	assert.True(t, bytes.HasPrefix(key, long))
	assert.False(t, bytes.HasPrefix(key, short))
	assert.False(t, bytes.Compare(key, short) >= 0 && bytes.Compare(key, end) < 0)
}

func TestPrefixEnd(t *testing.T) {
	assert.Equal(t, []byte("s0"), prefixEnd([]byte("s/")))
	assert.Equal(t, []byte{0x01}, prefixEnd([]byte{0x00, 0xff}))
	assert.Nil(t, prefixEnd([]byte{0xff, 0xff}))
}

func TestDecodeMalformed(t *testing.T) {
	tests := map[string][]byte{
		"no terminator":     []byte("row"),
		"bad escape":        {'r', 0x00, 0x05},
		"trailing escape":   {'r', 0x00},
		"short timestamp":   append(appendSegment(appendSegment(appendSegment(nil, []byte("r")), []byte("f")), []byte("q")), 1, 2),
		"missing qualifier": appendSegment(appendSegment(nil, []byte("r")), []byte("f")),
	}
	for name, key := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := decodeCellKey(key)
			require.ErrorIs(t, err, errMalformedKey)
		})
	}
}
