package litetable

import (
	"context"
	"math"
)

// LatestTimestamp asks the store to stamp a cell with its own write time.
const LatestTimestamp int64 = math.MaxInt64

// TimestampedValue stores a value with its timestamp in milliseconds since the Unix epoch.
type TimestampedValue struct {
	Value     []byte `json:"value"`
	Timestamp int64  `json:"timestamp"`
}

// VersionedQualifier maps qualifiers to their timestamped values, newest first.
//
// Qualifiers are raw bytes held in a string so they can be used as map keys.
type VersionedQualifier map[string][]TimestampedValue

// Row is a raw row result as returned by a scan:
//
// Example:
//
//	Row{
//	  Key: []byte("row1"),
//	  Columns: map[string]VersionedQualifier{
//	    "family1": {
//	      "qualifier1": {{Value: []byte("value1"), Timestamp: 1700000000000}},
//	      "qualifier2": {{Value: []byte("value2"), Timestamp: 1700000000000}},
//	    },
//	    "family2": {
//	      "qualifier1": {{Value: []byte("value3"), Timestamp: 1700000000000}},
//	    },
//	  },
//	}
type Row struct {
	Key     []byte                        `json:"key"`
	Columns map[string]VersionedQualifier `json:"cols"` // family → qualifier → []TimestampedValue
}

// Family returns the qualifiers of a family, or nil when the row has none.
func (r Row) Family(name string) VersionedQualifier {
	if r.Columns == nil {
		return nil
	}
	return r.Columns[name]
}

// Latest returns the newest value of a cell.
func (r Row) Latest(family string, qualifier []byte) ([]byte, bool) {
	versions := r.Family(family)[string(qualifier)]
	if len(versions) == 0 {
		return nil, false
	}
	return versions[0].Value, true
}

// Cell is a single fully-resolved mutation: (row, family, qualifier, timestamp) → value.
type Cell struct {
	RowKey    []byte `json:"row"`
	Family    string `json:"family"`
	Qualifier []byte `json:"qualifier"`
	Timestamp int64  `json:"timestamp"`
	Value     []byte `json:"value"`
}

// FamilySchema declares a column family and how many versions of each cell it keeps.
type FamilySchema struct {
	Name        string `json:"name"`
	MaxVersions int    `json:"max_versions"`
}

// TableSchema declares a table and its column families.
type TableSchema struct {
	Name     string         `json:"name"`
	Families []FamilySchema `json:"families"`
}

// Family looks up a declared family.
func (s TableSchema) Family(name string) (FamilySchema, bool) {
	for _, f := range s.Families {
		if f.Name == name {
			return f, true
		}
	}
	return FamilySchema{}, false
}

// RowIterator is a forward-only cursor over scan results. It is not restartable and must be
// closed on every exit path to release the underlying cursor.
type RowIterator interface {
	// Next advances to the next row, returning false when the scan is exhausted or failed.
	Next() bool
	// Row returns the current row.
	Row() Row
	// Err reports the failure that stopped iteration, if any.
	Err() error
	// Close releases the cursor.
	Close() error
}

// Table is the data-plane collaborator of a single table.
type Table interface {
	Put(ctx context.Context, cells []Cell) error
	Scan(ctx context.Context, query ScanQuery) (RowIterator, error)
}

// Admin is the administrative collaborator of a store.
type Admin interface {
	TableExists(ctx context.Context, name string) (bool, error)
	CreateTable(ctx context.Context, schema TableSchema) error
	DisableTable(ctx context.Context, name string) error
	DropTable(ctx context.Context, name string) error
}
