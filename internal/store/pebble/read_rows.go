package pebble

import (
	"bytes"
	"context"
	"fmt"
	"slices"

	"github.com/cockroachdb/pebble"
	"github.com/litetable/litetable-kit/pkg/litetable"
)

func (s *Store) scan(ctx context.Context, name string, q litetable.ScanQuery) (litetable.RowIterator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	schema, err := s.lookup(name)
	if err != nil {
		return nil, err
	}

	if len(q.StartRow) > 0 && len(q.StopRow) > 0 && bytes.Compare(q.StartRow, q.StopRow) >= 0 {
		return litetable.NewSliceIterator(nil), nil
	}

	prefix := tablePrefix(name)
	opts := &pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixEnd(prefix),
	}
	if len(q.StartRow) > 0 {
		opts.LowerBound = rowBound(name, q.StartRow)
	}
	if len(q.StopRow) > 0 {
		opts.UpperBound = rowBound(name, q.StopRow)
	}

	iter, err := s.db.NewIter(opts)
	if err != nil {
		return nil, err
	}

	maxVersions := make(map[string]int, len(schema.Families))
	for _, f := range schema.Families {
		maxVersions[f.Name] = f.MaxVersions
	}

	return &rowIterator{
		ctx:         ctx,
		iter:        iter,
		prefixLen:   len(prefix),
		query:       q,
		maxVersions: maxVersions,
		valid:       iter.First(),
	}, nil
}

// rowIterator groups consecutive pebble keys of the same row.
type rowIterator struct {
	ctx         context.Context
	iter        *pebble.Iterator
	prefixLen   int
	query       litetable.ScanQuery
	maxVersions map[string]int

	// valid reports whether iter is positioned on an unconsumed key
	valid bool
	row   litetable.Row
	err   error
}

func (it *rowIterator) Next() bool {
	if it.err != nil || it.iter == nil {
		return false
	}

	for it.valid {
		if err := it.ctx.Err(); err != nil {
			it.err = err
			return false
		}

		row, err := it.readRow()
		if err != nil {
			it.err = err
			return false
		}
		if !it.query.Accepts(row) {
			continue
		}
		if projected, ok := it.query.Project(row); ok {
			it.row = projected
			return true
		}
	}

	it.err = it.iter.Error()
	return false
}

// readRow consumes every key of the row the iterator is positioned on.
func (it *rowIterator) readRow() (litetable.Row, error) {
	var row litetable.Row
	for ; it.valid; it.valid = it.iter.Next() {
		d, err := decodeCellKey(it.iter.Key()[it.prefixLen:])
		if err != nil {
			return row, fmt.Errorf("%w: %q", err, it.iter.Key())
		}

		if row.Key == nil {
			row = litetable.Row{Key: d.row, Columns: make(map[string]litetable.VersionedQualifier)}
		} else if !bytes.Equal(row.Key, d.row) {
			break
		}

		family, ok := row.Columns[d.family]
		if !ok {
			family = make(litetable.VersionedQualifier)
			row.Columns[d.family] = family
		}

		qualifier := string(d.qualifier)
		if limit, ok := it.maxVersions[d.family]; ok && len(family[qualifier]) >= limit {
			continue
		}
		family[qualifier] = append(family[qualifier], litetable.TimestampedValue{
			Value:     slices.Clone(it.iter.Value()),
			Timestamp: d.timestamp,
		})
	}
	return row, nil
}

func (it *rowIterator) Row() litetable.Row {
	return it.row
}

func (it *rowIterator) Err() error {
	return it.err
}

func (it *rowIterator) Close() error {
	if it.iter == nil {
		return nil
	}
	err := it.iter.Close()
	it.iter = nil
	it.row = litetable.Row{}
	return err
}
