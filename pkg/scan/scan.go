// Package scan configures range scans and executes them against a table.
//
// Example:
//
//	rows, err := scan.New(table).
//		WithColumnFamilies("columnFamily1", "columnFamily2").
//		WithFilter(predicate).
//		StartAt(startRowKey).
//		StopAt(stopRowKey).
//		Build(ctx)
//	if err != nil {
//		return err
//	}
//	defer rows.Close()
//
//	for rows.Next() {
//		row := rows.Row()
//		...
//	}
//	return rows.Err()
package scan

import (
	"context"
	"slices"

	"github.com/litetable/litetable-kit/pkg/codec"
	"github.com/litetable/litetable-kit/pkg/litetable"
	"github.com/rs/zerolog/log"
)

//go:generate mockgen -destination=scanner_mock.go -package=scan -source=scan.go

type scanner interface {
	Scan(ctx context.Context, query litetable.ScanQuery) (litetable.RowIterator, error)
}

// Builder accumulates the families, bounds and predicate of a scan. It is a value: each method
// returns a modified copy.
type Builder struct {
	table     scanner
	families  []string
	startRow  []byte
	stopRow   []byte
	predicate *litetable.Predicate
}

// New returns a builder that scans every family of every row of table.
func New(table scanner) Builder {
	return Builder{table: table}
}

// WithColumnFamilies adds families to the scan. Without any, all families are returned.
func (b Builder) WithColumnFamilies(names ...string) Builder {
	b.families = append(slices.Clip(b.families), names...)
	return b
}

func (b Builder) WithColumnFamiliesBytes(names ...[]byte) Builder {
	families := make([]string, 0, len(names))
	for _, n := range names {
		families = append(families, string(n))
	}
	return b.WithColumnFamilies(families...)
}

// StartAt sets the inclusive lower bound of the scan.
func (b Builder) StartAt(key []byte) Builder {
	b.startRow = codec.EncodeBytes(key)
	return b
}

func (b Builder) StartAtString(key string) Builder {
	return b.StartAt(codec.EncodeString(key))
}

// StopAt sets the exclusive upper bound of the scan.
func (b Builder) StopAt(key []byte) Builder {
	b.stopRow = codec.EncodeBytes(key)
	return b
}

func (b Builder) StopAtString(key string) Builder {
	return b.StopAt(codec.EncodeString(key))
}

// WithFilter sets the predicate rows must satisfy, replacing any previous one.
func (b Builder) WithFilter(p litetable.Predicate) Builder {
	p.Conditions = slices.Clone(p.Conditions)
	b.predicate = &p
	return b
}

// Query returns the scan descriptor without executing it.
func (b Builder) Query() litetable.ScanQuery {
	q := litetable.ScanQuery{
		Families: slices.Clone(b.families),
		StartRow: b.startRow,
		StopRow:  b.stopRow,
	}
	if b.predicate != nil {
		p := *b.predicate
		p.Conditions = slices.Clone(p.Conditions)
		q.Predicate = &p
	}
	return q
}

// Build executes the scan. The returned iterator must be closed.
func (b Builder) Build(ctx context.Context) (litetable.RowIterator, error) {
	if b.table == nil {
		return nil, litetable.NewError(litetable.ErrBuilderState, "no table to scan")
	}

	q := b.Query()
	log.Debug().
		Strs("families", q.Families).
		Bytes("start", q.StartRow).
		Bytes("stop", q.StopRow).
		Bool("filtered", q.Predicate != nil).
		Msg("executing scan")

	it, err := b.table.Scan(ctx, q)
	if err != nil {
		return nil, litetable.WrapError(litetable.ErrStoreRead, err, "execute scan")
	}
	return &rows{RowIterator: it}, nil
}

// rows reports cursor failures as store read errors.
type rows struct {
	litetable.RowIterator
}

func (r *rows) Err() error {
	if err := r.RowIterator.Err(); err != nil {
		return litetable.WrapError(litetable.ErrStoreRead, err, "iterate scan")
	}
	return nil
}

// Collect drains an iterator and closes it. When iteration failed, a close error is dropped so
// the original failure is returned.
func Collect(it litetable.RowIterator) (out []litetable.Row, err error) {
	defer func() {
		closeErr := it.Close()
		if err == nil && closeErr != nil {
			err = litetable.WrapError(litetable.ErrStoreRead, closeErr, "close scan")
		}
	}()

	for it.Next() {
		out = append(out, it.Row())
	}
	return out, it.Err()
}
