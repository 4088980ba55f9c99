// Package mutation accumulates cell-level puts into a batch that is written to the store with
// a single call.
//
// Example:
//
//	batch := mutation.New(table)
//	row := batch.Builder().WithRowKeyInt32(1).WithColumnFamily("foo")
//	if err := row.PutInt32("columnA", 1); err != nil {
//		return err
//	}
//	if err := batch.PutAll(ctx); err != nil {
//		return err
//	}
package mutation

import (
	"context"
	"slices"
	"time"

	"github.com/litetable/litetable-kit/pkg/litetable"
	"github.com/rs/zerolog/log"
)

//go:generate mockgen -destination=writer_mock.go -package=mutation -source=mutation.go

type writer interface {
	Put(ctx context.Context, cells []litetable.Cell) error
}

// Batch holds every cell appended by its builders until PutAll submits them.
type Batch struct {
	table writer
	cells []litetable.Cell
}

// New creates an empty batch bound to a table.
func New(table writer) *Batch {
	return &Batch{
		table: table,
	}
}

// Builder returns a builder with no row key, no column family and the latest timestamp.
func (b *Batch) Builder() Builder {
	return Builder{
		batch:     b,
		timestamp: litetable.LatestTimestamp,
	}
}

// Len returns the number of pending cells.
func (b *Batch) Len() int {
	return len(b.cells)
}

// Cells returns a copy of the pending cells in the order they were put.
func (b *Batch) Cells() []litetable.Cell {
	return slices.Clone(b.cells)
}

// PutAll submits every pending cell in one call to the table. The batch is not cleared, on
// success or failure; discard it once it has been flushed.
func (b *Batch) PutAll(ctx context.Context) error {
	start := time.Now()
	if err := b.table.Put(ctx, b.Cells()); err != nil {
		return litetable.WrapError(litetable.ErrStoreWrite, err, "put %d cells", len(b.cells))
	}

	log.Debug().
		Int("cells", len(b.cells)).
		Str("latency", time.Since(start).String()).
		Msg("mutation batch written")
	return nil
}

func (b *Batch) append(c litetable.Cell) {
	b.cells = append(b.cells, c)
}
