package bigtable

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"strings"

	"cloud.google.com/go/bigtable"
	"github.com/litetable/litetable-kit/pkg/litetable"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *Store) scan(ctx context.Context, name string, q litetable.ScanQuery) (litetable.RowIterator, error) {
	if len(q.StartRow) > 0 && len(q.StopRow) > 0 && bytes.Compare(q.StartRow, q.StopRow) >= 0 {
		return litetable.NewSliceIterator(nil), nil
	}

	limits, err := s.familyLimits(ctx, name)
	if err != nil {
		return nil, err
	}

	var opts []bigtable.ReadOption
	if f := readFilter(q); f != nil {
		opts = append(opts, bigtable.RowFilter(f))
	}

	ctx, cancel := context.WithCancel(ctx)
	it := &rowIterator{
		rows:   make(chan litetable.Row),
		errc:   make(chan error, 1),
		cancel: cancel,
	}

	tbl := s.client.Open(name)
	go func() {
		defer close(it.rows)
		it.errc <- tbl.ReadRows(ctx, rowRange(q), func(r bigtable.Row) bool {
			select {
			case it.rows <- convertRow(r, limits):
				return true
			case <-ctx.Done():
				return false
			}
		}, opts...)
	}()
	return it, nil
}

func rowRange(q litetable.ScanQuery) bigtable.RowRange {
	switch {
	case len(q.StopRow) > 0:
		return bigtable.NewRange(string(q.StartRow), string(q.StopRow))
	default:
		return bigtable.InfiniteRange(string(q.StartRow))
	}
}

// readFilter builds the server-side filter of a scan. Conditions nest so that each one only
// runs on rows that passed the previous, and the family filter is applied to what survives.
func readFilter(q litetable.ScanQuery) bigtable.Filter {
	var chain []bigtable.Filter

	if q.Predicate != nil && !q.Predicate.IsEmpty() {
		var f bigtable.Filter = bigtable.PassAllFilter()
		for i := len(q.Predicate.Conditions) - 1; i >= 0; i-- {
			f = conditionFilter(q.Predicate.Conditions[i], f)
		}
		chain = append(chain, f)
	}

	if len(q.Families) > 0 {
		quoted := make([]string, 0, len(q.Families))
		for _, fam := range q.Families {
			quoted = append(quoted, regexp.QuoteMeta(fam))
		}
		chain = append(chain, bigtable.FamilyFilter("^(?:"+strings.Join(quoted, "|")+")$"))
	}

	switch len(chain) {
	case 0:
		return nil
	case 1:
		return chain[0]
	default:
		return bigtable.ChainFilters(chain...)
	}
}

// conditionFilter passes the row to next when the latest version of the cell equals the
// condition value.
func conditionFilter(c litetable.Condition, next bigtable.Filter) bigtable.Filter {
	qualifier := string(c.Qualifier)
	column := bigtable.ColumnRangeFilter(c.Family, qualifier, qualifier+"\x00")
	equal := bigtable.ChainFilters(
		column,
		bigtable.LatestNFilter(1),
		bigtable.ValueRangeFilter(c.Value, append(bytes.Clone(c.Value), 0x00)),
	)

	matched := bigtable.ConditionFilter(equal, next, bigtable.BlockAllFilter())
	if c.FilterIfMissing {
		return matched
	}
	// a row without the cell passes
	return bigtable.ConditionFilter(column, matched, next)
}

// convertRow turns a Bigtable row into a litetable row, dropping versions over the limit.
func convertRow(r bigtable.Row, limits map[string]int) litetable.Row {
	row := litetable.Row{
		Key:     []byte(r.Key()),
		Columns: make(map[string]litetable.VersionedQualifier, len(r)),
	}
	for family, items := range r {
		fam := make(litetable.VersionedQualifier)
		limit := limits[family]
		for _, item := range items {
			qualifier := strings.TrimPrefix(item.Column, family+":")
			if limit > 0 && len(fam[qualifier]) >= limit {
				continue
			}
			fam[qualifier] = append(fam[qualifier], litetable.TimestampedValue{
				Value:     item.Value,
				Timestamp: int64(item.Timestamp) / 1000,
			})
		}
		row.Columns[family] = fam
	}
	return row
}

// rowIterator hands over rows streamed by a ReadRows call running in its own goroutine.
type rowIterator struct {
	rows   chan litetable.Row
	errc   chan error
	cancel context.CancelFunc

	row    litetable.Row
	err    error
	done   bool
	closed bool
}

func (it *rowIterator) Next() bool {
	if it.done || it.closed {
		return false
	}
	r, ok := <-it.rows
	if !ok {
		it.done = true
		it.err = <-it.errc
		return false
	}
	it.row = r
	return true
}

func (it *rowIterator) Row() litetable.Row {
	return it.row
}

func (it *rowIterator) Err() error {
	return it.err
}

// Close stops the read and waits for it to finish.
func (it *rowIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	it.cancel()

	if !it.done {
		for range it.rows {
		}
		it.done = true
		err := <-it.errc
		if err != nil && !errors.Is(err, context.Canceled) && status.Code(err) != codes.Canceled {
			return err
		}
	}
	return nil
}
