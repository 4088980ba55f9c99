package bigtable

import (
	"context"
	"errors"
	"fmt"
	"math"

	"cloud.google.com/go/bigtable"
	"github.com/litetable/litetable-kit/pkg/litetable"
)

// maxMillis is the largest millisecond timestamp that fits Bigtable's microsecond cells.
const maxMillis = math.MaxInt64 / 1000

// put sends one mutation per row in a single bulk request. Rows are applied independently:
// when some fail, the others are still written.
func (s *Store) put(ctx context.Context, name string, cells []litetable.Cell) error {
	if len(cells) == 0 {
		return nil
	}

	now := s.now().UnixMilli()
	var (
		rowKeys []string
		muts    []*bigtable.Mutation
		byRow   = make(map[string]*bigtable.Mutation)
	)
	for _, c := range cells {
		if len(c.RowKey) == 0 {
			return errors.New("row key is required")
		}
		key := string(c.RowKey)
		m, ok := byRow[key]
		if !ok {
			m = bigtable.NewMutation()
			byRow[key] = m
			rowKeys = append(rowKeys, key)
			muts = append(muts, m)
		}

		ts := c.Timestamp
		if ts == litetable.LatestTimestamp {
			ts = now
		}
		switch {
		case ts < 0:
			return fmt.Errorf("negative timestamp %d", ts)
		case ts > maxMillis:
			return fmt.Errorf("timestamp %d out of range", ts)
		}
		m.Set(c.Family, string(c.Qualifier), bigtable.Timestamp(ts*1000), c.Value)
	}

	errs, err := s.client.Open(name).ApplyBulk(ctx, rowKeys, muts)
	if err != nil {
		return err
	}

	var errGrp []error
	for i, rowErr := range errs {
		if rowErr != nil {
			errGrp = append(errGrp, fmt.Errorf("row %q: %w", rowKeys[i], rowErr))
		}
	}
	return errors.Join(errGrp...)
}
