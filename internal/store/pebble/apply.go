package pebble

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/litetable/litetable-kit/pkg/litetable"
)

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// put writes the batch atomically. A cell rewritten with the same coordinates and timestamp
// replaces the earlier value.
func (s *Store) put(ctx context.Context, name string, cells []litetable.Cell) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	schema, err := s.lookup(name)
	if err != nil {
		return err
	}
	if len(cells) == 0 {
		return nil
	}

	now := s.now()
	b := s.db.NewBatch()
	defer b.Close()

	for _, c := range cells {
		if _, ok := schema.Family(c.Family); !ok {
			return fmt.Errorf("column family not allowed: %s", c.Family)
		}
		if len(c.RowKey) == 0 {
			return fmt.Errorf("row key is required")
		}
		ts := c.Timestamp
		if ts == litetable.LatestTimestamp {
			ts = now
		}
		if ts < 0 {
			return fmt.Errorf("negative timestamp %d", ts)
		}
		if err = b.Set(cellKey(name, c.RowKey, c.Family, c.Qualifier, ts), c.Value, nil); err != nil {
			return err
		}
	}

	if err = b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to commit %d cells: %w", len(cells), err)
	}
	return nil
}
