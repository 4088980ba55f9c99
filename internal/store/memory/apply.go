package memory

import (
	"context"
	"fmt"

	"github.com/litetable/litetable-kit/internal/wal"
	"github.com/litetable/litetable-kit/pkg/litetable"
)

// put validates the whole batch before any cell is applied, so a rejected batch leaves the
// table unchanged. The store lock is held shared until the batch is applied so a backup never
// sees a logged batch that is not yet in the table.
func (s *Store) put(ctx context.Context, name string, cells []litetable.Cell) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.lookupLocked(name)
	if err != nil {
		return err
	}
	if len(cells) == 0 {
		return nil
	}

	now := s.now().UnixMilli()
	resolved := make([]litetable.Cell, len(cells))
	for i, c := range cells {
		if !t.isFamilyAllowed(c.Family) {
			return fmt.Errorf("column family not allowed: %s", c.Family)
		}
		if len(c.RowKey) == 0 {
			return fmt.Errorf("row key is required")
		}
		if c.Timestamp == litetable.LatestTimestamp {
			c.Timestamp = now
		}
		if c.Timestamp < 0 {
			return fmt.Errorf("negative timestamp %d", c.Timestamp)
		}
		resolved[i] = c
	}

	if err = s.log(&wal.Entry{Operation: wal.OperationPut, Table: name,
		Cells: resolved}); err != nil {
		return err
	}
	t.apply(resolved)
	return nil
}
