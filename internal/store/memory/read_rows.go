package memory

import (
	"bytes"
	"context"
	"slices"

	"github.com/litetable/litetable-kit/pkg/litetable"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// scan has to query all shards. Each shard is read-locked only while its own rows are copied.
func (s *Store) scan(ctx context.Context, name string, q litetable.ScanQuery) (litetable.RowIterator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := s.lookup(name)
	if err != nil {
		return nil, err
	}

	if len(q.StartRow) > 0 && len(q.StopRow) > 0 && bytes.Compare(q.StartRow, q.StopRow) >= 0 {
		return litetable.NewSliceIterator(nil), nil
	}

	results := make([][]litetable.Row, len(t.shards))
	g, gctx := errgroup.WithContext(ctx)
	for i, sh := range t.shards {
		g.Go(func() error {
			rows, err := sh.collect(gctx, q)
			results[i] = rows
			return err
		})
	}
	if err = g.Wait(); err != nil {
		return nil, err
	}

	merged := slices.Concat(results...)
	slices.SortFunc(merged, func(a, b litetable.Row) int {
		return bytes.Compare(a.Key, b.Key)
	})

	log.Debug().Str("table", name).Int("rows", len(merged)).Msg("memory scan complete")
	return litetable.NewSliceIterator(merged), nil
}

func (s *shard) collect(ctx context.Context, q litetable.ScanQuery) ([]litetable.Row, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var (
		out []litetable.Row
		err error
	)
	visit := func(r *row) bool {
		if err = ctx.Err(); err != nil {
			return false
		}
		if len(q.StopRow) > 0 && r.key >= string(q.StopRow) {
			return false
		}

		snap := r.snapshot()
		if !q.Accepts(snap) {
			return true
		}
		if projected, ok := q.Project(snap); ok {
			out = append(out, projected)
		}
		return true
	}

	if len(q.StartRow) > 0 {
		s.rows.AscendGreaterOrEqual(&row{key: string(q.StartRow)}, visit)
	} else {
		s.rows.Ascend(visit)
	}
	return out, err
}
