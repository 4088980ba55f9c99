package memory

import (
	"hash/fnv"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/btree"
	"github.com/litetable/litetable-kit/pkg/litetable"
)

type table struct {
	schema   litetable.TableSchema
	disabled atomic.Bool

	// maxVersions per family; a family missing here is not allowed
	maxVersions map[string]int
	shards      []*shard
}

// shard is a manager for a single shard of a table's rows.
type shard struct {
	mutex sync.RWMutex
	rows  *btree.BTreeG[*row]
}

// row holds family → qualifier → versions, newest first.
type row struct {
	key     string
	columns map[string]litetable.VersionedQualifier
}

func rowLess(a, b *row) bool {
	return a.key < b.key
}

func newTable(schema litetable.TableSchema, shardCount int) *table {
	t := &table{
		schema:      schema,
		maxVersions: make(map[string]int, len(schema.Families)),
		shards:      make([]*shard, shardCount),
	}
	for _, f := range schema.Families {
		t.maxVersions[f.Name] = f.MaxVersions
	}
	for i := range t.shards {
		t.shards[i] = &shard{rows: btree.NewG(16, rowLess)}
	}
	return t
}

// isFamilyAllowed reports whether the table declares the family.
func (t *table) isFamilyAllowed(family string) bool {
	_, ok := t.maxVersions[family]
	return ok
}

// getShardIndex determines which shard a particular row key belongs to.
// It uses FNV-1a so the same key always lands on the same shard.
func (t *table) getShardIndex(rowKey []byte) int {
	return shardIndex(rowKey, len(t.shards))
}

func shardIndex(rowKey []byte, shardCount int) int {
	if shardCount <= 0 {
		return 0
	}

	h := fnv.New32a()
	_, _ = h.Write(rowKey)
	return int(h.Sum32() % uint32(shardCount))
}

// apply writes cells whose timestamps are already resolved.
func (t *table) apply(cells []litetable.Cell) {
	byShard := make(map[int][]litetable.Cell)
	for _, c := range cells {
		idx := t.getShardIndex(c.RowKey)
		byShard[idx] = append(byShard[idx], c)
	}

	for idx, shardCells := range byShard {
		t.shards[idx].apply(shardCells, t.maxVersions)
	}
}

func (s *shard) apply(cells []litetable.Cell, maxVersions map[string]int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, c := range cells {
		r, ok := s.rows.Get(&row{key: string(c.RowKey)})
		if !ok {
			r = &row{
				key:     string(c.RowKey),
				columns: make(map[string]litetable.VersionedQualifier),
			}
			s.rows.ReplaceOrInsert(r)
		}

		family, ok := r.columns[c.Family]
		if !ok {
			family = make(litetable.VersionedQualifier)
			r.columns[c.Family] = family
		}

		qualifier := string(c.Qualifier)
		versions := insertVersion(family[qualifier], litetable.TimestampedValue{
			Value:     slices.Clone(c.Value),
			Timestamp: c.Timestamp,
		})
		if limit := maxVersions[c.Family]; limit > 0 && len(versions) > limit {
			clear(versions[limit:])
			versions = versions[:limit]
		}
		family[qualifier] = versions
	}
}

// insertVersion keeps versions ordered newest first. A value written later wins over an older
// write with the same timestamp.
func insertVersion(versions []litetable.TimestampedValue, v litetable.TimestampedValue) []litetable.TimestampedValue {
	i, _ := slices.BinarySearchFunc(versions, v.Timestamp,
		func(e litetable.TimestampedValue, ts int64) int {
			switch {
			case e.Timestamp > ts:
				return -1
			default:
				return 1
			}
		})
	return slices.Insert(versions, i, v)
}

// snapshot copies a row so it can leave the shard lock.
func (r *row) snapshot() litetable.Row {
	out := litetable.Row{
		Key:     []byte(r.key),
		Columns: make(map[string]litetable.VersionedQualifier, len(r.columns)),
	}
	for family, qualifiers := range r.columns {
		fam := make(litetable.VersionedQualifier, len(qualifiers))
		for q, versions := range qualifiers {
			fam[q] = slices.Clone(versions)
		}
		out.Columns[family] = fam
	}
	return out
}

// restore inserts a row read from a backup, replacing any row with the same key.
func (t *table) restore(r litetable.Row) {
	columns := r.Columns
	if columns == nil {
		columns = make(map[string]litetable.VersionedQualifier)
	}
	s := t.shards[t.getShardIndex(r.Key)]
	s.mutex.Lock()
	s.rows.ReplaceOrInsert(&row{key: string(r.Key), columns: columns})
	s.mutex.Unlock()
}
