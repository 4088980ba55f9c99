// Package projection converts the raw qualifier→value cells of one column family into an ordered,
// typed mapping.
//
// Example:
//
//	p, err := projection.ForStrings(row, "myColumnFamily")
//	if err != nil {
//		return err
//	}
//	for qualifier, value := range p.Transform().All() {
//		...
//	}
package projection

import (
	"cmp"
	"fmt"
	"iter"
	"strings"

	"github.com/google/btree"
	"github.com/litetable/litetable-kit/pkg/codec"
	"github.com/litetable/litetable-kit/pkg/litetable"
)

const btreeDegree = 8

// DecodeFunc converts raw bytes into a typed value.
type DecodeFunc[T any] func([]byte) (T, error)

type entry[K cmp.Ordered, V any] struct {
	key   K
	value V
}

// ProjectedRow is a mapping ordered by key.
type ProjectedRow[K cmp.Ordered, V any] struct {
	tree *btree.BTreeG[entry[K, V]]
}

func newProjectedRow[K cmp.Ordered, V any]() *ProjectedRow[K, V] {
	return &ProjectedRow[K, V]{
		tree: btree.NewG(btreeDegree, func(a, b entry[K, V]) bool {
			return cmp.Less(a.key, b.key)
		}),
	}
}

// Len returns the number of entries.
func (p *ProjectedRow[K, V]) Len() int {
	return p.tree.Len()
}

// Get returns the value stored for key.
func (p *ProjectedRow[K, V]) Get(key K) (V, bool) {
	e, ok := p.tree.Get(entry[K, V]{key: key})
	return e.value, ok
}

// All yields every entry in key order.
func (p *ProjectedRow[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		p.tree.Ascend(func(e entry[K, V]) bool {
			return yield(e.key, e.value)
		})
	}
}

// Keys returns every key in order.
func (p *ProjectedRow[K, V]) Keys() []K {
	keys := make([]K, 0, p.tree.Len())
	for k := range p.All() {
		keys = append(keys, k)
	}
	return keys
}

// Values returns every value in key order.
func (p *ProjectedRow[K, V]) Values() []V {
	values := make([]V, 0, p.tree.Len())
	for _, v := range p.All() {
		values = append(values, v)
	}
	return values
}

// Map copies the entries into an unordered map.
func (p *ProjectedRow[K, V]) Map() map[K]V {
	out := make(map[K]V, p.tree.Len())
	for k, v := range p.All() {
		out[k] = v
	}
	return out
}

// Projector holds the decoded cells of one family of one row.
type Projector[K cmp.Ordered, V any] struct {
	projected *ProjectedRow[K, V]
}

// New decodes the latest value of every qualifier of family in row. A family that is absent
// from the row yields an empty projection. The first decode failure is returned.
func New[K cmp.Ordered, V any](
	row litetable.Row,
	family string,
	decodeKey DecodeFunc[K],
	decodeValue DecodeFunc[V],
) (*Projector[K, V], error) {
	projected := newProjectedRow[K, V]()

	for qualifier, versions := range row.Family(family) {
		if len(versions) == 0 {
			continue
		}

		key, err := decodeKey([]byte(qualifier))
		if err != nil {
			return nil, fmt.Errorf("decode qualifier %q of family %s: %w", qualifier, family, err)
		}
		value, err := decodeValue(versions[0].Value)
		if err != nil {
			return nil, fmt.Errorf("decode value of %s:%q: %w", family, qualifier, err)
		}

		projected.tree.ReplaceOrInsert(entry[K, V]{key: key, value: value})
	}

	return &Projector[K, V]{projected: projected}, nil
}

// ForStrings projects a family whose qualifiers and values are both strings.
func ForStrings(row litetable.Row, family string) (*Projector[string, string], error) {
	return New[string, string](row, family, codec.DecodeString, codec.DecodeString)
}

// Transform returns the full projection.
func (p *Projector[K, V]) Transform() *ProjectedRow[K, V] {
	return p.projected
}

// ColumnsStartingWith returns the entries whose key, formatted as a string, begins with prefix.
func (p *Projector[K, V]) ColumnsStartingWith(prefix string) *ProjectedRow[K, V] {
	out := newProjectedRow[K, V]()
	p.projected.tree.Ascend(func(e entry[K, V]) bool {
		if strings.HasPrefix(fmt.Sprint(e.key), prefix) {
			out.tree.ReplaceOrInsert(e)
		}
		return true
	})
	return out
}
