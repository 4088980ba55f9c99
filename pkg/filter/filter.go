// Package filter builds column-value predicates for scans.
//
// Example:
//
//	b, err := filter.New().
//		WithColumnFamily("MyColumnFamily").
//		Column("columnA").
//		ValueMustEqualString("foo")
//	if err != nil {
//		return err
//	}
//	predicate := b.Build()
//
// Builders are values: every call returns a new Builder and never modifies the receiver, so a
// partially configured builder can be shared and extended independently.
package filter

import (
	"slices"

	"github.com/litetable/litetable-kit/pkg/codec"
	"github.com/litetable/litetable-kit/pkg/litetable"
)

// Builder accumulates equality conditions that must all hold for a row to be returned.
type Builder struct {
	family     string
	hasFamily  bool
	column     []byte
	conditions []litetable.Condition
}

// New returns an empty builder. Building it right away yields a predicate that accepts every
// row.
func New() Builder {
	return Builder{}
}

// WithColumnFamily targets subsequent conditions at a column family.
func (b Builder) WithColumnFamily(name string) Builder {
	b.family = name
	b.hasFamily = true
	return b
}

// Column targets subsequent conditions at a qualifier within the current family.
func (b Builder) Column(name string) Builder {
	return b.ColumnBytes(codec.EncodeString(name))
}

// ColumnBytes targets subsequent conditions at a raw qualifier.
func (b Builder) ColumnBytes(name []byte) Builder {
	b.column = codec.EncodeBytes(name)
	if b.column == nil {
		b.column = []byte{}
	}
	return b
}

// ValueMustEqual adds a condition requiring the latest value of the targeted cell to equal
// value. Rows that do not have the cell are excluded.
func (b Builder) ValueMustEqual(value []byte) (Builder, error) {
	if !b.hasFamily {
		return b, litetable.NewError(litetable.ErrBuilderState,
			"column family not set, use WithColumnFamily before adding a condition")
	}
	if b.column == nil {
		return b, litetable.NewError(litetable.ErrBuilderState,
			"column not set, use Column before adding a condition")
	}

	// siblings of b may share the backing array
	b.conditions = append(slices.Clip(b.conditions), litetable.Condition{
		Family:          b.family,
		Qualifier:       b.column,
		Value:           codec.EncodeBytes(value),
		FilterIfMissing: true,
	})
	return b, nil
}

func (b Builder) ValueMustEqualString(value string) (Builder, error) {
	return b.ValueMustEqual(codec.EncodeString(value))
}

func (b Builder) ValueMustEqualInt32(value int32) (Builder, error) {
	return b.ValueMustEqual(codec.EncodeInt32(value))
}

func (b Builder) ValueMustEqualInt64(value int64) (Builder, error) {
	return b.ValueMustEqual(codec.EncodeInt64(value))
}

// Len returns the number of accumulated conditions.
func (b Builder) Len() int {
	return len(b.conditions)
}

// Build returns the logical AND of every accumulated condition.
func (b Builder) Build() litetable.Predicate {
	return litetable.Predicate{Conditions: slices.Clone(b.conditions)}
}
