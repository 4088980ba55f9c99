package mutation

import (
	"time"

	"github.com/litetable/litetable-kit/pkg/codec"
	"github.com/litetable/litetable-kit/pkg/litetable"
)

// Builder is the write context of a batch: the row key, column family and timestamp that
// subsequent puts are stamped with. It is a value; the With methods return a modified copy and
// leave the receiver untouched. Puts from every copy land in the same batch.
type Builder struct {
	batch     *Batch
	family    string
	hasFamily bool
	rowKey    []byte
	timestamp int64
}

// WithColumnFamily sets the column family of subsequent puts.
func (b Builder) WithColumnFamily(name string) Builder {
	b.family = name
	b.hasFamily = true
	return b
}

func (b Builder) WithColumnFamilyBytes(name []byte) Builder {
	return b.WithColumnFamily(string(name))
}

// WithRowKey sets the raw row key of subsequent puts.
func (b Builder) WithRowKey(key []byte) Builder {
	b.rowKey = codec.EncodeBytes(key)
	if b.rowKey == nil {
		b.rowKey = []byte{}
	}
	return b
}

func (b Builder) WithRowKeyString(key string) Builder {
	return b.WithRowKey(codec.EncodeString(key))
}

func (b Builder) WithRowKeyInt32(key int32) Builder {
	return b.WithRowKey(codec.EncodeInt32(key))
}

func (b Builder) WithRowKeyInt64(key int64) Builder {
	return b.WithRowKey(codec.EncodeInt64(key))
}

// WithTimestamp sets the timestamp, in milliseconds since the Unix epoch, of subsequent puts.
func (b Builder) WithTimestamp(ts int64) Builder {
	b.timestamp = ts
	return b
}

func (b Builder) WithTime(t time.Time) Builder {
	return b.WithTimestamp(t.UnixMilli())
}

// Reset clears the row key and column family and restores the latest timestamp. Cells already
// put stay in the batch.
func (b Builder) Reset() Builder {
	return Builder{
		batch:     b.batch,
		timestamp: litetable.LatestTimestamp,
	}
}

// PutBytes appends one cell for the current row key, column family and timestamp.
func (b Builder) PutBytes(qualifier, value []byte) error {
	if b.batch == nil {
		return litetable.NewError(litetable.ErrBuilderState,
			"builder is not bound to a batch, use Batch.Builder")
	}
	if !b.hasFamily {
		return litetable.NewError(litetable.ErrBuilderState,
			"column family not set, use WithColumnFamily before calling Put")
	}
	if b.rowKey == nil {
		return litetable.NewError(litetable.ErrBuilderState,
			"row key not set, use WithRowKey before calling Put")
	}

	b.batch.append(litetable.Cell{
		RowKey:    b.rowKey,
		Family:    b.family,
		Qualifier: codec.EncodeBytes(qualifier),
		Timestamp: b.timestamp,
		Value:     codec.EncodeBytes(value),
	})
	return nil
}

func (b Builder) Put(qualifier string, value []byte) error {
	return b.PutBytes(codec.EncodeString(qualifier), value)
}

func (b Builder) PutString(qualifier, value string) error {
	return b.Put(qualifier, codec.EncodeString(value))
}

func (b Builder) PutInt32(qualifier string, value int32) error {
	return b.Put(qualifier, codec.EncodeInt32(value))
}

func (b Builder) PutInt64(qualifier string, value int64) error {
	return b.Put(qualifier, codec.EncodeInt64(value))
}

func (b Builder) PutFloat64(qualifier string, value float64) error {
	return b.Put(qualifier, codec.EncodeFloat64(value))
}
