// Package codec converts typed values to and from the byte representation used for row keys,
// qualifiers and cell values.
//
// Integers are fixed-width big-endian, so the byte order of non-negative values matches their
// numeric order. Strings are raw UTF-8. Floats are the big-endian IEEE-754 bit pattern, which
// does not sort negative values numerically.
package codec

import (
	"encoding/binary"
	"math"
)

const (
	int32Size   = 4
	int64Size   = 8
	float64Size = 8
)

// Value is the set of types the codec understands.
type Value interface {
	string | int32 | int64 | float64 | []byte
}

// EncodeString returns the UTF-8 bytes of v.
func EncodeString(v string) []byte {
	return []byte(v)
}

// DecodeString interprets b as UTF-8. It never fails.
func DecodeString(b []byte) (string, error) {
	return string(b), nil
}

// EncodeInt32 returns v as 4 big-endian bytes.
func EncodeInt32(v int32) []byte {
	return binary.BigEndian.AppendUint32(make([]byte, 0, int32Size), uint32(v))
}

// DecodeInt32 reads 4 big-endian bytes.
func DecodeInt32(b []byte) (int32, error) {
	if len(b) != int32Size {
		return 0, &MalformedEncodingError{Type: "int32", Want: int32Size, Got: len(b)}
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

// EncodeInt64 returns v as 8 big-endian bytes.
func EncodeInt64(v int64) []byte {
	return binary.BigEndian.AppendUint64(make([]byte, 0, int64Size), uint64(v))
}

// DecodeInt64 reads 8 big-endian bytes.
func DecodeInt64(b []byte) (int64, error) {
	if len(b) != int64Size {
		return 0, &MalformedEncodingError{Type: "int64", Want: int64Size, Got: len(b)}
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

// EncodeFloat64 returns the IEEE-754 bits of v, big-endian. Negative values do not sort
// numerically.
func EncodeFloat64(v float64) []byte {
	return binary.BigEndian.AppendUint64(make([]byte, 0, float64Size), math.Float64bits(v))
}

// DecodeFloat64 reads 8 big-endian IEEE-754 bytes.
func DecodeFloat64(b []byte) (float64, error) {
	if len(b) != float64Size {
		return 0, &MalformedEncodingError{Type: "float64", Want: float64Size, Got: len(b)}
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

// EncodeBytes copies b so later changes by the caller do not leak into pending mutations.
func EncodeBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// DecodeBytes returns a copy of b.
func DecodeBytes(b []byte) ([]byte, error) {
	return EncodeBytes(b), nil
}

// Encode converts any supported value to bytes.
func Encode[T Value](v T) []byte {
	switch x := any(v).(type) {
	case string:
		return EncodeString(x)
	case int32:
		return EncodeInt32(x)
	case int64:
		return EncodeInt64(x)
	case float64:
		return EncodeFloat64(x)
	default:
		return EncodeBytes(any(v).([]byte))
	}
}

// Decode converts bytes back to a supported value.
func Decode[T Value](b []byte) (T, error) {
	var (
		out any
		err error
		v   T
	)
	switch any(v).(type) {
	case string:
		out, err = DecodeString(b)
	case int32:
		out, err = DecodeInt32(b)
	case int64:
		out, err = DecodeInt64(b)
	case float64:
		out, err = DecodeFloat64(b)
	default:
		out, err = DecodeBytes(b)
	}
	if err != nil {
		return v, err
	}
	return out.(T), nil
}

// Strings encodes each string, in order.
func Strings(values ...string) [][]byte {
	out := make([][]byte, 0, len(values))
	for _, v := range values {
		out = append(out, EncodeString(v))
	}
	return out
}
