package pebble

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// Data keys are laid out so that pebble's byte order is the scan order:
//
//	d/ table 00 01 row 00 01 family 00 01 qualifier 00 01 ^timestamp
//
// Each segment escapes 0x00 as 00 FF and ends with the terminator 00 01, so a shorter segment
// sorts before every longer one that shares its prefix. The timestamp is inverted so versions
// read newest first.
var (
	dataPrefix   = []byte("d/")
	schemaPrefix = []byte("s/")
	terminator   = []byte{0x00, 0x01}
)

const (
	escapeByte  = 0x00
	escapedZero = 0xff
	termByte    = 0x01
)

var errMalformedKey = errors.New("malformed data key")

func appendEscaped(dst, segment []byte) []byte {
	for _, c := range segment {
		if c == escapeByte {
			dst = append(dst, escapeByte, escapedZero)
			continue
		}
		dst = append(dst, c)
	}
	return dst
}

func appendSegment(dst, segment []byte) []byte {
	return append(appendEscaped(dst, segment), terminator...)
}

// readSegment decodes one escaped segment and returns the rest of the key.
func readSegment(key []byte) (segment, rest []byte, err error) {
	for i := 0; i < len(key); i++ {
		if key[i] != escapeByte {
			segment = append(segment, key[i])
			continue
		}
		if i+1 >= len(key) {
			return nil, nil, errMalformedKey
		}
		switch key[i+1] {
		case escapedZero:
			segment = append(segment, escapeByte)
			i++
		case termByte:
			return segment, key[i+2:], nil
		default:
			return nil, nil, errMalformedKey
		}
	}
	return nil, nil, errMalformedKey
}

func schemaKey(table string) []byte {
	return append(bytes.Clone(schemaPrefix), table...)
}

// tablePrefix is the common prefix of every data key of a table.
func tablePrefix(table string) []byte {
	return appendSegment(bytes.Clone(dataPrefix), []byte(table))
}

// prefixEnd returns the first key after every key starting with prefix.
func prefixEnd(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

func cellKey(table string, row []byte, family string, qualifier []byte, ts int64) []byte {
	k := tablePrefix(table)
	k = appendSegment(k, row)
	k = appendSegment(k, []byte(family))
	k = appendSegment(k, qualifier)
	return binary.BigEndian.AppendUint64(k, ^uint64(ts))
}

// rowBound is the smallest key of a row and every later row, for use as an iterator bound.
func rowBound(table string, row []byte) []byte {
	return appendEscaped(tablePrefix(table), row)
}

type decodedKey struct {
	row       []byte
	family    string
	qualifier []byte
	timestamp int64
}

// decodeCellKey parses a data key with its table prefix already removed.
func decodeCellKey(key []byte) (decodedKey, error) {
	var (
		d   decodedKey
		fam []byte
		err error
	)
	if d.row, key, err = readSegment(key); err != nil {
		return d, err
	}
	if fam, key, err = readSegment(key); err != nil {
		return d, err
	}
	d.family = string(fam)
	if d.qualifier, key, err = readSegment(key); err != nil {
		return d, err
	}
	if len(key) != 8 {
		return d, errMalformedKey
	}
	d.timestamp = int64(^binary.BigEndian.Uint64(key))
	return d, nil
}
