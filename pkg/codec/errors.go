package codec

import (
	"errors"
	"fmt"
)

// ErrMalformedEncoding matches every MalformedEncodingError.
var ErrMalformedEncoding = errors.New("malformed encoding")

// MalformedEncodingError reports bytes whose length does not fit the requested type.
type MalformedEncodingError struct {
	Type string
	Want int
	Got  int
}

func (e *MalformedEncodingError) Error() string {
	return fmt.Sprintf("%s: %s needs %d bytes, got %d", ErrMalformedEncoding, e.Type, e.Want, e.Got)
}

func (e *MalformedEncodingError) Is(target error) bool {
	return target == ErrMalformedEncoding
}
