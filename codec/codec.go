// Package codec converts list elements to and from opaque byte blobs.
//
// The codec name is recorded in the global header of every serialized list.
// Changing the codec of existing data is a breaking change: a list can only be
// read back with the codec that wrote it.
package codec

import (
	"errors"
	"fmt"
)

// ErrUnsupportedType is returned when a codec cannot handle the given value.
var ErrUnsupportedType = errors.New("unsupported type")

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
//
// Unmarshal may retain data; callers hand over ownership of the slice.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
//
// Serialized lists store the codec name in their header; readers use ByName
// to pick the matching codec when none is given.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	case "protobuf":
		return Proto{}, true
	case "bytes":
		return Bytes{}, true
	default:
		return nil, false
	}
}

// Names returns the names of all built-in codecs.
func Names() []string {
	return []string{"go-json", "json", "protobuf", "bytes"}
}

// MustMarshal is a helper for internal tests/benchmarks.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}
