package format

import (
	"encoding/binary"
	"fmt"
)

const (
	// Version is the current format version.
	Version = uint16(1)

	// GlobalHeaderSize is the fixed part of the global header.
	GlobalHeaderSize = 40
	// ChunkHeaderSize is the size of every chunk header.
	ChunkHeaderSize = 32
	// ElementPrefixSize is the size of the length prefix in front of each element.
	ElementPrefixSize = 8

	// MaxCodecNameLen is the longest codec name the header can carry.
	MaxCodecNameLen = 255
)

// Magic identifies a serialized large list ("LLS0").
var Magic = [4]byte{'L', 'L', 'S', '0'}

// Compression identifies the algorithm applied to a chunk payload.
type Compression uint8

const (
	// CompressionNone stores the payload as is.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses zstd (better ratio, slower).
	CompressionZSTD Compression = 2
)

// Valid reports whether c is a known compression type.
func (c Compression) Valid() bool {
	return c <= CompressionZSTD
}

// MaxExpansion bounds the ratio of raw to stored payload length that c can
// produce. LZ4 sequences extend lengths by at most 255 per byte; a zstd RLE
// block expands 4 bytes to at most 128 KiB.
func (c Compression) MaxExpansion() uint64 {
	switch c {
	case CompressionLZ4:
		return 255
	case CompressionZSTD:
		return 1 << 15
	default:
		return 1
	}
}

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Compression) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("unknown compression %d", uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Compression) UnmarshalText(text []byte) error {
	parsed, err := ParseCompression(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCompression maps a name as returned by String back to its Compression.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}

// FramedLen returns the number of payload bytes an element of n encoded bytes occupies.
func FramedLen(n int) uint64 {
	return ElementPrefixSize + uint64(n)
}

// PutElementPrefix writes the length prefix for an element of n bytes into b.
func PutElementPrefix(b []byte, n uint64) {
	binary.LittleEndian.PutUint64(b[:ElementPrefixSize], n)
}

// ElementLen decodes a length prefix.
func ElementLen(b []byte) uint64 {
	return binary.LittleEndian.Uint64(b[:ElementPrefixSize])
}
