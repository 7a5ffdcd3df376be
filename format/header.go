package format

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// GlobalHeader describes the whole collection.
type GlobalHeader struct {
	ElementCount     uint64
	ChunkCount       uint64
	ChunkSizeCeiling uint64
	Compression      Compression
	Codec            string
}

// Size returns the encoded size of the header in bytes.
func (h *GlobalHeader) Size() int64 {
	return GlobalHeaderSize + int64(len(h.Codec))
}

// Validate checks the header for internal consistency.
func (h *GlobalHeader) Validate() error {
	if h.ChunkSizeCeiling == 0 {
		return errors.New("chunk size ceiling is zero")
	}
	if !h.Compression.Valid() {
		return fmt.Errorf("unknown compression %d", h.Compression)
	}
	if len(h.Codec) > MaxCodecNameLen {
		return fmt.Errorf("codec name longer than %d bytes", MaxCodecNameLen)
	}
	if h.ChunkCount > h.ElementCount {
		return fmt.Errorf("%d chunks cannot hold %d elements", h.ChunkCount, h.ElementCount)
	}
	if h.ElementCount > 0 && h.ChunkCount == 0 {
		return fmt.Errorf("%d elements declared without chunks", h.ElementCount)
	}
	return nil
}

// MarshalBinary encodes the header.
func (h *GlobalHeader) MarshalBinary() ([]byte, error) {
	if len(h.Codec) > MaxCodecNameLen {
		return nil, fmt.Errorf("codec name %q longer than %d bytes", h.Codec, MaxCodecNameLen)
	}
	buf := make([]byte, h.Size())
	copy(buf[0:4], Magic[:])
	binary.LittleEndian.PutUint16(buf[4:6], Version)
	// buf[6:8] flags, reserved
	binary.LittleEndian.PutUint64(buf[8:16], h.ElementCount)
	binary.LittleEndian.PutUint64(buf[16:24], h.ChunkCount)
	binary.LittleEndian.PutUint64(buf[24:32], h.ChunkSizeCeiling)
	buf[32] = byte(h.Compression)
	buf[33] = byte(len(h.Codec))
	// buf[34:40] reserved
	copy(buf[GlobalHeaderSize:], h.Codec)
	return buf, nil
}

// ReadGlobalHeader reads and validates a global header. offset is the stream
// position of the header and is only used for error context.
func ReadGlobalHeader(r io.Reader, offset int64) (*GlobalHeader, error) {
	var fixed [GlobalHeaderSize]byte
	if err := ReadFull(r, fixed[:], "read global header", offset, -1); err != nil {
		return nil, err
	}

	var magic [4]byte
	copy(magic[:], fixed[0:4])
	if magic != Magic {
		return nil, NewCorruptionError(offset, -1, "bad header", fmt.Errorf("%w: %x", ErrInvalidMagic, magic))
	}
	if v := binary.LittleEndian.Uint16(fixed[4:6]); v != Version {
		return nil, NewCorruptionError(offset, -1, "bad header", fmt.Errorf("%w: %d", ErrUnsupportedVersion, v))
	}

	h := &GlobalHeader{
		ElementCount:     binary.LittleEndian.Uint64(fixed[8:16]),
		ChunkCount:       binary.LittleEndian.Uint64(fixed[16:24]),
		ChunkSizeCeiling: binary.LittleEndian.Uint64(fixed[24:32]),
		Compression:      Compression(fixed[32]),
	}

	if n := int(fixed[33]); n > 0 {
		name := make([]byte, n)
		if err := ReadFull(r, name, "read codec name", offset+GlobalHeaderSize, -1); err != nil {
			return nil, err
		}
		h.Codec = string(name)
	}

	if err := h.Validate(); err != nil {
		return nil, NewCorruptionError(offset, -1, "inconsistent global header", err)
	}
	return h, nil
}

// ChunkHeader precedes every chunk payload.
type ChunkHeader struct {
	ElementCount uint32
	Compression  Compression
	ByteLength   uint64
	RawLength    uint64
	Checksum     uint32
}

// Put encodes the header into b, which must hold ChunkHeaderSize bytes.
func (h ChunkHeader) Put(b []byte) {
	_ = b[ChunkHeaderSize-1]
	binary.LittleEndian.PutUint32(b[0:4], h.ElementCount)
	b[4] = byte(h.Compression)
	b[5], b[6], b[7] = 0, 0, 0
	binary.LittleEndian.PutUint64(b[8:16], h.ByteLength)
	binary.LittleEndian.PutUint64(b[16:24], h.RawLength)
	binary.LittleEndian.PutUint32(b[24:28], h.Checksum)
	clear(b[28:32])
}

// Validate checks a chunk header for internal consistency.
func (h ChunkHeader) Validate() error {
	if h.ElementCount == 0 {
		return errors.New("chunk holds no elements")
	}
	if !h.Compression.Valid() {
		return fmt.Errorf("unknown compression %d", h.Compression)
	}
	if h.Compression == CompressionNone && h.ByteLength != h.RawLength {
		return fmt.Errorf("uncompressed chunk stores %d bytes but declares %d raw bytes", h.ByteLength, h.RawLength)
	}
	if h.ByteLength > h.RawLength {
		return fmt.Errorf("stored length %d exceeds raw length %d", h.ByteLength, h.RawLength)
	}
	if h.RawLength/h.Compression.MaxExpansion() > h.ByteLength {
		return fmt.Errorf("%s payload of %d bytes cannot expand to %d raw bytes", h.Compression, h.ByteLength, h.RawLength)
	}
	if h.RawLength/ElementPrefixSize < uint64(h.ElementCount) {
		return fmt.Errorf("%d raw bytes cannot hold %d elements", h.RawLength, h.ElementCount)
	}
	return nil
}

// ParseChunkHeader decodes a header from b.
func ParseChunkHeader(b []byte) ChunkHeader {
	_ = b[ChunkHeaderSize-1]
	return ChunkHeader{
		ElementCount: binary.LittleEndian.Uint32(b[0:4]),
		Compression:  Compression(b[4]),
		ByteLength:   binary.LittleEndian.Uint64(b[8:16]),
		RawLength:    binary.LittleEndian.Uint64(b[16:24]),
		Checksum:     binary.LittleEndian.Uint32(b[24:28]),
	}
}

// ReadChunkHeader reads and validates one chunk header.
func ReadChunkHeader(r io.Reader, offset, chunk int64) (ChunkHeader, error) {
	var buf [ChunkHeaderSize]byte
	if err := ReadFull(r, buf[:], "read chunk header", offset, chunk); err != nil {
		return ChunkHeader{}, err
	}
	h := ParseChunkHeader(buf[:])
	if err := h.Validate(); err != nil {
		return ChunkHeader{}, NewCorruptionError(offset, chunk, "inconsistent chunk header", err)
	}
	return h, nil
}

// ReadFull reads exactly len(p) bytes. A short read means the stream ended
// before the declared structure did and is reported as a CorruptionError;
// any other failure is a StreamError.
func ReadFull(r io.Reader, p []byte, op string, offset, chunk int64) error {
	n, err := io.ReadFull(r, p)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return NewCountError(offset+int64(n), chunk, op+": stream truncated", uint64(len(p)), uint64(n))
	}
	return &StreamError{Op: op, Offset: offset + int64(n), Err: err}
}
