package format

import (
	"errors"
	"fmt"
)

var (
	// ErrCorrupt is matched by every *CorruptionError.
	ErrCorrupt = errors.New("corrupt large list")

	// ErrOutOfRange is matched by every *IndexOutOfRangeError.
	ErrOutOfRange = errors.New("element index out of range")

	// ErrNotSeekable is returned when an operation needs to seek on a stream that cannot.
	ErrNotSeekable = errors.New("stream is not seekable")

	// ErrInvalidMagic is returned when a stream does not start with Magic.
	ErrInvalidMagic = errors.New("invalid magic number")

	// ErrUnsupportedVersion is returned for a header version this package cannot read.
	ErrUnsupportedVersion = errors.New("unsupported format version")
)

// StreamError reports a failure of the underlying stream (disk full, broken
// pipe, failed seek). It is never retried.
type StreamError struct {
	Op     string
	Offset int64
	Err    error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("%s at offset %d: %v", e.Op, e.Offset, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// CorruptionError reports header or chunk metadata that is inconsistent with
// the bytes actually present.
//
// Chunk is -1 when the problem is in the global header.
type CorruptionError struct {
	Offset   int64
	Chunk    int64
	Reason   string
	Expected uint64
	Actual   uint64
	cause    error
}

// NewCorruptionError builds a CorruptionError without expected/actual values.
func NewCorruptionError(offset, chunk int64, reason string, cause error) *CorruptionError {
	return &CorruptionError{Offset: offset, Chunk: chunk, Reason: reason, cause: cause}
}

// NewCountError builds a CorruptionError for an expected/actual mismatch.
func NewCountError(offset, chunk int64, reason string, expected, actual uint64) *CorruptionError {
	return &CorruptionError{Offset: offset, Chunk: chunk, Reason: reason, Expected: expected, Actual: actual}
}

func (e *CorruptionError) Error() string {
	msg := fmt.Sprintf("corrupt large list at offset %d", e.Offset)
	if e.Chunk >= 0 {
		msg += fmt.Sprintf(" (chunk %d)", e.Chunk)
	}
	msg += ": " + e.Reason
	if e.Expected != 0 || e.Actual != 0 {
		msg += fmt.Sprintf(": expected %d, got %d", e.Expected, e.Actual)
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *CorruptionError) Is(target error) bool { return target == ErrCorrupt }

func (e *CorruptionError) Unwrap() error { return e.cause }

// IndexOutOfRangeError is returned by random access outside [0, Count).
// Count is zero for a negative Index, which is rejected before the stream is read.
type IndexOutOfRangeError struct {
	Index int64
	Count uint64
}

func (e *IndexOutOfRangeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("negative element index %d", e.Index)
	}
	return fmt.Sprintf("element index %d out of range [0, %d)", e.Index, e.Count)
}

func (e *IndexOutOfRangeError) Is(target error) bool { return target == ErrOutOfRange }

// CodecError wraps an error returned by the element codec. The codec's error
// is kept verbatim and is reachable through errors.Unwrap / errors.As.
//
// Element is -1 when the failing element position is unknown.
type CodecError struct {
	Codec   string
	Op      string
	Element int64
	Err     error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("codec %s: %s element %d: %v", e.Codec, e.Op, e.Element, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

// CodecMismatchError is returned when a stream was written with a different
// codec than the one supplied for reading.
type CodecMismatchError struct {
	Stored    string
	Requested string
}

func (e *CodecMismatchError) Error() string {
	if e.Requested == "" {
		return fmt.Sprintf("stream was written with unknown codec %q", e.Stored)
	}
	return fmt.Sprintf("stream was written with codec %q, cannot read with %q", e.Stored, e.Requested)
}

// IsCorruption reports whether err is (or wraps) a CorruptionError.
func IsCorruption(err error) bool {
	return errors.Is(err, ErrCorrupt)
}
