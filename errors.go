package largelist

import (
	"github.com/systemsomicslab/largelist/chunk"
	"github.com/systemsomicslab/largelist/format"
	"github.com/systemsomicslab/largelist/internal/resource"
)

var (
	// ErrCorrupt is matched by every *CorruptionError.
	ErrCorrupt = format.ErrCorrupt

	// ErrOutOfRange is matched by every *IndexOutOfRangeError.
	ErrOutOfRange = format.ErrOutOfRange

	// ErrNotSeekable is returned when HeaderSeekBack is used on a sink that cannot seek.
	ErrNotSeekable = format.ErrNotSeekable

	// ErrInvalidMagic is returned when a stream is not a serialized list.
	ErrInvalidMagic = format.ErrInvalidMagic

	// ErrUnsupportedVersion is returned for lists written by a newer format version.
	ErrUnsupportedVersion = format.ErrUnsupportedVersion

	// ErrWriterState is returned when the chunk writer is driven out of order.
	ErrWriterState = chunk.ErrWriterState

	// ErrPlanMismatch is returned by two-pass serialization when the element
	// sequence yields different elements on the second pass.
	ErrPlanMismatch = chunk.ErrPlanMismatch

	// ErrMemoryLimitExceeded is returned when a read would exceed WithMemoryLimit.
	ErrMemoryLimitExceeded = resource.ErrMemoryLimitExceeded
)

type (
	// StreamError reports a failure of the underlying stream.
	StreamError = format.StreamError

	// CorruptionError reports metadata inconsistent with the bytes present.
	CorruptionError = format.CorruptionError

	// IndexOutOfRangeError is returned by random access outside [0, count).
	IndexOutOfRangeError = format.IndexOutOfRangeError

	// CodecError wraps an error of the element codec.
	// The original error can be accessed via errors.Unwrap.
	CodecError = format.CodecError

	// CodecMismatchError is returned when the stored codec differs from the configured one.
	CodecMismatchError = format.CodecMismatchError
)

// IsCorruption reports whether err is (or wraps) a CorruptionError.
func IsCorruption(err error) bool {
	return format.IsCorruption(err)
}
