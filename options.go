package largelist

import (
	"fmt"
	"log/slog"

	"github.com/systemsomicslab/largelist/chunk"
	"github.com/systemsomicslab/largelist/codec"
	"github.com/systemsomicslab/largelist/format"
	"github.com/systemsomicslab/largelist/internal/fs"
	"github.com/systemsomicslab/largelist/internal/resource"
)

// DefaultChunkSizeCeiling is the default raw payload limit of one chunk
// (1 GiB, half of the 2^31-1 byte limit of a single conventional serializer call).
const DefaultChunkSizeCeiling = chunk.DefaultChunkSizeCeiling

// HeaderStrategy selects how Serialize finalizes the global header, whose
// counts are only known after the last element.
type HeaderStrategy int

const (
	// HeaderAuto uses HeaderSeekBack when the sink can seek and HeaderTwoPass otherwise.
	HeaderAuto HeaderStrategy = iota
	// HeaderSeekBack writes a placeholder header and patches it at the end.
	// The sink must be an io.WriteSeeker.
	HeaderSeekBack
	// HeaderTwoPass encodes every element twice: once to compute the chunk
	// boundaries and counts, once to write. It works on any io.Writer and
	// requires the element sequence to be re-iterable and deterministic.
	HeaderTwoPass
)

func (s HeaderStrategy) String() string {
	switch s {
	case HeaderAuto:
		return "auto"
	case HeaderSeekBack:
		return "seek-back"
	case HeaderTwoPass:
		return "two-pass"
	default:
		return fmt.Sprintf("HeaderStrategy(%d)", int(s))
	}
}

type options struct {
	codec            codec.Codec
	codecSet         bool
	ceiling          uint64
	compression      format.Compression
	header           HeaderStrategy
	elementIndex     bool
	verifyChecksums  bool
	memoryLimit      int64
	metricsCollector MetricsCollector
	logger           *Logger
	fs               fs.FileSystem

	// size is the known length of the source when it is read as a plain
	// stream, or 0.
	size int64
}

// Option configures serialization and deserialization.
type Option func(*options)

func applyOptions(opts []Option) options {
	o := options{
		codec:            codec.Default,
		ceiling:          DefaultChunkSizeCeiling,
		compression:      format.CompressionNone,
		header:           HeaderAuto,
		verifyChecksums:  true,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		fs:               fs.Default,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// budget returns a fresh memory controller for one call, or nil when unlimited.
func (o *options) budget() *resource.Controller {
	if o.memoryLimit <= 0 {
		return nil
	}
	return resource.NewController(resource.Config{MemoryLimitBytes: o.memoryLimit})
}

// WithCodec configures the element codec.
//
// Serialize records the codec name in the global header. On read, an explicit
// codec must match the recorded name; without WithCodec the codec is selected
// by that name. If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
		o.codecSet = true
	}
}

// WithChunkSizeCeiling sets the maximum raw payload of one chunk. A single
// element larger than the ceiling is written as a chunk of its own.
func WithChunkSizeCeiling(bytes uint64) Option {
	return func(o *options) {
		o.ceiling = bytes
	}
}

// WithCompression enables per-chunk payload compression.
// A chunk that does not shrink below 90% of its raw size is stored as is.
func WithCompression(c format.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithHeaderStrategy selects how the global header is finalized.
func WithHeaderStrategy(s HeaderStrategy) Option {
	return func(o *options) {
		o.header = s
	}
}

// WithElementIndex makes Serialize record the location of every element in
// the returned index, enabling direct ReadAt access in DeserializeAtIndex.
func WithElementIndex() Option {
	return func(o *options) {
		o.elementIndex = true
	}
}

// WithChecksumVerification toggles CRC32 verification of every chunk during
// full reads (default on). Random access never verifies, since it does not
// read whole chunks.
func WithChecksumVerification(enabled bool) Option {
	return func(o *options) {
		o.verifyChecksums = enabled
	}
}

// WithMemoryLimit bounds each transient buffer of a read: one element, or one
// compressed chunk together with its decompressed payload. A read that would
// exceed it fails with ErrMemoryLimitExceeded instead of allocating.
//
// The limit applies per buffer. Decoded elements handed back to the caller
// are not counted, so it does not bound the memory a whole Deserialize holds.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &largelist.BasicMetricsCollector{}
//	_, err := largelist.Serialize(w, records, largelist.WithMetricsCollector(metrics))
//	stats := metrics.GetStats()
//	fmt.Printf("chunks: %d, bytes: %d\n", stats.ChunkCount, stats.BytesWritten)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := largelist.NewJSONLogger(slog.LevelDebug)
//	_, err := largelist.Serialize(w, records, largelist.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// withFileSystem replaces the file system used by the file helpers.
func withFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		o.fs = fsys
	}
}
