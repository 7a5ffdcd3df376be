package largelist

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    bytesWritten prometheus.Counter
//	    readLatency  prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordSerialize(elements, chunks uint64, bytes int64, d time.Duration, err error) {
//	    p.bytesWritten.Add(float64(bytes))
//	}
type MetricsCollector interface {
	// RecordSerialize is called after each Serialize call.
	// bytes is the number of bytes written to the sink.
	RecordSerialize(elements, chunks uint64, bytes int64, duration time.Duration, err error)

	// RecordChunk is called after each chunk is written.
	RecordChunk(elements uint32, storedBytes, rawBytes uint64)

	// RecordDeserialize is called after each full read.
	// elements is the number of elements decoded.
	RecordDeserialize(elements uint64, duration time.Duration, err error)

	// RecordDeserializeAt is called after each random access read.
	RecordDeserializeAt(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSerialize(uint64, uint64, int64, time.Duration, error) {}
func (NoopMetricsCollector) RecordChunk(uint32, uint64, uint64)                          {}
func (NoopMetricsCollector) RecordDeserialize(uint64, time.Duration, error)              {}
func (NoopMetricsCollector) RecordDeserializeAt(time.Duration, error)                    {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	SerializeCount         atomic.Int64
	SerializeErrors        atomic.Int64
	SerializeTotalNanos    atomic.Int64
	ElementsWritten        atomic.Int64
	BytesWritten           atomic.Int64
	ChunkCount             atomic.Int64
	ChunkStoredBytes       atomic.Int64
	ChunkRawBytes          atomic.Int64
	DeserializeCount       atomic.Int64
	DeserializeErrors      atomic.Int64
	ElementsRead           atomic.Int64
	RandomAccessCount      atomic.Int64
	RandomAccessErrors     atomic.Int64
	RandomAccessTotalNanos atomic.Int64
}

// RecordSerialize implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSerialize(elements, chunks uint64, bytes int64, duration time.Duration, err error) {
	b.SerializeCount.Add(1)
	b.SerializeTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SerializeErrors.Add(1)
		return
	}
	b.ElementsWritten.Add(int64(elements))
	b.BytesWritten.Add(bytes)
}

// RecordChunk implements MetricsCollector.
func (b *BasicMetricsCollector) RecordChunk(elements uint32, storedBytes, rawBytes uint64) {
	b.ChunkCount.Add(1)
	b.ChunkStoredBytes.Add(int64(storedBytes))
	b.ChunkRawBytes.Add(int64(rawBytes))
}

// RecordDeserialize implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDeserialize(elements uint64, duration time.Duration, err error) {
	b.DeserializeCount.Add(1)
	b.ElementsRead.Add(int64(elements))
	if err != nil {
		b.DeserializeErrors.Add(1)
	}
}

// RecordDeserializeAt implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDeserializeAt(duration time.Duration, err error) {
	b.RandomAccessCount.Add(1)
	b.RandomAccessTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.RandomAccessErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		SerializeCount:       b.SerializeCount.Load(),
		SerializeErrors:      b.SerializeErrors.Load(),
		SerializeAvgNanos:    avg(b.SerializeTotalNanos.Load(), b.SerializeCount.Load()),
		ElementsWritten:      b.ElementsWritten.Load(),
		BytesWritten:         b.BytesWritten.Load(),
		ChunkCount:           b.ChunkCount.Load(),
		CompressionRatio:     ratio(b.ChunkStoredBytes.Load(), b.ChunkRawBytes.Load()),
		DeserializeCount:     b.DeserializeCount.Load(),
		DeserializeErrors:    b.DeserializeErrors.Load(),
		ElementsRead:         b.ElementsRead.Load(),
		RandomAccessCount:    b.RandomAccessCount.Load(),
		RandomAccessErrors:   b.RandomAccessErrors.Load(),
		RandomAccessAvgNanos: avg(b.RandomAccessTotalNanos.Load(), b.RandomAccessCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

func ratio(stored, raw int64) float64 {
	if raw == 0 {
		return 1
	}
	return float64(stored) / float64(raw)
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	SerializeCount       int64
	SerializeErrors      int64
	SerializeAvgNanos    int64
	ElementsWritten      int64
	BytesWritten         int64
	ChunkCount           int64
	CompressionRatio     float64 // stored / raw payload bytes
	DeserializeCount     int64
	DeserializeErrors    int64
	ElementsRead         int64
	RandomAccessCount    int64
	RandomAccessErrors   int64
	RandomAccessAvgNanos int64
}
