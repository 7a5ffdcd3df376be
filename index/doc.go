// Package index locates chunks and elements of a serialized large list.
//
// An Index is either built while writing (Builder, fed by the chunk writer's
// callbacks) or reconstructed cold with Scan, which reads only the global
// header and the chunk headers and skips every payload.
//
//	idx, err := index.Scan(f)
//	k, within, err := idx.Locate(1_000_000)
//
// Offsets in an Index are relative to the start of the list, so an index
// stays valid when the list is embedded at a non-zero position of a larger
// stream.
package index
