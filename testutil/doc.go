// Package testutil provides testing utilities for largelist.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded random source, record generators and in-memory
// streams with controlled capabilities.
//
// # Random Records
//
//	rng := testutil.NewRNG(seed)
//	spectra := rng.Spectra(1000, 64)   // records with 64 peaks each
//	blobs := rng.Blobs(100, 80)        // 100 random 80-byte elements
//
// # Streams
//
//	buf := testutil.NewSeekBuffer()    // in-memory io.WriteSeeker / io.ReadSeeker
//	r := testutil.NonSeekable(reader)  // hides io.Seeker
package testutil
