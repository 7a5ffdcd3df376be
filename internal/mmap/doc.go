// Package mmap maps serialized lists into memory for read-only random access.
//
// LocalStore opens blobs through this package, so ReadAt on a local list is a
// copy out of the page cache and chunks never touched by a random access
// read are never faulted in.
//
//	m, err := mmap.Open("spectra.lls")
//	if err != nil { ... }
//	defer m.Close()
//	_ = m.Advise(mmap.AccessRandom)
//
// Unix uses mmap(2) and madvise(2). Windows uses CreateFileMapping and
// MapViewOfFile; Advise is a no-op there.
//
// A Mapping is safe for concurrent reads. Close is idempotent, but slices
// returned by Bytes must not be used after it returns.
package mmap
