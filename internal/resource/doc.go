// Package resource bounds the memory and remote IO of list reads.
//
//   - Memory: fail-fast reservations for element buffers and decompressed
//     chunks. A read that would exceed the limit returns
//     ErrMemoryLimitExceeded instead of allocating.
//   - Fetches: a cap on parallel range reads issued by the caching blob store.
//   - IO: a token bucket on bytes read from remote stores.
//
//	rc := resource.NewController(resource.Config{MemoryLimitBytes: 64 << 20})
//	if err := rc.AcquireMemory(n); err != nil {
//	    return err
//	}
//	defer rc.ReleaseMemory(n)
//
// Every method is a no-op on a nil *Controller, so an unlimited reader can
// pass nil. Controllers are safe for concurrent use.
package resource
