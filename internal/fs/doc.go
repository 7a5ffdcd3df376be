// Package fs abstracts the file operations used to save lists atomically,
// so tests can inject failures.
//
// Production code uses Default ([LocalFS]). Tests wrap it in a [FaultyFS]:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".tmp-", fs.Fault{FailAfterBytes: 1024})
//
// There is no context.Context here: local file calls are not interruptible.
// Remote storage goes through the blobstore package instead.
package fs
