// Package s3 stores serialized lists in Amazon S3 or an S3-compatible service.
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("spectra/"),
//	    s3.WithRegion("us-east-1"),
//	)
//	_, err = largelist.PutBlob(ctx, store, "msp.lls", records)
//	rec, err := largelist.LoadBlobAt[Spectrum](ctx, store, "msp.lls", 42)
//
// Writes stream through the multipart upload manager, so a list never has to
// fit in memory. Reads are ranged GETs; wrap the store in a
// blobstore.CachingStore so that the small header and length-prefix reads of
// a random access lookup do not each cost a request.
package s3
