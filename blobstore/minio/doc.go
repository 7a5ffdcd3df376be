// Package minio stores serialized lists on MinIO or any S3-compatible server
// (Ceph, Garage, SeaweedFS) through the MinIO Go client.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	store := minioblob.NewStore(client, "lists", "spectra/")
//	_, err = largelist.PutBlob(ctx, store, "msp.lls", records)
//
// Writes stream with an unknown size, so the client uploads them in parts.
// Reads are ranged GETs.
package minio
