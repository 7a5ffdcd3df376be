// Package largelist serializes collections too large for a single call of a
// conventional serializer.
//
// A list is written as a global header followed by size-bounded chunks. Each
// chunk carries its own header and a payload of length-prefixed elements, so
// neither a single chunk nor a single length ever has to be addressed with a
// 32-bit integer, and an element larger than the chunk ceiling simply becomes
// a chunk of its own.
//
// # Quick Start
//
//	f, _ := os.Create("msp.lls")
//	idx, _ := largelist.SerializeSlice(f, spectra)
//
//	all, _ := largelist.Deserialize[Spectrum](r)
//	one, _ := largelist.DeserializeAt[Spectrum](r, 64)
//
// DeserializeAt decodes exactly one element: on a seekable reader every chunk
// before the target is skipped with Seek, on any other reader it is discarded
// by byte count. With a retained index (returned by Serialize, or rebuilt by
// ReadIndex) DeserializeAtIndex goes straight to the owning chunk.
//
// # Header Strategies
//
// The element and chunk counts are only known after the last element, so the
// global header is finalized in one of two ways:
//
//   - HeaderSeekBack writes a placeholder and patches it (seekable sinks)
//   - HeaderTwoPass encodes the sequence twice and writes the final header
//     first (any sink; the sequence must be re-iterable)
//
// HeaderAuto picks SeekBack whenever the sink supports it.
//
// # Codecs
//
// Elements are encoded by a codec.Codec (go-json by default). The codec name
// is stored in the header; readers pick the codec from it unless WithCodec is
// given, in which case the names must agree.
//
// # Persistence
//
// SaveFile writes atomically through a temporary file. PutBlob, LoadBlob and
// LoadBlobAt work against any blobstore.BlobStore, including S3 and MinIO.
//
// # Errors
//
// Truncated or inconsistent streams fail with a *CorruptionError
// (errors.Is(err, ErrCorrupt)); a bad index fails with an
// *IndexOutOfRangeError. Codec failures are wrapped in a *CodecError and
// stream failures in a *StreamError, both keeping the original error.
package largelist
