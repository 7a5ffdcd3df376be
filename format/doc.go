// Package format defines the binary layout of a serialized large list.
//
// A serialized list is a global header followed by zero or more chunks:
//
//	GlobalHeader (40 bytes + codec name)
//	  Magic "LLS0"      [4]byte
//	  Version           uint16
//	  Flags             uint16 (reserved, zero)
//	  ElementCount      uint64
//	  ChunkCount        uint64
//	  ChunkSizeCeiling  uint64
//	  Compression       uint8
//	  CodecNameLen      uint8
//	  Reserved          [6]byte
//	  CodecName         [CodecNameLen]byte
//
//	Chunk (repeated ChunkCount times)
//	  ChunkHeader (32 bytes)
//	    ElementCount    uint32
//	    Compression     uint8
//	    Reserved        [3]byte
//	    ByteLength      uint64 (stored payload bytes)
//	    RawLength       uint64 (payload bytes before compression)
//	    Checksum        uint32 (CRC32 IEEE of the stored payload)
//	    Reserved        [4]byte
//	  Payload           [ByteLength]byte
//
// The raw payload of a chunk is a run of back-to-back elements, each framed as
// a uint64 length followed by that many bytes. All integers are little-endian.
//
// Chunks never hold zero elements, so an empty list is a bare global header
// with ChunkCount == 0.
package format
