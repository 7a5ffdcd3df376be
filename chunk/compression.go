package chunk

import (
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/systemsomicslab/largelist/format"
)

// lz4MaxInput is the largest block the LZ4 block format can address.
const lz4MaxInput = 0x7E000000

// minSavings is the ratio above which a compressed payload is discarded and
// the chunk is stored raw.
const minSavings = 0.9

var errSizeMismatch = errors.New("decompressed size mismatch")

// ZSTD encoder/decoder pools.
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil)
}

// compressPayload compresses a raw chunk payload. When compression does not
// pay off the raw bytes are returned with CompressionNone.
func compressPayload(raw []byte, c format.Compression) ([]byte, format.Compression, error) {
	if c == format.CompressionNone || len(raw) == 0 {
		return raw, format.CompressionNone, nil
	}

	var (
		compressed []byte
		err        error
	)
	switch c {
	case format.CompressionLZ4:
		compressed, err = compressLZ4(raw)
	case format.CompressionZSTD:
		compressed, err = compressZSTD(raw)
	default:
		return nil, 0, fmt.Errorf("unknown compression %d", c)
	}
	if err != nil {
		return nil, 0, err
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(raw))*minSavings {
		return raw, format.CompressionNone, nil
	}
	return compressed, c, nil
}

func compressLZ4(raw []byte) ([]byte, error) {
	if len(raw) > lz4MaxInput {
		return nil, nil
	}
	dst := make([]byte, lz4.CompressBlockBound(len(raw)))
	n, err := lz4.CompressBlock(raw, dst, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil // incompressible
	}
	return dst[:n], nil
}

func compressZSTD(raw []byte) ([]byte, error) {
	enc, err := getZstdEncoder()
	if err != nil {
		return nil, err
	}
	defer zstdEncoderPool.Put(enc)
	return enc.EncodeAll(raw, nil), nil
}

// decompressPayload restores the raw payload of a chunk.
func decompressPayload(stored []byte, h format.ChunkHeader) ([]byte, error) {
	switch h.Compression {
	case format.CompressionNone:
		return stored, nil

	case format.CompressionLZ4:
		raw := make([]byte, h.RawLength)
		n, err := lz4.UncompressBlock(stored, raw)
		if err != nil {
			return nil, err
		}
		if uint64(n) != h.RawLength {
			return nil, errSizeMismatch
		}
		return raw, nil

	case format.CompressionZSTD:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoderPool.Put(dec)

		raw, err := dec.DecodeAll(stored, nil)
		if err != nil {
			return nil, err
		}
		if uint64(len(raw)) != h.RawLength {
			return nil, errSizeMismatch
		}
		return raw, nil

	default:
		return nil, fmt.Errorf("unknown compression %d", h.Compression)
	}
}
