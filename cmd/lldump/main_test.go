package main

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemsomicslab/largelist"
	"github.com/systemsomicslab/largelist/codec"
	"github.com/systemsomicslab/largelist/format"
)

func squares(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i * i
	}
	return out
}

func TestText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "squares.lls")
	x, err := largelist.SaveFile(path, slices.Values(squares(30)), largelist.WithChunkSizeCeiling(64))
	require.NoError(t, err)

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run([]string{"--verify", "--element", "3", path}, &stdout, &stderr), stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "codec:       go-json\n")
	assert.Contains(t, out, "elements:    30\n")
	assert.Contains(t, out, "chunks:      "+strconv.Itoa(len(x.Chunks))+"\n")
	assert.Contains(t, out, "element 3 (1 bytes):\n9\n")
	assert.Contains(t, out, "checksums:   ok")
}

func TestJSON(t *testing.T) {
	elems := [][]byte{[]byte("abc"), bytes.Repeat([]byte{0xfe}, 100)}
	path := filepath.Join(t.TempDir(), "blobs.lls")
	x, err := largelist.SaveFile(path, slices.Values(elems),
		largelist.WithCodec(codec.Bytes{}), largelist.WithCompression(format.CompressionZSTD))
	require.NoError(t, err)

	var stdout, stderr bytes.Buffer
	require.Equal(t, 0, run([]string{"--json", "--element=1", path}, &stdout, &stderr), stderr.String())

	var rep report
	require.NoError(t, gojson.Unmarshal(stdout.Bytes(), &rep))
	assert.Equal(t, "bytes", rep.Codec)
	assert.Equal(t, "zstd", rep.Compression)
	assert.Equal(t, uint64(2), rep.Elements)
	assert.Equal(t, x.Size(), rep.Size)
	require.Len(t, rep.Chunks, len(x.Chunks))
	assert.Equal(t, x.Chunks[0].Header.RawLength, rep.Chunks[0].Raw)
	assert.Nil(t, rep.Verified)

	require.NotNil(t, rep.Element)
	assert.Equal(t, 100, rep.Element.Length)
	assert.Equal(t, hex.EncodeToString(elems[1][:previewBytes]), rep.Element.Hex)
}

func TestVerifyFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.lls")
	_, err := largelist.SaveFile(path, slices.Values(squares(10)))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0x01
	require.NoError(t, os.WriteFile(path, data, 0o644))

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{"--verify", path}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "checksums:   FAILED")
}

func TestUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Usage: lldump")

	assert.Equal(t, 1, run([]string{filepath.Join(t.TempDir(), "missing.lls")}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "lldump:")
}
