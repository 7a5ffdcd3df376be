package largelist

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemsomicslab/largelist/codec"
	"github.com/systemsomicslab/largelist/internal/fs"
	"github.com/systemsomicslab/largelist/testutil"
)

func TestSaveAndLoadFile(t *testing.T) {
	spectra := testutil.NewRNG(20).Spectra(80, 10)
	path := filepath.Join(t.TempDir(), "nested", "msp.lls")

	x, err := SaveFile(path, slices.Values(spectra), WithChunkSizeCeiling(2048))
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, x.Size(), info.Size())

	got, err := LoadFile[testutil.Spectrum](path)
	require.NoError(t, err)
	assert.Equal(t, spectra, got)

	for _, i := range []int64{0, 33, 79} {
		s, err := LoadFileAt[testutil.Spectrum](path, i)
		require.NoError(t, err)
		assert.Equal(t, spectra[i], s)
	}

	_, err = LoadFileAt[testutil.Spectrum](path, 80)
	assert.ErrorIs(t, err, ErrOutOfRange)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	scanned, err := ReadIndex(f)
	require.NoError(t, err)
	assert.Equal(t, x.Chunks, scanned.Chunks)

	_, err = LoadFile[testutil.Spectrum](filepath.Join(t.TempDir(), "missing.lls"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadFileCorruptLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.lls")
	x, err := SaveFile(path, slices.Values([][]byte{[]byte("abc")}), WithCodec(codec.Bytes{}))
	require.NoError(t, err)
	require.Len(t, x.Chunks, 1)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	inflateChunk(data, x.Chunks[0], 1<<50, 1<<50, 1<<49)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = LoadFile[[]byte](path, WithCodec(codec.Bytes{}))
	require.ErrorIs(t, err, ErrCorrupt)
	assert.Contains(t, err.Error(), "past end of stream")

	_, err = LoadFileAt[[]byte](path, 0, WithCodec(codec.Bytes{}))
	require.ErrorIs(t, err, ErrCorrupt)
	assert.Contains(t, err.Error(), "past end of stream")
}

func TestSaveFileFaults(t *testing.T) {
	original := []string{"kept", "intact"}
	replacement := make([]string, 200)
	for i := range replacement {
		replacement[i] = strings.Repeat("x", i)
	}

	tests := []struct {
		name  string
		fault fs.Fault
	}{
		{"write", fs.Fault{FailAfterBytes: 100}},
		{"sync", fs.Fault{FailAfterBytes: -1, FailOnSync: true}},
		{"close", fs.Fault{FailAfterBytes: -1, FailOnClose: true}},
		{"rename", fs.Fault{FailAfterBytes: -1, FailOnRename: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "list.lls")
			_, err := SaveFile(path, slices.Values(original))
			require.NoError(t, err)

			ffs := fs.NewFaultyFS(nil)
			ffs.AddRule(".tmp-", tt.fault)
			_, err = SaveFile(path, slices.Values(replacement), withFileSystem(ffs), WithChunkSizeCeiling(512))
			require.ErrorIs(t, err, fs.ErrInjected)

			removed := ffs.Removed()
			require.Len(t, removed, 1)
			assert.Contains(t, removed[0], ".tmp-")

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, "list.lls", entries[0].Name())

			got, err := LoadFile[string](path)
			require.NoError(t, err)
			assert.Equal(t, original, got)
		})
	}
}
